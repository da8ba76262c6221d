package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/cv-evaluator/internal/session"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Get a new access token with the stored refresh token",
	Run: func(_ *cobra.Command, _ []string) {
		rt := setup(false)
		defer rt.finish()

		if _, err := rt.session.RefreshAccessToken(rt.ctx); err != nil {
			rt.finish()
			if errors.Is(err, session.ErrNoRefreshToken) {
				rt.logger.Fatal("not logged in", zap.String("hint", "run the login command first"))
			}
			rt.logger.Fatal("refresh failed, the session was cleared", zap.Error(err))
		}

		fields := []zap.Field{}
		if exp, ok := rt.session.AccessTokenExpiry(); ok {
			fields = append(fields, zap.Time("expires_at", exp))
		}
		rt.logger.Info("access token refreshed", fields...)
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
