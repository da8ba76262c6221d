package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/cv-evaluator/internal/apiclient"
)

type whoamiOutput struct {
	Authenticated bool           `json:"authenticated"`
	User          map[string]any `json:"user,omitempty"`
	ExpiresAt     *time.Time     `json:"access_token_expires_at,omitempty"`
	Verified      map[string]any `json:"verified,omitempty"`
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the stored session",
	Run: func(cmd *cobra.Command, _ []string) {
		rt := setup(false)
		defer rt.finish()

		out := whoamiOutput{
			Authenticated: rt.session.IsAuthenticated(),
			User:          rt.session.CurrentUser(),
		}
		if exp, ok := rt.session.AccessTokenExpiry(); ok {
			out.ExpiresAt = &exp
		}

		if verify, _ := cmd.Flags().GetBool("verify"); verify && out.Authenticated {
			api := apiclient.New(rt.config.API.URL, rt.session, rt.logger)
			result, err := api.TestAuth(rt.ctx)
			if err != nil {
				rt.logger.Warn("verifying the access token", zap.Error(err))
			}
			out.Verified = result
			out.Authenticated = rt.session.IsAuthenticated()
		}

		// do not bother error since the output is built from plain values
		pretty, _ := json.MarshalIndent(out, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(pretty))
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)

	whoamiCmd.Flags().Bool("verify", false, "ask the api to validate the access token (refreshes it once on 401)")
}
