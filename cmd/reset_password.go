package cmd

import (
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Send a password reset email",
	Run: func(cmd *cobra.Command, _ []string) {
		rt := setup(true)
		defer rt.finish()

		email, _ := cmd.Flags().GetString("email")
		email = strings.TrimSpace(email)
		if email == "" {
			prompt := promptui.Prompt{
				Label:    "Email",
				Validate: notEmpty("email"),
			}
			value, err := prompt.Run()
			if err != nil {
				rt.logger.Fatal("exiting", zap.Error(err))
			}
			email = strings.TrimSpace(value)
		}

		if err := rt.firebase.SendPasswordReset(rt.ctx, email); err != nil {
			rt.logger.Fatal("requesting a password reset failed", zap.Error(err), zap.String("email", email))
		}

		rt.logger.Info("password reset email sent, check your inbox", zap.String("email", email))
	},
}

func init() {
	rootCmd.AddCommand(resetPasswordCmd)

	resetPasswordCmd.Flags().StringP("email", "e", "", "account email")
}
