package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	Run: func(cmd *cobra.Command, _ []string) {
		register(cmd)
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().StringP("email", "e", "", "account email")
	registerCmd.Flags().StringP("password-file", "p", "", "file with the password (default is $"+passwordFileEnv+" or an interactive prompt)")
	registerCmd.Flags().StringToString("field", nil, "additional registration field, e.g. --field first_name=Jane (repeatable)")
}

func register(cmd *cobra.Command) {
	rt := setup(true)
	defer rt.finish()

	email, password := credentials(cmd, rt.logger)

	fields, err := cmd.Flags().GetStringToString("field")
	if err != nil {
		rt.logger.Fatal("parsing registration fields", zap.Error(err))
	}

	extra := make(map[string]any, len(fields))
	for key, value := range fields {
		extra[key] = value
	}

	user, err := rt.session.Register(rt.ctx, email, password, extra)
	if err != nil {
		rt.finish()
		rt.logger.Fatal("registration failed", zap.Error(err))
	}

	reportUser(rt.logger, "registered", user)
}
