package cmd

import (
	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	Run: func(_ *cobra.Command, _ []string) {
		rt := setup(false)
		defer rt.finish()

		rt.session.Logout(rt.ctx)
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
