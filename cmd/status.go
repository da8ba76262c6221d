package cmd

import (
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/cv-evaluator/internal/apiclient"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check that the backend services are reachable",
	Run: func(_ *cobra.Command, _ []string) {
		rt := setup(false)
		defer rt.finish()

		failed := false
		for _, health := range apiclient.CheckAll(rt.ctx, http.DefaultClient, rt.config.Services) {
			fields := []zap.Field{
				zap.String("service", health.Service.Name),
				zap.String("status", string(health.Status)),
				zap.String("url", health.Service.URL),
				zap.String("details", health.Message),
			}

			if health.Status == apiclient.Healthy {
				rt.logger.Info("service is available", fields...)
				continue
			}

			rt.logger.Warn("service is not available", fields...)
			if health.Service.Required {
				failed = true
			}
		}

		if failed {
			rt.finish()
			rt.logger.Fatal("required service is not available")
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
