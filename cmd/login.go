package cmd

import (
	"errors"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/cv-evaluator/internal/backend"
	"github.com/spigell/cv-evaluator/internal/secrets"
)

const passwordFileEnv = "CV_EVALUATOR_PASSWORD_FILE"

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with email and password or with Google",
	Run: func(cmd *cobra.Command, _ []string) {
		login(cmd)
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringP("email", "e", "", "account email")
	loginCmd.Flags().StringP("password-file", "p", "", "file with the password (default is $"+passwordFileEnv+" or an interactive prompt)")
	loginCmd.Flags().BoolP("google", "g", false, "sign in with Google instead of a password")
}

func login(cmd *cobra.Command) {
	rt := setup(true)
	defer rt.finish()

	var (
		user backend.User
		err  error
	)

	if google, _ := cmd.Flags().GetBool("google"); google {
		user, err = rt.session.LoginWithFederatedProvider(rt.ctx)
	} else {
		email, password := credentials(cmd, rt.logger)
		user, err = rt.session.LoginWithPassword(rt.ctx, email, password)
	}

	if err != nil {
		rt.finish()
		rt.logger.Fatal("login failed", zap.Error(err))
	}

	reportUser(rt.logger, "logged in", user)
}

// credentials resolves email and password from flags, files or prompts.
func credentials(cmd *cobra.Command, logger *zap.Logger) (string, string) {
	email, _ := cmd.Flags().GetString("email")
	email = strings.TrimSpace(email)

	if email == "" {
		prompt := promptui.Prompt{
			Label:    "Email",
			Validate: notEmpty("email"),
		}
		value, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		email = strings.TrimSpace(value)
	}

	passwordFile, _ := cmd.Flags().GetString("password-file")
	password, err := secrets.Load(secrets.Source{
		Name: "password",
		File: passwordFile,
		Env:  passwordFileEnv,
	})
	if err == nil {
		return email, password
	}
	if !errors.Is(err, secrets.ErrNotConfigured) {
		logger.Fatal("loading password", zap.Error(err))
	}

	prompt := promptui.Prompt{
		Label:    "Password",
		Mask:     '*',
		Validate: notEmpty("password"),
	}
	password, err = prompt.Run()
	if err != nil {
		logger.Fatal("exiting", zap.Error(err))
	}

	return email, password
}

func notEmpty(name string) promptui.ValidateFunc {
	return func(input string) error {
		if strings.TrimSpace(input) == "" {
			return errors.New(name + " must not be empty")
		}
		return nil
	}
}

func reportUser(logger *zap.Logger, msg string, user backend.User) {
	profile, err := user.Profile()
	if err != nil {
		logger.Warn("decoding user profile", zap.Error(err))
		logger.Info(msg)
		return
	}

	logger.Info(msg,
		zap.String("user_id", profile.ID),
		zap.String("email", profile.Email),
		zap.String("role", profile.Role),
		zap.String("subscription", profile.Subscription),
	)
}
