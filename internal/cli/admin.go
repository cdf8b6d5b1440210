package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quiz-competition-service/internal/app"
	"quiz-competition-service/internal/domain"
	"quiz-competition-service/internal/infra/postgres"
)

// NewCreateAdminCmd registers an administrator account in the configured database.
func NewCreateAdminCmd(configPath *string) *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}

			db := postgres.Open(cfg.Postgres.URL)
			defer db.Close()
			if _, err := postgres.Migrate(cmd.Context(), db); err != nil {
				return err
			}

			users := app.NewUserService(postgres.NewUserStore(db), nil, logger)
			user, err := users.Register(cmd.Context(), app.Registration{
				Username: username,
				Email:    email,
				Password: password,
				Role:     domain.RoleAdmin,
			})
			if err != nil {
				return err
			}
			logger.Info("admin created", zap.String("user_id", user.ID), zap.String("username", user.Username))
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "admin username")
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
