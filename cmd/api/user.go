package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"youthportal/api/internal/config"
	"youthportal/api/internal/database"
	"youthportal/api/internal/log"
	"youthportal/api/internal/models"
	"youthportal/api/internal/repository"
	"youthportal/api/internal/service"
)

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage admin panel accounts",
	}
	cmd.AddCommand(userCreateCmd())
	return cmd
}

func userCreateCmd() *cobra.Command {
	var input service.CreateUserInput
	var role string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user account",
		Long: `Create a user account.

Roles, lowest to highest: USER, EDITOR, MODERATOR, ADMIN, SUPER_ADMIN.
EDITOR and above can sign in to the admin panel; ADMIN and above can
manage users.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			input.Role = models.ParseRole(role)

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := log.New(cfg.Environment)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			pool, err := database.NewPostgresPool(ctx, cfg.Postgres)
			if err != nil {
				return err
			}
			defer pool.Close()

			// Account creation never touches sessions or tokens.
			auth := service.NewAuthService(repository.NewUserRepository(pool), nil, nil, logger)
			user, err := auth.CreateUser(ctx, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) with role %s\n", user.Email, user.ID, user.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&input.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&input.Password, "password", "", "Initial password (min 8 characters)")
	cmd.Flags().StringVar(&input.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&input.LastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&role, "role", string(models.UserRoleEditor), "Role")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
