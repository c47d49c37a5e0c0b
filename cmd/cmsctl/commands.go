package main

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/site-cms-api/internal/migrations"
	"github.com/noah-isme/site-cms-api/internal/models"
	"github.com/noah-isme/site-cms-api/internal/repository"
	"github.com/noah-isme/site-cms-api/pkg/config"
	"github.com/noah-isme/site-cms-api/pkg/database"
	"github.com/noah-isme/site-cms-api/pkg/logger"
)

func init() {
	migrateCmd := &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Database migration management",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) > 0 {
				action = args[0]
			}
			return withDatabase(cmd.Context(), func(db *sqlx.DB, _ *zap.Logger) error {
				switch action {
				case "down":
					return migrations.Down(db.DB)
				case "status":
					return migrations.Status(db.DB)
				default:
					return migrations.Up(db.DB)
				}
			})
		},
	}

	var (
		email    string
		username string
		password string
		fullName string
		role     string
	)
	userCreateCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin console user",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := newUser(email, username, password, fullName, role)
			if err != nil {
				return err
			}
			return withDatabase(cmd.Context(), func(db *sqlx.DB, logr *zap.Logger) error {
				if err := repository.NewUserRepository(db).Create(cmd.Context(), user); err != nil {
					return err
				}
				logr.Info("user created", zap.String("id", user.ID), zap.String("email", user.Email), zap.String("role", string(user.Role)))
				fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) %s\n", user.Email, user.Role, user.ID)
				return nil
			})
		},
	}
	userCreateCmd.Flags().StringVar(&email, "email", "", "login email")
	userCreateCmd.Flags().StringVar(&username, "username", "", "display username, defaults to the email local part")
	userCreateCmd.Flags().StringVar(&password, "password", "", "initial password")
	userCreateCmd.Flags().StringVar(&fullName, "name", "", "full name")
	userCreateCmd.Flags().StringVar(&role, "role", string(models.RoleAdmin), "ADMIN or SUPERADMIN")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")

	userCmd := &cobra.Command{Use: "user", Short: "User management"}
	userCmd.AddCommand(userCreateCmd)

	rootCmd.AddCommand(migrateCmd, userCmd)
}

func newUser(email, username, password, fullName, role string) (*models.User, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("invalid email: %w", err)
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}
	userRole := models.UserRole(strings.ToUpper(strings.TrimSpace(role)))
	if !userRole.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	if username == "" {
		username = strings.SplitN(addr.Address, "@", 2)[0]
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return &models.User{
		Email:        addr.Address,
		Username:     username,
		PasswordHash: string(hash),
		FullName:     fullName,
		Role:         userRole,
		Active:       true,
	}, nil
}

func withDatabase(ctx context.Context, fn func(db *sqlx.DB, logr *zap.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	if ctx == nil {
		ctx = context.Background()
	}
	db, err := database.NewPostgres(ctx, cfg.Database, logr)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck
	return fn(db, logr)
}
