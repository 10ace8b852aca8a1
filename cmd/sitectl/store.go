package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"codefix-admin/internal/apiserver/auth"
	"codefix-admin/internal/config"
	"codefix-admin/internal/shared/infra"
	"codefix-admin/internal/shared/model"
	"codefix-admin/internal/shared/rbac"
	"codefix-admin/internal/shared/storage"
	"codefix-admin/pkg/logging"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage site users in the configured document store",
	}

	var email, username, password, role string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Long:  "Create a user directly in the document store configured by APP_ENV and CONFIG_DIR.",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, ok := rbac.ParseRole(role)
			if !ok {
				return fmt.Errorf("unknown role %q", role)
			}
			if email == "" || password == "" {
				return errors.New("--email and --password are required")
			}
			if username == "" {
				username, _, _ = strings.Cut(email, "@")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}

			cfg := config.Load()
			docs, err := infra.NewDocumentStore(cfg.DatabaseDriver, cfg.DatabaseURL, cfg.DatabaseName, logging.Nop())
			if err != nil {
				return fmt.Errorf("open document store: %w", err)
			}
			defer docs.Close()

			u := &model.User{
				Email:        email,
				Username:     username,
				PasswordHash: hash,
				Role:         r,
				Status:       model.UserStatusActive,
			}
			if err := storage.NewUserRepository(docs).CreateUser(cmd.Context(), u); err != nil {
				if errors.Is(err, storage.ErrDuplicate) {
					return fmt.Errorf("user %s already exists", strings.ToLower(email))
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) role=%s\n", u.Email, u.ID, u.Role)
			return nil
		},
	}
	create.Flags().StringVar(&email, "email", "", "login email")
	create.Flags().StringVar(&username, "username", "", "display name (default: email local part)")
	create.Flags().StringVar(&password, "password", "", "initial password")
	create.Flags().StringVar(&role, "role", string(rbac.RoleUser), "role")
	cmd.AddCommand(create)
	return cmd
}

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the render cache",
	}

	var paths []string
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Drop cached pages",
		Long:  "Drop cached pages. Without --path every cached page is removed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cfg.RedisURL == "" {
				return errors.New("redis is not configured")
			}
			r, err := infra.NewRedisInfra(cfg.RedisURL, logging.Nop())
			if err != nil {
				return err
			}
			defer r.Close()

			c := r.Cache()
			if len(paths) > 0 {
				err = c.InvalidatePaths(cmd.Context(), paths...)
			} else {
				err = c.InvalidateAll(cmd.Context())
			}
			if err != nil {
				return fmt.Errorf("purge: %w", err)
			}
			if len(paths) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "purged %d path(s)\n", len(paths))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "purged all cached pages")
			}
			return nil
		},
	}
	purge.Flags().StringSliceVar(&paths, "path", nil, "page path to purge (repeatable)")
	cmd.AddCommand(purge)
	return cmd
}
