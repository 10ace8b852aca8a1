package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"codefix-admin/internal/apiserver/auth"
	"codefix-admin/internal/shared/rbac"
)

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the bcrypt hash of a password",
		Long:  "Print the bcrypt hash of a password. Reads the password from stdin when no argument is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := ""
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return errors.New("password is empty")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func newRolesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roles [role]",
		Short: "Show the role permission table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roles := rbac.AllRoles()
			if len(args) == 1 {
				r, ok := rbac.ParseRole(args[0])
				if !ok {
					return fmt.Errorf("unknown role %q", args[0])
				}
				roles = []rbac.Role{r}
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ROLE\tADMIN\tPERMISSIONS")
			for _, r := range roles {
				perms := rbac.Permissions(r)
				names := make([]string, len(perms))
				for i, p := range perms {
					names[i] = string(p)
				}
				list := strings.Join(names, ",")
				if list == "" {
					list = "-"
				}
				fmt.Fprintf(tw, "%s\t%t\t%s\n", r, rbac.CanAccessAdmin(r), list)
			}
			return tw.Flush()
		},
	}
}

func newSessionCmd() *cobra.Command {
	var secret string
	var ttl time.Duration

	codec := func() (*auth.Codec, error) {
		if secret == "" {
			secret = os.Getenv("SESSION_SECRET")
		}
		return auth.NewCodec(secret, ttl)
	}

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Issue or inspect admin session tokens",
	}
	cmd.PersistentFlags().StringVar(&secret, "secret", "", "signing secret (default $SESSION_SECRET)")
	cmd.PersistentFlags().DurationVar(&ttl, "ttl", auth.DefaultSessionTTL, "session lifetime")

	cmd.AddCommand(&cobra.Command{
		Use:   "issue <user-id>",
		Short: "Issue a session token for a user id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := codec()
			if err != nil {
				return err
			}
			token, expires, err := c.Encrypt(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, token)
			fmt.Fprintf(out, "# expires %s\n", expires.UTC().Format(time.RFC3339))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "inspect <token>",
		Short: "Verify a session token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := codec()
			if err != nil {
				return err
			}
			claims := c.Decrypt(args[0])
			if claims == nil {
				return errors.New("invalid session")
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "user:    %s\n", claims.UserID)
			fmt.Fprintf(out, "expires: %s\n", time.Unix(claims.Expires, 0).UTC().Format(time.RFC3339))
			return nil
		},
	})
	return cmd
}
