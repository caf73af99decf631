package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vonshlovens/notestore/internal/auth"
	"github.com/vonshlovens/notestore/internal/config"
	"github.com/vonshlovens/notestore/internal/store"
)

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage local accounts",
		Long:  `Manages the accounts in the users collection. Passwords are stored as entered, without hashing.`,
	}
	cmd.AddCommand(userRegisterCmd(), userLoginCmd(), userRemoveCmd(), userListCmd())
	return cmd
}

// prompter reads answers line by line from one reader.
type prompter struct {
	r   *bufio.Reader
	out io.Writer
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{r: bufio.NewReader(cmd.InOrStdin()), out: cmd.OutOrStdout()}
}

func (p *prompter) ask(label string) string {
	fmt.Fprint(p.out, label)
	s, _ := p.r.ReadString('\n')
	return strings.TrimSpace(s)
}

func userRegisterCmd() *cobra.Command {
	var form auth.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd)
			if form.Username == "" {
				form.Username = p.ask("Username: ")
			}
			if form.Password == "" {
				form.Password = p.ask("Password: ")
			}
			if form.Confirm == "" {
				form.Confirm = p.ask("Confirm password: ")
			}

			ctx := cmd.Context()
			return withBackend(ctx, func(cfg *config.Config, b *backend) error {
				c, err := auth.Register(ctx, store.NewCredentialRepository(b), form)
				if errors.Is(err, auth.ErrUserExists) {
					return fmt.Errorf("username %q is already taken", form.Username)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Account %s created.\n", c.Username)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&form.Username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&form.Password, "password", "p", "", "password")
	cmd.Flags().StringVar(&form.Confirm, "confirm", "", "password confirmation")
	return cmd
}

type loginForm struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

func userLoginCmd() *cobra.Command {
	var form loginForm
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Check a username and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd)
			if form.Username == "" {
				form.Username = p.ask("Username: ")
			}
			if form.Password == "" {
				form.Password = p.ask("Password: ")
			}
			if err := formValidator.Struct(form); err != nil {
				return errors.New("username and password are required")
			}

			ctx := cmd.Context()
			return withBackend(ctx, func(cfg *config.Config, b *backend) error {
				c, err := auth.Authenticate(ctx, store.NewCredentialRepository(b), form.Username, form.Password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s.\n", c.Username)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&form.Username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&form.Password, "password", "p", "", "password")
	return cmd
}

func userRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove USERNAME",
		Short: "Remove an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withBackend(ctx, func(cfg *config.Config, b *backend) error {
				removed, err := store.NewCredentialRepository(b).RemoveByUsername(ctx, args[0])
				if err != nil {
					return err
				}
				if !removed {
					fmt.Fprintf(cmd.OutOrStdout(), "No account named %s.\n", args[0])
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Account %s removed.\n", args[0])
				return nil
			})
		},
	}
}

func userListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List account names",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withBackend(ctx, func(cfg *config.Config, b *backend) error {
				users, err := store.NewCredentialRepository(b).List(ctx)
				if err != nil {
					return err
				}
				if len(users) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No accounts.")
				}
				for _, u := range users {
					fmt.Fprintln(cmd.OutOrStdout(), u.Username)
				}
				return nil
			})
		},
	}
}
