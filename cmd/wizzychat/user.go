package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/wizzychat/internal/app"
	"github.com/vovakirdan/wizzychat/internal/auth"
	"github.com/vovakirdan/wizzychat/internal/backend"
	"github.com/vovakirdan/wizzychat/internal/config"
)

func newUserCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts on a storage backend",
	}
	cmd.AddCommand(newUserAddCommand(opts), newUserOnlineCommand(opts))
	return cmd
}

func newUserAddCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <username>",
		Short: "Register an account; the password is read from the terminal or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(opts, config.Config{})
			if err != nil {
				return err
			}

			password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			backends, err := backend.Open(cmd.Context(), *cfg, logger)
			if err != nil {
				return err
			}
			defer backends.Close()

			hasher, err := auth.NewHasher(cfg.Password.Algorithm, cfg.Password.BcryptCost)
			if err != nil {
				return err
			}
			svc := auth.NewService(backends, hasher, app.JWTConfig(cfg))

			user, err := svc.Register(cmd.Context(), opts.backend, args[0], password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s on %s\n", user.Username, backends.Default())
			return nil
		},
	}
}

func newUserOnlineCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "online",
		Short: "List users currently marked online",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(opts, config.Config{})
			if err != nil {
				return err
			}

			backends, err := backend.Open(cmd.Context(), *cfg, logger)
			if err != nil {
				return err
			}
			defer backends.Close()

			b, err := backends.Get(opts.backend)
			if err != nil {
				return err
			}
			users, err := b.Presence.ListOnline(cmd.Context(), "")
			if err != nil {
				return err
			}
			for _, u := range users {
				fmt.Fprintln(cmd.OutOrStdout(), u)
			}
			return nil
		},
	}
}

// readPassword prompts without echo on a terminal, otherwise reads the first line of in.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
