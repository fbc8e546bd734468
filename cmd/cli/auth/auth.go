package auth

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/andeen171/onfly-api/cmd/cli/client"
	"github.com/andeen171/onfly-api/cmd/cli/config"
	"github.com/andeen171/onfly-api/cmd/cli/output"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type tokenResponse struct {
	Token string `json:"token"`
}

type user struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// InitAuth registers register, login, logout and whoami on the root command.
func InitAuth(rootCmd *cobra.Command) {
	rootCmd.AddCommand(registerCmd(), loginCmd(), logoutCmd(), whoamiCmd())
}

func registerCmd() *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" || email == "" {
				return errors.New("--name and --email are required")
			}
			confirmation := password
			if password == "" {
				prompt := newPasswordPrompt(cmd)
				var err error
				if password, err = prompt("Password: "); err != nil {
					return err
				}
				if confirmation, err = prompt("Confirm password: "); err != nil {
					return err
				}
			}

			var resp tokenResponse
			err := client.New("").Do(cmd.Context(), http.MethodPost, "/register", map[string]string{
				"name":                  name,
				"email":                 email,
				"password":              password,
				"password_confirmation": confirmation,
			}, &resp)
			if err != nil {
				return fmt.Errorf("register: %w", err)
			}
			if err := saveToken(resp.Token); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Registered and logged in.")
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	return cmd
}

func loginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the token locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			if password == "" {
				var err error
				if password, err = newPasswordPrompt(cmd)("Password: "); err != nil {
					return err
				}
			}

			var resp tokenResponse
			err := client.New("").Do(cmd.Context(), http.MethodPost, "/login",
				map[string]string{"email": email, "password": password}, &resp)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			if err := saveToken(resp.Token); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Login successful. Token stored locally.")
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the stored token and remove it",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if errors.Is(err, config.ErrNotLoggedIn) {
				fmt.Fprintln(cmd.OutOrStdout(), "No user logged in.")
				return nil
			}
			if err != nil {
				return err
			}

			// an already revoked token still gets removed locally
			var apiErr *client.APIError
			if err := c.Do(cmd.Context(), http.MethodPost, "/logout", nil, nil); err != nil &&
				!(errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized) {
				return fmt.Errorf("logout: %w", err)
			}
			if _, err := config.RemoveToken(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}

			var resp struct {
				User user `json:"user"`
			}
			if err := c.Do(cmd.Context(), http.MethodGet, "/user", nil, &resp); err != nil {
				return err
			}

			if asJSON {
				return output.RenderJSON(cmd.OutOrStdout(), resp.User)
			}
			output.RenderTable(cmd.OutOrStdout(),
				[]string{"ID", "Name", "Email", "Created"},
				[][]interface{}{{resp.User.ID, resp.User.Name, resp.User.Email, resp.User.CreatedAt}},
			)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

func saveToken(token string) error {
	if token == "" {
		return errors.New("no token returned by the API")
	}
	if err := config.SaveToken(token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// newPasswordPrompt reads without echo from a terminal and falls back to plain
// lines for pipes and tests.
func newPasswordPrompt(cmd *cobra.Command) func(prompt string) (string, error) {
	in := cmd.InOrStdin()
	out := cmd.OutOrStdout()
	var lines *bufio.Reader

	return func(prompt string) (string, error) {
		fmt.Fprint(out, prompt)

		if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			b, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(out)
			if err != nil {
				return "", err
			}
			return string(b), nil
		}

		if lines == nil {
			lines = bufio.NewReader(in)
		}
		line, err := lines.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
}
