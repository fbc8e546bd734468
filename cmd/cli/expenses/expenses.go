package expenses

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/andeen171/onfly-api/cmd/cli/client"
	"github.com/andeen171/onfly-api/cmd/cli/output"
	"github.com/spf13/cobra"
)

type expense struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Value       string `json:"value"`
	UserID      int    `json:"user_id"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type expensePage struct {
	Data []expense `json:"data"`
	Meta struct {
		CurrentPage int `json:"current_page"`
		LastPage    int `json:"last_page"`
		PerPage     int `json:"per_page"`
		Total       int `json:"total"`
	} `json:"meta"`
}

var headers = []string{"ID", "Description", "Date", "Value", "Created"}

func InitExpenses(rootCmd *cobra.Command) {
	expensesCmd := &cobra.Command{
		Use:   "expenses",
		Short: "Manage your expenses",
	}

	expensesCmd.AddCommand(
		listCmd(),
		showCmd(),
		createCmd(),
		updateCmd(),
		deleteCmd(),
	)

	rootCmd.AddCommand(expensesCmd)
}

func listCmd() *cobra.Command {
	var page, limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}

			q := url.Values{}
			q.Set("page", strconv.Itoa(page))
			q.Set("limit", strconv.Itoa(limit))

			var resp expensePage
			if err := c.Do(cmd.Context(), http.MethodGet, "/expenses?"+q.Encode(), nil, &resp); err != nil {
				return err
			}

			if asJSON {
				return output.RenderJSON(cmd.OutOrStdout(), resp)
			}

			rows := make([][]interface{}, 0, len(resp.Data))
			for _, e := range resp.Data {
				rows = append(rows, row(e))
			}
			output.RenderTable(cmd.OutOrStdout(), headers, rows)
			fmt.Fprintf(cmd.OutOrStdout(), "Page %d of %d (%d total)\n",
				resp.Meta.CurrentPage, resp.Meta.LastPage, resp.Meta.Total)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 10, "expenses per page (max 100)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

func showCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show one expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}

			var resp struct {
				Data expense `json:"data"`
			}
			if err := c.Do(cmd.Context(), http.MethodGet, "/expenses/"+url.PathEscape(args[0]), nil, &resp); err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), resp.Data, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

// fieldFlags are shared by create and update.
type fieldFlags struct {
	description string
	date        string
	value       string
	asJSON      bool
}

func (f *fieldFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.description, "description", "", "what the expense was for (max 191 characters)")
	cmd.Flags().StringVar(&f.date, "date", "", "expense date, YYYY-MM-DD, not in the future")
	cmd.Flags().StringVar(&f.value, "value", "", "amount, e.g. 12.50")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "output JSON")
}

// payload leaves out unset flags so the API reports them as missing.
func (f *fieldFlags) payload() map[string]string {
	p := map[string]string{}
	if f.description != "" {
		p["description"] = f.description
	}
	if f.date != "" {
		p["date"] = f.date
	}
	if f.value != "" {
		p["value"] = f.value
	}
	return p
}

func createCmd() *cobra.Command {
	var f fieldFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record a new expense",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}

			var resp struct {
				Data expense `json:"data"`
			}
			if err := c.Do(cmd.Context(), http.MethodPost, "/expenses", f.payload(), &resp); err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), resp.Data, f.asJSON)
		},
	}

	f.register(cmd)
	return cmd
}

func updateCmd() *cobra.Command {
	var f fieldFlags

	cmd := &cobra.Command{
		Use:   "update [id]",
		Short: "Replace an expense's description, date and value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}

			var resp struct {
				Data expense `json:"data"`
			}
			if err := c.Do(cmd.Context(), http.MethodPut, "/expenses/"+url.PathEscape(args[0]), f.payload(), &resp); err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), resp.Data, f.asJSON)
		},
	}

	f.register(cmd)
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}

			err = c.Do(cmd.Context(), http.MethodDelete, "/expenses/"+url.PathEscape(args[0]), nil, nil)
			var apiErr *client.APIError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
				return fmt.Errorf("expense %s not found", args[0])
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Expense %s deleted\n", args[0])
			return nil
		},
	}
}

func row(e expense) []interface{} {
	return []interface{}{e.ID, e.Description, e.Date, e.Value, e.CreatedAt}
}

func render(w io.Writer, e expense, asJSON bool) error {
	if asJSON {
		return output.RenderJSON(w, e)
	}
	output.RenderTable(w, headers, [][]interface{}{row(e)})
	return nil
}
