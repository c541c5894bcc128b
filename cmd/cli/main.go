package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var bcryptGenerate = bcrypt.GenerateFromPassword

// options are shared by every command that talks to the API.
type options struct {
	baseURL string
	token   string
	timeout time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "finledger-cli",
		Short:         "FinLedger CLI tool",
		Long:          `A command line interface for interacting with the FinLedger API.`,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "Base URL of the FinLedger API")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("FINLEDGER_TOKEN"), "Bearer token (defaults to $FINLEDGER_TOKEN)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(
		ledgerCmd(opts),
		balanceCmd(opts),
		statementCmd(opts),
		loginCmd(opts),
		hashPasswordCmd(),
	)

	return rootCmd
}

func ledgerCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "consistency",
		Short: "Check ledger consistency",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var report struct {
				Consistent       bool            `json:"consistent"`
				NetBalance       json.RawMessage `json:"net_balance"`
				NegativeBalances []any           `json:"negative_balances"`
			}
			if err := opts.get("/api/v1/ledger/consistency", &report); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !report.Consistent {
				fmt.Fprintf(out, "Consistency check FAILED\n")
				fmt.Fprintf(out, "Negative balances: %d\n", len(report.NegativeBalances))
				return fmt.Errorf("ledger is inconsistent")
			}

			fmt.Fprintf(out, "Consistency check PASSED\n")
			fmt.Fprintf(out, "Net balance: %s\n", report.NetBalance)
			return nil
		},
	})

	return cmd
}

func balanceCmd(opts *options) *cobra.Command {
	var withStatement bool

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the caller's balance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := "/api/v1/statements/balance"
			if withStatement {
				path += "?with_statement=true"
			}

			var result any
			if err := opts.get(path, &result); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().BoolVar(&withStatement, "with-statement", false, "Include the statement history")
	return cmd
}

func statementCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "statement",
		Short: "Statement operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <statement-id>",
		Short: "Show one of the caller's statements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result any
			if err := opts.get("/api/v1/statements/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	})

	return cmd
}

func loginCmd(opts *options) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Create a session and print its token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var session struct {
				Token string `json:"token"`
			}
			body := map[string]string{"email": email, "password": password}
			if err := opts.do(http.MethodPost, "/api/v1/sessions", body, &session); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), session.Token)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print the bcrypt hash of a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := bcryptGenerate([]byte(args[0]), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}
}

func (o *options) get(path string, out any) error {
	return o.do(http.MethodGet, path, nil, out)
}

func (o *options) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, o.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("error building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if o.token != "" {
		req.Header.Set("Authorization", "Bearer "+o.token)
	}

	client := &http.Client{Timeout: o.timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, truncate(string(data), 200))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
