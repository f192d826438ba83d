// honeypot-cli exercises a running gateway: send test messages, end
// engagements, and inspect the local report archive.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Amita-5/honeypot-scam-detector/internal/auth"
	"github.com/Amita-5/honeypot-scam-detector/internal/report"
)

var (
	flagGateway string
	flagAPIKey  string
	flagSession string
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "honeypot-cli",
		Short:         "Exercise and inspect the honeypot gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagGateway, "gateway", envOr("HONEYPOT_GATEWAY", "http://localhost:8080"), "gateway base URL")
	root.PersistentFlags().StringVar(&flagAPIKey, "api-key", os.Getenv("HONEYPOT_API_KEY"), "shared-secret API key")

	root.AddCommand(newSendCmd())
	root.AddCommand(newEndCmd())
	root.AddCommand(newReportsCmd())
	return root
}

func newSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send [text]",
		Short: "Send one counterpart message to the gateway",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID := flagSession
			if sessionID == "" {
				sessionID = uuid.NewString()
				fmt.Fprintln(cmd.OutOrStdout(), "session:", sessionID)
			}

			payload := map[string]any{
				"sessionId": sessionID,
				"message": map[string]any{
					"sender":    "counterpart",
					"text":      strings.Join(args, " "),
					"timestamp": time.Now().UnixMilli(),
				},
			}
			return postJSON(cmd.OutOrStdout(), flagGateway+"/v1/honeypot/message", payload)
		},
	}
	cmd.Flags().StringVar(&flagSession, "session", "", "session identifier (generated when empty)")
	return cmd
}

func newEndCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "end [session-id]",
		Short: "End an engagement and trigger finalization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return postJSON(cmd.OutOrStdout(), flagGateway+"/v1/honeypot/end", map[string]any{"sessionId": args[0]})
		},
	}
}

func newReportsCmd() *cobra.Command {
	var (
		archivePath string
		limit       int
	)
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List recent finalized reports from the local archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := report.NewArchive(archivePath)
			if err != nil {
				return err
			}
			defer archive.Close()

			rows, err := archive.Recent(limit)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no reports")
				return nil
			}
			for _, row := range rows {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  session=%s scam=%v type=%s turns=%d indicators=%s\n",
					row.CreatedAt.Format(time.RFC3339),
					row.Report.SessionID,
					row.Report.ScamDetected,
					row.Report.ScamType,
					row.Report.TotalTurns,
					strings.Join(row.Report.ScamIndicators, ","))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&archivePath, "archive", envOr("HONEYPOT_ARCHIVE_PATH", "honeypot.db"), "archive database path")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows to list")
	return cmd
}

func postJSON(out io.Writer, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if flagAPIKey != "" {
		req.Header.Set(auth.HeaderAPIKey, flagAPIKey)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, strings.TrimSpace(string(data)))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("gateway returned %d", res.StatusCode)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
