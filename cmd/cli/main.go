package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	baseURL    string
	timeout    time.Duration
	authToken  string
	businessID string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "banksync-cli",
		Short: "BankSync CLI tool",
		Long:  `A command line interface for interacting with the BankSync API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the BankSync API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("BANKSYNC_TOKEN"), "Bearer token")
	rootCmd.PersistentFlags().StringVar(&businessID, "business", "", "Business ID")

	syncCmd := &cobra.Command{
		Use:   "sync <account-id>",
		Short: "Trigger a sync for an account",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			triggerSync(args[0])
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show connection status for all accounts of the business",
		Run: func(cmd *cobra.Command, args []string) {
			showStatus()
		},
	}

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Reconcile snapshot operations",
	}

	snapshotCreateCmd := &cobra.Command{
		Use:   "create <account-id> <month>",
		Short: "Create a reconcile snapshot for a month (YYYY-MM)",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			createSnapshot(args[0], args[1])
		},
	}

	snapshotGetCmd := &cobra.Command{
		Use:   "get <snapshot-id>",
		Short: "Show a reconcile snapshot",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			getSnapshot(args[0])
		},
	}

	snapshotCmd.AddCommand(snapshotCreateCmd)
	snapshotCmd.AddCommand(snapshotGetCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(snapshotCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func triggerSync(accountID string) {
	path := fmt.Sprintf("/api/v1/businesses/%s/accounts/%s/sync", businessID, accountID)
	body := doRequest(http.MethodPost, path, nil)

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Sync completed\n")
	fmt.Printf("New: %v, Duplicates: %v, Pending: %v, Pages: %v\n",
		result["new_count"], result["duplicate_count"], result["pending_count"], result["pages"])
	if capped, ok := result["capped"].(bool); ok && capped {
		fmt.Println("Sync was capped; run again to continue from the committed cursor")
	}
}

func showStatus() {
	path := fmt.Sprintf("/api/v1/businesses/%s/connections", businessID)
	body := doRequest(http.MethodGet, path, nil)

	var statuses []map[string]any
	if err := json.Unmarshal(body, &statuses); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}

	for _, s := range statuses {
		fmt.Printf("account=%v status=%v has_new=%v last_sync=%v\n",
			s["account_id"], s["status"], s["has_new_transactions"], s["last_sync_at"])
	}
}

func createSnapshot(accountID, month string) {
	payload, _ := json.Marshal(map[string]string{
		"account_id": accountID,
		"month":      month,
	})
	path := fmt.Sprintf("/api/v1/businesses/%s/snapshots", businessID)
	body := doRequest(http.MethodPost, path, payload)

	printSnapshot(body)
}

func getSnapshot(snapshotID string) {
	path := fmt.Sprintf("/api/v1/businesses/%s/snapshots/%s", businessID, snapshotID)
	body := doRequest(http.MethodGet, path, nil)

	printSnapshot(body)
}

func printSnapshot(body []byte) {
	var snap map[string]any
	if err := json.Unmarshal(body, &snap); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Snapshot %v (%v)\n", snap["id"], snap["month"])
	if counts, ok := snap["counts"].(map[string]any); ok {
		fmt.Printf("Bank: %v unmatched, %v partial, %v matched\n",
			counts["bank_unmatched"], counts["bank_partial"], counts["bank_matched"])
		fmt.Printf("Entries: %v expected, %v matched, %v reverts\n",
			counts["entries_expected"], counts["entries_matched"], counts["reverts"])
	}
	fmt.Printf("Remaining (abs cents): %v\n", snap["remaining_abs_cents"])
	for _, key := range []string{"bank_artifact", "matches_artifact", "audit_artifact"} {
		if art, ok := snap[key].(map[string]any); ok {
			fmt.Printf("%s sha256=%v\n", key, art["sha256"])
			if url, ok := art["url"].(string); ok && url != "" {
				fmt.Printf("  %s\n", url)
			}
		}
	}
}

func doRequest(method, path string, payload []byte) []byte {
	if businessID == "" {
		fmt.Println("missing --business flag")
		os.Exit(1)
	}

	client := &http.Client{Timeout: timeout}
	req, err := http.NewRequest(method, baseURL+path, bytes.NewReader(payload))
	if err != nil {
		fmt.Printf("Error building request: %v\n", err)
		os.Exit(1)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// Mutating calls carry a fresh idempotency key so a network-level
	// retry by the transport cannot double the work server-side.
	if method == http.MethodPost || method == http.MethodPatch {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		fmt.Printf("Request failed (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	return body
}
