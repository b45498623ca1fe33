package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go-savings/ledger"
	"go-savings/models"

	"github.com/spf13/cobra"
)

func projectCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "project <file>",
		Short: "Project a balance snapshot from a JSON transaction export",
		Long: `Reads a JSON array of transactions and prints the projected balance.
Use "-" to read from stdin. An unreadable export projects as an empty ledger.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return setupLogging()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open export: %w", err)
				}
				defer f.Close()
				r = f
			}

			transactions := readExport(r)
			if userID != "" {
				transactions = filterUser(transactions, userID)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(ledger.UserBalance(userID, transactions))
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "only project transactions belonging to this user")
	return cmd
}

// readExport decodes a transaction export. Corrupt input yields an empty ledger.
func readExport(r io.Reader) []models.Transaction {
	var transactions []models.Transaction
	if err := json.NewDecoder(r).Decode(&transactions); err != nil {
		slog.Warn("Failed to parse transaction export, projecting empty ledger", "error", err)
		return nil
	}
	return transactions
}

func filterUser(transactions []models.Transaction, userID string) []models.Transaction {
	var out []models.Transaction
	for _, tx := range transactions {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out
}
