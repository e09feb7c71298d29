package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/botgate/ledger"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Show recent ledger entries",
	Long: `Ledger prints the newest fills from a SQLite ledger, newest first.

Example:
  botgate ledger --db ./fills.db --limit 20`,
	RunE: runLedger,
}

var (
	ledgerDBPath string
	ledgerLimit  int
)

func init() {
	rootCmd.AddCommand(ledgerCmd)

	ledgerCmd.Flags().StringVar(&ledgerDBPath, "db", "./fills.db", "path to the SQLite ledger")
	ledgerCmd.Flags().IntVar(&ledgerLimit, "limit", 20, "number of entries to show")
}

func runLedger(cmd *cobra.Command, args []string) error {
	led, err := ledger.NewSQLite(ledgerDBPath)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer led.Close()

	entries, err := led.Recent(ledgerLimit)
	if err != nil {
		return fmt.Errorf("query ledger: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No entries.")
		return nil
	}

	fmt.Printf("%-27s %-10s %-10s %-10s %-5s %-8s %12s %12s %10s\n",
		"TIME", "BOT", "EXCHANGE", "PAIR", "SIDE", "STATUS", "FILL", "NOTIONAL", "NET_PNL")
	for _, e := range entries {
		fmt.Printf("%-27s %-10s %-10s %-10s %-5s %-8s %12.4f %12.2f %10.4f\n",
			e.Time.Format(time.RFC3339), e.BotID, e.Exchange, e.Pair,
			e.Side, e.Status, e.FillPrice, e.Notional, e.NetPnL)
	}
	return nil
}
