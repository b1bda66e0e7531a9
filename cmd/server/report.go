package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/warp/stock-ledger/api"
	"github.com/warp/stock-ledger/inventory"
	"github.com/warp/stock-ledger/ledger"
	"github.com/warp/stock-ledger/store"
)

// ─── stock ──────────────────────────────────────────────────────────────────

var stockCmd = &cobra.Command{
	Use:   "stock",
	Short: "Print computed stock as JSON",
	Long: `Replays every movement against each batch's opening stock and prints
the stock report. With --product and --batch, prints one batch together with
its dated movement ledger.`,
	Args: cobra.NoArgs,
	RunE: runStock,
}

// ─── balance ────────────────────────────────────────────────────────────────

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print receivable/payable balances as JSON",
	Long: `Prints the balance of every person. With --person, prints one person
with their ledger; adding --bill also prints the balance as it stood before
that sale or purchase.`,
	Args: cobra.NoArgs,
	RunE: runBalance,
}

func init() {
	rootCmd.AddCommand(stockCmd)
	rootCmd.AddCommand(balanceCmd)

	stockCmd.Flags().String("product", "", "Product id")
	stockCmd.Flags().String("batch", "", "Batch code (requires --product)")
	balanceCmd.Flags().String("person", "", "Person id")
	balanceCmd.Flags().String("bill", "", "Sale or purchase id (requires --person)")
}

func runStock(cmd *cobra.Command, args []string) error {
	product, _ := cmd.Flags().GetString("product")
	batch, _ := cmd.Flags().GetString("batch")
	if (product == "") != (batch == "") {
		return fmt.Errorf("--product and --batch must be given together")
	}

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	snap, err := store.NewRepository(a.docs, a.log).LoadSnapshot(cmd.Context())
	if err != nil {
		return err
	}

	if product == "" {
		return printJSON(cmd, inventory.BuildStockReport(snap, time.Now().UTC()))
	}
	bs, err := inventory.BatchReport(snap, ledger.BatchKey{ProductID: ledger.ProductID(product), BatchCode: batch})
	if err != nil {
		return err
	}
	return printJSON(cmd, bs)
}

func runBalance(cmd *cobra.Command, args []string) error {
	person, _ := cmd.Flags().GetString("person")
	bill, _ := cmd.Flags().GetString("bill")
	if bill != "" && person == "" {
		return fmt.Errorf("--bill requires --person")
	}

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	snap, err := store.NewRepository(a.docs, a.log).LoadSnapshot(cmd.Context())
	if err != nil {
		return err
	}

	if person == "" {
		return printJSON(cmd, inventory.BuildBalanceReport(snap, time.Now().UTC()))
	}

	pb, err := inventory.PersonReport(snap, ledger.PersonID(person))
	if err != nil {
		return err
	}
	resp := api.PersonBalanceResponse{PersonBalance: pb}
	if bill != "" {
		prev, ok := resp.Result.BalanceBeforeBill(bill)
		if !ok {
			return fmt.Errorf("bill %s not found for person %s", bill, person)
		}
		resp.Bill = bill
		resp.PreviousBalance = &prev
	}
	return printJSON(cmd, resp)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
