package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/warp/stock-ledger/api"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Manage demo datasets",
	Long: `Demo datasets populate the backend with documents in the shapes the
production store holds. Loading one deletes every existing document first.`,
}

var scenarioListCmd = &cobra.Command{
	Use:   "list",
	Short: "List demo datasets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCATEGORY\tDESCRIPTION")
		for _, s := range api.Scenarios() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, s.Category, s.Description)
		}
		return w.Flush()
	},
}

var scenarioLoadCmd = &cobra.Command{
	Use:   "load SCENARIO_ID",
	Short: "Reset the backend and load a demo dataset",
	Args:  cobra.ExactArgs(1),
	RunE:  runScenarioLoad,
}

func init() {
	rootCmd.AddCommand(scenarioCmd)
	scenarioCmd.AddCommand(scenarioListCmd)
	scenarioCmd.AddCommand(scenarioLoadCmd)
}

func runScenarioLoad(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.DBPath == "" {
		a.log.WithField("module", "main").Warn("in-memory backend: the dataset is discarded on exit")
	}

	sc, err := api.SeedScenario(cmd.Context(), a.docs, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Loaded %s: %s\n", sc.ID, sc.Description)
	return nil
}
