package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"finitefield.org/gift-registry/internal/catalog"
	"finitefield.org/gift-registry/internal/config"
	"finitefield.org/gift-registry/internal/format"
)

var catalogJSONOutput bool

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Fetch the configured catalog and print its items",
	Args:  cobra.NoArgs,
	RunE:  runCatalog,
}

func init() {
	catalogCmd.Flags().BoolVar(&catalogJSONOutput, "json", false, "print items as JSON")
}

func runCatalog(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.WithEnvFile(envFile))
	if err != nil {
		return err
	}

	loader := catalog.NewLoader(catalogSource(cfg.Catalog, &http.Client{}), catalog.NewCatalog())
	items, err := loader.Fetch(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetch catalog: %w", err)
	}
	return printCatalog(cmd.OutOrStdout(), items, cfg.Contribution.Currency, catalogJSONOutput)
}

func printCatalog(out io.Writer, items []catalog.Item, currency string, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"items": items,
			"total": len(items),
		})
	}

	if len(items) == 0 {
		fmt.Fprintln(out, "No items found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTARGET\tCONTRIBUTED\tREMAINING\tFUNDED")
	for _, item := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d%%\n",
			item.ID,
			item.Name,
			format.Amount(item.TargetAmount, currency, "en"),
			format.Amount(item.ContributedAmount, currency, "en"),
			format.Amount(item.RemainingAmount(), currency, "en"),
			format.Percent(item.FundedPercentage()),
		)
	}
	return w.Flush()
}
