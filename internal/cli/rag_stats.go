package toolflow

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mwiater/toolflow/internal/vectorstore"
)

var ragStatsFormat string

// ragStatsCmd summarizes the vector store.
var ragStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show document counts and dimensions per provider",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		a, err := newApp(cfg, nil)
		if err != nil {
			return err
		}
		defer a.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", labelText("Store:"), cfg.StorePath(), cfg.StoreBackend())
		return runRagStats(cmd.Context(), cmd.OutOrStdout(), a.store, ragStatsFormat)
	},
}

func init() {
	ragStatsCmd.Flags().StringVarP(&ragStatsFormat, "format", "f", formatTable, "output format: table, json or yaml")
	ragCmd.AddCommand(ragStatsCmd)
}

func runRagStats(ctx context.Context, out io.Writer, store *vectorstore.Store, format string) error {
	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	if !strings.EqualFold(format, formatTable) {
		return writeStructured(out, format, stats)
	}

	rows := make([][]string, 0, len(stats.Providers))
	for _, ps := range stats.Providers {
		rows = append(rows, []string{ps.Provider, fmt.Sprint(ps.Documents), fmt.Sprint(ps.Sources), fmt.Sprint(ps.Dimension)})
	}
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%d chunks from %d sources", stats.Documents, stats.Sources)))
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable([]string{"PROVIDER", "CHUNKS", "SOURCES", "DIMENSION"}, rows))
	}
	return nil
}
