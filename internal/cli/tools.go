package toolflow

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mwiater/toolflow/internal/protocol"
)

var toolsFormat string

// toolsCmd groups registry inspection commands.
var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect registered tools",
}

// toolsListCmd prints every registered tool descriptor.
var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered tools and their contracts",
	Long:  `List every registered tool in registration order. The table view shows identity and tags; the json and yaml views include the full input and output JSON Schemas.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(GetConfig(), nil)
		if err != nil {
			return err
		}
		defer a.Close()
		return runToolsList(cmd.OutOrStdout(), a.dispatcher.Tools(), toolsFormat)
	},
}

func init() {
	toolsListCmd.Flags().StringVarP(&toolsFormat, "format", "f", formatTable, "output format: table, json or yaml")
	toolsCmd.AddCommand(toolsListCmd)
	rootCmd.AddCommand(toolsCmd)
}

func runToolsList(out io.Writer, descs []protocol.ToolDescriptor, format string) error {
	if !strings.EqualFold(format, formatTable) {
		return writeStructured(out, format, map[string]any{"tools": descs})
	}

	rows := make([][]string, 0, len(descs))
	for _, d := range descs {
		rows = append(rows, []string{d.ToolID, d.Version, d.Name, strings.Join(d.Tags, ", ")})
	}
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%d tools registered", len(descs))))
	fmt.Fprintln(out, renderTable([]string{"TOOL ID", "VERSION", "NAME", "TAGS"}, rows))
	return nil
}
