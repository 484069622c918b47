package toolflow

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mwiater/toolflow/internal/mcpserver"
)

// mcpCmd serves the registry to an MCP host over stdio.
var mcpCmd = &cobra.Command{
	Use:         "mcp",
	Short:       "Serve the tool registry over MCP stdio",
	Long:        `Speak JSON-RPC 2.0 with Content-Length framing on stdin/stdout. Logs go to stderr and the log file so stdout carries protocol frames only.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{stdioAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(GetConfig(), os.Stderr)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return mcpserver.New(a.dispatcher, "toolflow-mcp", Version).Serve(ctx, os.Stdin, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
