package toolflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mwiater/toolflow/internal/dispatcher"
	"github.com/mwiater/toolflow/internal/protocol"
)

var (
	invokeInput     string
	invokeRequestID string
)

// errInvocationFailed makes the process exit non-zero after an error envelope
// has already been printed.
var errInvocationFailed = errors.New("invocation returned an error envelope")

// invokeCmd dispatches one tool call locally and prints the result envelope.
var invokeCmd = &cobra.Command{
	Use:   "invoke <toolId>",
	Short: "Invoke a tool locally and print the result envelope",
	Long:  `Build a CallToolRequest from the tool id and --input JSON, run it through the same dispatcher the HTTP and MCP transports use, and print the result envelope.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(GetConfig(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.Close()
		return runInvoke(cmd.Context(), cmd.OutOrStdout(), a.dispatcher, args[0], invokeInput, invokeRequestID)
	},
}

func init() {
	invokeCmd.Flags().StringVarP(&invokeInput, "input", "i", "{}", "tool input as a JSON object")
	invokeCmd.Flags().StringVar(&invokeRequestID, "request-id", "", "request id to correlate the call (generated when empty)")
	rootCmd.AddCommand(invokeCmd)
}

func runInvoke(ctx context.Context, out io.Writer, d *dispatcher.Dispatcher, toolID, rawInput, requestID string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var input any
	if err := json.Unmarshal([]byte(rawInput), &input); err != nil {
		return fmt.Errorf("--input is not valid JSON: %w", err)
	}

	envelope := map[string]any{"toolId": toolID, "input": input}
	if requestID != "" {
		envelope["requestId"] = requestID
	}
	res := d.InvokeValue(ctx, envelope)

	if err := writeStructured(out, formatJSON, res); err != nil {
		return err
	}
	printStatus(out, res)
	if res.IsError() {
		return errInvocationFailed
	}
	return nil
}

func printStatus(out io.Writer, res protocol.CallToolResult) {
	if res.IsError() {
		fmt.Fprintf(out, "%s %s: %s\n", failedResult("✗"), res.Error.Code, res.Error.Message)
		return
	}
	var ms int64
	if res.Metadata.DurationMs != nil {
		ms = *res.Metadata.DurationMs
	}
	fmt.Fprintf(out, "%s %s completed in %dms\n", successfulResult("✓"), res.ToolID, ms)
}
