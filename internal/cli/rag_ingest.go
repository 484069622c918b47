package toolflow

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mwiater/toolflow/internal/rag"
)

// ragIngestCmd chunks, embeds and stores one local file.
var ragIngestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Ingest a local .txt or .md file into the vector store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(GetConfig(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer a.Close()
		return runRagIngest(cmd.Context(), cmd.OutOrStdout(), a.pipeline, args[0], rag.IngestRequest{
			ChunkSize: ragChunkSize,
			Overlap:   ragOverlap,
		})
	},
}

func init() {
	ragCmd.AddCommand(ragIngestCmd)
}

func runRagIngest(ctx context.Context, out io.Writer, p *rag.Pipeline, path string, req rag.IngestRequest) error {
	res, err := p.IngestFile(ctx, path, req)
	if rag.IsPartial(res, err) {
		fmt.Fprintf(out, "%s %s: stored %d chunks before failing (id=%s)\n", warningResult("!"), path, res.Chunks, res.ID)
		return err
	}
	if err != nil {
		fmt.Fprintf(out, "%s %s: %v\n", failedResult("✗"), path, err)
		return err
	}
	fmt.Fprintf(out, "%s %s %s id=%s chunks=%d tokens=%d\n", successfulResult("✓"), labelText(res.Status), path, res.ID, res.Chunks, res.Tokens)
	return nil
}
