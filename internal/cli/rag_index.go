package toolflow

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mwiater/toolflow/internal/rag"
)

var (
	ragIncludes []string
	ragExcludes []string
)

// ragIndexCmd ingests every matching file under a corpus directory.
var ragIndexCmd = &cobra.Command{
	Use:   "index <dir>",
	Short: "Index a directory of plain-text files",
	Long:  `Walk the directory, select files with doublestar include/exclude globs (relative to the directory) and ingest each file under its own source id. Files without text are skipped.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		a, err := newApp(cfg, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer a.Close()

		include, exclude := ragIncludes, ragExcludes
		if len(include) == 0 {
			include = cfg.CorpusInclude
		}
		if len(exclude) == 0 {
			exclude = cfg.CorpusExclude
		}
		return runRagIndex(cmd.Context(), cmd.OutOrStdout(), a.pipeline, rag.CorpusRequest{
			Root:      args[0],
			Include:   include,
			Exclude:   exclude,
			ChunkSize: ragChunkSize,
			Overlap:   ragOverlap,
		})
	},
}

func init() {
	ragIndexCmd.Flags().StringSliceVar(&ragIncludes, "include", nil, "glob of files to index (repeatable, default **/*.{txt,md,markdown,text})")
	ragIndexCmd.Flags().StringSliceVar(&ragExcludes, "exclude", nil, "glob of files to skip (repeatable)")
	ragCmd.AddCommand(ragIndexCmd)
}

func runRagIndex(ctx context.Context, out io.Writer, p *rag.Pipeline, req rag.CorpusRequest) error {
	res, err := p.IndexCorpus(ctx, req)
	rows := make([][]string, 0, len(res.Files))
	for _, f := range res.Files {
		rows = append(rows, []string{f.Path, f.Result.ID, fmt.Sprint(f.Result.Chunks), fmt.Sprint(f.Result.Tokens), f.Result.Status})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable([]string{"FILE", "ID", "CHUNKS", "TOKENS", "STATUS"}, rows))
	}
	for _, skipped := range res.Skipped {
		fmt.Fprintf(out, "%s skipped %s\n", warningResult("!"), skipped)
	}
	if err != nil {
		fmt.Fprintf(out, "%s %v\n", failedResult("✗"), err)
		return err
	}
	fmt.Fprintf(out, "%s indexed %d files: %d chunks, %d tokens\n", successfulResult("✓"), len(res.Files), res.Chunks, res.Tokens)
	return nil
}
