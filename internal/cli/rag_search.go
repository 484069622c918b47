package toolflow

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mwiater/toolflow/internal/rag"
	"github.com/mwiater/toolflow/internal/textutil"
)

const answerWidth = 80

var (
	ragTopK      int
	ragRetrieval bool
)

// ragSearchCmd answers a question from the vector store.
var ragSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Answer a question from the stored documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(GetConfig(), nil)
		if err != nil {
			return err
		}
		defer a.Close()
		return runRagSearch(cmd.Context(), cmd.OutOrStdout(), a.pipeline, strings.Join(args, " "), "", ragTopK, ragRetrieval)
	},
}

func init() {
	ragSearchCmd.Flags().IntVarP(&ragTopK, "top-k", "k", 0, "documents to retrieve (default from config)")
	ragSearchCmd.Flags().BoolVar(&ragRetrieval, "retrieve-only", false, "print the retrieved documents without calling chat")
	ragCmd.AddCommand(ragSearchCmd)
}

func runRagSearch(ctx context.Context, out io.Writer, p *rag.Pipeline, query, provider string, k int, retrieveOnly bool) error {
	var (
		docs   []rag.RetrievedDoc
		answer string
	)
	if retrieveOnly {
		retrieved, err := p.Retrieve(ctx, query, provider, k)
		if err != nil {
			return err
		}
		docs = retrieved
	} else {
		res, err := p.Search(ctx, query, provider, k)
		if err != nil {
			return err
		}
		docs, answer = res.Docs, res.Answer
		fmt.Fprintf(out, "%s %s\n\n", labelText("Answer:"), textutil.Wrap(answer, answerWidth))
	}

	if len(docs) == 0 {
		fmt.Fprintln(out, warningResult("no documents retrieved"))
		return nil
	}
	rows := make([][]string, 0, len(docs))
	for i, d := range docs {
		rows = append(rows, []string{fmt.Sprint(i + 1), fmt.Sprintf("%.4f", d.Score), d.ID, textutil.Truncate(textutil.Squash(d.Text), 60)})
	}
	fmt.Fprintln(out, renderTable([]string{"#", "SCORE", "ID", "TEXT"}, rows))
	return nil
}
