package toolflow

import "github.com/spf13/cobra"

var (
	ragChunkSize int
	ragOverlap   int
)

// ragCmd groups RAG-related CLI commands. They embed and answer with the
// default provider, which --provider overrides.
var ragCmd = &cobra.Command{
	Use:   "rag",
	Short: "RAG utilities",
}

func init() {
	ragCmd.PersistentFlags().IntVar(&ragChunkSize, "chunk-size", 0, "words per chunk (default from config)")
	ragCmd.PersistentFlags().IntVar(&ragOverlap, "overlap", -1, "words shared by consecutive chunks (default from config)")
	rootCmd.AddCommand(ragCmd)
}
