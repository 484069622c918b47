package appconfig

import (
	"fmt"
	"io"
)

// ShowConfig prints the current configuration summary.
func ShowConfig(out io.Writer, file string, cfg Config) {
	if file == "" {
		fmt.Fprintln(out, "No config file loaded (using defaults).")
	} else {
		fmt.Fprintf(out, "Config file: %s\n\n", file)
	}

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintf(out, "  Debug:              %v\n", cfg.Debug)
	fmt.Fprintf(out, "  Metrics:            %v\n", cfg.Metrics)
	fmt.Fprintf(out, "  Listen:             %s\n", cfg.ListenAddr())
	fmt.Fprintf(out, "  Log File:           %s\n", cfg.LogFilePath())
	fmt.Fprintf(out, "  Request Timeout:    %s\n", cfg.RequestTimeout())
	fmt.Fprintf(out, "  Store Backend:      %s\n", cfg.StoreBackend())
	fmt.Fprintf(out, "  Store Path:         %s\n", cfg.StorePath())
	fmt.Fprintf(out, "  Default Provider:   %s\n", cfg.DefaultProviderName())
	fmt.Fprintf(out, "  Chunk Size:         %d words\n", cfg.ChunkSize())
	fmt.Fprintf(out, "  Chunk Overlap:      %d words\n", cfg.ChunkOverlap())
	fmt.Fprintf(out, "  Top K:              %d\n", cfg.TopK())
	fmt.Fprintf(out, "  Context Char Limit: %d\n", cfg.ContextCharLimit())
	fmt.Fprintf(out, "  Embed Cache Size:   %d\n", cfg.EmbedCacheSize())
	for _, p := range cfg.Providers {
		fmt.Fprintf(out, "  Provider %-10s type=%s url=%s chat=%s embed=%s dim=%d\n",
			p.Name+":", p.Type, p.URL, p.ChatModel, p.EmbedModel, p.Dimension)
	}
}
