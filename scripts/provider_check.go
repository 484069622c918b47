// Command provider_check probes every configured provider with one embedding
// and one chat call and reports latency and vector dimensions. It is meant
// for checking a deployment before ingesting a corpus.
//
//	go run ./scripts -config config/config.json -provider llama
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/mwiater/toolflow/internal/appconfig"
	"github.com/mwiater/toolflow/internal/providerfactory"
	"github.com/mwiater/toolflow/internal/providers"
)

func main() {
	configPath := flag.String("config", appconfig.DefaultConfigPath, "Path to config JSON")
	only := flag.String("provider", "", "Probe a single provider by name")
	prompt := flag.String("prompt", "Reply with the single word: ready", "Chat probe prompt")
	flag.Parse()

	cfg, err := appconfig.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	set, err := providerfactory.NewProviderSet(&cfg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "provider error: %v\n", err)
		os.Exit(1)
	}
	defer set.Close()

	names := set.Names()
	if *only != "" {
		names = []string{*only}
	}

	failed := false
	for _, name := range names {
		p, err := set.Get(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			failed = true
			continue
		}
		fmt.Printf("%s\n", color.New(color.Bold).Sprint(name))
		if err := probe(p, cfg.ExpectedDimension(name), *prompt, cfg.RequestTimeout()); err != nil {
			color.Red("  ✗ %v", err)
			failed = true
			continue
		}
		color.Green("  ✓ ok")
	}
	if failed {
		os.Exit(1)
	}
}

func probe(p providers.Provider, wantDim int, prompt string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	emb, err := p.Embed(ctx, "provider check")
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	fmt.Printf("  embed: dim=%d tokens=%d in %s\n", len(emb.Vector), emb.Tokens, time.Since(start).Round(time.Millisecond))
	if wantDim > 0 && len(emb.Vector) != wantDim {
		return fmt.Errorf("embed: configured dimension %d, provider returned %d", wantDim, len(emb.Vector))
	}

	start = time.Now()
	reply, err := p.Chat(ctx, providers.UserPrompt(prompt))
	if err != nil {
		if errors.Is(err, providers.ErrEmptyResponse) {
			return errors.New("chat: provider returned no content")
		}
		return fmt.Errorf("chat: %w", err)
	}
	fmt.Printf("  chat: %q in %s\n", reply, time.Since(start).Round(time.Millisecond))
	return nil
}
