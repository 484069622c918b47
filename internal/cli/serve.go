package toolflow

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mwiater/toolflow/internal/logging"
	"github.com/mwiater/toolflow/internal/server"
)

var serveListen string

// serveCmd runs the HTTP transport until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tool protocol over HTTP",
	Long:  `Serve GET /tfp/tools, POST /tfp/invoke and GET /healthz, plus GET /metrics when metrics are enabled. SIGINT or SIGTERM drains in-flight requests and exits.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		a, err := newApp(cfg, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		addr := cfg.ListenAddr()
		if serveListen != "" {
			addr = serveListen
		}
		opts := server.Options{Addr: addr, BodyLimit: cfg.BodyLimit()}
		if a.metrics != nil {
			opts.Metrics = a.metrics.Handler()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		logging.LogEvent("[HTTP] %d tools registered, default provider %s", len(a.dispatcher.Tools()), a.providers.Default())
		return server.New(a.dispatcher, opts).Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

