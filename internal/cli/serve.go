package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/claimlens/internal/logging"
	"github.com/ppiankov/claimlens/internal/server"
)

var (
	serveAddr string
	noStore   bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API with the streaming analysis endpoint",
	Long: `Serve exposes the analysis pipeline over HTTP:

  POST /api/search-and-fetch-stream   server-sent events, one per pipeline step
  POST /api/analyze                   blocking analysis, JSON result
  GET  /api/analyses[/{id}[/report]]  saved analyses (when the store is enabled)
  GET  /api/analyses/latest?url=...   latest saved analysis for a page
  GET  /health, /api/status

Example:
  claimlens serve --addr :8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
	serveCmd.Flags().BoolVar(&noStore, "no-store", false, "do not persist analyses")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if noStore {
		cfg.Store.Enabled = false
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := []server.Option{
		server.WithLogger(logging.Component("server")),
		server.WithVersion(Version),
		server.WithFetcher(a.fetcher),
		server.WithSearcher(a.searcher),
	}
	if a.store != nil {
		opts = append(opts, server.WithAnalyses(a.store))
	}

	srv := server.New(a.orchestrator, cfg.Server, opts...)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
