// internal/cli/serve.go
package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/mwiater/adjudicator/internal/logging"
	"github.com/mwiater/adjudicator/internal/metrics"
	"github.com/mwiater/adjudicator/internal/server"
)

// serveCmd starts the HTTP server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web API and progress stream",
	Long:  `Start the HTTP server: debates are submitted with POST /analyze and their progress streamed from GET /analyze/stream.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func init() {
	serveCmd.Flags().String("listen", "", "listen address (default :8000)")
	_ = viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	cfg := getConfig()
	a, err := newApp(ctx, cfg, appNeeds{pipeline: true, ledger: true})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.close(); cerr != nil {
			logging.LogError("close: %v", cerr)
		}
	}()

	cr := cfg.CreditSettings()
	srv := server.New(server.Options{
		Store:       a.store,
		Ledger:      a.ledger,
		Runner:      a.runner,
		Metrics:     metrics.GetInstance(),
		Provider:    cfg.ProviderName(),
		CreditLimit: cr.Limit,
		CreditCost:  cr.Cost,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(ctx, cfg.ListenAddr())
	})
	g.Go(func() error {
		return a.prompts.Watch(ctx, func() {
			logging.LogEvent("prompt overrides reloaded from %s", cfg.PromptsDir)
		})
	})

	successLine.Fprintf(stdout, "adjudicator listening on %s (provider %s)\n", cfg.ListenAddr(), cfg.ProviderName())
	return g.Wait()
}
