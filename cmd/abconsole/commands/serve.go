package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/TimurManjosov/abconsole/internal/cli"
	"github.com/TimurManjosov/abconsole/internal/client"
	"github.com/TimurManjosov/abconsole/internal/config"
	"github.com/TimurManjosov/abconsole/internal/session"
	"github.com/TimurManjosov/abconsole/internal/telemetry"
	"github.com/TimurManjosov/abconsole/internal/web"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the experiments dashboard",
	Long: `Serve the web dashboard and a Prometheus metrics endpoint.

Settings come from the environment or a .env file: API_BASE_URL,
REQUEST_TIMEOUT, APP_HTTP_ADDR, METRICS_ADDR, LOG_LEVEL, TOKEN_FILE,
RATE_LIMIT_PER_IP and STREAM_INTERVAL. --base-url overrides API_BASE_URL.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		if baseURL != "" {
			cfg.APIBaseURL = baseURL
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		log := cli.NewJSONLogger(os.Stderr, cfg.Level())
		telemetry.Init()

		tokenFile := cfg.TokenFile
		if tokenFile == "" {
			if tokenFile, err = session.DefaultCredentialsPath(); err != nil {
				return err
			}
		}
		store := session.NewFileStore(tokenFile)
		sess, err := session.New(store)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := session.Watch(ctx, sess, store, log); err != nil {
			log.Warn().Err(err).Msg("credentials watch disabled")
		}

		api := client.NewClient(cfg.APIBaseURL, sess,
			client.WithTimeout(cfg.RequestTimeout),
			client.WithLogger(log),
		)
		dash, err := web.NewServer(api, web.Options{
			Logger:         log,
			RateLimitPerIP: cfg.RateLimitPerIP,
			StreamInterval: cfg.StreamInterval,
		})
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      dash.Router(),
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 0, // metrics stream stays open
			IdleTimeout:  60 * time.Second,
		}
		metricsSrv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           telemetry.Handler(),
			ReadHeaderTimeout: 3 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, s := range []*http.Server{srv, metricsSrv} {
			s := s
			g.Go(func() error {
				log.Info().Str("addr", s.Addr).Msg("listening")
				if err := s.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server %s: %w", s.Addr, err)
				}
				return nil
			})
		}
		log.Info().Str("api", cfg.APIBaseURL).Str("env", cfg.AppEnv).Msg("dashboard started")

		// graceful shutdown
		g.Go(func() error {
			<-gctx.Done()
			ctxShut, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(ctxShut)
			_ = metricsSrv.Shutdown(ctxShut)
			log.Info().Msg("stopped")
			return nil
		})

		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
