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

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/TimurManjosov/abconsole/internal/cli"
	"github.com/TimurManjosov/abconsole/internal/config"
	"github.com/TimurManjosov/abconsole/internal/mockapi"
	"github.com/TimurManjosov/abconsole/internal/store"
)

var (
	mockAddr  string
	mockToken string
	mockRaw   bool
)

var mockServerCmd = &cobra.Command{
	Use:   "mock-server",
	Short: "Run an in-memory experiments backend",
	Long: `Run an in-memory implementation of the experiments API under /api for
local development. Data is lost on exit. MOCK_SALT fixes variant assignment
across restarts.

Examples:
  abconsole mock-server
  abconsole mock-server --addr :3000 --token dev-token`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		log := cli.NewJSONLogger(os.Stderr, cfg.Level())
		if cfg.MockSaltGenerated() {
			log.Warn().Msg("MOCK_SALT not set, assignments change on restart")
		}

		memStore := store.NewMemoryStore()
		defer memStore.Close()
		backend := mockapi.NewServer(memStore, mockapi.Options{
			Token:        mockToken,
			Salt:         cfg.MockSalt,
			RawResponses: mockRaw,
			Logger:       log,
		})

		r := chi.NewRouter()
		r.Mount("/api", backend.Router())

		srv := &http.Server{
			Addr:              mockAddr,
			Handler:           r,
			ReadHeaderTimeout: 3 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("addr", mockAddr).Bool("auth", mockToken != "").Msg("mock backend listening")
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		ctxShut, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctxShut)
		log.Info().Msg("stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mockServerCmd)

	mockServerCmd.Flags().StringVar(&mockAddr, "addr", ":3000", "Listen address")
	mockServerCmd.Flags().StringVar(&mockToken, "token", "", "Require this bearer token")
	mockServerCmd.Flags().BoolVar(&mockRaw, "raw", false, "Send single records without the data envelope")
}
