package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/TimurManjosov/abconsole/internal/loader"
	"github.com/TimurManjosov/abconsole/internal/model"
	"github.com/TimurManjosov/abconsole/internal/telemetry"
)

// metricsEvent is the payload of one "metrics" server-sent event.
type metricsEvent struct {
	Loading bool                   `json:"loading"`
	Error   string                 `json:"error,omitempty"`
	Stats   *model.ExperimentStats `json:"stats,omitempty"`
}

// handleStream pushes the metrics loader state of one experiment as
// server-sent events, refetching on every stream interval.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	telemetry.StreamClients.Inc()
	defer telemetry.StreamClients.Dec()

	id := chi.URLParam(r, "id")
	metrics := loader.NewExperimentMetricsLoader(s.api)
	updates, unsubscribe := metrics.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	g, gctx := errgroup.WithContext(ctx)
	defer func() {
		cancel()
		_ = g.Wait()
	}()

	g.Go(func() error {
		metrics.SetKey(gctx, id)
		ticker := time.NewTicker(s.opts.StreamInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				metrics.Fetch(gctx)
			}
		}
	})

	for {
		select {
		case <-gctx.Done():
			return
		case st := <-updates:
			if err := writeMetricsEvent(w, st); err != nil {
				s.log.Debug().Err(err).Str("experiment", id).Msg("stream client gone")
				return
			}
			flusher.Flush()
		}
	}
}

func writeMetricsEvent(w http.ResponseWriter, st loader.State[*model.ExperimentStats]) error {
	data, err := json.Marshal(metricsEvent{Loading: st.Loading, Error: st.Err, Stats: st.Data})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: metrics\ndata: %s\n\n", data)
	return err
}
