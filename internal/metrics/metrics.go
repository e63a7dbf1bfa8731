// Package metrics exposes the account service counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Authentication outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
	OutcomeError   = "error"
)

// Account kinds.
const (
	KindRegular   = "regular"
	KindSuperuser = "superuser"
	KindSystem    = "system"
)

const shutdownTimeout = 5 * time.Second

var (
	authenticationsTotal *prometheus.CounterVec
	accountsCreatedTotal *prometheus.CounterVec
	deactivationsTotal   prometheus.Counter
	registerOnce         sync.Once
)

// Register initializes the metrics on the default registry. Calling the
// Inc functions before Register is a no-op.
func Register() {
	registerOnce.Do(func() {
		authenticationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fdaccounts",
			Name:      "authentications_total",
			Help:      "Authentication attempts by outcome.",
		}, []string{"outcome"})
		accountsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fdaccounts",
			Name:      "accounts_created_total",
			Help:      "Accounts created by kind.",
		}, []string{"kind"})
		deactivationsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "fdaccounts",
			Name:      "deactivations_total",
			Help:      "Accounts deactivated for the first time.",
		})
	})
}

func IncAuthentication(outcome string) {
	if authenticationsTotal == nil {
		return
	}
	authenticationsTotal.WithLabelValues(outcome).Inc()
}

func IncAccountCreated(kind string) {
	if accountsCreatedTotal == nil {
		return
	}
	accountsCreatedTotal.WithLabelValues(kind).Inc()
}

func IncDeactivation() {
	if deactivationsTotal == nil {
		return
	}
	deactivationsTotal.Inc()
}

// Serve runs an HTTP server exposing /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: shutdownTimeout}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
