package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TradesPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predictmarket_trades_placed_total",
		Help: "Trades accepted by the placement engine.",
	}, []string{"domain"})

	TradesSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predictmarket_trades_settled_total",
		Help: "Trades settled by the resolution engine, by result.",
	}, []string{"domain", "result"})

	QuestionsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predictmarket_questions_resolved_total",
		Help: "Questions moved to a terminal status, cascades included.",
	}, []string{"domain"})

	SettlementFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predictmarket_settlement_failures_total",
		Help: "Per-trade settlement attempts that errored and were skipped.",
	}, []string{"domain"})

	PayoutAmount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "predictmarket_payout_minor_units",
		Help:    "Credited payout sizes in minor currency units.",
		Buckets: prometheus.ExponentialBuckets(100, 4, 10),
	})
)

type HealthFunc func(ctx context.Context) error

// StartServer exposes /metrics and /healthz on a side port, detached from
// the API listener so scrapes survive API saturation.
func StartServer(port string, healthFn HealthFunc) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := healthFn(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(fmt.Sprintf("unhealthy: %v", err)))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}
	go func() {
		_ = srv.ListenAndServe()
	}()
	return srv
}
