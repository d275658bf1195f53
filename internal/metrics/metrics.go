package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Workflow metrics
	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cortexquant_decisions_total",
			Help: "Total number of investment decisions produced",
		},
		[]string{"action"},
	)

	analystFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cortexquant_analyst_failures_total",
			Help: "Total number of analyst failures absorbed by the workflow",
		},
		[]string{"analyst"},
	)

	// Backtest metrics
	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cortexquant_trades_total",
			Help: "Total number of simulated trades executed",
		},
		[]string{"symbol", "side"},
	)

	skippedDates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cortexquant_skipped_dates_total",
			Help: "Backtest dates skipped because no price was available",
		},
		[]string{"symbol"},
	)

	portfolioValue = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cortexquant_portfolio_value",
			Help: "Latest simulated portfolio value",
		},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(decisionsTotal)
	prometheus.MustRegister(analystFailures)
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(skippedDates)
	prometheus.MustRegister(portfolioValue)
}

func RecordDecision(action string) {
	decisionsTotal.WithLabelValues(action).Inc()
}

func RecordAnalystFailure(analyst string) {
	analystFailures.WithLabelValues(analyst).Inc()
}

func RecordTrade(symbol, side string) {
	tradesTotal.WithLabelValues(symbol, side).Inc()
}

func RecordSkippedDate(symbol string) {
	skippedDates.WithLabelValues(symbol).Inc()
}

func SetPortfolioValue(symbol string, value float64) {
	portfolioValue.WithLabelValues(symbol).Set(value)
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
