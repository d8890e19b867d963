// Package metrics exposes Prometheus counters for the poll loop and an
// optional /metrics HTTP listener.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MattBortsov/homework-bot/pkg/logx"
)

var (
	PollCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "homework_poll_cycles_total",
		Help: "Total poll cycles by outcome.",
	}, []string{"outcome"}) // outcome: changed, unchanged, error

	PollErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "homework_poll_errors_total",
		Help: "Total poll cycle failures by error kind.",
	}, []string{"kind"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "homework_notifications_total",
		Help: "Total notification attempts by result.",
	}, []string{"result"}) // result: sent, failed, suppressed
)

// Server serves /metrics on the configured address.
type Server struct {
	srv *http.Server
	log logx.Logger
}

func NewServer(addr string, log logx.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{
		srv: &http.Server{
			Addr:        addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
			IdleTimeout: time.Minute,
		},
		log: log,
	}
}

func (s *Server) Start() {
	go func() {
		s.log.Info("metrics listener started", logx.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("metrics listener failed", logx.Err(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
