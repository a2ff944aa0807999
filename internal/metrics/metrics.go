// Package metrics exposes server counters in the Prometheus format.
// Every method is safe on a nil *Metrics, which records nothing.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "snek"

// Metrics owns a private registry so tests and multiple servers never clash.
type Metrics struct {
	registry *prometheus.Registry

	packetsReceived *prometheus.CounterVec
	packetsSent     *prometheus.CounterVec
	packetsDropped  *prometheus.CounterVec
	bytesReceived   prometheus.Counter
	bytesSent       prometheus.Counter
	rejected        *prometheus.CounterVec
	joins           prometheus.Counter
	broadcasts      prometheus.Counter
	barrierWaits    prometheus.Counter
	timeouts        prometheus.Counter
	gamesEnded      *prometheus.CounterVec
	players         prometheus.Gauge
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		packetsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_received_total",
			Help:      "Decoded packets received, by message type.",
		}, []string{"type"}),
		packetsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_sent_total",
			Help:      "Packets handed to the transport, by message type.",
		}, []string{"type"}),
		packetsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_dropped_total",
			Help:      "Packets discarded before reaching the session, by reason.",
		}, []string{"reason"}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_received_total",
			Help:      "Bytes received from peers.",
		}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_sent_total",
			Help:      "Bytes queued to peers.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_rejected_total",
			Help:      "Protocol messages ignored by the session, by reason.",
		}, []string{"reason"}),
		joins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "joins_total",
			Help:      "Admitted joins.",
		}),
		broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "move_broadcasts_total",
			Help:      "Move fan-outs sent to every player.",
		}),
		barrierWaits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "barrier_waits_total",
			Help:      "Ticks skipped because a player had not moved yet.",
		}),
		timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "peer_timeouts_total",
			Help:      "Peers declared idle by the transport.",
		}),
		gamesEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_ended_total",
			Help:      "Finished games, by outcome.",
		}, []string{"outcome"}),
		players: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "players",
			Help:      "Players currently seated.",
		}),
	}

	m.registry.MustRegister(
		m.packetsReceived, m.packetsSent, m.packetsDropped,
		m.bytesReceived, m.bytesSent,
		m.rejected, m.joins, m.broadcasts, m.barrierWaits,
		m.timeouts, m.gamesEnded, m.players,
	)
	return m
}

// Handler serves the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics: cannot serve %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Received records an inbound packet of the given type.
func (m *Metrics) Received(msgType string, size int) {
	if m == nil {
		return
	}
	m.packetsReceived.WithLabelValues(msgType).Inc()
	m.bytesReceived.Add(float64(size))
}

// Sent records an outbound packet of the given type.
func (m *Metrics) Sent(msgType string, size int) {
	if m == nil {
		return
	}
	m.packetsSent.WithLabelValues(msgType).Inc()
	m.bytesSent.Add(float64(size))
}

// Dropped records a packet discarded at decode or send time.
func (m *Metrics) Dropped(reason string) {
	if m == nil {
		return
	}
	m.packetsDropped.WithLabelValues(reason).Inc()
}

// Rejected records a message the session ignored.
func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

// Joined records an admitted join.
func (m *Metrics) Joined() {
	if m == nil {
		return
	}
	m.joins.Inc()
}

// Broadcast records a move fan-out.
func (m *Metrics) Broadcast() {
	if m == nil {
		return
	}
	m.broadcasts.Inc()
}

// BarrierWait records a tick held back by the lockstep barrier.
func (m *Metrics) BarrierWait() {
	if m == nil {
		return
	}
	m.barrierWaits.Inc()
}

// TimedOut records an idle peer.
func (m *Metrics) TimedOut() {
	if m == nil {
		return
	}
	m.timeouts.Inc()
}

// GameEnded records a finished game.
func (m *Metrics) GameEnded(outcome string) {
	if m == nil {
		return
	}
	m.gamesEnded.WithLabelValues(outcome).Inc()
}

// SetPlayers sets the seated player gauge.
func (m *Metrics) SetPlayers(n int) {
	if m == nil {
		return
	}
	m.players.Set(float64(n))
}
