// Package metrics exposes the backend's Prometheus instruments. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "learnearn"

type Metrics struct {
	plays       *prometheus.CounterVec
	rewards     *prometheus.CounterVec
	unlocks     *prometheus.CounterVec
	withdrawals *prometheus.CounterVec
	wsClients   prometheus.Gauge
}

// New registers every instrument on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		plays: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plays_total",
			Help:      "Free plays by game and outcome.",
		}, []string{"game", "outcome"}),
		rewards: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rewards_total",
			Help:      "Balance credited by game rewards.",
		}, []string{"game"}),
		unlocks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unlocks_total",
			Help:      "Game unlock attempts by result.",
		}, []string{"result"}),
		withdrawals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "withdrawals_total",
			Help:      "Withdrawal lifecycle events.",
		}, []string{"status"}),
		wsClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Currently connected websocket clients.",
		}),
	}
}

func (m *Metrics) ObservePlay(game, outcome string) {
	if m == nil {
		return
	}
	m.plays.WithLabelValues(game, outcome).Inc()
}

func (m *Metrics) ObserveReward(game string, amount int64) {
	if m == nil || amount <= 0 {
		return
	}
	m.rewards.WithLabelValues(game).Add(float64(amount))
}

func (m *Metrics) ObserveUnlock(result string) {
	if m == nil {
		return
	}
	m.unlocks.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveWithdrawal(status string) {
	if m == nil {
		return
	}
	m.withdrawals.WithLabelValues(status).Inc()
}

func (m *Metrics) ClientConnected() {
	if m == nil {
		return
	}
	m.wsClients.Inc()
}

func (m *Metrics) ClientDisconnected() {
	if m == nil {
		return
	}
	m.wsClients.Dec()
}
