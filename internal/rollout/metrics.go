package rollout

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for episode collection.
type Metrics struct {
	EpisodesTotal   *prometheus.CounterVec
	StepsTotal      *prometheus.CounterVec
	EpisodeReward   *prometheus.HistogramVec
	EpisodeDuration *prometheus.HistogramVec
	FinalValue      *prometheus.GaugeVec
	Sharpe          *prometheus.GaugeVec
	ActiveEpisodes  prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EpisodesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deepfolio_episodes_total",
				Help: "Episodes run, by policy and result",
			},
			[]string{"policy", "result"},
		),
		StepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deepfolio_steps_total",
				Help: "Environment steps taken, by policy",
			},
			[]string{"policy"},
		),
		EpisodeReward: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "deepfolio_episode_reward",
				Help:    "Cumulative shaped reward per episode",
				Buckets: []float64{-100, -10, -1, -0.1, 0, 0.1, 1, 10, 100},
			},
			[]string{"policy"},
		),
		EpisodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "deepfolio_episode_duration_seconds",
				Help:    "Wall-clock duration of each episode",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"policy"},
		),
		FinalValue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "deepfolio_episode_final_value",
				Help: "Portfolio value at the end of the last episode",
			},
			[]string{"policy"},
		),
		Sharpe: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "deepfolio_episode_sharpe",
				Help: "Annualized Sharpe ratio of the last episode",
			},
			[]string{"policy"},
		),
		ActiveEpisodes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "deepfolio_active_episodes",
				Help: "Episodes currently running",
			},
		),
	}

	reg.MustRegister(
		m.EpisodesTotal,
		m.StepsTotal,
		m.EpisodeReward,
		m.EpisodeDuration,
		m.FinalValue,
		m.Sharpe,
		m.ActiveEpisodes,
	)
	return m
}

func (m *Metrics) observe(ep *Episode) {
	if m == nil {
		return
	}
	m.EpisodesTotal.WithLabelValues(ep.Policy, "ok").Inc()
	m.StepsTotal.WithLabelValues(ep.Policy).Add(float64(ep.Steps))
	m.EpisodeReward.WithLabelValues(ep.Policy).Observe(ep.TotalReward)
	m.EpisodeDuration.WithLabelValues(ep.Policy).Observe(ep.Duration.Seconds())
	m.FinalValue.WithLabelValues(ep.Policy).Set(ep.FinalValue)
	m.Sharpe.WithLabelValues(ep.Policy).Set(ep.Sharpe)
}

func (m *Metrics) failed(policy string) {
	if m == nil {
		return
	}
	m.EpisodesTotal.WithLabelValues(policy, "error").Inc()
}

func (m *Metrics) started() {
	if m != nil {
		m.ActiveEpisodes.Inc()
	}
}

func (m *Metrics) finished() {
	if m != nil {
		m.ActiveEpisodes.Dec()
	}
}
