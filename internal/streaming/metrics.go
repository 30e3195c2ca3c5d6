package streaming

import "github.com/prometheus/client_golang/prometheus"

// Metrics - метрики планировщика стриминга
type Metrics struct {
	Ticks          prometheus.Counter
	Evicted        prometheus.Counter
	Materialized   prometheus.Counter
	Pending        prometheus.Gauge
	BudgetExceeded prometheus.Counter
	TickDuration   prometheus.Histogram
}

// NewMetrics создаёт метрики и регистрирует их в reg (nil - без регистрации)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockverse",
			Subsystem: "streaming",
			Name:      "ticks_total",
			Help:      "Количество проходов планировщика",
		}),
		Evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockverse",
			Subsystem: "streaming",
			Name:      "evicted_total",
			Help:      "Чанки, потерявшие представление из-за удаления от наблюдателей",
		}),
		Materialized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockverse",
			Subsystem: "streaming",
			Name:      "materialized_total",
			Help:      "Материализованные чанки",
		}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "blockverse",
			Subsystem: "streaming",
			Name:      "pending",
			Help:      "Кандидаты, отложенные до следующего тика",
		}),
		BudgetExceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockverse",
			Subsystem: "streaming",
			Name:      "budget_exceeded_total",
			Help:      "Проходы, прерванные по бюджету времени",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "blockverse",
			Subsystem: "streaming",
			Name:      "tick_duration_seconds",
			Help:      "Длительность прохода планировщика",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Ticks, m.Evicted, m.Materialized, m.Pending, m.BudgetExceeded, m.TickDuration)
	}
	return m
}
