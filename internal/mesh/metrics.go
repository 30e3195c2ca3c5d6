package mesh

import "github.com/prometheus/client_golang/prometheus"

// Metrics - метрики конвейера мешинга
type Metrics struct {
	Builds         prometheus.Counter
	BuildDuration  prometheus.Histogram
	Discarded      prometheus.Counter
	InFlight       prometheus.Gauge
	Rendered       prometheus.Gauge
	ObjectsCreated prometheus.Counter
}

// NewMetrics создаёт метрики и регистрирует их в reg (nil - без регистрации)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Builds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockverse",
			Subsystem: "mesh",
			Name:      "builds_total",
			Help:      "Общее количество перестроенных чанков",
		}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "blockverse",
			Subsystem: "mesh",
			Name:      "build_duration_seconds",
			Help:      "Длительность вычислительной стадии мешинга",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		Discarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockverse",
			Subsystem: "mesh",
			Name:      "discarded_total",
			Help:      "Результаты, отброшенные из-за выгрузки чанка",
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "blockverse",
			Subsystem: "mesh",
			Name:      "inflight",
			Help:      "Чанки, перестраиваемые прямо сейчас",
		}),
		Rendered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "blockverse",
			Subsystem: "mesh",
			Name:      "rendered_chunks",
			Help:      "Чанки с живым представлением",
		}),
		ObjectsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockverse",
			Subsystem: "mesh",
			Name:      "block_objects_created_total",
			Help:      "Созданные объекты блоков",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Builds, m.BuildDuration, m.Discarded, m.InFlight, m.Rendered, m.ObjectsCreated)
	}
	return m
}
