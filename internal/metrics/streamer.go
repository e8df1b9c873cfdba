package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// StreamerMetrics метрики стриминга чанков.
// Все методы безопасны для nil-получателя: без метрик менеджер работает так же.
//
// Метрики:
// * tileworld_chunks_submitted_total — поставлено задач генерации
// * tileworld_chunks_applied_total{source} — применено чанков (generated/cache)
// * tileworld_chunks_despawned_total — выгружено чанков
// * tileworld_chunk_duplicate_completions_total — повторные завершения (no-op)
// * tileworld_chunk_submit_deferred_total{reason} — отложенные постановки (queue_full/throttle)
// * tileworld_chunks_resident, tileworld_chunks_pending — gauge
// * tileworld_chunk_generation_seconds, tileworld_tick_seconds — histogram
// * tileworld_chunk_store_results_total{result} — hit/miss/error дискового кеша
type StreamerMetrics struct {
	submitted   prometheus.Counter
	applied     *prometheus.CounterVec
	despawned   prometheus.Counter
	duplicates  prometheus.Counter
	deferred    *prometheus.CounterVec
	resident    prometheus.Gauge
	pending     prometheus.Gauge
	generation  prometheus.Histogram
	tick        prometheus.Histogram
	storeResult *prometheus.CounterVec
}

const namespace = "tileworld"

// NewStreamerMetrics создаёт метрики и регистрирует их в reg.
// reg == nil оставляет метрики незарегистрированными (удобно в тестах).
func NewStreamerMetrics(reg prometheus.Registerer) *StreamerMetrics {
	f := promauto.With(reg)
	return &StreamerMetrics{
		submitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_submitted_total",
			Help:      "Количество задач генерации, поставленных в пул.",
		}),
		applied: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_applied_total",
			Help:      "Количество чанков, примененных к миру.",
		}, []string{"source"}),
		despawned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_despawned_total",
			Help:      "Количество выгруженных чанков.",
		}),
		duplicates: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_duplicate_completions_total",
			Help:      "Завершения генерации для чанка, который не ожидал результата.",
		}),
		deferred: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_submit_deferred_total",
			Help:      "Постановки, отложенные до следующего тика.",
		}, []string{"reason"}),
		resident: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chunks_resident",
			Help:      "Текущее количество загруженных чанков.",
		}),
		pending: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chunks_pending",
			Help:      "Текущее количество чанков в генерации.",
		}),
		generation: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_generation_seconds",
			Help:      "Длительность генерации одного чанка.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		tick: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_seconds",
			Help:      "Длительность тика менеджера чанков.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.016, 0.033},
		}),
		storeResult: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_store_results_total",
			Help:      "Результаты обращений к дисковому кешу чанков.",
		}, []string{"result"}),
	}
}

func (m *StreamerMetrics) ChunkSubmitted() {
	if m != nil {
		m.submitted.Inc()
	}
}

// ChunkApplied source: "generated" или "cache"
func (m *StreamerMetrics) ChunkApplied(source string) {
	if m != nil {
		m.applied.WithLabelValues(source).Inc()
	}
}

func (m *StreamerMetrics) ChunkDespawned() {
	if m != nil {
		m.despawned.Inc()
	}
}

func (m *StreamerMetrics) DuplicateCompletion() {
	if m != nil {
		m.duplicates.Inc()
	}
}

// SubmitDeferred reason: "queue_full" или "throttle"
func (m *StreamerMetrics) SubmitDeferred(reason string, n int) {
	if m != nil && n > 0 {
		m.deferred.WithLabelValues(reason).Add(float64(n))
	}
}

func (m *StreamerMetrics) SetCounts(resident, pending int) {
	if m != nil {
		m.resident.Set(float64(resident))
		m.pending.Set(float64(pending))
	}
}

func (m *StreamerMetrics) ObserveGeneration(d time.Duration) {
	if m != nil {
		m.generation.Observe(d.Seconds())
	}
}

func (m *StreamerMetrics) ObserveTick(d time.Duration) {
	if m != nil {
		m.tick.Observe(d.Seconds())
	}
}

// StoreResult result: "hit", "miss" или "error"
func (m *StreamerMetrics) StoreResult(result string) {
	if m != nil {
		m.storeResult.WithLabelValues(result).Inc()
	}
}
