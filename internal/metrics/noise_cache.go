package metrics

import "github.com/prometheus/client_golang/prometheus"

// RegisterNoiseCache экспортирует счетчики кеша уровней рельефа.
// stats вызывается при каждом сборе метрик.
func RegisterNoiseCache(reg prometheus.Registerer, stats func() (hits, misses uint64)) error {
	hits := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "noise_cache_hits_total",
		Help:      "Попадания в кеш уровней рельефа.",
	}, func() float64 {
		h, _ := stats()
		return float64(h)
	})
	misses := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "noise_cache_misses_total",
		Help:      "Промахи кеша уровней рельефа.",
	}, func() float64 {
		_, m := stats()
		return float64(m)
	})

	if err := reg.Register(hits); err != nil {
		return err
	}
	return reg.Register(misses)
}
