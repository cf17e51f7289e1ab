// Package metrics exposes search progress as Prometheus collectors on a private registry.
package metrics

import (
	"github.com/edongashi/itc-2019-sub000/pkg/search"
	"github.com/edongashi/itc-2019-sub000/pkg/solution"
	"github.com/prometheus/client_golang/prometheus"
)

// SearchObserver implements search.Observer
type SearchObserver struct {
	registry      *prometheus.Registry
	improvements  prometheus.Counter
	penalizations prometheus.Counter
	iterations    prometheus.Gauge
	temperature   prometheus.Gauge
	bestHard      prometheus.Gauge
	bestSoft      prometheus.Gauge
	violations    *prometheus.GaugeVec
}

func NewSearchObserver() *SearchObserver {
	registry := prometheus.NewRegistry()

	observer := &SearchObserver{
		registry: registry,
		improvements: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timetable_search_improvements_total",
			Help: "Number of times a better solution was found",
		}),
		penalizations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timetable_search_penalizations_total",
			Help: "Number of penalization rounds",
		}),
		iterations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timetable_search_iterations",
			Help: "Iterations performed at the last notification",
		}),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timetable_search_temperature",
			Help: "Annealing temperature at the last notification",
		}),
		bestHard: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timetable_search_best_hard_penalty",
			Help: "Hard penalty of the best solution",
		}),
		bestSoft: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timetable_search_best_soft_penalty",
			Help: "Weighted soft penalty of the best solution",
		}),
		violations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "timetable_search_best_violations",
			Help: "Violations of the best solution by category",
		}, []string{"category"}),
	}

	registry.MustRegister(
		observer.improvements,
		observer.penalizations,
		observer.iterations,
		observer.temperature,
		observer.bestHard,
		observer.bestSoft,
		observer.violations,
	)
	return observer
}

func (observer *SearchObserver) Registry() *prometheus.Registry {
	return observer.registry
}

func (observer *SearchObserver) OnBest(progress search.Progress, best *solution.Solution) {
	observer.improvements.Inc()
	observer.record(progress, best)
}

func (observer *SearchObserver) OnPenalization(progress search.Progress) {
	observer.penalizations.Inc()
	observer.iterations.Set(float64(progress.Iteration))
	observer.temperature.Set(progress.Temperature)
}

func (observer *SearchObserver) OnSnapshot(progress search.Progress, best *solution.Solution) {
	observer.record(progress, best)
}

func (observer *SearchObserver) record(progress search.Progress, best *solution.Solution) {
	observer.iterations.Set(float64(progress.Iteration))
	observer.temperature.Set(progress.Temperature)
	observer.bestHard.Set(float64(best.HardPenalty()))
	observer.bestSoft.Set(float64(best.SoftPenalty()))

	observer.violations.WithLabelValues("room_conflicts").Set(float64(best.ClassConflicts()))
	observer.violations.WithLabelValues("capacity").Set(float64(best.CapacityPenalty()))
	observer.violations.WithLabelValues("unavailable").Set(float64(best.UnavailablePenalty()))
	observer.violations.WithLabelValues("distribution_hard").Set(float64(best.DistributionHardPenalty()))
	observer.violations.WithLabelValues("student_conflicts").Set(float64(best.StudentConflicts()))
}
