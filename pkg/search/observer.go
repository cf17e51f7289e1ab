package search

import (
	"github.com/edongashi/itc-2019-sub000/pkg/solution"
	"github.com/google/uuid"
)

// Progress describes the state of a run when an observer is notified
type Progress struct {
	RunID       uuid.UUID
	Iteration   int64
	Cycle       int
	Temperature float64
	// Penalties of the best solution so far
	Hard int
	Soft int
}

// Observer is notified from the search goroutine. Implementations must return quickly.
type Observer interface {
	OnBest(progress Progress, best *solution.Solution)
	OnPenalization(progress Progress)
	// Called every snapshot_interval iterations
	OnSnapshot(progress Progress, best *solution.Solution)
}

type NopObserver struct{}

func (NopObserver) OnBest(Progress, *solution.Solution)     {}
func (NopObserver) OnPenalization(Progress)                 {}
func (NopObserver) OnSnapshot(Progress, *solution.Solution) {}

// Observers fans every notification out to each of its members in order
type Observers []Observer

func (observers Observers) OnBest(progress Progress, best *solution.Solution) {
	for _, observer := range observers {
		observer.OnBest(progress, best)
	}
}

func (observers Observers) OnPenalization(progress Progress) {
	for _, observer := range observers {
		observer.OnPenalization(progress)
	}
}

func (observers Observers) OnSnapshot(progress Progress, best *solution.Solution) {
	for _, observer := range observers {
		observer.OnSnapshot(progress, best)
	}
}
