// Package search improves a timetable with simulated annealing.
//
// A run starts from an initial solution and applies random room, time and enrollment changes,
// accepting worse candidates with the Metropolis criterion. When no better solution is found for
// a while, the values currently assigned to every class are penalized to push the search into
// another region. A run only ends when its context is cancelled.
package search

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/edongashi/itc-2019-sub000/pkg/problem"
	"github.com/edongashi/itc-2019-sub000/pkg/solution"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type Result struct {
	RunID      uuid.UUID
	Iterations int64
	// Penalization rounds performed
	Cycles  int
	Elapsed time.Duration
	Best    *solution.Solution
}

type Searcher interface {
	// Run searches from start, or from solution.Initial when start is nil, until ctx is done.
	// Cancellation is not an error: the best solution found is returned with a nil error.
	// Runs are independent: each one restarts the random stream and the penalization state.
	Run(ctx context.Context, start *solution.Solution) (Result, error)
}

type annealer struct {
	problem  *problem.Problem
	config   Config
	logger   *zap.Logger
	observer Observer
	rng      *rand.Rand

	timeVariables []problem.Variable
	roomVariables []problem.Variable
	// Students with at least one class to choose
	students []int

	// Artificial penalties per class and value index
	timePenalties [][]float64
	roomPenalties [][]float64
	penalized     bool
}

func New(p *problem.Problem, config Config, logger *zap.Logger, observer Observer) (Searcher, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if observer == nil {
		observer = NopObserver{}
	}

	annealer := &annealer{
		problem:  p,
		config:   config,
		logger:   logger,
		observer: observer,
		rng:      newRNG(config.Seed),
		timeVariables: lo.Filter(p.Variables, func(variable problem.Variable, _ int) bool {
			return variable.Kind == problem.TimeVariable
		}),
		roomVariables: lo.Filter(p.Variables, func(variable problem.Variable, _ int) bool {
			return variable.Kind == problem.RoomVariable
		}),
		students: lo.Filter(lo.Range(len(p.Students)), func(student int, _ int) bool {
			return len(p.Students[student].LooseClasses) > 0
		}),
		timePenalties: make([][]float64, len(p.Classes)),
		roomPenalties: make([][]float64, len(p.Classes)),
	}
	for i, class := range p.Classes {
		annealer.timePenalties[i] = make([]float64, len(class.Schedules))
		annealer.roomPenalties[i] = make([]float64, len(class.Rooms))
	}
	return annealer, nil
}

func newRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func (annealer *annealer) Run(ctx context.Context, start *solution.Solution) (Result, error) {
	if start == nil {
		start = solution.Initial(annealer.problem)
	} else if start.Problem() != annealer.problem {
		return Result{}, fmt.Errorf("%w: start solution belongs to another problem", ErrInvalidConfig)
	}

	//** Every run starts from the seed without artificial penalties
	annealer.rng = newRNG(annealer.config.Seed)
	annealer.clearPenalties()

	result := Result{RunID: uuid.New(), Best: start}
	began := time.Now()
	logger := annealer.logger.With(zap.Stringer("run", result.RunID))
	logger.Info("search started",
		zap.String("instance", annealer.problem.Name),
		zap.Int("hard", start.HardPenalty()),
		zap.Int("soft", start.SoftPenalty()),
		zap.Float64("temperature", annealer.config.InitialTemperature),
	)

	current := start
	currentArtificial := annealer.artificial(current)
	temperature := annealer.config.InitialTemperature
	stall := 0
	progress := func() Progress {
		return Progress{
			RunID:       result.RunID,
			Iteration:   result.Iterations,
			Cycle:       result.Cycles,
			Temperature: temperature,
			Hard:        result.Best.HardPenalty(),
			Soft:        result.Best.SoftPenalty(),
		}
	}

	for ctx.Err() == nil {
		//** Mutate
		kind, ok := annealer.pick(current.Feasible())
		if !ok {
			logger.Info("nothing to search, every class has a single option")
			break
		}
		move, err := annealer.apply(kind, current)
		if err != nil {
			return result, fmt.Errorf("%v operator: %w", kind, err)
		}
		result.Iterations++
		candidate := move.candidate
		candidateArtificial := currentArtificial + annealer.artificialDelta(current, candidate, move.touched)

		//** Track best
		if improves(candidate, result.Best) {
			hardDecrease := candidate.HardPenalty() < result.Best.HardPenalty()
			result.Best = candidate
			stall = 0
			if hardDecrease && annealer.penalized {
				annealer.clearPenalties()
				currentArtificial, candidateArtificial = 0, 0
			}
			logger.Debug("new best",
				zap.Int64("iteration", result.Iterations),
				zap.Int("hard", candidate.HardPenalty()),
				zap.Int("soft", candidate.SoftPenalty()),
			)
			annealer.observer.OnBest(progress(), candidate)
		} else if stall++; stall > annealer.config.StallTimeout {
			//** Penalize
			annealer.penalize(current)
			currentArtificial = annealer.artificial(current)
			candidateArtificial = annealer.artificial(candidate)
			temperature = annealer.config.PenalizationTemperature
			stall = 0
			result.Cycles++
			logger.Debug("penalization round",
				zap.Int("cycle", result.Cycles),
				zap.Int64("iteration", result.Iterations),
				zap.Float64("temperature", temperature),
			)
			annealer.observer.OnPenalization(progress())
		}

		//** Accept
		feasible := current.Feasible() && candidate.Feasible()
		currentScore := annealer.score(current, currentArtificial, feasible)
		candidateScore := annealer.score(candidate, candidateArtificial, feasible)
		if candidateScore <= currentScore || math.Exp((currentScore-candidateScore)/temperature) > annealer.rng.Float64() {
			current, currentArtificial = candidate, candidateArtificial
		}

		//** Cool down
		temperature = max(temperature*annealer.config.CoolingRate, annealer.config.MinTemperature)
		if current.Feasible() {
			temperature = min(temperature, annealer.config.FeasibleTemperatureCeiling)
		}

		if result.Iterations%int64(annealer.config.SnapshotInterval) == 0 {
			annealer.observer.OnSnapshot(progress(), result.Best)
		}
	}

	result.Elapsed = time.Since(began)
	logger.Info("search finished",
		zap.Int64("iterations", result.Iterations),
		zap.Int("cycles", result.Cycles),
		zap.Int("hard", result.Best.HardPenalty()),
		zap.Int("soft", result.Best.SoftPenalty()),
		zap.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

// Checks whether candidate is better than best, hard penalty first
func improves(candidate, best *solution.Solution) bool {
	if candidate.HardPenalty() != best.HardPenalty() {
		return candidate.HardPenalty() < best.HardPenalty()
	}
	return candidate.SoftPenalty() < best.SoftPenalty()
}

// score is the acceptance energy of a solution. Once both solutions compared are feasible only the
// normalized soft penalty counts, squashed into [0, 1).
func (annealer *annealer) score(s *solution.Solution, artificial float64, feasible bool) float64 {
	soft := s.NormalizedSoftPenalty()
	if feasible {
		return soft/(1+soft) + artificial
	}
	quantization := annealer.config.SoftQuantization
	return annealer.config.HardWeight*s.NormalizedHardPenalty() + math.Ceil(soft*quantization)/quantization + artificial
}

func (annealer *annealer) classArtificial(s *solution.Solution, class int) float64 {
	penalty := annealer.timePenalties[class][s.TimeIndex(class)]
	if room := s.RoomIndex(class); room >= 0 {
		penalty += annealer.roomPenalties[class][room]
	}
	return penalty
}

func (annealer *annealer) artificial(s *solution.Solution) float64 {
	if !annealer.penalized {
		return 0
	}
	var total float64
	for class := range annealer.problem.Classes {
		total += annealer.classArtificial(s, class)
	}
	return total
}

func (annealer *annealer) artificialDelta(current, candidate *solution.Solution, touched []int) float64 {
	if !annealer.penalized {
		return 0
	}
	var delta float64
	for _, class := range lo.Uniq(touched) {
		delta += annealer.classArtificial(candidate, class) - annealer.classArtificial(current, class)
	}
	return delta
}

// penalize raises the artificial penalty of the room and time every class currently uses
func (annealer *annealer) penalize(current *solution.Solution) {
	annealer.penalized = true
	for class := range annealer.problem.Classes {
		annealer.timePenalties[class][current.TimeIndex(class)] += annealer.config.PenalizationRate
		if room := current.RoomIndex(class); room >= 0 {
			annealer.roomPenalties[class][room] += annealer.config.PenalizationRate
		}
	}
}

func (annealer *annealer) clearPenalties() {
	annealer.penalized = false
	for class := range annealer.problem.Classes {
		clear(annealer.timePenalties[class])
		clear(annealer.roomPenalties[class])
	}
}
