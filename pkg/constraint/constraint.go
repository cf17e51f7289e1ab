// Package constraint evaluates distribution constraints between classes.
//
// Every constraint kind is a variant of the same Constraint value: the kind selects the evaluator
// from a dispatch table, while the class list, required flag, penalty and worst case live on the
// value itself. Evaluation only looks at the room/time indices a class currently holds (through an
// Assignment), never at object identity, which makes those indices a natural memoization key:
//
//   - a one-entry fast path returns the previous result when the constraint observes exactly the
//     same indices as on the last call;
//   - otherwise a bounded LRU cache keyed by the encoded indices is consulted;
//   - only then the evaluator runs.
//
// Constraints are shared by every Solution of a Problem, so the fast path and the cache are
// guarded by a per-constraint mutex.
package constraint

import (
	"fmt"
	"slices"
	"sync"

	"github.com/edongashi/itc-2019-sub000/pkg/model"
)

const DefaultCacheSize = 4096

// Assignment exposes the room and time index currently held by each class. Room indices refer to
// the class' admissible rooms (model.NoRoom for roomless classes) and time indices to its admissible schedules.
type Assignment interface {
	RoomIndex(class int) int
	TimeIndex(class int) int
}

// Penalty is the outcome of evaluating a constraint
type Penalty struct {
	Hard int
	Soft int
}

type member struct {
	class     int
	rooms     []model.RoomAssignment
	schedules []model.ScheduleAssignment
}

// placement is a member's resolved room id and schedule
type placement struct {
	room     int
	schedule model.Schedule
}

type Constraint struct {
	Id        int
	Kind      model.ConstraintKind
	Params    []int
	Required  bool
	Penalty   int
	Classes   []int
	WorstCase int

	members []member
	sorted  []int
	travel  model.TravelMatrix
	weeks   int
	days    int

	mu         sync.Mutex
	difficulty int
	cache      *lru
	cached     bool
	lastKey    []int32
	lastValid  bool
	last       Penalty
	key        []int32
	encoded    []byte
	placements []placement
	scratch    []interval
}

// New binds a constraint definition to the classes it spans. classes must be indexed by class id.
// A cacheSize of 0 disables both the fast path and the cache.
func New(definition model.Constraint, classes []model.Class, travel model.TravelMatrix, weeks, days, cacheSize int) (*Constraint, error) {
	if len(definition.Params) != definition.Kind.Params() {
		return nil, fmt.Errorf("constraint %v: %v expects %v parameters, got %v", definition.Id, definition.Kind, definition.Kind.Params(), len(definition.Params))
	}

	constraint := &Constraint{
		Id:       definition.Id,
		Kind:     definition.Kind,
		Params:   slices.Clone(definition.Params),
		Required: definition.Required,
		Penalty:  definition.Penalty,
		Classes:  slices.Clone(definition.Classes),
		travel:   travel,
		weeks:    weeks,
		days:     days,
		cached:   cacheSize > 0,
	}

	for _, class := range definition.Classes {
		if class < 0 || class >= len(classes) {
			return nil, fmt.Errorf("constraint %v: unknown class %v", definition.Id, class)
		}
		constraint.members = append(constraint.members, member{
			class:     class,
			rooms:     classes[class].Rooms,
			schedules: classes[class].Schedules,
		})
	}

	constraint.sorted = slices.Clone(constraint.Classes)
	slices.Sort(constraint.sorted)

	pairs := len(constraint.members) * (len(constraint.members) - 1) / 2
	if !constraint.Required {
		pairs *= constraint.Penalty
	}
	constraint.WorstCase = max(pairs, 1)

	if constraint.cached {
		constraint.cache = newLRU(cacheSize)
	}
	constraint.placements = make([]placement, len(constraint.members))
	return constraint, nil
}

func (constraint *Constraint) Category() model.ConstraintCategory {
	return constraint.Kind.Category()
}

// Checks whether the class is part of the constraint
func (constraint *Constraint) InvolvesClass(class int) bool {
	_, found := slices.BinarySearch(constraint.sorted, class)
	return found
}

// Normalize maps a penalty produced by this constraint into comparable units
func (constraint *Constraint) Normalize(penalty Penalty) float64 {
	if constraint.Required {
		return float64(penalty.Hard) / float64(constraint.WorstCase)
	}
	return float64(penalty.Soft) / float64(constraint.WorstCase)
}

func (constraint *Constraint) Difficulty() int {
	constraint.mu.Lock()
	defer constraint.mu.Unlock()
	return constraint.difficulty
}

// SetDifficulty changes the hard surcharge added to a violated required constraint. Cached results
// embed the old surcharge, so they are dropped.
func (constraint *Constraint) SetDifficulty(difficulty int) {
	constraint.mu.Lock()
	defer constraint.mu.Unlock()
	if constraint.difficulty == difficulty {
		return
	}
	constraint.difficulty = difficulty
	constraint.lastValid = false
	if constraint.cache != nil {
		constraint.cache.clear()
	}
}

// Evaluate computes the penalty of the constraint under the given assignment
func (constraint *Constraint) Evaluate(assignment Assignment) Penalty {
	constraint.mu.Lock()
	defer constraint.mu.Unlock()

	if !constraint.cached {
		return constraint.penalize(constraint.violations(assignment))
	}

	//** Fast path: same indices as the previous call
	constraint.key = constraint.observe(constraint.key[:0], assignment)
	if constraint.lastValid && slices.Equal(constraint.key, constraint.lastKey) {
		return constraint.last
	}

	//** Cache lookup
	constraint.encoded = encodeKey(constraint.encoded, constraint.key)
	penalty, ok := constraint.cache.get(string(constraint.encoded))
	if !ok {
		penalty = constraint.penalize(constraint.violations(assignment))
		constraint.cache.put(string(constraint.encoded), penalty)
	}

	constraint.lastKey = append(constraint.lastKey[:0], constraint.key...)
	constraint.lastValid = true
	constraint.last = penalty
	return penalty
}

// CacheStats reports the cache hits, misses and current size
func (constraint *Constraint) CacheStats() (hits, misses uint64, size int) {
	constraint.mu.Lock()
	defer constraint.mu.Unlock()
	if constraint.cache == nil {
		return 0, 0, 0
	}
	return constraint.cache.hits, constraint.cache.misses, constraint.cache.len()
}

// observe appends the indices the constraint depends on
func (constraint *Constraint) observe(key []int32, assignment Assignment) []int32 {
	category := constraint.Kind.Category()
	for _, member := range constraint.members {
		if category != model.RoomCategory {
			key = append(key, int32(assignment.TimeIndex(member.class)))
		}
		if category != model.TimeCategory {
			key = append(key, int32(assignment.RoomIndex(member.class)))
		}
	}
	return key
}

// violations resolves the placements of the members and runs the kind's evaluator
func (constraint *Constraint) violations(assignment Assignment) int {
	for i, member := range constraint.members {
		room := model.NoRoom
		if index := assignment.RoomIndex(member.class); index >= 0 {
			room = member.rooms[index].Room
		}
		constraint.placements[i] = placement{
			room:     room,
			schedule: member.schedules[assignment.TimeIndex(member.class)].Schedule,
		}
	}
	return evaluators[constraint.Kind](constraint, constraint.placements)
}

func (constraint *Constraint) penalize(violations int) Penalty {
	if violations == 0 {
		return Penalty{}
	}
	if constraint.Required {
		return Penalty{Hard: violations + constraint.difficulty}
	}
	if averaged(constraint.Kind) {
		violations /= constraint.weeks
	}
	return Penalty{Soft: constraint.Penalty * violations}
}

func (constraint *Constraint) String() string {
	return fmt.Sprintf("%v#%v%v", model.FormatConstraintType(constraint.Kind, constraint.Params), constraint.Id, constraint.Classes)
}
