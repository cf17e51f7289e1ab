package search

import (
	"github.com/edongashi/itc-2019-sub000/pkg/problem"
	"github.com/edongashi/itc-2019-sub000/pkg/solution"
	"github.com/samber/lo"
)

type operatorKind int

const (
	timeOperator operatorKind = iota
	roomOperator
	multiTimeOperator
	multiRoomOperator
	enrollmentOperator
	operatorCount
)

func (kind operatorKind) String() string {
	return [...]string{"time", "room", "multi-time", "multi-room", "enrollment"}[kind]
}

// move is the outcome of an operator: the candidate and the classes whose room or time changed
type move struct {
	candidate *solution.Solution
	touched   []int
}

// weights returns the weight of every operator for the current search state. Operators without
// anything to change get a zero weight.
func (annealer *annealer) weights(feasible bool) [operatorCount]float64 {
	config := annealer.config
	weights := [operatorCount]float64{
		timeOperator:       config.WeightTime,
		roomOperator:       config.WeightRoom,
		multiTimeOperator:  config.WeightMultiTime,
		multiRoomOperator:  config.WeightMultiRoom,
		enrollmentOperator: config.WeightEnrollment,
	}
	if annealer.penalized {
		weights[multiTimeOperator] *= config.PenalizedMultiBoost
		weights[multiRoomOperator] *= config.PenalizedMultiBoost
	}
	if feasible {
		weights[enrollmentOperator] *= config.FeasibleEnrollmentBoost
	}

	if len(annealer.timeVariables) == 0 {
		weights[timeOperator], weights[multiTimeOperator] = 0, 0
	}
	if len(annealer.roomVariables) == 0 {
		weights[roomOperator], weights[multiRoomOperator] = 0, 0
	}
	if len(annealer.students) == 0 {
		weights[enrollmentOperator] = 0
	}
	return weights
}

// pick draws an operator proportionally to its weight. ok is false when every weight is zero.
func (annealer *annealer) pick(feasible bool) (operatorKind, bool) {
	weights := annealer.weights(feasible)
	total := lo.Sum(weights[:])
	if total <= 0 {
		return 0, false
	}

	target := annealer.rng.Float64() * total
	for kind, weight := range weights {
		if weight <= 0 {
			continue
		}
		if target < weight {
			return operatorKind(kind), true
		}
		target -= weight
	}

	// Rounding left target at the very end of the range
	for kind := operatorCount - 1; kind >= 0; kind-- {
		if weights[kind] > 0 {
			return kind, true
		}
	}
	return 0, false
}

func (annealer *annealer) apply(kind operatorKind, current *solution.Solution) (move, error) {
	switch kind {
	case timeOperator:
		return annealer.reassign(current, annealer.timeVariables, 1)
	case roomOperator:
		return annealer.reassign(current, annealer.roomVariables, 1)
	case multiTimeOperator:
		return annealer.reassign(current, annealer.timeVariables, annealer.multiCount())
	case multiRoomOperator:
		return annealer.reassign(current, annealer.roomVariables, annealer.multiCount())
	default:
		return annealer.reenroll(current)
	}
}

func (annealer *annealer) multiCount() int {
	return 2 + annealer.rng.IntN(annealer.config.MaxMultiVariables-1)
}

// reassign moves count random variables to a random value other than their current one
func (annealer *annealer) reassign(current *solution.Solution, variables []problem.Variable, count int) (move, error) {
	result := move{candidate: current}
	for range count {
		variable := variables[annealer.rng.IntN(len(variables))]

		var value int
		if variable.Kind == problem.TimeVariable {
			value = annealer.differentValue(variable.Domain, result.candidate.TimeIndex(variable.Class))
		} else {
			value = annealer.differentValue(variable.Domain, result.candidate.RoomIndex(variable.Class))
		}

		var err error
		if variable.Kind == problem.TimeVariable {
			result.candidate, err = result.candidate.WithTime(variable.Class, value)
		} else {
			result.candidate, err = result.candidate.WithRoom(variable.Class, value)
		}
		if err != nil {
			return move{}, err
		}
		result.touched = append(result.touched, variable.Class)
	}
	return result, nil
}

// differentValue draws uniformly from [0, domain) without current
func (annealer *annealer) differentValue(domain, current int) int {
	value := annealer.rng.IntN(domain - 1)
	if value >= current {
		value++
	}
	return value
}

// reenroll moves a random student to a random leaf class of one of their courses
func (annealer *annealer) reenroll(current *solution.Solution) (move, error) {
	student := annealer.students[annealer.rng.IntN(len(annealer.students))]
	loose := annealer.problem.Students[student].LooseClasses
	candidate, err := current.WithEnrollment(student, loose[annealer.rng.IntN(len(loose))])
	if err != nil {
		return move{}, err
	}
	return move{candidate: candidate}, nil
}
