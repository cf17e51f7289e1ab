package solution

import (
	"fmt"
	"slices"

	"github.com/edongashi/itc-2019-sub000/pkg/persistent"
)

// WithRoom returns the solution obtained by moving a class to another of its admissible rooms
func (solution *Solution) WithRoom(class, room int) (*Solution, error) {
	if class < 0 || class >= len(solution.problem.Classes) {
		return nil, fmt.Errorf("%w: class %v", ErrDomainRange, class)
	}
	definition := &solution.problem.Classes[class]
	if err := checkRoom(definition, room); err != nil {
		return nil, err
	}

	current := solution.classes.Get(class)
	if current.Room == room {
		return solution, nil
	}
	updated := current
	updated.Room = room
	return solution.withClass(class, current, updated, definition.RoomConstraints, definition.CommonConstraints), nil
}

// WithTime returns the solution obtained by moving a class to another of its admissible times
func (solution *Solution) WithTime(class, time int) (*Solution, error) {
	if class < 0 || class >= len(solution.problem.Classes) {
		return nil, fmt.Errorf("%w: class %v", ErrDomainRange, class)
	}
	definition := &solution.problem.Classes[class]
	if err := checkTime(definition, time); err != nil {
		return nil, err
	}

	current := solution.classes.Get(class)
	if current.Time == time {
		return solution, nil
	}
	updated := current
	updated.Time = time
	return solution.withClass(class, current, updated, definition.TimeConstraints, definition.CommonConstraints), nil
}

// withClass replaces the room or time of a class and re-evaluates the affected constraints, the
// room conflicts of the rooms involved and the conflicts of the students attending the class
func (solution *Solution) withClass(class int, current, updated ClassState, affected ...[]int) *Solution {
	p := solution.problem
	definition := &p.Classes[class]
	next := &Solution{problem: p, totals: solution.totals}

	//** Class penalties
	updated.RoomCapacityPenalty = solution.roomCapacityPenalty(definition, updated.Room, updated.Attendees)
	updated.RoomUnavailablePenalty = solution.roomUnavailablePenalty(definition, updated.Room, updated.Time)
	next.totals.addClass(definition, current, -1)
	next.totals.addClass(definition, updated, 1)

	//** Room conflicts
	before, after := solution.placementOf(class, current), solution.placementOf(class, updated)
	next.totals.classConflicts += solution.roomConflicts(class, after) - solution.roomConflicts(class, before)
	next.classes = solution.classes.Set(class, updated)

	//** Distribution constraints
	view := override{base: solution, class: class, state: updated}
	var constraints []persistent.Override[ConstraintState]
	for _, indices := range affected {
		for _, index := range indices {
			constraint := p.Constraints[index]
			penalty := constraint.Evaluate(view)
			state := ConstraintState{Hard: penalty.Hard, Soft: penalty.Soft, Normalized: constraint.Normalize(penalty)}
			previous := solution.constraints.Get(index)
			if state == previous {
				continue
			}
			next.totals.addConstraint(constraint.Required, previous, -1)
			next.totals.addConstraint(constraint.Required, state, 1)
			constraints = append(constraints, persistent.Override[ConstraintState]{Index: index, Value: state})
		}
	}
	next.constraints = solution.constraints.With(constraints...)

	//** Student conflicts
	next.students = solution.students
	if before != after {
		next.students = solution.students.With(solution.studentDeltas(class, before, after, &next.totals)...)
	}
	return next
}

// studentDeltas recounts the conflicts of the class for every student attending it
func (solution *Solution) studentDeltas(class int, before, after placement, totals *totals) []persistent.Override[StudentState] {
	p := solution.problem
	definition := &p.Classes[class]

	var overrides []persistent.Override[StudentState]
	for _, student := range p.CourseStudents[definition.Course] {
		state := solution.students.Get(student)
		coordinates := p.Students[student].Enrollments[class]
		enrollment := state.Enrollments[coordinates.CourseIndex]
		if enrollment.Config != definition.Config || enrollment.Subparts[definition.Subpart] != definition.Index {
			continue
		}

		active := solution.activeClasses(state.Enrollments, student)
		if len(active) < 2 {
			continue
		}

		delta := solution.conflictsAgainst(class, after, active) - solution.conflictsAgainst(class, before, active)
		if delta == 0 {
			continue
		}
		totals.studentConflicts += delta
		overrides = append(overrides, persistent.Override[StudentState]{
			Index: student,
			Value: StudentState{Enrollments: state.Enrollments, Conflicts: state.Conflicts + delta},
		})
	}
	return overrides
}

// WithEnrollment returns the solution in which the student attends the given leaf class. When the
// class belongs to another configuration than the one the student follows, the student is moved to
// that configuration's baseline first. Ancestors of the class are pinned and sibling subparts are
// moved back under their chosen parents.
func (solution *Solution) WithEnrollment(student, class int) (*Solution, error) {
	p := solution.problem
	if student < 0 || student >= len(p.Students) {
		return nil, fmt.Errorf("%w: student %v", ErrDomainRange, student)
	}
	if class < 0 || class >= len(p.Classes) {
		return nil, fmt.Errorf("%w: class %v", ErrDomainRange, class)
	}
	coordinates, ok := p.Students[student].Enrollments[class]
	if !ok {
		return nil, fmt.Errorf("%w: class %v is not offered to student %v", ErrInvalidEnrollmentTarget, class, student)
	}
	definition := &p.Classes[class]
	if !definition.Leaf() {
		return nil, fmt.Errorf("%w: class %v has child classes", ErrInvalidEnrollmentTarget, class)
	}

	state := solution.students.Get(student)
	current := state.Enrollments[coordinates.CourseIndex]
	sameConfig := current.Config == coordinates.Config

	var base []int
	if sameConfig {
		base = current.Subparts
	}
	chain, err := p.ChainThrough(definition.Course, coordinates.Config, base, class)
	if err != nil {
		return nil, err
	}
	if sameConfig && slices.Equal(chain, current.Subparts) {
		return solution, nil
	}

	next := &Solution{problem: p, constraints: solution.constraints, totals: solution.totals}

	//** Attendees
	oldConfig := &p.Courses[definition.Course].Configs[current.Config]
	newConfig := &p.Courses[definition.Course].Configs[coordinates.Config]
	leaving := make([]int, len(current.Subparts))
	for subpart, index := range current.Subparts {
		leaving[subpart] = oldConfig.ClassAt(subpart, index)
	}
	joining := make([]int, len(chain))
	for subpart, index := range chain {
		joining[subpart] = newConfig.ClassAt(subpart, index)
	}

	var classes []persistent.Override[ClassState]
	for _, id := range leaving {
		if !slices.Contains(joining, id) {
			classes = append(classes, next.withAttendees(id, solution.classes.Get(id), -1))
		}
	}
	for _, id := range joining {
		if !slices.Contains(leaving, id) {
			classes = append(classes, next.withAttendees(id, solution.classes.Get(id), 1))
		}
	}
	next.classes = solution.classes.With(classes...)

	//** Student conflicts
	enrollments := slices.Clone(state.Enrollments)
	enrollments[coordinates.CourseIndex] = EnrollmentState{Config: coordinates.Config, Subparts: chain}

	changed := -1
	if sameConfig {
		for subpart := range chain {
			if chain[subpart] == current.Subparts[subpart] {
				continue
			}
			if changed >= 0 {
				changed = -1
				break
			}
			changed = subpart
		}
	}

	var conflicts int
	if changed >= 0 {
		// A single class was swapped: only its pairs change
		others := solution.activeClasses(state.Enrollments, student)
		removed, added := leaving[changed], joining[changed]
		conflicts = state.Conflicts -
			solution.conflictsAgainst(removed, solution.placement(removed), others) +
			solution.conflictsAgainst(removed, solution.placement(added), others)
	} else {
		conflicts = solution.countConflicts(solution.activeClasses(enrollments, student))
	}
	next.totals.studentConflicts += conflicts - state.Conflicts
	next.students = solution.students.Set(student, StudentState{Enrollments: enrollments, Conflicts: conflicts})

	return next, nil
}

// withAttendees adds delta attendees to a class and refreshes its capacity penalties
func (solution *Solution) withAttendees(class int, current ClassState, delta int) persistent.Override[ClassState] {
	definition := &solution.problem.Classes[class]
	updated := current
	updated.Attendees += delta
	updated.ClassCapacityPenalty = classCapacityPenalty(definition, updated.Attendees)
	updated.RoomCapacityPenalty = solution.roomCapacityPenalty(definition, updated.Room, updated.Attendees)
	solution.totals.addClass(definition, current, -1)
	solution.totals.addClass(definition, updated, 1)
	return persistent.Override[ClassState]{Index: class, Value: updated}
}
