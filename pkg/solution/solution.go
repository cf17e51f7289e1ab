// Package solution holds immutable timetables of a Problem together with their penalties.
//
// A Solution is never modified: WithRoom, WithTime and WithEnrollment return a new Solution that
// shares most of its per-class, per-student and per-constraint state with the receiver and only
// re-evaluates what the change can affect. New evaluates an assignment from scratch and is the
// reference every delta update must agree with.
package solution

import (
	"errors"
	"fmt"
	"log"
	"slices"

	"github.com/edongashi/itc-2019-sub000/pkg/model"
	"github.com/edongashi/itc-2019-sub000/pkg/persistent"
	"github.com/edongashi/itc-2019-sub000/pkg/problem"
)

var (
	ErrDomainRange             = errors.New("index out of domain")
	ErrInvalidEnrollmentTarget = errors.New("invalid enrollment target")
)

type ClassState struct {
	// Index into the class' admissible rooms, model.NoRoom for roomless classes
	Room int
	// Index into the class' admissible schedules
	Time                   int
	Attendees              int
	ClassCapacityPenalty   int
	RoomCapacityPenalty    int
	RoomUnavailablePenalty int
}

// EnrollmentState is the chain a student follows in one course
type EnrollmentState struct {
	Config int `json:"config"`
	// Class index per subpart of the configuration
	Subparts []int `json:"subparts"`
}

type StudentState struct {
	// One per course of the student, in the student's course order
	Enrollments []EnrollmentState
	// Pairs of the student's classes that overlap once travel is taken into account
	Conflicts int
}

type ConstraintState struct {
	Hard       int
	Soft       int
	Normalized float64
}

// Assignment is a complete set of decisions from which a Solution can be evaluated
type Assignment struct {
	Rooms       []int               `json:"rooms"`
	Times       []int               `json:"times"`
	Enrollments [][]EnrollmentState `json:"enrollments"`
}

type totals struct {
	classConflicts         int
	classCapacity          int
	roomCapacity           int
	roomUnavailable        int
	time                   int
	room                   int
	distributionHard       int
	distributionSoft       int
	distributionNormalized float64
	studentConflicts       int
}

type Solution struct {
	problem     *problem.Problem
	classes     persistent.Array[ClassState]
	students    persistent.Array[StudentState]
	constraints persistent.Array[ConstraintState]
	totals      totals
}

// Initial places every class in its cheapest room and time and every student in the baseline
// chain of the first configuration of each course
func Initial(p *problem.Problem) *Solution {
	assignment := Assignment{
		Rooms:       make([]int, len(p.Classes)),
		Times:       make([]int, len(p.Classes)),
		Enrollments: make([][]EnrollmentState, len(p.Students)),
	}
	for i := range p.Classes {
		if p.Classes[i].Roomless() {
			assignment.Rooms[i] = model.NoRoom
		}
	}
	for i, student := range p.Students {
		for _, course := range student.Courses {
			assignment.Enrollments[i] = append(assignment.Enrollments[i], EnrollmentState{
				Config:   0,
				Subparts: slices.Clone(p.Courses[course].Configs[0].Baseline),
			})
		}
	}

	solution, err := New(p, assignment)
	if err != nil {
		log.Panicf("solution: baseline assignment rejected: %v", err)
	}
	return solution
}

// New evaluates an assignment from scratch
func New(p *problem.Problem, assignment Assignment) (*Solution, error) {
	if len(assignment.Rooms) != len(p.Classes) || len(assignment.Times) != len(p.Classes) || len(assignment.Enrollments) != len(p.Students) {
		return nil, fmt.Errorf("%w: assignment does not match the problem size", ErrDomainRange)
	}

	//** Check classes
	classes := make([]ClassState, len(p.Classes))
	for i := range p.Classes {
		class := &p.Classes[i]
		if err := checkRoom(class, assignment.Rooms[i]); err != nil {
			return nil, err
		}
		if err := checkTime(class, assignment.Times[i]); err != nil {
			return nil, err
		}
		classes[i] = ClassState{Room: assignment.Rooms[i], Time: assignment.Times[i]}
	}

	//** Route students
	students := make([]StudentState, len(p.Students))
	for i, student := range p.Students {
		enrollments := assignment.Enrollments[i]
		if len(enrollments) != len(student.Courses) {
			return nil, fmt.Errorf("%w: student %v has %v enrollments for %v courses", ErrDomainRange, student.Id, len(enrollments), len(student.Courses))
		}
		for courseIndex, enrollment := range enrollments {
			course := student.Courses[courseIndex]
			if enrollment.Config < 0 || enrollment.Config >= len(p.Courses[course].Configs) {
				return nil, fmt.Errorf("%w: configuration %v of course %v", ErrDomainRange, enrollment.Config, course)
			}
			if !p.ValidChain(course, enrollment.Config, enrollment.Subparts) {
				return nil, fmt.Errorf("%w: student %v does not follow a valid chain in course %v", ErrInvalidEnrollmentTarget, student.Id, course)
			}
			config := &p.Courses[course].Configs[enrollment.Config]
			for subpart, index := range enrollment.Subparts {
				classes[config.ClassAt(subpart, index)].Attendees++
			}
		}
		students[i] = StudentState{Enrollments: cloneEnrollments(enrollments)}
	}

	solution := &Solution{problem: p}

	//** Evaluate classes
	for i := range classes {
		class, state := &p.Classes[i], &classes[i]
		state.ClassCapacityPenalty = classCapacityPenalty(class, state.Attendees)
		state.RoomCapacityPenalty = solution.roomCapacityPenalty(class, state.Room, state.Attendees)
		state.RoomUnavailablePenalty = solution.roomUnavailablePenalty(class, state.Room, state.Time)
		solution.totals.addClass(class, *state, 1)
	}
	solution.classes = persistent.New(classes)

	for i := range p.Classes {
		for j := i + 1; j < len(p.Classes); j++ {
			if solution.roomConflict(i, solution.placement(i), j, solution.placement(j)) {
				solution.totals.classConflicts++
			}
		}
	}

	//** Evaluate students
	for i := range students {
		active := solution.activeClasses(students[i].Enrollments, i)
		students[i].Conflicts = solution.countConflicts(active)
		solution.totals.studentConflicts += students[i].Conflicts
	}
	solution.students = persistent.New(students)

	//** Evaluate constraints
	constraints := make([]ConstraintState, len(p.Constraints))
	for i, constraint := range p.Constraints {
		penalty := constraint.Evaluate(solution)
		constraints[i] = ConstraintState{Hard: penalty.Hard, Soft: penalty.Soft, Normalized: constraint.Normalize(penalty)}
		solution.totals.addConstraint(constraint.Required, constraints[i], 1)
	}
	solution.constraints = persistent.New(constraints)

	return solution, nil
}

func checkRoom(class *problem.Class, room int) error {
	if class.Roomless() {
		if room != model.NoRoom {
			return fmt.Errorf("%w: roomless class %v cannot take room %v", ErrDomainRange, class.Id, room)
		}
		return nil
	}
	if room < 0 || room >= len(class.Rooms) {
		return fmt.Errorf("%w: room %v of class %v (domain %v)", ErrDomainRange, room, class.Id, len(class.Rooms))
	}
	return nil
}

func checkTime(class *problem.Class, time int) error {
	if time < 0 || time >= len(class.Schedules) {
		return fmt.Errorf("%w: time %v of class %v (domain %v)", ErrDomainRange, time, class.Id, len(class.Schedules))
	}
	return nil
}

func cloneEnrollments(enrollments []EnrollmentState) []EnrollmentState {
	cloned := make([]EnrollmentState, len(enrollments))
	for i, enrollment := range enrollments {
		cloned[i] = EnrollmentState{Config: enrollment.Config, Subparts: slices.Clone(enrollment.Subparts)}
	}
	return cloned
}

func (totals *totals) addClass(class *problem.Class, state ClassState, sign int) {
	totals.classCapacity += sign * state.ClassCapacityPenalty
	totals.roomCapacity += sign * state.RoomCapacityPenalty
	totals.roomUnavailable += sign * state.RoomUnavailablePenalty
	totals.time += sign * class.Schedules[state.Time].Penalty
	if state.Room != model.NoRoom {
		totals.room += sign * class.Rooms[state.Room].Penalty
	}
}

func (totals *totals) addConstraint(required bool, state ConstraintState, sign int) {
	totals.distributionHard += sign * state.Hard
	totals.distributionSoft += sign * state.Soft
	if required {
		totals.distributionNormalized += float64(sign) * state.Normalized
	}
}

func (solution *Solution) Problem() *problem.Problem {
	return solution.problem
}

// RoomIndex implements constraint.Assignment
func (solution *Solution) RoomIndex(class int) int {
	return solution.classes.Get(class).Room
}

// TimeIndex implements constraint.Assignment
func (solution *Solution) TimeIndex(class int) int {
	return solution.classes.Get(class).Time
}

func (solution *Solution) Class(class int) ClassState {
	return solution.classes.Get(class)
}

func (solution *Solution) Student(student int) StudentState {
	return solution.students.Get(student)
}

func (solution *Solution) Constraint(constraint int) ConstraintState {
	return solution.constraints.Get(constraint)
}

// Assignment extracts the decisions of the solution
func (solution *Solution) Assignment() Assignment {
	classes := solution.classes.Slice()
	assignment := Assignment{
		Rooms:       make([]int, len(classes)),
		Times:       make([]int, len(classes)),
		Enrollments: make([][]EnrollmentState, solution.students.Len()),
	}
	for i, state := range classes {
		assignment.Rooms[i], assignment.Times[i] = state.Room, state.Time
	}
	for i := range assignment.Enrollments {
		assignment.Enrollments[i] = cloneEnrollments(solution.students.Get(i).Enrollments)
	}
	return assignment
}

func (solution *Solution) ClassConflicts() int {
	return solution.totals.classConflicts
}

func (solution *Solution) CapacityPenalty() int {
	return solution.totals.classCapacity + solution.totals.roomCapacity
}

func (solution *Solution) UnavailablePenalty() int {
	return solution.totals.roomUnavailable
}

func (solution *Solution) TimePenalty() int {
	return solution.totals.time
}

func (solution *Solution) RoomPenalty() int {
	return solution.totals.room
}

func (solution *Solution) DistributionHardPenalty() int {
	return solution.totals.distributionHard
}

func (solution *Solution) DistributionSoftPenalty() int {
	return solution.totals.distributionSoft
}

func (solution *Solution) StudentConflicts() int {
	return solution.totals.studentConflicts
}

func (solution *Solution) HardPenalty() int {
	t := solution.totals
	return t.classConflicts + t.classCapacity + t.roomCapacity + t.roomUnavailable + t.distributionHard
}

// SoftPenalty weighs every soft category with the optimization weights of the problem
func (solution *Solution) SoftPenalty() int {
	t, w := solution.totals, solution.problem.Weights
	return w.Time*t.time + w.Room*t.room + w.Distribution*t.distributionSoft + w.Student*t.studentConflicts
}

func (solution *Solution) Feasible() bool {
	return solution.HardPenalty() == 0
}

// NormalizedHardPenalty adds every hard category divided by its worst case, plus the normalized
// penalty of every required constraint
func (solution *Solution) NormalizedHardPenalty() float64 {
	t, b := solution.totals, solution.problem.Bounds
	return float64(t.classConflicts)/float64(b.ClassPairs) +
		float64(t.roomUnavailable)/float64(b.UnavailableWorst) +
		float64(t.classCapacity+t.roomCapacity)/float64(b.WorstCapacity) +
		t.distributionNormalized
}

// NormalizedSoftPenalty is the weighted mean of every soft category divided by its worst case
func (solution *Solution) NormalizedSoftPenalty() float64 {
	t, b, w := solution.totals, solution.problem.Bounds, solution.problem.Weights
	total := w.Time + w.Room + w.Distribution + w.Student
	if total == 0 {
		return 0
	}
	sum := float64(w.Time)*float64(t.time)/float64(b.WorstTime) +
		float64(w.Room)*float64(t.room)/float64(b.WorstRoom) +
		float64(w.Distribution)*float64(t.distributionSoft)/float64(b.WorstDistribution) +
		float64(w.Student)*float64(t.studentConflicts)/float64(b.WorstStudent)
	return sum / float64(total)
}

func (solution *Solution) String() string {
	return fmt.Sprintf("hard=%v soft=%v (time=%v room=%v distribution=%v student=%v)",
		solution.HardPenalty(), solution.SoftPenalty(), solution.totals.time, solution.totals.room, solution.totals.distributionSoft, solution.totals.studentConflicts)
}
