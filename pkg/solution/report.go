package solution

import (
	"github.com/edongashi/itc-2019-sub000/pkg/model"
	"github.com/samber/lo"
)

// ViolatedConstraints lists the indices of the constraints with a non-zero penalty
func (solution *Solution) ViolatedConstraints() []int {
	return lo.Filter(lo.Range(solution.constraints.Len()), func(index int, _ int) bool {
		state := solution.constraints.Get(index)
		return state.Hard > 0 || state.Soft > 0
	})
}

// ConflictingStudents lists the students that cannot attend all of their classes
func (solution *Solution) ConflictingStudents() []int {
	return lo.Filter(lo.Range(solution.students.Len()), func(student int, _ int) bool {
		return solution.students.Get(student).Conflicts > 0
	})
}

// ViolatingClasses lists the classes that overflow a capacity, sit in an unavailable room or share
// their room with an overlapping class
func (solution *Solution) ViolatingClasses() []int {
	return lo.Filter(lo.Range(solution.classes.Len()), func(class int, _ int) bool {
		state := solution.classes.Get(class)
		return state.ClassCapacityPenalty > 0 ||
			state.RoomCapacityPenalty > 0 ||
			state.RoomUnavailablePenalty > 0 ||
			solution.roomConflicts(class, solution.placement(class)) > 0
	})
}

// StudentClasses lists the ids of the classes a student attends
func (solution *Solution) StudentClasses(student int) []int {
	return solution.activeClasses(solution.students.Get(student).Enrollments, student)
}

type ClassResult struct {
	Class    int    `json:"class"`
	Room     int    `json:"room"`
	Weeks    string `json:"weeks"`
	Days     string `json:"days"`
	Start    int    `json:"start"`
	Length   int    `json:"length"`
	Students []int  `json:"students"`
}

type Penalties struct {
	Hard                int     `json:"hard"`
	Soft                int     `json:"soft"`
	NormalizedHard      float64 `json:"normalizedHard"`
	NormalizedSoft      float64 `json:"normalizedSoft"`
	ClassConflicts      int     `json:"classConflicts"`
	Capacity            int     `json:"capacity"`
	Unavailable         int     `json:"unavailable"`
	DistributionHard    int     `json:"distributionHard"`
	Time                int     `json:"time"`
	Room                int     `json:"room"`
	DistributionSoft    int     `json:"distributionSoft"`
	StudentConflicts    int     `json:"studentConflicts"`
	ViolatedConstraints []int   `json:"violatedConstraints"`
}

// Result is the exportable form of a solution. Assignment is enough to rebuild the solution with New.
type Result struct {
	Name       string        `json:"name"`
	Penalties  Penalties     `json:"penalties"`
	Classes    []ClassResult `json:"classes"`
	Assignment Assignment    `json:"assignment"`
}

func (solution *Solution) Penalties() Penalties {
	return Penalties{
		Hard:                solution.HardPenalty(),
		Soft:                solution.SoftPenalty(),
		NormalizedHard:      solution.NormalizedHardPenalty(),
		NormalizedSoft:      solution.NormalizedSoftPenalty(),
		ClassConflicts:      solution.ClassConflicts(),
		Capacity:            solution.CapacityPenalty(),
		Unavailable:         solution.UnavailablePenalty(),
		DistributionHard:    solution.DistributionHardPenalty(),
		Time:                solution.TimePenalty(),
		Room:                solution.RoomPenalty(),
		DistributionSoft:    solution.DistributionSoftPenalty(),
		StudentConflicts:    solution.StudentConflicts(),
		ViolatedConstraints: lo.Map(solution.ViolatedConstraints(), func(index int, _ int) int { return solution.problem.Constraints[index].Id }),
	}
}

func (solution *Solution) Result() Result {
	p := solution.problem
	attendees := make([][]int, len(p.Classes))
	for student := range p.Students {
		for _, class := range solution.StudentClasses(student) {
			attendees[class] = append(attendees[class], p.Students[student].Id)
		}
	}

	classes := make([]ClassResult, len(p.Classes))
	for class := range p.Classes {
		at := solution.placement(class)
		classes[class] = ClassResult{
			Class:    p.Classes[class].Id,
			Room:     at.room,
			Weeks:    model.FormatBits(at.schedule.Weeks, p.Weeks),
			Days:     model.FormatBits(uint64(at.schedule.Days), p.Days),
			Start:    at.schedule.Start,
			Length:   at.schedule.Length,
			Students: attendees[class],
		}
	}

	return Result{
		Name:       p.Name,
		Penalties:  solution.Penalties(),
		Classes:    classes,
		Assignment: solution.Assignment(),
	}
}
