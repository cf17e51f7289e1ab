package problem

import (
	"github.com/edongashi/itc-2019-sub000/pkg/model"
	"github.com/onsi/gomega/matchers/support/goraph/bipartitegraph"
	"github.com/samber/lo"
)

// Bounds are upper bounds of every penalty category, each floored at 1, fixed at construction
type Bounds struct {
	// Pairs of classes that need a room
	ClassPairs int
	// Classes that can end up in an unavailable room
	UnavailableWorst int
	// Attendees that can overflow a class or a room
	WorstCapacity     int
	WorstTime         int
	WorstRoom         int
	WorstDistribution int
	WorstStudent      int
}

func (problem *Problem) computeBounds() Bounds {
	var bounds Bounds

	//** Classes
	withRooms := 0
	for i := range problem.Classes {
		class := &problem.Classes[i]
		bounds.WorstTime += lo.MaxBy(class.Schedules, func(a, b model.ScheduleAssignment) bool { return a.Penalty > b.Penalty }).Penalty
		if class.Roomless() {
			continue
		}
		withRooms++
		bounds.WorstRoom += lo.MaxBy(class.Rooms, func(a, b model.RoomAssignment) bool { return a.Penalty > b.Penalty }).Penalty
		if problem.mayBeUnavailable(class) {
			bounds.UnavailableWorst++
		}
	}
	bounds.ClassPairs = withRooms * (withRooms - 1) / 2

	//** Distribution
	for _, constraint := range problem.Constraints {
		if !constraint.Required {
			bounds.WorstDistribution += constraint.WorstCase
		}
	}

	//** Students
	for _, student := range problem.Students {
		length := lo.SumBy(student.Courses, func(course int) int { return problem.LongestChain(course) })
		bounds.WorstStudent += length * (length - 1) / 2
		bounds.WorstCapacity += 2 * length
	}

	for _, value := range []*int{
		&bounds.ClassPairs, &bounds.UnavailableWorst, &bounds.WorstCapacity, &bounds.WorstTime,
		&bounds.WorstRoom, &bounds.WorstDistribution, &bounds.WorstStudent,
	} {
		*value = max(*value, 1)
	}
	return bounds
}

// LongestChain returns the largest number of subparts among the configurations of a course
func (problem *Problem) LongestChain(course int) int {
	return lo.Max(lo.Map(problem.Courses[course].Configs, func(config Config, _ int) int { return len(config.Subparts) }))
}

// Checks whether any admissible (room, time) pair of the class hits an unavailability of the room
func (problem *Problem) mayBeUnavailable(class *Class) bool {
	return lo.SomeBy(class.Rooms, func(option model.RoomAssignment) bool {
		return lo.SomeBy(class.Schedules, func(schedule model.ScheduleAssignment) bool {
			return problem.Unavailable(option.Room, schedule.Schedule)
		})
	})
}

// Checks whether the room is unavailable at some point of the schedule
func (problem *Problem) Unavailable(room int, schedule model.Schedule) bool {
	if room == model.NoRoom {
		return false
	}
	return lo.SomeBy(problem.Rooms[room].Unavailable, func(unavailable model.Schedule) bool {
		return schedule.Overlaps(unavailable, 0)
	})
}

// RoomMatchingBound is a lower bound on the room conflicts of any solution. Classes with a single
// admissible time that need a room are grouped by identical schedule; within a group every class
// needs a distinct room, so the classes left out of a maximum class-room matching must conflict.
func (problem *Problem) RoomMatchingBound() (int, error) {
	groups := lo.GroupBy(lo.Filter(problem.Classes, func(class Class, _ int) bool {
		return len(class.Schedules) == 1 && !class.Roomless()
	}), func(class Class) model.Schedule {
		return class.Schedules[0].Schedule
	})

	bound := 0
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}

		rooms := lo.Uniq(lo.FlatMap(group, func(class Class, _ int) []int {
			return lo.Map(class.Rooms, func(option model.RoomAssignment, _ int) int { return option.Room })
		}))
		neighbours := func(classAny any, roomAny any) (bool, error) {
			class, room := classAny.(int), roomAny.(int)
			return lo.ContainsBy(problem.Classes[class].Rooms, func(option model.RoomAssignment) bool { return option.Room == room }), nil
		}

		// Transform classes and rooms to slices of any
		classesAny, roomsAny := lo.Map(group, func(class Class, _ int) any { return class.Id }), lo.Map(rooms, func(room int, _ int) any { return room })

		graph, err := bipartitegraph.NewBipartiteGraph(classesAny, roomsAny, neighbours)
		if err != nil {
			return 0, err
		}
		bound += len(group) - len(graph.LargestMatching())
	}
	return bound, nil
}
