package solution

import (
	"github.com/edongashi/itc-2019-sub000/pkg/model"
	"github.com/edongashi/itc-2019-sub000/pkg/problem"
)

// placement is where and when a class meets: a room id (model.NoRoom when roomless) and a schedule
type placement struct {
	room     int
	schedule model.Schedule
}

func (solution *Solution) placement(class int) placement {
	return solution.placementOf(class, solution.classes.Get(class))
}

func (solution *Solution) placementOf(class int, state ClassState) placement {
	definition := &solution.problem.Classes[class]
	room := model.NoRoom
	if state.Room != model.NoRoom {
		room = definition.Rooms[state.Room].Room
	}
	return placement{room: room, schedule: definition.Schedules[state.Time].Schedule}
}

// override presents a solution as if one class held a different state
type override struct {
	base  *Solution
	class int
	state ClassState
}

func (view override) RoomIndex(class int) int {
	if class == view.class {
		return view.state.Room
	}
	return view.base.RoomIndex(class)
}

func (view override) TimeIndex(class int) int {
	if class == view.class {
		return view.state.Time
	}
	return view.base.TimeIndex(class)
}

func classCapacityPenalty(class *problem.Class, attendees int) int {
	return max(attendees-class.Capacity, 0)
}

func (solution *Solution) roomCapacityPenalty(class *problem.Class, room, attendees int) int {
	if room == model.NoRoom {
		return 0
	}
	return max(attendees-solution.problem.Rooms[class.Rooms[room].Room].Capacity, 0)
}

func (solution *Solution) roomUnavailablePenalty(class *problem.Class, room, time int) int {
	if room == model.NoRoom {
		return 0
	}
	if solution.problem.Unavailable(class.Rooms[room].Room, class.Schedules[time].Schedule) {
		return 1
	}
	return 0
}

// Checks whether two distinct classes share a room at overlapping times
func (solution *Solution) roomConflict(a int, placementA placement, b int, placementB placement) bool {
	return a != b &&
		placementA.room != model.NoRoom &&
		placementA.room == placementB.room &&
		placementA.schedule.Overlaps(placementB.schedule, 0)
}

// roomConflicts counts the classes that conflict with the class placed as given. Only the classes
// that can use the room are visited.
func (solution *Solution) roomConflicts(class int, at placement) int {
	if at.room == model.NoRoom {
		return 0
	}
	conflicts := 0
	for _, other := range solution.problem.RoomClasses[at.room] {
		if solution.roomConflict(class, at, other, solution.placement(other)) {
			conflicts++
		}
	}
	return conflicts
}

// Checks whether a student cannot attend both placements
func (solution *Solution) studentConflict(a, b placement) bool {
	return a.schedule.Overlaps(b.schedule, solution.problem.Travel.Between(a.room, b.room))
}

// activeClasses lists the class ids a student attends under the given enrollments
func (solution *Solution) activeClasses(enrollments []EnrollmentState, student int) []int {
	p := solution.problem
	var active []int
	for courseIndex, enrollment := range enrollments {
		config := &p.Courses[p.Students[student].Courses[courseIndex]].Configs[enrollment.Config]
		for subpart, index := range enrollment.Subparts {
			active = append(active, config.ClassAt(subpart, index))
		}
	}
	return active
}

func (solution *Solution) countConflicts(active []int) int {
	placements := make([]placement, len(active))
	for i, class := range active {
		placements[i] = solution.placement(class)
	}
	conflicts := 0
	for i := range placements {
		for j := i + 1; j < len(placements); j++ {
			if solution.studentConflict(placements[i], placements[j]) {
				conflicts++
			}
		}
	}
	return conflicts
}

// conflictsAgainst counts the classes of others (skipping class itself) a student could not attend
// together with a class placed as given
func (solution *Solution) conflictsAgainst(class int, at placement, others []int) int {
	conflicts := 0
	for _, other := range others {
		if other != class && solution.studentConflict(at, solution.placement(other)) {
			conflicts++
		}
	}
	return conflicts
}
