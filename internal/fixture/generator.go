// Package fixture generates random but structurally valid timetabling instances for tests and benchmarks.
package fixture

import (
	"math/rand/v2"

	"github.com/edongashi/itc-2019-sub000/pkg/model"
	"github.com/samber/lo"
)

type Options struct {
	Rooms       int
	Courses     int
	Students    int
	Constraints int
	Weeks       int
	Days        int
	SlotsPerDay int
}

func DefaultOptions() Options {
	return Options{
		Rooms:       4,
		Courses:     5,
		Students:    12,
		Constraints: 10,
		Weeks:       2,
		Days:        3,
		SlotsPerDay: 24,
	}
}

// kinds generated together with a parameter factory
var kinds = map[model.ConstraintKind]func(rng *rand.Rand) []int{
	model.SameStart:      nil,
	model.SameTime:       nil,
	model.DifferentTime:  nil,
	model.SameDays:       nil,
	model.DifferentDays:  nil,
	model.SameWeeks:      nil,
	model.DifferentWeeks: nil,
	model.Overlap:        nil,
	model.NotOverlap:     nil,
	model.SameRoom:       nil,
	model.DifferentRoom:  nil,
	model.SameAttendees:  nil,
	model.Precedence:     nil,
	model.WorkDay:        func(rng *rand.Rand) []int { return []int{rng.IntN(12) + 4} },
	model.MinGap:         func(rng *rand.Rand) []int { return []int{rng.IntN(4)} },
	model.MaxDays:        func(rng *rand.Rand) []int { return []int{rng.IntN(2) + 1} },
	model.MaxDayLoad:     func(rng *rand.Rand) []int { return []int{rng.IntN(8) + 2} },
	model.MaxBreaks:      func(rng *rand.Rand) []int { return []int{rng.IntN(2), rng.IntN(3)} },
	model.MaxBlock:       func(rng *rand.Rand) []int { return []int{rng.IntN(6) + 2, rng.IntN(3)} },
}

// GenerateInstance builds a random instance. Every subpart has classes with a positive capacity
// and every class of a parented subpart has a parent in the previous subpart, so every
// configuration has a baseline chain.
func GenerateInstance(rng *rand.Rand, options Options) model.Instance {
	instance := model.Instance{
		Name:        "generated",
		Days:        options.Days,
		Weeks:       options.Weeks,
		SlotsPerDay: options.SlotsPerDay,
		Weights: model.Weights{
			Time:         rng.IntN(3) + 1,
			Room:         rng.IntN(3) + 1,
			Distribution: rng.IntN(3) + 1,
			Student:      rng.IntN(3) + 1,
		},
	}

	schedule := func() model.Schedule {
		length := rng.IntN(5) + 1
		return model.Schedule{
			Weeks:  uint64(rng.IntN(1<<options.Weeks-1) + 1),
			Days:   uint32(rng.IntN(1<<options.Days-1) + 1),
			Start:  rng.IntN(options.SlotsPerDay - length + 1),
			Length: length,
		}
	}

	//** Generate rooms
	for id := range options.Rooms {
		room := model.Room{Id: id, Capacity: rng.IntN(6) + 2}
		if rng.Float32() < 0.3 {
			room.Unavailable = append(room.Unavailable, schedule())
		}
		for other := range options.Rooms {
			if other != id && rng.Float32() < 0.4 {
				room.TravelTimes = append(room.TravelTimes, model.TravelTime{Room: other, Value: rng.IntN(4)})
			}
		}
		instance.Rooms = append(instance.Rooms, room)
	}

	//** Generate courses
	nextClass := 0
	for id := range options.Courses {
		course := model.Course{Id: id}
		for k := range rng.IntN(2) + 1 {
			configuration := model.Configuration{Id: k}
			var previous []int
			for s := range rng.IntN(3) + 1 {
				subpart := model.Subpart{Id: s}
				parented := len(previous) > 0 && rng.Float32() < 0.5
				size := rng.IntN(3) + 1
				if parented {
					size = max(size, len(previous))
				}

				var ids []int
				for j := range size {
					class := model.Class{Id: nextClass, Parent: model.NoParent, Capacity: rng.IntN(5) + 1}
					if parented {
						class.Parent = previous[j%len(previous)]
					}
					if options.Rooms > 0 && rng.Float32() > 0.15 {
						for _, room := range rng.Perm(options.Rooms)[:rng.IntN(min(3, options.Rooms))+1] {
							class.Rooms = append(class.Rooms, model.RoomAssignment{Room: room, Penalty: rng.IntN(4)})
						}
					}
					for range rng.IntN(4) + 1 {
						class.Schedules = append(class.Schedules, model.ScheduleAssignment{Schedule: schedule(), Penalty: rng.IntN(4)})
					}
					subpart.Classes = append(subpart.Classes, class)
					ids = append(ids, nextClass)
					nextClass++
				}
				previous = ids
				configuration.Subparts = append(configuration.Subparts, subpart)
			}
			course.Configurations = append(course.Configurations, configuration)
		}
		instance.Courses = append(instance.Courses, course)
	}

	//** Generate constraints
	// Declaration order keeps a seed reproducible
	kindList := lo.Filter(kindsInOrder(), func(kind model.ConstraintKind, _ int) bool {
		_, ok := kinds[kind]
		return ok
	})
	for id := range options.Constraints {
		kind := kindList[rng.IntN(len(kindList))]
		var params []int
		if factory := kinds[kind]; factory != nil {
			params = factory(rng)
		}
		size := min(rng.IntN(3)+2, nextClass)
		instance.Constraints = append(instance.Constraints, model.Constraint{
			Id:       id,
			Kind:     kind,
			Params:   params,
			Required: rng.Float32() < 0.3,
			Penalty:  rng.IntN(5) + 1,
			Classes:  rng.Perm(nextClass)[:size],
		})
	}

	//** Generate students
	for id := range options.Students {
		courses := rng.Perm(options.Courses)[:rng.IntN(min(3, options.Courses))+1]
		instance.Students = append(instance.Students, model.Student{Id: id, Courses: courses})
	}

	return instance
}

func kindsInOrder() []model.ConstraintKind {
	ordered := make([]model.ConstraintKind, 0, len(kinds))
	for kind := model.SameStart; kind <= model.MaxBlock; kind++ {
		ordered = append(ordered, kind)
	}
	return ordered
}
