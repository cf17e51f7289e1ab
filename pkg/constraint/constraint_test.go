package constraint

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/edongashi/itc-2019-sub000/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type fakeAssignment struct {
	rooms []int
	times []int
}

func (assignment fakeAssignment) RoomIndex(class int) int { return assignment.rooms[class] }
func (assignment fakeAssignment) TimeIndex(class int) int { return assignment.times[class] }

// fixedClasses builds one roomless class per schedule, each with a single admissible time
func fixedClasses(schedules ...model.Schedule) ([]model.Class, fakeAssignment) {
	classes := make([]model.Class, len(schedules))
	assignment := fakeAssignment{rooms: make([]int, len(schedules)), times: make([]int, len(schedules))}
	for i, schedule := range schedules {
		classes[i] = model.Class{
			Id:        i,
			Parent:    model.NoParent,
			Schedules: []model.ScheduleAssignment{{Schedule: schedule}},
		}
		assignment.rooms[i] = model.NoRoom
	}
	return classes, assignment
}

func definition(kind model.ConstraintKind, required bool, penalty int, params ...int) model.Constraint {
	return model.Constraint{Kind: kind, Params: params, Required: required, Penalty: penalty}
}

func monday(start, length int) model.Schedule {
	return model.Schedule{Weeks: 0b1, Days: 0b1, Start: start, Length: length}
}

func TestMaxBlockScenario(t *testing.T) {
	//** Arrange
	classes, assignment := fixedClasses(monday(0, 2), monday(2, 2), monday(5, 2))
	build := func(required bool, limit int) *Constraint {
		def := definition(model.MaxBlock, required, 5, limit, 0)
		def.Classes = []int{0, 1, 2}
		constraint, err := New(def, classes, model.NewTravelMatrix(nil), 1, 1, DefaultCacheSize)
		require.NoError(t, err)
		return constraint
	}

	//** Act & Assert
	assert.Equal(t, Penalty{Hard: 1}, build(true, 3).Evaluate(assignment))
	assert.Equal(t, Penalty{Soft: 5}, build(false, 3).Evaluate(assignment))
	assert.Equal(t, Penalty{}, build(true, 4).Evaluate(assignment))
}

func TestMaxDaysScenario(t *testing.T) {
	//** Arrange
	classes, assignment := fixedClasses(
		model.Schedule{Weeks: 1, Days: 0b001, Length: 1},
		model.Schedule{Weeks: 1, Days: 0b010, Length: 1},
		model.Schedule{Weeks: 1, Days: 0b100, Length: 1},
	)

	for _, required := range []bool{true, false} {
		def := definition(model.MaxDays, required, 7, 2)
		def.Classes = []int{0, 1, 2}

		//** Act
		constraint, err := New(def, classes, model.NewTravelMatrix(nil), 1, 3, DefaultCacheSize)
		require.NoError(t, err)
		penalty := constraint.Evaluate(assignment)

		//** Assert
		if required {
			assert.Equal(t, Penalty{Hard: 1}, penalty)
		} else {
			assert.Equal(t, Penalty{Soft: 7}, penalty)
		}
	}
}

func TestPairwiseEvaluators(t *testing.T) {
	early := model.Schedule{Weeks: 0b01, Days: 0b01, Start: 0, Length: 10}
	inner := model.Schedule{Weeks: 0b01, Days: 0b01, Start: 2, Length: 4}
	late := model.Schedule{Weeks: 0b01, Days: 0b01, Start: 20, Length: 5}
	tuesday := model.Schedule{Weeks: 0b01, Days: 0b10, Start: 0, Length: 10}
	everyDay := model.Schedule{Weeks: 0b01, Days: 0b11, Start: 0, Length: 10}
	secondWeek := model.Schedule{Weeks: 0b10, Days: 0b01, Start: 0, Length: 10}

	tests := []struct {
		name     string
		kind     model.ConstraintKind
		params   []int
		first    model.Schedule
		second   model.Schedule
		violated bool
	}{
		{"SameStart holds", model.SameStart, nil, early, tuesday, false},
		{"SameStart broken", model.SameStart, nil, early, inner, true},
		{"SameTime containment", model.SameTime, nil, early, inner, false},
		{"SameTime broken", model.SameTime, nil, early, late, true},
		{"DifferentTime holds", model.DifferentTime, nil, early, late, false},
		{"DifferentTime broken", model.DifferentTime, nil, early, inner, true},
		{"SameDays subset", model.SameDays, nil, everyDay, tuesday, false},
		{"SameDays broken", model.SameDays, nil, early, tuesday, true},
		{"DifferentDays holds", model.DifferentDays, nil, early, tuesday, false},
		{"DifferentDays broken", model.DifferentDays, nil, everyDay, tuesday, true},
		{"SameWeeks holds", model.SameWeeks, nil, early, late, false},
		{"SameWeeks broken", model.SameWeeks, nil, early, secondWeek, true},
		{"DifferentWeeks holds", model.DifferentWeeks, nil, early, secondWeek, false},
		{"DifferentWeeks broken", model.DifferentWeeks, nil, early, late, true},
		{"Overlap holds", model.Overlap, nil, early, inner, false},
		{"Overlap broken", model.Overlap, nil, early, tuesday, true},
		{"NotOverlap holds", model.NotOverlap, nil, early, late, false},
		{"NotOverlap broken", model.NotOverlap, nil, early, inner, true},
		{"Precedence by time", model.Precedence, nil, early, late, false},
		{"Precedence reversed", model.Precedence, nil, late, early, true},
		{"Precedence by week", model.Precedence, nil, secondWeek, early, true},
		{"Precedence by day", model.Precedence, nil, early, tuesday, false},
		{"WorkDay holds", model.WorkDay, []int{25}, early, late, false},
		{"WorkDay broken", model.WorkDay, []int{24}, early, late, true},
		{"WorkDay other day", model.WorkDay, []int{1}, early, tuesday, false},
		{"MinGap holds", model.MinGap, []int{10}, early, late, false},
		{"MinGap broken", model.MinGap, []int{11}, late, early, true},
		{"MinGap other week", model.MinGap, []int{100}, early, secondWeek, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			//** Arrange
			classes, assignment := fixedClasses(tt.first, tt.second)
			def := definition(tt.kind, true, 0, tt.params...)
			def.Classes = []int{0, 1}
			constraint, err := New(def, classes, model.NewTravelMatrix(nil), 2, 2, DefaultCacheSize)
			require.NoError(t, err)

			//** Act
			penalty := constraint.Evaluate(assignment)

			//** Assert
			if tt.violated {
				assert.Equal(t, Penalty{Hard: 1}, penalty)
			} else {
				assert.Equal(t, Penalty{}, penalty)
			}
		})
	}
}

func TestRoomEvaluators(t *testing.T) {
	//** Arrange
	rooms := []model.Room{
		{Id: 0, TravelTimes: []model.TravelTime{{Room: 1, Value: 5}}},
		{Id: 1},
	}
	travel := model.NewTravelMatrix(rooms)
	options := []model.RoomAssignment{{Room: 0}, {Room: 1}}
	classes := []model.Class{
		{Id: 0, Rooms: options, Schedules: []model.ScheduleAssignment{{Schedule: monday(0, 10)}}},
		{Id: 1, Rooms: options, Schedules: []model.ScheduleAssignment{{Schedule: monday(12, 10)}}},
		{Id: 2, Schedules: []model.ScheduleAssignment{{Schedule: monday(0, 10)}}},
	}
	build := func(kind model.ConstraintKind, members ...int) *Constraint {
		def := definition(kind, false, 3)
		def.Classes = members
		constraint, err := New(def, classes, travel, 1, 1, DefaultCacheSize)
		require.NoError(t, err)
		return constraint
	}

	sameRooms := fakeAssignment{rooms: []int{0, 0, model.NoRoom}, times: []int{0, 0, 0}}
	differentRooms := fakeAssignment{rooms: []int{0, 1, model.NoRoom}, times: []int{0, 0, 0}}

	//** Act & Assert
	assert.Equal(t, Penalty{}, build(model.SameRoom, 0, 1).Evaluate(sameRooms))
	assert.Equal(t, Penalty{Soft: 3}, build(model.SameRoom, 0, 1).Evaluate(differentRooms))
	assert.Equal(t, Penalty{Soft: 3}, build(model.DifferentRoom, 0, 1).Evaluate(sameRooms))
	assert.Equal(t, Penalty{}, build(model.DifferentRoom, 0, 1, 2).Evaluate(sameRooms.withRoom(1, 1)))

	// A two slot gap is not enough to walk between rooms 0 and 1
	assert.Equal(t, Penalty{}, build(model.SameAttendees, 0, 1).Evaluate(sameRooms))
	assert.Equal(t, Penalty{Soft: 3}, build(model.SameAttendees, 0, 1).Evaluate(differentRooms))
	// Roomless classes never travel, but still must not overlap
	assert.Equal(t, Penalty{Soft: 3}, build(model.SameAttendees, 0, 2).Evaluate(sameRooms))
}

func (assignment fakeAssignment) withRoom(class, room int) fakeAssignment {
	rooms := append([]int(nil), assignment.rooms...)
	rooms[class] = room
	return fakeAssignment{rooms: rooms, times: assignment.times}
}

func TestMaxDayLoadAndBreaks(t *testing.T) {
	//** Arrange
	everyWeek := func(start, length int) model.Schedule {
		return model.Schedule{Weeks: 0b11, Days: 0b1, Start: start, Length: length}
	}
	classes, assignment := fixedClasses(everyWeek(0, 2), everyWeek(4, 2), everyWeek(10, 2))
	build := func(kind model.ConstraintKind, required bool, params ...int) *Constraint {
		def := definition(kind, required, 2, params...)
		def.Classes = []int{0, 1, 2}
		constraint, err := New(def, classes, model.NewTravelMatrix(nil), 2, 1, 0)
		require.NoError(t, err)
		return constraint
	}

	//** Act & Assert
	// Load 6 per (week, day), two weeks
	assert.Equal(t, Penalty{Hard: 2}, build(model.MaxDayLoad, true, 5).Evaluate(assignment))
	assert.Equal(t, Penalty{Soft: 2}, build(model.MaxDayLoad, false, 5).Evaluate(assignment))
	assert.Equal(t, Penalty{Soft: 6}, build(model.MaxDayLoad, false, 3).Evaluate(assignment))

	// Gaps of 2 and 4: S=1 keeps three blocks, S=2 merges the first two
	assert.Equal(t, Penalty{Hard: 2}, build(model.MaxBreaks, true, 1, 1).Evaluate(assignment))
	assert.Equal(t, Penalty{Soft: 2}, build(model.MaxBreaks, false, 1, 1).Evaluate(assignment))
	assert.Equal(t, Penalty{}, build(model.MaxBreaks, true, 1, 2).Evaluate(assignment))
	assert.Equal(t, Penalty{}, build(model.MaxBreaks, true, 0, 4).Evaluate(assignment))
}

func TestDifficulty(t *testing.T) {
	//** Arrange
	classes, assignment := fixedClasses(monday(0, 2), monday(0, 2))
	def := definition(model.DifferentTime, true, 0)
	def.Classes = []int{0, 1}
	constraint, err := New(def, classes, model.NewTravelMatrix(nil), 1, 1, DefaultCacheSize)
	require.NoError(t, err)
	require.Equal(t, Penalty{Hard: 1}, constraint.Evaluate(assignment))

	//** Act
	constraint.SetDifficulty(3)

	//** Assert
	assert.Equal(t, 3, constraint.Difficulty())
	assert.Equal(t, Penalty{Hard: 4}, constraint.Evaluate(assignment))
	_, _, size := constraint.CacheStats()
	assert.Equal(t, 1, size)

	soft := definition(model.DifferentTime, false, 2)
	soft.Classes = []int{0, 1}
	softConstraint, err := New(soft, classes, model.NewTravelMatrix(nil), 1, 1, DefaultCacheSize)
	require.NoError(t, err)
	softConstraint.SetDifficulty(3)
	assert.Equal(t, Penalty{Soft: 2}, softConstraint.Evaluate(assignment), "difficulty only applies to required constraints")
}

func TestCacheTransparency(t *testing.T) {
	//** Arrange
	rng := rand.New(rand.NewPCG(3, 7))
	weeks, days := 3, 3
	rooms := []model.Room{
		{Id: 0, TravelTimes: []model.TravelTime{{Room: 1, Value: 2}, {Room: 2, Value: 6}}},
		{Id: 1, TravelTimes: []model.TravelTime{{Room: 2, Value: 1}}},
		{Id: 2},
	}
	travel := model.NewTravelMatrix(rooms)

	classes := make([]model.Class, 5)
	for i := range classes {
		classes[i] = model.Class{Id: i, Parent: model.NoParent}
		for room := range rng.IntN(3) + 1 {
			classes[i].Rooms = append(classes[i].Rooms, model.RoomAssignment{Room: room})
		}
		for range rng.IntN(4) + 1 {
			classes[i].Schedules = append(classes[i].Schedules, model.ScheduleAssignment{Schedule: model.Schedule{
				Weeks:  uint64(rng.IntN(1<<weeks-1) + 1),
				Days:   uint32(rng.IntN(1<<days-1) + 1),
				Start:  rng.IntN(20),
				Length: rng.IntN(6) + 1,
			}})
		}
	}
	params := map[model.ConstraintKind][]int{
		model.WorkDay: {12}, model.MinGap: {2}, model.MaxDays: {1}, model.MaxDayLoad: {6},
		model.MaxBreaks: {0, 1}, model.MaxBlock: {5, 1},
	}

	for kind := model.SameStart; kind <= model.MaxBlock; kind++ {
		for _, required := range []bool{true, false} {
			def := definition(kind, required, 3, params[kind]...)
			def.Classes = []int{4, 0, 2, 1, 3}
			cached, err := New(def, classes, travel, weeks, days, 8)
			require.NoError(t, err)
			uncached, err := New(def, classes, travel, weeks, days, 0)
			require.NoError(t, err)

			for range 200 {
				//** Act
				assignment := fakeAssignment{rooms: make([]int, len(classes)), times: make([]int, len(classes))}
				for i, class := range classes {
					assignment.rooms[i] = rng.IntN(len(class.Rooms))
					assignment.times[i] = rng.IntN(len(class.Schedules))
				}

				//** Assert
				expected := uncached.Evaluate(assignment)
				require.Equal(t, expected, cached.Evaluate(assignment), "%v required=%v", kind, required)
				require.Equal(t, expected, cached.Evaluate(assignment), "fast path of %v", kind)
			}

			hits, misses, size := cached.CacheStats()
			assert.LessOrEqual(t, size, 8)
			assert.Positive(t, hits+misses)
		}
	}
}

func TestConstraintMetadata(t *testing.T) {
	classes, _ := fixedClasses(monday(0, 1), monday(1, 1), monday(2, 1), monday(3, 1))

	def := definition(model.SameStart, false, 4)
	def.Classes = []int{3, 1, 2}
	soft, err := New(def, classes, model.NewTravelMatrix(nil), 1, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 12, soft.WorstCase)
	assert.InDelta(t, 0.5, soft.Normalize(Penalty{Soft: 6}), 1e-9)
	assert.True(t, soft.InvolvesClass(1))
	assert.False(t, soft.InvolvesClass(0))
	assert.Equal(t, model.TimeCategory, soft.Category())

	def = definition(model.SameRoom, true, 0)
	def.Classes = []int{0}
	single, err := New(def, classes, model.NewTravelMatrix(nil), 1, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, single.WorstCase)
	assert.Equal(t, model.RoomCategory, single.Category())

	_, err = New(definition(model.WorkDay, true, 0), classes, model.NewTravelMatrix(nil), 1, 1, 0)
	assert.Error(t, err)

	def = definition(model.SameStart, true, 0)
	def.Classes = []int{9}
	_, err = New(def, classes, model.NewTravelMatrix(nil), 1, 1, 0)
	assert.Error(t, err)
}

func TestConcurrentEvaluate(t *testing.T) {
	//** Arrange
	rng := rand.New(rand.NewPCG(9, 9))
	rooms := []model.Room{{Id: 0, TravelTimes: []model.TravelTime{{Room: 1, Value: 3}}}, {Id: 1}}
	travel := model.NewTravelMatrix(rooms)
	classes := make([]model.Class, 4)
	for i := range classes {
		classes[i] = model.Class{Id: i, Parent: model.NoParent, Rooms: []model.RoomAssignment{{Room: 0}, {Room: 1}}}
		for range 3 {
			classes[i].Schedules = append(classes[i].Schedules, model.ScheduleAssignment{Schedule: model.Schedule{
				Weeks:  uint64(rng.IntN(3) + 1),
				Days:   uint32(rng.IntN(3) + 1),
				Start:  rng.IntN(12),
				Length: rng.IntN(4) + 1,
			}})
		}
	}

	assignments := make([]fakeAssignment, 64)
	for i := range assignments {
		assignments[i] = fakeAssignment{rooms: make([]int, len(classes)), times: make([]int, len(classes))}
		for class := range classes {
			assignments[i].rooms[class] = rng.IntN(2)
			assignments[i].times[class] = rng.IntN(3)
		}
	}

	for _, kind := range []model.ConstraintKind{model.SameAttendees, model.MaxBlock, model.MaxBreaks, model.NotOverlap} {
		t.Run(kind.String(), func(t *testing.T) {
			params := map[model.ConstraintKind][]int{model.MaxBlock: {4, 1}, model.MaxBreaks: {0, 1}}[kind]
			def := definition(kind, false, 2, params...)
			def.Classes = []int{0, 1, 2, 3}
			shared, err := New(def, classes, travel, 2, 2, 16)
			require.NoError(t, err)
			reference, err := New(def, classes, travel, 2, 2, 0)
			require.NoError(t, err)
			expected := make([]Penalty, len(assignments))
			for i, assignment := range assignments {
				expected[i] = reference.Evaluate(assignment)
			}

			//** Act
			var group errgroup.Group
			for worker := range 8 {
				group.Go(func() error {
					for round := range 50 {
						i := (worker*7 + round*13) % len(assignments)
						if actual := shared.Evaluate(assignments[i]); actual != expected[i] {
							return fmt.Errorf("assignment %v: expected %v, got %v", i, expected[i], actual)
						}
					}
					return nil
				})
			}

			//** Assert
			assert.NoError(t, group.Wait())
			hits, misses, size := shared.CacheStats()
			assert.LessOrEqual(t, hits+misses, uint64(8*50))
			assert.Positive(t, misses)
			assert.LessOrEqual(t, size, 16)
		})
	}
}
