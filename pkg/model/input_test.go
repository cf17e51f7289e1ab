package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleInstance = `{
	"name": "sample",
	"nrDays": 5,
	"nrWeeks": 2,
	"slotsPerDay": 288,
	"optimization": {"time": 2, "room": 1, "distribution": 3, "student": 4},
	"rooms": [
		{"id": 0, "capacity": 30, "unavailable": [{"weeks": "11", "days": "10000", "start": 0, "length": 12}], "travel": [{"room": 1, "value": 2}]},
		{"id": 1, "capacity": 60}
	],
	"courses": [
		{"id": 0, "configs": [
			{"id": 0, "subparts": [
				{"id": 0, "classes": [
					{"id": 0, "limit": 20, "rooms": [{"id": 0, "penalty": 0}, {"id": 1, "penalty": 4}], "times": [{"weeks": "11", "days": "10100", "start": 90, "length": 10, "penalty": 0}]}
				]},
				{"id": 1, "classes": [
					{"id": 1, "parent": 0, "limit": 20, "times": [{"weeks": "01", "days": "01000", "start": 100, "length": 22, "penalty": 1}]}
				]}
			]}
		]}
	],
	"distributions": [
		{"id": 0, "type": "MaxBlock(120,30)", "required": false, "penalty": 2, "classes": [0, 1]},
		{"id": 1, "type": "SameAttendees", "required": true, "classes": [0, 1]}
	],
	"students": [{"id": 0, "courses": [0]}]
}`

func TestInputFromJson(t *testing.T) {
	t.Run("Correct flow", func(t *testing.T) {
		//** Arrange
		file := filepath.Join(t.TempDir(), "instance.json")
		require.NoError(t, os.WriteFile(file, []byte(sampleInstance), 0666))

		//** Act
		input, err := InputFromJson(file)

		//** Assert
		require.NoError(t, err)
		assert.Equal(t, "sample", input.Name)
		assert.Equal(t, 5, input.Days)
		assert.Equal(t, 2, input.Weeks)
		assert.Equal(t, Weights{Time: 2, Room: 1, Distribution: 3, Student: 4}, input.Weights)

		require.Len(t, input.Rooms, 2)
		assert.Equal(t, []Schedule{{Weeks: 0b11, Days: 0b1, Start: 0, Length: 12}}, input.Rooms[0].Unavailable)
		assert.Equal(t, []TravelTime{{Room: 1, Value: 2}}, input.Rooms[0].TravelTimes)

		subparts := input.Courses[0].Configurations[0].Subparts
		require.Len(t, subparts, 2)
		first, second := subparts[0].Classes[0], subparts[1].Classes[0]
		assert.Equal(t, NoParent, first.Parent)
		assert.Equal(t, 0, second.Parent)
		assert.True(t, second.Roomless())
		assert.Equal(t, Schedule{Weeks: 0b11, Days: 0b101, Start: 90, Length: 10}, first.Schedules[0].Schedule)
		assert.Equal(t, 1, second.Schedules[0].Penalty)

		require.Len(t, input.Constraints, 2)
		assert.Equal(t, MaxBlock, input.Constraints[0].Kind)
		assert.Equal(t, []int{120, 30}, input.Constraints[0].Params)
		assert.True(t, input.Constraints[1].Required)
		assert.Equal(t, []int{0}, input.Students[0].Courses)
	})

	t.Run("Error flow", func(t *testing.T) {
		_, err := InputFromJson(filepath.Join(t.TempDir(), "missing.json"))
		assert.Error(t, err)

		file := filepath.Join(t.TempDir(), "broken.json")
		require.NoError(t, os.WriteFile(file, []byte("{"), 0666))
		_, err = InputFromJson(file)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestProcessRawInputValidation(t *testing.T) {
	rawInput := RawInput{
		NrDays:      7,
		NrWeeks:     1,
		SlotsPerDay: 288,
		Courses: []RawCourse{{
			Configs: []RawConfiguration{{
				Subparts: []RawSubpart{{
					Classes: []RawClass{{Limit: -1, Times: []RawSchedule{{Weeks: "1", Days: "1", Length: 1}}}},
				}},
			}},
		}},
	}

	_, err := ProcessRawInput(rawInput)
	assert.ErrorIs(t, err, ErrInvalidInput)

	rawInput.Courses[0].Configs[0].Subparts[0].Classes[0].Limit = 1
	rawInput.Distributions = []RawDistribution{{Type: "Bogus", Classes: []int{0}}}
	_, err = ProcessRawInput(rawInput)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
