package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

var ErrInvalidInput = errors.New("invalid input")

type RawSchedule struct {
	Weeks   string `validate:"required"`
	Days    string `validate:"required"`
	Start   int    `validate:"gte=0"`
	Length  int    `validate:"gt=0"`
	Penalty int    `validate:"gte=0"`
}

type RawTravel struct {
	Room  int `validate:"gte=0"`
	Value int `validate:"gte=0"`
}

type RawRoom struct {
	Id          int           `validate:"gte=0"`
	Capacity    int           `validate:"gte=0"`
	Unavailable []RawSchedule `validate:"dive"`
	Travel      []RawTravel   `validate:"dive"`
}

type RawRoomOption struct {
	Id      int `validate:"gte=0"`
	Penalty int `validate:"gte=0"`
}

type RawClass struct {
	Id     int             `validate:"gte=0"`
	Parent *int            `validate:"omitempty,gte=0"`
	Limit  int             `validate:"gte=0"`
	Rooms  []RawRoomOption `validate:"dive"`
	Times  []RawSchedule   `validate:"min=1,dive"`
}

type RawSubpart struct {
	Id      int        `validate:"gte=0"`
	Classes []RawClass `validate:"min=1,dive"`
}

type RawConfiguration struct {
	Id       int          `validate:"gte=0"`
	Subparts []RawSubpart `validate:"min=1,dive"`
}

type RawCourse struct {
	Id      int                `validate:"gte=0"`
	Configs []RawConfiguration `validate:"min=1,dive"`
}

type RawDistribution struct {
	Id       int    `validate:"gte=0"`
	Type     string `validate:"required"`
	Required bool
	Penalty  int   `validate:"gte=0"`
	Classes  []int `validate:"min=1,dive,gte=0"`
}

type RawStudent struct {
	Id      int   `validate:"gte=0"`
	Courses []int `validate:"dive,gte=0"`
}

type RawOptimization struct {
	Time         int `validate:"gte=0"`
	Room         int `validate:"gte=0"`
	Distribution int `validate:"gte=0"`
	Student      int `validate:"gte=0"`
}

type RawInput struct {
	Name          string
	NrDays        int               `mapstructure:"nrDays" validate:"gt=0,lte=32"`
	NrWeeks       int               `mapstructure:"nrWeeks" validate:"gt=0,lte=64"`
	SlotsPerDay   int               `mapstructure:"slotsPerDay" validate:"gt=0"`
	Optimization  RawOptimization
	Rooms         []RawRoom         `validate:"dive"`
	Courses       []RawCourse       `validate:"dive"`
	Distributions []RawDistribution `validate:"dive"`
	Students      []RawStudent      `validate:"dive"`
}

func InputFromJson(file string) (Instance, error) {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return Instance{}, err
	}
	var inputJson map[string]any
	if err := json.Unmarshal(bytes, &inputJson); err != nil {
		return Instance{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var rawInput RawInput
	if err := mapstructure.Decode(inputJson, &rawInput); err != nil {
		return Instance{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return ProcessRawInput(rawInput)
}

// ProcessRawInput validates the raw input and converts it into an Instance: bit strings become masks
// and constraint type strings become kinds with their parameters
func ProcessRawInput(rawInput RawInput) (Instance, error) {
	if err := validator.New().Struct(rawInput); err != nil {
		return Instance{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	input := Instance{
		Name:        rawInput.Name,
		Days:        rawInput.NrDays,
		Weeks:       rawInput.NrWeeks,
		SlotsPerDay: rawInput.SlotsPerDay,
		Weights: Weights{
			Time:         rawInput.Optimization.Time,
			Room:         rawInput.Optimization.Room,
			Distribution: rawInput.Optimization.Distribution,
			Student:      rawInput.Optimization.Student,
		},
	}

	parseSchedule := func(raw RawSchedule) (Schedule, error) {
		weeks, err := ParseBits(raw.Weeks, rawInput.NrWeeks)
		if err != nil {
			return Schedule{}, err
		}
		days, err := ParseBits(raw.Days, rawInput.NrDays)
		if err != nil {
			return Schedule{}, err
		}
		return Schedule{Weeks: weeks, Days: uint32(days), Start: raw.Start, Length: raw.Length}, nil
	}

	//** Manage rooms
	for _, rawRoom := range rawInput.Rooms {
		room := Room{
			Id:       rawRoom.Id,
			Capacity: rawRoom.Capacity,
			TravelTimes: lo.Map(rawRoom.Travel, func(travel RawTravel, _ int) TravelTime {
				return TravelTime{Room: travel.Room, Value: travel.Value}
			}),
		}
		for _, rawUnavailable := range rawRoom.Unavailable {
			schedule, err := parseSchedule(rawUnavailable)
			if err != nil {
				return Instance{}, fmt.Errorf("room %v: %w", rawRoom.Id, err)
			}
			room.Unavailable = append(room.Unavailable, schedule)
		}
		input.Rooms = append(input.Rooms, room)
	}

	//** Manage courses
	for _, rawCourse := range rawInput.Courses {
		course := Course{Id: rawCourse.Id}
		for _, rawConfiguration := range rawCourse.Configs {
			configuration := Configuration{Id: rawConfiguration.Id}
			for _, rawSubpart := range rawConfiguration.Subparts {
				subpart := Subpart{Id: rawSubpart.Id}
				for _, rawClass := range rawSubpart.Classes {
					class := Class{
						Id:       rawClass.Id,
						Parent:   NoParent,
						Capacity: rawClass.Limit,
						Rooms: lo.Map(rawClass.Rooms, func(option RawRoomOption, _ int) RoomAssignment {
							return RoomAssignment{Room: option.Id, Penalty: option.Penalty}
						}),
					}
					if rawClass.Parent != nil {
						class.Parent = *rawClass.Parent
					}
					for _, rawTime := range rawClass.Times {
						schedule, err := parseSchedule(rawTime)
						if err != nil {
							return Instance{}, fmt.Errorf("class %v: %w", rawClass.Id, err)
						}
						class.Schedules = append(class.Schedules, ScheduleAssignment{Schedule: schedule, Penalty: rawTime.Penalty})
					}
					subpart.Classes = append(subpart.Classes, class)
				}
				configuration.Subparts = append(configuration.Subparts, subpart)
			}
			course.Configurations = append(course.Configurations, configuration)
		}
		input.Courses = append(input.Courses, course)
	}

	//** Manage distributions
	for _, rawDistribution := range rawInput.Distributions {
		kind, params, err := ParseConstraintType(rawDistribution.Type)
		if err != nil {
			return Instance{}, fmt.Errorf("distribution %v: %w", rawDistribution.Id, err)
		}
		input.Constraints = append(input.Constraints, Constraint{
			Id:       rawDistribution.Id,
			Kind:     kind,
			Params:   params,
			Required: rawDistribution.Required,
			Penalty:  rawDistribution.Penalty,
			Classes:  slices.Clone(rawDistribution.Classes),
		})
	}

	//** Manage students
	input.Students = lo.Map(rawInput.Students, func(rawStudent RawStudent, _ int) Student {
		return Student{Id: rawStudent.Id, Courses: slices.Clone(rawStudent.Courses)}
	})

	return input, nil
}
