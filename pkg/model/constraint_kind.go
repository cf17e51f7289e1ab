package model

import (
	"fmt"
	"strconv"
	"strings"
)

type ConstraintKind uint8

const (
	SameStart ConstraintKind = iota
	SameTime
	DifferentTime
	SameDays
	DifferentDays
	SameWeeks
	DifferentWeeks
	Overlap
	NotOverlap
	SameRoom
	DifferentRoom
	SameAttendees
	Precedence
	WorkDay
	MinGap
	MaxDays
	MaxDayLoad
	MaxBreaks
	MaxBlock
)

// ConstraintCategory tells which part of a class assignment a constraint reads
type ConstraintCategory uint8

const (
	// Reads only the times of its classes
	TimeCategory ConstraintCategory = iota
	// Reads only the rooms of its classes
	RoomCategory
	// Reads both times and rooms
	CommonCategory
)

type kindInfo struct {
	name     string
	params   int
	category ConstraintCategory
}

var kinds = []kindInfo{
	SameStart:      {"SameStart", 0, TimeCategory},
	SameTime:       {"SameTime", 0, TimeCategory},
	DifferentTime:  {"DifferentTime", 0, TimeCategory},
	SameDays:       {"SameDays", 0, TimeCategory},
	DifferentDays:  {"DifferentDays", 0, TimeCategory},
	SameWeeks:      {"SameWeeks", 0, TimeCategory},
	DifferentWeeks: {"DifferentWeeks", 0, TimeCategory},
	Overlap:        {"Overlap", 0, TimeCategory},
	NotOverlap:     {"NotOverlap", 0, TimeCategory},
	SameRoom:       {"SameRoom", 0, RoomCategory},
	DifferentRoom:  {"DifferentRoom", 0, RoomCategory},
	SameAttendees:  {"SameAttendees", 0, CommonCategory},
	Precedence:     {"Precedence", 0, TimeCategory},
	WorkDay:        {"WorkDay", 1, TimeCategory},
	MinGap:         {"MinGap", 1, TimeCategory},
	MaxDays:        {"MaxDays", 1, TimeCategory},
	MaxDayLoad:     {"MaxDayLoad", 1, TimeCategory},
	MaxBreaks:      {"MaxBreaks", 2, TimeCategory},
	MaxBlock:       {"MaxBlock", 2, TimeCategory},
}

func (kind ConstraintKind) String() string {
	if int(kind) >= len(kinds) {
		return fmt.Sprintf("ConstraintKind(%d)", kind)
	}
	return kinds[kind].name
}

func (kind ConstraintKind) Category() ConstraintCategory {
	return kinds[kind].category
}

// Params returns the number of integer parameters the kind takes
func (kind ConstraintKind) Params() int {
	return kinds[kind].params
}

// ParseConstraintType parses a compact type string such as "SameRoom", "WorkDay(30)" or "MaxBlock(120,30)"
func ParseConstraintType(str string) (ConstraintKind, []int, error) {
	str = strings.TrimSpace(str)
	name, arguments := str, ""
	if open := strings.IndexByte(str, '('); open >= 0 {
		if !strings.HasSuffix(str, ")") {
			return 0, nil, fmt.Errorf("%w: unterminated parameter list in constraint type %q", ErrInvalidInput, str)
		}
		name, arguments = str[:open], str[open+1:len(str)-1]
	}

	for i, info := range kinds {
		if info.name != name {
			continue
		}
		kind := ConstraintKind(i)

		params := make([]int, 0, info.params)
		if strings.TrimSpace(arguments) != "" {
			for _, argument := range strings.Split(arguments, ",") {
				value, err := strconv.Atoi(strings.TrimSpace(argument))
				if err != nil {
					return 0, nil, fmt.Errorf("%w: invalid parameter %q in constraint type %q", ErrInvalidInput, argument, str)
				}
				params = append(params, value)
			}
		}

		if len(params) != info.params {
			return 0, nil, fmt.Errorf("%w: constraint type %q expects %v parameters, got %v", ErrInvalidInput, name, info.params, len(params))
		}
		return kind, params, nil
	}

	return 0, nil, fmt.Errorf("%w: unknown constraint type %q", ErrInvalidInput, str)
}

// FormatConstraintType is the inverse of ParseConstraintType
func FormatConstraintType(kind ConstraintKind, params []int) string {
	if len(params) == 0 {
		return kind.String()
	}
	values := make([]string, len(params))
	for i, param := range params {
		values[i] = strconv.Itoa(param)
	}
	return fmt.Sprintf("%v(%v)", kind, strings.Join(values, ","))
}
