package model

import (
	"fmt"
	"math/bits"
	"strings"
)

// Schedule is a recurring time interval: it meets at [Start, Start+Length) on every day set in Days
// of every week set in Weeks. Bit 0 of Weeks is the first week of the semester and bit 0 of Days is the first day of the week.
type Schedule struct {
	Weeks  uint64
	Days   uint32
	Start  int
	Length int
}

func (s Schedule) End() int {
	return s.Start + s.Length
}

// Checks whether both schedules meet in at least one common week
func (s Schedule) SharesWeeks(other Schedule) bool {
	return s.Weeks&other.Weeks != 0
}

// Checks whether both schedules meet in at least one common day of the week
func (s Schedule) SharesDays(other Schedule) bool {
	return s.Days&other.Days != 0
}

// Checks whether the two schedules collide once travel minutes are needed between them.
// A travel of 0 reduces it to a plain interval intersection.
func (s Schedule) Overlaps(other Schedule, travel int) bool {
	return s.Weeks&other.Weeks != 0 &&
		s.Days&other.Days != 0 &&
		s.Start < other.End()+travel &&
		other.Start < s.End()+travel
}

// Checks whether the interval of s contains the interval of other
func (s Schedule) Contains(other Schedule) bool {
	return s.Start <= other.Start && other.End() <= s.End()
}

// Checks whether the intervals of both schedules are disjoint (regardless of days and weeks)
func (s Schedule) Disjoint(other Schedule) bool {
	return s.End() <= other.Start || other.End() <= s.Start
}

// FirstWeek returns the index of the first week in which the schedule meets, or -1 if it never does.
func (s Schedule) FirstWeek() int {
	if s.Weeks == 0 {
		return -1
	}
	return bits.TrailingZeros64(s.Weeks)
}

// FirstDay returns the index of the first day of the week in which the schedule meets, or -1 if it never does.
func (s Schedule) FirstDay() int {
	if s.Days == 0 {
		return -1
	}
	return bits.TrailingZeros32(s.Days)
}

func (s Schedule) String() string {
	return fmt.Sprintf("%v %v %v+%v", FormatBits(s.Weeks, bits.Len64(s.Weeks)), FormatBits(uint64(s.Days), bits.Len32(s.Days)), s.Start, s.Length)
}

// ParseBits converts a bit string such as "0101" into a mask where the leftmost character is bit 0
func ParseBits(str string, limit int) (uint64, error) {
	if len(str) > limit {
		return 0, fmt.Errorf("%w: bit string %q is longer than %v", ErrInvalidInput, str, limit)
	}

	var mask uint64
	for i, char := range str {
		switch char {
		case '1':
			mask |= 1 << uint(i)
		case '0':
		default:
			return 0, fmt.Errorf("%w: invalid character %q in bit string %q", ErrInvalidInput, char, str)
		}
	}
	return mask, nil
}

// FormatBits is the inverse of ParseBits
func FormatBits(mask uint64, length int) string {
	var builder strings.Builder
	for i := range length {
		if mask&(1<<uint(i)) != 0 {
			builder.WriteByte('1')
		} else {
			builder.WriteByte('0')
		}
	}
	return builder.String()
}
