package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleOverlaps(t *testing.T) {
	monday := Schedule{Weeks: 0b1, Days: 0b1, Start: 0, Length: 10}

	t.Run("Intersecting intervals", func(t *testing.T) {
		other := Schedule{Weeks: 0b11, Days: 0b1, Start: 5, Length: 10}
		assert.True(t, monday.Overlaps(other, 0))
		assert.True(t, other.Overlaps(monday, 0))
	})

	t.Run("Touching intervals only collide with travel", func(t *testing.T) {
		other := Schedule{Weeks: 0b1, Days: 0b1, Start: 10, Length: 10}
		assert.False(t, monday.Overlaps(other, 0))
		assert.True(t, monday.Overlaps(other, 1))
	})

	t.Run("Disjoint days or weeks never collide", func(t *testing.T) {
		tuesday := Schedule{Weeks: 0b1, Days: 0b10, Start: 0, Length: 10}
		secondWeek := Schedule{Weeks: 0b10, Days: 0b1, Start: 0, Length: 10}
		assert.False(t, monday.Overlaps(tuesday, 100))
		assert.False(t, monday.Overlaps(secondWeek, 100))
	})
}

func TestScheduleIntervals(t *testing.T) {
	outer := Schedule{Start: 0, Length: 10}
	inner := Schedule{Start: 2, Length: 3}
	after := Schedule{Start: 10, Length: 3}

	assert.True(t, outer.Contains(inner))
	assert.False(t, inner.Contains(outer))
	assert.True(t, outer.Disjoint(after))
	assert.False(t, outer.Disjoint(inner))
	assert.Equal(t, 13, after.End())
}

func TestScheduleFirstBits(t *testing.T) {
	schedule := Schedule{Weeks: 0b1100, Days: 0b10}
	assert.Equal(t, 2, schedule.FirstWeek())
	assert.Equal(t, 1, schedule.FirstDay())
	assert.Equal(t, -1, Schedule{}.FirstWeek())
	assert.Equal(t, -1, Schedule{}.FirstDay())
}

func TestParseBits(t *testing.T) {
	t.Run("Correct flow", func(t *testing.T) {
		mask, err := ParseBits("0101", 4)
		require.NoError(t, err)
		assert.Equal(t, uint64(0b1010), mask)
		assert.Equal(t, "0101", FormatBits(mask, 4))
	})

	t.Run("Error flow", func(t *testing.T) {
		_, err := ParseBits("01012", 5)
		assert.ErrorIs(t, err, ErrInvalidInput)

		_, err = ParseBits("0101", 3)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}
