package persistent

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrayRoundTrip(t *testing.T) {
	//** Arrange
	values := make([]int, 3*ChunkSize+17)
	for i := range values {
		values[i] = i * 10
	}
	array := New(values)

	for _, index := range []int{0, 1, ChunkSize - 1, ChunkSize, len(values) - 1} {
		//** Act
		modified := array.Set(index, -1)

		//** Assert
		assert.Equal(t, -1, modified.Get(index))
		for j := range values {
			if j != index {
				require.Equal(t, values[j], modified.Get(j))
			}
			require.Equal(t, values[j], array.Get(j), "receiver must not change")
		}
		assert.True(t, modified.SharesStorage(array))
	}
}

func TestArrayCompaction(t *testing.T) {
	//** Arrange
	values := make([]int, 2*ChunkSize)
	array := New(values)
	expected := make([]int, len(values))

	//** Act
	current := array
	for i := range MaxOverrides + 1 {
		index := i * 7 % len(values)
		current = current.Set(index, i+1)
		expected[index] = i + 1
	}

	//** Assert
	assert.Equal(t, 0, current.Overrides(), "overrides must be folded into fresh chunks")
	assert.False(t, current.SharesStorage(array))
	assert.Equal(t, expected, current.Slice())
	assert.Equal(t, make([]int, len(values)), array.Slice())

	// Writes after compaction still behave
	next := current.Set(3, 42)
	assert.Equal(t, 42, next.Get(3))
	assert.Equal(t, expected[3], current.Get(3))
}

func TestArrayWithDuplicates(t *testing.T) {
	array := New([]string{"a", "b", "c"})

	modified := array.With(
		Override[string]{Index: 1, Value: "x"},
		Override[string]{Index: 1, Value: "y"},
		Override[string]{Index: 0, Value: "z"},
	)

	assert.Equal(t, []string{"z", "y", "c"}, modified.Slice())
	assert.Equal(t, 2, modified.Overrides())

	again := modified.Set(1, "w")
	assert.Equal(t, []string{"z", "w", "c"}, again.Slice())
	assert.Equal(t, 2, again.Overrides())
	assert.Equal(t, []string{"z", "y", "c"}, modified.Slice())
}

func TestArrayRandomBranches(t *testing.T) {
	//** Arrange
	rng := rand.New(rand.NewPCG(1, 2))
	length := 1000
	root := Generate(length, func(i int) int { return i })

	type branch struct {
		array    Array[int]
		expected []int
	}
	expected := make([]int, length)
	for i := range expected {
		expected[i] = i
	}
	branches := []branch{{root, expected}}

	//** Act
	for range 500 {
		parent := branches[rng.IntN(len(branches))]
		overrides := make([]Override[int], rng.IntN(4)+1)
		child := append([]int(nil), parent.expected...)
		for i := range overrides {
			overrides[i] = Override[int]{Index: rng.IntN(length), Value: rng.Int()}
			child[overrides[i].Index] = overrides[i].Value
		}
		branches = append(branches, branch{parent.array.With(overrides...), child})
	}

	//** Assert
	for _, branch := range branches {
		require.Equal(t, branch.expected, branch.array.Slice())
		index := rng.IntN(length)
		require.Equal(t, branch.expected[index], branch.array.Get(index))
	}
}

func TestArrayOutOfRange(t *testing.T) {
	array := New([]int{1, 2})
	assert.PanicsWithValue(t, "persistent: index 2 out of range [0, 2)", func() { array.Get(2) })
	assert.Panics(t, func() { array.Set(-1, 0) })
	assert.Equal(t, 2, array.Len())
}
