// Package persistent provides an immutable array that can produce modified copies without copying
// all of its elements.
//
// An Array splits its slots into fixed-size chunks that are shared between every copy derived
// from the same ancestor. Modified slots are kept in a small sorted override list; once that list
// grows past MaxOverrides the copy is compacted into fresh chunks, cloning only the chunks that
// hold an overridden slot. Published chunks are never written again, so an Array (and every Array
// derived from it) is safe for concurrent reads.
package persistent

import (
	"log"
	"slices"
	"sort"
)

const (
	ChunkSize    = 256
	MaxOverrides = 32
)

// Override replaces the value stored at Index
type Override[T any] struct {
	Index int
	Value T
}

type Array[T any] struct {
	length    int
	chunks    [][]T
	overrides []Override[T]
}

// New copies values into a fresh Array
func New[T any](values []T) Array[T] {
	chunks := make([][]T, 0, (len(values)+ChunkSize-1)/ChunkSize)
	for start := 0; start < len(values); start += ChunkSize {
		end := min(start+ChunkSize, len(values))
		chunks = append(chunks, slices.Clone(values[start:end]))
	}
	return Array[T]{length: len(values), chunks: chunks}
}

// Generate builds an Array of the given length whose i-th value is produced by generator(i)
func Generate[T any](length int, generator func(index int) T) Array[T] {
	values := make([]T, length)
	for i := range values {
		values[i] = generator(i)
	}
	return New(values)
}

func (array Array[T]) Len() int {
	return array.length
}

func (array Array[T]) Get(index int) T {
	if index < 0 || index >= array.length {
		log.Panicf("persistent: index %v out of range [0, %v)", index, array.length)
	}

	if len(array.overrides) > 0 {
		position := sort.Search(len(array.overrides), func(i int) bool { return array.overrides[i].Index >= index })
		if position < len(array.overrides) && array.overrides[position].Index == index {
			return array.overrides[position].Value
		}
	}
	return array.chunks[index/ChunkSize][index%ChunkSize]
}

// Set returns a copy of the array with a single slot replaced
func (array Array[T]) Set(index int, value T) Array[T] {
	return array.With(Override[T]{Index: index, Value: value})
}

// With returns a copy of the array with every override applied; when an index appears more than
// once the last override wins. The receiver is never modified.
func (array Array[T]) With(overrides ...Override[T]) Array[T] {
	if len(overrides) == 0 {
		return array
	}

	incoming := make([]Override[T], 0, len(overrides))
	for _, override := range overrides {
		if override.Index < 0 || override.Index >= array.length {
			log.Panicf("persistent: index %v out of range [0, %v)", override.Index, array.length)
		}
		incoming = append(incoming, override)
	}
	// Stable so that later duplicates stay after earlier ones
	slices.SortStableFunc(incoming, func(a, b Override[T]) int { return a.Index - b.Index })

	merged := make([]Override[T], 0, len(array.overrides)+len(incoming))
	i, j := 0, 0
	for i < len(array.overrides) || j < len(incoming) {
		switch {
		case j == len(incoming) || (i < len(array.overrides) && array.overrides[i].Index < incoming[j].Index):
			merged = append(merged, array.overrides[i])
			i++
		case i == len(array.overrides) || incoming[j].Index < array.overrides[i].Index:
			merged = appendOverride(merged, incoming[j])
			j++
		default:
			// Same index: the new value shadows the old one
			i++
		}
	}

	if len(merged) <= MaxOverrides {
		return Array[T]{length: array.length, chunks: array.chunks, overrides: merged}
	}
	return array.compact(merged)
}

// appendOverride appends override, replacing the last element when it targets the same index
func appendOverride[T any](overrides []Override[T], override Override[T]) []Override[T] {
	if last := len(overrides) - 1; last >= 0 && overrides[last].Index == override.Index {
		overrides[last] = override
		return overrides
	}
	return append(overrides, override)
}

// compact materializes overrides into new chunks, cloning only the chunks they touch
func (array Array[T]) compact(overrides []Override[T]) Array[T] {
	chunks := slices.Clone(array.chunks)
	cloned := make(map[int]bool)
	for _, override := range overrides {
		chunk := override.Index / ChunkSize
		if !cloned[chunk] {
			chunks[chunk] = slices.Clone(chunks[chunk])
			cloned[chunk] = true
		}
		chunks[chunk][override.Index%ChunkSize] = override.Value
	}
	return Array[T]{length: array.length, chunks: chunks}
}

// Overrides returns the number of pending overrides, mostly useful for tests and diagnostics
func (array Array[T]) Overrides() int {
	return len(array.overrides)
}

// SharesStorage checks whether both arrays read from the same backing chunks
func (array Array[T]) SharesStorage(other Array[T]) bool {
	if len(array.chunks) == 0 || len(other.chunks) == 0 {
		return len(array.chunks) == len(other.chunks)
	}
	return &array.chunks[0] == &other.chunks[0]
}

// Slice copies every value into a new slice
func (array Array[T]) Slice() []T {
	values := make([]T, 0, array.length)
	for _, chunk := range array.chunks {
		values = append(values, chunk...)
	}
	for _, override := range array.overrides {
		values[override.Index] = override.Value
	}
	return values
}
