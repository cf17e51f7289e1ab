package constraint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLRUEviction(t *testing.T) {
	//** Arrange
	cache := newLRU(2)
	cache.put("a", Penalty{Hard: 1})
	cache.put("b", Penalty{Hard: 2})

	//** Act
	_, ok := cache.get("a") // b becomes the least recently used
	cache.put("c", Penalty{Hard: 3})

	//** Assert
	assert.True(t, ok)
	assert.Equal(t, 2, cache.len())
	_, ok = cache.get("b")
	assert.False(t, ok)
	value, ok := cache.get("a")
	assert.True(t, ok)
	assert.Equal(t, Penalty{Hard: 1}, value)
	value, ok = cache.get("c")
	assert.True(t, ok)
	assert.Equal(t, Penalty{Hard: 3}, value)
	assert.Equal(t, uint64(3), cache.hits)
	assert.Equal(t, uint64(1), cache.misses)
}

func TestLRUSingleSlotAndClear(t *testing.T) {
	cache := newLRU(1)
	cache.put("a", Penalty{Soft: 1})
	cache.put("b", Penalty{Soft: 2})
	cache.put("b", Penalty{Soft: 3})

	_, ok := cache.get("a")
	assert.False(t, ok)
	value, _ := cache.get("b")
	assert.Equal(t, Penalty{Soft: 3}, value)

	cache.clear()
	assert.Equal(t, 0, cache.len())
	cache.put("c", Penalty{})
	assert.Equal(t, 1, cache.len())
}

func TestEncodeKey(t *testing.T) {
	first := encodeKey(nil, []int32{-1, 0, 300})
	second := encodeKey(nil, []int32{-1, 0, 301})
	assert.NotEqual(t, first, second)
	assert.Equal(t, []byte{0, 1}, encodeKey(first, []int32{-1, 0}))
}
