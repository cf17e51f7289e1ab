package constraint

import "encoding/binary"

const noEntry int32 = -1

type cacheEntry struct {
	key        string
	value      Penalty
	prev, next int32
}

// lru is a bounded least-recently-used map from an encoded assignment to its penalty. Entries live
// in a fixed arena and are chained through indices, head being the most recently used.
type lru struct {
	index    map[string]int32
	entries  []cacheEntry
	capacity int
	head     int32
	tail     int32

	hits   uint64
	misses uint64
}

func newLRU(capacity int) *lru {
	return &lru{
		index:    make(map[string]int32, capacity),
		entries:  make([]cacheEntry, 0, capacity),
		capacity: capacity,
		head:     noEntry,
		tail:     noEntry,
	}
}

func (cache *lru) get(key string) (Penalty, bool) {
	slot, ok := cache.index[key]
	if !ok {
		cache.misses++
		return Penalty{}, false
	}
	cache.hits++
	cache.moveToFront(slot)
	return cache.entries[slot].value, true
}

func (cache *lru) put(key string, value Penalty) {
	if slot, ok := cache.index[key]; ok {
		cache.entries[slot].value = value
		cache.moveToFront(slot)
		return
	}

	var slot int32
	if len(cache.entries) < cache.capacity {
		slot = int32(len(cache.entries))
		cache.entries = append(cache.entries, cacheEntry{prev: noEntry, next: noEntry})
	} else {
		// Reuse the least recently used slot
		slot = cache.tail
		cache.unlink(slot)
		delete(cache.index, cache.entries[slot].key)
	}

	cache.entries[slot].key = key
	cache.entries[slot].value = value
	cache.index[key] = slot
	cache.pushFront(slot)
}

func (cache *lru) len() int {
	return len(cache.index)
}

func (cache *lru) clear() {
	clear(cache.index)
	cache.entries = cache.entries[:0]
	cache.head, cache.tail = noEntry, noEntry
}

func (cache *lru) moveToFront(slot int32) {
	if cache.head == slot {
		return
	}
	cache.unlink(slot)
	cache.pushFront(slot)
}

func (cache *lru) unlink(slot int32) {
	entry := &cache.entries[slot]
	if entry.prev != noEntry {
		cache.entries[entry.prev].next = entry.next
	} else {
		cache.head = entry.next
	}
	if entry.next != noEntry {
		cache.entries[entry.next].prev = entry.prev
	} else {
		cache.tail = entry.prev
	}
	entry.prev, entry.next = noEntry, noEntry
}

func (cache *lru) pushFront(slot int32) {
	entry := &cache.entries[slot]
	entry.prev = noEntry
	entry.next = cache.head
	if cache.head != noEntry {
		cache.entries[cache.head].prev = slot
	}
	cache.head = slot
	if cache.tail == noEntry {
		cache.tail = slot
	}
}

// encodeKey packs the observed room/time indices into a compact map key. Indices are >= -1, so they
// are shifted by one and written as uvarints.
func encodeKey(buffer []byte, values []int32) []byte {
	buffer = buffer[:0]
	for _, value := range values {
		buffer = binary.AppendUvarint(buffer, uint64(value+1))
	}
	return buffer
}
