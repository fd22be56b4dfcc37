package ranking

import (
	"fmt"
	"sort"
)

// RankedItem is the only shape the heap needs: an id and its score.
type RankedItem struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// less orders by score, then by id, so items with equal scores always rank
// the same way regardless of insertion order.
func (a RankedItem) less(b RankedItem) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.ID < b.ID
}

// IndexedHeap is a binary min-heap keyed by score that also tracks where each
// id lives, so point updates and removals by id are O(log n) and lookups are
// O(1). The backing array and the index map are only ever mutated together
// through swap/place, which keeps them consistent.
type IndexedHeap struct {
	items []RankedItem
	index map[string]int
}

// NewIndexedHeap creates an empty heap.
func NewIndexedHeap() *IndexedHeap {
	return &IndexedHeap{
		items: make([]RankedItem, 0),
		index: make(map[string]int),
	}
}

// NewIndexedHeapFrom builds a heap from items in O(n).
// Returns ErrDuplicateID if two items share an id.
func NewIndexedHeapFrom(items []RankedItem) (*IndexedHeap, error) {
	h := &IndexedHeap{
		items: make([]RankedItem, 0, len(items)),
		index: make(map[string]int, len(items)),
	}
	for _, item := range items {
		if _, ok := h.index[item.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, item.ID)
		}
		h.index[item.ID] = len(h.items)
		h.items = append(h.items, item)
	}
	h.Rebuild()
	return h, nil
}

// Len returns the number of items held.
func (h *IndexedHeap) Len() int {
	return len(h.items)
}

// Push inserts an item. The heap does not dedupe: pushing an id that is
// already present fails with ErrDuplicateID.
func (h *IndexedHeap) Push(item RankedItem) error {
	if _, ok := h.index[item.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, item.ID)
	}
	h.place(len(h.items), item)
	h.siftUp(len(h.items) - 1)
	return nil
}

// Pop removes and returns the minimum-score item. ok is false when the heap
// is empty.
func (h *IndexedHeap) Pop() (item RankedItem, ok bool) {
	if len(h.items) == 0 {
		return RankedItem{}, false
	}
	top := h.items[0]
	h.removeAt(0)
	return top, true
}

// Peek returns the minimum-score item without removing it. ok is false when
// the heap is empty.
func (h *IndexedHeap) Peek() (item RankedItem, ok bool) {
	if len(h.items) == 0 {
		return RankedItem{}, false
	}
	return h.items[0], true
}

// Update replaces the item stored under id and restores the heap property by
// sifting up if the score decreased or down if it increased. The stored item
// always keeps id as its ID.
func (h *IndexedHeap) Update(id string, item RankedItem) error {
	i, ok := h.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	item.ID = id
	old := h.items[i].Score
	h.items[i] = item
	switch {
	case item.Score < old:
		h.siftUp(i)
	case item.Score > old:
		h.siftDown(i)
	}
	return nil
}

// Remove deletes an arbitrary item by id in O(log n).
func (h *IndexedHeap) Remove(id string) error {
	i, ok := h.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	h.removeAt(i)
	return nil
}

// Get returns the item stored under id.
func (h *IndexedHeap) Get(id string) (RankedItem, bool) {
	i, ok := h.index[id]
	if !ok {
		return RankedItem{}, false
	}
	return h.items[i], true
}

// Has reports whether id is held.
func (h *IndexedHeap) Has(id string) bool {
	_, ok := h.index[id]
	return ok
}

// ToArray returns a copy of the backing array in heap order.
func (h *IndexedHeap) ToArray() []RankedItem {
	out := make([]RankedItem, len(h.items))
	copy(out, h.items)
	return out
}

// ToSortedArray returns every item in ascending score order without mutating
// the heap. Equal scores are ordered by id.
func (h *IndexedHeap) ToSortedArray() []RankedItem {
	out := h.ToArray()
	sort.Slice(out, func(i, j int) bool {
		return out[i].less(out[j])
	})
	return out
}

// Rebuild re-heapifies the whole array in O(n). Membership never changes.
func (h *IndexedHeap) Rebuild() {
	for i := len(h.items)/2 - 1; i >= 0; i-- {
		h.siftDown(i)
	}
}

// RescoreAll assigns every item the score returned by score and then
// rebuilds once, instead of issuing n individual updates.
func (h *IndexedHeap) RescoreAll(score func(RankedItem) float64) {
	for i := range h.items {
		h.items[i].Score = score(h.items[i])
	}
	h.Rebuild()
}

// removeAt moves the last element into slot i and sifts it in whichever
// direction restores the invariant.
func (h *IndexedHeap) removeAt(i int) {
	last := len(h.items) - 1
	removed := h.items[i]
	if i != last {
		h.swap(i, last)
	}
	h.items = h.items[:last]
	delete(h.index, removed.ID)

	if i < len(h.items) {
		h.siftDown(i)
		h.siftUp(i)
	}
}

func (h *IndexedHeap) place(i int, item RankedItem) {
	if i == len(h.items) {
		h.items = append(h.items, item)
	} else {
		h.items[i] = item
	}
	h.index[item.ID] = i
}

func (h *IndexedHeap) swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.index[h.items[i].ID] = i
	h.index[h.items[j].ID] = j
}

func (h *IndexedHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.items[i].less(h.items[parent]) {
			return
		}
		h.swap(i, parent)
		i = parent
	}
}

func (h *IndexedHeap) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left, right := 2*i+1, 2*i+2
		if left < n && h.items[left].less(h.items[smallest]) {
			smallest = left
		}
		if right < n && h.items[right].less(h.items[smallest]) {
			smallest = right
		}
		if smallest == i {
			return
		}
		h.swap(i, smallest)
		i = smallest
	}
}
