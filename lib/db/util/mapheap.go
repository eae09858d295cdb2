package util

import (
	"container/heap"
	"strconv"
)

// Item is a scheduled key in a MapHeap.
// Deadline is a unix timestamp in nanoseconds.
type Item struct {
	Key      string
	Deadline int64
	index    int // maintained by the heap package
}

func (i *Item) String() string {
	return "{Key: " + i.Key + ", Deadline: " + strconv.FormatInt(i.Deadline, 10) + "}"
}

// MapHeap is a min-heap of deadlines with O(1) lookup by key.
// The earliest deadline is always at the top.
type MapHeap struct {
	items    []*Item
	itemsMap map[string]*Item
}

// NewMapHeap creates an empty MapHeap
func NewMapHeap() *MapHeap {
	return &MapHeap{
		items:    make([]*Item, 0),
		itemsMap: make(map[string]*Item),
	}
}

// Len returns the number of items in the queue (part of heap.Interface)
func (mh *MapHeap) Len() int { return len(mh.items) }

// Less orders by deadline (part of heap.Interface)
func (mh *MapHeap) Less(i, j int) bool {
	return mh.items[i].Deadline < mh.items[j].Deadline
}

// Swap exchanges items at positions i and j (part of heap.Interface)
func (mh *MapHeap) Swap(i, j int) {
	mh.items[i], mh.items[j] = mh.items[j], mh.items[i]
	mh.items[i].index = i
	mh.items[j].index = j
}

// Push adds an item to the heap (part of heap.Interface)
func (mh *MapHeap) Push(x interface{}) {
	it := x.(*Item)
	it.index = len(mh.items)
	mh.items = append(mh.items, it)
	mh.itemsMap[it.Key] = it
}

// Pop removes and returns the last item (part of heap.Interface)
func (mh *MapHeap) Pop() interface{} {
	old := mh.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	mh.items = old[:n-1]
	delete(mh.itemsMap, it.Key)
	return it
}

// Schedule adds key with the given deadline or moves an existing key to the new deadline.
func (mh *MapHeap) Schedule(key string, deadline int64) {
	if it, exists := mh.itemsMap[key]; exists {
		it.Deadline = deadline
		heap.Fix(mh, it.index)
		return
	}
	heap.Push(mh, &Item{Key: key, Deadline: deadline})
}

// Remove unschedules key and reports its deadline.
func (mh *MapHeap) Remove(key string) (int64, bool) {
	it, exists := mh.itemsMap[key]
	if !exists {
		return 0, false
	}
	heap.Remove(mh, it.index)
	return it.Deadline, true
}

// Peek returns the item with the earliest deadline without removing it
func (mh *MapHeap) Peek() (*Item, bool) {
	if len(mh.items) == 0 {
		return nil, false
	}
	return mh.items[0], true
}

// PopDue removes and returns every key whose deadline is at or before now.
func (mh *MapHeap) PopDue(now int64) []string {
	var due []string
	for len(mh.items) > 0 && mh.items[0].Deadline <= now {
		due = append(due, heap.Pop(mh).(*Item).Key)
	}
	return due
}

// Contains checks if a key is scheduled
func (mh *MapHeap) Contains(key string) bool {
	_, exists := mh.itemsMap[key]
	return exists
}

// Reset drops every scheduled key.
func (mh *MapHeap) Reset() {
	mh.items = mh.items[:0]
	mh.itemsMap = make(map[string]*Item)
}
