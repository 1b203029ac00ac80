package main

type TTFlag uint8

const (
	TTExact TTFlag = iota
	TTLower
	TTUpper
)

const defaultTTCapacity = 1 << 20

func (f TTFlag) String() string {
	switch f {
	case TTLower:
		return "lower"
	case TTUpper:
		return "upper"
	default:
		return "exact"
	}
}

type TTEntry struct {
	Key      uint64
	Depth    int
	Value    float64
	Flag     TTFlag
	BestMove Move
}

// TranspositionTable is a plain map that is emptied wholesale when a new key
// would exceed capacity. It is owned by one search and is not safe for
// concurrent use.
type TranspositionTable struct {
	entries  map[uint64]TTEntry
	capacity int
	clears   int
}

func NewTranspositionTable(capacity int) *TranspositionTable {
	if capacity < 1 {
		capacity = defaultTTCapacity
	}
	return &TranspositionTable{
		entries:  make(map[uint64]TTEntry),
		capacity: capacity,
	}
}

func (tt *TranspositionTable) Probe(key uint64) (TTEntry, bool) {
	entry, ok := tt.entries[key]
	return entry, ok
}

// Store overwrites any entry under the same key. Overwrites never trigger
// a clear; only a new key arriving at capacity does.
func (tt *TranspositionTable) Store(entry TTEntry) {
	if _, exists := tt.entries[entry.Key]; !exists && len(tt.entries) >= tt.capacity {
		tt.Clear()
		tt.clears++
	}
	tt.entries[entry.Key] = entry
}

func (tt *TranspositionTable) Clear() {
	clear(tt.entries)
}

func (tt *TranspositionTable) Count() int {
	return len(tt.entries)
}

func (tt *TranspositionTable) Capacity() int {
	return tt.capacity
}

// Clears reports how many times Store emptied the table.
func (tt *TranspositionTable) Clears() int {
	return tt.clears
}

// applyTTEntry tightens the window from a deep enough entry. ret is set when
// the entry alone settles the node.
func applyTTEntry(entry TTEntry, depth int, alpha *float64, beta *float64, stats *SearchStats) (used bool, ret bool, value float64) {
	if entry.Depth < depth {
		return false, false, 0.0
	}
	switch entry.Flag {
	case TTExact:
		return true, true, entry.Value
	case TTLower:
		if entry.Value > *alpha {
			*alpha = entry.Value
		}
	case TTUpper:
		if entry.Value < *beta {
			*beta = entry.Value
		}
	}
	if *alpha >= *beta {
		if stats != nil {
			stats.Cutoffs++
		}
		return true, true, entry.Value
	}
	return true, false, entry.Value
}
