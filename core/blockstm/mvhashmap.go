package blockstm

import (
	"sync"

	"github.com/tidwall/btree"
)

// MVReadResultStatus classifies the outcome of an MVHashMap.Read call.
type MVReadResultStatus int

const (
	// MVReadResultDone means a Value cell below txn_idx was found directly.
	MVReadResultDone MVReadResultStatus = iota
	// MVReadResultDependency means the closest cell below txn_idx is an
	// Estimate; the caller must wait for it to resolve.
	MVReadResultDependency
	// MVReadResultNone means there is no cell below txn_idx at all.
	MVReadResultNone
	// MVReadResultResolved means a chain of Delta cells fully collapsed to
	// a concrete integer against a Value base found in the MVS.
	MVReadResultResolved
	// MVReadResultUnresolved means Delta cells were found but the chain ran
	// off the bottom of the map with no Value base beneath it.
	MVReadResultUnresolved
	// MVReadResultDeltaFailure means a Delta chain applied against a known
	// base but the application itself failed (overflow, or a non-integer
	// base).
	MVReadResultDeltaFailure
)

// MVReadResult is the outcome of a single MVHashMap.Read.
type MVReadResult struct {
	status      MVReadResultStatus
	depIdx      int
	incarnation int
	value       Value
	resolved    U128
	unresolved  Delta
}

func (r MVReadResult) Status() MVReadResultStatus { return r.status }
func (r MVReadResult) DepIdx() int                { return r.depIdx }
func (r MVReadResult) Incarnation() int            { return r.incarnation }
func (r MVReadResult) Value() interface{} {
	if b, ok := r.value.Bytes(); ok {
		return b
	}

	if s, ok := r.value.Structured(); ok {
		return s
	}

	return nil
}
func (r MVReadResult) ResolvedValue() U128 { return r.resolved }
func (r MVReadResult) UnresolvedDelta() Delta { return r.unresolved }

// entryCell is one version's slot in a key's ordered write history: either
// a concrete write, or an Estimate marker left behind by an aborting writer.
type entryCell struct {
	estimate    bool
	incarnation int
	value       Value
	delta       Delta
	isDelta     bool
}

type shard struct {
	mu   sync.RWMutex
	data map[Key]*btree.Map[int, *entryCell]
}

func newShard() *shard {
	return &shard{data: make(map[Key]*btree.Map[int, *entryCell])}
}

// numShards is fixed at 256 (one per possible high byte of a key hash), per
// the design notes: the shard table is a plain fixed-size array indexed by
// that byte, no dynamic resizing or unsafe layout required.
const shardBits = 8
const numShards = 1 << shardBits

// MVHashMap is the multi-version shared store: for every key, the full
// history of tentative writes produced by the current batch, indexed by
// transaction position and incarnation.
type MVHashMap struct {
	shards       [numShards]*shard
	moduleShards [numShards]*shard
}

// MakeMVHashMap allocates an empty MVS for one batch.
func MakeMVHashMap() *MVHashMap {
	mvh := &MVHashMap{}
	for i := range mvh.shards {
		mvh.shards[i] = newShard()
		mvh.moduleShards[i] = newShard()
	}

	return mvh
}

func (mvh *MVHashMap) shardFor(k Key) *shard {
	idx := k.shardIndex(shardBits)
	if k.IsModulePath() {
		return mvh.moduleShards[idx]
	}

	return mvh.shards[idx]
}

// Write inserts or replaces the cell at (key, version.TxnIndex) with a
// concrete write. It always overrides any prior Estimate at that slot.
func (mvh *MVHashMap) Write(key Key, version Version, val interface{}) {
	s := mvh.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	tree, ok := s.data[key]
	if !ok {
		tree = &btree.Map[int, *entryCell]{}
		s.data[key] = tree
	}

	cell := &entryCell{incarnation: version.Incarnation}

	switch v := val.(type) {
	case Delta:
		cell.isDelta = true
		cell.delta = v
	case Value:
		cell.value = v
	case []byte:
		cell.value = NewBytesValue(v)
	default:
		cell.value = NewStructuredValue(v, nil)
	}

	tree.Set(version.TxnIndex, cell)
}

// MarkEstimate replaces the cell at (key, txIdx), if present, with an
// Estimate marker so that concurrent readers observe a definite dependency
// instead of the stale value of an incarnation that is being aborted.
func (mvh *MVHashMap) MarkEstimate(key Key, txIdx int) {
	s := mvh.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	tree, ok := s.data[key]
	if !ok {
		return
	}

	prev, ok := tree.Get(txIdx)
	if !ok {
		return
	}

	tree.Set(txIdx, &entryCell{estimate: true, incarnation: prev.incarnation})
}

// Delete removes the cell for txIdx, used when a re-execution no longer
// writes this key.
func (mvh *MVHashMap) Delete(key Key, txIdx int) {
	s := mvh.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	tree, ok := s.data[key]
	if !ok {
		return
	}

	tree.Delete(txIdx)

	if tree.Len() == 0 {
		delete(s.data, key)
	}
}

// FlushMVWriteSet applies a batch of writes in one pass, used by the
// executor to publish a completed transaction's outputs.
func (mvh *MVHashMap) FlushMVWriteSet(writes []WriteDescriptor) {
	for _, w := range writes {
		mvh.Write(w.Path, w.V, w.Val)
	}
}

// Read resolves a read of key issued by txIdx. The cell with the greatest txn index strictly below txIdx wins; an
// Estimate there is reported as a Dependency regardless of what lies below
// it; a Delta chain is walked downward, composing as it goes, until a Value
// is found (Resolved) or the map is exhausted (Unresolved).
func (mvh *MVHashMap) Read(key Key, txIdx int) MVReadResult {
	s := mvh.shardFor(key)

	s.mu.RLock()
	defer s.mu.RUnlock()

	tree, ok := s.data[key]
	if !ok {
		return MVReadResult{status: MVReadResultNone, depIdx: -1, incarnation: -1}
	}

	var (
		composed    Delta
		haveDelta   bool
		result      MVReadResult
		found       bool
	)

	tree.Descend(txIdx-1, func(idx int, cell *entryCell) bool {
		if idx >= txIdx {
			return true
		}

		if cell.estimate {
			result = MVReadResult{status: MVReadResultDependency, depIdx: idx, incarnation: -1}
			found = true

			return false
		}

		if !cell.isDelta {
			if !haveDelta {
				result = MVReadResult{
					status:      MVReadResultDone,
					depIdx:      idx,
					incarnation: cell.incarnation,
					value:       cell.value,
				}
				found = true

				return false
			}

			base, ok := cell.value.asU128()
			if !ok {
				result = MVReadResult{status: MVReadResultDeltaFailure, depIdx: idx, incarnation: cell.incarnation}
				found = true

				return false
			}

			resolved, err := composed.ApplyTo(base)
			if err != nil {
				result = MVReadResult{status: MVReadResultDeltaFailure, depIdx: idx, incarnation: cell.incarnation}
				found = true

				return false
			}

			result = MVReadResult{status: MVReadResultResolved, depIdx: idx, incarnation: cell.incarnation, resolved: resolved}
			found = true

			return false
		}

		if haveDelta {
			composed = cell.delta.Compose(composed)
		} else {
			composed = cell.delta
			haveDelta = true
		}

		return true
	})

	if found {
		return result
	}

	if haveDelta {
		return MVReadResult{status: MVReadResultUnresolved, depIdx: -1, incarnation: -1, unresolved: composed}
	}

	return MVReadResult{status: MVReadResultNone, depIdx: -1, incarnation: -1}
}
