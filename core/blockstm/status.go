package blockstm

import "sort"

// insertInList inserts x into the sorted, deduplicated list and returns the
// resulting slice.
func insertInList(list []int, x int) []int {
	i := sort.SearchInts(list, x)
	if i < len(list) && list[i] == x {
		return list
	}

	list = append(list, 0)
	copy(list[i+1:], list[i:])
	list[i] = x

	return list
}

func removeFromList(list []int, x int) []int {
	i := sort.SearchInts(list, x)
	if i >= len(list) || list[i] != x {
		return list
	}

	return append(list[:i], list[i+1:]...)
}

func containsInt(list []int, x int) bool {
	i := sort.SearchInts(list, x)
	return i < len(list) && list[i] == x
}

// taskStatusManager tracks, for one dimension of work (execution or
// validation) across all N transactions of a batch, which are pending,
// in progress, or complete.
//
// It carries no lock of its own: both the execution and validation task
// managers are only ever touched while the owning scheduler holds its
// mutex, so a second layer of locking here would just be redundant.
type taskStatusManager struct {
	pending    []int
	inProgress []int
	complete   []int
}

func makeStatusManager(numTasks int) taskStatusManager {
	pending := make([]int, numTasks)
	for i := range pending {
		pending[i] = i
	}

	return taskStatusManager{
		pending: pending,
	}
}

func (m *taskStatusManager) takeNextPending() int {
	if len(m.pending) == 0 {
		return -1
	}

	x := m.pending[0]
	m.pending = m.pending[1:]
	m.inProgress = insertInList(m.inProgress, x)

	return x
}

func (m *taskStatusManager) pushPending(x int) {
	m.pending = insertInList(m.pending, x)
}

func (m *taskStatusManager) pushPendingSet(xs []int) {
	for _, x := range xs {
		m.pushPending(x)
	}
}

func (m *taskStatusManager) clearPending(x int) {
	m.pending = removeFromList(m.pending, x)
}

func (m *taskStatusManager) clearInProgress(x int) {
	m.inProgress = removeFromList(m.inProgress, x)
}

func (m *taskStatusManager) markComplete(x int) {
	m.inProgress = removeFromList(m.inProgress, x)
	m.complete = insertInList(m.complete, x)
}

func (m *taskStatusManager) clearComplete(x int) {
	m.complete = removeFromList(m.complete, x)
}

func (m *taskStatusManager) checkPending(x int) bool    { return containsInt(m.pending, x) }
func (m *taskStatusManager) checkInProgress(x int) bool { return containsInt(m.inProgress, x) }
func (m *taskStatusManager) checkComplete(x int) bool   { return containsInt(m.complete, x) }

func (m *taskStatusManager) minPending() int {
	if len(m.pending) == 0 {
		return -1
	}

	return m.pending[0]
}

func (m *taskStatusManager) countComplete() int { return len(m.complete) }

// maxAllComplete returns the highest index k such that [0, k] is entirely
// complete, or -1 if transaction 0 itself is not yet complete.
func (m *taskStatusManager) maxAllComplete() int {
	max := -1

	for i, x := range m.complete {
		if x != i {
			break
		}

		max = i
	}

	return max
}

// getRevalidationRange returns the already-complete transactions in
// [from, maxAllComplete()]: the ones that must be re-queued for validation
// because something at or below `from` changed, restricted to the range
// where completeness is actually guaranteed contiguous.
func (m *taskStatusManager) getRevalidationRange(from int) []int {
	upper := m.maxAllComplete()

	out := make([]int, 0, len(m.complete))

	for _, x := range m.complete {
		if x >= from && x <= upper {
			out = append(out, x)
		}
	}

	return out
}
