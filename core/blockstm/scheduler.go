package blockstm

import "sync"

// txnStatus is the per-transaction state machine:
// ReadyToExecute(inc) -> Executing(inc) -> Executed(inc) -> Aborting(inc) ->
// ReadyToExecute(inc+1), terminating in Committed.
type txnStatus int

const (
	statusReadyToExecute txnStatus = iota
	statusExecuting
	statusExecuted
	statusAborting
	statusCommitted
)

// TaskKind enumerates what NextTask handed out.
type TaskKind int

const (
	TaskNone TaskKind = iota
	TaskExecute
	TaskValidate
	TaskDone
)

// Task is a single unit of dispatchable work.
type Task struct {
	Kind        TaskKind
	TxnIdx      int
	Incarnation int
}

type txnState struct {
	status      txnStatus
	incarnation int
}

// Scheduler hands out Execute/Validate tasks to worker goroutines,
// coordinates abort-and-retry, manages inter-transaction dependency
// wakeups, and determines when the batch is complete. It is the only
// writer of MVS Estimate markers and deletions triggered by re-execution.
type Scheduler struct {
	mu sync.Mutex

	n int

	states        []txnState
	execTasks     taskStatusManager
	validateTasks taskStatusManager
	commitIdx     int
	activeTasks   int

	// waitChans holds, for every dep index with at least one blocked
	// reader, the channel that will be closed the next time that
	// transaction finishes execution or completes an abort. Waiters that
	// register after the channel is created and before it is closed all
	// observe the same close.
	waitChans map[int]chan struct{}

	txIO *TxnInputOutput
	mvh  *MVHashMap
}

// NewScheduler builds a scheduler for a batch of n transactions, wired to
// the MVS and input/output tracking table the batch driver owns.
func NewScheduler(n int, mvh *MVHashMap, txIO *TxnInputOutput) *Scheduler {
	return &Scheduler{
		n:             n,
		states:        make([]txnState, n),
		execTasks:     makeStatusManager(n),
		validateTasks: makeStatusManager(0),
		waitChans:     make(map[int]chan struct{}),
		txIO:          txIO,
		mvh:           mvh,
	}
}

// NextTask selects the next dispatchable unit of work, preferring catch-up
// validation over fresh execution so that the validated prefix never falls
// far behind the executed one.
func (s *Scheduler) NextTask() Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.n == 0 {
		return Task{Kind: TaskDone}
	}

	if v := s.validateTasks.minPending(); v != -1 && v <= s.execTasks.maxAllComplete() {
		tx := s.validateTasks.takeNextPending()
		s.activeTasks++

		return Task{Kind: TaskValidate, TxnIdx: tx, Incarnation: s.states[tx].incarnation}
	}

	if tx := s.execTasks.minPending(); tx != -1 {
		tx = s.execTasks.takeNextPending()
		s.states[tx].status = statusExecuting
		s.activeTasks++

		return Task{Kind: TaskExecute, TxnIdx: tx, Incarnation: s.states[tx].incarnation}
	}

	if s.execTasks.countComplete() == s.n && s.validateTasks.countComplete() == s.n && s.activeTasks == 0 {
		return Task{Kind: TaskDone}
	}

	return Task{Kind: TaskNone}
}

// FinishExecution records a successful execution attempt's outputs, lowers
// the validation cursor to cover this transaction (and, if its write-set
// grew, every already-validated transaction after it), deletes keys the new
// incarnation no longer writes, and wakes any reader blocked on this index.
func (s *Scheduler) FinishExecution(txnIdx int, in TxnInput, out, allOut TxnOutput) {
	s.mu.Lock()
	defer s.mu.Unlock()

	incarnation := s.states[txnIdx].incarnation
	prevAllOut := s.txIO.AllWriteSet(txnIdx)

	s.txIO.recordRead(txnIdx, in)

	if incarnation > 0 {
		written := make(map[Key]bool, len(allOut))
		for _, w := range allOut {
			written[w.Path] = true
		}

		for _, w := range prevAllOut {
			if !written[w.Path] {
				s.mvh.Delete(w.Path, txnIdx)
			}
		}

		if allOut.hasNewWrite(prevAllOut) {
			s.validateTasks.pushPendingSet(s.execTasks.getRevalidationRange(txnIdx + 1))
		}
	}

	s.txIO.recordWrite(txnIdx, out)
	s.txIO.recordAllWrite(txnIdx, allOut)

	s.states[txnIdx].status = statusExecuted
	s.execTasks.markComplete(txnIdx)
	s.validateTasks.pushPending(txnIdx)
	s.activeTasks--

	s.wakeLocked(txnIdx)
}

// FinishValidation records the outcome of validating txnIdx's current
// incarnation: success advances the commit wavefront, failure triggers the
// abort protocol.
func (s *Scheduler) FinishValidation(txnIdx int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ok {
		s.validateTasks.markComplete(txnIdx)
		s.advanceCommitLocked()
	} else {
		s.tryAbortLocked(txnIdx)
	}

	s.activeTasks--
}

// tryAbortLocked is the abort protocol. It is a no-op if txnIdx is
// not currently Executed -- i.e. another validator already claimed the
// abort (a compare-and-swap in a lock-free design; redundant under our
// single scheduler mutex but kept explicit since it documents the real
// invariant being enforced).
func (s *Scheduler) tryAbortLocked(txnIdx int) {
	if s.states[txnIdx].status != statusExecuted {
		return
	}

	s.states[txnIdx].status = statusAborting

	for _, w := range s.txIO.AllWriteSet(txnIdx) {
		s.mvh.MarkEstimate(w.Path, txnIdx)
	}

	s.validateTasks.clearInProgress(txnIdx)
	s.validateTasks.pushPendingSet(s.execTasks.getRevalidationRange(txnIdx + 1))

	s.execTasks.clearComplete(txnIdx)
	s.states[txnIdx].incarnation++
	s.states[txnIdx].status = statusReadyToExecute
	s.execTasks.pushPending(txnIdx)

	s.wakeLocked(txnIdx)
}

// advanceCommitLocked moves the commit wavefront forward while the next
// transaction is both executed and validated, and is not itself about to
// be re-executed.
func (s *Scheduler) advanceCommitLocked() {
	for s.commitIdx < s.n {
		tx := s.commitIdx

		if !s.execTasks.checkComplete(tx) || !s.validateTasks.checkComplete(tx) {
			break
		}

		if s.execTasks.checkInProgress(tx) || s.execTasks.checkPending(tx) {
			break
		}

		s.states[tx].status = statusCommitted
		s.commitIdx++
	}
}

// CommitIndex returns the current commit wavefront.
func (s *Scheduler) CommitIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.commitIdx
}

// WaitForDependency registers txnIdx as blocked on depIdx. If depIdx has
// already finished its current attempt (so the dependency is stale), it
// returns alreadyResolved=true and the caller should retry its read immediately without
// waiting. Otherwise it returns a channel that closes the next time depIdx
// finishes execution or completes an abort.
func (s *Scheduler) WaitForDependency(txnIdx, depIdx int) (ch <-chan struct{}, alreadyResolved bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.states[depIdx].status == statusExecuted || s.states[depIdx].status == statusCommitted {
		return nil, true
	}

	return s.waitChanLocked(depIdx), false
}

func (s *Scheduler) waitChanLocked(idx int) chan struct{} {
	if c, ok := s.waitChans[idx]; ok {
		return c
	}

	c := make(chan struct{})
	s.waitChans[idx] = c

	return c
}

func (s *Scheduler) wakeLocked(idx int) {
	if c, ok := s.waitChans[idx]; ok {
		close(c)
		delete(s.waitChans, idx)
	}
}
