package blockstm

import (
	"context"
	"sync"
	"time"

	"github.com/JekaMas/workerpool"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
)

// Task is one transaction's speculative execution logic. Execute is called
// once per incarnation; it must only touch state through the supplied
// ReadProxy so that every read is captured for later validation. Settle is
// called exactly once, after the transaction's final incarnation commits.
type Task interface {
	Execute(proxy *ReadProxy, incarnation int) (out, allOut TxnOutput, err error)
	Settle()
}

// Batch runs a slice of Tasks to completion under the optimistic parallel
// scheduler: every task is attempted, possibly several times, with
// incarnations that observe a stale read aborted and re-run, until every
// task has both executed and validated against a version of the world that
// no later abort invalidates.
type Batch struct {
	id    uuid.UUID
	tasks []Task
	mvh   *MVHashMap
	txIO  *TxnInputOutput
	sched *Scheduler
	base  BaseView

	metrics *Metrics
	start   time.Time
	log     log.Logger
}

// ID identifies this batch run, for correlating its log lines and metrics
// across a distributed set of workers.
func (b *Batch) ID() uuid.UUID { return b.id }

// NewBatch prepares a batch over tasks, resolving reads that miss the
// in-flight multi-version store against base. metrics may be nil, in which
// case the batch runs unobserved.
func NewBatch(tasks []Task, base BaseView, metrics *Metrics) *Batch {
	n := len(tasks)
	mvh := MakeMVHashMap()
	txIO := MakeTxnInputOutput(n)

	id := uuid.New()

	return &Batch{
		id:      id,
		tasks:   tasks,
		mvh:     mvh,
		txIO:    txIO,
		sched:   NewScheduler(n, mvh, txIO),
		base:    base,
		metrics: metrics,
		log:     log.New("module", "blockstm", "batch", id),
	}
}

// Run drives the batch to completion using numWorkers goroutines pulled
// from a worker pool, returning the finalized input/output table. It
// returns early with an error if ctx is cancelled or any task's Execute
// reports an error other than ErrNotFound or ErrBatchAborted (for example
// ErrNotIntegerBase, a BaseView failure, or an error of the task's own).
func (b *Batch) Run(ctx context.Context, numWorkers int) (*TxnInputOutput, error) {
	if len(b.tasks) == 0 {
		return b.txIO, nil
	}

	b.start = time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool := workerpool.New(numWorkers)

	var (
		mu       sync.Mutex
		firstErr error
	)

	recordErr := func(err error) {
		mu.Lock()
		defer mu.Unlock()

		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)

		pool.Submit(func() {
			defer wg.Done()
			b.workerLoop(ctx, recordErr)
		})
	}

	wg.Wait()
	pool.StopWait()

	mu.Lock()
	err := firstErr
	mu.Unlock()

	if err == nil {
		err = ctx.Err()
	}

	if err != nil {
		return nil, err
	}

	for _, t := range b.tasks {
		t.Settle()
	}

	if b.metrics != nil {
		b.metrics.Commits.Add(float64(len(b.tasks)))
		b.metrics.BatchDuration.Observe(time.Since(b.start).Seconds())
	}

	return b.txIO, nil
}

// workerLoop repeatedly pulls the next dispatchable task from the scheduler
// until it reports Done, a fatal error occurs, or ctx is cancelled.
func (b *Batch) workerLoop(ctx context.Context, recordErr func(error)) {
	for {
		if ctx.Err() != nil {
			return
		}

		task := b.sched.NextTask()

		switch task.Kind {
		case TaskDone:
			return

		case TaskNone:
			continue

		case TaskExecute:
			b.runExecute(ctx, task, recordErr)

		case TaskValidate:
			ok := ValidateVersion(task.TxnIdx, b.txIO, b.mvh)
			if b.metrics != nil && !ok {
				b.metrics.ValidationFailures.Inc()
				b.metrics.Aborts.Inc()
			}

			b.sched.FinishValidation(task.TxnIdx, ok)
		}
	}
}

func (b *Batch) runExecute(ctx context.Context, task Task, recordErr func(error)) {
	proxy := NewReadProxy(ctx, task.TxnIdx, b.sched, b.mvh, b.base)

	execStart := time.Since(b.start)

	out, allOut, err := b.tasks[task.TxnIdx].Execute(proxy, task.Incarnation)

	if b.metrics != nil {
		b.metrics.Executions.Inc()
		b.metrics.recordStat(task.TxnIdx, ExecutionStat{
			Start: uint64(execStart),
			End:   uint64(time.Since(b.start)),
		})
	}

	if err != nil {
		if err == ErrNotFound || err == ErrBatchAborted {
			// A missing key or a dependency stall resolved into a state the
			// task's own logic chose to treat as absent; this is not a
			// batch-fatal condition, the task recorded it as a read and
			// produced no output.
			b.sched.FinishExecution(task.TxnIdx, proxy.Reads(), nil, nil)
			return
		}

		b.log.Error("blockstm: transaction execution failed", "txn", task.TxnIdx, "incarnation", task.Incarnation, "err", err)
		recordErr(err)

		return
	}

	b.mvh.FlushMVWriteSet(writeDescriptorsFor(task.TxnIdx, task.Incarnation, allOut))
	b.sched.FinishExecution(task.TxnIdx, proxy.Reads(), out, allOut)
}

// writeDescriptorsFor stamps every write produced by this incarnation with
// its version before publishing it into the multi-version store.
func writeDescriptorsFor(txnIdx, incarnation int, out TxnOutput) []WriteDescriptor {
	version := Version{TxnIndex: txnIdx, Incarnation: incarnation}

	stamped := make([]WriteDescriptor, len(out))
	for i, w := range out {
		stamped[i] = WriteDescriptor{Path: w.Path, V: version, Val: w.Val}
	}

	return stamped
}
