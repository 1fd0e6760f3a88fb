package blockstm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSchedulerEmptyBatchIsImmediatelyDone(t *testing.T) {
	s := NewScheduler(0, MakeMVHashMap(), MakeTxnInputOutput(0))

	require.Equal(t, TaskDone, s.NextTask().Kind)
}

func TestSchedulerSingleTransactionExecuteValidateCommit(t *testing.T) {
	txIO := MakeTxnInputOutput(1)
	s := NewScheduler(1, MakeMVHashMap(), txIO)

	task := s.NextTask()
	require.Equal(t, TaskExecute, task.Kind)
	require.Equal(t, 0, task.TxnIdx)

	s.FinishExecution(0, nil, nil, nil)

	task = s.NextTask()
	require.Equal(t, TaskValidate, task.Kind)
	require.Equal(t, 0, task.TxnIdx)

	s.FinishValidation(0, true)

	require.Equal(t, 1, s.CommitIndex())
	require.Equal(t, TaskDone, s.NextTask().Kind)
}

func TestSchedulerPrefersCatchUpValidationOverFreshExecution(t *testing.T) {
	txIO := MakeTxnInputOutput(2)
	s := NewScheduler(2, MakeMVHashMap(), txIO)

	t0 := s.NextTask()
	require.Equal(t, TaskExecute, t0.Kind)
	require.Equal(t, 0, t0.TxnIdx)

	s.FinishExecution(0, nil, nil, nil)

	// transaction 0 is now pending validation, and its completion makes
	// maxAllComplete() == 0, so validation of 0 is preferred over executing 1.
	next := s.NextTask()
	require.Equal(t, TaskValidate, next.Kind)
	require.Equal(t, 0, next.TxnIdx)
}

func TestSchedulerFailedValidationReQueuesExecutionWithBumpedIncarnation(t *testing.T) {
	txIO := MakeTxnInputOutput(1)
	mvh := MakeMVHashMap()
	s := NewScheduler(1, mvh, txIO)

	task := s.NextTask()
	s.FinishExecution(task.TxnIdx, nil, nil, nil)

	v := s.NextTask()
	require.Equal(t, TaskValidate, v.Kind)

	s.FinishValidation(0, false)

	retry := s.NextTask()
	require.Equal(t, TaskExecute, retry.Kind)
	require.Equal(t, 0, retry.TxnIdx)
	require.Equal(t, 1, retry.Incarnation)
}

func TestSchedulerAbortMarksWrittenKeysAsEstimates(t *testing.T) {
	txIO := MakeTxnInputOutput(1)
	mvh := MakeMVHashMap()
	s := NewScheduler(1, mvh, txIO)

	k := testKey(t, 7)
	out := TxnOutput{{Path: k, V: Version{TxnIndex: 0}, Val: []byte("v")}}

	task := s.NextTask()
	s.FinishExecution(task.TxnIdx, nil, out, out)
	mvh.FlushMVWriteSet(out)

	s.NextTask() // claims the validate task
	s.FinishValidation(0, false)

	res := mvh.Read(k, 1)
	require.Equal(t, MVReadResultDependency, res.Status())
}

func TestSchedulerWaitForDependencyResolvesImmediatelyWhenDepDone(t *testing.T) {
	txIO := MakeTxnInputOutput(2)
	s := NewScheduler(2, MakeMVHashMap(), txIO)

	task := s.NextTask()
	require.Equal(t, 0, task.TxnIdx)
	s.FinishExecution(0, nil, nil, nil)

	_, resolved := s.WaitForDependency(1, 0)
	require.True(t, resolved)
}

func TestSchedulerWaitForDependencyWakesOnFinishExecution(t *testing.T) {
	txIO := MakeTxnInputOutput(2)
	s := NewScheduler(2, MakeMVHashMap(), txIO)

	// Claim transaction 0's execute task, but don't finish it yet, so
	// WaitForDependency(1, 0) has to actually block.
	t0 := s.NextTask()
	require.Equal(t, 0, t0.TxnIdx)

	ch, resolved := s.WaitForDependency(1, 0)
	require.False(t, resolved)

	done := make(chan struct{})
	go func() {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Error("timed out waiting for dependency wakeup")
		}
		close(done)
	}()

	s.FinishExecution(0, nil, nil, nil)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter was never woken")
	}
}

func TestSchedulerCommitWavefrontStallsOnGap(t *testing.T) {
	txIO := MakeTxnInputOutput(2)
	s := NewScheduler(2, MakeMVHashMap(), txIO)

	t1 := s.NextTask() // tx 0
	require.Equal(t, 0, t1.TxnIdx)
	s.FinishExecution(0, nil, nil, nil)

	v0 := s.NextTask()
	require.Equal(t, TaskValidate, v0.Kind)
	s.FinishValidation(0, true)

	require.Equal(t, 1, s.CommitIndex())

	// tx 1 hasn't executed yet, so the wavefront can't move further even
	// though tx 0 committed cleanly.
	require.Equal(t, 1, s.CommitIndex())
}
