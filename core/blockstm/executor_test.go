package blockstm

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type recordingTask struct {
	write    *WriteDescriptor
	readKey  *Key
	observed []byte
	settled  bool
	err      error
}

func (t *recordingTask) Execute(proxy *ReadProxy, incarnation int) (out, allOut TxnOutput, err error) {
	if t.err != nil {
		return nil, nil, t.err
	}

	if t.readKey != nil {
		val, rerr := proxy.Read(*t.readKey)
		if rerr != nil {
			return nil, nil, rerr
		}

		if b, ok := val.Bytes(); ok {
			t.observed = b
		}
	}

	if t.write != nil {
		w := *t.write
		return TxnOutput{w}, TxnOutput{w}, nil
	}

	return nil, nil, nil
}

func (t *recordingTask) Settle() { t.settled = true }

func TestBatchIDIsStableAcrossTheRun(t *testing.T) {
	task := &recordingTask{}

	batch := NewBatch([]Task{task}, newFakeBaseView(), nil)
	id := batch.ID()

	_, err := batch.Run(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, id, batch.ID())
	require.NotEqual(t, uuid.Nil, batch.ID())
}

func TestBatchRunEmptyTasksReturnsImmediately(t *testing.T) {
	batch := NewBatch(nil, newFakeBaseView(), nil)

	out, err := batch.Run(context.Background(), 2)
	require.NoError(t, err)
	require.NotNil(t, out)
}

func TestBatchRunSingleTaskCommits(t *testing.T) {
	k := testKey(t, 1)
	task := &recordingTask{write: &WriteDescriptor{Path: k, Val: []byte("v")}}

	batch := NewBatch([]Task{task}, newFakeBaseView(), nil)

	_, err := batch.Run(context.Background(), 2)
	require.NoError(t, err)
	require.True(t, task.settled)
}

func TestBatchRunLaterTaskObservesEarlierTaskWrite(t *testing.T) {
	k := testKey(t, 1)

	writer := &recordingTask{write: &WriteDescriptor{Path: k, Val: []byte("written")}}
	reader := &recordingTask{readKey: &k}

	batch := NewBatch([]Task{writer, reader}, newFakeBaseView(), nil)

	_, err := batch.Run(context.Background(), 4)
	require.NoError(t, err)
	require.Equal(t, []byte("written"), reader.observed)
}

func TestBatchRunAccumulatesDeltaChainOverBaseView(t *testing.T) {
	k := testKey(t, 1)

	base := newFakeBaseView()
	base.values[k] = NewU128FromUint64(10).Bytes()

	delta1 := &recordingTask{write: &WriteDescriptor{Path: k, Val: NewAddDelta(NewU128FromUint64(5))}}
	delta2 := &recordingTask{write: &WriteDescriptor{Path: k, Val: NewAddDelta(NewU128FromUint64(3))}}
	reader := &recordingTask{readKey: &k}

	batch := NewBatch([]Task{delta1, delta2, reader}, base, nil)

	_, err := batch.Run(context.Background(), 4)
	require.NoError(t, err)
	require.True(t, NewU128FromUint64(18).Equal(NewU128FromBytes(reader.observed)))
}

func TestBatchRunTreatsErrNotFoundAsNonFatal(t *testing.T) {
	k := testKey(t, 9)
	reader := &recordingTask{readKey: &k}

	batch := NewBatch([]Task{reader}, newFakeBaseView(), nil)

	_, err := batch.Run(context.Background(), 2)
	require.NoError(t, err)
	require.True(t, reader.settled)
}

func TestBatchRunPropagatesFatalExecutionError(t *testing.T) {
	boom := errors.New("boom")
	failing := &recordingTask{err: boom}
	other := &recordingTask{}

	batch := NewBatch([]Task{failing, other}, newFakeBaseView(), nil)

	_, err := batch.Run(context.Background(), 2)
	require.ErrorIs(t, err, boom)
}

func TestBatchRunRecordsMetrics(t *testing.T) {
	k := testKey(t, 1)
	task := &recordingTask{write: &WriteDescriptor{Path: k, Val: []byte("v")}}

	metrics := NewMetrics(prometheus.NewRegistry())

	batch := NewBatch([]Task{task}, newFakeBaseView(), metrics)

	_, err := batch.Run(context.Background(), 2)
	require.NoError(t, err)

	stats := metrics.Stats()
	require.Contains(t, stats, 0)
}
