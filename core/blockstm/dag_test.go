package blockstm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasReadDepDetectsSharedKey(t *testing.T) {
	k := testKey(t, 1)

	txFrom := TxnOutput{{Path: k}}
	txTo := TxnInput{{Path: k}}

	require.True(t, HasReadDep(txFrom, txTo))
}

func TestHasReadDepFalseWhenDisjoint(t *testing.T) {
	txFrom := TxnOutput{{Path: testKey(t, 1)}}
	txTo := TxnInput{{Path: testKey(t, 2)}}

	require.False(t, HasReadDep(txFrom, txTo))
}

func TestBuildDAGAddsEdgeForReadAfterWrite(t *testing.T) {
	k := testKey(t, 1)

	txIO := MakeTxnInputOutput(2)
	txIO.recordAllWrite(0, TxnOutput{{Path: k}})
	txIO.recordRead(1, TxnInput{{Path: k}})

	d := BuildDAG(*txIO)

	deps := GetDep(*txIO)
	require.Equal(t, []int{0}, deps[1])
	require.Len(t, d.GetVertices(), 2)
}

func TestDAGLongestPathOverSerialChain(t *testing.T) {
	k := testKey(t, 1)

	txIO := MakeTxnInputOutput(3)
	txIO.recordAllWrite(0, TxnOutput{{Path: k}})
	txIO.recordRead(1, TxnInput{{Path: k}})
	txIO.recordAllWrite(1, TxnOutput{{Path: k}})
	txIO.recordRead(2, TxnInput{{Path: k}})

	d := BuildDAG(*txIO)

	stats := map[int]ExecutionStat{
		0: {Start: 0, End: 10},
		1: {Start: 10, End: 25},
		2: {Start: 25, End: 30},
	}

	path, weight := d.LongestPath(stats)
	require.Equal(t, []int{0, 1, 2}, path)
	require.Equal(t, uint64(30), weight)
}
