// Command blockstmdemo builds a small synthetic batch of account-transfer
// transactions -- two delta writes against a shared balance key followed
// by a read of it -- runs it through the parallel executor, and prints the
// balance the read observed.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/0xPolygon/parallel-stm/core/blockstm"
)

// memBaseView is a trivial in-memory BaseView for the demo; production
// code uses blockstm.PebbleBaseView instead.
type memBaseView struct {
	values map[blockstm.Key][]byte
}

func (v *memBaseView) GetStateValue(_ context.Context, key blockstm.Key) ([]byte, error) {
	b, ok := v.values[key]
	if !ok {
		return nil, blockstm.ErrNotFound
	}

	return b, nil
}

// deltaTask writes an additive delta on the shared balance key without
// reading it.
type deltaTask struct {
	key    blockstm.Key
	amount uint64
}

func (t *deltaTask) Execute(proxy *blockstm.ReadProxy, incarnation int) (out, allOut blockstm.TxnOutput, err error) {
	delta := blockstm.NewAddDelta(blockstm.NewU128FromUint64(t.amount))
	w := blockstm.WriteDescriptor{Path: t.key, Val: delta}

	return blockstm.TxnOutput{w}, blockstm.TxnOutput{w}, nil
}

func (t *deltaTask) Settle() {}

// readTask reads the balance key and records what it observed so main can
// print it after the batch commits.
type readTask struct {
	key      blockstm.Key
	observed []byte
}

func (t *readTask) Execute(proxy *blockstm.ReadProxy, incarnation int) (out, allOut blockstm.TxnOutput, err error) {
	val, err := proxy.Read(t.key)
	if err != nil {
		return nil, nil, err
	}

	if b, ok := val.Bytes(); ok {
		t.observed = b
	}

	return nil, nil, nil
}

func (t *readTask) Settle() {}

func main() {
	alice := common.HexToAddress("0x00000000000000000000000000000000000001")
	slot := common.HexToHash("0x01")
	balance := blockstm.NewStateKey(alice, slot)

	reg := prometheus.NewRegistry()
	metrics := blockstm.NewMetrics(reg)

	read := &readTask{key: balance}
	tasks := []blockstm.Task{
		&deltaTask{key: balance, amount: 5},
		&deltaTask{key: balance, amount: 3},
		read,
	}

	base := &memBaseView{values: map[blockstm.Key][]byte{
		balance: blockstm.NewU128FromUint64(10).Bytes(),
	}}

	batch := blockstm.NewBatch(tasks, base, metrics)
	fmt.Printf("batch %s: running %d transactions\n", batch.ID(), len(tasks))

	txIO, err := batch.Run(context.Background(), 4)
	if err != nil {
		fmt.Fprintln(os.Stderr, "batch failed:", err)
		os.Exit(1)
	}

	fmt.Printf("final balance bytes: %x\n", read.observed)

	dag := blockstm.BuildDAG(*txIO)
	dag.Report(metrics.Stats(), func(line string) { fmt.Println(line) })
}
