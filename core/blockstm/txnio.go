package blockstm

// ReadKind classifies where a captured read was satisfied from, so that
// validation knows how to re-resolve and compare it.
type ReadKind int

const (
	ReadKindVersion ReadKind = iota
	ReadKindResolved
	ReadKindUnresolved
	ReadKindStorage
	ReadKindDeltaFailure
)

// ReadDescriptor is the record of a single observed read, retained for the
// lifetime of the (txn, incarnation) that produced it so validation can
// re-verify it later.
type ReadDescriptor struct {
	Path Key
	Kind ReadKind

	// V is meaningful when Kind == ReadKindVersion: the version of the
	// writer this read observed.
	V Version

	// Resolved is meaningful when Kind == ReadKindResolved: the fully
	// collapsed integer value observed.
	Resolved U128

	// Unresolved is meaningful when Kind == ReadKindUnresolved: the
	// composed delta chain observed with no base beneath it.
	Unresolved Delta
}

// WriteDescriptor is a single output of a transaction's execution attempt.
type WriteDescriptor struct {
	Path Key
	V    Version
	Val  interface{} // Value (e.g. []byte) or Delta
}

// TxnInput is the full read-set captured by one execution attempt.
type TxnInput []ReadDescriptor

// TxnOutput is the full write-set produced by one execution attempt.
type TxnOutput []WriteDescriptor

// hasNewWrite reports whether this output set contains a key absent from
// prev -- i.e. whether re-execution grew the write-set in a way that can
// only be caught by revalidating every higher-indexed transaction.
func (txo TxnOutput) hasNewWrite(prev []WriteDescriptor) bool {
	prevKeys := make(map[Key]bool, len(prev))
	for _, w := range prev {
		prevKeys[w.Path] = true
	}

	for _, w := range txo {
		if !prevKeys[w.Path] {
			return true
		}
	}

	return false
}

// TxnInputOutput holds the inputs and outputs of the latest incarnation of
// every transaction in the batch. It exists so validation, DAG-building and
// diagnostics can be driven off one committed-so-far snapshot without
// re-querying the MVS.
type TxnInputOutput struct {
	inputs []TxnInput

	// outputs holds only the output written by the incarnation itself;
	// allOutputs also folds in writes inherited from prior incarnations that
	// are still considered live (used for dependency analysis).
	outputs    []TxnOutput
	allOutputs []TxnOutput
}

// MakeTxnInputOutput allocates tracking state for a batch of numTasks
// transactions.
func MakeTxnInputOutput(numTasks int) *TxnInputOutput {
	return &TxnInputOutput{
		inputs:     make([]TxnInput, numTasks),
		outputs:    make([]TxnOutput, numTasks),
		allOutputs: make([]TxnOutput, numTasks),
	}
}

func (io *TxnInputOutput) recordRead(txIdx int, in TxnInput) {
	io.inputs[txIdx] = in
}

func (io *TxnInputOutput) recordWrite(txIdx int, out TxnOutput) {
	io.outputs[txIdx] = out
}

func (io *TxnInputOutput) recordAllWrite(txIdx int, out TxnOutput) {
	io.allOutputs[txIdx] = out
}

// AllWriteSet returns the full (not just newly written) output of the
// latest incarnation of txIdx.
func (io *TxnInputOutput) AllWriteSet(txIdx int) TxnOutput {
	return io.allOutputs[txIdx]
}

// ReadSet returns the captured read-set of the latest incarnation of txIdx.
func (io *TxnInputOutput) ReadSet(txIdx int) TxnInput {
	return io.inputs[txIdx]
}
