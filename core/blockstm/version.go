package blockstm

import "fmt"

// Version identifies a single write attempt: the transaction's position in
// the batch and the re-execution (incarnation) count that produced it.
type Version struct {
	TxnIndex    int
	Incarnation int
}

func (v Version) String() string {
	return fmt.Sprintf("(tx=%d, inc=%d)", v.TxnIndex, v.Incarnation)
}

// Less orders versions first by txn index, then by incarnation. It is only
// used for diagnostics; the MVS itself is keyed solely by TxnIndex since
// incarnations of the same txn never coexist as distinct cells.
func (v Version) Less(o Version) bool {
	if v.TxnIndex != o.TxnIndex {
		return v.TxnIndex < o.TxnIndex
	}

	return v.Incarnation < o.Incarnation
}
