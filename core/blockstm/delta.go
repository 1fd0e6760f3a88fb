package blockstm

import (
	"errors"

	"github.com/holiman/uint256"
)

// ErrDeltaOverflow is returned when applying a delta chain to a base value
// would cross the 128-bit saturating bound in either direction.
var ErrDeltaOverflow = errors.New("blockstm: delta application overflowed its 128-bit bound")

// maxU128 is the saturating upper bound deltas are allowed to produce.
var maxU128 = func() *uint256.Int {
	one := uint256.NewInt(1)
	max := new(uint256.Int).Lsh(one, 128)
	return max.Sub(max, one)
}()

// U128 is a 128-bit unsigned integer, represented by the low 128 bits of a
// uint256.Int. It is the only concrete integer type deltas operate on.
type U128 struct {
	v uint256.Int
}

// NewU128FromUint64 builds a U128 from a machine-word integer.
func NewU128FromUint64(n uint64) U128 {
	return U128{v: *uint256.NewInt(n)}
}

// NewU128FromBytes decodes a big-endian byte slice into a U128.
func NewU128FromBytes(b []byte) U128 {
	return U128{v: *new(uint256.Int).SetBytes(b)}
}

// Bytes returns the big-endian, 16-byte encoding of u.
func (u U128) Bytes() []byte {
	b32 := u.v.Bytes32()
	return b32[16:]
}

func (u U128) Uint64() uint64 { return u.v.Uint64() }

func (u U128) Equal(o U128) bool { return u.v.Eq(&o.v) }

// DeltaOpKind enumerates the arithmetic overlays a Delta can carry.
type DeltaOpKind int

const (
	DeltaAdd DeltaOpKind = iota
	DeltaSub
)

// Delta is an arithmetic overlay on a U128 base value. A chain of deltas
// composes associatively and applies to a concrete base producing either a
// concrete U128 or ErrDeltaOverflow.
type Delta struct {
	op      DeltaOpKind
	operand uint256.Int
}

func NewAddDelta(operand U128) Delta { return Delta{op: DeltaAdd, operand: operand.v} }
func NewSubDelta(operand U128) Delta { return Delta{op: DeltaSub, operand: operand.v} }

// Compose folds a later delta `next` on top of `d`, producing the single
// delta that has the same effect as applying d then next. Composition of
// two additive overlays never overflows on its own; the bound is only
// checked once, when the composed delta is finally applied to a base.
func (d Delta) Compose(next Delta) Delta {
	// Represent both deltas as signed offsets over a common accumulator so
	// that an add-then-subtract (or vice versa) cancels correctly.
	signed := func(op DeltaOpKind, v uint256.Int) (uint256.Int, bool) {
		return v, op == DeltaSub
	}

	av, aNeg := signed(d.op, d.operand)
	bv, bNeg := signed(next.op, next.operand)

	if aNeg == bNeg {
		sum := new(uint256.Int).Add(&av, &bv)
		op := DeltaAdd
		if aNeg {
			op = DeltaSub
		}

		return Delta{op: op, operand: *sum}
	}

	// Opposite signs: subtract the smaller magnitude from the larger and
	// keep the sign of the larger.
	if av.Cmp(&bv) >= 0 {
		diff := new(uint256.Int).Sub(&av, &bv)
		op := DeltaAdd
		if aNeg {
			op = DeltaSub
		}

		return Delta{op: op, operand: *diff}
	}

	diff := new(uint256.Int).Sub(&bv, &av)
	op := DeltaAdd
	if bNeg {
		op = DeltaSub
	}

	return Delta{op: op, operand: *diff}
}

// ApplyTo applies d to base, saturating within [0, 2^128-1]. Crossing either
// bound is reported as ErrDeltaOverflow rather than wrapping, matching the
// speculative-execution contract: the transaction's output is invalid and
// must be surfaced as an execution-level error, not silently truncated.
func (d Delta) ApplyTo(base U128) (U128, error) {
	switch d.op {
	case DeltaAdd:
		sum := new(uint256.Int).Add(&base.v, &d.operand)
		if sum.Cmp(maxU128) > 0 {
			return U128{}, ErrDeltaOverflow
		}

		return U128{v: *sum}, nil
	case DeltaSub:
		if d.operand.Cmp(&base.v) > 0 {
			return U128{}, ErrDeltaOverflow
		}

		return U128{v: *new(uint256.Int).Sub(&base.v, &d.operand)}, nil
	default:
		return U128{}, ErrDeltaOverflow
	}
}
