package blockstm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeltaApplyToAdd(t *testing.T) {
	base := NewU128FromUint64(10)
	d := NewAddDelta(NewU128FromUint64(5))

	got, err := d.ApplyTo(base)
	require.NoError(t, err)
	require.True(t, NewU128FromUint64(15).Equal(got))
}

func TestDeltaApplyToSub(t *testing.T) {
	base := NewU128FromUint64(10)
	d := NewSubDelta(NewU128FromUint64(4))

	got, err := d.ApplyTo(base)
	require.NoError(t, err)
	require.True(t, NewU128FromUint64(6).Equal(got))
}

func TestDeltaApplyToSubUnderflows(t *testing.T) {
	base := NewU128FromUint64(3)
	d := NewSubDelta(NewU128FromUint64(4))

	_, err := d.ApplyTo(base)
	require.ErrorIs(t, err, ErrDeltaOverflow)
}

func TestDeltaComposeSameSignAccumulates(t *testing.T) {
	d1 := NewAddDelta(NewU128FromUint64(5))
	d2 := NewAddDelta(NewU128FromUint64(3))

	composed := d1.Compose(d2)

	got, err := composed.ApplyTo(NewU128FromUint64(10))
	require.NoError(t, err)
	require.True(t, NewU128FromUint64(18).Equal(got))
}

func TestDeltaComposeOppositeSignsCancel(t *testing.T) {
	add := NewAddDelta(NewU128FromUint64(10))
	sub := NewSubDelta(NewU128FromUint64(10))

	composed := add.Compose(sub)

	got, err := composed.ApplyTo(NewU128FromUint64(7))
	require.NoError(t, err)
	require.True(t, NewU128FromUint64(7).Equal(got))
}

func TestDeltaComposeIsAssociative(t *testing.T) {
	a := NewAddDelta(NewU128FromUint64(5))
	b := NewSubDelta(NewU128FromUint64(2))
	c := NewAddDelta(NewU128FromUint64(9))

	base := NewU128FromUint64(20)

	left := a.Compose(b).Compose(c)
	right := a.Compose(b.Compose(c))

	leftVal, err := left.ApplyTo(base)
	require.NoError(t, err)

	rightVal, err := right.ApplyTo(base)
	require.NoError(t, err)

	require.True(t, leftVal.Equal(rightVal))
}

func TestU128RoundTripsThroughBytes(t *testing.T) {
	u := NewU128FromUint64(123456789)
	require.True(t, u.Equal(NewU128FromBytes(u.Bytes())))
}
