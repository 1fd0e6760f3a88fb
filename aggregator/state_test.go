package aggregator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIncrementalProofStateReadyRequiresLocalContribution(t *testing.T) {
	v := &fakeVerifier{power: map[Contributor]uint64{"local": 1, "v2": 5}, threshold: 3}
	s := newIncrementalProofState(Info{Digest: digestOf(9), Author: "local"})

	require.NoError(t, s.addSignature("v2", sigFor("v2")))
	require.False(t, s.ready(v, "local"), "quorum power present but local has not contributed")

	require.NoError(t, s.addSignature("local", sigFor("local")))
	require.True(t, s.ready(v, "local"))
}

func TestIncrementalProofStateRejectsDuplicateContributor(t *testing.T) {
	s := newIncrementalProofState(Info{Digest: digestOf(9), Author: "local"})

	require.NoError(t, s.addSignature("v2", sigFor("v2")))
	require.ErrorIs(t, s.addSignature("v2", sigFor("v2")), ErrDuplicatedSignature)
}

func TestIncrementalProofStateTakePreservesContributionOrder(t *testing.T) {
	v := &fakeVerifier{power: map[Contributor]uint64{"a": 1, "b": 1, "c": 1}, threshold: 3}
	s := newIncrementalProofState(Info{Digest: digestOf(9), Author: "a"})

	require.NoError(t, s.addSignature("b", sigFor("b")))
	require.NoError(t, s.addSignature("c", sigFor("c")))
	require.NoError(t, s.addSignature("a", sigFor("a")))

	proof, err := s.take(v)
	require.NoError(t, err)
	require.Equal(t, []Contributor{"b", "c", "a"}, proof.Signers)
}
