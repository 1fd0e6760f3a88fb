// Package aggregator implements the quorum-threshold signature aggregation
// state machine: validators submit signed contributions over an opaque
// digest, and once enough voting power has contributed the aggregator
// emits a single finalized proof and discards the per-digest state.
package aggregator

import "time"

// Digest identifies the work product being signed. It is opaque to the
// aggregator; callers typically derive it from a content hash.
type Digest [32]byte

// Contributor identifies a validator that may sign a digest.
type Contributor string

// Signature is an opaque per-contributor signature over a Digest.
type Signature []byte

// Proof is the finalized aggregate artifact handed back to the caller once
// a digest's contributor set crosses the quorum threshold.
type Proof struct {
	Digest    Digest
	Info      Info
	Signature []byte
	Signers   []Contributor
}

// Info is the canonical description of the work product a digest refers
// to: its digest and which contributor authored it. The
// aggregator only ever creates state for a digest when the local identity
// matches Author, mirroring the "only the author's own batch store
// originates a proof" rule of the protocol this is modeled on.
type Info struct {
	Digest Digest
	Author Contributor
}

// SignedContribution is one validator's vote on a digest.
type SignedContribution struct {
	Info      Info
	Signer    Contributor
	Signature Signature
}

// ExpiredDigest is reported on Aggregator.Expired for every digest
// garbage-collected by timeout.
type ExpiredDigest struct {
	Digest  Digest
	Created time.Time
}
