package aggregator

import "errors"

// ErrWrongInfo is returned when a contribution's Info does not match the
// digest's existing state (or, for an unknown digest, when the local
// identity is not the declared author).
var ErrWrongInfo = errors.New("aggregator: contribution info does not match")

// ErrDuplicatedSignature is returned when a contributor has already
// signed a digest.
var ErrDuplicatedSignature = errors.New("aggregator: contributor already signed this digest")

// ErrUnknownDigest names the case of a digest with no state (e.g. one that
// has already expired or been finalized). No operation in this package
// returns it: AppendSignature treats such a digest as new and applies the
// author check, failing with ErrWrongInfo.
var ErrUnknownDigest = errors.New("aggregator: unknown digest")
