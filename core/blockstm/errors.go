package blockstm

import "errors"

// ErrNotFound is returned by a BaseView when the requested key has no
// committed value.
var ErrNotFound = errors.New("blockstm: key not found in base view")

// ErrNotIntegerBase is returned when a delta chain resolves against a base
// value that is not a plain integer (a structured value, or one wider than
// 128 bits).
var ErrNotIntegerBase = errors.New("blockstm: delta applied against non-integer base")

// ErrBatchAborted is returned by a blocked read when the batch's context is
// cancelled while the read is waiting on a dependency.
var ErrBatchAborted = errors.New("blockstm: batch cancelled while waiting for dependency")
