package blockstm

import "context"

// ReadProxy is bound to a single (txn_idx, incarnation) execution attempt.
// Every read a transaction's logic performs goes through it, so that reads
// are transparently resolved against the MVS first and the base view
// second, dependency stalls are handled by blocking the calling goroutine
// rather than surfacing an abort to the caller, and every observed read is
// captured for later validation.
type ReadProxy struct {
	ctx    context.Context
	txnIdx int
	sched  *Scheduler
	mvh    *MVHashMap
	base   BaseView

	reads TxnInput
}

// NewReadProxy binds a fresh read proxy to one execution attempt.
func NewReadProxy(ctx context.Context, txnIdx int, sched *Scheduler, mvh *MVHashMap, base BaseView) *ReadProxy {
	return &ReadProxy{ctx: ctx, txnIdx: txnIdx, sched: sched, mvh: mvh, base: base}
}

// Reads returns every read descriptor captured so far.
func (p *ReadProxy) Reads() TxnInput { return p.reads }

// Read resolves key for the bound transaction, blocking transparently on
// any in-flight dependency until it resolves (or the context is cancelled).
func (p *ReadProxy) Read(key Key) (Value, error) {
	for {
		res := p.mvh.Read(key, p.txnIdx)

		switch res.Status() {
		case MVReadResultDone:
			p.reads = append(p.reads, ReadDescriptor{
				Path: key,
				Kind: ReadKindVersion,
				V:    Version{TxnIndex: res.DepIdx(), Incarnation: res.Incarnation()},
			})

			return res.value, nil

		case MVReadResultDependency:
			if err := p.waitFor(res.DepIdx()); err != nil {
				return Value{}, err
			}

			continue

		case MVReadResultResolved:
			p.reads = append(p.reads, ReadDescriptor{
				Path:     key,
				Kind:     ReadKindResolved,
				V:        Version{TxnIndex: res.DepIdx(), Incarnation: res.Incarnation()},
				Resolved: res.ResolvedValue(),
			})

			return NewBytesValue(res.ResolvedValue().Bytes()), nil

		case MVReadResultUnresolved:
			base, err := p.base.GetStateValue(p.ctx, key)
			if err != nil {
				return Value{}, err
			}

			baseInt, ok := NewBytesValue(base).asU128()
			if !ok {
				return Value{}, ErrNotIntegerBase
			}

			resolved, err := res.UnresolvedDelta().ApplyTo(baseInt)
			if err != nil {
				return Value{}, err
			}

			p.reads = append(p.reads, ReadDescriptor{
				Path:       key,
				Kind:       ReadKindUnresolved,
				Unresolved: res.UnresolvedDelta(),
			})

			return NewBytesValue(resolved.Bytes()), nil

		case MVReadResultDeltaFailure:
			// Speculative, not fatal: a non-integer base may only be an
			// artifact of reading a stale incarnation. Validation will
			// re-resolve this read and abort/retry the transaction if zero
			// wasn't actually the right value.
			p.reads = append(p.reads, ReadDescriptor{Path: key, Kind: ReadKindDeltaFailure})

			return NewBytesValue(NewU128FromUint64(0).Bytes()), nil

		default: // MVReadResultNone
			b, err := p.base.GetStateValue(p.ctx, key)
			if err == ErrNotFound {
				p.reads = append(p.reads, ReadDescriptor{Path: key, Kind: ReadKindStorage})
				return Value{}, ErrNotFound
			}

			if err != nil {
				return Value{}, err
			}

			p.reads = append(p.reads, ReadDescriptor{Path: key, Kind: ReadKindStorage})

			return NewBytesValue(b), nil
		}
	}
}

// waitFor blocks until depIdx's in-flight incarnation finishes execution or
// completes an abort, or the proxy's context is cancelled.
func (p *ReadProxy) waitFor(depIdx int) error {
	ch, resolved := p.sched.WaitForDependency(p.txnIdx, depIdx)
	if resolved {
		return nil
	}

	select {
	case <-ch:
		return nil
	case <-p.ctx.Done():
		return ErrBatchAborted
	}
}
