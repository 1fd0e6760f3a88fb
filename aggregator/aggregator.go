package aggregator

import (
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// appendRequest is one AppendSignature command, replied to on done once the
// contribution has been applied (or rejected).
type appendRequest struct {
	contribution SignedContribution
	done         chan error
}

// shutdownRequest is the two-phase shutdown command: the caller blocks on
// ack until the event loop has drained and exited.
type shutdownRequest struct {
	ack chan struct{}
}

// Aggregator runs a single-threaded event loop: it
// owns every IncrementalProofState, accepts AppendSignature commands over a
// bounded channel, periodically expires stale digests, and emits finalized
// proofs on Proofs().
type Aggregator struct {
	localID   Contributor
	verifier  Verifier
	timeout   time.Duration
	tickEvery time.Duration

	appendCh   chan appendRequest
	shutdownCh chan shutdownRequest
	proofCh    chan Proof
	expiredCh  chan ExpiredDigest

	digests map[Digest]*incrementalProofState
	created map[Digest]time.Time

	log log.Logger
}

// Config bundles the Aggregator's construction parameters.
type Config struct {
	LocalID   Contributor
	Verifier  Verifier
	Timeout   time.Duration
	TickEvery time.Duration
}

// New constructs an Aggregator; call Run in its own goroutine to start the
// event loop.
func New(cfg Config) *Aggregator {
	return &Aggregator{
		localID:    cfg.LocalID,
		verifier:   cfg.Verifier,
		timeout:    cfg.Timeout,
		tickEvery:  cfg.TickEvery,
		appendCh:   make(chan appendRequest, 64),
		shutdownCh: make(chan shutdownRequest),
		proofCh:    make(chan Proof, 16),
		expiredCh:  make(chan ExpiredDigest, 16),
		digests:    make(map[Digest]*incrementalProofState),
		created:    make(map[Digest]time.Time),
		log:        log.New("module", "aggregator"),
	}
}

// Proofs returns the channel finalized proofs are emitted on.
func (a *Aggregator) Proofs() <-chan Proof { return a.proofCh }

// Expired returns the channel digests garbage-collected by timeout are
// reported on.
func (a *Aggregator) Expired() <-chan ExpiredDigest { return a.expiredCh }

// AppendSignature submits signer's contribution and blocks until the
// aggregator has applied or rejected it.
func (a *Aggregator) AppendSignature(c SignedContribution) error {
	done := make(chan error, 1)
	a.appendCh <- appendRequest{contribution: c, done: done}

	return <-done
}

// Name identifies this subsystem for the coordinator's shutdown log.
func (a *Aggregator) Name() string { return "aggregator" }

// Shutdown requests the event loop drain and exit, blocking until it has.
func (a *Aggregator) Shutdown() {
	ack := make(chan struct{})
	a.shutdownCh <- shutdownRequest{ack: ack}
	<-ack
}

// Run drives the event loop until Shutdown is called. It is meant to run
// in its own goroutine for the lifetime of the aggregator.
func (a *Aggregator) Run() {
	ticker := time.NewTicker(a.tickEvery)
	defer ticker.Stop()

	for {
		select {
		case req := <-a.appendCh:
			req.done <- a.append(req.contribution)

		case req := <-a.shutdownCh:
			for {
				select {
				case pending := <-a.appendCh:
					pending.done <- a.append(pending.contribution)
				default:
					close(req.ack)
					return
				}
			}

		case <-ticker.C:
			a.tick()
		}
	}
}

func (a *Aggregator) append(c SignedContribution) error {
	state, ok := a.digests[c.Info.Digest]
	if !ok {
		if c.Info.Author != a.localID {
			return ErrWrongInfo
		}

		state = newIncrementalProofState(c.Info)
		a.digests[c.Info.Digest] = state
		a.created[c.Info.Digest] = nowFunc()
	}

	if state.info != c.Info {
		return ErrWrongInfo
	}

	if err := a.verifier.VerifyContribution(c.Signer, c.Info, c.Signature); err != nil {
		return err
	}

	if err := state.addSignature(c.Signer, c.Signature); err != nil {
		return err
	}

	if !state.ready(a.verifier, a.localID) {
		return nil
	}

	proof, err := state.take(a.verifier)
	if err != nil {
		a.log.Error("aggregator: failed to aggregate ready proof", "digest", c.Info.Digest, "err", err)
		return err
	}

	delete(a.digests, c.Info.Digest)
	delete(a.created, c.Info.Digest)

	a.proofCh <- proof

	return nil
}

func (a *Aggregator) tick() {
	now := nowFunc()

	for d, created := range a.created {
		if now.Sub(created) < a.timeout {
			continue
		}

		delete(a.digests, d)
		delete(a.created, d)

		a.expiredCh <- ExpiredDigest{Digest: d, Created: created}
	}
}

// nowFunc is indirected so tests can control expiry without sleeping.
var nowFunc = time.Now
