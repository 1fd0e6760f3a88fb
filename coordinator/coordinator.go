// Package coordinator implements the two-phase shutdown protocol that ties
// the batch executor and the proof aggregator together as a single
// process: each subsystem is asked to shut down in turn and acknowledges
// before the next one is asked, so that no subsystem is torn down while
// another still expects to call into it.
package coordinator

import "github.com/ethereum/go-ethereum/log"

// Subsystem is anything the coordinator manages the lifecycle of. Shutdown
// must block until the subsystem has fully drained and must be safe to
// call exactly once.
type Subsystem interface {
	Name() string
	Shutdown()
}

// Coordinator shuts down a fixed, ordered list of subsystems, acknowledging
// each in turn before proceeding to the next -- the order given at
// construction is significant (e.g. stop producing new work before
// stopping the thing that consumes it).
type Coordinator struct {
	subsystems []Subsystem
	log        log.Logger
}

// New builds a coordinator over subsystems, shut down in the given order.
func New(subsystems ...Subsystem) *Coordinator {
	return &Coordinator{subsystems: subsystems, log: log.New("module", "coordinator")}
}

// Shutdown requests every subsystem shut down in order, waiting for each
// one's acknowledgement before moving to the next, and only returns once
// all have drained.
func (c *Coordinator) Shutdown() {
	for _, s := range c.subsystems {
		c.log.Info("shutting down subsystem", "name", s.Name())
		s.Shutdown()
		c.log.Info("subsystem shut down", "name", s.Name())
	}
}
