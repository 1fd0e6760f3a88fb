package aggregator

// incrementalProofState accumulates per-digest contributions until either
// the quorum predicate is met or the entry times out. Contributions are
// kept in a map keyed by contributor plus a slice recording the order in
// which they arrived; that order is what Proof.Signers reports. The map
// handed to Verifier.Aggregate carries no order of its own.
type incrementalProofState struct {
	info       Info
	signatures map[Contributor]Signature
	order      []Contributor
}

func newIncrementalProofState(info Info) *incrementalProofState {
	return &incrementalProofState{
		info:       info,
		signatures: make(map[Contributor]Signature),
	}
}

// addSignature inserts signer's signature, rejecting a duplicate
// contributor. It does not check info equality; the caller does that
// before calling in, since the error it should produce (WrongInfo) differs
// from what this method would otherwise return.
func (s *incrementalProofState) addSignature(signer Contributor, sig Signature) error {
	if _, ok := s.signatures[signer]; ok {
		return ErrDuplicatedSignature
	}

	s.signatures[signer] = sig
	s.order = append(s.order, signer)

	return nil
}

// ready reports whether localID has contributed and the accumulated
// voting power crosses the verifier's quorum threshold.
func (s *incrementalProofState) ready(v Verifier, localID Contributor) bool {
	if _, ok := s.signatures[localID]; !ok {
		return false
	}

	return votingPowerOf(v, s.signatures) >= v.QuorumThreshold()
}

// take aggregates every collected signature into a single Proof.
func (s *incrementalProofState) take(v Verifier) (Proof, error) {
	sig, err := v.Aggregate(s.info, s.signatures)
	if err != nil {
		return Proof{}, err
	}

	signers := make([]Contributor, len(s.order))
	copy(signers, s.order)

	return Proof{
		Digest:    s.info.Digest,
		Info:      s.info,
		Signature: sig,
		Signers:   signers,
	}, nil
}
