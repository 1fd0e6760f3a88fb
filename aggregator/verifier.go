package aggregator

// Verifier supplies the voting-power weighting, quorum predicate, and
// cryptographic operations the aggregator needs but does not implement
// itself.
type Verifier interface {
	// VotingPower returns the weight assigned to a contributor. Unknown
	// contributors carry zero weight.
	VotingPower(c Contributor) uint64

	// QuorumThreshold returns the total voting power a contributor set
	// must reach or exceed for a digest to be ready.
	QuorumThreshold() uint64

	// VerifyContribution checks that sig is a valid signature by signer
	// over info's digest, returning an error if not.
	VerifyContribution(signer Contributor, info Info, sig Signature) error

	// Aggregate combines every signature in sigs into a single proof
	// signature.
	Aggregate(info Info, sigs map[Contributor]Signature) ([]byte, error)
}

// votingPowerOf sums the voting power of every contributor in signers.
func votingPowerOf(v Verifier, signers map[Contributor]Signature) uint64 {
	var total uint64
	for c := range signers {
		total += v.VotingPower(c)
	}

	return total
}
