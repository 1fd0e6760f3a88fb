package aggregator

import (
	"fmt"
	"math/big"
	"sync"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

// BLSVerifier is the production Verifier: contributions are BLS12-381 G1
// signatures over a digest-derived message point, verified against each
// contributor's registered G2 public key, and aggregated by summing the G1
// points (valid because every contributor signs the same message).
type BLSVerifier struct {
	mu        sync.RWMutex
	power     map[Contributor]uint64
	pubKeys   map[Contributor]bls12381.G2Affine
	threshold uint64
}

// NewBLSVerifier builds a verifier over a fixed validator set.
func NewBLSVerifier(power map[Contributor]uint64, pubKeys map[Contributor]bls12381.G2Affine, threshold uint64) *BLSVerifier {
	return &BLSVerifier{power: power, pubKeys: pubKeys, threshold: threshold}
}

func (v *BLSVerifier) VotingPower(c Contributor) uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.power[c]
}

func (v *BLSVerifier) QuorumThreshold() uint64 { return v.threshold }

// messagePoint maps a digest deterministically onto a G1 curve point by
// treating the digest bytes as a scalar and multiplying the G1 generator.
// This is a simplified stand-in for a full hash-to-curve construction,
// sufficient to exercise the pairing-based verification shape this type
// exists to demonstrate.
func messagePoint(info Info) bls12381.G1Affine {
	var scalar fr.Element
	scalar.SetBytes(info.Digest[:])

	_, _, g1Gen, _ := bls12381.Generators()

	var scalarBig big.Int
	scalar.BigInt(&scalarBig)

	var p bls12381.G1Jac
	p.ScalarMultiplication(&g1Gen, &scalarBig)

	var aff bls12381.G1Affine
	aff.FromJacobian(&p)

	return aff
}

func (v *BLSVerifier) VerifyContribution(signer Contributor, info Info, sig Signature) error {
	v.mu.RLock()
	pub, ok := v.pubKeys[signer]
	v.mu.RUnlock()

	if !ok {
		return fmt.Errorf("aggregator: no registered public key for %q", signer)
	}

	var sigPoint bls12381.G1Affine
	if _, err := sigPoint.SetBytes(sig); err != nil {
		return fmt.Errorf("aggregator: malformed signature from %q: %w", signer, err)
	}

	msg := messagePoint(info)

	_, _, _, g2Gen := bls12381.Generators()

	ok2, err := bls12381.PairingCheck(
		[]bls12381.G1Affine{sigPoint, negG1(msg)},
		[]bls12381.G2Affine{g2Gen, pub},
	)
	if err != nil {
		return fmt.Errorf("aggregator: pairing check failed: %w", err)
	}

	if !ok2 {
		return fmt.Errorf("aggregator: invalid signature from %q", signer)
	}

	return nil
}

func negG1(p bls12381.G1Affine) bls12381.G1Affine {
	var neg bls12381.G1Affine
	neg.Neg(&p)

	return neg
}

func (v *BLSVerifier) Aggregate(info Info, sigs map[Contributor]Signature) ([]byte, error) {
	var agg bls12381.G1Jac

	for signer, sig := range sigs {
		var p bls12381.G1Affine
		if _, err := p.SetBytes(sig); err != nil {
			return nil, fmt.Errorf("aggregator: malformed signature from %q: %w", signer, err)
		}

		agg.AddMixed(&p)
	}

	var aggAff bls12381.G1Affine
	aggAff.FromJacobian(&agg)

	out := aggAff.Bytes()

	return out[:], nil
}
