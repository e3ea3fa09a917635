package amt

import (
	"errors"
	"fmt"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

var (
	ErrUnexpectedDataLength   = errors.New("amt: unexpected data length")
	ErrIncorrectPosition      = errors.New("amt: incorrect position")
	ErrInconsistentCommitment = errors.New("amt: inconsistent commitment")
	ErrFailedLowDegreeTest    = errors.New("amt: failed low degree test")
	ErrProofTooDeep           = errors.New("amt: proof deeper than the verifier params")
	ErrInconsistentLength     = errors.New("amt: inconsistent length")
)

// KZGError reports a failed quotient check at a tree level (0 is the root level).
type KZGError struct {
	Level int
}

func (e *KZGError) Error() string {
	return fmt.Sprintf("amt: kzg check failed at level %d", e.Level)
}

// VerifierParams is the part of Params a light client needs.
type VerifierParams struct {
	Basis    []bls12381.G1Affine
	Vanishes [][]bls12381.G2Affine
	G2       bls12381.G2Affine
	HighG2   bls12381.G2Affine
	Coset    int
}

func (me *VerifierParams) Depth() int {
	return log2(len(me.Basis))
}

func (me *VerifierParams) VerifyDepth() int {
	return len(me.Vanishes)
}

// VerifyProof checks the leaf data (bit-reversed order) at batchIndex against
// commitment. With a non-nil dv the pairing checks are recorded instead of run; the
// commitment arithmetic is always checked here.
func (me *VerifierParams) VerifyProof(data []fr.Element, batchIndex int, proof Proof, highCommitment, commitment bls12381.G1Affine, dv *DeferredVerifier) error {
	return verifyProof(me.Basis, me.Vanishes, &me.G2, &me.HighG2, data, batchIndex, proof, &highCommitment, &commitment, dv)
}

func (me *Params) VerifyProof(data []fr.Element, batchIndex int, proof Proof, highCommitment, commitment bls12381.G1Affine, dv *DeferredVerifier) error {
	return verifyProof(me.Basis, me.Vanishes, &me.G2, &me.HighG2, data, batchIndex, proof, &highCommitment, &commitment, dv)
}

// CheckLowDegree runs the low-degree test alone.
func (me *VerifierParams) CheckLowDegree(commitment, highCommitment bls12381.G1Affine) error {
	if !pairingEqual(&highCommitment, &me.G2, &commitment, &me.HighG2) {
		return ErrFailedLowDegreeTest
	}
	return nil
}

func verifyProof(
	basis []bls12381.G1Affine, vanishes [][]bls12381.G2Affine, g2, highG2 *bls12381.G2Affine,
	data []fr.Element, batchIndex int, proof Proof, highCommitment, commitment *bls12381.G1Affine,
	dv *DeferredVerifier,
) error {
	depth := len(proof)
	if depth > len(vanishes) || 1<<depth > len(basis) {
		return ErrProofTooDeep
	}
	numBatch := 1 << depth
	batch := len(basis) / numBatch
	if batch != len(data) {
		return ErrUnexpectedDataLength
	}
	if batchIndex < 0 || batchIndex >= numBatch {
		return ErrIncorrectPosition
	}
	bases := basis[batchIndex*batch : (batchIndex+1)*batch]

	overall, err := msmJac(bases, data, 0)
	if err != nil {
		return err
	}
	tasks := make([]PairingTask, 0, depth+1)
	for d := depth - 1; d >= 0; d-- {
		vanishIndex := (batchIndex >> (depth - 1 - d)) ^ 1
		task := PairingTask{
			A:   proof[d].Commitment,
			B:   *g2,
			C:   proof[d].Quotient,
			D:   vanishes[d][vanishIndex],
			Err: &KZGError{Level: d},
		}
		if dv == nil && !task.Holds() {
			return task.Err
		}
		tasks = append(tasks, task)
		overall.AddMixed(&proof[d].Commitment)
	}

	// the self commitment plus every sibling subtree must rebuild the root, deferred or not
	var expected bls12381.G1Jac
	expected.FromAffine(commitment)
	if !overall.Equal(&expected) {
		return ErrInconsistentCommitment
	}

	ldt := PairingTask{A: *highCommitment, B: *g2, C: *commitment, D: *highG2, Err: ErrFailedLowDegreeTest}
	if dv != nil {
		dv.RecordPairing(append(tasks, ldt)...)
		return nil
	}
	if !ldt.Holds() {
		return ldt.Err
	}
	return nil
}

// pairingEqual reports e(a, b) == e(c, d) with a single final exponentiation.
func pairingEqual(a *bls12381.G1Affine, b *bls12381.G2Affine, c *bls12381.G1Affine, d *bls12381.G2Affine) bool {
	var negC bls12381.G1Affine
	negC.Neg(c)
	ok, err := bls12381.PairingCheck([]bls12381.G1Affine{*a, negC}, []bls12381.G2Affine{*b, *d})
	return err == nil && ok
}
