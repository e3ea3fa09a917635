package amt

import (
	"fmt"
	"time"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/logger"
)

// ProofNode is the sibling subtree of one level on the authentication path.
type ProofNode struct {
	Commitment bls12381.G1Affine
	Quotient   bls12381.G1Affine
}

// Proof lists one node per tree level, root level first.
type Proof []ProofNode

// AllProofs is the materialized proof tree of one blob. Commitments[d] and Proofs[d]
// hold the 2^(d+1) subtrees of level d+1.
type AllProofs struct {
	Commitments    [][]bls12381.G1Affine
	Proofs         [][]bls12381.G1Affine
	InputLen       int
	BatchSize      int
	HighCommitment bls12381.G1Affine
}

// Commitment commits to data given in bit-reversed order.
func (me *Params) Commitment(data []fr.Element) (bls12381.G1Affine, error) {
	return msmAffine(me.Basis, data)
}

// GenAllProofs commits to data and builds the proof tree of every batchSize-long leaf.
// Pass backend.WithIcicleAcceleration() to run the MSMs on a GPU.
func (me *Params) GenAllProofs(data []fr.Element, batchSize int, opts ...backend.ProverOption) (bls12381.G1Affine, *AllProofs, error) {
	var commitment bls12381.G1Affine
	n := len(me.Basis)
	if len(data) != n {
		return commitment, nil, fmt.Errorf("%w: %d scalars for %d bases", ErrUnexpectedDataLength, len(data), n)
	}
	if batchSize <= 0 || !isPowerOfTwo(batchSize) || batchSize > n {
		return commitment, nil, fmt.Errorf("batch size %d must be a power of two not above %d", batchSize, n)
	}
	numBatches := n / batchSize
	height := log2(numBatches)
	if height > me.ProveDepth() {
		return commitment, nil, fmt.Errorf("proof height %d exceeds prove depth %d", height, me.ProveDepth())
	}
	log := logger.Logger().With().Str("component", "amt-prover").Int("size", n).Int("batches", numBatches).Logger()
	start := time.Now()

	engine, err := me.engine(opts...)
	if err != nil {
		return commitment, nil, err
	}
	lines, err := engine.LineMSM(data, numBatches, 2+height)
	if err != nil {
		return commitment, nil, err
	}
	log.Debug().Dur("took", time.Since(start)).Msg("line MSMs done")

	all := &AllProofs{
		Commitments: make([][]bls12381.G1Affine, height),
		Proofs:      make([][]bls12381.G1Affine, height),
		InputLen:    n,
		BatchSize:   batchSize,
	}

	// leaf commitments fold upward one level at a time
	level := lines[0]
	for d := height - 1; d >= 0; d-- {
		all.Commitments[d] = bls12381.BatchJacobianToAffineG1(level)
		next := make([]bls12381.G1Jac, len(level)/2)
		for j := range next {
			next[j] = level[2*j]
			next[j].AddAssign(&level[2*j+1])
		}
		level = next

		contrib := lines[2+d]
		per := numBatches >> (d + 1)
		nodes := make([]bls12381.G1Jac, 1<<(d+1))
		for j := range nodes {
			nodes[j] = sumJac(contrib[j*per : (j+1)*per])
		}
		all.Proofs[d] = bls12381.BatchJacobianToAffineG1(nodes)
	}
	commitment.FromJacobian(&level[0])

	high := sumJac(lines[1])
	all.HighCommitment.FromJacobian(&high)

	log.Debug().Dur("took", time.Since(start)).Msg("prover done")
	return commitment, all, nil
}

func sumJac(a []bls12381.G1Jac) bls12381.G1Jac {
	var res bls12381.G1Jac
	for i := range a {
		res.AddAssign(&a[i])
	}
	return res
}

func (me *AllProofs) Height() int {
	return len(me.Commitments)
}

// GetProof extracts the authentication path of a leaf. batchIndex is the leaf position
// in the bit-reversed layout; an out-of-range index is a programming error.
func (me *AllProofs) GetProof(batchIndex int) (Proof, bls12381.G1Affine) {
	if batchIndex < 0 || batchIndex*me.BatchSize >= me.InputLen {
		panic(fmt.Sprintf("amt: batch index %d out of range (%d scalars, batch %d)", batchIndex, me.InputLen, me.BatchSize))
	}
	height := me.Height()
	proof := make(Proof, height)
	for d := 0; d < height; d++ {
		sibling := (batchIndex >> (height - 1 - d)) ^ 1
		proof[d] = ProofNode{
			Commitment: me.Commitments[d][sibling],
			Quotient:   me.Proofs[d][sibling],
		}
	}
	return proof, me.HighCommitment
}
