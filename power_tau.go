package amt

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark/logger"

	"github.com/eon-protocol/amt/parallel"
)

// PowersOfTau holds g1^(τ^i), g2^(τ^i) for i < N and the low-degree-test segment
// g1^(τ^(S+i)), g2^(τ^S) with S = 2^highDepth - N.
type PowersOfTau struct {
	G1     []bls12381.G1Affine
	G2     []bls12381.G2Affine
	HighG1 []bls12381.G1Affine
	HighG2 bls12381.G2Affine
}

var ErrMissingHighSegment = errors.New("amt: powers of tau carry no low-degree-test segment")

// Setup samples a fresh τ. τ is dropped on return; use only for tests and local
// deployments, production parameters come from a ceremony.
func Setup(depth, highDepth int) (*PowersOfTau, error) {
	var tau fr.Element
	if _, err := tau.SetRandom(); err != nil {
		return nil, err
	}
	return SetupWithTau(tau, depth, highDepth)
}

func SetupWithTau(tau fr.Element, depth, highDepth int) (*PowersOfTau, error) {
	if depth < 1 || depth > MAX_DEPTH {
		return nil, fmt.Errorf("depth %d out of range [1, %d]", depth, MAX_DEPTH)
	}
	if highDepth <= depth || highDepth > TWO_ADICITY {
		return nil, fmt.Errorf("high depth %d must be in (%d, %d]", highDepth, depth, TWO_ADICITY)
	}
	log := logger.Logger().With().Str("component", "power-tau").Int("depth", depth).Int("high_depth", highDepth).Logger()
	start := time.Now()

	n := 1 << depth
	powers := make([]fr.Element, n)
	parallel.Execute(n, func(start, end int) {
		var acc fr.Element
		acc.Exp(tau, big.NewInt(int64(start)))
		for i := start; i < end; i++ {
			powers[i] = acc
			acc.Mul(&acc, &tau)
		}
	})

	var shift fr.Element
	shift.Exp(tau, big.NewInt(int64(1)<<highDepth-int64(n)))
	high := make([]fr.Element, n)
	parallel.Execute(n, func(start, end int) {
		for i := start; i < end; i++ {
			high[i].Mul(&powers[i], &shift)
		}
	})

	pp := &PowersOfTau{
		G1:     bls12381.BatchScalarMultiplicationG1(&G1_GEN, powers),
		G2:     bls12381.BatchScalarMultiplicationG2(&G2_GEN, powers),
		HighG1: bls12381.BatchScalarMultiplicationG1(&G1_GEN, high),
	}
	pp.HighG2.ScalarMultiplication(&G2_GEN, bigOf(&shift))

	log.Debug().Dur("took", time.Since(start)).Msg("powers of tau generated")
	return pp, nil
}

func (me *PowersOfTau) Depth() int {
	return log2(len(me.G1))
}

func (me *PowersOfTau) HasHighSegment() bool {
	return len(me.HighG1) > 0 && len(me.HighG1) == len(me.G1)
}

// Truncate keeps the first 2^depth powers. The low-degree-test segment is anchored
// to the domain size, so a shrinking truncation drops it.
func (me *PowersOfTau) Truncate(depth int) (*PowersOfTau, error) {
	current := me.Depth()
	if depth > current || depth < 1 {
		return nil, fmt.Errorf("%w: cannot truncate depth %d to %d", ErrInconsistentLength, current, depth)
	}
	if depth == current {
		return me, nil
	}
	n := 1 << depth
	return &PowersOfTau{
		G1: me.G1[:n:n],
		G2: me.G2[:n:n],
	}, nil
}

func (me *PowersOfTau) validate() error {
	n := len(me.G1)
	if !isPowerOfTwo(n) || len(me.G2) != n {
		return fmt.Errorf("%w: g1 %d g2 %d", ErrInconsistentLength, len(me.G1), len(me.G2))
	}
	if len(me.HighG1) != 0 && len(me.HighG1) != n {
		return fmt.Errorf("%w: high g1 %d", ErrInconsistentLength, len(me.HighG1))
	}
	return nil
}
