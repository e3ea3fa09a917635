package amt

import (
	"fmt"
	"math/big"
	"runtime"
	"time"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/kzg"
	"github.com/consensys/gnark/logger"
	"golang.org/x/sync/errgroup"
)

// Params are the prover parameters of one (depth, coset) pair. Every array is stored
// in bit-reversed order, so a subtree of the proof tree is a contiguous slice.
type Params struct {
	Basis     []bls12381.G1Affine
	Quotients [][]bls12381.G1Affine // Quotients[d] serves tree level d+1
	Vanishes  [][]bls12381.G2Affine // len(Vanishes[d]) == 2^(d+1)
	G2        bls12381.G2Affine
	HighBasis []bls12381.G1Affine
	HighG2    bls12381.G2Affine
	Coset     int

	device deviceCache
}

// CosetFactor returns the shift of coset idx for a domain of the given length.
// Cosets are enumerated in bit-reversed order, so coset 1 is the half-way shift.
func CosetFactor(length, idx int) fr.Element {
	if !isPowerOfTwo(length) {
		panic("CosetFactor: length must be a power of two")
	}
	width := TWO_ADICITY - log2(length)
	if idx < 0 || idx >= 1<<width {
		panic(fmt.Sprintf("CosetFactor: coset %d out of range for length %d", idx, length))
	}
	var res fr.Element
	res.Exp(ROOT_OF_UNITY, big.NewInt(int64(BitReverseIndex(idx, width))))
	return res
}

// NewParams derives prover parameters supporting proofs of up to proveDepth levels.
func NewParams(pp *PowersOfTau, proveDepth, coset int) (*Params, error) {
	if err := pp.validate(); err != nil {
		return nil, err
	}
	if !pp.HasHighSegment() {
		return nil, ErrMissingHighSegment
	}
	depth := pp.Depth()
	if proveDepth < 0 || proveDepth > depth {
		return nil, fmt.Errorf("prove depth %d out of range [0, %d]", proveDepth, depth)
	}
	if coset < 0 || coset >= 1<<(TWO_ADICITY-depth) {
		return nil, fmt.Errorf("coset %d out of range for depth %d", coset, depth)
	}
	log := logger.Logger().With().Str("component", "amt-params").Int("depth", depth).Int("prove_depth", proveDepth).Int("coset", coset).Logger()
	start := time.Now()

	g1 := toJacG1(pp.G1)
	g2 := toJacG2(pp.G2)
	high := toJacG1(pp.HighG1)
	if coset != 0 {
		w := CosetFactor(len(g1), coset)
		w.Inverse(&w)
		scalePowers[bls12381.G1Jac](g1, w)
		scalePowers[bls12381.G2Jac](g2, w)
		scalePowers[bls12381.G1Jac](high, w)
	}

	p := &Params{
		G2:        pp.G2[0],
		HighG2:    pp.HighG2,
		Coset:     coset,
		Quotients: make([][]bls12381.G1Affine, proveDepth),
		Vanishes:  make([][]bls12381.G2Affine, proveDepth),
	}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	g.Go(func() (err error) {
		p.Basis, err = genBasis(g1)
		log.Debug().Dur("took", time.Since(start)).Msg("basis done")
		return err
	})
	g.Go(func() (err error) {
		p.HighBasis, err = genBasis(high)
		log.Debug().Dur("took", time.Since(start)).Msg("high basis done")
		return err
	})
	for d := 1; d <= proveDepth; d++ {
		g.Go(func() error {
			p.Quotients[d-1] = genQuotients(g1, d)
			return nil
		})
		g.Go(func() error {
			p.Vanishes[d-1] = genVanishes(g2, d)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info().Dur("took", time.Since(start)).Msg("AMT params generated")
	return p, nil
}

// genBasis turns powers of tau into the bit-reversed Lagrange basis.
func genBasis(g1 []bls12381.G1Jac) ([]bls12381.G1Affine, error) {
	powers := bls12381.BatchJacobianToAffineG1(g1)
	if len(powers) == 1 {
		return powers, nil
	}
	basis, err := kzg.ToLagrangeG1(powers)
	if err != nil {
		return nil, err
	}
	bitReverse(basis)
	return basis, nil
}

// genQuotients commits, for every leaf, to the quotient of its Lagrange polynomial by
// the vanishing polynomial of its level-d subgroup coset.
func genQuotients(g1 []bls12381.G1Jac, d int) []bls12381.G1Affine {
	n := len(g1)
	m := n >> d
	a := make([]bls12381.G1Jac, n)
	for i := 1; i <= m; i++ {
		a[i] = g1[m-i]
	}
	FFTG1(a)
	var sizeInv fr.Element
	sizeInv.SetUint64(uint64(n))
	sizeInv.Inverse(&sizeInv)
	scaleGroup[bls12381.G1Jac](a, sizeInv)
	quotients := bls12381.BatchJacobianToAffineG1(a)
	bitReverse(quotients)
	return quotients
}

// genVanishes evaluates in G2, at each coset of the size 2^d subgroup, the vanishing
// polynomial of that coset.
func genVanishes(g2 []bls12381.G2Jac, d int) []bls12381.G2Affine {
	n := len(g2)
	k := 1 << d
	step := n / k
	a := make([]bls12381.G2Jac, k)
	a[0] = g2[n-step]
	for i := 1; i < k; i++ {
		a[i] = g2[(i-1)*step]
	}
	var inv fr.Element
	w := domainGenerator(k)
	inv.Inverse(&w)
	fftGroup[bls12381.G2Jac](a, inv)
	vanishes := toAffineG2(a)
	bitReverse(vanishes)
	return vanishes
}

func (me *Params) Depth() int {
	return log2(len(me.Basis))
}

func (me *Params) ProveDepth() int {
	return len(me.Quotients)
}

// ReduceProveDepth returns a view serving proofs of at most depth levels. Arrays are shared.
func (me *Params) ReduceProveDepth(depth int) *Params {
	if depth > me.ProveDepth() || depth < 0 {
		panic(fmt.Sprintf("ReduceProveDepth: %d exceeds prove depth %d", depth, me.ProveDepth()))
	}
	return &Params{
		Basis:     me.Basis,
		Quotients: me.Quotients[:depth],
		Vanishes:  me.Vanishes[:depth],
		G2:        me.G2,
		HighBasis: me.HighBasis,
		HighG2:    me.HighG2,
		Coset:     me.Coset,
	}
}

// VerifierParams drops the quotients, keeping what light clients need to check
// proofs of up to verifyDepth levels.
func (me *Params) VerifierParams(verifyDepth int) *VerifierParams {
	if verifyDepth > len(me.Vanishes) || verifyDepth < 0 {
		panic(fmt.Sprintf("VerifierParams: %d exceeds prove depth %d", verifyDepth, len(me.Vanishes)))
	}
	return &VerifierParams{
		Basis:    me.Basis,
		Vanishes: me.Vanishes[:verifyDepth],
		G2:       me.G2,
		HighG2:   me.HighG2,
		Coset:    me.Coset,
	}
}

// LDTParams is the low-degree-test half of Params.
type LDTParams struct {
	HighBasis []bls12381.G1Affine
	HighG2    bls12381.G2Affine
}

func (me *Params) LDTParams() *LDTParams {
	return &LDTParams{HighBasis: me.HighBasis, HighG2: me.HighG2}
}

// HighCommitment commits to data against the shifted basis.
func (me *LDTParams) HighCommitment(data []fr.Element) (bls12381.G1Affine, error) {
	return msmAffine(me.HighBasis, data)
}

func (me *Params) validate() error {
	n := len(me.Basis)
	if !isPowerOfTwo(n) || len(me.HighBasis) != n {
		return fmt.Errorf("%w: basis %d high basis %d", ErrInconsistentLength, n, len(me.HighBasis))
	}
	if len(me.Quotients) != len(me.Vanishes) || len(me.Quotients) > log2(n) {
		return fmt.Errorf("%w: quotients %d vanishes %d", ErrInconsistentLength, len(me.Quotients), len(me.Vanishes))
	}
	for d := range me.Quotients {
		if len(me.Quotients[d]) != n || len(me.Vanishes[d]) != 1<<(d+1) {
			return fmt.Errorf("%w: level %d", ErrInconsistentLength, d+1)
		}
	}
	return nil
}
