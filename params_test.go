package amt

import (
	"testing"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark/test"
)

func TestCosetFactor(t *testing.T) {
	assert := test.NewAssert(t)
	want, err := fr.Generator(32)
	assert.NoError(err)
	got := CosetFactor(16, 1)
	assert.True(got.Equal(&want))

	zero := CosetFactor(16, 0)
	assert.True(zero.IsOne())

	// coset 1 of a size n domain is the odd half of the size 2n domain
	w2n := domainGenerator(128)
	got = CosetFactor(64, 1)
	assert.True(got.Equal(&w2n))

	assert.Panics(func() { CosetFactor(12, 1) })
	assert.Panics(func() { CosetFactor(1<<30, 4) })
}

func checkKZGIdentity(assert *test.Assert, p *Params) {
	depth := p.Depth()
	for d := 0; d < p.ProveDepth(); d++ {
		for i := range p.Basis {
			ok := pairingEqual(&p.Basis[i], &p.G2, &p.Quotients[d][i], &p.Vanishes[d][i>>(depth-d-1)])
			assert.True(ok, "coset %d level %d index %d", p.Coset, d, i)
		}
	}
}

func TestParamsKZGIdentity(t *testing.T) {
	assert := test.NewAssert(t)
	checkKZGIdentity(assert, testParams())
	checkKZGIdentity(assert, testCosetParams())
}

func TestBasisIsLagrange(t *testing.T) {
	assert := test.NewAssert(t)
	pp := testPowersOfTau()
	p := testParams()

	// the group IFFT of the powers is the Lagrange basis in natural order
	for _, c := range []struct {
		name   string
		powers []bls12381.G1Affine
		basis  []bls12381.G1Affine
	}{
		{"basis", pp.G1, p.Basis},
		{"high basis", pp.HighG1, p.HighBasis},
	} {
		lagrange := toJacG1(c.powers)
		IFFTG1(lagrange)
		for j := range lagrange {
			var want bls12381.G1Affine
			want.FromJacobian(&lagrange[j])
			assert.True(c.basis[BitReverseIndex(j, testDepth)].Equal(&want), "%s %d", c.name, j)
		}
	}
}

func TestCommitmentOfKnownPolynomial(t *testing.T) {
	assert := test.NewAssert(t)
	n := 1 << testDepth

	for _, p := range []*Params{testParams(), testCosetParams()} {
		// the constant 1 commits to the generator on every coset
		ones := make([]fr.Element, n)
		for i := range ones {
			ones[i].SetOne()
		}
		c, err := p.Commitment(ones)
		assert.NoError(err)
		assert.True(c.Equal(&G1_GEN), "coset %d", p.Coset)

		// f(X) = X evaluated on the coset commits to g1^τ
		h := CosetFactor(n, p.Coset)
		w := domainGenerator(n)
		data := make([]fr.Element, n)
		var x fr.Element
		x.Set(&h)
		for j := 0; j < n; j++ {
			data[BitReverseIndex(j, testDepth)] = x
			x.Mul(&x, &w)
		}
		c, err = p.Commitment(data)
		assert.NoError(err)
		assert.True(c.Equal(&testPowersOfTau().G1[1]), "coset %d", p.Coset)

		tau := powerOfTau(1)
		want := g1Of(&tau)
		assert.True(c.Equal(&want))
	}
}

func TestHighBasisShift(t *testing.T) {
	assert := test.NewAssert(t)
	p := testParams()
	n := 1 << testDepth
	data := randomScalars(n)

	c, err := p.Commitment(data)
	assert.NoError(err)
	high, err := p.LDTParams().HighCommitment(data)
	assert.NoError(err)

	vp := p.VerifierParams(0)
	assert.NoError(vp.CheckLowDegree(c, high))

	shift := powerOfTau(1<<testHighDepth - n)
	var want bls12381.G1Affine
	want.ScalarMultiplication(&c, bigOf(&shift))
	assert.True(high.Equal(&want))
}

func TestNewParamsErrors(t *testing.T) {
	assert := test.NewAssert(t)
	pp := testPowersOfTau()

	_, err := NewParams(pp, testDepth+1, 0)
	assert.Error(err)
	_, err = NewParams(pp, -1, 0)
	assert.Error(err)
	_, err = NewParams(pp, 2, 1<<(TWO_ADICITY-testDepth))
	assert.Error(err)

	truncated, err := pp.Truncate(testDepth - 1)
	assert.NoError(err)
	_, err = NewParams(truncated, 1, 0)
	assert.ErrorIs(err, ErrMissingHighSegment)

	broken := &PowersOfTau{G1: pp.G1, G2: pp.G2[:3], HighG1: pp.HighG1, HighG2: pp.HighG2}
	_, err = NewParams(broken, 1, 0)
	assert.ErrorIs(err, ErrInconsistentLength)
}

func TestParamsViews(t *testing.T) {
	assert := test.NewAssert(t)
	p := testParams()

	reduced := p.ReduceProveDepth(3)
	assert.Equal(3, reduced.ProveDepth())
	assert.Equal(testDepth, reduced.Depth())
	assert.NoError(reduced.validate())

	vp := p.VerifierParams(4)
	assert.Equal(4, vp.VerifyDepth())
	assert.Equal(testDepth, vp.Depth())
	assert.NoError(vp.validate())
	for d := 0; d < 4; d++ {
		assert.Equal(1<<(d+1), len(vp.Vanishes[d]))
	}

	assert.Panics(func() { p.ReduceProveDepth(testDepth + 1) })
	assert.Panics(func() { p.VerifierParams(testDepth + 1) })
}
