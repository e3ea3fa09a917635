package amt

import (
	"testing"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark/test"
)

func TestSetupPowers(t *testing.T) {
	assert := test.NewAssert(t)
	pp := testPowersOfTau()
	n := 1 << testDepth
	assert.Equal(testDepth, pp.Depth())
	assert.True(pp.HasHighSegment())
	assert.NoError(pp.validate())

	assert.True(pp.G1[0].Equal(&G1_GEN))
	assert.True(pp.G2[0].Equal(&G2_GEN))
	for _, i := range []int{1, 7, n - 1} {
		s := powerOfTau(i)
		want := g1Of(&s)
		assert.True(pp.G1[i].Equal(&want), "g1 power %d", i)

		var want2 bls12381.G2Affine
		want2.ScalarMultiplicationBase(bigOf(&s))
		assert.True(pp.G2[i].Equal(&want2), "g2 power %d", i)
	}

	shift := 1<<testHighDepth - n
	for _, i := range []int{0, 5, n - 1} {
		s := powerOfTau(shift + i)
		want := g1Of(&s)
		assert.True(pp.HighG1[i].Equal(&want), "high power %d", i)
	}
	s := powerOfTau(shift)
	var want bls12381.G2Affine
	want.ScalarMultiplicationBase(bigOf(&s))
	assert.True(pp.HighG2.Equal(&want))
}

func TestSetupErrors(t *testing.T) {
	assert := test.NewAssert(t)
	_, err := Setup(0, 4)
	assert.Error(err)
	_, err = Setup(MAX_DEPTH+1, TWO_ADICITY)
	assert.Error(err)
	_, err = Setup(4, 4)
	assert.Error(err)
	_, err = Setup(4, TWO_ADICITY+1)
	assert.Error(err)

	pp, err := Setup(3, 5)
	assert.NoError(err)
	assert.Equal(3, pp.Depth())
}

func TestTruncate(t *testing.T) {
	assert := test.NewAssert(t)
	pp := testPowersOfTau()

	same, err := pp.Truncate(testDepth)
	assert.NoError(err)
	assert.True(same == pp)

	for depth := 1; depth < testDepth; depth++ {
		small, err := pp.Truncate(depth)
		assert.NoError(err)
		assert.Equal(depth, small.Depth())
		assert.False(small.HasHighSegment())
		assert.NoError(small.validate())

		fresh := mustSetup(depth)
		for i := range small.G1 {
			assert.True(small.G1[i].Equal(&fresh.G1[i]))
			assert.True(small.G2[i].Equal(&fresh.G2[i]))
		}
	}

	_, err = pp.Truncate(testDepth + 1)
	assert.ErrorIs(err, ErrInconsistentLength)
	_, err = pp.Truncate(0)
	assert.ErrorIs(err, ErrInconsistentLength)
}
