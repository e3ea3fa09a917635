package amt

import (
	"testing"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr/fft"
	"github.com/consensys/gnark/test"
)

func TestBitReverseIndex(t *testing.T) {
	assert := test.NewAssert(t)
	assert.Equal(0, BitReverseIndex(5, 0))
	assert.Equal(4, BitReverseIndex(1, 3))
	assert.Equal(6, BitReverseIndex(3, 3))
	assert.Equal(1<<27, BitReverseIndex(1, 28))

	a := []int{0, 1, 2, 3, 4, 5, 6, 7}
	bitReverse(a)
	assert.Equal([]int{0, 4, 2, 6, 1, 5, 3, 7}, a)
	bitReverse(a)
	assert.Equal([]int{0, 1, 2, 3, 4, 5, 6, 7}, a)
}

func TestFFTG1RoundTrip(t *testing.T) {
	assert := test.NewAssert(t)
	for _, n := range []int{1, 2, 16, 64} {
		a := randomG1(n)
		b := make([]bls12381.G1Jac, n)
		copy(b, a)
		FFTG1(b)
		IFFTG1(b)
		for i := range a {
			assert.True(a[i].Equal(&b[i]), "n=%d i=%d", n, i)
		}
	}
}

func TestFFTG1MatchesScalarFFT(t *testing.T) {
	assert := test.NewAssert(t)
	const n = 32
	scalars := randomScalars(n)
	points := make([]bls12381.G1Jac, n)
	for i := range scalars {
		points[i].ScalarMultiplicationBase(bigOf(&scalars[i]))
	}

	domain := fft.NewDomain(n)
	domain.FFT(scalars, fft.DIF)
	fft.BitReverse(scalars)
	FFTG1(points)

	for i := range scalars {
		var want bls12381.G1Jac
		want.ScalarMultiplicationBase(bigOf(&scalars[i]))
		assert.True(want.Equal(&points[i]), "evaluation %d", i)
	}
}

func TestFFTG2RoundTrip(t *testing.T) {
	assert := test.NewAssert(t)
	const n = 8
	a := make([]bls12381.G2Jac, n)
	for i, s := range randomScalars(n) {
		a[i].ScalarMultiplicationBase(bigOf(&s))
	}
	b := make([]bls12381.G2Jac, n)
	copy(b, a)
	FFTG2(b)
	IFFTG2(b)
	for i := range a {
		assert.True(a[i].Equal(&b[i]), "i=%d", i)
	}
}
