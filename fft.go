package amt

import (
	"math/big"
	"math/bits"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	"github.com/eon-protocol/amt/parallel"
)

// groupJac is the projective group arithmetic the FFT needs; both G1Jac and G2Jac satisfy it.
type groupJac[T any] interface {
	*T
	Set(*T) *T
	AddAssign(*T) *T
	SubAssign(*T) *T
	ScalarMultiplication(*T, *big.Int) *T
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func log2(n int) int {
	return bits.TrailingZeros(uint(n))
}

// BitReverseIndex reverses the lowest width bits of i.
func BitReverseIndex(i, width int) int {
	if width == 0 {
		return 0
	}
	return int(bits.Reverse64(uint64(i)) >> (64 - width))
}

// bitReverse applies the bit-reversal permutation in place. len(a) must be a power of two.
func bitReverse[T any](a []T) {
	n := len(a)
	if !isPowerOfTwo(n) {
		panic("bitReverse: length must be a power of two")
	}
	width := log2(n)
	for i := 0; i < n; i++ {
		j := BitReverseIndex(i, width)
		if j > i {
			a[i], a[j] = a[j], a[i]
		}
	}
}

// fftGroup computes out[k] = Σ a[i]·omega^(ik) in place, natural order in and out.
// omega must be a primitive len(a)-th root of unity.
func fftGroup[T any, P groupJac[T]](a []T, omega fr.Element) {
	n := len(a)
	if !isPowerOfTwo(n) {
		panic("fft: length must be a power of two")
	}
	if n == 1 {
		return
	}
	bitReverse(a)

	half := n / 2
	twiddles := make([]big.Int, half)
	var w fr.Element
	w.SetOne()
	for k := range twiddles {
		w.BigInt(&twiddles[k])
		w.Mul(&w, &omega)
	}

	for size := 2; size <= n; size <<= 1 {
		h := size / 2
		stride := n / size
		parallel.Execute(half, func(start, end int) {
			var u, v T
			for b := start; b < end; b++ {
				j := b % h
				i := (b/h)*size + j
				P(&v).Set(&a[i+h])
				if j != 0 {
					P(&v).ScalarMultiplication(&v, &twiddles[j*stride])
				}
				P(&u).Set(&a[i])
				P(&a[i]).AddAssign(&v)
				P(&a[i+h]).Set(&u)
				P(&a[i+h]).SubAssign(&v)
			}
		})
	}
}

func scaleGroup[T any, P groupJac[T]](a []T, s fr.Element) {
	b := bigOf(&s)
	parallel.Execute(len(a), func(start, end int) {
		for i := start; i < end; i++ {
			P(&a[i]).ScalarMultiplication(&a[i], b)
		}
	})
}

// scalePowers multiplies a[i] by w^i.
func scalePowers[T any, P groupJac[T]](a []T, w fr.Element) {
	parallel.Execute(len(a), func(start, end int) {
		var wi fr.Element
		wi.Exp(w, big.NewInt(int64(start)))
		var b big.Int
		for i := start; i < end; i++ {
			wi.BigInt(&b)
			P(&a[i]).ScalarMultiplication(&a[i], &b)
			wi.Mul(&wi, &w)
		}
	})
}

func domainGenerator(n int) fr.Element {
	w, err := fr.Generator(uint64(n))
	if err != nil {
		panic(err)
	}
	return w
}

// FFTG1 evaluates the group-valued polynomial a on the size len(a) domain.
func FFTG1(a []bls12381.G1Jac) {
	fftGroup[bls12381.G1Jac](a, domainGenerator(len(a)))
}

// IFFTG1 is the inverse of FFTG1.
func IFFTG1(a []bls12381.G1Jac) {
	var inv, size fr.Element
	w := domainGenerator(len(a))
	inv.Inverse(&w)
	fftGroup[bls12381.G1Jac](a, inv)
	size.SetUint64(uint64(len(a)))
	size.Inverse(&size)
	scaleGroup[bls12381.G1Jac](a, size)
}

func FFTG2(a []bls12381.G2Jac) {
	fftGroup[bls12381.G2Jac](a, domainGenerator(len(a)))
}

func IFFTG2(a []bls12381.G2Jac) {
	var inv, size fr.Element
	w := domainGenerator(len(a))
	inv.Inverse(&w)
	fftGroup[bls12381.G2Jac](a, inv)
	size.SetUint64(uint64(len(a)))
	size.Inverse(&size)
	scaleGroup[bls12381.G2Jac](a, size)
}

func toJacG1(a []bls12381.G1Affine) []bls12381.G1Jac {
	res := make([]bls12381.G1Jac, len(a))
	parallel.Execute(len(a), func(start, end int) {
		for i := start; i < end; i++ {
			res[i].FromAffine(&a[i])
		}
	})
	return res
}

func toJacG2(a []bls12381.G2Affine) []bls12381.G2Jac {
	res := make([]bls12381.G2Jac, len(a))
	parallel.Execute(len(a), func(start, end int) {
		for i := start; i < end; i++ {
			res[i].FromAffine(&a[i])
		}
	})
	return res
}

// gnark-crypto has no batch inversion for G2, so points are normalized one by one.
func toAffineG2(a []bls12381.G2Jac) []bls12381.G2Affine {
	res := make([]bls12381.G2Affine, len(a))
	parallel.Execute(len(a), func(start, end int) {
		for i := start; i < end; i++ {
			res[i].FromJacobian(&a[i])
		}
	})
	return res
}
