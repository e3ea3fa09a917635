package blob

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr/fft"

	"github.com/eon-protocol/amt"
	"github.com/eon-protocol/amt/parallel"
)

// swapBits moves the lowest lo bits of n above the next hi bits.
func swapBits(n, lo, hi int) int {
	lowest := n & (1<<lo - 1)
	next := (n >> lo) & (1<<hi - 1)
	return lowest<<hi | next
}

// ChangeMatrixDirection transposes a 2^logCurrent x 2^logNext matrix stored row-major,
// where logCurrent counts the bits of the fast index.
func ChangeMatrixDirection[T any](a []T, logCurrent, logNext int) {
	if len(a) != 1<<(logCurrent+logNext) {
		panic("ChangeMatrixDirection: length does not match the matrix shape")
	}
	if logCurrent == logNext {
		for i := range a {
			if ri := swapBits(i, logCurrent, logCurrent); i < ri {
				a[i], a[ri] = a[ri], a[i]
			}
		}
		return
	}
	out := make([]T, len(a))
	for i := range a {
		out[swapBits(i, logCurrent, logNext)] = a[i]
	}
	copy(a, out)
}

// ToCosetBlob re-evaluates the polynomial interpolating data over the size-n subgroup
// on coset idx of that subgroup.
func ToCosetBlob(data []fr.Element, coset int) []fr.Element {
	out := make([]fr.Element, len(data))
	copy(out, data)
	if coset == 0 {
		return out
	}

	domain := fft.NewDomain(uint64(len(out)))
	w := amt.CosetFactor(len(out), coset)

	domain.FFTInverse(out, fft.DIF)
	fft.BitReverse(out)
	parallel.Execute(len(out), func(start, end int) {
		var acc fr.Element
		acc.Exp(w, big.NewInt(int64(start)))
		for i := start; i < end; i++ {
			out[i].Mul(&out[i], &acc)
			acc.Mul(&acc, &w)
		}
	})
	domain.FFT(out, fft.DIF)
	fft.BitReverse(out)
	return out
}
