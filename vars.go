package amt

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

// TWO_ADICITY is the largest k with 2^k | r-1 for the BLS12-381 scalar field.
const TWO_ADICITY = 32

// DEFAULT_HIGH_DEPTH places the low-degree-test segment at the top of a 2^28 domain,
// the size of the perpetual powers of tau ceremony.
const DEFAULT_HIGH_DEPTH = 28

const MAX_DEPTH = 28

const CURVE_NAME = "bls12-381"

var FIELD = ecc.BLS12_381.ScalarField()

var G1_GEN, G2_GEN = func() (bls12381.G1Affine, bls12381.G2Affine) {
	_, _, g1, g2 := bls12381.Generators()
	return g1, g2
}()

// ROOT_OF_UNITY is the primitive 2^TWO_ADICITY-th root of unity all domains derive from.
var ROOT_OF_UNITY = func() fr.Element {
	w, err := fr.Generator(1 << TWO_ADICITY)
	if err != nil {
		panic(err)
	}
	return w
}()

func bigOf(e *fr.Element) *big.Int {
	var b big.Int
	e.BigInt(&b)
	return &b
}
