package amt

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

func msmJac(bases []bls12381.G1Affine, scalars []fr.Element, nbTasks int) (bls12381.G1Jac, error) {
	var res bls12381.G1Jac
	if len(bases) != len(scalars) {
		return res, fmt.Errorf("%w: %d bases, %d scalars", ErrUnexpectedDataLength, len(bases), len(scalars))
	}
	if len(bases) == 0 {
		return res, nil
	}
	_, err := res.MultiExp(bases, scalars, ecc.MultiExpConfig{NbTasks: nbTasks})
	return res, err
}

func msmAffine(bases []bls12381.G1Affine, scalars []fr.Element) (bls12381.G1Affine, error) {
	var res bls12381.G1Affine
	jac, err := msmJac(bases, scalars, 0)
	if err != nil {
		return res, err
	}
	res.FromJacobian(&jac)
	return res, nil
}
