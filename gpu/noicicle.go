//go:build !icicle

package gpu

import (
	"errors"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

const HasIcicle = false

var errNoIcicle = errors.New("icicle requested but program compiled without 'icicle' build tag")

type LineMSM struct{}

func NewLineMSM(_ [][]bls12381.G1Affine) (*LineMSM, error) {
	return nil, errNoIcicle
}

func (me *LineMSM) Run(_ []fr.Element, _, _ int) ([][]bls12381.G1Jac, error) {
	return nil, errNoIcicle
}

func (me *LineMSM) Free() {}
