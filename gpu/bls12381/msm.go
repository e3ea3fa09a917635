//go:build icicle

package bls12_381_gpu

import (
	curve "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fp"

	icicle_core "github.com/ingonyama-zk/icicle-gnark/v3/wrappers/golang/core"
	icicle_bls12_381 "github.com/ingonyama-zk/icicle-gnark/v3/wrappers/golang/curves/bls12381"
	icicle_msm "github.com/ingonyama-zk/icicle-gnark/v3/wrappers/golang/curves/bls12381/msm"
	icicle_runtime "github.com/ingonyama-zk/icicle-gnark/v3/wrappers/golang/runtime"
)

func blsProjectiveToGnarkAffine(p icicle_bls12_381.Projective) curve.G1Affine {
	bx := p.X.ToBytesLittleEndian()
	by := p.Y.ToBytesLittleEndian()
	bz := p.Z.ToBytesLittleEndian()

	var ax, ay, az fp.Element
	ax, _ = fp.LittleEndian.Element((*[fp.Bytes]byte)(bx))
	ay, _ = fp.LittleEndian.Element((*[fp.Bytes]byte)(by))
	az, _ = fp.LittleEndian.Element((*[fp.Bytes]byte)(bz))

	if az.IsZero() {
		return curve.G1Affine{}
	}

	var zInv fp.Element
	zInv.Inverse(&az)
	ax.Mul(&ax, &zInv)
	ay.Mul(&ay, &zInv)

	return curve.G1Affine{X: ax, Y: ay}
}

// OnDeviceBatchMSM splits scalars and bases into batchSize consecutive equal chunks and
// returns one MSM per chunk. Scalars are in Montgomery form (gnark-crypto default),
// bases must already have been converted out of it with AffineFromMontgomery.
// Must run inside icicle_runtime.RunOnDevice.
func OnDeviceBatchMSM(scalars, bases icicle_core.DeviceSlice, batchSize int) ([]curve.G1Affine, icicle_runtime.EIcicleError) {
	if batchSize <= 0 {
		return nil, icicle_runtime.InvalidArgument
	}

	cfg := icicle_msm.GetDefaultMSMConfig()
	cfg.BatchSize = int32(batchSize)
	cfg.ArePointsSharedInBatch = false
	cfg.AreScalarsMontgomeryForm = true
	cfg.AreBasesMontgomeryForm = false
	cfg.PrecomputeFactor = 1

	out := make(icicle_core.HostSlice[icicle_bls12_381.Projective], batchSize)
	if st := icicle_msm.Msm(scalars, bases, &cfg, out); st != icicle_runtime.Success {
		return nil, st
	}

	res := make([]curve.G1Affine, batchSize)
	for i := range res {
		res[i] = blsProjectiveToGnarkAffine(out[i])
	}
	return res, icicle_runtime.Success
}
