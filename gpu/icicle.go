//go:build icicle

// Package gpu runs the proof-generation MSMs on a CUDA device through icicle.
package gpu

import (
	"fmt"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	icicle_core "github.com/ingonyama-zk/icicle-gnark/v3/wrappers/golang/core"
	icicle_bls12_381 "github.com/ingonyama-zk/icicle-gnark/v3/wrappers/golang/curves/bls12381"
	icicle_runtime "github.com/ingonyama-zk/icicle-gnark/v3/wrappers/golang/runtime"

	bls12_381_gpu "github.com/eon-protocol/amt/gpu/bls12381"
)

const HasIcicle = true

// LineMSM keeps every base line of a parameter set resident on the device.
type LineMSM struct {
	device icicle_runtime.Device
	lines  []icicle_core.DeviceSlice
	size   int
}

func NewLineMSM(lines [][]bls12381.G1Affine) (*LineMSM, error) {
	if st := icicle_runtime.LoadBackendFromEnvOrDefault(); st != icicle_runtime.Success {
		return nil, fmt.Errorf("icicle backend: %s", st.AsString())
	}
	me := &LineMSM{
		device: icicle_runtime.CreateDevice("CUDA", 0),
		lines:  make([]icicle_core.DeviceSlice, len(lines)),
	}
	if len(lines) > 0 {
		me.size = len(lines[0])
	}

	var copyErr error
	done := make(chan struct{})
	icicle_runtime.RunOnDevice(&me.device, func(args ...any) {
		defer close(done)
		for i, line := range lines {
			if len(line) != me.size {
				copyErr = fmt.Errorf("line %d has %d bases, want %d", i, len(line), me.size)
				return
			}
			host := icicle_core.HostSlice[bls12381.G1Affine](line)
			host.CopyToDevice(&me.lines[i], true)
			if st := icicle_bls12_381.AffineFromMontgomery(me.lines[i]); st != icicle_runtime.Success {
				copyErr = fmt.Errorf("AffineFromMontgomery(line %d): %s", i, st.AsString())
				return
			}
		}
	})
	<-done
	if copyErr != nil {
		me.Free()
		return nil, copyErr
	}
	return me, nil
}

// Run computes numBatches MSMs for each of the first nbLines lines in one batched
// device call per line.
func (me *LineMSM) Run(scalars []fr.Element, numBatches, nbLines int) ([][]bls12381.G1Jac, error) {
	if len(scalars) != me.size {
		return nil, fmt.Errorf("%d scalars for lines of %d bases", len(scalars), me.size)
	}
	if nbLines > len(me.lines) {
		return nil, fmt.Errorf("%d lines requested, %d on device", nbLines, len(me.lines))
	}
	res := make([][]bls12381.G1Jac, nbLines)
	var st icicle_runtime.EIcicleError
	done := make(chan struct{})
	icicle_runtime.RunOnDevice(&me.device, func(args ...any) {
		defer close(done)
		host := icicle_core.HostSliceFromElements(scalars)
		var scalarsDev icicle_core.DeviceSlice
		host.CopyToDevice(&scalarsDev, true)
		defer scalarsDev.Free()

		for l := 0; l < nbLines; l++ {
			var out []bls12381.G1Affine
			out, st = bls12_381_gpu.OnDeviceBatchMSM(scalarsDev, me.lines[l], numBatches)
			if st != icicle_runtime.Success {
				return
			}
			res[l] = make([]bls12381.G1Jac, numBatches)
			for b := range out {
				res[l][b].FromAffine(&out[b])
			}
		}
	})
	<-done
	if st != icicle_runtime.Success {
		return nil, fmt.Errorf("icicle msm: %s", st.AsString())
	}
	return res, nil
}

func (me *LineMSM) Free() {
	done := make(chan struct{})
	icicle_runtime.RunOnDevice(&me.device, func(args ...any) {
		defer close(done)
		for i := range me.lines {
			if me.lines[i].Len() > 0 {
				me.lines[i].Free()
			}
		}
	})
	<-done
}
