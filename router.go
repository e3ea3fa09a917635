package amt

import (
	"fmt"
	"runtime"
	"sync"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/logger"

	"github.com/eon-protocol/amt/gpu"
	"github.com/eon-protocol/amt/parallel"
)

// Engine runs the batched MSMs of proof generation. Line l of the result holds, for
// each batch b, Σ lines[l][b*bs+k]·scalars[b*bs+k] with bs = len(scalars)/numBatches.
// Lines are ordered basis, high basis, then the quotients of levels 1..nbLines-2.
type Engine interface {
	LineMSM(scalars []fr.Element, numBatches, nbLines int) ([][]bls12381.G1Jac, error)
}

type cpuEngine struct {
	lines [][]bls12381.G1Affine
}

func (me *cpuEngine) LineMSM(scalars []fr.Element, numBatches, nbLines int) ([][]bls12381.G1Jac, error) {
	if nbLines > len(me.lines) {
		return nil, fmt.Errorf("%d lines requested, %d available", nbLines, len(me.lines))
	}
	bs := len(scalars) / numBatches
	res := make([][]bls12381.G1Jac, nbLines)
	for l := range res {
		res[l] = make([]bls12381.G1Jac, numBatches)
	}
	total := nbLines * numBatches
	nbTasks := max(1, runtime.NumCPU()/total)

	var mu sync.Mutex
	var firstErr error
	parallel.Execute(total, func(start, end int) {
		for t := start; t < end; t++ {
			l, b := t/numBatches, t%numBatches
			lo, hi := b*bs, (b+1)*bs
			r, err := msmJac(me.lines[l][lo:hi], scalars[lo:hi], nbTasks)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			res[l][b] = r
		}
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return res, nil
}

type deviceCache struct {
	once   sync.Once
	engine *gpu.LineMSM
	err    error
}

func (me *Params) lines() [][]bls12381.G1Affine {
	lines := make([][]bls12381.G1Affine, 0, 2+len(me.Quotients))
	lines = append(lines, me.Basis, me.HighBasis)
	return append(lines, me.Quotients...)
}

// engine picks the MSM backend: icicle when requested and compiled in, the CPU otherwise.
func (me *Params) engine(opts ...backend.ProverOption) (Engine, error) {
	opt, err := backend.NewProverConfig(opts...)
	if err != nil {
		return nil, err
	}
	if opt.Accelerator == "icicle" && gpu.HasIcicle {
		me.device.once.Do(func() {
			me.device.engine, me.device.err = gpu.NewLineMSM(me.lines())
		})
		if me.device.err == nil {
			return &fallbackEngine{gpu: me.device.engine, cpu: &cpuEngine{lines: me.lines()}}, nil
		}
		log := logger.Logger()
		log.Warn().Err(me.device.err).Msg("icicle setup failed, proving on CPU")
	}
	return &cpuEngine{lines: me.lines()}, nil
}

// fallbackEngine retries on the CPU when the device reports an error.
type fallbackEngine struct {
	gpu *gpu.LineMSM
	cpu Engine
}

func (me *fallbackEngine) LineMSM(scalars []fr.Element, numBatches, nbLines int) ([][]bls12381.G1Jac, error) {
	res, err := me.gpu.Run(scalars, numBatches, nbLines)
	if err == nil {
		return res, nil
	}
	log := logger.Logger()
	log.Warn().Err(err).Msg("[GPU failed -> CPU] line MSM")
	return me.cpu.LineMSM(scalars, numBatches, nbLines)
}
