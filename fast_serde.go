package amt

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fp"

	"github.com/eon-protocol/amt/parallel"
)

// The fast encoding stores the raw Montgomery limbs of every coordinate, big-endian,
// behind a 4-byte magic. Loading it is a memcpy; nothing proves the points are valid.
var (
	MAGIC_AMT_PARAMS = [4]byte{'b', 'a', 'm', 't'}
	MAGIC_POWER_TAU  = [4]byte{'b', 'p', 'w', 't'}
	MAGIC_LDT_PARAMS = [4]byte{'b', 'l', 'd', 't'}
)

var ErrZeroPoint = errors.New("amt: unsafe params with zero point")
var ErrBadMagic = errors.New("amt: unexpected file header")

// DecodeMode selects how much a fast-encoded file is trusted.
type DecodeMode int

const (
	// DecodeValidated checks every point is on the curve and in the prime subgroup.
	DecodeValidated DecodeMode = iota
	// DecodeTrusted accepts the limbs as they are. Only for self-generated files.
	DecodeTrusted
)

type limbWriter struct {
	w   *bufio.Writer
	buf [8]byte
	err error
}

func (me *limbWriter) bytes(b []byte) {
	if me.err == nil {
		_, me.err = me.w.Write(b)
	}
}

func (me *limbWriter) u8(v int) {
	me.bytes([]byte{byte(v)})
}

func (me *limbWriter) fp(e *fp.Element) {
	for _, v := range e {
		binary.BigEndian.PutUint64(me.buf[:], v)
		me.bytes(me.buf[:])
	}
}

func (me *limbWriter) g1(points ...bls12381.G1Affine) {
	for i := range points {
		if points[i].IsInfinity() {
			me.err = ErrZeroPoint
			return
		}
		me.fp(&points[i].X)
		me.fp(&points[i].Y)
	}
}

func (me *limbWriter) g2(points ...bls12381.G2Affine) {
	for i := range points {
		if points[i].IsInfinity() {
			me.err = ErrZeroPoint
			return
		}
		me.fp(&points[i].X.A0)
		me.fp(&points[i].X.A1)
		me.fp(&points[i].Y.A0)
		me.fp(&points[i].Y.A1)
	}
}

func (me *limbWriter) flush() error {
	if me.err != nil {
		return me.err
	}
	return me.w.Flush()
}

type limbReader struct {
	r   io.Reader
	buf [8]byte
	err error
}

func (me *limbReader) u8() int {
	if me.err != nil {
		return 0
	}
	_, me.err = io.ReadFull(me.r, me.buf[:1])
	return int(me.buf[0])
}

func (me *limbReader) fp(e *fp.Element) {
	for i := range e {
		if me.err != nil {
			return
		}
		if _, me.err = io.ReadFull(me.r, me.buf[:]); me.err == nil {
			e[i] = binary.BigEndian.Uint64(me.buf[:])
		}
	}
}

// readChunk caps the points allocated before any of them is read. Slices then grow with
// the bytes actually present, so a corrupt header cannot claim more memory than the file holds.
const readChunk = 1 << 12

func (me *limbReader) g1Point(p *bls12381.G1Affine) {
	me.fp(&p.X)
	me.fp(&p.Y)
}

func (me *limbReader) g2Point(p *bls12381.G2Affine) {
	me.fp(&p.X.A0)
	me.fp(&p.X.A1)
	me.fp(&p.Y.A0)
	me.fp(&p.Y.A1)
}

func (me *limbReader) g1(n int) []bls12381.G1Affine {
	if me.err != nil {
		return nil
	}
	points := make([]bls12381.G1Affine, 0, min(n, readChunk))
	for len(points) < n && me.err == nil {
		var p bls12381.G1Affine
		me.g1Point(&p)
		points = append(points, p)
	}
	return points
}

func (me *limbReader) g2(n int) []bls12381.G2Affine {
	if me.err != nil {
		return nil
	}
	points := make([]bls12381.G2Affine, 0, min(n, readChunk))
	for len(points) < n && me.err == nil {
		var p bls12381.G2Affine
		me.g2Point(&p)
		points = append(points, p)
	}
	return points
}

func (me *limbReader) magic(want [4]byte) {
	var got [4]byte
	if me.err != nil {
		return
	}
	if _, me.err = io.ReadFull(me.r, got[:]); me.err == nil && !bytes.Equal(got[:], want[:]) {
		me.err = fmt.Errorf("%w: %q, want %q", ErrBadMagic, got[:], want[:])
	}
}

func (me *limbReader) depth() int {
	depth := me.u8()
	if me.err == nil && depth > MAX_DEPTH {
		me.err = fmt.Errorf("%w: depth %d", ErrInconsistentLength, depth)
	}
	return depth
}

var errInvalidPoint = errors.New("amt: point not in the prime subgroup")

func checkG1(points []bls12381.G1Affine) error {
	var bad atomic.Bool
	parallel.Execute(len(points), func(start, end int) {
		for i := start; i < end && !bad.Load(); i++ {
			if !points[i].IsInSubGroup() {
				bad.Store(true)
			}
		}
	})
	if bad.Load() {
		return errInvalidPoint
	}
	return nil
}

func checkG2(points []bls12381.G2Affine) error {
	for i := range points {
		if !points[i].IsInSubGroup() {
			return errInvalidPoint
		}
	}
	return nil
}

// WriteFast writes params in the "bamt" layout: depth, prove depth, coset, g2, basis,
// quotients, vanishes, high g2, high basis.
func (me *Params) WriteFast(w io.Writer) error {
	lw := &limbWriter{w: bufio.NewWriter(w)}
	lw.bytes(MAGIC_AMT_PARAMS[:])
	lw.u8(me.Depth())
	lw.u8(me.ProveDepth())
	binary.BigEndian.PutUint32(lw.buf[:4], uint32(me.Coset))
	lw.bytes(lw.buf[:4])
	lw.g2(me.G2)
	lw.g1(me.Basis...)
	for d := range me.Quotients {
		lw.g1(me.Quotients[d]...)
	}
	for d := range me.Vanishes {
		lw.g2(me.Vanishes[d]...)
	}
	lw.g2(me.HighG2)
	lw.g1(me.HighBasis...)
	return lw.flush()
}

func ReadFastParams(r io.Reader, mode DecodeMode) (*Params, error) {
	lr := &limbReader{r: bufio.NewReader(r)}
	lr.magic(MAGIC_AMT_PARAMS)
	depth := lr.depth()
	proveDepth := lr.u8()
	var coset [4]byte
	if lr.err == nil {
		_, lr.err = io.ReadFull(lr.r, coset[:])
	}
	if lr.err == nil && proveDepth > depth {
		lr.err = fmt.Errorf("%w: prove depth %d above depth %d", ErrInconsistentLength, proveDepth, depth)
	}
	if lr.err != nil {
		return nil, lr.err
	}
	n := 1 << depth
	p := &Params{Coset: int(binary.BigEndian.Uint32(coset[:]))}
	lr.g2Point(&p.G2)
	p.Basis = lr.g1(n)
	p.Quotients = make([][]bls12381.G1Affine, proveDepth)
	for d := range p.Quotients {
		p.Quotients[d] = lr.g1(n)
	}
	p.Vanishes = make([][]bls12381.G2Affine, proveDepth)
	for d := range p.Vanishes {
		p.Vanishes[d] = lr.g2(1 << (d + 1))
	}
	lr.g2Point(&p.HighG2)
	p.HighBasis = lr.g1(n)
	if lr.err != nil {
		return nil, lr.err
	}
	if mode == DecodeValidated {
		if err := p.checkPoints(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (me *Params) checkPoints() error {
	if err := checkG2([]bls12381.G2Affine{me.G2, me.HighG2}); err != nil {
		return err
	}
	if err := checkG1(me.Basis); err != nil {
		return err
	}
	if err := checkG1(me.HighBasis); err != nil {
		return err
	}
	for d := range me.Quotients {
		if err := checkG1(me.Quotients[d]); err != nil {
			return err
		}
		if err := checkG2(me.Vanishes[d]); err != nil {
			return err
		}
	}
	return nil
}

// WriteFast writes the setup in the "bpwt" layout: depth, g1 powers, g2 powers, then a
// flag and the low-degree-test segment.
func (me *PowersOfTau) WriteFast(w io.Writer) error {
	lw := &limbWriter{w: bufio.NewWriter(w)}
	lw.bytes(MAGIC_POWER_TAU[:])
	lw.u8(me.Depth())
	lw.g1(me.G1...)
	lw.g2(me.G2...)
	if me.HasHighSegment() {
		lw.u8(1)
		lw.g1(me.HighG1...)
		lw.g2(me.HighG2)
	} else {
		lw.u8(0)
	}
	return lw.flush()
}

func ReadFastPowersOfTau(r io.Reader, mode DecodeMode) (*PowersOfTau, error) {
	lr := &limbReader{r: bufio.NewReader(r)}
	lr.magic(MAGIC_POWER_TAU)
	depth := lr.depth()
	if lr.err != nil {
		return nil, lr.err
	}
	n := 1 << depth
	pp := &PowersOfTau{G1: lr.g1(n), G2: lr.g2(n)}
	if lr.u8() == 1 {
		pp.HighG1 = lr.g1(n)
		lr.g2Point(&pp.HighG2)
	}
	if lr.err != nil {
		return nil, lr.err
	}
	if mode == DecodeValidated {
		errs := []error{checkG1(pp.G1), checkG2(pp.G2)}
		if pp.HasHighSegment() {
			errs = append(errs, checkG1(pp.HighG1), checkG2([]bls12381.G2Affine{pp.HighG2}))
		}
		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}
	}
	return pp, nil
}

// WriteFast writes the "bldt" layout: depth, high g2, high basis.
func (me *LDTParams) WriteFast(w io.Writer) error {
	lw := &limbWriter{w: bufio.NewWriter(w)}
	lw.bytes(MAGIC_LDT_PARAMS[:])
	lw.u8(log2(len(me.HighBasis)))
	lw.g2(me.HighG2)
	lw.g1(me.HighBasis...)
	return lw.flush()
}

func ReadFastLDTParams(r io.Reader, mode DecodeMode) (*LDTParams, error) {
	lr := &limbReader{r: bufio.NewReader(r)}
	lr.magic(MAGIC_LDT_PARAMS)
	depth := lr.depth()
	if lr.err != nil {
		return nil, lr.err
	}
	p := new(LDTParams)
	lr.g2Point(&p.HighG2)
	p.HighBasis = lr.g1(1 << depth)
	if lr.err != nil {
		return nil, lr.err
	}
	if mode == DecodeValidated {
		if err := checkG2([]bls12381.G2Affine{p.HighG2}); err != nil {
			return nil, err
		}
		if err := checkG1(p.HighBasis); err != nil {
			return nil, err
		}
	}
	return p, nil
}
