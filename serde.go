package amt

import (
	"fmt"
	"io"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
)

func encodeAll(enc *bls12381.Encoder, toEncode ...interface{}) (int64, error) {
	for _, v := range toEncode {
		if err := enc.Encode(v); err != nil {
			return enc.BytesWritten(), err
		}
	}
	return enc.BytesWritten(), nil
}

func decodeAll(dec *bls12381.Decoder, toDecode ...interface{}) error {
	for _, v := range toDecode {
		if err := dec.Decode(v); err != nil {
			return err
		}
	}
	return nil
}

func readCount(dec *bls12381.Decoder, max int) (int, error) {
	var n uint32
	if err := dec.Decode(&n); err != nil {
		return 0, err
	}
	if int(n) > max {
		return 0, fmt.Errorf("%w: count %d above %d", ErrInconsistentLength, n, max)
	}
	return int(n), nil
}

func (me *PowersOfTau) WriteTo(w io.Writer) (int64, error) {
	enc := bls12381.NewEncoder(w, bls12381.RawEncoding())
	return encodeAll(enc, me.G1, me.G2, me.HighG1, &me.HighG2)
}

func (me *PowersOfTau) ReadFrom(r io.Reader) (int64, error) {
	return me.readFrom(r)
}

// UnsafeReadFrom skips the subgroup checks. Only for self-generated files.
func (me *PowersOfTau) UnsafeReadFrom(r io.Reader) (int64, error) {
	return me.readFrom(r, bls12381.NoSubgroupChecks())
}

func (me *PowersOfTau) readFrom(r io.Reader, opts ...func(*bls12381.Decoder)) (int64, error) {
	dec := bls12381.NewDecoder(r, opts...)
	if err := decodeAll(dec, &me.G1, &me.G2, &me.HighG1, &me.HighG2); err != nil {
		return dec.BytesRead(), err
	}
	return dec.BytesRead(), me.validate()
}

func (me *Params) WriteTo(w io.Writer) (int64, error) {
	enc := bls12381.NewEncoder(w, bls12381.RawEncoding())
	toEncode := []interface{}{uint32(me.Coset), me.Basis, uint32(len(me.Quotients))}
	for d := range me.Quotients {
		toEncode = append(toEncode, me.Quotients[d], me.Vanishes[d])
	}
	toEncode = append(toEncode, &me.G2, me.HighBasis, &me.HighG2)
	return encodeAll(enc, toEncode...)
}

func (me *Params) ReadFrom(r io.Reader) (int64, error) {
	return me.readFrom(r)
}

// UnsafeReadFrom skips the subgroup checks. Only for self-generated files.
func (me *Params) UnsafeReadFrom(r io.Reader) (int64, error) {
	return me.readFrom(r, bls12381.NoSubgroupChecks())
}

func (me *Params) readFrom(r io.Reader, opts ...func(*bls12381.Decoder)) (int64, error) {
	dec := bls12381.NewDecoder(r, opts...)
	var coset uint32
	if err := decodeAll(dec, &coset, &me.Basis); err != nil {
		return dec.BytesRead(), err
	}
	me.Coset = int(coset)
	levels, err := readCount(dec, MAX_DEPTH)
	if err != nil {
		return dec.BytesRead(), err
	}
	me.Quotients = make([][]bls12381.G1Affine, levels)
	me.Vanishes = make([][]bls12381.G2Affine, levels)
	for d := 0; d < levels; d++ {
		if err := decodeAll(dec, &me.Quotients[d], &me.Vanishes[d]); err != nil {
			return dec.BytesRead(), err
		}
	}
	if err := decodeAll(dec, &me.G2, &me.HighBasis, &me.HighG2); err != nil {
		return dec.BytesRead(), err
	}
	return dec.BytesRead(), me.validate()
}

func (me *VerifierParams) WriteTo(w io.Writer) (int64, error) {
	enc := bls12381.NewEncoder(w, bls12381.RawEncoding())
	toEncode := []interface{}{uint32(me.Coset), me.Basis, uint32(len(me.Vanishes))}
	for d := range me.Vanishes {
		toEncode = append(toEncode, me.Vanishes[d])
	}
	toEncode = append(toEncode, &me.G2, &me.HighG2)
	return encodeAll(enc, toEncode...)
}

func (me *VerifierParams) ReadFrom(r io.Reader) (int64, error) {
	dec := bls12381.NewDecoder(r)
	var coset uint32
	if err := decodeAll(dec, &coset, &me.Basis); err != nil {
		return dec.BytesRead(), err
	}
	me.Coset = int(coset)
	levels, err := readCount(dec, MAX_DEPTH)
	if err != nil {
		return dec.BytesRead(), err
	}
	me.Vanishes = make([][]bls12381.G2Affine, levels)
	for d := range me.Vanishes {
		if err := dec.Decode(&me.Vanishes[d]); err != nil {
			return dec.BytesRead(), err
		}
	}
	if err := decodeAll(dec, &me.G2, &me.HighG2); err != nil {
		return dec.BytesRead(), err
	}
	return dec.BytesRead(), me.validate()
}

func (me *VerifierParams) validate() error {
	n := len(me.Basis)
	if !isPowerOfTwo(n) || len(me.Vanishes) > log2(n) {
		return fmt.Errorf("%w: basis %d vanishes %d", ErrInconsistentLength, n, len(me.Vanishes))
	}
	for d := range me.Vanishes {
		if len(me.Vanishes[d]) != 1<<(d+1) {
			return fmt.Errorf("%w: level %d", ErrInconsistentLength, d+1)
		}
	}
	return nil
}

func (me *LDTParams) WriteTo(w io.Writer) (int64, error) {
	enc := bls12381.NewEncoder(w, bls12381.RawEncoding())
	return encodeAll(enc, me.HighBasis, &me.HighG2)
}

func (me *LDTParams) ReadFrom(r io.Reader) (int64, error) {
	dec := bls12381.NewDecoder(r)
	err := decodeAll(dec, &me.HighBasis, &me.HighG2)
	if err == nil && !isPowerOfTwo(len(me.HighBasis)) {
		err = fmt.Errorf("%w: high basis %d", ErrInconsistentLength, len(me.HighBasis))
	}
	return dec.BytesRead(), err
}

// WriteTo writes the proof compressed, root level first.
func (me Proof) WriteTo(w io.Writer) (int64, error) {
	enc := bls12381.NewEncoder(w)
	points := make([]bls12381.G1Affine, 0, 2*len(me))
	for _, node := range me {
		points = append(points, node.Commitment, node.Quotient)
	}
	return encodeAll(enc, points)
}

func (me *Proof) ReadFrom(r io.Reader) (int64, error) {
	dec := bls12381.NewDecoder(r)
	var points []bls12381.G1Affine
	if err := dec.Decode(&points); err != nil {
		return dec.BytesRead(), err
	}
	if len(points)%2 != 0 || len(points)/2 > MAX_DEPTH {
		return dec.BytesRead(), fmt.Errorf("%w: %d proof points", ErrInconsistentLength, len(points))
	}
	*me = make(Proof, len(points)/2)
	for d := range *me {
		(*me)[d] = ProofNode{Commitment: points[2*d], Quotient: points[2*d+1]}
	}
	return dec.BytesRead(), nil
}

func (me *AllProofs) WriteTo(w io.Writer) (int64, error) {
	enc := bls12381.NewEncoder(w)
	toEncode := []interface{}{uint32(me.InputLen), uint32(me.BatchSize), &me.HighCommitment, uint32(me.Height())}
	for d := range me.Commitments {
		toEncode = append(toEncode, me.Commitments[d], me.Proofs[d])
	}
	return encodeAll(enc, toEncode...)
}

func (me *AllProofs) ReadFrom(r io.Reader) (int64, error) {
	dec := bls12381.NewDecoder(r)
	var inputLen, batchSize uint32
	if err := decodeAll(dec, &inputLen, &batchSize, &me.HighCommitment); err != nil {
		return dec.BytesRead(), err
	}
	me.InputLen, me.BatchSize = int(inputLen), int(batchSize)
	height, err := readCount(dec, MAX_DEPTH)
	if err != nil {
		return dec.BytesRead(), err
	}
	me.Commitments = make([][]bls12381.G1Affine, height)
	me.Proofs = make([][]bls12381.G1Affine, height)
	for d := 0; d < height; d++ {
		if err := decodeAll(dec, &me.Commitments[d], &me.Proofs[d]); err != nil {
			return dec.BytesRead(), err
		}
		if len(me.Commitments[d]) != 1<<(d+1) || len(me.Proofs[d]) != 1<<(d+1) {
			return dec.BytesRead(), fmt.Errorf("%w: level %d", ErrInconsistentLength, d+1)
		}
	}
	if me.BatchSize<<height != me.InputLen {
		return dec.BytesRead(), fmt.Errorf("%w: %d leaves of %d for %d scalars", ErrInconsistentLength, 1<<height, me.BatchSize, me.InputLen)
	}
	return dec.BytesRead(), nil
}
