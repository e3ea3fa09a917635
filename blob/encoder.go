// Package blob erasure-codes a 2^logRow x 2^logCol matrix of scalars into cosets and
// proves every row of every coset against one AMT commitment per coset.
package blob

import (
	"fmt"
	"time"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr/fft"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/logger"
	"golang.org/x/sync/errgroup"

	"github.com/eon-protocol/amt"
)

// Default production shape: 1024 rows of 1024 scalars, extended over 3 cosets.
const (
	COSET_N  = 3
	LOG_ROW  = 10
	LOG_COL  = 10
	RAW_UNIT = 31
)

type EncoderParams struct {
	LogCol int
	LogRow int
	Params []*amt.Params // Params[c] serves coset c
}

func checkShape(cosets, logCol, logRow int) error {
	if cosets < 1 || logCol < 0 || logRow < 0 {
		return fmt.Errorf("invalid blob shape: %d cosets, log col %d, log row %d", cosets, logCol, logRow)
	}
	depth := logCol + logRow
	if depth > amt.MAX_DEPTH || cosets > 1<<(amt.TWO_ADICITY-depth) {
		return fmt.Errorf("%d cosets of 2^%d scalars exceed the field two-adicity", cosets, depth)
	}
	return nil
}

func NewEncoderParams(logCol, logRow int, params []*amt.Params) (*EncoderParams, error) {
	if err := checkShape(len(params), logCol, logRow); err != nil {
		return nil, err
	}
	for c, p := range params {
		if p.Depth() != logCol+logRow || p.Coset != c || p.ProveDepth() < logRow {
			return nil, fmt.Errorf("params of coset %d do not fit the blob shape (depth %d, coset %d, prove depth %d)",
				c, p.Depth(), p.Coset, p.ProveDepth())
		}
	}
	return &EncoderParams{LogCol: logCol, LogRow: logRow, Params: params}, nil
}

// LoadEncoderParams fetches the params of every coset from cache, concurrently.
func LoadEncoderParams(cache *amt.Cache, cosets, logCol, logRow int) (*EncoderParams, error) {
	if err := checkShape(cosets, logCol, logRow); err != nil {
		return nil, err
	}
	params := make([]*amt.Params, cosets)
	var g errgroup.Group
	for c := range params {
		g.Go(func() (err error) {
			params[c], err = cache.Params(logCol+logRow, logRow, c)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return NewEncoderParams(logCol, logRow, params)
}

func (me *EncoderParams) Len() int {
	return 1 << (me.LogCol + me.LogRow)
}

// HalfBlob is the coded matrix of one coset with its commitment and proof tree.
type HalfBlob struct {
	Blob       []fr.Element
	Commitment bls12381.G1Affine
	Proofs     *amt.AllProofs
	LogCol     int
	LogRow     int
}

// ProcessBlob encodes a row-major blob into one HalfBlob per coset. The primary
// HalfBlob carries raw unchanged.
func (me *EncoderParams) ProcessBlob(raw []fr.Element, opts ...backend.ProverOption) ([]*HalfBlob, error) {
	if len(raw) != me.Len() {
		return nil, fmt.Errorf("%w: blob of %d scalars, want %d", amt.ErrUnexpectedDataLength, len(raw), me.Len())
	}
	log := logger.Logger().With().Str("component", "blob-encoder").Int("log_col", me.LogCol).Int("log_row", me.LogRow).Logger()
	start := time.Now()

	points := make([]fr.Element, len(raw))
	copy(points, raw)
	ChangeMatrixDirection(points, me.LogCol, me.LogRow)

	blobs := make([]*HalfBlob, len(me.Params))
	var g errgroup.Group
	for c, p := range me.Params {
		g.Go(func() (err error) {
			blobs[c], err = me.generate(ToCosetBlob(points, c), p, opts...)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Debug().Dur("took", time.Since(start)).Int("cosets", len(blobs)).Msg("blob encoded")
	return blobs, nil
}

func (me *EncoderParams) generate(points []fr.Element, p *amt.Params, opts ...backend.ProverOption) (*HalfBlob, error) {
	fft.BitReverse(points)
	commitment, proofs, err := p.GenAllProofs(points, 1<<me.LogCol, opts...)
	if err != nil {
		return nil, err
	}
	fft.BitReverse(points)
	ChangeMatrixDirection(points, me.LogRow, me.LogCol)
	return &HalfBlob{
		Blob:       points,
		Commitment: commitment,
		Proofs:     proofs,
		LogCol:     me.LogCol,
		LogRow:     me.LogRow,
	}, nil
}

// GetRow returns row index with its authentication path. index must be below 2^LogRow.
func (me *HalfBlob) GetRow(index int) BlobRow {
	if index < 0 || index >= 1<<me.LogRow {
		panic(fmt.Sprintf("GetRow: row %d out of range", index))
	}
	rowSize := 1 << me.LogCol
	row := make([]fr.Element, rowSize)
	copy(row, me.Blob[index*rowSize:(index+1)*rowSize])
	proof, high := me.Proofs.GetProof(amt.BitReverseIndex(index, me.LogRow))
	return BlobRow{
		Index:          index,
		Row:            row,
		Proof:          proof,
		HighCommitment: high,
	}
}

// BlobRow is the unit a storage node keeps: one row and the proof binding it to the
// coset commitment.
type BlobRow struct {
	Index          int
	Row            []fr.Element
	Proof          amt.Proof
	HighCommitment bls12381.G1Affine
}

// Verify checks the row against commitment. With a non-nil dv the expensive checks are
// recorded for a later batch check.
func (me *BlobRow) Verify(vp *amt.VerifierParams, commitment bls12381.G1Affine, dv *amt.DeferredVerifier) error {
	logRow := len(me.Proof)
	if me.Index < 0 || me.Index >= 1<<logRow {
		return amt.ErrIncorrectPosition
	}
	if !isPowerOfTwo(len(me.Row)) {
		return amt.ErrUnexpectedDataLength
	}
	data := make([]fr.Element, len(me.Row))
	copy(data, me.Row)
	fft.BitReverse(data)
	return vp.VerifyProof(data, amt.BitReverseIndex(me.Index, logRow), me.Proof, me.HighCommitment, commitment, dv)
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Verifier holds the verifier params of every coset of one blob shape.
type Verifier struct {
	LogCol int
	LogRow int
	Params []*amt.VerifierParams
}

func LoadVerifier(cache *amt.Cache, cosets, logCol, logRow int) (*Verifier, error) {
	if err := checkShape(cosets, logCol, logRow); err != nil {
		return nil, err
	}
	params := make([]*amt.VerifierParams, cosets)
	for c := range params {
		vp, err := cache.VerifierParams(logCol+logRow, logRow, c)
		if err != nil {
			return nil, err
		}
		params[c] = vp
	}
	return &Verifier{LogCol: logCol, LogRow: logRow, Params: params}, nil
}

// VerifyRow checks row against the commitment of coset c.
func (me *Verifier) VerifyRow(c int, row *BlobRow, commitment bls12381.G1Affine, dv *amt.DeferredVerifier) error {
	if c < 0 || c >= len(me.Params) {
		return fmt.Errorf("coset %d out of range", c)
	}
	if len(row.Proof) != me.LogRow {
		return amt.ErrIncorrectPosition
	}
	if len(row.Row) != 1<<me.LogCol {
		return amt.ErrUnexpectedDataLength
	}
	return row.Verify(me.Params[c], commitment, dv)
}
