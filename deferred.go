package amt

import (
	"log"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	"github.com/eon-protocol/amt/internal/syncutils"
	"github.com/eon-protocol/amt/parallel"
)

// PairingTask claims e(A, B) == e(C, D); Err is reported when the claim is false.
type PairingTask struct {
	A   bls12381.G1Affine
	B   bls12381.G2Affine
	C   bls12381.G1Affine
	D   bls12381.G2Affine
	Err error
}

func (t *PairingTask) Holds() bool {
	return pairingEqual(&t.A, &t.B, &t.C, &t.D)
}

// DeferredVerifier collects the pairing claims of concurrent VerifyProof calls, and any
// MSM claims recorded by hand, and settles them together. Read it only after every producer returned. The zero value is
// ready to use.
type DeferredVerifier struct {
	pairingMu syncutils.Mutex
	pairings  []PairingTask

	msmMu   syncutils.Mutex
	bases   []bls12381.G1Affine
	scalars []fr.Element
	answer  bls12381.G1Jac
}

func NewDeferredVerifier() *DeferredVerifier {
	return &DeferredVerifier{}
}

func (me *DeferredVerifier) RecordPairing(tasks ...PairingTask) {
	me.pairingMu.Lock()
	defer me.pairingMu.Unlock()
	me.pairings = append(me.pairings, tasks...)
}

// RecordMSM records the claim MSM(bases, scalars) == expected. Each claim is blinded by
// a fresh random factor so unrelated claims cannot cancel out in the running sum.
func (me *DeferredVerifier) RecordMSM(bases []bls12381.G1Affine, scalars []fr.Element, expected bls12381.G1Affine) {
	if len(bases) != len(scalars) {
		panic("RecordMSM: bases and scalars lengths differ")
	}
	alpha := mustRandom()
	blinded := make([]fr.Element, len(scalars))
	for i := range scalars {
		blinded[i].Mul(&scalars[i], &alpha)
	}
	var claim bls12381.G1Jac
	claim.FromAffine(&expected)
	claim.ScalarMultiplication(&claim, bigOf(&alpha))

	me.msmMu.Lock()
	defer me.msmMu.Unlock()
	me.bases = append(me.bases, bases...)
	me.scalars = append(me.scalars, blinded...)
	me.answer.AddAssign(&claim)
}

// Len returns the number of recorded pairing claims.
func (me *DeferredVerifier) Len() int {
	me.pairingMu.Lock()
	defer me.pairingMu.Unlock()
	return len(me.pairings)
}

// FastCheck settles every recorded claim with one random linear combination. It only
// says whether all claims hold; Check tells which one failed.
func (me *DeferredVerifier) FastCheck() bool {
	return me.fastCheckPairing() && me.checkMSM()
}

// Check re-runs the claims one by one and returns the error of the first false
// pairing claim, then ErrInconsistentCommitment if the MSM claims do not add up.
func (me *DeferredVerifier) Check() error {
	me.pairingMu.Lock()
	tasks := me.pairings
	me.pairingMu.Unlock()
	for i := range tasks {
		if !tasks[i].Holds() {
			return tasks[i].Err
		}
	}
	if !me.checkMSM() {
		return ErrInconsistentCommitment
	}
	return nil
}

// pairingSide gathers Σ coeff_i·P_i per distinct G2 element.
type pairingSide struct {
	index   map[bls12381.G2Affine]int
	g2      []bls12381.G2Affine
	points  [][]bls12381.G1Affine
	scalars [][]fr.Element
}

func newPairingSide() *pairingSide {
	return &pairingSide{index: make(map[bls12381.G2Affine]int)}
}

func (me *pairingSide) add(p *bls12381.G1Affine, q *bls12381.G2Affine, coeff *fr.Element) {
	i, ok := me.index[*q]
	if !ok {
		i = len(me.g2)
		me.index[*q] = i
		me.g2 = append(me.g2, *q)
		me.points = append(me.points, nil)
		me.scalars = append(me.scalars, nil)
	}
	me.points[i] = append(me.points[i], *p)
	me.scalars[i] = append(me.scalars[i], *coeff)
}

func (me *pairingSide) fold(negate bool) ([]bls12381.G1Affine, []bls12381.G2Affine, error) {
	res := make([]bls12381.G1Affine, len(me.g2))
	errs := make([]error, len(me.g2))
	parallel.Execute(len(me.g2), func(start, end int) {
		for i := start; i < end; i++ {
			res[i], errs[i] = msmAffine(me.points[i], me.scalars[i])
			if negate {
				res[i].Neg(&res[i])
			}
		}
	})
	for _, err := range errs {
		if err != nil {
			return nil, nil, err
		}
	}
	return res, me.g2, nil
}

func (me *DeferredVerifier) fastCheckPairing() bool {
	me.pairingMu.Lock()
	tasks := me.pairings
	me.pairingMu.Unlock()
	if len(tasks) == 0 {
		return true
	}

	tau := mustRandom()
	left, right := newPairingSide(), newPairingSide()
	var coeff fr.Element
	coeff.SetOne()
	for i := range tasks {
		left.add(&tasks[i].A, &tasks[i].B, &coeff)
		right.add(&tasks[i].C, &tasks[i].D, &coeff)
		coeff.Mul(&coeff, &tau)
	}

	p1, q1, err := left.fold(false)
	if err != nil {
		return false
	}
	p2, q2, err := right.fold(true)
	if err != nil {
		return false
	}
	ok, err := bls12381.PairingCheck(append(p1, p2...), append(q1, q2...))
	return err == nil && ok
}

func (me *DeferredVerifier) checkMSM() bool {
	me.msmMu.Lock()
	defer me.msmMu.Unlock()
	got, err := msmJac(me.bases, me.scalars, 0)
	if err != nil {
		return false
	}
	return got.Equal(&me.answer)
}

func mustRandom() fr.Element {
	var r fr.Element
	if _, err := r.SetRandom(); err != nil {
		log.Fatalln(err)
	}
	return r
}
