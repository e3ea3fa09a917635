package amt

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/consensys/gnark/test"
)

const cacheDepth = 4

func TestCacheCreateAndReload(t *testing.T) {
	assert := test.NewAssert(t)
	store := NewMemStore()

	cache, err := NewCache(store, WithCreate(true), WithHighDepth(8))
	assert.NoError(err)
	defer cache.Close()

	p, err := cache.Params(cacheDepth, 2, 1)
	assert.NoError(err)
	assert.Equal(cacheDepth, p.Depth())
	assert.Equal(2, p.ProveDepth())
	assert.Equal(1, p.Coset)
	checkKZGIdentity(assert, p)

	again, err := cache.Params(cacheDepth, 2, 1)
	assert.NoError(err)
	assert.True(p == again, "memoized")

	vp, err := cache.VerifierParams(cacheDepth, 2, 1)
	assert.NoError(err)
	assert.Equal(p.Basis, vp.Basis)

	assert.Equal(3, len(store.Names()))
	for _, name := range []string{PowersOfTauFileName(cacheDepth, false), ParamsFileName(cacheDepth, 2, 1, false), VerifierParamsFileName(cacheDepth, 2, 1)} {
		assert.Contains(store.Names(), name)
	}

	// a second cache only reads
	reader, err := NewCache(store)
	assert.NoError(err)
	defer reader.Close()
	loaded, err := reader.Params(cacheDepth, 2, 1)
	assert.NoError(err)
	assertSameParams(assert, p, loaded)
	loadedVP, err := reader.VerifierParams(cacheDepth, 2, 1)
	assert.NoError(err)
	assert.Equal(vp.Vanishes, loadedVP.Vanishes)

	_, err = reader.Params(cacheDepth, 2, 0)
	assert.True(errors.Is(err, ErrNotFound))
}

func TestCacheRegeneratesBrokenFiles(t *testing.T) {
	assert := test.NewAssert(t)
	store := NewMemStore()
	name := ParamsFileName(cacheDepth, 1, 0, false)
	assert.NoError(store.Put(name, func(w io.Writer) error {
		_, err := w.Write([]byte("not params"))
		return err
	}))

	reader, err := NewCache(store)
	assert.NoError(err)
	defer reader.Close()
	_, err = reader.Params(cacheDepth, 1, 0)
	assert.Error(err)

	cache, err := NewCache(store, WithCreate(true), WithHighDepth(6))
	assert.NoError(err)
	defer cache.Close()
	p, err := cache.Params(cacheDepth, 1, 0)
	assert.NoError(err)
	checkKZGIdentity(assert, p)

	fresh, err := NewCache(store)
	assert.NoError(err)
	defer fresh.Close()
	_, err = fresh.Params(cacheDepth, 1, 0)
	assert.NoError(err)
}

func TestCacheFastLayout(t *testing.T) {
	assert := test.NewAssert(t)
	store := NewMemStore()
	cache, err := NewCache(store, WithCreate(true), WithFast(true), WithHighDepth(6), WithTTL(time.Minute))
	assert.NoError(err)
	defer cache.Close()

	var wg sync.WaitGroup
	results := make([]*Params, 4)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = cache.Params(cacheDepth, cacheDepth, 0)
		}()
	}
	wg.Wait()
	for i := range results {
		assert.True(results[i] == results[0], "concurrent callers share one build")
	}
	ldt, err := cache.LDTParams(cacheDepth, 0)
	assert.NoError(err)
	assert.Equal(results[0].HighBasis, ldt.HighBasis)
	assert.Equal(results[0].HighG2, ldt.HighG2)
	for _, name := range []string{
		PowersOfTauFileName(cacheDepth, true),
		ParamsFileName(cacheDepth, cacheDepth, 0, true),
		LDTParamsFileName(cacheDepth, 0, true),
	} {
		assert.Contains(store.Names(), name)
	}
	assert.NotContains(store.Names(), PowersOfTauFileName(cacheDepth, false))

	reader, err := NewCache(store, WithFast(true))
	assert.NoError(err)
	defer reader.Close()
	loaded, err := reader.Params(cacheDepth, cacheDepth, 0)
	assert.NoError(err)
	assertSameParams(assert, results[0], loaded)
	loadedLDT, err := reader.LDTParams(cacheDepth, 0)
	assert.NoError(err)
	assert.Equal(ldt.HighBasis, loadedLDT.HighBasis)
	pp, err := reader.PowersOfTau(cacheDepth)
	assert.NoError(err)
	assert.Equal(cacheDepth, pp.Depth())
	assert.True(pp.HasHighSegment())
}

// A fast file whose header claims a deeper setup than the bytes hold is treated as broken.
func TestCacheRegeneratesLyingFastHeader(t *testing.T) {
	assert := test.NewAssert(t)
	store := NewMemStore()
	name := ParamsFileName(cacheDepth, 1, 0, true)
	assert.NoError(store.Put(name, func(w io.Writer) error {
		_, err := w.Write(append(MAGIC_AMT_PARAMS[:], MAX_DEPTH, 1, 0, 0, 0, 0))
		return err
	}))

	cache, err := NewCache(store, WithCreate(true), WithFast(true), WithHighDepth(6))
	assert.NoError(err)
	defer cache.Close()
	p, err := cache.Params(cacheDepth, 1, 0)
	assert.NoError(err)
	assert.Equal(cacheDepth, p.Depth())
	checkKZGIdentity(assert, p)
}
