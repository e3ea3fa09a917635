package amt

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestFileNames(t *testing.T) {
	re := regexp.MustCompile(`^[a-z0-9-]+-[A-Za-z0-9_-]{6}-\d{2}\.bin$`)
	for _, name := range []string{
		PowersOfTauFileName(6, false),
		PowersOfTauFileName(6, true),
		ParamsFileName(20, 10, 2, false),
		ParamsFileName(20, 10, 2, true),
		VerifierParamsFileName(20, 10, 2),
		LDTParamsFileName(20, 2, true),
	} {
		require.Regexp(t, re, name)
	}
	require.Contains(t, PowersOfTauFileName(6, false), "power-tau-")
	require.Contains(t, PowersOfTauFileName(6, true), "power-tau-mont-")
	require.Contains(t, LDTParamsFileName(20, 2, false), "amt-ldt-coset2-")
	require.Contains(t, ParamsFileName(20, 10, 2, true), "amt-params-coset2-prove10-mont-")
	require.Contains(t, VerifierParamsFileName(8, 3, 1), "amt-verify-coset1-v3-")
	require.NotEqual(t, ParamsFileName(20, 10, 2, false), ParamsFileName(20, 10, 2, true))
	require.Equal(t, "-08.bin", PowersOfTauFileName(8, false)[len(PowersOfTauFileName(8, false))-7:])
	require.Equal(t, typeHash((*Params)(nil)), typeHash((*Params)(nil)))
	require.NotEqual(t, typeHash((*Params)(nil)), typeHash((*VerifierParams)(nil)))
}

func testStore(t *testing.T, s Store) {
	_, err := s.Get("missing.bin")
	require.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.Put("a.bin", func(w io.Writer) error {
		_, err := w.Write([]byte("hello"))
		return err
	}))
	rc, err := s.Get("a.bin")
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, "hello", string(b))

	failed := errors.New("boom")
	err = s.Put("b.bin", func(w io.Writer) error { return failed })
	require.True(t, errors.Is(err, failed))
	_, err = s.Get("b.bin")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestMemStore(t *testing.T) {
	s := NewMemStore()
	testStore(t, s)
	require.Equal(t, []string{"a.bin"}, s.Names())
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pp")
	testStore(t, &FileStore{Dir: dir})

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not survive")
	require.Equal(t, "a.bin", entries[0].Name())
}
