package amt

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestRemoteStore(t *testing.T) {
	body := []byte("published params")
	sum := sha256.Sum256(body)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/pp/a.bin", "/pp/b.bin":
			_, _ = w.Write(body)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	local := NewMemStore()
	s := &RemoteStore{
		BaseURL: srv.URL + "/pp",
		Local:   local,
		Checksums: map[string]string{
			"a.bin": hex.EncodeToString(sum[:]),
			"b.bin": "00",
		},
	}

	read := func(name string) ([]byte, error) {
		rc, err := s.Get(name)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}

	b, err := read("a.bin")
	require.NoError(t, err)
	require.Equal(t, body, b)
	require.Equal(t, []string{"a.bin"}, local.Names())

	// served from Local the second time
	b, err = read("a.bin")
	require.NoError(t, err)
	require.Equal(t, body, b)
	require.Equal(t, int32(1), hits.Load())

	_, err = read("b.bin")
	require.True(t, errors.Is(err, ErrChecksumMismatch))

	_, err = read("c.bin")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestRemoteStoreBacksCache(t *testing.T) {
	published := NewMemStore()
	cache, err := NewCache(published, WithCreate(true), WithHighDepth(6))
	require.NoError(t, err)
	want, err := cache.Params(3, 2, 0)
	require.NoError(t, err)
	require.NoError(t, cache.Close())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc, err := published.Get(r.URL.Path[1:])
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer rc.Close()
		_, _ = io.Copy(w, rc)
	}))
	defer srv.Close()

	remote, err := NewCache(&RemoteStore{BaseURL: srv.URL, Local: NewMemStore()})
	require.NoError(t, err)
	defer remote.Close()
	got, err := remote.Params(3, 2, 0)
	require.NoError(t, err)
	require.Equal(t, want.Basis, got.Basis)
	require.Equal(t, want.Quotients, got.Quotients)
}
