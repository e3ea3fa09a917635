package amt

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"

	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/blake2b"

	"github.com/eon-protocol/amt/internal/syncutils"
)

// ErrNotFound is returned by a Store holding no entry under the requested name.
var ErrNotFound = errors.New("amt: setup file not found")

// Store persists setup artifacts under flat names.
type Store interface {
	Get(name string) (io.ReadCloser, error)
	Put(name string, write func(io.Writer) error) error
}

// FileStore keeps one file per artifact in Dir. Writes go through a temporary file
// and a rename, so readers never see a half-written file.
type FileStore struct {
	Dir string
}

func (me *FileStore) Get(name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(me.Dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Mark(errors.Wrapf(err, "open %s", name), ErrNotFound)
		}
		return nil, errors.Wrapf(err, "open %s", name)
	}
	return f, nil
}

func (me *FileStore) Put(name string, write func(io.Writer) error) error {
	if err := os.MkdirAll(me.Dir, 0o755); err != nil {
		return errors.Wrapf(err, "create dir %s", me.Dir)
	}
	tmp, err := os.CreateTemp(me.Dir, name+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "create temp file for %s", name)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "write %s", name)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", name)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(me.Dir, name)); err != nil {
		return errors.Wrapf(err, "rename %s", name)
	}
	return nil
}

// MemStore is an in-memory Store.
type MemStore struct {
	mu    syncutils.RWMutex
	files map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{files: make(map[string][]byte)}
}

func (me *MemStore) Get(name string) (io.ReadCloser, error) {
	me.mu.RLock()
	defer me.mu.RUnlock()
	b, ok := me.files[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "get %s", name)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (me *MemStore) Put(name string, write func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return errors.Wrapf(err, "write %s", name)
	}
	me.mu.Lock()
	defer me.mu.Unlock()
	me.files[name] = buf.Bytes()
	return nil
}

// Names lists the stored entries, sorted.
func (me *MemStore) Names() []string {
	me.mu.RLock()
	defer me.mu.RUnlock()
	names := make([]string, 0, len(me.files))
	for name := range me.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// typeHash tags file names with the curve and the Go type stored in them, so that a
// file written for a different layout is never picked up.
func typeHash(v any) string {
	h := blake2b.Sum256([]byte(CURVE_NAME + "/" + reflect.TypeOf(v).String()))
	return base64.RawURLEncoding.EncodeToString(h[:])[:6]
}

func fileName(prefix string, v any, depth int) string {
	return fmt.Sprintf("%s-%s-%02d.bin", prefix, typeHash(v), depth)
}

// fast marks the raw limb layout in every setup file name.
func layoutPrefix(prefix string, fast bool) string {
	if fast {
		return prefix + "-mont"
	}
	return prefix
}

func PowersOfTauFileName(depth int, fast bool) string {
	return fileName(layoutPrefix("power-tau", fast), (*PowersOfTau)(nil), depth)
}

func ParamsFileName(depth, proveDepth, coset int, fast bool) string {
	prefix := fmt.Sprintf("amt-params-coset%d-prove%d", coset, proveDepth)
	return fileName(layoutPrefix(prefix, fast), (*Params)(nil), depth)
}

func LDTParamsFileName(depth, coset int, fast bool) string {
	return fileName(layoutPrefix(fmt.Sprintf("amt-ldt-coset%d", coset), fast), (*LDTParams)(nil), depth)
}

func VerifierParamsFileName(depth, verifyDepth, coset int) string {
	return fileName(fmt.Sprintf("amt-verify-coset%d-v%d", coset, verifyDepth), (*VerifierParams)(nil), depth)
}
