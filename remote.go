package amt

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/consensys/gnark/logger"
	"github.com/schollz/progressbar/v3"
)

var ErrChecksumMismatch = errors.New("amt: downloaded file does not match its checksum")

// RemoteStore downloads setup files published under BaseURL and keeps them in Local.
// A name listed in Checksums must match its hex sha256 digest, both when found in
// Local and after a download.
type RemoteStore struct {
	BaseURL   string
	Local     Store
	Checksums map[string]string
	Client    *http.Client
	Progress  bool
}

func (me *RemoteStore) Get(name string) (io.ReadCloser, error) {
	if b, err := me.readLocal(name); err == nil {
		if me.checksum(name, b) == nil {
			return io.NopCloser(bytes.NewReader(b)), nil
		}
		log := logger.Logger()
		log.Warn().Str("file", name).Msg("local copy fails its checksum; downloading again")
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	b, err := me.download(name)
	if err != nil {
		return nil, err
	}
	if err := me.checksum(name, b); err != nil {
		return nil, err
	}
	if err := me.Local.Put(name, func(w io.Writer) error { _, err := w.Write(b); return err }); err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

// Put only writes to Local; published files are read-only.
func (me *RemoteStore) Put(name string, write func(io.Writer) error) error {
	return me.Local.Put(name, write)
}

func (me *RemoteStore) readLocal(name string) ([]byte, error) {
	rc, err := me.Local.Get(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	return b, errors.Wrapf(err, "read %s", name)
}

func (me *RemoteStore) checksum(name string, b []byte) error {
	want, ok := me.Checksums[name]
	if !ok {
		return nil
	}
	sum := sha256.Sum256(b)
	if got := hex.EncodeToString(sum[:]); got != want {
		return errors.Wrapf(ErrChecksumMismatch, "%s: sha256 %s, want %s", name, got, want)
	}
	return nil
}

func (me *RemoteStore) download(name string) ([]byte, error) {
	u, err := url.JoinPath(me.BaseURL, name)
	if err != nil {
		return nil, errors.Wrapf(err, "url for %s", name)
	}
	client := me.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Minute}
	}
	log := logger.Logger().With().Str("component", "amt-remote").Str("url", u).Logger()
	start := time.Now()

	resp, err := client.Get(u)
	if err != nil {
		return nil, errors.Wrapf(err, "download %s", name)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.Wrapf(ErrNotFound, "download %s", name)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("download %s: %s", name, resp.Status)
	}

	var buf bytes.Buffer
	var w io.Writer = &buf
	if me.Progress {
		w = io.MultiWriter(&buf, progressbar.DefaultBytes(resp.ContentLength, "Downloading "+name))
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return nil, errors.Wrapf(err, "download %s", name)
	}
	log.Info().Dur("took", time.Since(start)).Int("bytes", buf.Len()).Msg("downloaded")
	return buf.Bytes(), nil
}
