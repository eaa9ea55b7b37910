// Package fetch downloads checksum-pinned files over HTTP(S). A file is
// only ever written to its destination after its content hash matched the
// pin, and a destination that already carries the pinned content is left
// alone.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// HTTPClient is the subset of *http.Client the fetcher needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher downloads files and verifies them against a sha256 pin.
type Fetcher struct {
	Client HTTPClient
}

// Fetch downloads url into dest unless dest already exists with the pinned
// hash. The pin is lowercase hex sha256 and is mandatory. The write is
// atomic: the file appears under its final name only after verification.
func (f *Fetcher) Fetch(ctx context.Context, url, dest, sha256hex string) error {
	if sha256hex == "" {
		return fmt.Errorf("fetching %s: sha256 pin is required", url)
	}

	if ok, err := fileMatches(dest, sha256hex); err != nil {
		return err
	} else if ok {
		return nil
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: HTTP %d", url, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, h), resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("fetching %s: %w", url, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	got := hex.EncodeToString(h.Sum(nil))
	if got != sha256hex {
		return fmt.Errorf("fetching %s: checksum mismatch: expected %s, got %s", url, sha256hex, got)
	}

	return os.Rename(tmp.Name(), dest)
}

// fileMatches reports whether path exists and hashes to sha256hex.
func fileMatches(path, sha256hex string) (bool, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return false, err
	}
	return hex.EncodeToString(h.Sum(nil)) == sha256hex, nil
}
