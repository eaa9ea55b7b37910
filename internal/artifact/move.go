package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Apply executes moves against srcDir, routing matches into the real
// directories given for each destination kind. A glob with no matches is
// a no-op, which makes re-application after a partial run harmless — files
// already moved simply stop matching. Returns the destination paths of
// every file moved.
func Apply(srcDir string, moves []Move, dests map[DestKind]string) ([]string, error) {
	var moved []string

	for _, m := range moves {
		destDir, ok := dests[m.Dest]
		if !ok {
			return nil, fmt.Errorf("no directory bound for destination %q", m.Dest)
		}

		matches, err := filepath.Glob(filepath.Join(srcDir, m.Glob))
		if err != nil {
			return nil, fmt.Errorf("bad artifact glob %q: %w", m.Glob, err)
		}

		for _, match := range matches {
			if err := checkWithin(srcDir, match); err != nil {
				return nil, err
			}
			info, err := os.Stat(match)
			if err != nil {
				return nil, fmt.Errorf("stat %s: %w", match, err)
			}
			if info.IsDir() {
				continue
			}

			name := filepath.Base(match)
			if m.Rename != "" {
				name = m.Rename
			}

			if err := os.MkdirAll(destDir, 0755); err != nil {
				return nil, fmt.Errorf("creating %s: %w", destDir, err)
			}
			dest := filepath.Join(destDir, name)
			if err := os.Rename(match, dest); err != nil {
				return nil, fmt.Errorf("moving %s to %s: %w", match, dest, err)
			}
			moved = append(moved, dest)
		}
	}

	return moved, nil
}

// ApplyLocal executes partition moves inside dir: each match relocates
// into a subdirectory of dir. Missing matches are no-ops, so re-running
// the package stage on an already-partitioned directory does not fail.
func ApplyLocal(dir string, moves []LocalMove) error {
	for _, m := range moves {
		matches, err := filepath.Glob(filepath.Join(dir, m.Glob))
		if err != nil {
			return fmt.Errorf("bad partition glob %q: %w", m.Glob, err)
		}
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				return fmt.Errorf("stat %s: %w", match, err)
			}
			if info.IsDir() {
				continue
			}
			destDir := filepath.Join(dir, m.Dest)
			if err := os.MkdirAll(destDir, 0755); err != nil {
				return fmt.Errorf("creating %s: %w", destDir, err)
			}
			dest := filepath.Join(destDir, filepath.Base(match))
			if err := os.Rename(match, dest); err != nil {
				return fmt.Errorf("moving %s to %s: %w", match, dest, err)
			}
		}
	}
	return nil
}

// MoveRemainingFiles relocates every remaining top-level regular file of
// dir into the dest subdirectory.
func MoveRemainingFiles(dir, dest string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}
	destDir := filepath.Join(dir, dest)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.MkdirAll(destDir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", destDir, err)
		}
		if err := os.Rename(filepath.Join(dir, e.Name()), filepath.Join(destDir, e.Name())); err != nil {
			return fmt.Errorf("moving %s: %w", e.Name(), err)
		}
	}
	return nil
}

// WriteChecksumManifest hashes every top-level regular file of dir (the
// manifest itself excluded) and writes "<sha256>  <name>" lines in sorted
// order. The write is atomic: temp file, then rename.
func WriteChecksumManifest(dir, name string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || e.Name() == name {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var b strings.Builder
	for _, n := range names {
		data, err := os.ReadFile(filepath.Join(dir, n))
		if err != nil {
			return fmt.Errorf("reading %s: %w", n, err)
		}
		sum := sha256.Sum256(data)
		fmt.Fprintf(&b, "%s  %s\n", hex.EncodeToString(sum[:]), n)
	}

	tmp := filepath.Join(dir, "."+name+".tmp")
	if err := os.WriteFile(tmp, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, name)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming manifest: %w", err)
	}
	return nil
}

// checkWithin guards against a symlinked builder output escaping the
// output tree during a move.
func checkWithin(root, path string) error {
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", root, err)
	}
	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	if real != realRoot && !strings.HasPrefix(real, realRoot+string(filepath.Separator)) {
		return fmt.Errorf("artifact %s resolves outside the output directory %s", path, root)
	}
	return nil
}
