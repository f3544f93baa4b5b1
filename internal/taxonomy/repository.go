package taxonomy

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
)

// shared holds the process-wide compiled repository. Rebuilds swap the
// pointer atomically so in-flight classification keeps its old
// reference; the repository itself is never mutated after Build.
var (
	shared   atomic.Pointer[Repository]
	sharedMu sync.Mutex
)

// Shared returns the cached process-wide repository for root, building
// it on first use.
func Shared(root string) (*Repository, error) {
	if repo := shared.Load(); repo != nil {
		return repo, nil
	}

	sharedMu.Lock()
	defer sharedMu.Unlock()
	if repo := shared.Load(); repo != nil {
		return repo, nil
	}

	repo, err := Build(root)
	if err != nil {
		return nil, err
	}
	shared.Store(repo)
	return repo, nil
}

// Invalidate drops the cached repository; the next Shared call
// rebuilds from source.
func Invalidate() {
	shared.Store(nil)
}

// Fingerprint computes a stable digest over all rule and unit sources
// under root (relative path plus content hash, sorted). Equal
// fingerprints mean an identical compiled repository.
func Fingerprint(root string) (string, error) {
	files, err := SourceFiles(root)
	if err != nil {
		return "", err
	}
	unitFiles, err := unitSourceFiles(root)
	if err != nil {
		return "", err
	}
	files = append(files, unitFiles...)
	sort.Strings(files)

	sum := sha1.New()
	for _, path := range files {
		h, err := fileSHA1(path)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(sum, "%s\x00%s\x00", relTo(root, path), h)
	}
	return hex.EncodeToString(sum.Sum(nil)), nil
}

func unitSourceFiles(root string) ([]string, error) {
	dir := filepath.Join(root, UnitsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && isYAML(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

func fileSHA1(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
