// SPDX-License-Identifier: MPL-2.0

package build

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"bakery-cli/internal/recipe"
)

// contextDigest computes a stable identity for a build: the recipe
// fields that shape the image plus the content of every file the staging
// policy admits. Two builds with the same digest produce the same
// installed-package state, so the digest doubles as the cache key and
// the default tag suffix.
//
// File contents (not sizes or mtimes) are hashed: a re-checkout of the
// same tree must converge on the same digest.
func contextDigest(rec *recipe.Recipe, contextDir string) (string, error) {
	h := sha256.New()

	fmt.Fprintf(h, "base:%s\n", rec.Base)
	fmt.Fprintf(h, "workdir:%s\n", rec.Workdir)
	for _, cmd := range rec.Install {
		fmt.Fprintf(h, "install:%s\n", cmd)
	}
	fmt.Fprintf(h, "entry:%s\n", strings.Join(rec.Entry, "\x00"))
	writeSortedKV(h, "env", rec.Env)
	writeSortedKV(h, "label", rec.Labels)
	for _, pattern := range rec.Stage.Exclude {
		fmt.Fprintf(h, "exclude:%s\n", pattern)
	}

	err := walkContext(contextDir, rec.Stage, func(rel, path string, _ fs.FileInfo) error {
		fileSum, err := fileDigest(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(h, "file:%s:%s\n", rel, fileSum)
		return nil
	})
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// fileDigest returns the sha256 of a file's contents.
func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// writeSortedKV hashes a string map in deterministic key order.
func writeSortedKV(w io.Writer, prefix string, m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s:%s=%s\n", prefix, k, m[k])
	}
}

// defaultTag derives the image tag for a build from the context
// directory name and the context digest.
func defaultTag(contextDir, digest string) string {
	name := slugify(filepath.Base(absOrSelf(contextDir)))
	if name == "" {
		name = "image"
	}
	return fmt.Sprintf("bakery/%s:%s", name, digest[:12])
}

func absOrSelf(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// slugify lowers a directory name into a valid image repository segment.
func slugify(name string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteRune('-')
		}
	}
	return strings.Trim(sb.String(), ".-_")
}
