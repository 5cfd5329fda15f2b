// SPDX-License-Identifier: MPL-2.0

package build

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	ignore "github.com/sabhiram/go-gitignore"

	"bakery-cli/internal/recipe"
)

// alwaysExclude is applied on top of the recipe's staging policy.
// Version-control metadata never belongs in an image layer.
var alwaysExclude = []string{
	".git/",
	".hg/",
	".svn/",
	".bzr/",
}

// newMatcher compiles the effective exclusion matcher for a staging
// policy.
func newMatcher(policy recipe.StagePolicy) *ignore.GitIgnore {
	patterns := make([]string, 0, len(alwaysExclude)+len(policy.Exclude))
	patterns = append(patterns, alwaysExclude...)
	patterns = append(patterns, policy.Exclude...)
	return ignore.CompileIgnoreLines(patterns...)
}

// walkContext walks the build context in lexical order, skipping
// excluded entries, and calls fn with the slash-separated relative path
// of each regular file. Excluded directories are not descended into.
func walkContext(contextDir string, policy recipe.StagePolicy, fn func(rel, path string, info fs.FileInfo) error) error {
	matcher := newMatcher(policy)

	return filepath.WalkDir(contextDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == contextDir {
			return nil
		}

		rel, err := filepath.Rel(contextDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if matcher.MatchesPath(rel + "/") {
				return filepath.SkipDir
			}
			return nil
		}
		if matcher.MatchesPath(rel) {
			return nil
		}
		// Symlinks and other non-regular entries are not staged; an
		// image layer copy of a dangling or absolute link would be
		// meaningless inside the container filesystem.
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		return fn(rel, path, info)
	})
}

// stageTree copies the build context into dstDir, honoring the staging
// policy. Every copied file becomes part of the image layer, so the
// policy (not an implicit copy-everything) decides what ships.
func stageTree(contextDir, dstDir string, policy recipe.StagePolicy) error {
	staged := 0
	err := walkContext(contextDir, policy, func(rel, path string, info fs.FileInfo) error {
		dst := filepath.Join(dstDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		if err := copyFile(path, dst, info.Mode()); err != nil {
			return err
		}
		staged++
		return nil
	})
	if err != nil {
		return err
	}
	if staged == 0 {
		return fmt.Errorf("build context %s contains no stageable files", contextDir)
	}
	return nil
}

// copyFile copies src to dst with the given mode.
func copyFile(src, dst string, mode fs.FileMode) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy file contents: %w", err)
	}

	return nil
}
