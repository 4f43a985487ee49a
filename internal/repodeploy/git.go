package repodeploy

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// gitClone performs a depth-1 clone, optionally pinned to a branch. go-git
// keeps the workflow free of a git binary dependency.
func gitClone(ctx context.Context, repoURL, branch, dest string) error {
	opts := &git.CloneOptions{
		URL:   repoURL,
		Depth: 1,
		Tags:  git.NoTags,
	}
	if branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
		opts.SingleBranch = true
	}
	_, err := git.PlainCloneContext(ctx, dest, false, opts)
	return err
}

// zipDirectory packages every regular file under sourceDir into zipPath,
// preserving paths relative to sourceDir.
func zipDirectory(sourceDir, zipPath string) (string, error) {
	out, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("creating artifact: %w", err)
	}
	defer out.Close()

	writer := zip.NewWriter(out)
	err = filepath.WalkDir(sourceDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		dst, err := writer.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(dst, src)
		return err
	})
	if err != nil {
		writer.Close()
		return "", fmt.Errorf("packaging %s: %w", sourceDir, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalizing artifact: %w", err)
	}
	return zipPath, nil
}
