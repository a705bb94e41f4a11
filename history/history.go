// Package history records box flushes as git commits, one commit per
// changed flush, giving a box file a browsable timeline without a server or
// a git binary.
//
// A [Recorder] owns a directory and version-controls the box files inside
// it. Wire it to a box with filebox.WithObserver; every flush that changes
// the file becomes a commit.
package history

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ftxqxd/filebox"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Commit is one recorded flush.
type Commit struct {
	Hash    string
	Subject string
	Body    string
	Author  string
	Email   string
	When    time.Time
}

// Recorder version-controls the box files under one directory, pure Go, no
// git binary dependency. Safe for concurrent use by boxes on distinct
// goroutines.
type Recorder struct {
	dir   string
	name  string
	email string
	repo  *gogit.Repository
	mu    sync.Mutex
}

var _ filebox.Observer = (*Recorder)(nil)

// NewRecorder opens or initializes a git repository at dir, creating the
// directory as needed. name and email sign the recorded commits; empty
// values fall back to a fixed identity.
func NewRecorder(dir, name, email string) (*Recorder, error) {
	if name == "" {
		name = "filebox"
	}
	if email == "" {
		email = "filebox@localhost"
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	repo, err := gogit.PlainOpen(abs)
	if err != nil {
		// Not a repo yet — initialize.
		repo, err = gogit.PlainInit(abs, false)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize history repository: %w", err)
		}
		cfg, err := repo.Config()
		if err != nil {
			return nil, fmt.Errorf("failed to read git config: %w", err)
		}
		cfg.User.Name = name
		cfg.User.Email = email
		if err := repo.SetConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to write git config: %w", err)
		}
	}

	return &Recorder{dir: abs, name: name, email: email, repo: repo}, nil
}

// Dir returns the recorded directory.
func (r *Recorder) Dir() string {
	return r.dir
}

// OnFlush stages path and commits it when its contents changed. Flushes
// that rewrite identical bytes record nothing. Paths outside the
// recorder's directory are rejected.
func (r *Recorder) OnFlush(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rel, err := r.relPath(path)
	if err != nil {
		return err
	}
	w, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if _, err := w.Add(rel); err != nil {
		return fmt.Errorf("failed to stage %s: %w", rel, err)
	}
	status, err := w.Status()
	if err != nil {
		return fmt.Errorf("failed to get worktree status: %w", err)
	}
	if status.IsClean() {
		return nil
	}

	now := time.Now()
	sig := &object.Signature{Name: r.name, Email: r.email, When: now}
	if _, err := w.Commit("flush "+rel, &gogit.CommitOptions{Author: sig, Committer: sig}); err != nil {
		// The status check spans the whole worktree, so an untracked
		// sibling file can send an unchanged flush this far. Nothing is
		// staged then, and there is nothing to record.
		if errors.Is(err, gogit.ErrEmptyCommit) {
			return nil
		}
		return fmt.Errorf("failed to commit %s: %w", rel, err)
	}
	return nil
}

// Log returns the recorded flushes of path, newest first, limited to n
// commits. An empty path logs the whole directory.
func (r *Recorder) Log(path string, n int) ([]Commit, error) {
	if n <= 0 || n > 1000 {
		n = 1000
	}

	opts := &gogit.LogOptions{}
	if path != "" {
		rel, err := r.relPath(path)
		if err != nil {
			return nil, err
		}
		opts.FileName = &rel
	}

	iter, err := r.repo.Log(opts)
	if err != nil {
		return nil, nil // no commits yet is not an error
	}
	defer iter.Close()

	var commits []Commit
	for range n {
		c, err := iter.Next()
		if err != nil {
			break
		}
		subject, body, _ := strings.Cut(c.Message, "\n")
		commits = append(commits, Commit{
			Hash:    c.Hash.String(),
			Subject: subject,
			Body:    strings.TrimSpace(body),
			Author:  c.Author.Name,
			Email:   c.Author.Email,
			When:    c.Author.When,
		})
	}
	return commits, nil
}

// At returns the bytes of path as they were at the given commit. The hash
// "HEAD" resolves to the latest commit. Decode the result with the box's
// codec to recover the historical value.
func (r *Recorder) At(hash, path string) ([]byte, error) {
	rel, err := r.relPath(path)
	if err != nil {
		return nil, err
	}

	h := plumbing.NewHash(hash)
	if hash == "HEAD" {
		ref, err := r.repo.Head()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
		}
		h = ref.Hash()
	}

	c, err := r.repo.CommitObject(h)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}
	f, err := c.File(rel)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s at %s: %w", rel, hash, err)
	}
	reader, err := f.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s at %s: %w", rel, hash, err)
	}
	defer func() { _ = reader.Close() }()
	return io.ReadAll(reader)
}

// relPath converts path to a slash-separated path relative to the
// recorder's directory, rejecting anything outside it.
func (r *Recorder) relPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	rel, err := filepath.Rel(r.dir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the history directory %s", path, r.dir)
	}
	return filepath.ToSlash(rel), nil
}
