// Package staging persists reconciliation artifacts between the stage and
// confirm phases of an import. An artifact is written once under an opaque
// token, may be read back exactly once for commit, and can be discarded
// without side effects before that.
package staging

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/recon"
)

// ErrTokenInvalid is returned when a token is unknown, already consumed, or
// already discarded.
var ErrTokenInvalid = errors.New("staging token invalid or already consumed")

// Store keeps staged artifacts as JSON files in one directory.
type Store struct {
	dir string
}

// NewStore opens a staging store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the staging directory. Uploaded files are conventionally
// saved under it too, so a discarded or committed import leaves nothing
// behind.
func (s *Store) Dir() string { return s.dir }

// Stage persists an artifact and returns its token. On failure the caller
// must not assume the upload file is safe to discard.
func (s *Store) Stage(a *recon.Artifact) (string, error) {
	token := uuid.NewString()

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode artifact: %w", err)
	}

	// Write to a temp name first so a crash never leaves a readable
	// half-written artifact under a valid token.
	tmp := s.path(token) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write staging artifact: %w", err)
	}
	if err := os.Rename(tmp, s.path(token)); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to write staging artifact: %w", err)
	}
	return token, nil
}

// Peek reads a staged artifact without consuming its token. The commit
// orchestrator uses it to learn the artifact's scope before deciding on
// backups.
func (s *Store) Peek(token string) (*recon.Artifact, error) {
	if !validToken(token) {
		return nil, ErrTokenInvalid
	}
	data, err := os.ReadFile(s.path(token))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("failed to read staging artifact: %w", err)
	}
	return decode(data)
}

// Consume atomically invalidates a token and returns its artifact. A second
// Consume with the same token fails with ErrTokenInvalid; the rename is the
// claim, so two concurrent consumers cannot both win.
func (s *Store) Consume(token string) (*recon.Artifact, error) {
	if !validToken(token) {
		return nil, ErrTokenInvalid
	}

	claimed := s.path(token) + ".claimed"
	if err := os.Rename(s.path(token), claimed); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("failed to claim staging artifact: %w", err)
	}

	data, err := os.ReadFile(claimed)
	if err != nil {
		return nil, fmt.Errorf("failed to read staging artifact: %w", err)
	}
	return decode(data)
}

// Remove deletes a consumed artifact's backing file and the uploaded source
// file it references. Called at the end of a commit.
func (s *Store) Remove(token string, sourceFile string) error {
	if !validToken(token) {
		return ErrTokenInvalid
	}
	if sourceFile != "" {
		if err := os.Remove(sourceFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove upload file: %w", err)
		}
	}
	if err := os.Remove(s.path(token) + ".claimed"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove staging artifact: %w", err)
	}
	return nil
}

// Discard invalidates a token without committing anything and removes both
// the artifact and the uploaded file.
func (s *Store) Discard(token string) error {
	a, err := s.Consume(token)
	if err != nil {
		return err
	}
	return s.Remove(token, a.SourceFile)
}

func (s *Store) path(token string) string {
	return filepath.Join(s.dir, token+".json")
}

// validToken guards against path traversal; tokens are always UUIDs.
func validToken(token string) bool {
	_, err := uuid.Parse(token)
	return err == nil
}

func decode(data []byte) (*recon.Artifact, error) {
	var a recon.Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to decode artifact: %w", err)
	}
	return &a, nil
}
