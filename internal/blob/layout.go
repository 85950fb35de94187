// Package blob maps (project, typeCode) pairs onto directories under a fixed
// root and manages the JSON and workbook files kept there.
package blob

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"commissioning-backend/internal/apperr"
	"commissioning-backend/internal/typecode"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644

	// staged files carry this prefix until committed; listings skip them
	stagePrefix = ".stage-"
)

// FileInfo describes one stored file.
type FileInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"modTime"`
	Checksum string    `json:"checksum"`
}

type Layout struct {
	root string
}

func NewLayout(root string) (*Layout, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve blob root: %w", err)
	}
	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &Layout{root: abs}, nil
}

func (l *Layout) Root() string {
	return l.root
}

func validSegment(segment string) bool {
	return typecode.Valid(segment) && filepath.Base(segment) == segment
}

// Dir returns the directory of a room type.
func (l *Layout) Dir(projectID, code string) (string, error) {
	if !validSegment(projectID) {
		return "", apperr.InvalidInput("invalid project segment %q", projectID)
	}
	if !validSegment(code) {
		return "", apperr.InvalidInput("invalid type code segment %q", code)
	}
	return filepath.Join(l.root, projectID, code), nil
}

func (l *Layout) projectDir(projectID string) (string, error) {
	if !validSegment(projectID) {
		return "", apperr.InvalidInput("invalid project segment %q", projectID)
	}
	return filepath.Join(l.root, projectID), nil
}

// filePath resolves name inside the room type directory and refuses anything
// that is not a single plain path element.
func (l *Layout) filePath(projectID, code, name string) (string, error) {
	dir, err := l.Dir(projectID, code)
	if err != nil {
		return "", err
	}
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) ||
		filepath.IsAbs(name) || filepath.VolumeName(name) != "" ||
		strings.HasPrefix(name, stagePrefix) {
		return "", apperr.InvalidInput("invalid file name %q", name)
	}
	full := filepath.Join(dir, name)
	rel, err := filepath.Rel(dir, full)
	if err != nil || rel != name {
		return "", apperr.InvalidInput("invalid file name %q", name)
	}
	return full, nil
}

// EnsureDirectory creates the room type directory and its parents.
func (l *Layout) EnsureDirectory(projectID, code string) error {
	dir, err := l.Dir(projectID, code)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return apperr.Internal(err, "failed to create directory")
	}
	return nil
}

// RemoveDirectory deletes the room type directory. A missing directory is fine.
func (l *Layout) RemoveDirectory(projectID, code string) error {
	dir, err := l.Dir(projectID, code)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return apperr.Internal(err, "failed to remove directory")
	}
	return nil
}

// RemoveProject deletes the whole project directory. A missing directory is fine.
func (l *Layout) RemoveProject(projectID string) error {
	dir, err := l.projectDir(projectID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return apperr.Internal(err, "failed to remove project directory")
	}
	return nil
}

// MoveDirectory retargets a room type directory after a rename. Anything
// already at the destination is an orphan and is replaced. When the source
// does not exist the destination is simply created.
func (l *Layout) MoveDirectory(projectID, from, to string) error {
	src, err := l.Dir(projectID, from)
	if err != nil {
		return err
	}
	dst, err := l.Dir(projectID, to)
	if err != nil {
		return err
	}
	if src == dst {
		return l.EnsureDirectory(projectID, to)
	}
	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		return l.EnsureDirectory(projectID, to)
	}
	if err := os.RemoveAll(dst); err != nil {
		return apperr.Internal(err, "failed to clear target directory")
	}
	if err := os.Rename(src, dst); err != nil {
		return apperr.Internal(err, "failed to move directory")
	}
	return nil
}

// Exists reports whether the room type directory is present.
func (l *Layout) Exists(projectID, code string) (bool, error) {
	dir, err := l.Dir(projectID, code)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Internal(err, "failed to stat directory")
	}
	return info.IsDir(), nil
}

// ListFiles lists regular files in the room type directory, sorted by name.
// A missing directory lists as empty.
func (l *Layout) ListFiles(projectID, code string) ([]FileInfo, error) {
	dir, err := l.Dir(projectID, code)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []FileInfo{}, nil
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to list files")
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), stagePrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		sum, err := checksumFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, apperr.Internal(err, "failed to checksum file")
		}
		files = append(files, FileInfo{
			Name:     entry.Name(),
			Size:     info.Size(),
			ModTime:  info.ModTime().UTC(),
			Checksum: sum,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Checksum returns the hex BLAKE3 digest used in listings.
func Checksum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ReadFile returns the contents of a stored file.
func (l *Layout) ReadFile(projectID, code, name string) ([]byte, error) {
	path, err := l.filePath(projectID, code, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperr.NotFound("file %s not found", name)
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to read file")
	}
	return data, nil
}

// WriteFile atomically replaces a stored file.
func (l *Layout) WriteFile(projectID, code, name string, data []byte) error {
	staged, err := l.Stage(projectID, code, name, data)
	if err != nil {
		return err
	}
	if err := staged.Commit(); err != nil {
		return err
	}
	staged.Release()
	return nil
}

// DeleteFile removes a stored file.
func (l *Layout) DeleteFile(projectID, code, name string) error {
	path, err := l.filePath(projectID, code, name)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return apperr.NotFound("file %s not found", name)
	}
	if err != nil {
		return apperr.Internal(err, "failed to delete file")
	}
	return nil
}

// Staged is a file written next to its destination but not yet visible
// under its final name. Commit keeps the file it replaces until Release, so a
// committed file can still be reverted.
type Staged struct {
	tmp       string
	dest      string
	prev      string
	done      bool
	committed bool
}

// Stage writes data to a temporary file in the room type directory, creating
// the directory when needed. Nothing is visible until Commit.
func (l *Layout) Stage(projectID, code, name string, data []byte) (*Staged, error) {
	dest, err := l.filePath(projectID, code, name)
	if err != nil {
		return nil, err
	}
	if err := l.EnsureDirectory(projectID, code); err != nil {
		return nil, err
	}
	tmp := filepath.Join(filepath.Dir(dest), stagePrefix+uuid.New().String())
	if err := os.WriteFile(tmp, data, filePerm); err != nil {
		_ = os.Remove(tmp)
		return nil, apperr.Internal(err, "failed to stage file")
	}
	return &Staged{tmp: tmp, dest: dest}, nil
}

// Commit moves the staged file into place. An existing file is set aside
// first; a destination that is not a regular file fails the commit.
func (s *Staged) Commit() error {
	if s.done {
		return nil
	}
	s.done = true

	info, err := os.Lstat(s.dest)
	switch {
	case err == nil && !info.Mode().IsRegular():
		_ = os.Remove(s.tmp)
		return apperr.Internal(fmt.Errorf("%s is not a regular file", s.dest), "failed to commit file")
	case err == nil:
		prev := s.tmp + ".prev"
		if err := os.Rename(s.dest, prev); err != nil {
			_ = os.Remove(s.tmp)
			return apperr.Internal(err, "failed to commit file")
		}
		s.prev = prev
	case !errors.Is(err, fs.ErrNotExist):
		_ = os.Remove(s.tmp)
		return apperr.Internal(err, "failed to commit file")
	}

	if err := os.Rename(s.tmp, s.dest); err != nil {
		_ = os.Remove(s.tmp)
		if s.prev != "" {
			_ = os.Rename(s.prev, s.dest)
			s.prev = ""
		}
		return apperr.Internal(err, "failed to commit file")
	}
	s.committed = true
	return nil
}

// Revert undoes a successful Commit: the replaced file comes back, or the new
// file is removed when there was none. Without a Commit it is a no-op.
func (s *Staged) Revert() error {
	if !s.committed {
		return nil
	}
	s.committed = false
	if s.prev == "" {
		if err := os.Remove(s.dest); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return apperr.Internal(err, "failed to revert file")
		}
		return nil
	}
	if err := os.Rename(s.prev, s.dest); err != nil {
		return apperr.Internal(err, "failed to revert file")
	}
	s.prev = ""
	return nil
}

// Release drops the file replaced by Commit. The commit can no longer be
// reverted afterwards.
func (s *Staged) Release() {
	s.committed = false
	if s.prev != "" {
		_ = os.Remove(s.prev)
		s.prev = ""
	}
}

// Discard drops the staged file. Safe to call after Commit.
func (s *Staged) Discard() {
	if s.done {
		return
	}
	s.done = true
	_ = os.Remove(s.tmp)
}

// Projects lists the project directories under the root.
func (l *Layout) Projects() ([]string, error) {
	return listDirs(l.root)
}

// TypeCodes lists the room type directories of a project.
func (l *Layout) TypeCodes(projectID string) ([]string, error) {
	dir, err := l.projectDir(projectID)
	if err != nil {
		return nil, err
	}
	return listDirs(dir)
}

func listDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to list directories")
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() && validSegment(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
