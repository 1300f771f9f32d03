package content

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"go4cms/pkg/common/fs"
)

// FileUnitOfWork stages file writes and deletes and applies them on Commit.
type FileUnitOfWork struct {
	cfs *fs.ContentFS

	mu     sync.Mutex
	staged map[string][]byte // nil value stages a delete
	done   bool
}

// Write stages data for name.
func (u *FileUnitOfWork) Write(name string, data []byte) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.staged[name] = append([]byte{}, data...)
}

// Delete stages removal of name.
func (u *FileUnitOfWork) Delete(name string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.staged[name] = nil
}

// Read returns staged data for name, falling back to the filesystem.
func (u *FileUnitOfWork) Read(name string) ([]byte, error) {
	u.mu.Lock()
	data, ok := u.staged[name]
	u.mu.Unlock()
	if ok {
		if data == nil {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return data, nil
	}
	return u.cfs.ReadFile(name)
}

// Commit writes staged files through the temp directory and renames them
// into place, then applies deletes.
func (u *FileUnitOfWork) Commit() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return errors.New("file unit of work already completed")
	}
	u.done = true

	names := make([]string, 0, len(u.staged))
	for n := range u.staged {
		names = append(names, n)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		data := u.staged[name]
		if data == nil {
			if err := u.cfs.Remove(name); err != nil {
				errs = append(errs, fmt.Errorf("delete %s: %w", name, err))
			}
			continue
		}
		tmp := filepath.Join(fs.DirTemp, uuid.NewString())
		if err := u.cfs.WriteFile(tmp, data); err != nil {
			errs = append(errs, fmt.Errorf("stage %s: %w", name, err))
			continue
		}
		if err := u.cfs.Rename(tmp, name); err != nil {
			_ = u.cfs.Remove(tmp)
			errs = append(errs, fmt.Errorf("commit %s: %w", name, err))
		}
	}
	u.staged = nil
	return errors.Join(errs...)
}

// Rollback discards staged changes.
func (u *FileUnitOfWork) Rollback() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.done = true
	u.staged = nil
}

// FileUnitOfWorkProvider hands out file units of work over a content
// filesystem.
type FileUnitOfWorkProvider struct {
	cfs *fs.ContentFS
}

// NewFileUnitOfWorkProvider returns a provider over cfs.
func NewFileUnitOfWorkProvider(cfs *fs.ContentFS) *FileUnitOfWorkProvider {
	return &FileUnitOfWorkProvider{cfs: cfs}
}

// GetUnitOfWork starts an empty unit of work.
func (p *FileUnitOfWorkProvider) GetUnitOfWork() *FileUnitOfWork {
	return &FileUnitOfWork{cfs: p.cfs, staged: make(map[string][]byte)}
}

// FS returns the filesystem the provider writes to.
func (p *FileUnitOfWorkProvider) FS() *fs.ContentFS { return p.cfs }
