// Package lock provides the advisory lock that keeps monitoring cycles
// single-writer across processes.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrLocked is returned when another holder owns a live lock.
var ErrLocked = errors.New("lock held by another process")

// DefaultTTL is how long a lock survives a crashed holder.
const DefaultTTL = 1500 * time.Second

// Locker acquires an exclusive lock. The returned release is safe to call
// more than once.
type Locker interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// FileLock is a lock file containing the owner token. A lock file older than
// TTL is considered abandoned and taken over.
type FileLock struct {
	Path string
	TTL  time.Duration
	now  func() time.Time
	// beforeTakeover runs between the staleness check and the takeover.
	beforeTakeover func()
}

func NewFileLock(path string, ttl time.Duration) *FileLock {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &FileLock{Path: path, TTL: ttl, now: time.Now}
}

func (l *FileLock) Acquire(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(l.Path), 0755); err != nil {
		return nil, err
	}
	token := uuid.NewString()
	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(l.Path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			_, werr := f.WriteString(token)
			f.Close()
			if werr != nil {
				os.Remove(l.Path)
				return nil, werr
			}
			return l.releaser(token), nil
		}
		if !os.IsExist(err) {
			return nil, err
		}
		info, statErr := os.Stat(l.Path)
		if statErr != nil {
			// Removed between open and stat; retry.
			continue
		}
		if l.now().Sub(info.ModTime()) < l.TTL {
			return nil, fmt.Errorf("%s: %w", l.Path, ErrLocked)
		}
		if l.beforeTakeover != nil {
			l.beforeTakeover()
		}
		taken, err := l.takeOver(token)
		if err != nil {
			return nil, err
		}
		if !taken {
			return nil, fmt.Errorf("%s: %w", l.Path, ErrLocked)
		}
	}
	return nil, fmt.Errorf("%s: %w", l.Path, ErrLocked)
}

// takeOver moves the stale lock file aside under a private name and checks
// what was moved. If another contender replaced the stale file in the
// meantime, its live lock is linked back and takeOver reports false.
func (l *FileLock) takeOver(token string) (bool, error) {
	aside := l.Path + ".stale-" + token
	if err := os.Rename(l.Path, aside); err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	defer os.Remove(aside)
	info, err := os.Stat(aside)
	if err != nil {
		return false, err
	}
	if l.now().Sub(info.ModTime()) < l.TTL {
		// Link never overwrites, so a third holder created meanwhile is kept.
		_ = os.Link(aside, l.Path)
		return false, nil
	}
	return true, nil
}

func (l *FileLock) releaser(token string) func() {
	done := false
	return func() {
		if done {
			return
		}
		done = true
		data, err := os.ReadFile(l.Path)
		if err != nil || strings.TrimSpace(string(data)) != token {
			return
		}
		os.Remove(l.Path)
	}
}

// Nop never contends.
type Nop struct{}

func (Nop) Acquire(context.Context) (func(), error) { return func() {}, nil }
