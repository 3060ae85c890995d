// Package lease serializes sync runs per managed root.
//
// A Manager hands out at most one Lease per root. Leases are tracked in
// process and, when a lock directory is configured, mirrored by an O_EXCL
// lock file so a second comfydepot process is refused too. Different roots
// never contend.
package lease

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/danieljhkim/comfydepot/internal/clock"
	"github.com/google/uuid"
)

// ErrRunInProgress is returned when the root is already leased.
var ErrRunInProgress = errors.New("a sync run is already in progress")

// Lease is exclusive ownership of one managed root.
type Lease struct {
	ID         string
	Root       string
	AcquiredAt time.Time

	once    sync.Once
	release func()
}

// Release gives the root back. It is safe to call more than once.
func (l *Lease) Release() {
	l.once.Do(l.release)
}

// Manager issues leases.
type Manager struct {
	mu      sync.Mutex
	held    map[string]*Lease
	lockDir string
	clock   clock.Clock
}

// NewManager creates a Manager. An empty lockDir disables lock files.
func NewManager(lockDir string, c clock.Clock) *Manager {
	if c == nil {
		c = &clock.RealClock{}
	}
	return &Manager{held: make(map[string]*Lease), lockDir: lockDir, clock: c}
}

// Acquire leases root or fails with ErrRunInProgress.
func (m *Manager) Acquire(root string) (*Lease, error) {
	key, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	key = filepath.Clean(key)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, busy := m.held[key]; busy {
		return nil, fmt.Errorf("%s: %w", key, ErrRunInProgress)
	}

	l := &Lease{ID: uuid.NewString(), Root: key, AcquiredAt: m.clock.Now()}

	unlock := func() {}
	if m.lockDir != "" {
		unlock, err = m.lockFile(key, l.ID)
		if err != nil {
			return nil, err
		}
	}

	m.held[key] = l
	l.release = func() {
		unlock()
		m.mu.Lock()
		delete(m.held, key)
		m.mu.Unlock()
	}
	return l, nil
}

// Held reports whether root is currently leased by this Manager.
func (m *Manager) Held(root string) bool {
	key, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.held[filepath.Clean(key)]
	return ok
}

// LockPath returns the lock file used for root.
func (m *Manager) LockPath(root string) string {
	sum := sha256.Sum256([]byte(root))
	return filepath.Join(m.lockDir, "sync-"+hex.EncodeToString(sum[:8])+".lock")
}

func (m *Manager) lockFile(root, id string) (func(), error) {
	if err := os.MkdirAll(m.lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("prepare lock dir: %w", err)
	}
	lockPath := m.LockPath(root)
	content := fmt.Sprintf("%d\n%s\n%s\n", os.Getpid(), id, root)

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_, werr := f.WriteString(content)
			cerr := f.Close()
			if werr != nil || cerr != nil {
				_ = os.Remove(lockPath)
				return nil, fmt.Errorf("write lock: %w", errors.Join(werr, cerr))
			}
			return func() { _ = os.Remove(lockPath) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if !stale(lockPath) {
			break
		}
		_ = os.Remove(lockPath)
	}
	return nil, fmt.Errorf("%s (lock %s): %w", root, lockPath, ErrRunInProgress)
}

// stale reports whether the lock's owning process is gone.
func stale(lockPath string) bool {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return false
	}
	first, _, _ := strings.Cut(string(data), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil || pid <= 0 {
		return false
	}
	if pid == os.Getpid() {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return true
	}
	return errors.Is(proc.Signal(syscall.Signal(0)), os.ErrProcessDone)
}
