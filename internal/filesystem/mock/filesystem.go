package mock

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/jabl/fancyquota/internal/filesystem"
	"github.com/sirupsen/logrus"
)

// MockFilesystem answers from in-memory maps keyed by path.
type MockFilesystem struct {
	Stats map[string]filesystem.CapacityStatistics
	// Unreadable paths fail the permission check, everything else is readable.
	Unreadable map[string]bool
	Groups     map[string]int

	mu      sync.Mutex
	visited []string
	log     *logrus.Logger
}

func NewFilesystem(log *logrus.Logger) *MockFilesystem {
	return &MockFilesystem{
		Stats:      make(map[string]filesystem.CapacityStatistics),
		Unreadable: make(map[string]bool),
		Groups:     make(map[string]int),
		log:        log,
	}
}

func (m *MockFilesystem) Statistics(path string) (filesystem.CapacityStatistics, error) {
	s, ok := m.Stats[path]
	if !ok {
		m.log.Debugf("Mock Statistics(%s) -> not found", path)
		return s, fmt.Errorf("statfs %s: %w", path, os.ErrNotExist)
	}
	m.log.Debugf("Mock Statistics(%s) -> %+v", path, s)
	return s, nil
}

func (m *MockFilesystem) Readable(path string) bool {
	m.log.Debugf("Mock Readable(%s) -> %t", path, !m.Unreadable[path])
	return !m.Unreadable[path]
}

func (m *MockFilesystem) OwnerGroup(path string) (int, error) {
	gid, ok := m.Groups[path]
	if !ok {
		m.log.Debugf("Mock OwnerGroup(%s) -> not found", path)
		return 0, fmt.Errorf("stat %s: %w", path, os.ErrNotExist)
	}
	m.log.Debugf("Mock OwnerGroup(%s) -> %d", path, gid)
	return gid, nil
}

func (m *MockFilesystem) Visit(ctx context.Context, dirs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log.Debugf("Mock Visit(%v) -> nil", dirs)
	m.visited = append(m.visited, dirs...)
	return nil
}

// Visited returns every directory passed to Visit.
func (m *MockFilesystem) Visited() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.visited...)
}
