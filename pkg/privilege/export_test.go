package privilege

import "time"

// SetNowFunc overrides the manager clock for tests.
func (m *Manager) SetNowFunc(f func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nowFunc = f
}
