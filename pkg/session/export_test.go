package session

import "time"

// SetNowFunc overrides the session clock for tests.
func (s *Session) SetNowFunc(f func() time.Time) { s.nowFunc = f }
