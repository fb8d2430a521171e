package repository

import "github.com/google/uuid"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMaxSessions caps the number of stored sessions. Zero or less means
// unlimited.
func WithMaxSessions(n int) Option {
	return func(s *MemoryStore) {
		s.maxSessions = n
	}
}

// WithIDGenerator overrides how ids are assigned.
func WithIDGenerator(gen func() string) Option {
	return func(s *MemoryStore) {
		if gen != nil {
			s.newID = gen
		}
	}
}

func defaultID() string { return uuid.NewString() }
