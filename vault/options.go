package vault

import "log/slog"

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for operation tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRootDir sets the parent directory the temporary root is created in.
// The default is the system temp directory.
func WithRootDir(parent string) Option {
	return func(s *Store) {
		s.parent = parent
	}
}

// WithInstrumentation wraps the storage backend so backend operations are
// recorded under the given backend name.
func WithInstrumentation(name string) Option {
	return func(s *Store) {
		s.instrument = name
	}
}

// WithRemoveOnDelete controls whether Delete unlinks the backing file.
// When false, files stay on disk until the store is closed.
func WithRemoveOnDelete(remove bool) Option {
	return func(s *Store) {
		s.removeOnDelete = remove
	}
}
