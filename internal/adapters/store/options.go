package store

import "os"

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithFileMode sets the mode for created artifact files.
func WithFileMode(mode os.FileMode) Option {
	return func(s *Store) {
		if mode != 0 {
			s.fileMode = mode
		}
	}
}

// WithDirMode sets the mode for created directories.
func WithDirMode(mode os.FileMode) Option {
	return func(s *Store) {
		if mode != 0 {
			s.dirMode = mode
		}
	}
}
