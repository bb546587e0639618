package file

// WithAfterLocate runs fn after the path check of Save and Open, before the
// file is touched.
func WithAfterLocate(fn func()) LocalOption {
	return func(s *LocalStorage) {
		s.afterLocate = fn
	}
}
