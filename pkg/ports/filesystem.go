package ports

import "io"

// File is an open media file.
type File interface {
	io.ReadSeeker
	io.Closer
}

// FileSystem abstracts file system operations.
type FileSystem interface {
	// Open opens a file for reading. A missing file yields an error
	// satisfying errors.Is(err, fs.ErrNotExist).
	Open(path string) (File, error)

	// WriteFile writes data to a file, creating it if necessary.
	WriteFile(path string, data []byte) error

	// MkdirAll creates a directory and all parent directories.
	MkdirAll(path string) error

	// Exists checks if a file or directory exists.
	Exists(path string) (bool, error)
}
