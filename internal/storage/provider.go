// Package storage defines the workspace file-system abstraction.
package storage

import "time"

// FileMeta is a lightweight description of one file found under the
// workspace, with its path relative to the workspace root.
type FileMeta struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Provider is the interface for workspace file operations. All paths are
// relative to the workspace root.
type Provider interface {
	// List walks dir and returns metadata for every file whose name ends
	// with ext.
	List(dir, ext string) ([]FileMeta, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent
	// directories as needed.
	Write(path string, content []byte) error
	// Root returns the absolute workspace root.
	Root() string
}
