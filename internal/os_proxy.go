package internal

import (
	"os"
)

// OsProxy defines the subset of os package functions the scratch cleaner touches.
type OsProxy interface {
	Stat(name string) (os.FileInfo, error)
	MkdirAll(path string, perm os.FileMode) error
	ReadDir(name string) ([]os.DirEntry, error)
	RemoveAll(path string) error
}

// RealOS is the default implementation that delegates to the real os package.
type RealOS struct{}

func (RealOS) Stat(name string) (os.FileInfo, error)        { return os.Stat(name) }           //nolint:revive
func (RealOS) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) } //nolint:revive
func (RealOS) ReadDir(name string) ([]os.DirEntry, error)   { return os.ReadDir(name) }        //nolint:revive
func (RealOS) RemoveAll(path string) error                  { return os.RemoveAll(path) }      //nolint:revive
