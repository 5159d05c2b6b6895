// Package scratch keeps the working directory of an upload run empty.
package scratch

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/reelforge/go-uploadutils/internal"
)

const dirPerm = 0o755

// Cleaner empties scratch directories.
type Cleaner struct {
	keep    []string
	osProxy internal.OsProxy
	logger  log.Logger
}

// NewCleaner returns a Cleaner sparing the entries matching any of the keep patterns.
// Patterns use doublestar syntax and are matched against entry names.
func NewCleaner(logger log.Logger, keep ...string) (*Cleaner, error) {
	for _, pattern := range keep {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid keep pattern: %s", pattern)
		}
	}

	return &Cleaner{
		keep:    keep,
		osProxy: internal.RealOS{},
		logger:  logger,
	}, nil
}

// Clean creates dir if it does not exist, otherwise removes every entry of it.
func (c *Cleaner) Clean(dir string) error {
	info, err := c.osProxy.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		if err := c.osProxy.MkdirAll(dir, dirPerm); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
		c.logger.Donef("Created %s directory", dir)
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	entries, err := c.osProxy.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("list %s: %w", dir, err)
	}

	removed := 0
	for _, entry := range entries {
		if c.kept(entry.Name()) {
			c.logger.Debugf("Keeping %s", entry.Name())
			continue
		}

		pth := filepath.Join(dir, entry.Name())
		if err := c.osProxy.RemoveAll(pth); err != nil {
			return fmt.Errorf("remove %s: %w", pth, err)
		}
		removed++
	}

	c.logger.Donef("Cleaned %s directory (%d entries removed)", dir, removed)
	return nil
}

func (c *Cleaner) kept(name string) bool {
	for _, pattern := range c.keep {
		if match, _ := doublestar.Match(pattern, name); match {
			return true
		}
	}
	return false
}
