package testing

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// DirChecker collects expectations about the entries of a directory.
type DirChecker struct {
	Dir    string
	Checks []func(dir string) error
}

// NewDirChecker creates a DirChecker for the given directory.
func NewDirChecker(dir string) *DirChecker {
	return &DirChecker{Dir: dir}
}

// Check runs every check and returns all failures at once.
func (dc *DirChecker) Check() error {
	errs := MultiError{}
	for _, check := range dc.Checks {
		AppendErr(&errs, check(dc.Dir))
	}

	if len(errs) == 0 {
		return nil
	}

	return errs
}

// IsDir expects dir itself to be a directory.
func (dc *DirChecker) IsDir() *DirChecker {
	dc.Checks = append(dc.Checks, func(dir string) error {
		info, err := os.Stat(dir)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("expected directory but not a directory: %s", dir)
		}
		return nil
	})
	return dc
}

// Entries expects the immediate entries of dir to be exactly names.
func (dc *DirChecker) Entries(names ...string) *DirChecker {
	dc.Checks = append(dc.Checks, func(dir string) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}

		want := map[string]bool{}
		for _, name := range names {
			want[name] = true
		}

		errs := MultiError{}
		for _, entry := range entries {
			if !want[entry.Name()] {
				AppendErr(&errs, fmt.Errorf("unexpected entry in %s: %s", dir, entry.Name()))
			}
			delete(want, entry.Name())
		}
		for name := range want {
			AppendErr(&errs, fmt.Errorf("missing entry in %s: %s", dir, name))
		}

		if len(errs) == 0 {
			return nil
		}
		return errs
	})
	return dc
}

// Content expects dir/name to be a file holding content.
func (dc *DirChecker) Content(name, content string) *DirChecker {
	dc.Checks = append(dc.Checks, func(dir string) error {
		b, err := fs.ReadFile(os.DirFS(dir), name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("file does not exist: %s/%s", dir, name)
			}
			return err
		}
		if got := string(b); got != content {
			return fmt.Errorf("file %s/%s content mismatch\nwant:\n%q\n\ngot:\n%q", dir, name, content, got)
		}
		return nil
	})
	return dc
}
