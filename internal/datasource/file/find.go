package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var (
	// ErrDescriptorNotFound is returned when a descriptor is neither an
	// existing path nor the name of a file below the search root.
	ErrDescriptorNotFound = errors.New("descriptor not found")

	// ErrNoMatchingFiles is returned when no data file matches the pattern.
	ErrNoMatchingFiles = errors.New("no matching files")
)

// FindDescriptor resolves the descriptor to read. An existing file path is
// returned unchanged; otherwise root is searched recursively for a file whose
// base name equals name, first exactly and then ignoring case. The first
// match in lexical walk order wins.
func FindDescriptor(root, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrDescriptorNotFound)
	}
	if isRegular(name) {
		return name, nil
	}
	base := filepath.Base(name)

	var exact, folded string
	err := walkFiles(root, nil, func(path string) bool {
		b := filepath.Base(path)
		if b == base {
			exact = path
			return false
		}
		if folded == "" && strings.EqualFold(b, base) {
			folded = path
		}
		return true
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDescriptorNotFound, err)
	}
	switch {
	case exact != "":
		return exact, nil
	case folded != "":
		return folded, nil
	}
	return "", fmt.Errorf("%w: %s under %s", ErrDescriptorNotFound, name, root)
}

// Glob returns every regular file below root whose base name matches
// pattern, sorted lexically by path. Only '*' is a wildcard; every other
// character matches itself. Directories listed in skip are not descended
// into, so converted outputs kept under root are never matched.
func Glob(root, pattern string, skip ...string) ([]string, error) {
	re, err := wildcard(pattern)
	if err != nil {
		return nil, err
	}
	var out []string
	err = walkFiles(root, skip, func(path string) bool {
		if re.MatchString(filepath.Base(path)) {
			out = append(out, path)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %q under %s", ErrNoMatchingFiles, pattern, root)
	}
	sort.Strings(out)
	return out, nil
}

// wildcard compiles a '*'-only pattern into an anchored regular expression.
func wildcard(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, fmt.Errorf("empty file pattern")
	}
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.Compile("^" + strings.Join(parts, ".*") + "$")
}

// walkFiles calls visit for every regular file below root in walk order
// until visit returns false. Directories in skip are pruned.
func walkFiles(root string, skip []string, visit func(path string) bool) error {
	pruned := make(map[string]bool, len(skip))
	for _, dir := range skip {
		if dir != "" {
			pruned[absPath(dir)] = true
		}
	}
	stop := errors.New("stop")
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && pruned[absPath(path)] {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !visit(path) {
			return stop
		}
		return nil
	})
	if err != nil && !errors.Is(err, stop) {
		return fmt.Errorf("walk %s: %w", root, err)
	}
	return nil
}

// absPath returns the cleaned absolute form of p, or p cleaned when it
// cannot be made absolute.
func absPath(p string) string {
	if a, err := filepath.Abs(p); err == nil {
		return a
	}
	return filepath.Clean(p)
}

func isRegular(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
