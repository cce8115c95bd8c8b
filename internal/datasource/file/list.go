package file

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pdsreader/internal/datasource/httpds"
)

// ReadList reads a text file line by line and returns a slice of strings
// containing non-empty, non-comment lines.
//
// Lines that are empty or start with '#' (after trimming leading/trailing
// whitespace) are skipped. The order of lines is preserved.
func ReadList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListedFiles reads a list of data files. http(s) URLs are kept as they
// are; other relative entries are resolved against root and must name an
// existing regular file. An empty list is reported as ErrNoMatchingFiles.
func ListedFiles(root, listPath string) ([]string, error) {
	lines, err := ReadList(listPath)
	if err != nil {
		return nil, fmt.Errorf("read file list: %w", err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: list %s is empty", ErrNoMatchingFiles, listPath)
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		if httpds.IsURL(l) {
			out[i] = l
			continue
		}
		if !filepath.IsAbs(l) {
			l = filepath.Join(root, l)
		}
		if !isRegular(l) {
			return nil, fmt.Errorf("file list %s: %s is not a regular file", listPath, l)
		}
		out[i] = l
	}
	return out, nil
}
