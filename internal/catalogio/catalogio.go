// Package catalogio reads and writes prefix catalog files. Two formats are
// supported: line oriented CSV ("prefix,model" where the model is everything
// after the first comma) and a YAML list of {prefix, model} mappings.
package catalogio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/haukened/imeigen/internal/app"
	"github.com/haukened/imeigen/internal/domain"
)

// Format identifies a catalog file encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned for an unsupported format name or extension.
var ErrUnknownFormat = errors.New("unknown catalog format")

// ParseFormat maps a user supplied name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv", "":
		return FormatCSV, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatFor picks the format from a file extension. Anything that is not
// .yaml or .yml is read as CSV.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatCSV
}

// Read decodes r in format f.
func Read(r io.Reader, f Format) ([]app.ImportLine, error) {
	switch f {
	case FormatCSV:
		return ReadCSV(r)
	case FormatYAML:
		return ReadYAML(r)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// Write encodes recs to w in format f.
func Write(w io.Writer, f Format, recs []domain.PrefixRecord) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, recs)
	case FormatYAML:
		return WriteYAML(w, recs)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// ReadFile opens path and decodes it using the format implied by its extension.
func ReadFile(path string) ([]app.ImportLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	lines, err := Read(f, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lines, nil
}

// Expand resolves each argument as a doublestar pattern ("imports/**/*.csv").
// Plain paths are returned as given so a missing file still surfaces as an open
// error. The result is de-duplicated and sorted per pattern.
func Expand(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range patterns {
		if !hasMeta(p) {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				out = append(out, p)
			}
			continue
		}
		if !doublestar.ValidatePathPattern(p) {
			return nil, fmt.Errorf("invalid pattern %q", p)
		}
		matches, err := doublestar.FilepathGlob(p, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", p, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("pattern %q matched no files", p)
		}
		sort.Strings(matches)
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out, nil
}

func hasMeta(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}
