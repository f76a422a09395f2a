package catalogio

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/haukened/imeigen/internal/app"
	"github.com/haukened/imeigen/internal/domain"
)

const maxLineBytes = 64 * 1024

// ReadCSV splits each non-blank, non-comment line at its first comma. A line
// without a comma yields an ImportLine with an empty model, which the import
// reports as malformed. Numbers are physical line numbers.
func ReadCSV(r io.Reader) ([]app.ImportLine, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineBytes)
	var out []app.ImportLine
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimRight(sc.Text(), "\r")
		if n == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		prefix, model, _ := strings.Cut(line, ",")
		out = append(out, app.ImportLine{Number: n, Prefix: prefix, Model: model})
	}
	if err := sc.Err(); err != nil {
		return out, fmt.Errorf("line %d: %w", n+1, err)
	}
	return out, nil
}

// WriteCSV writes one "prefix,model" line per record behind a comment header,
// so the output can be fed back to ReadCSV unchanged.
func WriteCSV(w io.Writer, recs []domain.PrefixRecord) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("# prefix,model\n"); err != nil {
		return err
	}
	for _, r := range recs {
		if _, err := fmt.Fprintf(bw, "%s,%s\n", r.Prefix, r.Model); err != nil {
			return err
		}
	}
	return bw.Flush()
}
