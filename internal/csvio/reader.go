// Package csvio converts catalog entities to and from CSV.
//
// Readers work one physical line at a time. They accept quoted fields
// containing the delimiter and skip blank lines, lines starting with '#', and
// a leading header row (English or Spanish). Quoted fields cannot span lines.
// Only the first three columns are read; anything after them is ignored.
package csvio

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"librarycatalog/internal/models"
)

const (
	requiredColumns = 3
	maxLineBytes    = 1024 * 1024
)

// Problem is a CSV row that could not be turned into an entity.
type Problem struct {
	Line int
	Err  error
}

func (p Problem) Error() string { return fmt.Sprintf("line %d: %v", p.Line, p.Err) }

func (p Problem) Unwrap() error { return p.Err }

// Reader parses book and user files.
//
// In strict mode the first malformed row aborts the read with a FormatError.
// Otherwise malformed rows are logged, skipped and reported as Problems.
type Reader struct {
	strict bool
	log    zerolog.Logger
}

func NewReader(strict bool, log zerolog.Logger) *Reader {
	return &Reader{strict: strict, log: log}
}

// ReadBooks parses ISBN,Title,Author rows. Imported books always start available.
func (r *Reader) ReadBooks(in io.Reader) ([]*models.Book, []Problem, error) {
	var books []*models.Book
	problems, err := r.read(in, "isbn", func(f []string) error {
		b, err := models.NewBook(f[0], f[1], f[2])
		if err != nil {
			return err
		}
		books = append(books, b)
		return nil
	})
	if err != nil {
		return nil, problems, err
	}
	return books, problems, nil
}

// ReadUsers parses ID,Name,Email rows.
func (r *Reader) ReadUsers(in io.Reader) ([]*models.User, []Problem, error) {
	var users []*models.User
	problems, err := r.read(in, "id", func(f []string) error {
		u, err := models.NewUser(f[0], f[1], f[2])
		if err != nil {
			return err
		}
		users = append(users, u)
		return nil
	})
	if err != nil {
		return nil, problems, err
	}
	return users, problems, nil
}

func (r *Reader) read(in io.Reader, headerKey string, build func([]string) error) ([]Problem, error) {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var problems []Problem
	first := true
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		record, err := parseLine(text)
		if err == nil {
			if first && isHeader(record, headerKey) {
				first = false
				continue
			}
			err = buildRecord(record, build)
		}
		first = false

		if err == nil {
			continue
		}
		p := Problem{Line: line, Err: err}
		if r.strict {
			return append(problems, p), p
		}
		r.log.Warn().Int("line", line).Err(err).Msg("ReadCSV: skipping malformed row")
		problems = append(problems, p)
	}
	if err := sc.Err(); err != nil {
		return problems, fmt.Errorf("%w: read csv: %w", models.ErrIO, err)
	}
	return problems, nil
}

// parseLine splits one physical line, so a broken quote only costs that line.
func parseLine(text string) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	record, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrFormat, err)
	}
	return record, nil
}

func buildRecord(record []string, build func([]string) error) error {
	if isBlank(record) {
		return nil
	}
	if len(record) < requiredColumns {
		return fmt.Errorf("%w: expected at least %d columns, got %d", models.ErrFormat, requiredColumns, len(record))
	}
	fields := make([]string, requiredColumns)
	for i := range fields {
		fields[i] = strings.TrimSpace(record[i])
	}
	if err := build(fields); err != nil {
		return fmt.Errorf("%w: %w", models.ErrFormat, err)
	}
	return nil
}

// isBlank catches lines such as ",," or whitespace-only rows.
func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

var headerAliases = map[string][]string{
	"isbn": {"isbn"},
	"id":   {"id", "userid", "user id", "id usuario"},
}

func isHeader(record []string, key string) bool {
	if len(record) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(record[0], "\ufeff")))
	for _, alias := range headerAliases[key] {
		if first == alias {
			return true
		}
	}
	return false
}
