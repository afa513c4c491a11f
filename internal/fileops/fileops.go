// Package fileops moves catalog data between the library service and files.
package fileops

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"librarycatalog/internal/csvio"
	"librarycatalog/internal/models"
	"librarycatalog/internal/services"
	"librarycatalog/internal/validation"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ImportResult summarises one import run.
type ImportResult struct {
	Imported   int
	Duplicates int
	Errors     int
	Problems   []error
}

func (r ImportResult) String() string {
	return fmt.Sprintf("imported=%d duplicates=%d errors=%d", r.Imported, r.Duplicates, r.Errors)
}

// Report is the JSON document written by ExportReport.
type Report struct {
	GeneratedAt  time.Time           `json:"generated_at"`
	FinePerDay   string              `json:"fine_per_day"`
	Statistics   services.Statistics `json:"statistics"`
	OverdueLoans []OverdueEntry      `json:"overdue_loans"`
}

type OverdueEntry struct {
	LoanID      string `json:"loan_id"`
	UserID      string `json:"user_id"`
	ISBN        string `json:"isbn"`
	DueDate     string `json:"due_date"`
	DaysOverdue int    `json:"days_overdue"`
	Fine        string `json:"fine"`
}

type Service struct {
	library services.LibraryService
	reader  *csvio.Reader
	log     zerolog.Logger
}

func NewService(library services.LibraryService, strictCSV bool, log zerolog.Logger) *Service {
	return &Service{
		library: library,
		reader:  csvio.NewReader(strictCSV, log),
		log:     log,
	}
}

// ─── Import ───────────────────────────────────────────────────────────────────

// ImportBooks adds every valid row of path to the catalog. Duplicate and
// invalid records are skipped and counted; only an unreadable file (or a bad
// row in strict mode) aborts the run.
func (s *Service) ImportBooks(path string) (ImportResult, error) {
	var res ImportResult
	err := s.withInput(path, func(in io.Reader) error {
		books, problems, err := s.reader.ReadBooks(in)
		if err != nil {
			return err
		}
		res.addProblems(problems)
		for _, b := range books {
			res.record(b.ISBN(), s.library.AddBook(b))
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	s.log.Info().Str("path", path).Stringer("result", res).Msg("ImportBooks: done")
	return res, nil
}

func (s *Service) ImportUsers(path string) (ImportResult, error) {
	var res ImportResult
	err := s.withInput(path, func(in io.Reader) error {
		users, problems, err := s.reader.ReadUsers(in)
		if err != nil {
			return err
		}
		res.addProblems(problems)
		for _, u := range users {
			res.record(u.ID(), s.library.AddUser(u))
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	s.log.Info().Str("path", path).Stringer("result", res).Msg("ImportUsers: done")
	return res, nil
}

func (r *ImportResult) addProblems(problems []csvio.Problem) {
	for _, p := range problems {
		r.Errors++
		r.Problems = append(r.Problems, p)
	}
}

func (r *ImportResult) record(key string, err error) {
	switch {
	case err == nil:
		r.Imported++
	case errors.Is(err, models.ErrDuplicate):
		r.Duplicates++
		r.Problems = append(r.Problems, fmt.Errorf("%s: %w", key, err))
	default:
		r.Errors++
		r.Problems = append(r.Problems, fmt.Errorf("%s: %w", key, err))
	}
}

func (s *Service) withInput(path string, fn func(io.Reader) error) error {
	if !validation.IsValidCSVFileName(path) {
		return fmt.Errorf("%w: invalid csv file name %q", models.ErrInvalidArgument, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", models.ErrIO, path, err)
	}
	defer f.Close()
	return fn(f)
}

// ─── Export ───────────────────────────────────────────────────────────────────

func (s *Service) ExportBooks(path string) error {
	books := s.library.GetAllBooks()
	if err := s.withOutput(path, ".csv", func(w io.Writer) error {
		return csvio.NewWriter(w).WriteBooks(books)
	}); err != nil {
		return err
	}
	s.log.Info().Str("path", path).Int("count", len(books)).Msg("ExportBooks: done")
	return nil
}

func (s *Service) ExportUsers(path string) error {
	users := s.library.GetAllUsers()
	if err := s.withOutput(path, ".csv", func(w io.Writer) error {
		return csvio.NewWriter(w).WriteUsers(users)
	}); err != nil {
		return err
	}
	s.log.Info().Str("path", path).Int("count", len(users)).Msg("ExportUsers: done")
	return nil
}

// ExportLoans writes the whole loan log, active and returned.
func (s *Service) ExportLoans(path string) error {
	loans := s.library.GetAllLoans()
	if err := s.withOutput(path, ".csv", func(w io.Writer) error {
		return csvio.NewWriter(w).WriteLoans(loans, s.library.Now())
	}); err != nil {
		return err
	}
	s.log.Info().Str("path", path).Int("count", len(loans)).Msg("ExportLoans: done")
	return nil
}

// ExportReport writes the current statistics and the overdue list as JSON.
func (s *Service) ExportReport(path string) error {
	report := s.BuildReport()
	if err := s.withOutput(path, ".json", func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("%w: encode report: %w", models.ErrIO, err)
		}
		return nil
	}); err != nil {
		return err
	}
	s.log.Info().Str("path", path).Int("overdue", len(report.OverdueLoans)).Msg("ExportReport: done")
	return nil
}

// BuildReport assembles the document ExportReport writes.
func (s *Service) BuildReport() Report {
	now := s.library.Now()
	rate := s.library.FinePerDay()
	overdue := s.library.GetOverdueLoans()

	entries := make([]OverdueEntry, 0, len(overdue))
	for _, l := range overdue {
		entries = append(entries, OverdueEntry{
			LoanID:      l.ID(),
			UserID:      l.User().ID(),
			ISBN:        l.Book().ISBN(),
			DueDate:     l.DueDate().Format(models.DateLayout),
			DaysOverdue: l.DaysOverdue(now),
			Fine:        l.Fine(now, rate).StringFixed(2),
		})
	}
	return Report{
		GeneratedAt:  now,
		FinePerDay:   rate.StringFixed(2),
		Statistics:   s.library.GetSystemStatistics(),
		OverdueLoans: entries,
	}
}

func (s *Service) withOutput(path, ext string, fn func(io.Writer) error) error {
	if !validation.IsValidFileName(path, ext) {
		return fmt.Errorf("%w: invalid %s file name %q", models.ErrInvalidArgument, ext, path)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", models.ErrIO, path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", models.ErrIO, path, err)
	}
	return nil
}
