package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"librarycatalog/internal/models"
)

var (
	bookHeader = []string{"ISBN", "Title", "Author", "Available"}
	userHeader = []string{"ID", "Name", "Email"}
	loanHeader = []string{"LoanID", "UserID", "UserName", "BookISBN", "BookTitle", "LoanDate", "DueDate", "ReturnDate", "Status"}
)

// Writer emits a header row followed by one row per entity.
type Writer struct {
	cw *csv.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{cw: csv.NewWriter(w)}
}

func (w *Writer) WriteBooks(books []*models.Book) error {
	rows := make([][]string, 0, len(books)+1)
	rows = append(rows, bookHeader)
	for _, b := range books {
		rows = append(rows, []string{b.ISBN(), b.Title(), b.Author(), strconv.FormatBool(b.Available())})
	}
	return w.flush(rows)
}

func (w *Writer) WriteUsers(users []*models.User) error {
	rows := make([][]string, 0, len(users)+1)
	rows = append(rows, userHeader)
	for _, u := range users {
		rows = append(rows, []string{u.ID(), u.Name(), u.Email()})
	}
	return w.flush(rows)
}

// WriteLoans uses now to decide between ACTIVE and OVERDUE.
func (w *Writer) WriteLoans(loans []*models.Loan, now time.Time) error {
	rows := make([][]string, 0, len(loans)+1)
	rows = append(rows, loanHeader)
	for _, l := range loans {
		returned := ""
		if rd := l.ReturnDate(); rd != nil {
			returned = rd.Format(models.DateLayout)
		}
		rows = append(rows, []string{
			l.ID(),
			l.User().ID(),
			l.User().Name(),
			l.Book().ISBN(),
			l.Book().Title(),
			l.LoanDate().Format(models.DateLayout),
			l.DueDate().Format(models.DateLayout),
			returned,
			string(l.Status(now)),
		})
	}
	return w.flush(rows)
}

func (w *Writer) flush(rows [][]string) error {
	if err := w.cw.WriteAll(rows); err != nil {
		return fmt.Errorf("%w: write csv: %w", models.ErrIO, err)
	}
	return nil
}
