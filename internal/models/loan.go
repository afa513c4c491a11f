package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"librarycatalog/internal/validation"
)

// DefaultLoanDays is the loan period used when the caller does not pick one.
const DefaultLoanDays = 14

// DateLayout is how loan dates are shown and exported (dd/MM/yyyy).
const DateLayout = "02/01/2006"

type LoanStatus string

const (
	LoanStatusActive   LoanStatus = "ACTIVE"
	LoanStatusOverdue  LoanStatus = "OVERDUE"
	LoanStatusReturned LoanStatus = "RETURNED"
)

// Loan joins a User and a Book for a period of whole days.
//
// A Loan starts ACTIVE and becomes RETURNED exactly once. Creating it marks the
// book unavailable; returning it marks the book available again.
type Loan struct {
	id         string
	user       *User
	book       *Book
	loanDate   time.Time
	dueDate    time.Time
	returnDate *time.Time
}

// NewLoan lends book to user starting on the calendar day of now.
func NewLoan(id string, user *User, book *Book, now time.Time, loanDays int) (*Loan, error) {
	if !validation.IsNotEmpty(id) {
		return nil, fmt.Errorf("%w: loan id must not be empty", ErrInvalidArgument)
	}
	if user == nil || book == nil {
		return nil, fmt.Errorf("%w: loan needs both a user and a book", ErrInvalidArgument)
	}
	if !validation.IsValidLoanDays(loanDays) {
		return nil, fmt.Errorf("%w: invalid loan days %d (must be 1..%d)", ErrInvalidArgument, loanDays, validation.MaxLoanDays)
	}

	loanDate := Date(now)
	l := &Loan{
		id:       id,
		user:     user,
		book:     book,
		loanDate: loanDate,
		dueDate:  loanDate.AddDate(0, 0, loanDays),
	}
	book.available = false
	return l, nil
}

func (l *Loan) ID() string { return l.id }
func (l *Loan) User() *User { return l.user }
func (l *Loan) Book() *Book { return l.book }
func (l *Loan) LoanDate() time.Time { return l.loanDate }
func (l *Loan) DueDate() time.Time { return l.dueDate }
func (l *Loan) ReturnDate() *time.Time { return l.returnDate }
func (l *Loan) Active() bool { return l.returnDate == nil }

// Return closes the loan on the calendar day of now and frees the book.
func (l *Loan) Return(now time.Time) error {
	if !l.Active() {
		return fmt.Errorf("%w: loan %q was already returned", ErrInvalidArgument, l.id)
	}
	returned := Date(now)
	l.returnDate = &returned
	l.book.available = true
	return nil
}

// IsOverdue reports whether the loan is still active after its due date.
func (l *Loan) IsOverdue(now time.Time) bool {
	return l.Active() && Date(now).After(l.dueDate)
}

// DaysOverdue is the number of whole days past the due date, or 0.
func (l *Loan) DaysOverdue(now time.Time) int {
	if !l.IsOverdue(now) {
		return 0
	}
	return DaysBetween(l.dueDate, now)
}

// Fine is DaysOverdue multiplied by perDay.
func (l *Loan) Fine(now time.Time, perDay decimal.Decimal) decimal.Decimal {
	return perDay.Mul(decimal.NewFromInt(int64(l.DaysOverdue(now))))
}

func (l *Loan) Status(now time.Time) LoanStatus {
	switch {
	case !l.Active():
		return LoanStatusReturned
	case l.IsOverdue(now):
		return LoanStatusOverdue
	default:
		return LoanStatusActive
	}
}

func (l *Loan) String() string {
	returned := "-"
	if l.returnDate != nil {
		returned = l.returnDate.Format(DateLayout)
	}
	return fmt.Sprintf("Loan{ID=%q, User=%q, Book=%q, LoanDate=%s, DueDate=%s, ReturnDate=%s, Active=%t}",
		l.id, l.user.id, l.book.isbn,
		l.loanDate.Format(DateLayout), l.dueDate.Format(DateLayout), returned, l.Active())
}

// Date truncates t to midnight of its calendar day in t's location.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween counts calendar days from a to b, ignoring clock time and DST.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}
