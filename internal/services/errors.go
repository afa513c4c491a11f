package services

import (
	"fmt"

	"librarycatalog/internal/models"
)

// ─── Sentinel Errors ──────────────────────────────────────────────────────────

var (
	// ErrBookNotFound is returned when no book has the requested ISBN.
	ErrBookNotFound = models.NewKindError("book not found", models.ErrNotFound)

	// ErrUserNotFound is returned when no user has the requested ID.
	ErrUserNotFound = models.NewKindError("user not found", models.ErrNotFound)

	// ErrLoanNotFound is returned when no loan has the requested ID.
	ErrLoanNotFound = models.NewKindError("loan not found", models.ErrNotFound)

	// ErrBookExists is returned when a book with the same ISBN is already catalogued.
	ErrBookExists = models.NewKindError("book already exists", models.ErrDuplicate)

	// ErrUserAlreadyExists is returned when the user ID is taken.
	ErrUserAlreadyExists = models.NewKindError("user already exists", models.ErrDuplicate)

	// ErrBookOnLoan is returned when removing a book that is currently lent out.
	ErrBookOnLoan = models.NewKindError("book is on loan", models.ErrConflict)

	// ErrUserHasActiveLoans is returned when removing a user who still holds books.
	ErrUserHasActiveLoans = models.NewKindError("user has active loans", models.ErrConflict)

	// ErrBookAlreadyLoaned is the target of every BookAlreadyLoanedError.
	ErrBookAlreadyLoaned = models.NewKindError("book already loaned", models.ErrConflict)

	// ErrLoanAlreadyReturned is returned when a loan is returned a second time.
	ErrLoanAlreadyReturned = models.NewKindError("loan already returned", models.ErrInvalidArgument)
)

// BookAlreadyLoanedError names the book and the user currently holding it.
type BookAlreadyLoanedError struct {
	ISBN       string
	BorrowerID string
}

func (e *BookAlreadyLoanedError) Error() string {
	if e.BorrowerID == "" {
		return fmt.Sprintf("book %q is already on loan", e.ISBN)
	}
	return fmt.Sprintf("book %q is already on loan to user %q", e.ISBN, e.BorrowerID)
}

func (e *BookAlreadyLoanedError) Unwrap() error { return ErrBookAlreadyLoaned }
