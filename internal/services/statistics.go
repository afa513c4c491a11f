package services

import (
	"github.com/shopspring/decimal"
)

// Statistics is a point-in-time summary of the catalog.
type Statistics struct {
	TotalBooks     int             `json:"total_books"`
	AvailableBooks int             `json:"available_books"`
	LoanedBooks    int             `json:"loaned_books"`
	TotalUsers     int             `json:"total_users"`
	TotalLoans     int             `json:"total_loans"`
	ActiveLoans    int             `json:"active_loans"`
	OverdueLoans   int             `json:"overdue_loans"`
	AccruedFines   decimal.Decimal `json:"accrued_fines"`
}

// GetSystemStatistics derives every count from current state; it mutates nothing.
func (s *libraryService) GetSystemStatistics() Statistics {
	now := s.now()
	available := len(s.GetAvailableBooks())
	overdue := s.GetOverdueLoans()

	fines := decimal.Zero
	for _, l := range overdue {
		fines = fines.Add(l.Fine(now, s.finePerDay))
	}

	return Statistics{
		TotalBooks:     len(s.books),
		AvailableBooks: available,
		LoanedBooks:    len(s.books) - available,
		TotalUsers:     len(s.users),
		TotalLoans:     len(s.loans),
		ActiveLoans:    len(s.GetActiveLoans()),
		OverdueLoans:   len(overdue),
		AccruedFines:   fines,
	}
}
