package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"librarycatalog/internal/models"
)

// Option configures a LibraryService.
type Option func(*libraryService)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(s *libraryService) {
		s.log = log
	}
}

// WithClock replaces time.Now, mostly so tests can move the calendar.
func WithClock(now func() time.Time) Option {
	return func(s *libraryService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDefaultLoanDays sets the period used by LoanBook. Values outside 1..365
// are ignored.
func WithDefaultLoanDays(days int) Option {
	return func(s *libraryService) {
		if days > 0 && days <= 365 {
			s.defaultLoanDays = days
		}
	}
}

// WithFinePerDay sets the rate used for accrued fines in statistics.
func WithFinePerDay(rate decimal.Decimal) Option {
	return func(s *libraryService) {
		if !rate.IsNegative() {
			s.finePerDay = rate
		}
	}
}

// WithLoanIDGenerator replaces the UUID-based loan ID source.
func WithLoanIDGenerator(next func() string) Option {
	return func(s *libraryService) {
		if next != nil {
			s.nextLoanID = next
		}
	}
}

func defaultOptions(s *libraryService) {
	s.log = zerolog.Nop()
	s.now = time.Now
	s.defaultLoanDays = models.DefaultLoanDays
	s.finePerDay = decimal.Zero
	s.nextLoanID = uuid.NewString
}
