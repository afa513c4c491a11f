// Package archive copies a snapshot of the in-memory catalog into a SQL
// database. The catalog is never reloaded from it; archived loans can be read
// back as history.
package archive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"librarycatalog/internal/models"
	"librarycatalog/internal/repositories"
	"librarycatalog/internal/services"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the archive database and prepares its tables.
func Open(driver, dsn string) (*gorm.DB, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: unsupported archive driver %q", models.ErrInvalidArgument, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s archive: %w", models.ErrIO, driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: get generic DB: %w", models.ErrIO, err)
	}
	if driver == DriverSQLite {
		// one connection keeps an in-memory database alive and avoids SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := repositories.Migrate(db); err != nil {
		return nil, fmt.Errorf("%w: migrate archive: %w", models.ErrIO, err)
	}
	return db, nil
}

// Close releases the pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Summary reports what one Export wrote. The Stored counts are read back from
// the archive after the write and include rows left by earlier exports.
type Summary struct {
	Books       int
	Users       int
	Loans       int
	StoredBooks int
	StoredUsers int
	StoredLoans int
	ExportedAt  time.Time
}

func (s Summary) String() string {
	return fmt.Sprintf("%d books, %d users, %d loans at %s",
		s.Books, s.Users, s.Loans, s.ExportedAt.Format(time.RFC3339))
}

type Exporter struct {
	db      *gorm.DB
	library services.LibraryService
	books   repositories.BookRepository
	users   repositories.UserRepository
	loans   repositories.LoanRepository
	log     zerolog.Logger
}

func NewExporter(db *gorm.DB, library services.LibraryService, log zerolog.Logger) *Exporter {
	return &Exporter{
		db:      db,
		library: library,
		books:   repositories.NewBookRepository(db),
		users:   repositories.NewUserRepository(db),
		loans:   repositories.NewLoanRepository(db),
		log:     log,
	}
}

// Export upserts every book, user and loan in a single transaction. Rows that
// exist from an earlier export are overwritten; rows for entities removed
// since then are left alone.
func (e *Exporter) Export(ctx context.Context) (Summary, error) {
	at := e.library.Now()

	books := e.library.GetAllBooks()
	bookRows := make([]repositories.BookRecord, 0, len(books))
	for _, b := range books {
		bookRows = append(bookRows, repositories.NewBookRecord(b, at))
	}
	users := e.library.GetAllUsers()
	userRows := make([]repositories.UserRecord, 0, len(users))
	for _, u := range users {
		userRows = append(userRows, repositories.NewUserRecord(u, at))
	}
	loans := e.library.GetAllLoans()
	loanRows := make([]repositories.LoanRecord, 0, len(loans))
	for _, l := range loans {
		loanRows = append(loanRows, repositories.NewLoanRecord(l, at))
	}

	summary := Summary{Books: len(bookRows), Users: len(userRows), Loans: len(loanRows), ExportedAt: at}
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := e.books.Upsert(tx, bookRows); err != nil {
			return fmt.Errorf("books: %w", err)
		}
		if err := e.users.Upsert(tx, userRows); err != nil {
			return fmt.Errorf("users: %w", err)
		}
		if err := e.loans.Upsert(tx, loanRows); err != nil {
			return fmt.Errorf("loans: %w", err)
		}
		return e.readBack(tx, &summary)
	})
	if err != nil {
		e.log.Error().Err(err).Msg("Export: transaction failed")
		return Summary{}, fmt.Errorf("%w: archive export: %w", models.ErrIO, err)
	}

	e.log.Info().Int("books", summary.Books).Int("users", summary.Users).Int("loans", summary.Loans).
		Int("stored_loans", summary.StoredLoans).
		Msg("Export: snapshot written")
	return summary, nil
}

func (e *Exporter) readBack(tx *gorm.DB, summary *Summary) error {
	books, err := e.books.List(tx)
	if err != nil {
		return fmt.Errorf("read books: %w", err)
	}
	users, err := e.users.List(tx)
	if err != nil {
		return fmt.Errorf("read users: %w", err)
	}
	loans, err := e.loans.List(tx)
	if err != nil {
		return fmt.Errorf("read loans: %w", err)
	}
	summary.StoredBooks, summary.StoredUsers, summary.StoredLoans = len(books), len(users), len(loans)
	return nil
}

// LoanHistory returns every archived loan of userID, oldest first. Loans whose
// user has since been removed from the catalog are still found.
func (e *Exporter) LoanHistory(ctx context.Context, userID string) ([]repositories.LoanRecord, error) {
	loans, err := e.loans.ListByUser(e.db.WithContext(ctx), strings.TrimSpace(userID))
	if err != nil {
		return nil, fmt.Errorf("%w: archive loan history: %w", models.ErrIO, err)
	}
	return loans, nil
}
