package repositories

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"librarycatalog/internal/models"
)

const upsertBatchSize = 100

// ─── Records ──────────────────────────────────────────────────────────────────

// BookRecord is a catalog book as stored in the archive.
type BookRecord struct {
	ISBN       string `gorm:"column:isbn;primaryKey"`
	Title      string `gorm:"not null"`
	Author     string `gorm:"not null"`
	Available  bool   `gorm:"not null"`
	ExportedAt time.Time
}

func (BookRecord) TableName() string { return "books" }

type UserRecord struct {
	ID         string `gorm:"primaryKey"`
	Name       string `gorm:"not null"`
	Email      string `gorm:"not null"`
	ExportedAt time.Time
}

func (UserRecord) TableName() string { return "users" }

type LoanRecord struct {
	ID         string    `gorm:"primaryKey"`
	UserID     string    `gorm:"index;not null"`
	BookISBN   string    `gorm:"column:book_isbn;index;not null"`
	LoanDate   time.Time `gorm:"not null"`
	DueDate    time.Time `gorm:"not null"`
	ReturnDate *time.Time
	Status     string `gorm:"not null"`
	ExportedAt time.Time
}

func (LoanRecord) TableName() string { return "loans" }

func NewBookRecord(b *models.Book, at time.Time) BookRecord {
	return BookRecord{
		ISBN:       b.ISBN(),
		Title:      b.Title(),
		Author:     b.Author(),
		Available:  b.Available(),
		ExportedAt: at,
	}
}

func NewUserRecord(u *models.User, at time.Time) UserRecord {
	return UserRecord{ID: u.ID(), Name: u.Name(), Email: u.Email(), ExportedAt: at}
}

// NewLoanRecord freezes the loan status as of at.
func NewLoanRecord(l *models.Loan, at time.Time) LoanRecord {
	return LoanRecord{
		ID:         l.ID(),
		UserID:     l.User().ID(),
		BookISBN:   l.Book().ISBN(),
		LoanDate:   l.LoanDate(),
		DueDate:    l.DueDate(),
		ReturnDate: l.ReturnDate(),
		Status:     string(l.Status(at)),
		ExportedAt: at,
	}
}

// Migrate creates or updates the archive tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&BookRecord{}, &UserRecord{}, &LoanRecord{})
}

// ─── Repositories ─────────────────────────────────────────────────────────────

type BookRepository interface {
	Upsert(db *gorm.DB, books []BookRecord) error
	List(db *gorm.DB) ([]BookRecord, error)
}

type UserRepository interface {
	Upsert(db *gorm.DB, users []UserRecord) error
	List(db *gorm.DB) ([]UserRecord, error)
}

type LoanRepository interface {
	Upsert(db *gorm.DB, loans []LoanRecord) error
	List(db *gorm.DB) ([]LoanRecord, error)
	ListByUser(db *gorm.DB, userID string) ([]LoanRecord, error)
}

// concrete implementations

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Upsert(db *gorm.DB, books []BookRecord) error {
	if db == nil {
		db = r.db
	}
	return upsert(db, books)
}

func (r *bookRepository) List(db *gorm.DB) ([]BookRecord, error) {
	if db == nil {
		db = r.db
	}
	var books []BookRecord
	if err := db.Order("isbn").Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Upsert(db *gorm.DB, users []UserRecord) error {
	if db == nil {
		db = r.db
	}
	return upsert(db, users)
}

func (r *userRepository) List(db *gorm.DB) ([]UserRecord, error) {
	if db == nil {
		db = r.db
	}
	var users []UserRecord
	if err := db.Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

type loanRepository struct {
	db *gorm.DB
}

func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Upsert(db *gorm.DB, loans []LoanRecord) error {
	if db == nil {
		db = r.db
	}
	return upsert(db, loans)
}

func (r *loanRepository) List(db *gorm.DB) ([]LoanRecord, error) {
	if db == nil {
		db = r.db
	}
	var loans []LoanRecord
	if err := db.Order("loan_date, id").Find(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *loanRepository) ListByUser(db *gorm.DB, userID string) ([]LoanRecord, error) {
	if db == nil {
		db = r.db
	}
	var loans []LoanRecord
	if err := db.Where("user_id = ?", userID).Order("loan_date, id").Find(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}

// upsert inserts rows, overwriting every column of rows whose primary key already exists.
func upsert[T any](db *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return db.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(&rows, upsertBatchSize).Error
}
