package services

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"librarycatalog/internal/models"
	"librarycatalog/internal/validation"
)

// ─── Service Interface ────────────────────────────────────────────────────────

// LibraryService defines the catalog and loan bookkeeping operations.
//
// Implementations are not safe for concurrent use; callers that serve more than
// one client at a time must serialize access themselves.
type LibraryService interface {
	AddBook(book *models.Book) error
	FindBookByISBN(isbn string) (*models.Book, bool, error)
	SearchBooksByTitle(fragment string) ([]*models.Book, error)
	SearchBooksByAuthor(fragment string) ([]*models.Book, error)
	GetAllBooks() []*models.Book
	GetAvailableBooks() []*models.Book
	RemoveBook(isbn string) (bool, error)

	AddUser(user *models.User) error
	FindUserByID(id string) (*models.User, error)
	GetAllUsers() []*models.User
	SearchUsersByName(fragment string) []*models.User
	RemoveUser(id string) (bool, error)

	LoanBook(userID, isbn string) (*models.Loan, error)
	LoanBookForDays(userID, isbn string, loanDays int) (*models.Loan, error)
	ReturnBook(loanID string) (*models.Loan, error)
	FindLoanByID(loanID string) (*models.Loan, bool)
	GetUserLoans(userID string) ([]*models.Loan, error)
	GetUserActiveLoans(userID string) []*models.Loan
	GetActiveLoans() []*models.Loan
	GetOverdueLoans() []*models.Loan
	GetAllLoans() []*models.Loan

	GetSystemStatistics() Statistics
	Now() time.Time
	FinePerDay() decimal.Decimal
}

// ─── Implementation ───────────────────────────────────────────────────────────

type libraryService struct {
	books     map[string]*models.Book
	bookOrder []string

	users     map[string]*models.User
	userOrder []string

	loans             []*models.Loan
	activeLoansByISBN map[string]*models.Loan
	loansByUser       map[string][]*models.Loan

	log             zerolog.Logger
	now             func() time.Time
	defaultLoanDays int
	finePerDay      decimal.Decimal
	nextLoanID      func() string
}

// NewLibraryService returns an empty in-memory catalog.
func NewLibraryService(opts ...Option) LibraryService {
	s := &libraryService{
		books:             make(map[string]*models.Book),
		users:             make(map[string]*models.User),
		activeLoansByISBN: make(map[string]*models.Loan),
		loansByUser:       make(map[string][]*models.Loan),
	}
	defaultOptions(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *libraryService) Now() time.Time { return s.now() }

func (s *libraryService) FinePerDay() decimal.Decimal { return s.finePerDay }

// ─── Book Management ──────────────────────────────────────────────────────────

// AddBook catalogs a validated book under its ISBN.
func (s *libraryService) AddBook(book *models.Book) error {
	if book == nil {
		return fmt.Errorf("%w: book must not be nil", models.ErrInvalidData)
	}
	if !validation.IsValidBook(book.ISBN(), book.Title(), book.Author()) {
		return fmt.Errorf("%w: book %q needs a title, an author and an ISBN of at least %d characters",
			models.ErrInvalidData, book.ISBN(), validation.MinISBNLength)
	}
	if _, exists := s.books[book.ISBN()]; exists {
		s.log.Warn().Str("isbn", book.ISBN()).Msg("AddBook: duplicate ISBN")
		return fmt.Errorf("%w: isbn %q", ErrBookExists, book.ISBN())
	}

	s.books[book.ISBN()] = book
	s.bookOrder = append(s.bookOrder, book.ISBN())
	s.log.Info().Str("isbn", book.ISBN()).Str("title", book.Title()).Msg("AddBook: book added")
	return nil
}

// FindBookByISBN reports found=false when the ISBN is not catalogued.
func (s *libraryService) FindBookByISBN(isbn string) (*models.Book, bool, error) {
	if !validation.IsNotEmpty(isbn) {
		return nil, false, fmt.Errorf("%w: isbn must not be empty", models.ErrInvalidArgument)
	}
	book, ok := s.books[strings.TrimSpace(isbn)]
	return book, ok, nil
}

// SearchBooksByTitle matches a case-insensitive title fragment, in catalog order.
func (s *libraryService) SearchBooksByTitle(fragment string) ([]*models.Book, error) {
	if !validation.IsNotEmpty(fragment) {
		return nil, fmt.Errorf("%w: title fragment must not be empty", models.ErrInvalidArgument)
	}
	term := strings.ToLower(strings.TrimSpace(fragment))
	return s.filterBooks(func(b *models.Book) bool {
		return strings.Contains(strings.ToLower(b.Title()), term)
	}), nil
}

// SearchBooksByAuthor matches a case-insensitive author fragment, in catalog order.
func (s *libraryService) SearchBooksByAuthor(fragment string) ([]*models.Book, error) {
	if !validation.IsNotEmpty(fragment) {
		return nil, fmt.Errorf("%w: author fragment must not be empty", models.ErrInvalidArgument)
	}
	term := strings.ToLower(strings.TrimSpace(fragment))
	return s.filterBooks(func(b *models.Book) bool {
		return strings.Contains(strings.ToLower(b.Author()), term)
	}), nil
}

func (s *libraryService) GetAllBooks() []*models.Book {
	return s.filterBooks(func(*models.Book) bool { return true })
}

func (s *libraryService) GetAvailableBooks() []*models.Book {
	return s.filterBooks((*models.Book).Available)
}

// RemoveBook deletes an available book. Books on loan are never removed.
func (s *libraryService) RemoveBook(isbn string) (bool, error) {
	book, ok, err := s.FindBookByISBN(isbn)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if !book.Available() {
		s.log.Warn().Str("isbn", book.ISBN()).Msg("RemoveBook: book is on loan")
		return false, fmt.Errorf("%w: isbn %q", ErrBookOnLoan, book.ISBN())
	}

	delete(s.books, book.ISBN())
	s.bookOrder = slices.DeleteFunc(s.bookOrder, func(k string) bool { return k == book.ISBN() })
	s.log.Info().Str("isbn", book.ISBN()).Msg("RemoveBook: book removed")
	return true, nil
}

// ─── User Management ──────────────────────────────────────────────────────────

// AddUser registers a validated user and opens an empty loan history for it.
func (s *libraryService) AddUser(user *models.User) error {
	if user == nil {
		return fmt.Errorf("%w: user must not be nil", models.ErrInvalidData)
	}
	if !validation.IsValidUser(user.ID(), user.Name(), user.Email()) {
		return fmt.Errorf("%w: user %q needs an ID of at least %d characters, a name and a valid email",
			models.ErrInvalidData, user.ID(), validation.MinUserIDLength)
	}
	if _, exists := s.users[user.ID()]; exists {
		s.log.Warn().Str("user_id", user.ID()).Msg("AddUser: duplicate user ID")
		return fmt.Errorf("%w: user %q", ErrUserAlreadyExists, user.ID())
	}

	s.users[user.ID()] = user
	s.userOrder = append(s.userOrder, user.ID())
	s.loansByUser[user.ID()] = nil
	s.log.Info().Str("user_id", user.ID()).Msg("AddUser: user added")
	return nil
}

// FindUserByID fails with ErrInvalidData for malformed IDs and ErrUserNotFound
// for unknown ones.
func (s *libraryService) FindUserByID(id string) (*models.User, error) {
	if !validation.IsValidUserID(id) {
		return nil, fmt.Errorf("%w: invalid user ID %q", models.ErrInvalidData, id)
	}
	user, ok := s.users[strings.TrimSpace(id)]
	if !ok {
		return nil, fmt.Errorf("%w: user %q", ErrUserNotFound, strings.TrimSpace(id))
	}
	return user, nil
}

func (s *libraryService) GetAllUsers() []*models.User {
	users := make([]*models.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		users = append(users, s.users[id])
	}
	return users
}

// SearchUsersByName returns no users for an empty fragment.
func (s *libraryService) SearchUsersByName(fragment string) []*models.User {
	if !validation.IsNotEmpty(fragment) {
		return []*models.User{}
	}
	term := strings.ToLower(strings.TrimSpace(fragment))
	found := []*models.User{}
	for _, id := range s.userOrder {
		if u := s.users[id]; strings.Contains(strings.ToLower(u.Name()), term) {
			found = append(found, u)
		}
	}
	return found
}

// RemoveUser deletes a user without active loans, along with its history.
func (s *libraryService) RemoveUser(id string) (bool, error) {
	id = strings.TrimSpace(id)
	if _, ok := s.users[id]; !ok {
		return false, nil
	}
	if active := s.GetUserActiveLoans(id); len(active) > 0 {
		s.log.Warn().Str("user_id", id).Int("active_loans", len(active)).Msg("RemoveUser: user has active loans")
		return false, fmt.Errorf("%w: user %q holds %d book(s)", ErrUserHasActiveLoans, id, len(active))
	}

	delete(s.users, id)
	delete(s.loansByUser, id)
	s.userOrder = slices.DeleteFunc(s.userOrder, func(k string) bool { return k == id })
	s.log.Info().Str("user_id", id).Msg("RemoveUser: user removed")
	return true, nil
}

// ─── Loans ────────────────────────────────────────────────────────────────────

// LoanBook lends a book for the default loan period.
func (s *libraryService) LoanBook(userID, isbn string) (*models.Loan, error) {
	return s.LoanBookForDays(userID, isbn, s.defaultLoanDays)
}

// LoanBookForDays implements the loan flow:
//  1. Validate the loan period (1..365 days).
//  2. Resolve the user.
//  3. Resolve the book.
//  4. Refuse if the book is unavailable, naming the current borrower.
//  5. Create the Loan, which marks the book unavailable.
//  6. Record it in the loan log, the active index and the user's history.
//
// Every check runs before the first mutation, so a failed call changes nothing.
func (s *libraryService) LoanBookForDays(userID, isbn string, loanDays int) (*models.Loan, error) {
	if !validation.IsValidLoanDays(loanDays) {
		return nil, fmt.Errorf("%w: invalid loan days %d (must be 1..%d)", models.ErrInvalidArgument, loanDays, validation.MaxLoanDays)
	}

	user, err := s.FindUserByID(userID)
	if err != nil {
		s.log.Warn().Str("user_id", userID).Err(err).Msg("LoanBook: user lookup failed")
		return nil, err
	}

	book, ok, err := s.FindBookByISBN(isbn)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.log.Warn().Str("isbn", isbn).Msg("LoanBook: book not found")
		return nil, fmt.Errorf("%w: isbn %q", ErrBookNotFound, strings.TrimSpace(isbn))
	}

	if !book.Available() {
		loanErr := &BookAlreadyLoanedError{ISBN: book.ISBN(), BorrowerID: s.currentBorrower(book.ISBN())}
		s.log.Warn().Str("isbn", book.ISBN()).Str("borrower", loanErr.BorrowerID).Msg("LoanBook: book already on loan")
		return nil, loanErr
	}

	loanID, err := s.newLoanID()
	if err != nil {
		return nil, err
	}
	loan, err := models.NewLoan(loanID, user, book, s.now(), loanDays)
	if err != nil {
		return nil, err
	}

	s.loans = append(s.loans, loan)
	s.activeLoansByISBN[book.ISBN()] = loan
	s.loansByUser[user.ID()] = append(s.loansByUser[user.ID()], loan)

	s.log.Info().
		Str("loan_id", loan.ID()).
		Str("user_id", user.ID()).
		Str("isbn", book.ISBN()).
		Str("due", loan.DueDate().Format("2006-01-02")).
		Msg("LoanBook: loan created")
	return loan, nil
}

// ReturnBook closes an active loan and makes its book available again.
func (s *libraryService) ReturnBook(loanID string) (*models.Loan, error) {
	if !validation.IsNotEmpty(loanID) {
		return nil, fmt.Errorf("%w: loan ID must not be empty", models.ErrInvalidArgument)
	}
	loanID = strings.TrimSpace(loanID)

	loan, ok := s.FindLoanByID(loanID)
	if !ok {
		return nil, fmt.Errorf("%w: %w: loan %q", models.ErrInvalidArgument, ErrLoanNotFound, loanID)
	}
	if !loan.Active() {
		s.log.Warn().Str("loan_id", loanID).Msg("ReturnBook: loan already returned")
		return nil, fmt.Errorf("%w: loan %q", ErrLoanAlreadyReturned, loanID)
	}

	if err := loan.Return(s.now()); err != nil {
		return nil, err
	}
	delete(s.activeLoansByISBN, loan.Book().ISBN())

	s.log.Info().
		Str("loan_id", loanID).
		Str("isbn", loan.Book().ISBN()).
		Int("days_late", max(0, models.DaysBetween(loan.DueDate(), *loan.ReturnDate()))).
		Msg("ReturnBook: loan returned")
	return loan, nil
}

// FindLoanByID scans the loan log.
func (s *libraryService) FindLoanByID(loanID string) (*models.Loan, bool) {
	for _, l := range s.loans {
		if l.ID() == loanID {
			return l, true
		}
	}
	return nil, false
}

// GetUserLoans returns the user's full history in creation order.
func (s *libraryService) GetUserLoans(userID string) ([]*models.Loan, error) {
	userID = strings.TrimSpace(userID)
	if _, ok := s.users[userID]; !ok {
		return nil, fmt.Errorf("%w: user %q", ErrUserNotFound, userID)
	}
	return slices.Clone(s.loansByUser[userID]), nil
}

// GetUserActiveLoans returns an empty slice for unknown users.
func (s *libraryService) GetUserActiveLoans(userID string) []*models.Loan {
	return filterLoans(s.loansByUser[strings.TrimSpace(userID)], (*models.Loan).Active)
}

func (s *libraryService) GetActiveLoans() []*models.Loan {
	return filterLoans(s.loans, (*models.Loan).Active)
}

func (s *libraryService) GetOverdueLoans() []*models.Loan {
	now := s.now()
	return filterLoans(s.loans, func(l *models.Loan) bool { return l.IsOverdue(now) })
}

func (s *libraryService) GetAllLoans() []*models.Loan {
	return filterLoans(s.loans, func(*models.Loan) bool { return true })
}

// ─── Internal Helpers ─────────────────────────────────────────────────────────

func (s *libraryService) filterBooks(keep func(*models.Book) bool) []*models.Book {
	books := make([]*models.Book, 0, len(s.bookOrder))
	for _, isbn := range s.bookOrder {
		if b := s.books[isbn]; keep(b) {
			books = append(books, b)
		}
	}
	return books
}

func filterLoans(loans []*models.Loan, keep func(*models.Loan) bool) []*models.Loan {
	out := make([]*models.Loan, 0, len(loans))
	for _, l := range loans {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}

// currentBorrower returns the ID of the user holding isbn, or "".
func (s *libraryService) currentBorrower(isbn string) string {
	l, ok := s.activeLoansByISBN[isbn]
	if !ok {
		return ""
	}
	if !l.Active() {
		delete(s.activeLoansByISBN, isbn)
		return ""
	}
	return l.User().ID()
}

// newLoanID retries a few times in case a custom generator repeats itself.
func (s *libraryService) newLoanID() (string, error) {
	for attempt := 0; attempt < 3; attempt++ {
		id := s.nextLoanID()
		if _, taken := s.FindLoanByID(id); !taken && validation.IsNotEmpty(id) {
			return id, nil
		}
		s.log.Warn().Str("loan_id", id).Int("attempt", attempt+1).Msg("LoanBook: loan ID collision, retrying")
	}
	return "", fmt.Errorf("%w: could not generate a unique loan ID", models.ErrConflict)
}
