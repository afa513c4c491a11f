package models

import (
	"fmt"
	"strings"

	"librarycatalog/internal/validation"
)

// Book is a catalog title. Availability changes only through Loan.
type Book struct {
	isbn      string
	title     string
	author    string
	available bool
}

// NewBook builds an available book from trimmed, non-empty fields.
func NewBook(isbn, title, author string) (*Book, error) {
	if !validation.IsNotEmpty(isbn) {
		return nil, fmt.Errorf("%w: isbn must not be empty", ErrInvalidData)
	}
	b := &Book{isbn: strings.TrimSpace(isbn), available: true}
	if err := b.SetTitle(title); err != nil {
		return nil, err
	}
	if err := b.SetAuthor(author); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Book) ISBN() string { return b.isbn }
func (b *Book) Title() string { return b.title }
func (b *Book) Author() string { return b.author }
func (b *Book) Available() bool { return b.available }

func (b *Book) SetTitle(title string) error {
	if !validation.IsNotEmpty(title) {
		return fmt.Errorf("%w: title must not be empty (isbn %q)", ErrInvalidData, b.isbn)
	}
	b.title = strings.TrimSpace(title)
	return nil
}

func (b *Book) SetAuthor(author string) error {
	if !validation.IsNotEmpty(author) {
		return fmt.Errorf("%w: author must not be empty (isbn %q)", ErrInvalidData, b.isbn)
	}
	b.author = strings.TrimSpace(author)
	return nil
}

// Equal compares books by ISBN.
func (b *Book) Equal(other *Book) bool {
	if b == nil || other == nil {
		return b == other
	}
	return b.isbn == other.isbn
}

func (b *Book) String() string {
	return fmt.Sprintf("Book{ISBN=%q, Title=%q, Author=%q, Available=%t}", b.isbn, b.title, b.author, b.available)
}

// User is a registered library patron.
type User struct {
	id    string
	name  string
	email string
}

// NewUser builds a user; the email is validated and stored lowercase.
func NewUser(id, name, email string) (*User, error) {
	if !validation.IsNotEmpty(id) {
		return nil, fmt.Errorf("%w: user id must not be empty", ErrInvalidData)
	}
	u := &User{id: strings.TrimSpace(id)}
	if err := u.SetName(name); err != nil {
		return nil, err
	}
	if err := u.SetEmail(email); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *User) ID() string { return u.id }
func (u *User) Name() string { return u.name }
func (u *User) Email() string { return u.email }

func (u *User) SetName(name string) error {
	if !validation.IsNotEmpty(name) {
		return fmt.Errorf("%w: name must not be empty (user %q)", ErrInvalidData, u.id)
	}
	u.name = strings.TrimSpace(name)
	return nil
}

func (u *User) SetEmail(email string) error {
	if !validation.IsNotEmpty(email) {
		return fmt.Errorf("%w: email must not be empty (user %q)", ErrInvalidData, u.id)
	}
	if !validation.IsValidEmail(email) {
		return fmt.Errorf("%w: invalid email format %q (user %q)", ErrInvalidData, email, u.id)
	}
	u.email = strings.ToLower(strings.TrimSpace(email))
	return nil
}

// Equal compares users by ID.
func (u *User) Equal(other *User) bool {
	if u == nil || other == nil {
		return u == other
	}
	return u.id == other.id
}

func (u *User) String() string {
	return fmt.Sprintf("User{ID=%q, Name=%q, Email=%q}", u.id, u.name, u.email)
}
