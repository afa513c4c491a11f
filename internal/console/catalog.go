package console

import (
	"context"
	"fmt"

	"librarycatalog/internal/models"
)

func formatBook(b *models.Book) string {
	state := "available"
	if !b.Available() {
		state = "on loan"
	}
	return fmt.Sprintf("[%s] %s by %s (%s)", b.ISBN(), b.Title(), b.Author(), state)
}

func formatUser(u *models.User) string {
	return fmt.Sprintf("[%s] %s <%s>", u.ID(), u.Name(), u.Email())
}

// ─── Books ────────────────────────────────────────────────────────────────────

func (m *Menu) booksMenu(ctx context.Context) error {
	return m.loop(ctx, "BOOKS", "Back", []action{
		{"Add book", m.addBook},
		{"Find book by ISBN", m.findBook},
		{"Search by title", m.searchByTitle},
		{"Search by author", m.searchByAuthor},
		{"List all books", m.listBooks},
		{"List available books", m.listAvailableBooks},
		{"Remove book", m.removeBook},
	})
}

func (m *Menu) addBook(context.Context) error {
	isbn, err := m.readLine("ISBN: ")
	if err != nil {
		return err
	}
	title, err := m.readLine("Title: ")
	if err != nil {
		return err
	}
	author, err := m.readLine("Author: ")
	if err != nil {
		return err
	}

	book, err := models.NewBook(isbn, title, author)
	if err != nil {
		return err
	}
	if err := m.library.AddBook(book); err != nil {
		return err
	}
	m.println("Book added: " + formatBook(book))
	return nil
}

func (m *Menu) findBook(context.Context) error {
	isbn, err := m.readLine("ISBN: ")
	if err != nil {
		return err
	}
	book, found, err := m.library.FindBookByISBN(isbn)
	if err != nil {
		return err
	}
	if !found {
		m.printf("No book with ISBN %q.\n", isbn)
		return nil
	}
	m.println(formatBook(book))
	return nil
}

func (m *Menu) searchByTitle(context.Context) error {
	fragment, err := m.readLine("Title contains: ")
	if err != nil {
		return err
	}
	books, err := m.library.SearchBooksByTitle(fragment)
	if err != nil {
		return err
	}
	listOrEmpty(m, books, "No books found.", formatBook)
	return nil
}

func (m *Menu) searchByAuthor(context.Context) error {
	fragment, err := m.readLine("Author contains: ")
	if err != nil {
		return err
	}
	books, err := m.library.SearchBooksByAuthor(fragment)
	if err != nil {
		return err
	}
	listOrEmpty(m, books, "No books found.", formatBook)
	return nil
}

func (m *Menu) listBooks(context.Context) error {
	listOrEmpty(m, m.library.GetAllBooks(), "The catalog is empty.", formatBook)
	return nil
}

func (m *Menu) listAvailableBooks(context.Context) error {
	listOrEmpty(m, m.library.GetAvailableBooks(), "No books are available.", formatBook)
	return nil
}

func (m *Menu) removeBook(context.Context) error {
	isbn, err := m.readLine("ISBN: ")
	if err != nil {
		return err
	}
	removed, err := m.library.RemoveBook(isbn)
	if err != nil {
		return err
	}
	if !removed {
		m.printf("No book with ISBN %q.\n", isbn)
		return nil
	}
	m.printf("Book %s removed.\n", isbn)
	return nil
}

// ─── Users ────────────────────────────────────────────────────────────────────

func (m *Menu) usersMenu(ctx context.Context) error {
	return m.loop(ctx, "USERS", "Back", []action{
		{"Add user", m.addUser},
		{"Find user by ID", m.findUser},
		{"Search by name", m.searchUsers},
		{"List all users", m.listUsers},
		{"Remove user", m.removeUser},
	})
}

func (m *Menu) addUser(context.Context) error {
	id, err := m.readLine("User ID: ")
	if err != nil {
		return err
	}
	name, err := m.readLine("Name: ")
	if err != nil {
		return err
	}
	email, err := m.readLine("Email: ")
	if err != nil {
		return err
	}

	user, err := models.NewUser(id, name, email)
	if err != nil {
		return err
	}
	if err := m.library.AddUser(user); err != nil {
		return err
	}
	m.println("User added: " + formatUser(user))
	return nil
}

func (m *Menu) findUser(context.Context) error {
	id, err := m.readLine("User ID: ")
	if err != nil {
		return err
	}
	user, err := m.library.FindUserByID(id)
	if err != nil {
		return err
	}
	m.println(formatUser(user))
	return nil
}

func (m *Menu) searchUsers(context.Context) error {
	fragment, err := m.readLine("Name contains: ")
	if err != nil {
		return err
	}
	listOrEmpty(m, m.library.SearchUsersByName(fragment), "No users found.", formatUser)
	return nil
}

func (m *Menu) listUsers(context.Context) error {
	listOrEmpty(m, m.library.GetAllUsers(), "No users registered.", formatUser)
	return nil
}

func (m *Menu) removeUser(context.Context) error {
	id, err := m.readLine("User ID: ")
	if err != nil {
		return err
	}
	removed, err := m.library.RemoveUser(id)
	if err != nil {
		return err
	}
	if !removed {
		m.printf("No user with ID %q.\n", id)
		return nil
	}
	m.printf("User %s removed.\n", id)
	return nil
}
