package services

import (
	"fmt"

	"librarycatalog/internal/models"
)

var sampleBooks = [][3]string{
	{"978-0134685991", "Effective Java", "Joshua Bloch"},
	{"978-0596009205", "Head First Design Patterns", "Eric Freeman"},
	{"978-0321356680", "Effective Unit Testing", "Lasse Koskela"},
}

var sampleUsers = [][3]string{
	{"U001", "Juan Perez", "juan.perez@email.com"},
	{"U002", "Maria Silva", "maria.silva@email.com"},
}

// LoadSampleData seeds svc with a small starter catalog.
func LoadSampleData(svc LibraryService) error {
	for _, f := range sampleBooks {
		book, err := models.NewBook(f[0], f[1], f[2])
		if err != nil {
			return fmt.Errorf("sample book %s: %w", f[0], err)
		}
		if err := svc.AddBook(book); err != nil {
			return fmt.Errorf("sample book %s: %w", f[0], err)
		}
	}
	for _, f := range sampleUsers {
		user, err := models.NewUser(f[0], f[1], f[2])
		if err != nil {
			return fmt.Errorf("sample user %s: %w", f[0], err)
		}
		if err := svc.AddUser(user); err != nil {
			return fmt.Errorf("sample user %s: %w", f[0], err)
		}
	}
	return nil
}
