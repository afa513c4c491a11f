// Package validation holds the stateless predicates shared by the domain
// models, the library service and the CSV import path.
package validation

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

const (
	// MinISBNLength is the shortest trimmed ISBN the catalog accepts.
	MinISBNLength = 5

	// MinUserIDLength is the shortest trimmed user ID the catalog accepts.
	MinUserIDLength = 3

	// MaxLoanDays caps a single loan period.
	MaxLoanDays = 365
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@([A-Za-z0-9.-]+\.[A-Za-z]{2,})$`)

const illegalFileNameChars = `<>:"|?*`

// IsNotEmpty reports whether s contains anything besides whitespace.
func IsNotEmpty(s string) bool {
	return strings.TrimSpace(s) != ""
}

// IsValidEmail reports whether the trimmed address has the shape local@domain.tld.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// IsValidISBN only checks length. Checksums and hyphen placement are not validated.
func IsValidISBN(isbn string) bool {
	return len(strings.TrimSpace(isbn)) >= MinISBNLength
}

func IsValidUserID(id string) bool {
	return len(strings.TrimSpace(id)) >= MinUserIDLength
}

// IsValidBook checks every field a catalog book needs.
func IsValidBook(isbn, title, author string) bool {
	return IsValidISBN(isbn) && IsNotEmpty(title) && IsNotEmpty(author)
}

// IsValidUser checks every field a registered user needs.
func IsValidUser(id, name, email string) bool {
	return IsValidUserID(id) && IsNotEmpty(name) && IsValidEmail(email)
}

func IsValidLoanDays(days int) bool {
	return days > 0 && days <= MaxLoanDays
}

// IsValidCSVFileName accepts a non-empty name ending in .csv that contains no
// characters rejected by common file systems.
func IsValidCSVFileName(name string) bool {
	return IsValidFileName(name, ".csv")
}

// IsValidFileName is IsValidCSVFileName for an arbitrary extension such as ".json".
func IsValidFileName(name, ext string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	if !strings.EqualFold(filepath.Ext(name), ext) {
		return false
	}
	if strings.EqualFold(filepath.Base(name), ext) {
		return false
	}
	if strings.ContainsAny(filepath.Base(name), illegalFileNameChars) {
		return false
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}
