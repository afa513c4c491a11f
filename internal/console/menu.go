// Package console drives the library service from a numbered text menu.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"librarycatalog/internal/archive"
	"librarycatalog/internal/fileops"
	"librarycatalog/internal/services"
)

// errInputClosed unwinds every menu level once the input is exhausted.
var errInputClosed = errors.New("input closed")

// errInputFailed unwinds every menu level when the input can no longer be read.
var errInputFailed = errors.New("read input")

const maxInputLine = 1024 * 1024

// Exporter writes a catalog snapshot somewhere outside the process.
type Exporter interface {
	Export(ctx context.Context) (archive.Summary, error)
}

type Option func(*Menu)

func WithLogger(log zerolog.Logger) Option {
	return func(m *Menu) { m.log = log }
}

// WithArchive enables the database export entry of the main menu.
func WithArchive(exp Exporter) Option {
	return func(m *Menu) { m.archive = exp }
}

type Menu struct {
	in      *bufio.Scanner
	out     io.Writer
	library services.LibraryService
	files   *fileops.Service
	archive Exporter
	log     zerolog.Logger
}

func NewMenu(in io.Reader, out io.Writer, library services.LibraryService, files *fileops.Service, opts ...Option) *Menu {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 4096), maxInputLine)
	m := &Menu{
		in:      sc,
		out:     out,
		library: library,
		files:   files,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type action struct {
	label string
	run   func(ctx context.Context) error
}

// Run shows the main menu until the user exits or the input ends.
func (m *Menu) Run(ctx context.Context) error {
	actions := []action{
		{"Books", m.booksMenu},
		{"Users", m.usersMenu},
		{"Loans", m.loansMenu},
		{"Reports", m.reportsMenu},
		{"Files", m.filesMenu},
	}
	if m.archive != nil {
		actions = append(actions, action{"Database export", m.exportArchive})
	}

	err := m.loop(ctx, "LIBRARY CATALOG", "Exit", actions)
	if errors.Is(err, errInputClosed) {
		m.log.Debug().Msg("Run: input closed")
		return nil
	}
	if err != nil {
		return err
	}
	m.println("Goodbye!")
	return nil
}

// loop prints a numbered menu and runs the chosen action until 0 is picked.
// Action errors are reported on one line and the menu is shown again.
func (m *Menu) loop(ctx context.Context, title, back string, actions []action) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		m.printf("\n=== %s ===\n", title)
		for i, a := range actions {
			m.printf("%d. %s\n", i+1, a.label)
		}
		m.printf("0. %s\n", back)

		choice, err := m.readInt("Option: ")
		if errors.Is(err, errInputClosed) || errors.Is(err, errInputFailed) {
			return err
		}
		if err != nil || choice < 0 || choice > len(actions) {
			m.println("Invalid option, try again.")
			continue
		}
		if choice == 0 {
			return nil
		}

		if err := actions[choice-1].run(ctx); err != nil {
			if errors.Is(err, errInputClosed) || errors.Is(err, errInputFailed) || errors.Is(err, context.Canceled) {
				return err
			}
			m.printErr(err)
		}
	}
}

// ─── Input/Output Helpers ─────────────────────────────────────────────────────

func (m *Menu) readLine(prompt string) (string, error) {
	m.printf("%s", prompt)
	if !m.in.Scan() {
		if err := m.in.Err(); err != nil {
			return "", fmt.Errorf("%w: %w", errInputFailed, err)
		}
		return "", errInputClosed
	}
	return strings.TrimSpace(m.in.Text()), nil
}

func (m *Menu) readInt(prompt string) (int, error) {
	line, err := m.readLine(prompt)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(line)
}

// readOptionalInt returns def for an empty answer.
func (m *Menu) readOptionalInt(prompt string, def int) (int, error) {
	line, err := m.readLine(prompt)
	if err != nil {
		return 0, err
	}
	if line == "" {
		return def, nil
	}
	n, err := strconv.Atoi(line)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", line)
	}
	return n, nil
}

func (m *Menu) printf(format string, args ...any) {
	fmt.Fprintf(m.out, format, args...)
}

func (m *Menu) println(args ...any) {
	fmt.Fprintln(m.out, args...)
}

func (m *Menu) printErr(err error) {
	m.log.Debug().Err(err).Msg("menu action failed")
	m.printf("Error: %v\n", err)
}

func listOrEmpty[T any](m *Menu, items []T, empty string, format func(T) string) {
	if len(items) == 0 {
		m.println(empty)
		return
	}
	for _, it := range items {
		m.println(format(it))
	}
}
