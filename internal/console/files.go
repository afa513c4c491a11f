package console

import (
	"context"
	"fmt"

	"librarycatalog/internal/fileops"
)

// ─── Reports ──────────────────────────────────────────────────────────────────

func (m *Menu) reportsMenu(ctx context.Context) error {
	return m.loop(ctx, "REPORTS", "Back", []action{
		{"System statistics", m.showStatistics},
	})
}

func (m *Menu) showStatistics(context.Context) error {
	st := m.library.GetSystemStatistics()
	m.printf("Books:          %d (%d available, %d on loan)\n", st.TotalBooks, st.AvailableBooks, st.LoanedBooks)
	m.printf("Users:          %d\n", st.TotalUsers)
	m.printf("Loans:          %d (%d active, %d overdue)\n", st.TotalLoans, st.ActiveLoans, st.OverdueLoans)
	m.printf("Accrued fines:  %s\n", st.AccruedFines.StringFixed(2))
	return nil
}

// ─── Files ────────────────────────────────────────────────────────────────────

func (m *Menu) filesMenu(ctx context.Context) error {
	return m.loop(ctx, "FILES", "Back", []action{
		{"Import books (CSV)", m.importWith("Books file: ", m.files.ImportBooks)},
		{"Import users (CSV)", m.importWith("Users file: ", m.files.ImportUsers)},
		{"Export books (CSV)", m.exportWith("Books file: ", m.files.ExportBooks)},
		{"Export users (CSV)", m.exportWith("Users file: ", m.files.ExportUsers)},
		{"Export loans (CSV)", m.exportWith("Loans file: ", m.files.ExportLoans)},
		{"Export report (JSON)", m.exportWith("Report file: ", m.files.ExportReport)},
	})
}

func (m *Menu) importWith(prompt string, run func(string) (fileops.ImportResult, error)) func(context.Context) error {
	return func(context.Context) error {
		path, err := m.readLine(prompt)
		if err != nil {
			return err
		}
		res, err := run(path)
		if err != nil {
			return err
		}
		m.printf("Imported %d, duplicates %d, errors %d.\n", res.Imported, res.Duplicates, res.Errors)
		for _, p := range res.Problems {
			m.printf("  skipped: %v\n", p)
		}
		return nil
	}
}

func (m *Menu) exportWith(prompt string, run func(string) error) func(context.Context) error {
	return func(context.Context) error {
		path, err := m.readLine(prompt)
		if err != nil {
			return err
		}
		if err := run(path); err != nil {
			return err
		}
		m.printf("Written to %s.\n", path)
		return nil
	}
}

// ─── Database Export ──────────────────────────────────────────────────────────

func (m *Menu) exportArchive(ctx context.Context) error {
	summary, err := m.archive.Export(ctx)
	if err != nil {
		return fmt.Errorf("database export: %w", err)
	}
	m.println("Exported " + summary.String() + ".")
	return nil
}
