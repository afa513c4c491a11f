package console

import (
	"context"
	"fmt"

	"librarycatalog/internal/models"
)

func (m *Menu) formatLoan(l *models.Loan) string {
	now := m.library.Now()
	line := fmt.Sprintf("[%s] %s -> %s (%s) loaned %s, due %s, %s",
		l.ID(), l.Book().ISBN(), l.User().ID(), l.Book().Title(),
		l.LoanDate().Format(models.DateLayout), l.DueDate().Format(models.DateLayout), l.Status(now))
	if rd := l.ReturnDate(); rd != nil {
		line += " on " + rd.Format(models.DateLayout)
	}
	if l.IsOverdue(now) {
		line += fmt.Sprintf(", %d day(s) late, fine %s", l.DaysOverdue(now), l.Fine(now, m.library.FinePerDay()).StringFixed(2))
	}
	return line
}

func (m *Menu) loansMenu(ctx context.Context) error {
	return m.loop(ctx, "LOANS", "Back", []action{
		{"Loan book", m.loanBook},
		{"Return book", m.returnBook},
		{"User loan history", m.userLoans},
		{"User active loans", m.userActiveLoans},
		{"Active loans", m.activeLoans},
		{"Overdue loans", m.overdueLoans},
		{"All loans", m.allLoans},
	})
}

func (m *Menu) loanBook(context.Context) error {
	userID, err := m.readLine("User ID: ")
	if err != nil {
		return err
	}
	isbn, err := m.readLine("ISBN: ")
	if err != nil {
		return err
	}
	days, err := m.readOptionalInt("Loan days (empty for default): ", 0)
	if err != nil {
		return err
	}

	var loan *models.Loan
	if days == 0 {
		loan, err = m.library.LoanBook(userID, isbn)
	} else {
		loan, err = m.library.LoanBookForDays(userID, isbn, days)
	}
	if err != nil {
		return err
	}
	m.println("Loan created: " + m.formatLoan(loan))
	return nil
}

func (m *Menu) returnBook(context.Context) error {
	loanID, err := m.readLine("Loan ID: ")
	if err != nil {
		return err
	}
	loan, err := m.library.ReturnBook(loanID)
	if err != nil {
		return err
	}
	m.println("Book returned: " + m.formatLoan(loan))
	return nil
}

func (m *Menu) userLoans(context.Context) error {
	userID, err := m.readLine("User ID: ")
	if err != nil {
		return err
	}
	loans, err := m.library.GetUserLoans(userID)
	if err != nil {
		return err
	}
	listOrEmpty(m, loans, "No loans for this user.", m.formatLoan)
	return nil
}

func (m *Menu) userActiveLoans(context.Context) error {
	userID, err := m.readLine("User ID: ")
	if err != nil {
		return err
	}
	if _, err := m.library.FindUserByID(userID); err != nil {
		return err
	}
	listOrEmpty(m, m.library.GetUserActiveLoans(userID), "No active loans for this user.", m.formatLoan)
	return nil
}

func (m *Menu) activeLoans(context.Context) error {
	listOrEmpty(m, m.library.GetActiveLoans(), "No active loans.", m.formatLoan)
	return nil
}

func (m *Menu) overdueLoans(context.Context) error {
	listOrEmpty(m, m.library.GetOverdueLoans(), "No overdue loans.", m.formatLoan)
	return nil
}

func (m *Menu) allLoans(context.Context) error {
	listOrEmpty(m, m.library.GetAllLoans(), "No loans recorded.", m.formatLoan)
	return nil
}
