package handlers

import (
	"librarycatalog/internal/models"
	"librarycatalog/internal/repositories"
)

type bookResponse struct {
	ISBN      string `json:"isbn"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Available bool   `json:"available"`
}

func newBookResponse(b *models.Book) bookResponse {
	return bookResponse{ISBN: b.ISBN(), Title: b.Title(), Author: b.Author(), Available: b.Available()}
}

func newBookResponses(books []*models.Book) []bookResponse {
	out := make([]bookResponse, 0, len(books))
	for _, b := range books {
		out = append(out, newBookResponse(b))
	}
	return out
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID(), Name: u.Name(), Email: u.Email()}
}

func newUserResponses(users []*models.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, newUserResponse(u))
	}
	return out
}

// loanResponse reports dates as dd/MM/yyyy, the same layout the CSV export uses.
type loanResponse struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	UserName    string  `json:"user_name"`
	ISBN        string  `json:"isbn"`
	Title       string  `json:"title"`
	LoanDate    string  `json:"loan_date"`
	DueDate     string  `json:"due_date"`
	ReturnDate  *string `json:"return_date"`
	Status      string  `json:"status"`
	DaysOverdue int     `json:"days_overdue"`
	Fine        string  `json:"fine"`
}

func (h *LibraryHandler) newLoanResponse(l *models.Loan) loanResponse {
	now := h.svc.Now()
	resp := loanResponse{
		ID:          l.ID(),
		UserID:      l.User().ID(),
		UserName:    l.User().Name(),
		ISBN:        l.Book().ISBN(),
		Title:       l.Book().Title(),
		LoanDate:    l.LoanDate().Format(models.DateLayout),
		DueDate:     l.DueDate().Format(models.DateLayout),
		Status:      string(l.Status(now)),
		DaysOverdue: l.DaysOverdue(now),
		Fine:        l.Fine(now, h.svc.FinePerDay()).StringFixed(2),
	}
	if rd := l.ReturnDate(); rd != nil {
		s := rd.Format(models.DateLayout)
		resp.ReturnDate = &s
	}
	return resp
}

func (h *LibraryHandler) newLoanResponses(loans []*models.Loan) []loanResponse {
	out := make([]loanResponse, 0, len(loans))
	for _, l := range loans {
		out = append(out, h.newLoanResponse(l))
	}
	return out
}

type archivedLoanResponse struct {
	ID         string  `json:"id"`
	UserID     string  `json:"user_id"`
	ISBN       string  `json:"isbn"`
	LoanDate   string  `json:"loan_date"`
	DueDate    string  `json:"due_date"`
	ReturnDate *string `json:"return_date"`
	Status     string  `json:"status"`
}

func newArchivedLoanResponses(loans []repositories.LoanRecord) []archivedLoanResponse {
	out := make([]archivedLoanResponse, 0, len(loans))
	for _, l := range loans {
		r := archivedLoanResponse{
			ID:       l.ID,
			UserID:   l.UserID,
			ISBN:     l.BookISBN,
			LoanDate: l.LoanDate.Format(models.DateLayout),
			DueDate:  l.DueDate.Format(models.DateLayout),
			Status:   l.Status,
		}
		if l.ReturnDate != nil {
			returned := l.ReturnDate.Format(models.DateLayout)
			r.ReturnDate = &returned
		}
		out = append(out, r)
	}
	return out
}
