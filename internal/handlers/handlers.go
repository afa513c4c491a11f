package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"librarycatalog/internal/archive"
	"librarycatalog/internal/models"
	"librarycatalog/internal/repositories"
	"librarycatalog/internal/services"
)

// Exporter writes a catalog snapshot to the archive database and reads
// archived loans back.
type Exporter interface {
	Export(ctx context.Context) (archive.Summary, error)
	LoanHistory(ctx context.Context, userID string) ([]repositories.LoanRecord, error)
}

type Option func(*LibraryHandler)

// WithArchive mounts POST /archive, which runs exp.
func WithArchive(exp Exporter) Option {
	return func(h *LibraryHandler) { h.archive = exp }
}

type LibraryHandler struct {
	svc     services.LibraryService
	archive Exporter
	log     zerolog.Logger
}

// RegisterRoutes mounts the catalog API on r. The service is not safe for
// concurrent use, so every route runs behind one shared lock.
func RegisterRoutes(r *gin.Engine, svc services.LibraryService, log zerolog.Logger, opts ...Option) {
	h := &LibraryHandler{svc: svc, log: log}
	for _, opt := range opts {
		opt(h)
	}
	api := r.Group("/", Serialize())

	// Books
	api.GET("/books", h.listBooks)
	api.GET("/books/search", h.searchBooks)
	api.POST("/books", h.createBook)
	api.GET("/books/:isbn", h.getBook)
	api.DELETE("/books/:isbn", h.deleteBook)

	// Users
	api.GET("/users", h.listUsers)
	api.POST("/users", h.createUser)
	api.GET("/users/:id", h.getUser)
	api.DELETE("/users/:id", h.deleteUser)
	api.GET("/users/:id/loans", h.listUserLoans)

	// Loans
	api.GET("/loans", h.listLoans)
	api.POST("/loans", h.createLoan)
	api.GET("/loans/:id", h.getLoan)
	api.POST("/loans/:id/return", h.returnLoan)

	// Reports
	api.GET("/stats", h.stats)
	if h.archive != nil {
		api.POST("/archive", h.exportArchive)
		api.GET("/archive/users/:id/loans", h.archivedLoans)
	}
}

// ─── Books ────────────────────────────────────────────────────────────────────

type createBookRequest struct {
	ISBN   string `json:"isbn" binding:"required"`
	Title  string `json:"title" binding:"required"`
	Author string `json:"author" binding:"required"`
}

func (h *LibraryHandler) listBooks(c *gin.Context) {
	books := h.svc.GetAllBooks()
	if c.Query("available") == "true" {
		books = h.svc.GetAvailableBooks()
	}
	c.JSON(http.StatusOK, newBookResponses(books))
}

func (h *LibraryHandler) searchBooks(c *gin.Context) {
	var (
		books []*models.Book
		err   error
	)
	switch {
	case c.Query("title") != "":
		books, err = h.svc.SearchBooksByTitle(c.Query("title"))
	case c.Query("author") != "":
		books, err = h.svc.SearchBooksByAuthor(c.Query("author"))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "title or author query parameter is required"})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookResponses(books))
}

func (h *LibraryHandler) createBook(c *gin.Context) {
	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	book, err := models.NewBook(req.ISBN, req.Title, req.Author)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.svc.AddBook(book); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newBookResponse(book))
}

func (h *LibraryHandler) getBook(c *gin.Context) {
	book, found, err := h.svc.FindBookByISBN(c.Param("isbn"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !found {
		h.fail(c, services.ErrBookNotFound)
		return
	}
	c.JSON(http.StatusOK, newBookResponse(book))
}

func (h *LibraryHandler) deleteBook(c *gin.Context) {
	removed, err := h.svc.RemoveBook(c.Param("isbn"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !removed {
		h.fail(c, services.ErrBookNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

// ─── Users ────────────────────────────────────────────────────────────────────

type createUserRequest struct {
	ID    string `json:"id" binding:"required"`
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
}

func (h *LibraryHandler) listUsers(c *gin.Context) {
	users := h.svc.GetAllUsers()
	if name := c.Query("name"); name != "" {
		users = h.svc.SearchUsersByName(name)
	}
	c.JSON(http.StatusOK, newUserResponses(users))
}

func (h *LibraryHandler) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := models.NewUser(req.ID, req.Name, req.Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.svc.AddUser(user); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newUserResponse(user))
}

func (h *LibraryHandler) getUser(c *gin.Context) {
	user, err := h.svc.FindUserByID(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}

func (h *LibraryHandler) deleteUser(c *gin.Context) {
	removed, err := h.svc.RemoveUser(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !removed {
		h.fail(c, services.ErrUserNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LibraryHandler) listUserLoans(c *gin.Context) {
	loans, err := h.svc.GetUserLoans(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if c.Query("active") == "true" {
		loans = h.svc.GetUserActiveLoans(c.Param("id"))
	}
	c.JSON(http.StatusOK, h.newLoanResponses(loans))
}

// ─── Loans ────────────────────────────────────────────────────────────────────

type createLoanRequest struct {
	UserID string `json:"user_id" binding:"required"`
	ISBN   string `json:"isbn" binding:"required"`
	Days   int    `json:"days" binding:"omitempty,min=1,max=365"`
}

func (h *LibraryHandler) listLoans(c *gin.Context) {
	var loans []*models.Loan
	switch c.Query("status") {
	case "":
		loans = h.svc.GetAllLoans()
	case "active":
		loans = h.svc.GetActiveLoans()
	case "overdue":
		loans = h.svc.GetOverdueLoans()
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be active or overdue"})
		return
	}
	c.JSON(http.StatusOK, h.newLoanResponses(loans))
}

func (h *LibraryHandler) createLoan(c *gin.Context) {
	var req createLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var (
		loan *models.Loan
		err  error
	)
	if req.Days == 0 {
		loan, err = h.svc.LoanBook(req.UserID, req.ISBN)
	} else {
		loan, err = h.svc.LoanBookForDays(req.UserID, req.ISBN, req.Days)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.newLoanResponse(loan))
}

func (h *LibraryHandler) getLoan(c *gin.Context) {
	loan, found := h.svc.FindLoanByID(c.Param("id"))
	if !found {
		h.fail(c, services.ErrLoanNotFound)
		return
	}
	c.JSON(http.StatusOK, h.newLoanResponse(loan))
}

func (h *LibraryHandler) returnLoan(c *gin.Context) {
	loan, err := h.svc.ReturnBook(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.newLoanResponse(loan))
}

func (h *LibraryHandler) stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.GetSystemStatistics())
}

func (h *LibraryHandler) exportArchive(c *gin.Context) {
	summary, err := h.archive.Export(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"books":        summary.Books,
		"users":        summary.Users,
		"loans":        summary.Loans,
		"stored_books": summary.StoredBooks,
		"stored_users": summary.StoredUsers,
		"stored_loans": summary.StoredLoans,
		"exported_at":  summary.ExportedAt,
	})
}

func (h *LibraryHandler) archivedLoans(c *gin.Context) {
	loans, err := h.archive.LoanHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newArchivedLoanResponses(loans))
}

// ─── Errors ───────────────────────────────────────────────────────────────────

func (h *LibraryHandler) fail(c *gin.Context, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}

	body := gin.H{"error": err.Error()}
	var loaned *services.BookAlreadyLoanedError
	if errors.As(err, &loaned) {
		body["borrower_id"] = loaned.BorrowerID
	}
	c.JSON(status, body)
}

// StatusFor maps an error kind to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrLoanNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrLoanAlreadyReturned):
		return http.StatusConflict
	}
	switch models.Kind(err) {
	case models.ErrInvalidArgument, models.ErrInvalidData, models.ErrFormat:
		return http.StatusBadRequest
	case models.ErrNotFound:
		return http.StatusNotFound
	case models.ErrDuplicate, models.ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
