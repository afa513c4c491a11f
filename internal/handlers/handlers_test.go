package handlers_test

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarycatalog/internal/archive"
	"librarycatalog/internal/handlers"
	"librarycatalog/internal/models"
	"librarycatalog/internal/services"
)

const effectiveJava = "978-0134685991"

type testAPI struct {
	router *gin.Engine
	svc    services.LibraryService
	now    *time.Time
}

func newAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	n := 0
	svc := services.NewLibraryService(
		services.WithClock(func() time.Time { return now }),
		services.WithFinePerDay(decimal.RequireFromString("0.50")),
		services.WithLoanIDGenerator(func() string {
			n++
			return fmt.Sprintf("L-%03d", n)
		}),
	)
	require.NoError(t, services.LoadSampleData(svc))

	r := gin.New()
	handlers.RegisterRoutes(r, svc, zerolog.Nop())
	return &testAPI{router: r, svc: svc, now: &now}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, jsoniter.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, jsoniter.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type loanJSON struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	ISBN        string  `json:"isbn"`
	DueDate     string  `json:"due_date"`
	ReturnDate  *string `json:"return_date"`
	Status      string  `json:"status"`
	DaysOverdue int     `json:"days_overdue"`
	Fine        string  `json:"fine"`
}

func loanReq(userID, isbn string) map[string]any {
	return map[string]any{"user_id": userID, "isbn": isbn}
}

// ─── Books ────────────────────────────────────────────────────────────────────

func Test_CreateBook(t *testing.T) {
	api := newAPI(t)

	rec := api.do(t, http.MethodPost, "/books", map[string]string{"isbn": "978-1", "title": "T", "author": "A"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, map[string]any{"isbn": "978-1", "title": "T", "author": "A", "available": true}, decode[map[string]any](t, rec))

	rec = api.do(t, http.MethodPost, "/books", map[string]string{"isbn": "978-1", "title": "T2", "author": "A2"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(t, http.MethodPost, "/books", map[string]string{"isbn": "12", "title": "T", "author": "A"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/books", map[string]string{"isbn": "978-2"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_ListAndSearchBooks(t *testing.T) {
	api := newAPI(t)
	_, err := api.svc.LoanBook("U001", effectiveJava)
	require.NoError(t, err)

	all := decode[[]map[string]any](t, api.do(t, http.MethodGet, "/books", nil))
	assert.Len(t, all, 3)

	available := decode[[]map[string]any](t, api.do(t, http.MethodGet, "/books?available=true", nil))
	assert.Len(t, available, 2)

	byTitle := decode[[]map[string]any](t, api.do(t, http.MethodGet, "/books/search?title=effective", nil))
	assert.Len(t, byTitle, 2)

	byAuthor := decode[[]map[string]any](t, api.do(t, http.MethodGet, "/books/search?author=freeman", nil))
	require.Len(t, byAuthor, 1)
	assert.Equal(t, "978-0596009205", byAuthor[0]["isbn"])

	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodGet, "/books/search", nil).Code)
}

func Test_GetBook(t *testing.T) {
	api := newAPI(t)

	rec := api.do(t, http.MethodGet, "/books/"+effectiveJava, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Effective Java", decode[map[string]any](t, rec)["title"])

	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/books/000-0000", nil).Code)
}

func Test_DeleteBook_RefusesBookOnLoan(t *testing.T) {
	api := newAPI(t)
	loan, err := api.svc.LoanBook("U001", effectiveJava)
	require.NoError(t, err)

	assert.Equal(t, http.StatusConflict, api.do(t, http.MethodDelete, "/books/"+effectiveJava, nil).Code)

	_, err = api.svc.ReturnBook(loan.ID())
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, api.do(t, http.MethodDelete, "/books/"+effectiveJava, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodDelete, "/books/"+effectiveJava, nil).Code)
}

// ─── Users ────────────────────────────────────────────────────────────────────

func Test_CreateAndGetUser(t *testing.T) {
	api := newAPI(t)

	rec := api.do(t, http.MethodPost, "/users", map[string]string{"id": "U100", "name": "Ana", "email": "Ana@B.com"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "ana@b.com", decode[map[string]any](t, rec)["email"])

	rec = api.do(t, http.MethodPost, "/users", map[string]string{"id": "U101", "name": "Bad", "email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/users", map[string]string{"id": "U100", "name": "Dup", "email": "d@b.com"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	assert.Equal(t, http.StatusOK, api.do(t, http.MethodGet, "/users/U100", nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/users/U999", nil).Code)

	users := decode[[]map[string]any](t, api.do(t, http.MethodGet, "/users?name=silva", nil))
	require.Len(t, users, 1)
	assert.Equal(t, "U002", users[0]["id"])
}

func Test_DeleteUser_RefusesUserWithActiveLoans(t *testing.T) {
	api := newAPI(t)
	_, err := api.svc.LoanBook("U001", effectiveJava)
	require.NoError(t, err)

	assert.Equal(t, http.StatusConflict, api.do(t, http.MethodDelete, "/users/U001", nil).Code)
	assert.Equal(t, http.StatusNoContent, api.do(t, http.MethodDelete, "/users/U002", nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodDelete, "/users/U002", nil).Code)
}

func Test_ListUserLoans(t *testing.T) {
	api := newAPI(t)
	first, err := api.svc.LoanBook("U001", effectiveJava)
	require.NoError(t, err)
	_, err = api.svc.LoanBook("U001", "978-0596009205")
	require.NoError(t, err)
	_, err = api.svc.ReturnBook(first.ID())
	require.NoError(t, err)

	assert.Len(t, decode[[]loanJSON](t, api.do(t, http.MethodGet, "/users/U001/loans", nil)), 2)
	active := decode[[]loanJSON](t, api.do(t, http.MethodGet, "/users/U001/loans?active=true", nil))
	require.Len(t, active, 1)
	assert.Equal(t, "978-0596009205", active[0].ISBN)

	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/users/U999/loans", nil).Code)
}

// ─── Loans ────────────────────────────────────────────────────────────────────

func Test_CreateLoan(t *testing.T) {
	api := newAPI(t)

	rec := api.do(t, http.MethodPost, "/loans", loanReq("U001", effectiveJava))
	require.Equal(t, http.StatusCreated, rec.Code)
	loan := decode[loanJSON](t, rec)
	assert.Equal(t, "L-001", loan.ID)
	assert.Equal(t, "24/03/2025", loan.DueDate)
	assert.Equal(t, "ACTIVE", loan.Status)
	assert.Nil(t, loan.ReturnDate)

	rec = api.do(t, http.MethodPost, "/loans", loanReq("U002", effectiveJava))
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "U001", decode[map[string]any](t, rec)["borrower_id"])
	assert.Len(t, api.svc.GetAllLoans(), 1)
}

func Test_CreateLoan_WithDays(t *testing.T) {
	api := newAPI(t)

	rec := api.do(t, http.MethodPost, "/loans", map[string]any{"user_id": "U001", "isbn": effectiveJava, "days": 7})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "17/03/2025", decode[loanJSON](t, rec).DueDate)

	rec = api.do(t, http.MethodPost, "/loans", map[string]any{"user_id": "U002", "isbn": "978-0596009205", "days": 400})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_CreateLoan_UnknownEntities(t *testing.T) {
	api := newAPI(t)

	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodPost, "/loans", loanReq("U999", effectiveJava)).Code)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodPost, "/loans", loanReq("U001", "000-0000")).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodPost, "/loans", loanReq("U1", effectiveJava)).Code)
	assert.Empty(t, api.svc.GetAllLoans())
}

func Test_ReturnLoan(t *testing.T) {
	api := newAPI(t)
	loan, err := api.svc.LoanBook("U001", effectiveJava)
	require.NoError(t, err)
	*api.now = api.now.AddDate(0, 0, 2)

	rec := api.do(t, http.MethodPost, "/loans/"+loan.ID()+"/return", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[loanJSON](t, rec)
	assert.Equal(t, "RETURNED", got.Status)
	require.NotNil(t, got.ReturnDate)
	assert.Equal(t, "12/03/2025", *got.ReturnDate)

	assert.Equal(t, http.StatusConflict, api.do(t, http.MethodPost, "/loans/"+loan.ID()+"/return", nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodPost, "/loans/L-999/return", nil).Code)
}

func Test_GetLoan(t *testing.T) {
	api := newAPI(t)
	loan, err := api.svc.LoanBook("U001", effectiveJava)
	require.NoError(t, err)

	rec := api.do(t, http.MethodGet, "/loans/"+loan.ID(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "U001", decode[loanJSON](t, rec).UserID)

	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/loans/L-999", nil).Code)
}

func Test_ListLoans_ByStatus(t *testing.T) {
	api := newAPI(t)
	_, err := api.svc.LoanBook("U001", effectiveJava)
	require.NoError(t, err)
	_, err = api.svc.LoanBookForDays("U002", "978-0596009205", 30)
	require.NoError(t, err)
	*api.now = api.now.AddDate(0, 0, 17)

	assert.Len(t, decode[[]loanJSON](t, api.do(t, http.MethodGet, "/loans", nil)), 2)
	assert.Len(t, decode[[]loanJSON](t, api.do(t, http.MethodGet, "/loans?status=active", nil)), 2)

	overdue := decode[[]loanJSON](t, api.do(t, http.MethodGet, "/loans?status=overdue", nil))
	require.Len(t, overdue, 1)
	assert.Equal(t, "OVERDUE", overdue[0].Status)
	assert.Equal(t, 3, overdue[0].DaysOverdue)
	assert.Equal(t, "1.50", overdue[0].Fine)

	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodGet, "/loans?status=lost", nil).Code)
}

func Test_Stats(t *testing.T) {
	api := newAPI(t)
	_, err := api.svc.LoanBook("U001", effectiveJava)
	require.NoError(t, err)

	stats := decode[map[string]any](t, api.do(t, http.MethodGet, "/stats", nil))

	assert.EqualValues(t, 3, stats["total_books"])
	assert.EqualValues(t, 2, stats["available_books"])
	assert.EqualValues(t, 1, stats["active_loans"])
	assert.Equal(t, "0", stats["accrued_fines"])
}

func Test_ArchiveExport(t *testing.T) {
	api := newAPI(t)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodPost, "/archive", nil).Code)

	db, err := archive.Open(archive.DriverSQLite, "file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = archive.Close(db) })
	r := gin.New()
	handlers.RegisterRoutes(r, api.svc, zerolog.Nop(),
		handlers.WithArchive(archive.NewExporter(db, api.svc, zerolog.Nop())))
	api.router = r
	_, err = api.svc.LoanBook("U001", effectiveJava)
	require.NoError(t, err)

	rec := api.do(t, http.MethodPost, "/archive", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[map[string]any](t, rec)
	assert.EqualValues(t, 3, got["books"])
	assert.EqualValues(t, 2, got["users"])
	assert.EqualValues(t, 1, got["loans"])
	assert.EqualValues(t, 1, got["stored_loans"])

	history := api.do(t, http.MethodGet, "/archive/users/U001/loans", nil)
	require.Equal(t, http.StatusOK, history.Code)
	loans := decode[[]map[string]any](t, history)
	require.Len(t, loans, 1)
	assert.Equal(t, effectiveJava, loans[0]["isbn"])
	assert.Equal(t, "ACTIVE", loans[0]["status"])
	assert.Nil(t, loans[0]["return_date"])
}

// Concurrent requests for the same book must still produce exactly one loan.
func Test_CreateLoan_ConcurrentRequestsLendOnce(t *testing.T) {
	api := newAPI(t)
	const users = 20
	for i := 0; i < users; i++ {
		u, err := models.NewUser(fmt.Sprintf("C%03d", i), "Concurrent", "c@b.com")
		require.NoError(t, err)
		require.NoError(t, api.svc.AddUser(u))
	}

	codes := make([]int, users)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body, _ := jsoniter.Marshal(loanReq(fmt.Sprintf("C%03d", i), effectiveJava))
			req := httptest.NewRequest(http.MethodPost, "/loans", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			<-start
			api.router.ServeHTTP(rec, req)
			codes[i] = rec.Code
		}(i)
	}
	close(start)
	wg.Wait()

	created := 0
	for _, code := range codes {
		if code == http.StatusCreated {
			created++
		} else {
			assert.Equal(t, http.StatusConflict, code)
		}
	}
	assert.Equal(t, 1, created)
	assert.Len(t, api.svc.GetActiveLoans(), 1)
}

func Test_StatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid argument", models.ErrInvalidArgument, http.StatusBadRequest},
		{"invalid data", models.ErrInvalidData, http.StatusBadRequest},
		{"format", models.ErrFormat, http.StatusBadRequest},
		{"not found", services.ErrBookNotFound, http.StatusNotFound},
		{"unknown loan on return", fmt.Errorf("%w: %w", models.ErrInvalidArgument, services.ErrLoanNotFound), http.StatusNotFound},
		{"duplicate", services.ErrBookExists, http.StatusConflict},
		{"conflict", &services.BookAlreadyLoanedError{ISBN: "978-1"}, http.StatusConflict},
		{"already returned", services.ErrLoanAlreadyReturned, http.StatusConflict},
		{"io", models.ErrIO, http.StatusInternalServerError},
		{"unclassified", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, handlers.StatusFor(tt.err))
		})
	}
}
