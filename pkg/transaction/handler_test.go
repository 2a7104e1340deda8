package transaction

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/financeflow/financeflow/internal/rest"
	"github.com/financeflow/financeflow/pkg/user"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withUser is a middleware that puts the given user in the request context
func withUser(userId int, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(user.WithUser(r.Context(), user.User{Id: userId})))
	})
}

func setupRouter(t *testing.T) http.Handler {
	teardown := setup(t)
	t.Cleanup(teardown)
	handler := NewHandler(service, NewCsvRenderer())

	r := mux.NewRouter()
	r.HandleFunc("/api/transactions", handler.Create).Methods("POST")
	r.HandleFunc("/api/transactions", handler.List).Methods("GET")
	r.HandleFunc("/api/transactions/stats", handler.Stats).Methods("GET")
	r.HandleFunc("/api/transactions/export", handler.Export).Methods("GET")
	r.HandleFunc("/api/transactions/{id:[0-9]+}", handler.Get).Methods("GET")
	r.HandleFunc("/api/transactions/{id:[0-9]+}", handler.Update).Methods("PUT")
	r.HandleFunc("/api/transactions/{id:[0-9]+}", handler.Delete).Methods("DELETE")
	return withUser(1, r)
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_Create(t *testing.T) {
	t.Run("should create transaction", func(t *testing.T) {
		router := setupRouter(t)

		// when
		w := do(t, router, http.MethodPost, "/api/transactions", map[string]any{
			"amount": 120.5, "category": "food", "type": "expense", "date": "2024-03-05T12:00:00Z",
		})

		// then
		require.Equal(t, http.StatusCreated, w.Code)
		var resp TransactionResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "Transaction created successfully", resp.Message)
		assert.Equal(t, 120.5, resp.Transaction.Amount)
		assert.Equal(t, "2024-03-05T12:00:00Z", resp.Transaction.Date)
	})

	t.Run("should require amount category type and date", func(t *testing.T) {
		router := setupRouter(t)

		// when
		w := do(t, router, http.MethodPost, "/api/transactions", map[string]any{"amount": 1, "category": "food"})

		// then
		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp rest.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "Missing required fields", resp.Error)
	})

	t.Run("should reject amount with more than two decimal places", func(t *testing.T) {
		router := setupRouter(t)

		// when
		w := do(t, router, http.MethodPost, "/api/transactions", json.RawMessage(`{"amount": 0.004, "category": "food", "type": "expense", "date": "2024-03-05"}`))

		// then
		require.Equal(t, http.StatusBadRequest, w.Code)
		var resp rest.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Contains(t, resp.Details, "two decimal places")
	})

	t.Run("should reject amount that does not fit the store", func(t *testing.T) {
		router := setupRouter(t)

		w := do(t, router, http.MethodPost, "/api/transactions", json.RawMessage(`{"amount": 1e12, "category": "food", "type": "expense", "date": "2024-03-05"}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("should reject unknown type", func(t *testing.T) {
		router := setupRouter(t)

		// when
		w := do(t, router, http.MethodPost, "/api/transactions", map[string]any{
			"amount": 1, "category": "food", "type": "transfer", "date": "2024-03-05",
		})

		// then
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_GetUpdateDelete(t *testing.T) {
	router := setupRouter(t)
	created, err := service.Create(user.WithUser(t.Context(), user.User{Id: 1}),
		expense("food", "10", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	path := "/api/transactions/" + strconv.Itoa(created.Id)

	w := do(t, router, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodPut, path, map[string]any{"amount": 15, "description": "lunch"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp TransactionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 15.0, resp.Transaction.Amount)
	assert.Equal(t, "lunch", resp.Transaction.Description)
	assert.Equal(t, "food", resp.Transaction.Category)

	w = do(t, router, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_List(t *testing.T) {
	t.Run("should filter by date range and type", func(t *testing.T) {
		router := setupRouter(t)
		userCtx := user.WithUser(t.Context(), user.User{Id: 1})
		for _, day := range []int{1, 15, 31} {
			_, err := service.Create(userCtx, expense("food", "10", time.Date(2024, 3, day, 18, 0, 0, 0, time.UTC)))
			require.NoError(t, err)
		}

		// when
		w := do(t, router, http.MethodGet, "/api/transactions?type=expense&start_date=2024-03-15&end_date=2024-03-31&limit=10", nil)

		// then
		require.Equal(t, http.StatusOK, w.Code)
		var resp TransactionPageDTO
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, 2, resp.Total)
		assert.Equal(t, 1, resp.Pages)
		require.Len(t, resp.Transactions, 2)
		assert.Equal(t, "2024-03-31T18:00:00Z", resp.Transactions[0].Date)
	})

	t.Run("should reject invalid query parameters", func(t *testing.T) {
		router := setupRouter(t)

		for _, query := range []string{"page=0", "limit=abc", "type=gift", "start_date=yesterday"} {
			w := do(t, router, http.MethodGet, "/api/transactions?"+query, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, query)
		}
	})
}

func TestHandler_Export(t *testing.T) {
	router := setupRouter(t)
	userCtx := user.WithUser(t.Context(), user.User{Id: 1})
	_, err := service.Create(userCtx, expense("food", "10", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	// when
	w := do(t, router, http.MethodGet, "/api/transactions/export", nil)

	// then
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=transactions.csv", w.Header().Get("Content-Disposition"))
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "2024-03-01,expense,food,10.00,", lines[1])
}

func TestHandler_Stats(t *testing.T) {
	router := setupRouter(t)
	userCtx := user.WithUser(t.Context(), user.User{Id: 1})
	_, err := service.Create(userCtx, expense("food", "10.25", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	// when
	w := do(t, router, http.MethodGet, "/api/transactions/stats?category=ignored", nil)

	// then
	require.Equal(t, http.StatusOK, w.Code)
	var resp StatsDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 10.25, resp.Expenses)
	assert.Equal(t, -10.25, resp.Balance)
	require.Len(t, resp.Categories, 1)
	assert.Equal(t, "food", resp.Categories[0].Category)
}
