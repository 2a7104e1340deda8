package transaction

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/financeflow/financeflow/internal/rest"
	"github.com/financeflow/financeflow/pkg/user"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const dateOnlyLayout = "2006-01-02"

type TransactionDTO struct {
	Id          int     `json:"id"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	CreatedAt   string  `json:"created_at"`
}

type CreateTransactionRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	Category    string           `json:"category"`
	Type        string           `json:"type"`
	Description string           `json:"description"`
	Date        string           `json:"date"`
}

type UpdateTransactionRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	Category    *string          `json:"category"`
	Type        *string          `json:"type"`
	Description *string          `json:"description"`
	Date        *string          `json:"date"`
}

type TransactionResponse struct {
	Message     string         `json:"message,omitempty"`
	Transaction TransactionDTO `json:"transaction"`
}

type TransactionPageDTO struct {
	Transactions []TransactionDTO `json:"transactions"`
	Total        int              `json:"total"`
	Page         int              `json:"page"`
	Pages        int              `json:"pages"`
}

type CategoryTotalDTO struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

type StatsDTO struct {
	Income     float64            `json:"income"`
	Expenses   float64            `json:"expenses"`
	Balance    float64            `json:"balance"`
	Categories []CategoryTotalDTO `json:"categories"`
}

type Handler struct {
	service  Service
	renderer CsvRenderer
}

func NewHandler(service Service, renderer CsvRenderer) *Handler {
	return &Handler{service: service, renderer: renderer}
}

// Create godoc
// @Summary Record a transaction
// @Tags Transaction
// @Accept json
// @Produce json
// @Param transaction body CreateTransactionRequest true "Transaction"
// @Success 201 {object} TransactionResponse
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Router /api/transactions [post]
// @Security BearerAuth
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating transaction")
	var req CreateTransactionRequest
	if !rest.DecodeJSON(w, r, &req) {
		return
	}
	if req.Amount == nil || req.Category == "" || req.Type == "" || req.Date == "" {
		rest.WriteError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	date, _, err := parseDate(req.Date)
	if err != nil {
		rest.WriteErrorDetails(w, http.StatusBadRequest, "Invalid date format", err.Error())
		return
	}

	created, err := h.service.Create(r.Context(), Transaction{
		Amount:      *req.Amount,
		Category:    req.Category,
		Type:        Type(req.Type),
		Description: req.Description,
		Date:        date,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, TransactionResponse{
		Message:     "Transaction created successfully",
		Transaction: toDTO(created),
	})
}

// List godoc
// @Summary List transactions
// @Description Newest first, paginated
// @Tags Transaction
// @Produce json
// @Param page query int false "Page number, starting at 1"
// @Param limit query int false "Page size"
// @Param category query string false "Category"
// @Param type query string false "income or expense"
// @Param start_date query string false "Inclusive lower bound (RFC3339 or YYYY-MM-DD)"
// @Param end_date query string false "Inclusive upper bound (RFC3339 or YYYY-MM-DD)"
// @Success 200 {object} TransactionPageDTO
// @Router /api/transactions [get]
// @Security BearerAuth
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}
	page, ok := parsePage(w, r)
	if !ok {
		return
	}

	result, err := h.service.List(r.Context(), filter, page)
	if err != nil {
		writeError(w, err)
		return
	}
	dtos := make([]TransactionDTO, 0, len(result.Transactions))
	for _, t := range result.Transactions {
		dtos = append(dtos, toDTO(t))
	}
	rest.WriteJSON(w, http.StatusOK, TransactionPageDTO{
		Transactions: dtos,
		Total:        result.Total,
		Page:         result.Page,
		Pages:        result.Pages,
	})
}

// Get godoc
// @Summary Get a transaction
// @Tags Transaction
// @Produce json
// @Param id path int true "Transaction ID"
// @Success 200 {object} TransactionResponse
// @Failure 404 {object} rest.ErrorResponse "Transaction not found"
// @Router /api/transactions/{id} [get]
// @Security BearerAuth
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathId(w, r)
	if !ok {
		return
	}
	t, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, TransactionResponse{Transaction: toDTO(t)})
}

// Update godoc
// @Summary Update a transaction
// @Description Only the fields present in the body are changed
// @Tags Transaction
// @Accept json
// @Produce json
// @Param id path int true "Transaction ID"
// @Param transaction body UpdateTransactionRequest true "Changes"
// @Success 200 {object} TransactionResponse
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 404 {object} rest.ErrorResponse "Transaction not found"
// @Router /api/transactions/{id} [put]
// @Security BearerAuth
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathId(w, r)
	if !ok {
		return
	}
	var req UpdateTransactionRequest
	if !rest.DecodeJSON(w, r, &req) {
		return
	}

	patch := Patch{
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
	}
	if req.Type != nil {
		txType := Type(*req.Type)
		patch.Type = &txType
	}
	if req.Date != nil {
		date, _, err := parseDate(*req.Date)
		if err != nil {
			rest.WriteErrorDetails(w, http.StatusBadRequest, "Invalid date format", err.Error())
			return
		}
		patch.Date = &date
	}

	updated, err := h.service.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, TransactionResponse{
		Message:     "Transaction updated successfully",
		Transaction: toDTO(updated),
	})
}

// Delete godoc
// @Summary Delete a transaction
// @Tags Transaction
// @Produce json
// @Param id path int true "Transaction ID"
// @Success 200 {object} rest.MessageResponse
// @Failure 404 {object} rest.ErrorResponse "Transaction not found"
// @Router /api/transactions/{id} [delete]
// @Security BearerAuth
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathId(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	rest.WriteMessage(w, http.StatusOK, "Transaction deleted successfully")
}

// Stats godoc
// @Summary Income, expenses and per-category spending
// @Tags Transaction
// @Produce json
// @Param start_date query string false "Inclusive lower bound"
// @Param end_date query string false "Inclusive upper bound"
// @Success 200 {object} StatsDTO
// @Router /api/transactions/stats [get]
// @Security BearerAuth
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}
	// only the date range applies to stats
	filter.Category = ""
	filter.Type = ""

	stats, err := h.service.Stats(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	categories := make([]CategoryTotalDTO, 0, len(stats.Categories))
	for _, c := range stats.Categories {
		categories = append(categories, CategoryTotalDTO{Category: c.Category, Amount: c.Amount.InexactFloat64()})
	}
	rest.WriteJSON(w, http.StatusOK, StatsDTO{
		Income:     stats.Income.InexactFloat64(),
		Expenses:   stats.Expenses.InexactFloat64(),
		Balance:    stats.Balance.InexactFloat64(),
		Categories: categories,
	})
}

// Export godoc
// @Summary Export transactions as CSV
// @Tags Transaction
// @Produce text/csv
// @Param category query string false "Category"
// @Param type query string false "income or expense"
// @Param start_date query string false "Inclusive lower bound"
// @Param end_date query string false "Inclusive upper bound"
// @Success 200 {string} string "CSV file"
// @Router /api/transactions/export [get]
// @Security BearerAuth
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}
	transactions, err := h.service.Export(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	body, err := h.renderer.Render(transactions)
	if err != nil {
		rest.WriteErrorDetails(w, http.StatusInternalServerError, "Failed to render CSV", err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=transactions.csv")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		log.Errorf("failed to write csv response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, user.ErrNoUser):
		rest.WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
	case errors.Is(err, ErrTransactionNotFound):
		rest.WriteError(w, http.StatusNotFound, "Transaction not found")
	case errors.Is(err, ErrInvalidTransaction):
		rest.WriteErrorDetails(w, http.StatusBadRequest, "Invalid transaction", err.Error())
	default:
		log.Errorf("transaction request failed: %v", err)
		rest.WriteErrorDetails(w, http.StatusInternalServerError, "Internal server error", err.Error())
	}
}

func pathId(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		rest.WriteErrorDetails(w, http.StatusBadRequest, "Invalid transaction id", err.Error())
		return 0, false
	}
	return id, true
}

func parseFilter(w http.ResponseWriter, r *http.Request) (Filter, bool) {
	q := r.URL.Query()
	filter := Filter{Category: q.Get("category")}
	if txType := q.Get("type"); txType != "" {
		filter.Type = Type(txType)
		if !filter.Type.Valid() {
			rest.WriteError(w, http.StatusBadRequest, "Type must be income or expense")
			return Filter{}, false
		}
	}
	if raw := q.Get("start_date"); raw != "" {
		from, _, err := parseDate(raw)
		if err != nil {
			rest.WriteErrorDetails(w, http.StatusBadRequest, "Invalid start_date format", err.Error())
			return Filter{}, false
		}
		filter.From = &from
	}
	if raw := q.Get("end_date"); raw != "" {
		to, dateOnly, err := parseDate(raw)
		if err != nil {
			rest.WriteErrorDetails(w, http.StatusBadRequest, "Invalid end_date format", err.Error())
			return Filter{}, false
		}
		if dateOnly {
			// a bare date covers the whole day
			to = to.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		filter.To = &to
	}
	return filter, true
}

func parsePage(w http.ResponseWriter, r *http.Request) (Page, bool) {
	var page Page
	for name, target := range map[string]*int{"page": &page.Number, "limit": &page.Size} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil || value < 1 {
			rest.WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s parameter", name))
			return Page{}, false
		}
		*target = value
	}
	return page, true
}

// parseDate accepts RFC3339 timestamps and bare YYYY-MM-DD dates (midnight UTC).
func parseDate(value string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), false, nil
	}
	t, err := time.Parse(dateOnlyLayout, value)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("expected RFC3339 or YYYY-MM-DD, got %q", value)
	}
	return t, true, nil
}

func toDTO(t Transaction) TransactionDTO {
	return TransactionDTO{
		Id:          t.Id,
		Amount:      t.Amount.InexactFloat64(),
		Category:    t.Category,
		Type:        string(t.Type),
		Description: t.Description,
		Date:        t.Date.UTC().Format(time.RFC3339),
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
	}
}
