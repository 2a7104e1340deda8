package budget

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/financeflow/financeflow/internal/rest"
	"github.com/financeflow/financeflow/pkg/month"
	"github.com/financeflow/financeflow/pkg/user"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type BudgetDTO struct {
	Id         int     `json:"id"`
	Category   string  `json:"category"`
	Limit      float64 `json:"limit"`
	Spent      float64 `json:"spent"`
	Remaining  float64 `json:"remaining"`
	Percentage float64 `json:"percentage"`
	Month      string  `json:"month"`
}

type OverviewDTO struct {
	Month       string      `json:"month"`
	TotalBudget float64     `json:"total_budget"`
	TotalSpent  float64     `json:"total_spent"`
	Remaining   float64     `json:"remaining"`
	Percentage  float64     `json:"percentage"`
	Categories  []BudgetDTO `json:"categories"`
}

type CreateBudgetRequest struct {
	Category string           `json:"category"`
	Limit    *decimal.Decimal `json:"limit"`
	Month    string           `json:"month"`
}

type UpdateBudgetRequest struct {
	Category *string          `json:"category"`
	Limit    *decimal.Decimal `json:"limit"`
	Month    *string          `json:"month"`
}

type BudgetResponse struct {
	Message string    `json:"message,omitempty"`
	Budget  BudgetDTO `json:"budget"`
}

type BudgetListResponse struct {
	Budgets []BudgetDTO `json:"budgets"`
}

type BudgetHandler struct {
	budgetService BudgetService
}

func NewBudgetHandler(budgetService BudgetService) *BudgetHandler {
	return &BudgetHandler{budgetService}
}

// Create godoc
// @Summary Create a monthly category budget
// @Tags Budget
// @Accept json
// @Produce json
// @Param budget body CreateBudgetRequest true "Budget"
// @Success 201 {object} BudgetResponse
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 409 {object} rest.ErrorResponse "Budget already exists for this category and month"
// @Failure 503 {object} rest.ErrorResponse "Budget created, spending figures unavailable"
// @Router /api/budgets [post]
// @Security BearerAuth
func (handler *BudgetHandler) Create(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating new budget")
	var req CreateBudgetRequest
	if !rest.DecodeJSON(w, r, &req) {
		return
	}
	if req.Category == "" || req.Limit == nil || req.Month == "" {
		rest.WriteError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	view, err := handler.budgetService.Create(r.Context(), Budget{
		Category: req.Category,
		Limit:    *req.Limit,
		Month:    req.Month,
	})
	if errors.Is(err, ErrCreatedWithoutFigures) {
		log.Errorf("budget %d created without figures: %v", view.Id, err)
		rest.WriteErrorDetails(w, http.StatusServiceUnavailable, "Budget created, but spending figures are temporarily unavailable", fmt.Sprintf("budget id %d", view.Id))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, BudgetResponse{Message: "Budget created successfully", Budget: ToDTO(view)})
}

// List godoc
// @Summary List budgets with spending figures
// @Tags Budget
// @Produce json
// @Param month query string false "Month (YYYY-MM)"
// @Success 200 {object} BudgetListResponse
// @Failure 400 {object} rest.ErrorResponse "Invalid month"
// @Router /api/budgets [get]
// @Security BearerAuth
func (handler *BudgetHandler) List(w http.ResponseWriter, r *http.Request) {
	views, err := handler.budgetService.List(r.Context(), r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, err)
		return
	}
	dtos := make([]BudgetDTO, 0, len(views))
	for _, v := range views {
		dtos = append(dtos, ToDTO(v))
	}
	rest.WriteJSON(w, http.StatusOK, BudgetListResponse{Budgets: dtos})
}

// Get godoc
// @Summary Get a budget with spending figures
// @Tags Budget
// @Produce json
// @Param id path int true "Budget ID"
// @Success 200 {object} BudgetResponse
// @Failure 404 {object} rest.ErrorResponse "Budget not found"
// @Router /api/budgets/{id} [get]
// @Security BearerAuth
func (handler *BudgetHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := budgetId(w, r)
	if !ok {
		return
	}
	view, err := handler.budgetService.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, BudgetResponse{Budget: ToDTO(view)})
}

// Update godoc
// @Summary Update a budget
// @Description Only the fields present in the body are changed. Figures are recomputed from the updated budget.
// @Tags Budget
// @Accept json
// @Produce json
// @Param id path int true "Budget ID"
// @Param budget body UpdateBudgetRequest true "Changes"
// @Success 200 {object} BudgetResponse
// @Failure 404 {object} rest.ErrorResponse "Budget not found"
// @Failure 409 {object} rest.ErrorResponse "Budget already exists for this category and month"
// @Router /api/budgets/{id} [put]
// @Security BearerAuth
func (handler *BudgetHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := budgetId(w, r)
	if !ok {
		return
	}
	var req UpdateBudgetRequest
	if !rest.DecodeJSON(w, r, &req) {
		return
	}

	view, err := handler.budgetService.Update(r.Context(), id, Patch{
		Limit:    req.Limit,
		Category: req.Category,
		Month:    req.Month,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, BudgetResponse{Message: "Budget updated successfully", Budget: ToDTO(view)})
}

// Delete godoc
// @Summary Delete a budget
// @Tags Budget
// @Produce json
// @Param id path int true "Budget ID"
// @Success 200 {object} rest.MessageResponse
// @Failure 404 {object} rest.ErrorResponse "Budget not found"
// @Router /api/budgets/{id} [delete]
// @Security BearerAuth
func (handler *BudgetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := budgetId(w, r)
	if !ok {
		return
	}
	if err := handler.budgetService.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	rest.WriteMessage(w, http.StatusOK, "Budget deleted successfully")
}

// Overview godoc
// @Summary Monthly budget overview
// @Description Totals across all budgets of a month, defaulting to the current month
// @Tags Budget
// @Produce json
// @Param month query string false "Month (YYYY-MM)"
// @Success 200 {object} OverviewDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid month"
// @Failure 503 {object} rest.ErrorResponse "Store unavailable"
// @Router /api/budgets/overview [get]
// @Security BearerAuth
func (handler *BudgetHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := handler.budgetService.Overview(r.Context(), r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, err)
		return
	}
	categories := make([]BudgetDTO, 0, len(overview.Categories))
	for _, v := range overview.Categories {
		categories = append(categories, ToDTO(v))
	}
	rest.WriteJSON(w, http.StatusOK, OverviewDTO{
		Month:       overview.Month,
		TotalBudget: overview.TotalBudget.InexactFloat64(),
		TotalSpent:  overview.TotalSpent.InexactFloat64(),
		Remaining:   overview.Remaining.InexactFloat64(),
		Percentage:  overview.Percentage.InexactFloat64(),
		Categories:  categories,
	})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, user.ErrNoUser):
		rest.WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
	case errors.Is(err, month.ErrInvalidMonthFormat):
		rest.WriteErrorDetails(w, http.StatusBadRequest, "Invalid month format", err.Error())
	case errors.Is(err, ErrInvalidBudget):
		rest.WriteErrorDetails(w, http.StatusBadRequest, "Invalid budget", err.Error())
	case errors.Is(err, ErrBudgetNotFound):
		rest.WriteError(w, http.StatusNotFound, "Budget not found")
	case errors.Is(err, ErrBudgetAlreadyExists):
		rest.WriteError(w, http.StatusConflict, "Budget already exists for this category and month")
	case errors.Is(err, ErrStoreUnavailable):
		log.Errorf("budget figures unavailable: %v", err)
		rest.WriteError(w, http.StatusServiceUnavailable, "Budget data is temporarily unavailable")
	default:
		log.Errorf("budget request failed: %v", err)
		rest.WriteErrorDetails(w, http.StatusInternalServerError, "Internal server error", err.Error())
	}
}

func budgetId(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		rest.WriteErrorDetails(w, http.StatusBadRequest, "Invalid budget id", err.Error())
		return 0, false
	}
	return id, true
}

func ToDTO(v BudgetView) BudgetDTO {
	return BudgetDTO{
		Id:         v.Id,
		Category:   v.Category,
		Limit:      v.Limit.InexactFloat64(),
		Spent:      v.Spent.InexactFloat64(),
		Remaining:  v.Remaining.InexactFloat64(),
		Percentage: v.Percentage.InexactFloat64(),
		Month:      v.Month,
	}
}
