package app

import (
	"net/http"

	"github.com/financeflow/financeflow/internal/rest"
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		rest.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	// Auth (public)
	r.HandleFunc("/api/auth/register", deps.AuthHandler.Register).Methods("POST")
	r.HandleFunc("/api/auth/login", deps.AuthHandler.Login).Methods("POST")
	r.HandleFunc("/api/auth/refresh", deps.AuthHandler.Refresh).Methods("POST")
	r.HandleFunc("/api/auth/forgot-password", deps.AuthHandler.ForgotPassword).Methods("POST")
	r.HandleFunc("/api/auth/reset-password", deps.AuthHandler.ResetPassword).Methods("POST")

	// Everything below requires a valid access token
	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(RequireUser(deps.AuthService))

	// Account
	protected.HandleFunc("/auth/change-password", deps.AuthHandler.ChangePassword).Methods("POST")
	protected.HandleFunc("/auth/profile", deps.UserHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/auth/profile", deps.UserHandler.UpdateProfile).Methods("PUT")

	// Transactions
	protected.HandleFunc("/transactions", deps.TransactionHandler.Create).Methods("POST")
	protected.HandleFunc("/transactions", deps.TransactionHandler.List).Methods("GET")
	protected.HandleFunc("/transactions/stats", deps.TransactionHandler.Stats).Methods("GET")
	protected.HandleFunc("/transactions/export", deps.TransactionHandler.Export).Methods("GET")
	protected.HandleFunc("/transactions/{id:[0-9]+}", deps.TransactionHandler.Get).Methods("GET")
	protected.HandleFunc("/transactions/{id:[0-9]+}", deps.TransactionHandler.Update).Methods("PUT")
	protected.HandleFunc("/transactions/{id:[0-9]+}", deps.TransactionHandler.Delete).Methods("DELETE")

	// Budgets
	protected.HandleFunc("/budgets", deps.BudgetHandler.Create).Methods("POST")
	protected.HandleFunc("/budgets", deps.BudgetHandler.List).Methods("GET")
	protected.HandleFunc("/budgets/overview", deps.BudgetHandler.Overview).Methods("GET")
	protected.HandleFunc("/budgets/{id:[0-9]+}", deps.BudgetHandler.Get).Methods("GET")
	protected.HandleFunc("/budgets/{id:[0-9]+}", deps.BudgetHandler.Update).Methods("PUT")
	protected.HandleFunc("/budgets/{id:[0-9]+}", deps.BudgetHandler.Delete).Methods("DELETE")
}
