package budget

import (
	"context"
	"errors"
	"fmt"

	"github.com/financeflow/financeflow/internal/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// uniqueBudgetConstraint allows one budget per user, category and month.
const uniqueBudgetConstraint = "budget_user_category_month_key"

type BudgetRepo interface {
	Store(ctx context.Context, userId int, b Budget) (Budget, error)
	Get(ctx context.Context, userId int, id int) (Budget, error)
	// List returns the user's budgets in storage order, limited to monthToken unless it is empty.
	List(ctx context.Context, userId int, monthToken string) ([]Budget, error)
	Update(ctx context.Context, userId int, b Budget) (Budget, error)
	Delete(ctx context.Context, userId int, id int) error
}

type BudgetRepoImpl struct {
	db *pgxpool.Pool
}

func NewBudgetRepo(db *pgxpool.Pool) *BudgetRepoImpl {
	return &BudgetRepoImpl{db: db}
}

func (r *BudgetRepoImpl) Store(ctx context.Context, userId int, b Budget) (Budget, error) {
	query := `INSERT INTO budgets (user_id, category, amount_limit, month)
				VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query, userId, b.Category, b.Limit, b.Month).
		Scan(&b.Id, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, uniqueBudgetConstraint) {
			log.Debugf("budget %s/%s already exists for user %d", b.Category, b.Month, userId)
			return Budget{}, ErrBudgetAlreadyExists
		}
		err := fmt.Errorf("could not store budget: %w", err)
		log.Error(err)
		return Budget{}, err
	}
	return b, nil
}

func (r *BudgetRepoImpl) Get(ctx context.Context, userId int, id int) (Budget, error) {
	query := `SELECT id, category, amount_limit, month, created_at, updated_at
				FROM budgets WHERE id = $1 AND user_id = $2`
	var b Budget
	err := r.db.QueryRow(ctx, query, id, userId).
		Scan(&b.Id, &b.Category, &b.Limit, &b.Month, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Budget{}, ErrBudgetNotFound
	} else if err != nil {
		err := fmt.Errorf("could not get budget %d: %w", id, err)
		log.Error(err)
		return Budget{}, err
	}
	return b, nil
}

func (r *BudgetRepoImpl) List(ctx context.Context, userId int, monthToken string) ([]Budget, error) {
	query := `SELECT id, category, amount_limit, month, created_at, updated_at
				FROM budgets WHERE user_id = $1 AND ($2 = '' OR month = $2) ORDER BY id`
	rows, err := r.db.Query(ctx, query, userId, monthToken)
	if err != nil {
		err := fmt.Errorf("could not list budgets: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	budgets := make([]Budget, 0)
	for rows.Next() {
		var b Budget
		if err := rows.Scan(&b.Id, &b.Category, &b.Limit, &b.Month, &b.CreatedAt, &b.UpdatedAt); err != nil {
			err := fmt.Errorf("could not scan budget: %w", err)
			log.Error(err)
			return nil, err
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating budgets: %w", err)
		log.Error(err)
		return nil, err
	}
	return budgets, nil
}

func (r *BudgetRepoImpl) Update(ctx context.Context, userId int, b Budget) (Budget, error) {
	query := `UPDATE budgets SET category = $1, amount_limit = $2, month = $3, updated_at = now()
				WHERE id = $4 AND user_id = $5
				RETURNING created_at, updated_at`
	err := r.db.QueryRow(ctx, query, b.Category, b.Limit, b.Month, b.Id, userId).
		Scan(&b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		log.Infof("no rows affected of updating budget %d for user %d", b.Id, userId)
		return Budget{}, ErrBudgetNotFound
	} else if err != nil {
		if database.IsUniqueViolation(err, uniqueBudgetConstraint) {
			return Budget{}, ErrBudgetAlreadyExists
		}
		err := fmt.Errorf("could not update budget %d: %w", b.Id, err)
		log.Error(err)
		return Budget{}, err
	}
	return b, nil
}

func (r *BudgetRepoImpl) Delete(ctx context.Context, userId int, id int) error {
	result, err := r.db.Exec(ctx, `DELETE FROM budgets WHERE id = $1 AND user_id = $2`, id, userId)
	if err != nil {
		err := fmt.Errorf("could not delete budget %d: %w", id, err)
		log.Error(err)
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrBudgetNotFound
	}
	return nil
}
