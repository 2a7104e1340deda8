package transaction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/financeflow/financeflow/pkg/month"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	Store(ctx context.Context, userId int, t Transaction) (Transaction, error)
	Get(ctx context.Context, userId int, id int) (Transaction, error)
	List(ctx context.Context, userId int, filter Filter, page Page) ([]Transaction, int, error)
	ListAll(ctx context.Context, userId int, filter Filter) ([]Transaction, error)
	Update(ctx context.Context, userId int, t Transaction) (Transaction, error)
	Delete(ctx context.Context, userId int, id int) error
	SumExpenses(ctx context.Context, userId int, category string, r month.Range) (decimal.Decimal, error)
	TotalsByType(ctx context.Context, userId int, filter Filter) (income decimal.Decimal, expenses decimal.Decimal, err error)
	ExpensesByCategory(ctx context.Context, userId int, filter Filter) ([]CategoryTotal, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const selectColumns = `SELECT id, amount, category, type, description, date, created_at, updated_at FROM transactions`

func (r *RepositoryImpl) Store(ctx context.Context, userId int, t Transaction) (Transaction, error) {
	query := `INSERT INTO transactions (user_id, amount, category, type, description, date)
				VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		userId,
		t.Amount,
		t.Category,
		string(t.Type),
		t.Description,
		t.Date,
	).Scan(&t.Id, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		err := fmt.Errorf("could not store transaction: %w", err)
		log.Error(err)
		return Transaction{}, err
	}
	return t, nil
}

func (r *RepositoryImpl) Get(ctx context.Context, userId int, id int) (Transaction, error) {
	row := r.db.QueryRow(ctx, selectColumns+` WHERE id = $1 AND user_id = $2`, id, userId)
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrTransactionNotFound
	} else if err != nil {
		err := fmt.Errorf("could not get transaction %d: %w", id, err)
		log.Error(err)
		return Transaction{}, err
	}
	return t, nil
}

func (r *RepositoryImpl) List(ctx context.Context, userId int, filter Filter, page Page) ([]Transaction, int, error) {
	where, args := whereClause(userId, filter)

	var total int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&total)
	if err != nil {
		err := fmt.Errorf("could not count transactions: %w", err)
		log.Error(err)
		return nil, 0, err
	}

	args = append(args, page.Size, page.offset())
	query := selectColumns + where +
		fmt.Sprintf(` ORDER BY date DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	transactions, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return transactions, total, nil
}

func (r *RepositoryImpl) ListAll(ctx context.Context, userId int, filter Filter) ([]Transaction, error) {
	where, args := whereClause(userId, filter)
	return r.query(ctx, selectColumns+where+` ORDER BY date DESC, id DESC`, args...)
}

func (r *RepositoryImpl) query(ctx context.Context, query string, args ...any) ([]Transaction, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("could not query transactions: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	transactions := make([]Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			err := fmt.Errorf("could not scan transaction: %w", err)
			log.Error(err)
			return nil, err
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating transactions: %w", err)
		log.Error(err)
		return nil, err
	}
	return transactions, nil
}

func (r *RepositoryImpl) Update(ctx context.Context, userId int, t Transaction) (Transaction, error) {
	query := `UPDATE transactions
				SET amount = $1, category = $2, type = $3, description = $4, date = $5, updated_at = now()
				WHERE id = $6 AND user_id = $7
				RETURNING created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		t.Amount,
		t.Category,
		string(t.Type),
		t.Description,
		t.Date,
		t.Id,
		userId,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrTransactionNotFound
	} else if err != nil {
		err := fmt.Errorf("could not update transaction %d: %w", t.Id, err)
		log.Error(err)
		return Transaction{}, err
	}
	return t, nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, userId int, id int) error {
	result, err := r.db.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, userId)
	if err != nil {
		err := fmt.Errorf("could not delete transaction %d: %w", id, err)
		log.Error(err)
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// SumExpenses returns the total amount of the user's expenses in category whose date falls
// into rng. It returns zero when nothing matches.
func (r *RepositoryImpl) SumExpenses(ctx context.Context, userId int, category string, rng month.Range) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM transactions
				WHERE user_id = $1 AND category = $2 AND type = 'expense' AND date >= $3 AND date < $4`
	var sum decimal.Decimal
	err := r.db.QueryRow(ctx, query, userId, category, rng.Start, rng.End).Scan(&sum)
	if err != nil {
		err := fmt.Errorf("could not sum expenses for %s in %s: %w", category, rng, err)
		log.Error(err)
		return decimal.Zero, err
	}
	return sum, nil
}

func (r *RepositoryImpl) TotalsByType(ctx context.Context, userId int, filter Filter) (decimal.Decimal, decimal.Decimal, error) {
	where, args := whereClause(userId, filter)
	rows, err := r.db.Query(ctx, `SELECT type, COALESCE(SUM(amount), 0) FROM transactions`+where+` GROUP BY type`, args...)
	if err != nil {
		err := fmt.Errorf("could not aggregate transactions: %w", err)
		log.Error(err)
		return decimal.Zero, decimal.Zero, err
	}
	defer rows.Close()

	income, expenses := decimal.Zero, decimal.Zero
	for rows.Next() {
		var txType string
		var total decimal.Decimal
		if err := rows.Scan(&txType, &total); err != nil {
			err := fmt.Errorf("could not scan totals: %w", err)
			log.Error(err)
			return decimal.Zero, decimal.Zero, err
		}
		switch Type(txType) {
		case Income:
			income = total
		case Expense:
			expenses = total
		}
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return income, expenses, nil
}

func (r *RepositoryImpl) ExpensesByCategory(ctx context.Context, userId int, filter Filter) ([]CategoryTotal, error) {
	filter.Type = Expense
	where, args := whereClause(userId, filter)
	query := `SELECT category, SUM(amount) AS total FROM transactions` + where +
		` GROUP BY category ORDER BY total DESC, category`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("could not aggregate categories: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	totals := make([]CategoryTotal, 0)
	for rows.Next() {
		var c CategoryTotal
		if err := rows.Scan(&c.Category, &c.Amount); err != nil {
			err := fmt.Errorf("could not scan category total: %w", err)
			log.Error(err)
			return nil, err
		}
		totals = append(totals, c)
	}
	return totals, rows.Err()
}

func whereClause(userId int, filter Filter) (string, []any) {
	conditions := []string{"user_id = $1"}
	args := []any{userId}
	add := func(condition string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}
	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if filter.Type != "" {
		add("type = $%d", string(filter.Type))
	}
	if filter.From != nil {
		add("date >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("date <= $%d", *filter.To)
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var t Transaction
	var txType string
	err := row.Scan(
		&t.Id,
		&t.Amount,
		&t.Category,
		&txType,
		&t.Description,
		&t.Date,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	t.Type = Type(txType)
	return t, err
}
