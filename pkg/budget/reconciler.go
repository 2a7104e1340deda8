package budget

import (
	"context"
	"fmt"

	"github.com/financeflow/financeflow/pkg/month"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const reconcileConcurrency = 4

// SpendAggregator sums a user's expenses in one category over a month range.
type SpendAggregator interface {
	SumExpenses(ctx context.Context, userId int, category string, r month.Range) (decimal.Decimal, error)
}

// BudgetLister loads the budgets a reconciliation covers.
type BudgetLister interface {
	List(ctx context.Context, userId int, monthToken string) ([]Budget, error)
}

// Reconciler derives spent, remaining and percentage figures for budgets.
type Reconciler struct {
	aggregator SpendAggregator
	budgets    BudgetLister
}

func NewReconciler(aggregator SpendAggregator, budgets BudgetLister) *Reconciler {
	return &Reconciler{aggregator: aggregator, budgets: budgets}
}

// Reconcile computes the view of one budget against the expenses of its own month.
func (r *Reconciler) Reconcile(ctx context.Context, userId int, b Budget) (BudgetView, error) {
	rng, err := month.Resolve(b.Month)
	if err != nil {
		return BudgetView{}, err
	}
	return r.reconcileIn(ctx, userId, b, rng)
}

func (r *Reconciler) reconcileIn(ctx context.Context, userId int, b Budget, rng month.Range) (BudgetView, error) {
	spent, err := r.aggregator.SumExpenses(ctx, userId, b.Category, rng)
	if err != nil {
		return BudgetView{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return NewView(b, spent), nil
}

// ReconcileEach reconciles budgets that may belong to different months, keeping their order.
func (r *Reconciler) ReconcileEach(ctx context.Context, userId int, budgets []Budget) ([]BudgetView, error) {
	return r.fanOut(ctx, budgets, func(ctx context.Context, b Budget) (BudgetView, error) {
		return r.Reconcile(ctx, userId, b)
	})
}

// ReconcileAll builds the overview of all the user's budgets for monthToken. The month is
// resolved once and shared by every budget.
func (r *Reconciler) ReconcileAll(ctx context.Context, userId int, monthToken string) (Overview, error) {
	rng, err := month.Resolve(monthToken)
	if err != nil {
		return Overview{}, err
	}

	budgets, err := r.budgets.List(ctx, userId, monthToken)
	if err != nil {
		return Overview{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	views, err := r.fanOut(ctx, budgets, func(ctx context.Context, b Budget) (BudgetView, error) {
		return r.reconcileIn(ctx, userId, b, rng)
	})
	if err != nil {
		return Overview{}, err
	}

	overview := Overview{
		Month:       monthToken,
		TotalBudget: decimal.Zero,
		TotalSpent:  decimal.Zero,
		Categories:  views,
	}
	for _, v := range views {
		overview.TotalBudget = overview.TotalBudget.Add(v.Limit)
		overview.TotalSpent = overview.TotalSpent.Add(v.Spent)
	}
	overview.Remaining = overview.TotalBudget.Sub(overview.TotalSpent)
	overview.Percentage = percentage(overview.TotalSpent, overview.TotalBudget)

	log.Debugf("reconciled %d budgets of user %d for %s", len(views), userId, monthToken)
	return overview, nil
}

// fanOut runs reconcile for every budget with bounded concurrency. Results are written by
// index so the output order matches the input. The first failure cancels the rest.
func (r *Reconciler) fanOut(ctx context.Context, budgets []Budget, reconcile func(context.Context, Budget) (BudgetView, error)) ([]BudgetView, error) {
	views := make([]BudgetView, len(budgets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileConcurrency)
	for i, b := range budgets {
		g.Go(func() error {
			v, err := reconcile(gctx, b)
			if err != nil {
				return err
			}
			views[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}
