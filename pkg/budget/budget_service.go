package budget

import (
	"context"
	"fmt"

	"github.com/financeflow/financeflow/internal/event_bus"
	"github.com/financeflow/financeflow/internal/utils"
	"github.com/financeflow/financeflow/pkg/month"
	"github.com/financeflow/financeflow/pkg/user"
	log "github.com/sirupsen/logrus"
)

type BudgetService interface {
	Create(ctx context.Context, b Budget) (BudgetView, error)
	Get(ctx context.Context, id int) (BudgetView, error)
	// List returns every budget of the user, or only those of monthToken when it is not empty.
	List(ctx context.Context, monthToken string) ([]BudgetView, error)
	Update(ctx context.Context, id int, patch Patch) (BudgetView, error)
	Delete(ctx context.Context, id int) error
	// Overview rolls up the budgets of monthToken, or of the current month when it is empty.
	Overview(ctx context.Context, monthToken string) (Overview, error)
}

type BudgetServiceImpl struct {
	repo       BudgetRepo
	reconciler *Reconciler
	eventBus   *event_bus.EventBus
	clock      utils.Clock
}

func NewBudgetServiceImpl(repo BudgetRepo, aggregator SpendAggregator, eventBus *event_bus.EventBus, clock utils.Clock) *BudgetServiceImpl {
	return &BudgetServiceImpl{
		repo:       repo,
		reconciler: NewReconciler(aggregator, repo),
		eventBus:   eventBus,
		clock:      clock,
	}
}

func (s *BudgetServiceImpl) Create(ctx context.Context, b Budget) (BudgetView, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return BudgetView{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if err := b.Validate(); err != nil {
		return BudgetView{}, err
	}

	created, err := s.repo.Store(ctx, userId, b)
	if err != nil {
		return BudgetView{}, err
	}
	s.eventBus.Notify(event_bus.NewEvent(ctx, event_bus.BudgetCreated, changedEvent(userId, created)))
	view, err := s.reconciler.Reconcile(ctx, userId, created)
	if err != nil {
		return BudgetView{Budget: created}, fmt.Errorf("%w: %w", ErrCreatedWithoutFigures, err)
	}
	return view, nil
}

func (s *BudgetServiceImpl) Get(ctx context.Context, id int) (BudgetView, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return BudgetView{}, fmt.Errorf("failed to get current user: %w", err)
	}
	b, err := s.repo.Get(ctx, userId, id)
	if err != nil {
		return BudgetView{}, err
	}
	return s.reconciler.Reconcile(ctx, userId, b)
}

func (s *BudgetServiceImpl) List(ctx context.Context, monthToken string) ([]BudgetView, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	if monthToken != "" {
		if err := month.Validate(monthToken); err != nil {
			return nil, err
		}
	}
	budgets, err := s.repo.List(ctx, userId, monthToken)
	if err != nil {
		return nil, err
	}
	return s.reconciler.ReconcileEach(ctx, userId, budgets)
}

// Update applies patch and recomputes the figures from the updated budget, so a changed
// category or month is backed by that category's or month's expenses.
func (s *BudgetServiceImpl) Update(ctx context.Context, id int, patch Patch) (BudgetView, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return BudgetView{}, fmt.Errorf("failed to get current user: %w", err)
	}

	existing, err := s.repo.Get(ctx, userId, id)
	if err != nil {
		log.Warnf("budget %d not updated for user %d: %v", id, userId, err)
		return BudgetView{}, err
	}
	changed := patch.applyTo(existing)
	if err := changed.Validate(); err != nil {
		return BudgetView{}, err
	}

	updated, err := s.repo.Update(ctx, userId, changed)
	if err != nil {
		return BudgetView{}, err
	}
	s.eventBus.Notify(event_bus.NewEvent(ctx, event_bus.BudgetUpdated, changedEvent(userId, updated)))
	return s.reconciler.Reconcile(ctx, userId, updated)
}

func (s *BudgetServiceImpl) Delete(ctx context.Context, id int) error {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}
	existing, err := s.repo.Get(ctx, userId, id)
	if err != nil {
		log.Warnf("budget %d not deleted for user %d: %v", id, userId, err)
		return err
	}
	if err := s.repo.Delete(ctx, userId, id); err != nil {
		return err
	}
	s.eventBus.Notify(event_bus.NewEvent(ctx, event_bus.BudgetDeleted, changedEvent(userId, existing)))
	return nil
}

func (s *BudgetServiceImpl) Overview(ctx context.Context, monthToken string) (Overview, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if monthToken == "" {
		monthToken = month.Current(s.clock)
	}
	return s.reconciler.ReconcileAll(ctx, userId, monthToken)
}

func changedEvent(userId int, b Budget) event_bus.BudgetChanged {
	return event_bus.BudgetChanged{
		Id:       b.Id,
		UserId:   userId,
		Category: b.Category,
		Month:    b.Month,
		Limit:    b.Limit.String(),
	}
}
