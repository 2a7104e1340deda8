package transaction

import (
	"context"
	"fmt"

	"github.com/financeflow/financeflow/internal/event_bus"
	"github.com/financeflow/financeflow/pkg/user"
	log "github.com/sirupsen/logrus"
)

const maxPageSize = 100

type Service interface {
	Create(ctx context.Context, t Transaction) (Transaction, error)
	Get(ctx context.Context, id int) (Transaction, error)
	List(ctx context.Context, filter Filter, page Page) (PageResult, error)
	Update(ctx context.Context, id int, patch Patch) (Transaction, error)
	Delete(ctx context.Context, id int) error
	Stats(ctx context.Context, filter Filter) (Stats, error)
	Export(ctx context.Context, filter Filter) ([]Transaction, error)
}

type ServiceImpl struct {
	repo            Repository
	eventBus        *event_bus.EventBus
	defaultPageSize int
}

func NewService(repo Repository, eventBus *event_bus.EventBus, defaultPageSize int) *ServiceImpl {
	if defaultPageSize <= 0 {
		defaultPageSize = 20
	}
	return &ServiceImpl{repo: repo, eventBus: eventBus, defaultPageSize: defaultPageSize}
}

func (s *ServiceImpl) Create(ctx context.Context, t Transaction) (Transaction, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Transaction{}, err
	}

	created, err := s.repo.Store(ctx, userId, t)
	if err != nil {
		return Transaction{}, err
	}
	s.eventBus.Notify(event_bus.NewEvent(ctx, event_bus.TransactionCreated, changedEvent(userId, created)))
	return created, nil
}

func (s *ServiceImpl) Get(ctx context.Context, id int) (Transaction, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.Get(ctx, userId, id)
}

func (s *ServiceImpl) List(ctx context.Context, filter Filter, page Page) (PageResult, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return PageResult{}, fmt.Errorf("failed to get current user: %w", err)
	}
	page = s.normalizePage(page)

	transactions, total, err := s.repo.List(ctx, userId, filter, page)
	if err != nil {
		return PageResult{}, err
	}
	return PageResult{
		Transactions: transactions,
		Total:        total,
		Page:         page.Number,
		Pages:        (total + page.Size - 1) / page.Size,
	}, nil
}

func (s *ServiceImpl) normalizePage(page Page) Page {
	if page.Number < 1 {
		page.Number = 1
	}
	if page.Size < 1 {
		page.Size = s.defaultPageSize
	}
	if page.Size > maxPageSize {
		page.Size = maxPageSize
	}
	return page
}

func (s *ServiceImpl) Update(ctx context.Context, id int, patch Patch) (Transaction, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to get current user: %w", err)
	}

	existing, err := s.repo.Get(ctx, userId, id)
	if err != nil {
		log.Warnf("transaction %d not updated for user %d: %v", id, userId, err)
		return Transaction{}, err
	}
	changed := patch.applyTo(existing)
	if err := changed.Validate(); err != nil {
		return Transaction{}, err
	}

	updated, err := s.repo.Update(ctx, userId, changed)
	if err != nil {
		return Transaction{}, err
	}
	s.eventBus.Notify(event_bus.NewEvent(ctx, event_bus.TransactionUpdated, changedEvent(userId, updated)))
	return updated, nil
}

func (s *ServiceImpl) Delete(ctx context.Context, id int) error {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}

	existing, err := s.repo.Get(ctx, userId, id)
	if err != nil {
		log.Warnf("transaction %d not deleted for user %d: %v", id, userId, err)
		return err
	}
	if err := s.repo.Delete(ctx, userId, id); err != nil {
		return err
	}
	s.eventBus.Notify(event_bus.NewEvent(ctx, event_bus.TransactionDeleted, changedEvent(userId, existing)))
	return nil
}

func (s *ServiceImpl) Stats(ctx context.Context, filter Filter) (Stats, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to get current user: %w", err)
	}

	income, expenses, err := s.repo.TotalsByType(ctx, userId, filter)
	if err != nil {
		return Stats{}, err
	}
	categories, err := s.repo.ExpensesByCategory(ctx, userId, filter)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Income:     income,
		Expenses:   expenses,
		Balance:    income.Sub(expenses),
		Categories: categories,
	}, nil
}

func (s *ServiceImpl) Export(ctx context.Context, filter Filter) ([]Transaction, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.ListAll(ctx, userId, filter)
}

func changedEvent(userId int, t Transaction) event_bus.TransactionChanged {
	return event_bus.TransactionChanged{
		Id:       t.Id,
		UserId:   userId,
		Type:     string(t.Type),
		Category: t.Category,
		Amount:   t.Amount.String(),
		Date:     t.Date,
	}
}
