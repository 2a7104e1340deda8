package budget

import (
	"context"
)

type StubBudgetRepo struct {
	nextId  int
	budgets map[int]ownedBudget
	// Err, when set, is returned by every call.
	Err error
}

type ownedBudget struct {
	userId int
	budget Budget
}

func NewStubBudgetRepo() *StubBudgetRepo {
	return &StubBudgetRepo{budgets: map[int]ownedBudget{}}
}

func (s *StubBudgetRepo) Store(ctx context.Context, userId int, b Budget) (Budget, error) {
	if s.Err != nil {
		return Budget{}, s.Err
	}
	if s.conflicts(userId, b) {
		return Budget{}, ErrBudgetAlreadyExists
	}
	s.nextId++
	b.Id = s.nextId
	s.budgets[b.Id] = ownedBudget{userId: userId, budget: b}
	return b, nil
}

func (s *StubBudgetRepo) Get(ctx context.Context, userId int, id int) (Budget, error) {
	if s.Err != nil {
		return Budget{}, s.Err
	}
	owned, ok := s.budgets[id]
	if !ok || owned.userId != userId {
		return Budget{}, ErrBudgetNotFound
	}
	return owned.budget, nil
}

func (s *StubBudgetRepo) List(ctx context.Context, userId int, monthToken string) ([]Budget, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	budgets := make([]Budget, 0)
	for id := 1; id <= s.nextId; id++ {
		owned, ok := s.budgets[id]
		if !ok || owned.userId != userId {
			continue
		}
		if monthToken != "" && owned.budget.Month != monthToken {
			continue
		}
		budgets = append(budgets, owned.budget)
	}
	return budgets, nil
}

func (s *StubBudgetRepo) Update(ctx context.Context, userId int, b Budget) (Budget, error) {
	if _, err := s.Get(ctx, userId, b.Id); err != nil {
		return Budget{}, err
	}
	if s.conflicts(userId, b) {
		return Budget{}, ErrBudgetAlreadyExists
	}
	s.budgets[b.Id] = ownedBudget{userId: userId, budget: b}
	return b, nil
}

func (s *StubBudgetRepo) Delete(ctx context.Context, userId int, id int) error {
	if _, err := s.Get(ctx, userId, id); err != nil {
		return err
	}
	delete(s.budgets, id)
	return nil
}

func (s *StubBudgetRepo) conflicts(userId int, b Budget) bool {
	for id, owned := range s.budgets {
		if id != b.Id && owned.userId == userId && owned.budget.Category == b.Category && owned.budget.Month == b.Month {
			return true
		}
	}
	return false
}

func (s *StubBudgetRepo) Count() int {
	return len(s.budgets)
}

func (s *StubBudgetRepo) Cleanup() {
	s.nextId = 0
	s.budgets = map[int]ownedBudget{}
	s.Err = nil
}
