package transaction

import (
	"context"
	"sort"

	"github.com/financeflow/financeflow/pkg/month"
	"github.com/shopspring/decimal"
)

type RepositoryStub struct {
	nextId       int
	transactions map[int]stored
	// Err, when set, is returned by every read and write.
	Err error
}

type stored struct {
	userId int
	tx     Transaction
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{transactions: map[int]stored{}}
}

func (s *RepositoryStub) Store(ctx context.Context, userId int, t Transaction) (Transaction, error) {
	if s.Err != nil {
		return Transaction{}, s.Err
	}
	s.nextId++
	t.Id = s.nextId
	s.transactions[t.Id] = stored{userId: userId, tx: t}
	return t, nil
}

func (s *RepositoryStub) Get(ctx context.Context, userId int, id int) (Transaction, error) {
	if s.Err != nil {
		return Transaction{}, s.Err
	}
	st, ok := s.transactions[id]
	if !ok || st.userId != userId {
		return Transaction{}, ErrTransactionNotFound
	}
	return st.tx, nil
}

func (s *RepositoryStub) List(ctx context.Context, userId int, filter Filter, page Page) ([]Transaction, int, error) {
	all, err := s.ListAll(ctx, userId, filter)
	if err != nil {
		return nil, 0, err
	}
	start := min(page.offset(), len(all))
	end := min(start+page.Size, len(all))
	return all[start:end], len(all), nil
}

func (s *RepositoryStub) ListAll(ctx context.Context, userId int, filter Filter) ([]Transaction, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	result := make([]Transaction, 0)
	for _, st := range s.transactions {
		if st.userId == userId && matches(st.tx, filter) {
			result = append(result, st.tx)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date.Equal(result[j].Date) {
			return result[i].Id > result[j].Id
		}
		return result[i].Date.After(result[j].Date)
	})
	return result, nil
}

func (s *RepositoryStub) Update(ctx context.Context, userId int, t Transaction) (Transaction, error) {
	if _, err := s.Get(ctx, userId, t.Id); err != nil {
		return Transaction{}, err
	}
	s.transactions[t.Id] = stored{userId: userId, tx: t}
	return t, nil
}

func (s *RepositoryStub) Delete(ctx context.Context, userId int, id int) error {
	if _, err := s.Get(ctx, userId, id); err != nil {
		return err
	}
	delete(s.transactions, id)
	return nil
}

func (s *RepositoryStub) SumExpenses(ctx context.Context, userId int, category string, rng month.Range) (decimal.Decimal, error) {
	if s.Err != nil {
		return decimal.Zero, s.Err
	}
	sum := decimal.Zero
	for _, st := range s.transactions {
		if st.userId == userId && st.tx.Type == Expense && st.tx.Category == category && rng.Contains(st.tx.Date) {
			sum = sum.Add(st.tx.Amount)
		}
	}
	return sum, nil
}

func (s *RepositoryStub) TotalsByType(ctx context.Context, userId int, filter Filter) (decimal.Decimal, decimal.Decimal, error) {
	all, err := s.ListAll(ctx, userId, filter)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	income, expenses := decimal.Zero, decimal.Zero
	for _, t := range all {
		if t.Type == Income {
			income = income.Add(t.Amount)
		} else {
			expenses = expenses.Add(t.Amount)
		}
	}
	return income, expenses, nil
}

func (s *RepositoryStub) ExpensesByCategory(ctx context.Context, userId int, filter Filter) ([]CategoryTotal, error) {
	filter.Type = Expense
	all, err := s.ListAll(ctx, userId, filter)
	if err != nil {
		return nil, err
	}
	byCategory := map[string]decimal.Decimal{}
	for _, t := range all {
		byCategory[t.Category] = byCategory[t.Category].Add(t.Amount)
	}
	totals := make([]CategoryTotal, 0, len(byCategory))
	for category, amount := range byCategory {
		totals = append(totals, CategoryTotal{Category: category, Amount: amount})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Amount.Equal(totals[j].Amount) {
			return totals[i].Category < totals[j].Category
		}
		return totals[i].Amount.GreaterThan(totals[j].Amount)
	})
	return totals, nil
}

func (s *RepositoryStub) Cleanup() {
	s.nextId = 0
	s.transactions = map[int]stored{}
	s.Err = nil
}

func matches(t Transaction, filter Filter) bool {
	if filter.Category != "" && t.Category != filter.Category {
		return false
	}
	if filter.Type != "" && t.Type != filter.Type {
		return false
	}
	if filter.From != nil && t.Date.Before(*filter.From) {
		return false
	}
	if filter.To != nil && t.Date.After(*filter.To) {
		return false
	}
	return true
}
