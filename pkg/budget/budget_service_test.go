package budget

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/financeflow/financeflow/internal/event_bus"
	"github.com/financeflow/financeflow/internal/utils"
	"github.com/financeflow/financeflow/pkg/month"
	"github.com/financeflow/financeflow/pkg/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = user.WithUser(context.Background(), user.User{Id: 1})
var otherUserCtx = user.WithUser(context.Background(), user.User{Id: 2})

var budgetRepoStub = NewStubBudgetRepo()
var aggregator *stubAggregator
var eventBus *event_bus.EventBus
var clock = &utils.MockClock{FixedNow: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)}

var service BudgetService

func setup(t *testing.T) func() {
	aggregator = &stubAggregator{}
	eventBus = event_bus.NewEventBus()
	service = NewBudgetServiceImpl(budgetRepoStub, aggregator, eventBus, clock)
	return func() {
		t.Log("Teardown after test")
		budgetRepoStub.Cleanup()
	}
}

func TestBudgetServiceImpl_Create(t *testing.T) {
	t.Run("should create budget with current figures", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		aggregator.add(1, "food", "120", day(2024, time.March, 5))
		var published []event_bus.BudgetChanged
		event_bus.SubscribeTyped(eventBus, event_bus.BudgetCreated, func(e event_bus.EventT[event_bus.BudgetChanged]) error {
			published = append(published, e.Data)
			return nil
		})

		// when
		view, err := service.Create(ctx, Budget{Category: "food", Limit: dec("500"), Month: "2024-03"})

		// then
		require.NoError(t, err)
		assert.NotZero(t, view.Id)
		assert.True(t, dec("120").Equal(view.Spent))
		assert.True(t, dec("380").Equal(view.Remaining))
		require.Len(t, published, 1)
		assert.Equal(t, "2024-03", published[0].Month)
	})

	t.Run("should report stored budget when figures cannot be derived", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		aggregator.err = errors.New("connection refused")

		// when
		view, err := service.Create(ctx, Budget{Category: "food", Limit: dec("500"), Month: "2024-03"})

		// then
		assert.ErrorIs(t, err, ErrCreatedWithoutFigures)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.NotZero(t, view.Id)
		_, getErr := budgetRepoStub.Get(ctx, 1, view.Id)
		assert.NoError(t, getErr)
	})

	t.Run("should reject second budget for the same category and month", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		_, err := service.Create(ctx, Budget{Category: "food", Limit: dec("500"), Month: "2024-03"})
		require.NoError(t, err)

		// when
		_, err = service.Create(ctx, Budget{Category: "food", Limit: dec("100"), Month: "2024-03"})

		// then
		assert.ErrorIs(t, err, ErrBudgetAlreadyExists)
	})

	t.Run("should allow the same category for another user or month", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		_, err := service.Create(ctx, Budget{Category: "food", Limit: dec("500"), Month: "2024-03"})
		require.NoError(t, err)
		_, err = service.Create(ctx, Budget{Category: "food", Limit: dec("500"), Month: "2024-04"})
		assert.NoError(t, err)
		_, err = service.Create(otherUserCtx, Budget{Category: "food", Limit: dec("500"), Month: "2024-03"})
		assert.NoError(t, err)
	})

	t.Run("should reject malformed month", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		_, err := service.Create(ctx, Budget{Category: "food", Limit: dec("500"), Month: "March"})

		assert.ErrorIs(t, err, month.ErrInvalidMonthFormat)
	})
}

func TestBudgetServiceImpl_Get(t *testing.T) {
	t.Run("should not expose budget of another user", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		created, err := service.Create(otherUserCtx, Budget{Category: "food", Limit: dec("500"), Month: "2024-03"})
		require.NoError(t, err)

		// when
		_, err = service.Get(ctx, created.Id)

		// then
		assert.ErrorIs(t, err, ErrBudgetNotFound)
	})

	t.Run("should recompute figures on every read", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		created, err := service.Create(ctx, Budget{Category: "food", Limit: dec("500"), Month: "2024-03"})
		require.NoError(t, err)
		aggregator.add(1, "food", "75", day(2024, time.March, 30))

		// when
		view, err := service.Get(ctx, created.Id)

		// then
		require.NoError(t, err)
		assert.True(t, dec("75").Equal(view.Spent))
		assert.True(t, dec("15").Equal(view.Percentage))
	})
}

func TestBudgetServiceImpl_List(t *testing.T) {
	teardown := setup(t)
	defer teardown()

	// given
	aggregator.add(1, "food", "50", day(2024, time.March, 1))
	aggregator.add(1, "food", "20", day(2024, time.April, 1))
	_, err := service.Create(ctx, Budget{Category: "food", Limit: dec("100"), Month: "2024-03"})
	require.NoError(t, err)
	_, err = service.Create(ctx, Budget{Category: "food", Limit: dec("100"), Month: "2024-04"})
	require.NoError(t, err)

	// when
	all, err := service.List(ctx, "")
	require.NoError(t, err)
	april, err := service.List(ctx, "2024-04")
	require.NoError(t, err)
	_, invalidErr := service.List(ctx, "04-2024")

	// then
	require.Len(t, all, 2)
	assert.True(t, dec("50").Equal(all[0].Spent))
	assert.True(t, dec("20").Equal(all[1].Spent))
	require.Len(t, april, 1)
	assert.Equal(t, "2024-04", april[0].Month)
	assert.ErrorIs(t, invalidErr, month.ErrInvalidMonthFormat)
}

func TestBudgetServiceImpl_Update(t *testing.T) {
	t.Run("should recompute with the updated category and month", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		aggregator.add(1, "food", "120", day(2024, time.March, 5))
		aggregator.add(1, "transport", "40", day(2024, time.April, 5))
		created, err := service.Create(ctx, Budget{Category: "food", Limit: dec("500"), Month: "2024-03"})
		require.NoError(t, err)
		category, m, limit := "transport", "2024-04", dec("80")

		// when
		view, err := service.Update(ctx, created.Id, Patch{Category: &category, Month: &m, Limit: &limit})

		// then
		require.NoError(t, err)
		assert.Equal(t, "transport", view.Category)
		assert.True(t, dec("40").Equal(view.Spent))
		assert.True(t, dec("40").Equal(view.Remaining))
		assert.True(t, dec("50").Equal(view.Percentage))
	})

	t.Run("should map collisions to already exists", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		_, err := service.Create(ctx, Budget{Category: "food", Limit: dec("500"), Month: "2024-03"})
		require.NoError(t, err)
		other, err := service.Create(ctx, Budget{Category: "fun", Limit: dec("50"), Month: "2024-03"})
		require.NoError(t, err)
		category := "food"

		// when
		_, err = service.Update(ctx, other.Id, Patch{Category: &category})

		// then
		assert.ErrorIs(t, err, ErrBudgetAlreadyExists)
	})

	t.Run("should not update budget of another user", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		created, err := service.Create(otherUserCtx, Budget{Category: "food", Limit: dec("500"), Month: "2024-03"})
		require.NoError(t, err)
		limit := dec("1")

		_, err = service.Update(ctx, created.Id, Patch{Limit: &limit})

		assert.ErrorIs(t, err, ErrBudgetNotFound)
	})
}

func TestBudgetServiceImpl_Delete(t *testing.T) {
	teardown := setup(t)
	defer teardown()

	// given
	created, err := service.Create(ctx, Budget{Category: "food", Limit: dec("500"), Month: "2024-03"})
	require.NoError(t, err)

	// when
	require.ErrorIs(t, service.Delete(otherUserCtx, created.Id), ErrBudgetNotFound)
	require.NoError(t, service.Delete(ctx, created.Id))

	// then
	_, err = service.Get(ctx, created.Id)
	assert.ErrorIs(t, err, ErrBudgetNotFound)
}

func TestBudgetServiceImpl_Overview(t *testing.T) {
	t.Run("should default to the current month", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		_, err := service.Create(ctx, Budget{Category: "food", Limit: dec("500"), Month: "2024-03"})
		require.NoError(t, err)
		aggregator.add(1, "food", "100", day(2024, time.March, 2))

		// when
		overview, err := service.Overview(ctx, "")

		// then
		require.NoError(t, err)
		assert.Equal(t, "2024-03", overview.Month)
		assert.True(t, dec("20").Equal(overview.Percentage))
	})

	t.Run("should return error when context has no user", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		_, err := service.Overview(context.Background(), "2024-03")

		assert.ErrorIs(t, err, user.ErrNoUser)
	})
}
