package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ltv-attribution-lab/internal/domain"
	"ltv-attribution-lab/internal/storage"
)

var signup = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

func TestCustomerStore_InsertBulkAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCustomerStore(pool)

	err := store.InsertBulk(ctx, []*domain.Customer{
		{CustomerID: 2, ExternalID: "C0002", SignupDate: signup, Country: "MX"},
		{CustomerID: 1, ExternalID: "C0001", SignupDate: signup.AddDate(0, -1, 0), Country: "US"},
	})
	require.NoError(t, err)

	got, err := store.GetByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "C0002", got.ExternalID)
	assert.True(t, got.SignupDate.Equal(signup), "signup date round-trip: %s", got.SignupDate)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(1), all[0].CustomerID)

	_, err = store.GetByID(ctx, 99)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCustomerStore_InsertBulkAtomic(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCustomerStore(pool)

	require.NoError(t, store.InsertBulk(ctx, []*domain.Customer{{CustomerID: 1, SignupDate: signup}}))

	err := store.InsertBulk(ctx, []*domain.Customer{
		{CustomerID: 5, SignupDate: signup},
		{CustomerID: 1, SignupDate: signup},
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, err = store.GetByID(ctx, 5)
	assert.ErrorIs(t, err, storage.ErrNotFound, "COPY must not leave a partial batch")
}

func TestOrderStore_AmountRoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewOrderStore(pool)

	orders := []*domain.Order{
		{OrderID: 1, CustomerID: 1, OrderTS: signup.Add(30 * time.Hour), Amount: decimal.RequireFromString("66.69")},
		{OrderID: 2, CustomerID: 1, OrderTS: signup.Add(2 * time.Hour), Amount: decimal.RequireFromString("0.10")},
		{OrderID: 3, CustomerID: 2, OrderTS: signup, Amount: decimal.NewFromInt(120)},
	}
	require.NoError(t, store.InsertBulk(ctx, orders))

	got, err := store.GetByCustomerID(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].OrderID)
	assert.True(t, got[0].Amount.Equal(decimal.RequireFromString("0.1")))
	assert.True(t, got[1].Amount.Equal(decimal.RequireFromString("66.69")))
	assert.True(t, got[1].OrderTS.Equal(orders[0].OrderTS))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestTouchStore_InsertBulkAndQuery(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTouchStore(pool)

	touches := []*domain.Touch{
		{TouchID: 1, CustomerID: 1, ChannelID: 2, EventTS: signup.Add(time.Hour), Campaign: "Email / 2025", SessionID: "S1", RevenueAtEvent: decimal.RequireFromString("12.50")},
		{TouchID: 2, CustomerID: 1, ChannelID: 3, EventTS: signup, Campaign: "Direct / 2025", SessionID: "S1"},
		{TouchID: 3, CustomerID: 2, ChannelID: 3, EventTS: signup, SessionID: "S2"},
	}
	require.NoError(t, store.InsertBulk(ctx, touches))

	got, err := store.GetByCustomerID(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].TouchID)
	assert.Equal(t, "Email / 2025", got[1].Campaign)
	assert.True(t, got[1].RevenueAtEvent.Equal(decimal.RequireFromString("12.5")), "revenue_at_event round-trip: %s", got[1].RevenueAtEvent)
	assert.True(t, got[0].RevenueAtEvent.IsZero())

	err = store.InsertBulk(ctx, touches[:1])
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestChannelAndSpendStores(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	channels := NewChannelStore(pool)
	spend := NewSpendStore(pool)

	require.NoError(t, channels.Insert(ctx, &domain.Channel{ChannelID: 1, Name: "Google Ads", Group: "Paid Search"}))
	require.NoError(t, channels.Insert(ctx, &domain.Channel{ChannelID: 2, Name: "Email", Group: "Owned"}))
	assert.ErrorIs(t, channels.Insert(ctx, &domain.Channel{ChannelID: 3, Name: "Email"}), storage.ErrDuplicateKey)

	ch, err := channels.GetByName(ctx, "Google Ads")
	require.NoError(t, err)
	assert.Equal(t, "Paid Search", ch.Group)

	_, err = channels.GetByName(ctx, "Referral")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, spend.InsertBulk(ctx, []*domain.MarketingSpend{
		{SpendDate: signup, ChannelID: 2, Spend: decimal.RequireFromString("210.55")},
		{SpendDate: signup, ChannelID: 1, Spend: decimal.Zero},
	}))

	rows, err := spend.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0].ChannelID)
	assert.True(t, rows[1].Spend.Equal(decimal.RequireFromString("210.55")))
	assert.True(t, rows[0].SpendDate.Equal(signup))
}
