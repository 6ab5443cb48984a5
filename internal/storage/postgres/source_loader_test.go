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

func sourceTables(customers int) *storage.SourceTables {
	src := &storage.SourceTables{
		Channels: []*domain.Channel{
			{ChannelID: 1, Name: "Google Ads", Group: "Paid Search"},
			{ChannelID: 2, Name: "Email", Group: "Owned"},
		},
	}
	for i := 1; i <= customers; i++ {
		id := int64(i)
		orderID := id
		src.Customers = append(src.Customers, &domain.Customer{CustomerID: id, SignupDate: signup, Country: "US"})
		src.Orders = append(src.Orders, &domain.Order{OrderID: id, CustomerID: id, OrderTS: signup.Add(48 * time.Hour), Amount: decimal.NewFromInt(50)})
		src.Touches = append(src.Touches, &domain.Touch{TouchID: id, CustomerID: id, ChannelID: 1, EventTS: signup.Add(time.Hour)})
		src.Events = append(src.Events,
			&domain.Event{EventID: 2*id - 1, CustomerID: id, ChannelID: 2, EventTS: signup.Add(2 * time.Hour), EventType: domain.EventViewProduct},
			&domain.Event{EventID: 2 * id, CustomerID: id, ChannelID: 1, EventTS: signup.Add(48 * time.Hour), EventType: domain.EventPurchase, OrderID: &orderID},
		)
	}
	src.Spend = []*domain.MarketingSpend{{SpendDate: signup, ChannelID: 1, Spend: decimal.RequireFromString("100.00")}}
	return src
}

func TestSourceLoader_ReplaceSourcesTwice(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	loader := NewSourceLoader(pool)
	attribution := NewAttributionStore(pool)

	require.NoError(t, loader.ReplaceSources(ctx, sourceTables(3)))
	require.NoError(t, attribution.ReplaceAll(ctx, []*domain.AttributionRow{
		{OrderID: 1, Model: domain.ModelLastTouch, ChannelID: 1, Weight: 1, AttributedRevenue: decimal.NewFromInt(50)},
	}))

	require.NoError(t, loader.ReplaceSources(ctx, sourceTables(2)))

	customers, err := NewCustomerStore(pool).GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, customers, 2)

	channels, err := NewChannelStore(pool).GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, channels, 2)

	events, err := NewEventStore(pool).GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Nil(t, events[0].OrderID)
	require.NotNil(t, events[1].OrderID)
	assert.Equal(t, int64(1), *events[1].OrderID)

	rows, err := attribution.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows, "derived tables are cleared on reload")
}

func TestSourceLoader_FailedReloadKeepsPreviousRows(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	loader := NewSourceLoader(pool)
	require.NoError(t, loader.ReplaceSources(ctx, sourceTables(3)))

	bad := sourceTables(1)
	bad.Touches = append(bad.Touches, &domain.Touch{TouchID: 1, CustomerID: 1, ChannelID: 2, EventTS: signup})
	err := loader.ReplaceSources(ctx, bad)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	customers, err := NewCustomerStore(pool).GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, customers, 3, "rollback keeps the previous load")

	touches, err := NewTouchStore(pool).GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, touches, 3)

	assert.ErrorIs(t, loader.ReplaceSources(ctx, nil), storage.ErrInvalidInput)
}

func TestEventStore_InsertBulkAndGetAll(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewEventStore(pool)
	orderID := int64(7)
	productID := int64(301)

	events := []*domain.Event{
		{EventID: 2, CustomerID: 1, ChannelID: 1, EventTS: signup.Add(time.Hour), EventType: domain.EventPurchase, OrderID: &orderID},
		{EventID: 1, CustomerID: 1, ChannelID: 2, EventTS: signup, EventType: domain.EventAddToCart, ProductID: &productID},
	}
	require.NoError(t, store.InsertBulk(ctx, events))

	got, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.EventAddToCart, got[0].EventType)
	require.NotNil(t, got[0].ProductID)
	assert.Equal(t, productID, *got[0].ProductID)
	assert.Nil(t, got[0].OrderID)
	assert.True(t, got[1].EventTS.Equal(signup.Add(time.Hour)))

	assert.ErrorIs(t, store.InsertBulk(ctx, events[:1]), storage.ErrDuplicateKey)
	assert.ErrorIs(t, store.InsertBulk(ctx, []*domain.Event{
		{EventID: 9, CustomerID: 1, ChannelID: 1, EventTS: signup, EventType: "refund"},
	}), storage.ErrInvalidInput)
}
