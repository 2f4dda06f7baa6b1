package repository

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	apperrors "storefront/internal/errors"
	"storefront/internal/testutil"
)

func TestNewMySQLOrderItemRepository(t *testing.T) {
	db := &sql.DB{}
	repo := NewMySQLOrderItemRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestNullStringRoundTrip(t *testing.T) {
	assert.False(t, nullString(nil).Valid)
	assert.Nil(t, stringPtr(sql.NullString{}))

	s := "x"
	ns := nullString(&s)
	assert.True(t, ns.Valid)
	assert.Equal(t, "x", *stringPtr(ns))
}

func TestOrderItemRepository_FindByOrderIDs_Empty(t *testing.T) {
	repo := NewMySQLOrderItemRepository(nil)

	items, err := repo.FindByOrderIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestOrderItemRepository_PreservesPositionAndPrecision(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	orders := NewMySQLOrderRepository(db)
	itemRepo := NewMySQLOrderItemRepository(db)

	insert(t, db, orders, newOrder("ORD-items-1", "user-1", "alice", time.Now().UTC(),
		domain.LineItem{ProductID: "b", Name: "Second", Price: decimal.RequireFromString("19.995"), Quantity: 3, Description: "d"},
		domain.LineItem{ProductID: "a", Name: "First", Price: decimal.RequireFromString("0.5"), Quantity: 1, Description: "d"},
	))

	items, err := itemRepo.FindByOrderIDs(context.Background(), []string{"ORD-items-1", "ORD-missing"})
	require.NoError(t, err)

	got := items["ORD-items-1"]
	require.Len(t, got, 2)
	assert.Equal(t, "Second", got[0].Name)
	assert.True(t, decimal.RequireFromString("19.995").Equal(got[0].Price))
	assert.Equal(t, 3, got[0].Quantity)
	assert.Equal(t, "First", got[1].Name)
	assert.Empty(t, items["ORD-missing"])
}

func TestBatches(t *testing.T) {
	assert.Empty(t, batches(nil, 3))
	assert.Equal(t, [][]string{{"a", "b"}}, batches([]string{"a", "b"}, 3))
	assert.Equal(t, [][]string{{"a", "b", "c"}}, batches([]string{"a", "b", "c"}, 3))
	assert.Equal(t, [][]string{{"a", "b", "c"}, {"d"}}, batches([]string{"a", "b", "c", "d"}, 3))
}

func TestItemField(t *testing.T) {
	assert.Equal(t, "items.productId", itemField("product_id"))
	assert.Equal(t, "items.qty", itemField("quantity"))
	assert.Equal(t, "items.price", itemField("price"))
	assert.Equal(t, "items", itemField(""))
}

func TestOrderItemRepository_Insert_ValueTooLarge(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	orders := NewMySQLOrderRepository(db)
	order := newOrder("ORD-items-big", "user-1", "alice", time.Now().UTC(),
		domain.LineItem{ProductID: strings.Repeat("p", 300), Name: "Widget", Price: decimal.NewFromInt(1), Quantity: 1, Description: "d"},
	)

	tx, err := db.Begin()
	require.NoError(t, err)
	defer tx.Rollback()

	err = orders.Insert(context.Background(), tx, order)

	ve, ok := apperrors.IsValidationError(err)
	require.True(t, ok, "expected ValidationError, got %v", err)
	require.Len(t, ve.Details, 1)
	assert.Equal(t, "items.productId", ve.Details[0].Field)
}
