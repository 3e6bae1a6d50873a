package portfolio

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"StockAdviser/internal/model"
	"StockAdviser/internal/store"
)

var now = time.Date(2025, 3, 3, 14, 30, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(d(want)), "want %s, got %s", want, got)
}

type priceMap map[string]decimal.Decimal

func (p priceMap) Snapshot(_ context.Context, symbol string) (*model.StockSnapshot, bool, error) {
	if symbol == "FAIL" {
		return nil, false, errors.New("provider down")
	}
	price, ok := p[symbol]
	if !ok {
		return nil, false, nil
	}
	return &model.StockSnapshot{Symbol: symbol, Price: price, Timestamp: now}, true, nil
}

func newManager(t *testing.T, maxSize int, prices PriceSource) (*Manager, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	u := &model.User{ID: "u1", CreatedAt: now, UpdatedAt: now, Strategy: model.DefaultTradingStrategy()}
	u.Strategy.MaxPortfolioSize = maxSize
	require.NoError(t, mem.PutUser(context.Background(), u))

	m := NewManager(mem, prices, zap.NewNop().Sugar())
	m.now = func() time.Time { return now }
	n := 0
	m.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return m, mem
}

func TestCreate(t *testing.T) {
	m, _ := newManager(t, 20, nil)
	ctx := context.Background()

	p, err := m.Create(ctx, "u1", "  Growth ", "tech")
	require.NoError(t, err)
	assert.Equal(t, "id-1", p.ID)
	assert.Equal(t, "Growth", p.Name)
	assert.Empty(t, p.Holdings)

	_, err = m.Create(ctx, "u1", " ", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = m.Create(ctx, "ghost", "Growth", "")
	assert.ErrorIs(t, err, store.ErrNotFound)

	renamed, err := m.Rename(ctx, "u1", p.ID, "", "long term")
	require.NoError(t, err)
	assert.Equal(t, "Growth", renamed.Name)
	assert.Equal(t, "long term", renamed.Description)

	list, err := m.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, m.Delete(ctx, "u1", p.ID))
	_, err = m.Get(ctx, "u1", p.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, m.Delete(ctx, "u1", p.ID), store.ErrNotFound)
}

func TestAddHolding_MergesAtWeightedCost(t *testing.T) {
	m, _ := newManager(t, 20, nil)
	ctx := context.Background()
	p, err := m.Create(ctx, "u1", "Growth", "")
	require.NoError(t, err)

	_, err = m.AddHolding(ctx, "u1", p.ID, HoldingInput{Symbol: "aapl", Quantity: d("100"), AverageCostPrice: d("150")})
	require.NoError(t, err)
	p, err = m.AddHolding(ctx, "u1", p.ID, HoldingInput{Symbol: "AAPL", Quantity: d("50"), AverageCostPrice: d("165.5"), CurrentPrice: d("170")})
	require.NoError(t, err)

	require.Len(t, p.Holdings, 1)
	h := p.Holdings[0]
	assert.Equal(t, "AAPL", h.Symbol)
	assert.Equal(t, model.AssetStock, h.AssetType)
	assertDecimal(t, "150", h.Quantity)
	// (100*150 + 50*165.5) / 150 = 155.16666...
	assertDecimal(t, "155.1667", h.AverageCostPrice)
	assertDecimal(t, "170", h.CurrentPrice)
}

func TestAddHolding_RespectsMaxPortfolioSize(t *testing.T) {
	m, _ := newManager(t, 2, nil)
	ctx := context.Background()
	p, err := m.Create(ctx, "u1", "Growth", "")
	require.NoError(t, err)

	for _, sym := range []string{"AAPL", "MSFT"} {
		_, err := m.AddHolding(ctx, "u1", p.ID, HoldingInput{Symbol: sym, Quantity: d("1"), AverageCostPrice: d("10")})
		require.NoError(t, err)
	}
	_, err = m.AddHolding(ctx, "u1", p.ID, HoldingInput{Symbol: "NVDA", Quantity: d("1"), AverageCostPrice: d("10")})
	assert.ErrorIs(t, err, ErrPortfolioFull)

	// Topping up an existing symbol does not grow the portfolio.
	p, err = m.AddHolding(ctx, "u1", p.ID, HoldingInput{Symbol: "MSFT", Quantity: d("1"), AverageCostPrice: d("20")})
	require.NoError(t, err)
	require.Len(t, p.Holdings, 2)
	assertDecimal(t, "15", p.Holdings[1].AverageCostPrice)
}

func TestHoldingValidation(t *testing.T) {
	m, _ := newManager(t, 20, nil)
	ctx := context.Background()
	p, err := m.Create(ctx, "u1", "Growth", "")
	require.NoError(t, err)

	tests := []struct {
		name string
		in   HoldingInput
	}{
		{"no symbol", HoldingInput{Quantity: d("1")}},
		{"zero quantity", HoldingInput{Symbol: "AAPL"}},
		{"negative cost", HoldingInput{Symbol: "AAPL", Quantity: d("1"), AverageCostPrice: d("-1")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.AddHolding(ctx, "u1", p.ID, tt.in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestUpdateAndRemoveHolding(t *testing.T) {
	m, _ := newManager(t, 20, nil)
	ctx := context.Background()
	p, err := m.Create(ctx, "u1", "Growth", "")
	require.NoError(t, err)
	_, err = m.AddHolding(ctx, "u1", p.ID, HoldingInput{Symbol: "AAPL", Quantity: d("10"), AverageCostPrice: d("100")})
	require.NoError(t, err)
	p, err = m.AddHolding(ctx, "u1", p.ID, HoldingInput{Symbol: "MSFT", Quantity: d("5"), AverageCostPrice: d("300")})
	require.NoError(t, err)
	aapl, msft := p.Holdings[0].ID, p.Holdings[1].ID

	p, err = m.UpdateHolding(ctx, "u1", p.ID, aapl, HoldingInput{Symbol: "AAPL", AssetType: model.AssetETF, Quantity: d("12"), AverageCostPrice: d("90"), CurrentPrice: d("120")})
	require.NoError(t, err)
	assert.Equal(t, model.AssetETF, p.Holdings[0].AssetType)
	assertDecimal(t, "12", p.Holdings[0].Quantity)

	_, err = m.UpdateHolding(ctx, "u1", p.ID, aapl, HoldingInput{Symbol: "MSFT", Quantity: d("1")})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = m.UpdateHolding(ctx, "u1", p.ID, "nope", HoldingInput{Symbol: "AAPL", Quantity: d("1")})
	assert.ErrorIs(t, err, ErrHoldingNotFound)

	p, err = m.RemoveHolding(ctx, "u1", p.ID, msft)
	require.NoError(t, err)
	require.Len(t, p.Holdings, 1)
	assert.Equal(t, aapl, p.Holdings[0].ID)

	_, err = m.RemoveHolding(ctx, "u1", p.ID, msft)
	assert.ErrorIs(t, err, ErrHoldingNotFound)
}

func TestRecordTransaction(t *testing.T) {
	m, mem := newManager(t, 20, nil)
	ctx := context.Background()
	p, err := m.Create(ctx, "u1", "Growth", "")
	require.NoError(t, err)
	p, err = m.AddHolding(ctx, "u1", p.ID, HoldingInput{Symbol: "AAPL", Quantity: d("150"), AverageCostPrice: d("155.1667"), CurrentPrice: d("155")})
	require.NoError(t, err)
	hid := p.Holdings[0].ID

	tx, p, err := m.RecordTransaction(ctx, "u1", p.ID, hid, TransactionInput{Type: model.TransactionBuy, Quantity: d("50"), Price: d("160"), Fees: d("7.5")})
	require.NoError(t, err)
	assertDecimal(t, "8000", tx.TotalAmount)
	assert.True(t, tx.Timestamp.Equal(now))
	h := p.Holdings[0]
	assertDecimal(t, "200", h.Quantity)
	// (150*155.1667 + 8000) / 200 = 156.375025
	assertDecimal(t, "156.375", h.AverageCostPrice)
	assertDecimal(t, "160", h.CurrentPrice)

	_, p, err = m.RecordTransaction(ctx, "u1", p.ID, hid, TransactionInput{Type: model.TransactionSell, Quantity: d("20"), Price: d("170")})
	require.NoError(t, err)
	assertDecimal(t, "180", p.Holdings[0].Quantity)
	assertDecimal(t, "156.375", p.Holdings[0].AverageCostPrice)
	assertDecimal(t, "170", p.Holdings[0].CurrentPrice)

	_, _, err = m.RecordTransaction(ctx, "u1", p.ID, hid, TransactionInput{Type: model.TransactionSell, Quantity: d("500"), Price: d("170")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, p, err = m.RecordTransaction(ctx, "u1", p.ID, hid, TransactionInput{Type: model.TransactionSplit, Quantity: d("2")})
	require.NoError(t, err)
	assertDecimal(t, "360", p.Holdings[0].Quantity)
	assertDecimal(t, "78.1875", p.Holdings[0].AverageCostPrice)
	assertDecimal(t, "85", p.Holdings[0].CurrentPrice)

	div, p, err := m.RecordTransaction(ctx, "u1", p.ID, hid, TransactionInput{Type: model.TransactionDividend, Quantity: d("360"), Price: d("0.96")})
	require.NoError(t, err)
	assertDecimal(t, "345.6", div.TotalAmount)
	assertDecimal(t, "360", p.Holdings[0].Quantity)
	assertDecimal(t, "85", p.Holdings[0].CurrentPrice)

	stored, err := mem.GetPortfolio(ctx, "u1", p.ID)
	require.NoError(t, err)
	assertDecimal(t, "360", stored.Holdings[0].Quantity)

	txns, err := m.Transactions(ctx, "u1", p.ID, hid)
	require.NoError(t, err)
	assert.Len(t, txns, 4)
	txns, err = m.Transactions(ctx, "u1", p.ID, "other")
	require.NoError(t, err)
	assert.Empty(t, txns)

	_, err = m.Transactions(ctx, "u2", p.ID, "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecordTransaction_Rejects(t *testing.T) {
	m, _ := newManager(t, 20, nil)
	ctx := context.Background()
	p, err := m.Create(ctx, "u1", "Growth", "")
	require.NoError(t, err)
	p, err = m.AddHolding(ctx, "u1", p.ID, HoldingInput{Symbol: "AAPL", Quantity: d("1"), AverageCostPrice: d("1")})
	require.NoError(t, err)
	hid := p.Holdings[0].ID

	_, _, err = m.RecordTransaction(ctx, "u1", p.ID, hid, TransactionInput{Type: model.TransactionBuy, Price: d("1")})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, _, err = m.RecordTransaction(ctx, "u1", p.ID, hid, TransactionInput{Type: model.TransactionBuy, Quantity: d("1"), Price: d("-1")})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, _, err = m.RecordTransaction(ctx, "u1", p.ID, hid, TransactionInput{Type: "Gift", Quantity: d("1")})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, _, err = m.RecordTransaction(ctx, "u1", p.ID, "nope", TransactionInput{Type: model.TransactionBuy, Quantity: d("1")})
	assert.ErrorIs(t, err, ErrHoldingNotFound)
	_, _, err = m.RecordTransaction(ctx, "u1", "nope", hid, TransactionInput{Type: model.TransactionBuy, Quantity: d("1")})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRevalue(t *testing.T) {
	m, _ := newManager(t, 20, priceMap{"AAPL": d("200")})
	ctx := context.Background()
	p, err := m.Create(ctx, "u1", "Growth", "")
	require.NoError(t, err)
	for _, sym := range []string{"AAPL", "MSFT", "FAIL"} {
		_, err := m.AddHolding(ctx, "u1", p.ID, HoldingInput{Symbol: sym, Quantity: d("10"), AverageCostPrice: d("100")})
		require.NoError(t, err)
	}

	p, n, err := m.Revalue(ctx, "u1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assertDecimal(t, "200", p.Holdings[0].CurrentPrice)
	assertDecimal(t, "100", p.Holdings[1].CurrentPrice)

	v := p.Valuation()
	assertDecimal(t, "4000", v.TotalValue)
	assertDecimal(t, "3000", v.TotalCost)
	assertDecimal(t, "1000", v.TotalGainLoss)
	assertDecimal(t, "33.33", v.TotalGainLossPercentage)

	noPrices, _ := newManager(t, 20, nil)
	_, _, err = noPrices.Revalue(ctx, "u1", p.ID)
	assert.Error(t, err)
}
