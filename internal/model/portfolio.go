package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AssetType classifies a holding.
type AssetType string

const (
	AssetStock     AssetType = "Stock"
	AssetOption    AssetType = "Option"
	AssetETF       AssetType = "ETF"
	AssetBond      AssetType = "Bond"
	AssetCrypto    AssetType = "Crypto"
	AssetCommodity AssetType = "Commodity"
)

var assetTypes = []AssetType{AssetStock, AssetOption, AssetETF, AssetBond, AssetCrypto, AssetCommodity}

// ParseAssetType matches s case-insensitively. An empty string is a Stock.
func ParseAssetType(s string) (AssetType, error) {
	if s == "" {
		return AssetStock, nil
	}
	for _, a := range assetTypes {
		if strings.EqualFold(string(a), s) {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown asset type %q", s)
}

// TransactionType is the kind of portfolio transaction.
type TransactionType string

const (
	TransactionBuy      TransactionType = "Buy"
	TransactionSell     TransactionType = "Sell"
	TransactionDividend TransactionType = "Dividend"
	TransactionSplit    TransactionType = "Split"
)

// ParseTransactionType matches s case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	for _, t := range []TransactionType{TransactionBuy, TransactionSell, TransactionDividend, TransactionSplit} {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown transaction type %q", s)
}

// Holding is a position in one symbol.
type Holding struct {
	ID               string          `json:"id"`
	Symbol           string          `json:"symbol"`
	AssetType        AssetType       `json:"assetType"`
	Quantity         decimal.Decimal `json:"quantity"`
	AverageCostPrice decimal.Decimal `json:"averageCostPrice"`
	CurrentPrice     decimal.Decimal `json:"currentPrice"`
	LastUpdated      time.Time       `json:"lastUpdated"`
}

func (h Holding) TotalCost() decimal.Decimal    { return h.Quantity.Mul(h.AverageCostPrice) }
func (h Holding) CurrentValue() decimal.Decimal { return h.Quantity.Mul(h.CurrentPrice) }
func (h Holding) GainLoss() decimal.Decimal     { return h.CurrentValue().Sub(h.TotalCost()) }

// GainLossPercentage is zero when the holding has no cost basis.
func (h Holding) GainLossPercentage() decimal.Decimal {
	return percentOf(h.GainLoss(), h.TotalCost())
}

// Portfolio is a named set of holdings owned by one user.
type Portfolio struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Holdings    []Holding `json:"holdings"`
}

// Valuation is the aggregate of a portfolio's holdings.
type Valuation struct {
	TotalValue              decimal.Decimal `json:"totalValue"`
	TotalCost               decimal.Decimal `json:"totalCost"`
	TotalGainLoss           decimal.Decimal `json:"totalGainLoss"`
	TotalGainLossPercentage decimal.Decimal `json:"totalGainLossPercentage"`
}

// Valuation sums the holdings at their current prices.
func (p *Portfolio) Valuation() Valuation {
	v := Valuation{TotalValue: decimal.Zero, TotalCost: decimal.Zero}
	for _, h := range p.Holdings {
		v.TotalValue = v.TotalValue.Add(h.CurrentValue())
		v.TotalCost = v.TotalCost.Add(h.TotalCost())
	}
	v.TotalGainLoss = v.TotalValue.Sub(v.TotalCost)
	v.TotalGainLossPercentage = percentOf(v.TotalGainLoss, v.TotalCost)
	return v
}

// HoldingIndex returns the position of the holding with id, or -1.
func (p *Portfolio) HoldingIndex(id string) int {
	for i := range p.Holdings {
		if p.Holdings[i].ID == id {
			return i
		}
	}
	return -1
}

// HoldingBySymbol returns the position of the holding for symbol, or -1.
func (p *Portfolio) HoldingBySymbol(symbol string) int {
	for i := range p.Holdings {
		if strings.EqualFold(p.Holdings[i].Symbol, symbol) {
			return i
		}
	}
	return -1
}

// Transaction records a trade or corporate action against a holding. For a
// Split, Quantity is the split ratio.
type Transaction struct {
	ID          string          `json:"id"`
	PortfolioID string          `json:"portfolioId"`
	HoldingID   string          `json:"holdingId"`
	UserID      string          `json:"userId"`
	Type        TransactionType `json:"type"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Fees        decimal.Decimal `json:"fees"`
	Notes       string          `json:"notes"`
	Timestamp   time.Time       `json:"timestamp"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).RoundBank(2)
}
