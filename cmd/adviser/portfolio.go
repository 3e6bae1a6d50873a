package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"StockAdviser/internal/model"
	"StockAdviser/internal/portfolio"
)

// portfolioView adds the computed valuation to the stored portfolio.
type portfolioView struct {
	*model.Portfolio
	Valuation model.Valuation `json:"valuation"`
}

func viewOf(p *model.Portfolio) portfolioView {
	return portfolioView{Portfolio: p, Valuation: p.Valuation()}
}

func newPortfolioCmd(withApp appRunner) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Manage portfolios, holdings and transactions",
	}
	cmd.PersistentFlags().StringVar(&userID, "user", "", "user id")
	cmd.MarkPersistentFlagRequired("user")

	var name, description string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an empty portfolio",
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app) error {
			p, err := a.portfolios.Create(ctx, userID, name, description)
			if err != nil {
				return err
			}
			return printJSON(cmd, viewOf(p))
		}),
	}
	create.Flags().StringVar(&name, "name", "", "portfolio name")
	create.Flags().StringVar(&description, "description", "", "portfolio description")
	create.MarkFlagRequired("name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List the user's portfolios",
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app) error {
			ps, err := a.portfolios.List(ctx, userID)
			if err != nil {
				return err
			}
			views := make([]portfolioView, len(ps))
			for i, p := range ps {
				views[i] = viewOf(p)
			}
			return printJSON(cmd, views)
		}),
	}

	var id string
	var revalue bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Show one portfolio, optionally marked at the latest prices",
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app) error {
			var p *model.Portfolio
			var err error
			if revalue {
				var n int
				p, n, err = a.portfolios.Revalue(ctx, userID, id)
				if err == nil {
					a.log.Infow("portfolio revalued", "portfolio_id", id, "updated", n)
				}
			} else {
				p, err = a.portfolios.Get(ctx, userID, id)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, viewOf(p))
		}),
	}
	show.Flags().BoolVar(&revalue, "revalue", false, "update holdings from market snapshots first")

	rename := &cobra.Command{
		Use:   "rename",
		Short: "Change a portfolio's name or description",
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app) error {
			p, err := a.portfolios.Rename(ctx, userID, id, name, description)
			if err != nil {
				return err
			}
			return printJSON(cmd, viewOf(p))
		}),
	}
	rename.Flags().StringVar(&name, "name", "", "new name (empty keeps the current one)")
	rename.Flags().StringVar(&description, "description", "", "new description")

	remove := &cobra.Command{
		Use:   "delete",
		Short: "Delete a portfolio and its transactions",
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app) error {
			if err := a.portfolios.Delete(ctx, userID, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted portfolio %s\n", id)
			return nil
		}),
	}

	var h holdingFlags
	addHolding := &cobra.Command{
		Use:   "add-holding",
		Short: "Add a holding, merging into an existing one for the same symbol",
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app) error {
			in, err := h.input()
			if err != nil {
				return err
			}
			p, err := a.portfolios.AddHolding(ctx, userID, id, in)
			if err != nil {
				return err
			}
			return printJSON(cmd, viewOf(p))
		}),
	}
	h.register(addHolding)

	var holdingID string
	var uh holdingFlags
	updateHolding := &cobra.Command{
		Use:   "update-holding",
		Short: "Overwrite a holding's values",
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app) error {
			in, err := uh.input()
			if err != nil {
				return err
			}
			p, err := a.portfolios.UpdateHolding(ctx, userID, id, holdingID, in)
			if err != nil {
				return err
			}
			return printJSON(cmd, viewOf(p))
		}),
	}
	uh.register(updateHolding)
	updateHolding.Flags().StringVar(&holdingID, "holding", "", "holding id")
	updateHolding.MarkFlagRequired("holding")

	removeHolding := &cobra.Command{
		Use:   "remove-holding",
		Short: "Remove a holding",
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app) error {
			p, err := a.portfolios.RemoveHolding(ctx, userID, id, holdingID)
			if err != nil {
				return err
			}
			return printJSON(cmd, viewOf(p))
		}),
	}
	removeHolding.Flags().StringVar(&holdingID, "holding", "", "holding id")
	removeHolding.MarkFlagRequired("holding")

	var tf transactionFlags
	trade := &cobra.Command{
		Use:   "trade",
		Short: "Record a buy, sell, dividend or split against a holding",
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app) error {
			in, err := tf.input()
			if err != nil {
				return err
			}
			tx, p, err := a.portfolios.RecordTransaction(ctx, userID, id, holdingID, in)
			if err != nil {
				return err
			}
			return printJSON(cmd, struct {
				Transaction *model.Transaction `json:"transaction"`
				Portfolio   portfolioView      `json:"portfolio"`
			}{tx, viewOf(p)})
		}),
	}
	tf.register(trade)
	trade.Flags().StringVar(&holdingID, "holding", "", "holding id")
	trade.MarkFlagRequired("holding")

	transactions := &cobra.Command{
		Use:   "transactions",
		Short: "List a portfolio's transactions, newest first",
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app) error {
			txs, err := a.portfolios.Transactions(ctx, userID, id, holdingID)
			if err != nil {
				return err
			}
			return printJSON(cmd, txs)
		}),
	}
	transactions.Flags().StringVar(&holdingID, "holding", "", "only this holding")

	for _, c := range []*cobra.Command{show, rename, remove, addHolding, updateHolding, removeHolding, trade, transactions} {
		c.Flags().StringVar(&id, "id", "", "portfolio id")
		c.MarkFlagRequired("id")
	}
	cmd.AddCommand(create, list, show, rename, remove, addHolding, updateHolding, removeHolding, trade, transactions)
	return cmd
}

type holdingFlags struct {
	symbol, assetType, quantity, cost, price string
}

func (f *holdingFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.symbol, "symbol", "", "ticker symbol")
	cmd.Flags().StringVar(&f.assetType, "asset-type", "", "Stock, Option, ETF, Bond, Crypto or Commodity (default Stock)")
	cmd.Flags().StringVar(&f.quantity, "quantity", "", "quantity held")
	cmd.Flags().StringVar(&f.cost, "cost", "", "average cost price")
	cmd.Flags().StringVar(&f.price, "price", "", "current price (default: cost)")
	cmd.MarkFlagRequired("symbol")
	cmd.MarkFlagRequired("quantity")
	cmd.MarkFlagRequired("cost")
}

func (f *holdingFlags) input() (portfolio.HoldingInput, error) {
	assetType, err := model.ParseAssetType(f.assetType)
	if err != nil {
		return portfolio.HoldingInput{}, err
	}
	qty, err := parseDecimal("quantity", f.quantity)
	if err != nil {
		return portfolio.HoldingInput{}, err
	}
	cost, err := parseDecimal("cost", f.cost)
	if err != nil {
		return portfolio.HoldingInput{}, err
	}
	price, err := parseDecimal("price", f.price)
	if err != nil {
		return portfolio.HoldingInput{}, err
	}
	return portfolio.HoldingInput{
		Symbol:           f.symbol,
		AssetType:        assetType,
		Quantity:         qty,
		AverageCostPrice: cost,
		CurrentPrice:     price,
	}, nil
}

type transactionFlags struct {
	kind, quantity, price, fees, notes, at string
}

func (f *transactionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.kind, "type", "", "Buy, Sell, Dividend or Split")
	cmd.Flags().StringVar(&f.quantity, "quantity", "", "quantity, or the ratio for a split")
	cmd.Flags().StringVar(&f.price, "price", "", "price per unit")
	cmd.Flags().StringVar(&f.fees, "fees", "", "fees paid")
	cmd.Flags().StringVar(&f.notes, "notes", "", "free-form notes")
	cmd.Flags().StringVar(&f.at, "at", "", "RFC3339 timestamp (default now)")
	cmd.MarkFlagRequired("type")
	cmd.MarkFlagRequired("quantity")
}

func (f *transactionFlags) input() (portfolio.TransactionInput, error) {
	kind, err := model.ParseTransactionType(f.kind)
	if err != nil {
		return portfolio.TransactionInput{}, err
	}
	in := portfolio.TransactionInput{Type: kind, Notes: f.notes}
	if in.Quantity, err = parseDecimal("quantity", f.quantity); err != nil {
		return portfolio.TransactionInput{}, err
	}
	if in.Price, err = parseDecimal("price", f.price); err != nil {
		return portfolio.TransactionInput{}, err
	}
	if in.Fees, err = parseDecimal("fees", f.fees); err != nil {
		return portfolio.TransactionInput{}, err
	}
	if f.at != "" {
		if in.Timestamp, err = time.Parse(time.RFC3339, f.at); err != nil {
			return portfolio.TransactionInput{}, fmt.Errorf("invalid --at %q: %w", f.at, err)
		}
	}
	return in, nil
}

// parseDecimal treats an empty value as zero.
func parseDecimal(name, v string) (decimal.Decimal, error) {
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	return d, nil
}
