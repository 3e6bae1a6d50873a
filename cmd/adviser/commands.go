package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"StockAdviser/internal/model"
	"StockAdviser/internal/notifier"
	"StockAdviser/internal/profile"
	"StockAdviser/internal/scheduler"
	"StockAdviser/internal/store"
	"StockAdviser/internal/tracker"
)

func newRootCmd() *cobra.Command {
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:           "adviser",
		Short:         "StockAdviser - scored stock recommendations per user",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "configuration file (default configs/config.yaml or $CONFIG_PATH)")

	withApp := func(run func(ctx context.Context, cmd *cobra.Command, a *app) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			a, err := newApp(ctx, cfgPath)
			if err != nil {
				return err
			}
			defer a.close()
			return run(ctx, cmd, a)
		}
	}

	rootCmd.AddCommand(
		newRunCmd(withApp),
		newGenerateCmd(withApp),
		newExecuteCmd(withApp),
		newCancelCmd(withApp),
		newSweepCmd(withApp),
		newListCmd(withApp),
		newUsersCmd(withApp),
		newPortfolioCmd(withApp),
	)
	return rootCmd
}

type appRunner func(run func(ctx context.Context, cmd *cobra.Command, a *app) error) func(*cobra.Command, []string) error

func newRunCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the scheduler until interrupted",
		RunE: withApp(func(ctx context.Context, _ *cobra.Command, a *app) error {
			var n scheduler.Notifier
			var tn *notifier.TelegramNotifier
			if a.cfg.TelegramEnabled() {
				tn = notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.Proxy, a.log)
				n = tn
			}

			sched := scheduler.NewScheduler(ctx, a.advisor, a.tracker, a.store, n, a.log)
			if err := sched.RegisterAll(a.cfg.Schedule.GenerateCron, a.cfg.Schedule.SweepCron); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			if tn != nil {
				go tn.StartPolling(ctx, sched.HandleCommand)
				a.log.Info("telegram polling started")
			}
			if os.Getenv("RUN_ON_START") == "true" {
				a.log.Info("RUN_ON_START enabled, generating now")
				go sched.RunGenerateNow()
			}

			a.log.Info("StockAdviser is running, press Ctrl+C to stop")
			<-ctx.Done()
			a.log.Info("shutdown signal received, stopping")
			return nil
		}),
	}
}

func newGenerateCmd(withApp appRunner) *cobra.Command {
	var userID, symbol string
	var refresh bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate recommendations for a user, or for one symbol",
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app) error {
			if symbol != "" {
				if refresh {
					if err := a.snapshots.Invalidate(ctx, strings.ToUpper(symbol)); err != nil {
						a.log.Warnw("snapshot cache invalidation failed", "symbol", symbol, "error", err)
					}
				}
				rec, err := a.advisor.GenerateForSymbol(ctx, userID, symbol)
				if err != nil {
					return err
				}
				return printJSON(cmd, rec)
			}
			recs, err := a.advisor.GenerateForUser(ctx, userID)
			if err != nil {
				return err
			}
			return printJSON(cmd, recs)
		}),
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&symbol, "symbol", "", "single symbol to analyse")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "drop the cached snapshot for --symbol first")
	cmd.MarkFlagRequired("user")
	return cmd
}

func newExecuteCmd(withApp appRunner) *cobra.Command {
	var userID, recID, action, price, outcome string
	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Record the execution of an active recommendation",
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app) error {
			req, err := parseExecuteRequest(action, price, outcome)
			if err != nil {
				return err
			}
			rec, err := a.tracker.Execute(ctx, userID, recID, req)
			if err != nil {
				return err
			}
			return printJSON(cmd, rec)
		}),
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&recID, "id", "", "recommendation id")
	cmd.Flags().StringVar(&action, "action", "", "action taken (StrongBuy, Buy, Hold, Sell, StrongSell)")
	cmd.Flags().StringVar(&price, "price", "", "execution price")
	cmd.Flags().StringVar(&outcome, "outcome", "", "optional outcome (Profitable, Loss, Breakeven)")
	for _, f := range []string{"user", "id", "action", "price"} {
		cmd.MarkFlagRequired(f)
	}
	return cmd
}

func parseExecuteRequest(action, price, outcome string) (tracker.ExecuteRequest, error) {
	a, err := model.ParseAction(action)
	if err != nil {
		return tracker.ExecuteRequest{}, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return tracker.ExecuteRequest{}, fmt.Errorf("invalid price %q: %w", price, err)
	}
	if !p.IsPositive() {
		return tracker.ExecuteRequest{}, fmt.Errorf("price must be positive, got %s", price)
	}
	req := tracker.ExecuteRequest{Action: a, Price: p}
	if outcome != "" {
		o, err := model.ParseOutcome(outcome)
		if err != nil {
			return tracker.ExecuteRequest{}, err
		}
		req.Outcome = &o
	}
	return req, nil
}

func newCancelCmd(withApp appRunner) *cobra.Command {
	var userID, recID string
	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel an active recommendation",
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app) error {
			rec, err := a.tracker.Cancel(ctx, userID, recID)
			if err != nil {
				return err
			}
			return printJSON(cmd, rec)
		}),
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&recID, "id", "", "recommendation id")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("id")
	return cmd
}

func newSweepCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire active recommendations past their validity",
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app) error {
			n, err := a.tracker.SweepExpired(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d recommendations\n", n)
			return nil
		}),
	}
}

func newListCmd(withApp appRunner) *cobra.Command {
	var userID string
	var history bool
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's recommendations or closed history",
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app) error {
			if history {
				if limit == 0 {
					limit = store.DefaultHistoryLimit
				}
				h, err := a.store.ListHistory(ctx, userID, limit)
				if err != nil {
					return err
				}
				return printJSON(cmd, h)
			}
			if limit == 0 {
				limit = store.DefaultRecommendationLimit
			}
			recs, err := a.store.ListRecommendations(ctx, userID, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd, recs)
		}),
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().BoolVar(&history, "history", false, "list closed history instead")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows")
	cmd.MarkFlagRequired("user")
	return cmd
}

func newUsersCmd(withApp appRunner) *cobra.Command {
	var export string
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List stored user profiles, or export them to a profiles file",
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app) error {
			users, err := a.store.ListUsers(ctx)
			if err != nil {
				return err
			}
			if export == "" {
				return printJSON(cmd, users)
			}
			if err := profile.SaveUsers(export, users); err != nil {
				return fmt.Errorf("export profiles: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d users to %s\n", len(users), export)
			return nil
		}),
	}
	cmd.Flags().StringVar(&export, "export", "", "write profiles to this JSON file")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
