package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/yield-router/internal/engine"
	"github.com/aman-zulfiqar/yield-router/internal/models"
	"github.com/aman-zulfiqar/yield-router/internal/planner"
)

func loadEnv() {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	_ = godotenv.Load(filepath.Join(projectRoot, ".env"))
}

func main() {
	loadEnv()

	mode := flag.String("mode", "deposit", "deposit | withdraw | max | claim | overview")
	pool := flag.String("pool", "stable", "stable | yield | eth")
	sender := flag.String("sender", "", "0x account address")
	token := flag.String("token", "DAI", "token symbol")
	amt := flag.String("amt", "", "amount in whole units (e.g. 12.5)")
	asJSON := flag.Bool("json", false, "print the full plan as JSON")
	verbose := flag.Bool("v", false, "log engine activity to stderr")
	flag.Parse()

	if *sender == "" && *mode != "overview" {
		fmt.Println("missing -sender")
		os.Exit(2)
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	eng, err := engine.NewEngineFromEnv(logger)
	if err != nil {
		fmt.Println("failed to init engine:", err)
		os.Exit(1)
	}
	defer eng.Close()

	p := engine.PlanParams{Pool: *pool, Sender: *sender, Token: *token, Amount: *amt}

	switch *mode {
	case "deposit", "withdraw":
		if *amt == "" {
			fmt.Println("missing -amt")
			os.Exit(2)
		}
		plan, err := planFor(ctx, eng, *mode, p)
		if err != nil {
			fail(*mode, err)
		}
		if *asJSON {
			printJSON(plan)
			return
		}
		printPlan(plan)
	case "max":
		amount, err := eng.PlanMaxWithdraw(ctx, p)
		if err != nil {
			fail(*mode, err)
		}
		a, _ := eng.Asset(*token)
		fmt.Printf("pool=%s token=%s max_withdraw=%s (%s)\n", *pool, a.Symbol, models.FormatUnits(amount, a.Decimals), amount)
	case "claim":
		if *amt == "" {
			fmt.Println("missing -amt")
			os.Exit(2)
		}
		tx, err := eng.PlanClaimRGT(ctx, p)
		if err != nil {
			fail(*mode, err)
		}
		printJSON(tx)
	case "overview":
		ov, err := eng.Overview(ctx, *pool, *sender)
		if err != nil {
			fail(*mode, err)
		}
		fmt.Printf("pool=%s fund_usd=%s fee_rate=%s", ov.Pool, models.FormatUnits(ov.FundBalanceUSD, 18), models.FormatUnits(ov.WithdrawalFeeRate, 18))
		if ov.AccountBalanceUSD != nil {
			fmt.Printf(" account=%s account_usd=%s", ov.Account.Hex(), models.FormatUnits(ov.AccountBalanceUSD, 18))
		}
		fmt.Println()
	default:
		fmt.Println("invalid -mode (use deposit|withdraw|max|claim|overview)")
		os.Exit(2)
	}
}

func planFor(ctx context.Context, eng *engine.Engine, mode string, p engine.PlanParams) (*planner.Plan, error) {
	if mode == "withdraw" {
		return eng.PlanWithdraw(ctx, p)
	}
	return eng.PlanDeposit(ctx, p)
}

func fail(mode string, err error) {
	fmt.Printf("%s failed (%s): %v\n", mode, planner.Kind(err), err)
	os.Exit(1)
}

func printPlan(p *planner.Plan) {
	fmt.Printf("id=%s pool=%s direction=%s amount=%s %s txs=%d fee_eth=%s slippage=%s%%\n",
		p.ID, p.Pool, p.Direction, models.FormatUnits(p.Amount, p.Token.Decimals), p.Token.Symbol,
		len(p.Transactions), models.FormatUnits(p.ExchangeFee, 18), p.Slippage.StringFixed(4))
	for _, l := range p.Legs {
		fmt.Printf("  leg kind=%s currency=%s in=%s out=%s orders=%d\n", l.Kind, l.Currency, l.InputAmount, l.OutputAmount, len(l.Orders))
	}
	for i, tx := range p.Transactions {
		fmt.Printf("  tx[%d] to=%s value=%s data=%d bytes\n", i, tx.To.Hex(), tx.Value, len(tx.Data))
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Println("encode failed:", err)
		os.Exit(1)
	}
}
