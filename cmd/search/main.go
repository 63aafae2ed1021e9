package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"sentinel-ledger/internal/ledger"
	"sentinel-ledger/internal/ledger/config"
	"sentinel-ledger/internal/ledger/model"
	"sentinel-ledger/internal/ledger/query"
	"sentinel-ledger/pkg/evm_client"
	"sentinel-ledger/pkg/httpclient"
	"sentinel-ledger/pkg/logger"
	"sentinel-ledger/pkg/utils"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// 交互式搜索：输入关键字或地址，n/p 翻页，q 退出

func main() {
	fs := pflag.NewFlagSet("search", pflag.ExitOnError)
	delay := fs.Duration("debounce", 300*time.Millisecond, "quiet period after the last input before searching")
	pageSize := fs.Int("page-size", 10, "results per page")
	_ = fs.Parse(os.Args[1:])

	cfg := config.InitConfig()

	logger.InitTrace("sentinel-ledger", "search")
	ctx, span := logger.StartSpan(context.Background(), "main", "search")
	defer span.End()

	rootLogger := logger.NewLogger("search", cfg.Log.Dir)
	logger.SetLogLevel(cfg.Log.Level)
	tl := logger.WithTrace(ctx, rootLogger)

	core, err := ledger.New(cfg, tl)
	if err != nil {
		tl.Error("Failed to initialize ledger core", zap.Error(err))
		os.Exit(1)
	}
	defer core.Stop(ctx)

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- strings.TrimSpace(sc.Text())
		}
	}()

	debouncer := utils.NewDebouncer[string](*delay, nil)
	defer debouncer.Stop()
	pager := utils.NewPaginator[model.Token](nil, *pageSize)

	fmt.Println("type a token name, symbol or address (n/p to page, q to quit)")
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return
			}
			switch line {
			case "":
			case "q":
				return
			case "n":
				printPage(pager.Next())
			case "p":
				printPage(pager.Prev())
			default:
				debouncer.Set(line)
			}
		case q := <-debouncer.C():
			if utils.IsAddress(q) {
				showToken(ctx, core, cfg.Chain, q, tl)
				continue
			}
			tokens, err := query.Get(ctx, core.Query(), core.Service().SearchTokens(q))
			if err != nil {
				printError(err)
				continue
			}
			pager.SetItems(tokens)
			printPage(pager.GoTo(1))
		}
	}
}

func showToken(ctx context.Context, core *ledger.Core, chain config.ChainConfig, address string, tl *zap.Logger) {
	detail, err := query.Get(ctx, core.Query(), core.Service().Token(address))
	if err != nil {
		printError(err)
		return
	}
	t := detail.Token
	fmt.Printf("%s (%s) on %s\n", t.Name, t.Symbol, t.Chain)
	fmt.Printf("  address   %s\n", utils.ChecksumAddress(t.Address))
	fmt.Printf("  deployer  %s\n", utils.ShortAddress(t.Deployer))
	fmt.Printf("  risk      %s (%.1f)\n", t.RiskLevel, t.FinalScore)
	for _, lp := range detail.LiquidityPools {
		locked := ""
		if lp.Locked {
			locked = " locked"
		}
		fmt.Printf("  pool      %s %s%s\n", lp.Dex, utils.FormatUSD(lp.LiquidityUSD), locked)
	}

	rpc := chain.RPCURL(t.Chain)
	if rpc == "" {
		return
	}
	client, err := evm_client.Dial(ctx, rpc, chain.DialTimeoutDuration())
	if err != nil {
		tl.Warn("onchain check skipped", zap.Error(err))
		return
	}
	defer client.Close()

	info, err := evm_client.NewInspector(client, tl).Inspect(ctx, t.Address, t.Deployer)
	if info == nil {
		fmt.Println("  onchain   unavailable:", err)
		return
	}
	fmt.Printf("  onchain   contract=%t code=%d bytes\n", info.IsContract, info.CodeSize)
	fmt.Printf("  deployer  holds %s tokens, %s native\n", info.DeployerHolding.StringFixed(2), info.DeployerNative.StringFixed(4))
}

func printPage(p utils.Page[model.Token]) {
	if p.TotalItems == 0 {
		fmt.Println("no results")
		return
	}
	for _, t := range p.Items {
		fmt.Printf("  %-10s %-8s %5.1f  %s\n", t.Symbol, t.RiskLevel, t.FinalScore, utils.ShortAddress(t.Address))
	}
	fmt.Printf("page %d/%d (%d results)\n", p.Page, p.TotalPages, p.TotalItems)
}

func printError(err error) {
	if e, ok := httpclient.AsError(err); ok {
		fmt.Println("error:", e.Message)
		return
	}
	if errors.Is(err, query.ErrDisabled) {
		return
	}
	fmt.Println("error:", err)
}
