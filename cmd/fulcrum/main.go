// Command fulcrum runs the arbitrage detection engine against a configured
// chain and pool universe. Its CLI surface is deliberately thin (§6): load
// config, dial collaborators, run until signalled. Grounded directly on
// the teacher's cmd/client/main.go — slog.NewJSONHandler on stdout,
// signal.NotifyContext for shutdown, a flag-based config path, and a
// top-level select loop draining the engine's output channel — retargeted
// from a single State channel to the orchestrator's Outbox.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fulcrum-dex/fulcrum/blockfeed"
	"github.com/fulcrum-dex/fulcrum/config"
	"github.com/fulcrum-dex/fulcrum/dispatch"
	"github.com/fulcrum-dex/fulcrum/domain"
	"github.com/fulcrum-dex/fulcrum/executor"
	"github.com/fulcrum-dex/fulcrum/graph"
	"github.com/fulcrum-dex/fulcrum/orchestrator"
	"github.com/fulcrum-dex/fulcrum/pools/v2"
	"github.com/fulcrum-dex/fulcrum/pools/v3"
	"github.com/fulcrum-dex/fulcrum/refresher"
	"github.com/fulcrum-dex/fulcrum/search"
	"github.com/fulcrum-dex/fulcrum/telemetry"
)

// Exit codes per §6: 0 clean shutdown, 2 configuration error, 3 fatal
// RPC error (the refresher's RPC connection failing to dial at startup).
const (
	exitOK     = 0
	exitConfig = 2
	exitFatal  = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	universePath := flag.String("universe", "universe.yaml", "Path to the pool universe configuration file.")
	enginePath := flag.String("engine", "engine.yaml", "Path to the engine runtime configuration file.")
	dryRun := flag.Bool("dry-run", false, "Log opportunities instead of dispatching them.")
	flag.Parse()

	logger := telemetry.NewLogger(slog.NewJSONHandler(os.Stdout, nil))

	universeCfg, err := config.LoadUniverse(*universePath)
	if err != nil {
		logger.Error("fulcrum: failed to load universe config", "error", err)
		return exitConfig
	}
	engineCfg, err := config.LoadEngine(*enginePath)
	if err != nil {
		logger.Error("fulcrum: failed to load engine config", "error", err)
		return exitConfig
	}
	if *dryRun {
		engineCfg.DryRun = true
	}

	g, poolCount, err := buildGraph(universeCfg)
	if err != nil {
		logger.Error("fulcrum: failed to build pool graph", "error", err)
		return exitConfig
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	feed := blockfeed.Dial(ctx, engineCfg.WSEndpointURL, logger)

	rpcClient, err := dialRPC(ctx, engineCfg.WSEndpointURL)
	if err != nil {
		logger.Error("fulcrum: failed to dial RPC for refresher", "error", err)
		return exitFatal
	}

	viewerAddr := common.HexToAddress(engineCfg.ViewerContract)
	executorAddr := common.HexToAddress(engineCfg.ExecutorContract)

	refresh := refresher.New(rpcClient, logger, viewerAddr, g, poolCount)

	searchCfg, err := buildSearchConfig(universeCfg, engineCfg)
	if err != nil {
		logger.Error("fulcrum: invalid search configuration", "error", err)
		return exitConfig
	}
	searcher := search.New(searchCfg, poolCount)

	worker := orchestrator.New(orchestrator.Config{
		CorePin:            engineCfg.CorePin,
		BlockQueueDepth:    engineCfg.BlockQueueDepth,
		PendingTxQueueSize: engineCfg.PendingTxQueueSize,
		OutboxQueueSize:    engineCfg.OutboxQueueSize,
	}, logger, metrics, refresh, searcher)

	go pumpHeaders(ctx, feed, worker)

	go func() {
		if err := worker.Run(ctx, g); err != nil {
			logger.Info("fulcrum: worker stopped", "reason", err)
		}
	}()

	return mainLoop(ctx, logger, worker, g, executorAddr, engineCfg.DryRun)
}

func mainLoop(ctx context.Context, logger telemetry.Logger, worker *orchestrator.Worker, g *graph.Graph, executorAddr common.Address, dryRun bool) int {
	for {
		select {
		case d, ok := <-worker.Outbox():
			if !ok {
				return exitOK
			}
			handleDispatch(logger, g, executorAddr, d, dryRun)
		case <-ctx.Done():
			return exitOK
		}
	}
}

func handleDispatch(logger telemetry.Logger, g *graph.Graph, executorAddr common.Address, d orchestrator.Dispatched, dryRun bool) {
	if dryRun {
		logger.Info("fulcrum: opportunity found (dry run)",
			"block", d.BlockNumber,
			"profit_wei", d.Opportunity.Profit.String(),
			"amount_in_wei", d.Opportunity.AmountIn.String(),
			"hops", len(d.Opportunity.Cycle.Hops),
		)
		return
	}

	payload, err := dispatch.FromCycle(g, d.Opportunity.Cycle)
	if err != nil {
		logger.Error("fulcrum: failed to encode dispatch payload", "error", err)
		return
	}

	// A real deployment resolves the wallet's idle base-token balance here
	// before calling executor.Build; dispatching calldata construction is
	// in scope, submitting a signed transaction is not (§1), so a zero
	// balance is passed, which always selects flashSwap.
	call, err := executor.Build(executorAddr, payload, d.Opportunity.AmountIn, uint256.NewInt(0))
	if err != nil {
		logger.Error("fulcrum: failed to build executor calldata", "error", err)
		return
	}

	logger.Info("fulcrum: opportunity found", "block", d.BlockNumber, "profit_wei", d.Opportunity.Profit.String(), "to", call.To.Hex())
}

func pumpHeaders(ctx context.Context, feed *blockfeed.Feed, worker *orchestrator.Worker) {
	for {
		select {
		case h, ok := <-feed.Headers():
			if !ok {
				return
			}
			worker.SubmitBlock(h)
		case <-ctx.Done():
			return
		}
	}
}

func buildGraph(cfg *config.UniverseConfig) (*graph.Graph, int, error) {
	pools := make([]graph.Pool, 0, len(cfg.Pools))
	baseTokens := make([]domain.TokenID, 0, len(cfg.BaseTokens))

	for _, name := range cfg.BaseTokens {
		t, err := config.ResolveToken(name)
		if err != nil {
			return nil, 0, err
		}
		baseTokens = append(baseTokens, t)
	}

	for _, pc := range cfg.Pools {
		exchange, err := config.ResolveExchange(pc.Exchange)
		if err != nil {
			return nil, 0, err
		}
		token0, err := config.ResolveToken(pc.Token0)
		if err != nil {
			return nil, 0, err
		}
		token1, err := config.ResolveToken(pc.Token1)
		if err != nil {
			return nil, 0, err
		}

		p := graph.Pool{
			Address:  common.HexToAddress(pc.Address),
			Exchange: exchange,
			Token0:   token0,
			Token1:   token1,
		}
		if exchange == domain.UniswapV3 {
			p.Kind = graph.KindV3
			p.V3 = v3.State{
				SqrtPriceX96: uint256.NewInt(0),
				Liquidity:    uint256.NewInt(0),
				TickSpacing:  pc.TickSpacing,
				Fee:          pc.FeeTier,
			}
		} else {
			p.Kind = graph.KindV2
			p.V2 = v2.State{Reserve0: uint256.NewInt(0), Reserve1: uint256.NewInt(0)}
		}
		pools = append(pools, p)
	}

	g, err := graph.New(pools, baseTokens)
	if err != nil {
		return nil, 0, fmt.Errorf("fulcrum: %w", err)
	}
	return g, len(pools), nil
}

func buildSearchConfig(universeCfg *config.UniverseConfig, engineCfg *config.EngineConfig) (search.Config, error) {
	baseTokens := make([]domain.TokenID, 0, len(universeCfg.BaseTokens))
	for _, name := range universeCfg.BaseTokens {
		t, err := config.ResolveToken(name)
		if err != nil {
			return search.Config{}, err
		}
		baseTokens = append(baseTokens, t)
	}

	grid := make([]*uint256.Int, 0, len(engineCfg.GridAmountsWei))
	for _, amt := range engineCfg.GridAmountsWei {
		v, err := uint256.FromDecimal(amt)
		if err != nil {
			return search.Config{}, fmt.Errorf("fulcrum: invalid grid amount %q: %w", amt, err)
		}
		grid = append(grid, v)
	}

	minProfit, err := uint256.FromDecimal(engineCfg.MinProfitWei)
	if err != nil {
		return search.Config{}, fmt.Errorf("fulcrum: invalid min_profit_wei %q: %w", engineCfg.MinProfitWei, err)
	}

	return search.Config{
		BaseTokens:         baseTokens,
		Grid:               grid,
		MinProfitThreshold: minProfit,
		Deadline:           time.Duration(engineCfg.SearchDeadlineMs) * time.Millisecond,
	}, nil
}

// dialRPC opens the JSON-RPC connection the refresher issues its batched
// eth_call against. *rpc.Client already satisfies refresher.RPCCaller
// directly, so no adapter is needed.
func dialRPC(ctx context.Context, url string) (*rpc.Client, error) {
	return rpc.DialContext(ctx, url)
}
