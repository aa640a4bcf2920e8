// Package config loads the engine's two configuration documents: the fixed
// pool universe and the engine's runtime tuning knobs. Grounded on the
// teacher's cmd/client's config.LoadConfig(path) entrypoint (a YAML file
// path taken from a -config flag, unmarshaled with gopkg.in/yaml.v3, then
// validated before use) — the teacher's pack/ copy of that package itself
// was pruned from this retrieval, so this rebuilds it from main.go's own
// call-site shape plus the yaml.v3 dependency it pulls in.
package config

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/fulcrum-dex/fulcrum/domain"
)

// ErrFatalConfig wraps every validation failure in this package, so callers
// can map it onto the engine's FatalConfig error kind (§7) with a single
// errors.Is check.
var ErrFatalConfig = fmt.Errorf("config: invalid configuration")

// PoolConfig describes one statically configured pool in the universe.
type PoolConfig struct {
	Address     string `yaml:"address"`
	Exchange    string `yaml:"exchange"`
	Token0      string `yaml:"token0"`
	Token1      string `yaml:"token1"`
	TickSpacing int32  `yaml:"tick_spacing,omitempty"`
	FeeTier     uint32 `yaml:"fee_tier,omitempty"`
}

// UniverseConfig is the fixed pool universe (§1 Non-goals: no pool outside
// this list is ever considered).
type UniverseConfig struct {
	ChainID    uint64       `yaml:"chain_id"`
	BaseTokens []string     `yaml:"base_tokens"`
	Pools      []PoolConfig `yaml:"pools"`
}

// EngineConfig is the engine's runtime tuning, loaded once at startup and
// never mutated afterward.
type EngineConfig struct {
	WSEndpointURL      string   `yaml:"ws_endpoint_url"`
	ViewerContract     string   `yaml:"viewer_contract"`
	ExecutorContract   string   `yaml:"executor_contract"`
	CorePin            int      `yaml:"core_pin"`
	SearchDeadlineMs   int64    `yaml:"search_deadline_ms"`
	MinProfitWei       string   `yaml:"min_profit_wei"`
	GridAmountsWei     []string `yaml:"grid_amounts_wei"`
	BlockQueueDepth    int      `yaml:"block_queue_depth"`
	PendingTxQueueSize int      `yaml:"pending_tx_queue_size"`
	OutboxQueueSize    int      `yaml:"outbox_queue_size"`
	DryRun             bool     `yaml:"dry_run"`
}

// tokenByName resolves the universe's human-readable token symbols onto
// the engine's dense TokenID enum.
var tokenByName = map[string]domain.TokenID{
	"USDC": domain.USDC,
	"WETH": domain.WETH,
	"WBTC": domain.WBTC,
	"ARB":  domain.ARB,
	"USDT": domain.USDT,
	"DAI":  domain.DAI,
}

var exchangeByName = map[string]domain.Exchange{
	"uniswap_v3": domain.UniswapV3,
	"camelot":    domain.Camelot,
	"sushi":      domain.Sushi,
	"chronos":    domain.Chronos,
}

// ResolveToken looks up a universe config's token symbol.
func ResolveToken(name string) (domain.TokenID, error) {
	t, ok := tokenByName[name]
	if !ok {
		return 0, fmt.Errorf("%w: unknown token symbol %q", ErrFatalConfig, name)
	}
	return t, nil
}

// ResolveExchange looks up a universe config's exchange name.
func ResolveExchange(name string) (domain.Exchange, error) {
	e, ok := exchangeByName[name]
	if !ok {
		return 0, fmt.Errorf("%w: unknown exchange %q", ErrFatalConfig, name)
	}
	return e, nil
}

// LoadUniverse reads and validates a pool-universe YAML document.
func LoadUniverse(path string) (*UniverseConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrFatalConfig, path, err)
	}

	var cfg UniverseConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrFatalConfig, path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *UniverseConfig) validate() error {
	if c.ChainID == 0 {
		return fmt.Errorf("%w: chain_id is required", ErrFatalConfig)
	}
	if len(c.BaseTokens) == 0 {
		return fmt.Errorf("%w: at least one base_token is required", ErrFatalConfig)
	}
	if len(c.Pools) == 0 {
		return fmt.Errorf("%w: pools must not be empty", ErrFatalConfig)
	}

	seen := make(map[string]bool, len(c.Pools))
	for i, p := range c.Pools {
		if !common.IsHexAddress(p.Address) {
			return fmt.Errorf("%w: pool[%d] has invalid address %q", ErrFatalConfig, i, p.Address)
		}
		if seen[p.Address] {
			return fmt.Errorf("%w: pool[%d] duplicates address %q", ErrFatalConfig, i, p.Address)
		}
		seen[p.Address] = true

		if _, err := ResolveExchange(p.Exchange); err != nil {
			return err
		}
		if _, err := ResolveToken(p.Token0); err != nil {
			return err
		}
		if _, err := ResolveToken(p.Token1); err != nil {
			return err
		}
	}
	for _, t := range c.BaseTokens {
		if _, err := ResolveToken(t); err != nil {
			return err
		}
	}
	return nil
}

// LoadEngine reads and validates the engine's runtime tuning document.
func LoadEngine(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrFatalConfig, path, err)
	}

	var cfg EngineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrFatalConfig, path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *EngineConfig) validate() error {
	if c.WSEndpointURL == "" {
		return fmt.Errorf("%w: ws_endpoint_url is required", ErrFatalConfig)
	}
	if !common.IsHexAddress(c.ViewerContract) {
		return fmt.Errorf("%w: viewer_contract %q is not a valid address", ErrFatalConfig, c.ViewerContract)
	}
	if !common.IsHexAddress(c.ExecutorContract) {
		return fmt.Errorf("%w: executor_contract %q is not a valid address", ErrFatalConfig, c.ExecutorContract)
	}
	if c.SearchDeadlineMs <= 0 {
		return fmt.Errorf("%w: search_deadline_ms must be positive", ErrFatalConfig)
	}
	if len(c.GridAmountsWei) == 0 {
		return fmt.Errorf("%w: grid_amounts_wei must not be empty", ErrFatalConfig)
	}
	if c.BlockQueueDepth <= 0 || c.PendingTxQueueSize <= 0 || c.OutboxQueueSize <= 0 {
		return fmt.Errorf("%w: queue sizes must be positive", ErrFatalConfig)
	}
	return nil
}
