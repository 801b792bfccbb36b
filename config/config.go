package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
)

var (
	LogPath        = "./logs/"
	ConfigFile     = "config.json"
	ScannerLog     = "scanner"
	ExecutorLog    = "executor"
	BackendLog     = "backend"
	NetworkLog     = "network"
	TransactionLog = "transactions"
)

const (
	DefaultAmount          = uint64(100000000)
	DefaultScanSlippageBps = 50
	DefaultStrictBps       = 20
	DefaultImpactCeiling   = 0.005
	DefaultTickMs          = 3000
	DefaultBatchSize       = 4
	DefaultWorkers         = 2
	DefaultQueueSize       = 16
	DefaultQuoteApi        = "https://quote-api.jup.ag/v6"
)

type Node struct {
	Rpc    string `json:"rpc"`
	Usable bool   `json:"usable"`
}

type Pair struct {
	Base  solana.PublicKey `json:"base"`
	Quote solana.PublicKey `json:"quote"`
}

func (p *Pair) Label() string {
	return fmt.Sprintf("%s_%s", p.Base.String(), p.Quote.String())
}

type Config struct {
	Nodes           []*Node  `json:"nodes"`
	BlockHashNodes  []string `json:"block_hash_nodes"`
	Key             string   `json:"key"`
	QuoteApi        string   `json:"quote_api"`
	JitoUrl         string   `json:"jito_url"`
	PriorityFee     uint64   `json:"priority_fee"`
	Pairs           []*Pair  `json:"pairs"`
	Amount          uint64   `json:"amount"`
	ScanSlippageBps int      `json:"scan_slippage_bps"`
	StrictBps       int      `json:"strict_slippage_bps"`
	ImpactCeiling   float64  `json:"impact_ceiling"`
	TickMs          int      `json:"tick_ms"`
	BatchSize       int      `json:"batch_size"`
	Workers         int      `json:"workers"`
	QueueSize       int      `json:"queue_size"`
	Live            bool     `json:"live"`
	NotifyUrl       string   `json:"notify_url"`
	NetStatus       bool     `json:"net_status"`
	WorkSpace       string   `json:"workspace"`
}

// Load reads the config file and applies environment overrides on top.
// A missing .env file is fine, overrides then come from the process
// environment only.
func Load(file string) (*Config, error) {
	cfg := &Config{}
	infoJson, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(infoJson, cfg); err != nil {
		return nil, err
	}
	godotenv.Load()
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, cfg.check()
}

func (cfg *Config) applyEnv() {
	if v := os.Getenv("WALLET_KEY"); v != "" {
		cfg.Key = v
	}
	if v := os.Getenv("JUPITER_API_URL"); v != "" {
		cfg.QuoteApi = v
	}
	if v := os.Getenv("JITO_RPC_URL"); v != "" {
		cfg.JitoUrl = v
	}
	if v := os.Getenv("PRIORITY_FEE_LAMPORTS"); v != "" {
		if fee, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.PriorityFee = fee
		}
	}
	if v := os.Getenv("LIVE"); v != "" {
		cfg.Live = v == "true"
	}
	// PAPER=true wins over everything else
	if v := os.Getenv("PAPER"); v == "true" {
		cfg.Live = false
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.Amount == 0 {
		cfg.Amount = DefaultAmount
	}
	if cfg.ScanSlippageBps == 0 {
		cfg.ScanSlippageBps = DefaultScanSlippageBps
	}
	if cfg.StrictBps == 0 {
		cfg.StrictBps = DefaultStrictBps
	}
	if cfg.ImpactCeiling == 0 {
		cfg.ImpactCeiling = DefaultImpactCeiling
	}
	if cfg.TickMs == 0 {
		cfg.TickMs = DefaultTickMs
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Workers == 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.QuoteApi == "" {
		cfg.QuoteApi = DefaultQuoteApi
	}
	usableNodes := make([]*Node, 0, len(cfg.Nodes))
	for _, node := range cfg.Nodes {
		if node.Usable {
			usableNodes = append(usableNodes, node)
		}
	}
	cfg.Nodes = usableNodes
}

func (cfg *Config) check() error {
	if len(cfg.Nodes) == 0 {
		return fmt.Errorf("no usable nodes")
	}
	if cfg.Live && cfg.Key == "" {
		return fmt.Errorf("live mode needs a wallet key")
	}
	if cfg.Key != "" {
		if _, err := solana.PrivateKeyFromBase58(cfg.Key); err != nil {
			return fmt.Errorf("wallet key is invalid: %w", err)
		}
	}
	return nil
}
