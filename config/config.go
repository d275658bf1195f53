package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	SourceYahoo    = "yahoo"
	SourceLongport = "longport"
	SourceAlpaca   = "alpaca"
	SourceFinnhub  = "finnhub"
	SourceCSV      = "csv"

	ProviderDeepSeek  = "deepseek"
	ProviderOpenAI    = "openai"
	ProviderHeuristic = "heuristic"
)

type Config struct {
	ProjectDir   string `json:"project_dir" yaml:"project_dir"`
	ResultsDir   string `json:"results_dir" yaml:"results_dir"`
	DataDir      string `json:"data_dir" yaml:"data_dir"`
	DataCacheDir string `json:"data_cache_dir" yaml:"data_cache_dir"`
	CSVDataDir   string `json:"csv_data_dir" yaml:"csv_data_dir"`
	DBPath       string `json:"db_path" yaml:"db_path"`

	LLMProvider   string `json:"llm_provider" yaml:"llm_provider"`
	DeepThinkLLM  string `json:"deep_think_llm" yaml:"deep_think_llm"`
	QuickThinkLLM string `json:"quick_think_llm" yaml:"quick_think_llm"`
	BackendURL    string `json:"backend_url" yaml:"backend_url"`
	MaxTokens     int    `json:"max_tokens" yaml:"max_tokens"`

	// Backtest defaults
	DataSource        string  `json:"data_source" yaml:"data_source"`
	InitialCapital    float64 `json:"initial_capital" yaml:"initial_capital"`
	Frequency         string  `json:"frequency" yaml:"frequency"`
	PriceWindowDays   int     `json:"price_window_days" yaml:"price_window_days"`
	HistoryDays       int     `json:"history_days" yaml:"history_days"`
	HistorySize       int     `json:"history_size" yaml:"history_size"`
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`

	Debug          bool   `json:"debug" yaml:"debug"`
	LogLevel       string `json:"log_level" yaml:"log_level"`
	LogFormat      string `json:"log_format" yaml:"log_format"`
	TracingEnabled bool   `json:"tracing_enabled" yaml:"tracing_enabled"`
	MetricsAddr    string `json:"metrics_addr" yaml:"metrics_addr"`

	// Eino Debug configuration
	EinoDebugEnabled bool `json:"eino_debug_enabled" yaml:"eino_debug_enabled"`
	EinoDebugPort    int  `json:"eino_debug_port" yaml:"eino_debug_port"`

	CacheEnabled bool `json:"cache_enabled" yaml:"cache_enabled"`

	// Longport API Configuration
	LongportAppKey      string `json:"longport_app_key" yaml:"longport_app_key"`
	LongportAppSecret   string `json:"longport_app_secret" yaml:"longport_app_secret"`
	LongportAccessToken string `json:"longport_access_token" yaml:"longport_access_token"`

	// Alpaca market data
	AlpacaAPIKey    string `json:"alpaca_api_key" yaml:"alpaca_api_key"`
	AlpacaAPISecret string `json:"alpaca_api_secret" yaml:"alpaca_api_secret"`
	AlpacaDataURL   string `json:"alpaca_data_url" yaml:"alpaca_data_url"`

	// AI Model API Keys
	DeepSeekAPIKey string `json:"deepseek_api_key" yaml:"deepseek_api_key"`
	OpenAIAPIKey   string `json:"openai_api_key" yaml:"openai_api_key"`

	FinnhubAPIKey string `json:"finnhub_api_key" yaml:"finnhub_api_key"`
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()
	cfg := DefaultConfigWithRoot(currentDir)

	// Load environment variables from .env file
	_ = godotenv.Load()

	// Override with environment variables if they exist
	cfg.loadFromEnv()

	return cfg
}

// DefaultConfigWithRoot returns the built-in defaults with every directory
// placed under root. The environment is not consulted.
func DefaultConfigWithRoot(root string) *Config {
	return &Config{
		ProjectDir:   root,
		ResultsDir:   filepath.Join(root, "results"),
		DataDir:      filepath.Join(root, "data"),
		DataCacheDir: filepath.Join(root, "data", "cache"),
		CSVDataDir:   filepath.Join(root, "data", "csv"),
		DBPath:       filepath.Join(root, "data", "cortexquant.db"),

		LLMProvider:   ProviderDeepSeek,
		DeepThinkLLM:  "deepseek-chat",
		QuickThinkLLM: "deepseek-chat",
		BackendURL:    "",
		MaxTokens:     2000,

		DataSource:        SourceYahoo,
		InitialCapital:    100000,
		Frequency:         "weekly",
		PriceWindowDays:   5,
		HistoryDays:       30,
		HistorySize:       10,
		RequestsPerSecond: 2,

		Debug:     false,
		LogLevel:  "info",
		LogFormat: "console",

		// Eino Debug defaults
		EinoDebugEnabled: false,
		EinoDebugPort:    52538,

		CacheEnabled: true,
	}
}

// Load reads a JSON or YAML file on top of the defaults. Environment
// variables still take precedence over the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.loadFromEnv()
	return cfg, nil
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("PROJECT_DIR"); val != "" {
		c.ProjectDir = val
	}
	if val := os.Getenv("RESULTS_DIR"); val != "" {
		c.ResultsDir = val
	}
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("DATA_CACHE_DIR"); val != "" {
		c.DataCacheDir = val
	}
	if val := os.Getenv("CSV_DATA_DIR"); val != "" {
		c.CSVDataDir = val
	}
	if val := os.Getenv("CORTEXQUANT_DB_PATH"); val != "" {
		c.DBPath = val
	}

	if val := os.Getenv("LLM_PROVIDER"); val != "" {
		c.LLMProvider = val
	}
	if val := os.Getenv("DEEP_THINK_LLM"); val != "" {
		c.DeepThinkLLM = val
	}
	if val := os.Getenv("QUICK_THINK_LLM"); val != "" {
		c.QuickThinkLLM = val
	}
	if val := os.Getenv("BACKEND_URL"); val != "" {
		c.BackendURL = val
	}
	if val := os.Getenv("LLM_MAX_TOKENS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxTokens = v
		}
	}

	if val := os.Getenv("DATA_SOURCE"); val != "" {
		c.DataSource = val
	}
	if val := os.Getenv("INITIAL_CAPITAL"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.InitialCapital = v
		}
	}
	if val := os.Getenv("BACKTEST_FREQUENCY"); val != "" {
		c.Frequency = val
	}
	if val := os.Getenv("PRICE_WINDOW_DAYS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.PriceWindowDays = v
		}
	}
	if val := os.Getenv("HISTORY_DAYS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.HistoryDays = v
		}
	}
	if val := os.Getenv("HISTORY_SIZE"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.HistorySize = v
		}
	}
	if val := os.Getenv("REQUESTS_PER_SECOND"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.RequestsPerSecond = v
		}
	}

	if val := os.Getenv("CACHE_ENABLED"); val != "" {
		if cache, err := strconv.ParseBool(val); err == nil {
			c.CacheEnabled = cache
		}
	}

	if val := os.Getenv("CORTEXQUANT_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.LogFormat = val
	}
	if val := os.Getenv("TRACING_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.TracingEnabled = enabled
		}
	}
	if val := os.Getenv("METRICS_ADDR"); val != "" {
		c.MetricsAddr = val
	}

	if val := os.Getenv("EINO_DEBUG_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.EinoDebugEnabled = enabled
		}
	}
	if val := os.Getenv("EINO_DEBUG_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.EinoDebugPort = port
		}
	}

	if val := os.Getenv("LONGPORT_APP_KEY"); val != "" {
		c.LongportAppKey = val
	}
	if val := os.Getenv("LONGPORT_APP_SECRET"); val != "" {
		c.LongportAppSecret = val
	}
	if val := os.Getenv("LONGPORT_ACCESS_TOKEN"); val != "" {
		c.LongportAccessToken = val
	}

	if val := os.Getenv("APCA_API_KEY_ID"); val != "" {
		c.AlpacaAPIKey = val
	}
	if val := os.Getenv("APCA_API_SECRET_KEY"); val != "" {
		c.AlpacaAPISecret = val
	}
	if val := os.Getenv("APCA_DATA_URL"); val != "" {
		c.AlpacaDataURL = val
	}

	if val := os.Getenv("DEEPSEEK_API_KEY"); val != "" {
		c.DeepSeekAPIKey = val
	}
	if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		c.OpenAIAPIKey = val
	}
	if val := os.Getenv("CORTEXQUANT_FINNHUB_API_KEY"); val != "" {
		c.FinnhubAPIKey = val
	}
}

// Validate reports the first setting that would make a backtest unusable.
func (c *Config) Validate() error {
	if err := c.ValidateSettings(); err != nil {
		return err
	}

	switch c.DataSource {
	case SourceYahoo, SourceCSV:
	case SourceLongport:
		if c.LongportAppKey == "" || c.LongportAppSecret == "" || c.LongportAccessToken == "" {
			return fmt.Errorf("longport credentials are required for data_source %q", c.DataSource)
		}
	case SourceAlpaca:
		if c.AlpacaAPIKey == "" || c.AlpacaAPISecret == "" {
			return fmt.Errorf("alpaca credentials are required for data_source %q", c.DataSource)
		}
	case SourceFinnhub:
		if c.FinnhubAPIKey == "" {
			return fmt.Errorf("finnhub api key is required for data_source %q", c.DataSource)
		}
	default:
		return fmt.Errorf("unknown data_source %q", c.DataSource)
	}

	switch c.LLMProvider {
	case ProviderHeuristic:
	case ProviderDeepSeek:
		if c.DeepSeekAPIKey == "" {
			return fmt.Errorf("DEEPSEEK_API_KEY is required for llm_provider %q", c.LLMProvider)
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for llm_provider %q", c.LLMProvider)
		}
	default:
		return fmt.Errorf("unknown llm_provider %q", c.LLMProvider)
	}
	return nil
}

// ValidateSettings checks the values that do not depend on credentials.
func (c *Config) ValidateSettings() error {
	if c.InitialCapital <= 0 {
		return fmt.Errorf("initial_capital must be positive, got %.2f", c.InitialCapital)
	}
	switch strings.ToLower(c.Frequency) {
	case "daily", "weekly", "monthly":
	default:
		return fmt.Errorf("unsupported frequency %q", c.Frequency)
	}
	if c.PriceWindowDays < 0 || c.HistoryDays < 0 || c.HistorySize < 0 {
		return fmt.Errorf("window settings must not be negative")
	}
	return nil
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.ProjectDir, c.ResultsDir, c.DataDir, c.DataCacheDir}
	if c.DBPath != "" {
		dirs = append(dirs, filepath.Dir(c.DBPath))
	}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}
