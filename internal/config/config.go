package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PaperSize is a paper format in inches, as expected by Chrome's printToPDF.
type PaperSize struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// PostgresConfig describes a Postgres connection. Host may alternatively be a
// full postgres:// DSN, in which case the remaining fields are ignored.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// SubjectDefaults are applied when a request omits subject overrides.
type SubjectDefaults struct {
	Beds  int     `yaml:"beds"`
	Baths float64 `yaml:"baths"`
	Sqft  int     `yaml:"sqft"`
	Year  int     `yaml:"year"`
}

// Config is the process-wide configuration. It is loaded once at startup and
// read-only afterwards.
type Config struct {
	Server struct {
		Host    string `yaml:"host"`
		Port    string `yaml:"port"`
		Prefork bool   `yaml:"prefork"`
	} `yaml:"server"`

	Logger struct {
		File       string `yaml:"file"`
		Level      string `yaml:"level"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logger"`

	Limits struct {
		MaxBodyBytes int `yaml:"max_body_bytes"`
		MaxPDFBytes  int `yaml:"max_pdf_bytes"`
	} `yaml:"limits"`

	Cache struct {
		RedisHost       string        `yaml:"redis_host"`
		RateLimitDB     int           `yaml:"redis_rate_db"`
		PDFCacheDB      int           `yaml:"redis_pdf_db"`
		PDFCacheEnabled bool          `yaml:"pdf_cache_enabled"`
		PDFCacheTTL     time.Duration `yaml:"pdf_cache_ttl"`
	} `yaml:"cache"`

	PDF struct {
		DefaultPaper    string               `yaml:"default_paper"`
		PaperSizes      map[string]PaperSize `yaml:"paper_sizes"`
		MarginInches    float64              `yaml:"margin_inches"`
		TimeoutSecs     int                  `yaml:"timeout_secs"`
		ChromePath      string               `yaml:"chrome_path"`
		ChromeNoSandbox bool                 `yaml:"chrome_no_sandbox"`
		ChromePoolSize  int                  `yaml:"chrome_pool_size"`
		UserDataDir     string               `yaml:"user_data_dir"`
	} `yaml:"pdf"`

	RateLimiter struct {
		Interval          time.Duration `yaml:"interval"`
		UserLimit         int           `yaml:"user_limit"`
		EnableUserLimiter bool          `yaml:"enable_user_limiter"`
	} `yaml:"rate_limiter"`

	Auth struct {
		Enabled  bool           `yaml:"enabled"`
		Postgres PostgresConfig `yaml:"postgres"`
	} `yaml:"auth"`

	Source struct {
		Driver   string         `yaml:"driver"` // "static" or "postgres"
		Postgres PostgresConfig `yaml:"postgres"`
	} `yaml:"source"`

	Valuation struct {
		RehabPSF             map[string]float64 `yaml:"rehab_psf"`
		MAOTiers             []float64          `yaml:"mao_tiers"`
		CashDiscount         float64            `yaml:"cash_discount"`
		DefaultCondition     string             `yaml:"default_condition"`
		DefaultAssignmentFee int                `yaml:"default_assignment_fee"`
		DefaultHighlight     string             `yaml:"default_highlight"`
		SubjectDefaults      SubjectDefaults    `yaml:"subject_defaults"`
	} `yaml:"valuation"`

	Telegram struct {
		Enabled          bool   `yaml:"enabled"`
		Token            string `yaml:"token"`
		APIBase          string `yaml:"api_base"`
		PollTimeoutSecs  int    `yaml:"poll_timeout_secs"`
		MaxDocumentBytes int    `yaml:"max_document_bytes"`
	} `yaml:"telegram"`
}

// Load reads the configuration from the path in CONFIG_PATH, falling back to
// ./config.yaml. It panics on unreadable files or invalid values so that
// misconfiguration is caught at startup, not mid-request.
func Load() Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	return LoadFrom(path)
}

// LoadFrom reads and validates the configuration at the given path.
func LoadFrom(path string) Config {
	raw, err := os.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("config: cannot read %s: %v", path, err))
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		panic(fmt.Sprintf("config: cannot parse %s: %v", path, err))
	}

	applyDefaults(&cfg)
	validate(&cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8000"
	}
	if cfg.Limits.MaxBodyBytes == 0 {
		cfg.Limits.MaxBodyBytes = 64 * 1024
	}
	if cfg.Limits.MaxPDFBytes == 0 {
		cfg.Limits.MaxPDFBytes = 20 * 1024 * 1024
	}
	if cfg.PDF.DefaultPaper == "" {
		cfg.PDF.DefaultPaper = "LETTER"
	}
	if cfg.PDF.PaperSizes == nil {
		cfg.PDF.PaperSizes = map[string]PaperSize{
			"A4":     {Width: 8.27, Height: 11.69},
			"LETTER": {Width: 8.5, Height: 11},
		}
	}
	if cfg.PDF.MarginInches == 0 {
		cfg.PDF.MarginInches = 0.4
	}
	if cfg.PDF.TimeoutSecs == 0 {
		cfg.PDF.TimeoutSecs = 30
	}
	if cfg.RateLimiter.Interval == 0 {
		cfg.RateLimiter.Interval = time.Minute
	}
	if cfg.Source.Driver == "" {
		cfg.Source.Driver = "static"
	}

	v := &cfg.Valuation
	if v.RehabPSF == nil {
		v.RehabPSF = map[string]float64{"excellent": 20.0, "fair": 42.5, "poor": 85.0}
	}
	if len(v.MAOTiers) == 0 {
		v.MAOTiers = []float64{0.65, 0.70, 0.75}
	}
	if v.CashDiscount == 0 {
		v.CashDiscount = 0.95
	}
	if v.DefaultCondition == "" {
		v.DefaultCondition = "fair"
	}
	if v.DefaultAssignmentFee == 0 {
		v.DefaultAssignmentFee = 20000
	}
	if v.DefaultHighlight == "" {
		v.DefaultHighlight = "aggressive"
	}
	if v.SubjectDefaults == (SubjectDefaults{}) {
		v.SubjectDefaults = SubjectDefaults{Beds: 3, Baths: 2, Sqft: 1627, Year: 1992}
	}

	if cfg.Telegram.APIBase == "" {
		cfg.Telegram.APIBase = "https://api.telegram.org"
	}
	if cfg.Telegram.PollTimeoutSecs == 0 {
		cfg.Telegram.PollTimeoutSecs = 30
	}
	if cfg.Telegram.MaxDocumentBytes == 0 {
		// Telegram caps bot uploads at 50 MB.
		cfg.Telegram.MaxDocumentBytes = 50 * 1024 * 1024
	}
}

func validate(cfg *Config) {
	if cfg.PDF.TimeoutSecs < 0 {
		panic("config: pdf.timeout_secs must be positive")
	}
	if _, ok := cfg.PDF.PaperSizes[cfg.PDF.DefaultPaper]; !ok {
		panic(fmt.Sprintf("config: pdf.default_paper %q not in pdf.paper_sizes", cfg.PDF.DefaultPaper))
	}
	if cfg.PDF.MarginInches < 0.1 || cfg.PDF.MarginInches > 2.0 {
		panic("config: pdf.margin_inches must be between 0.1 and 2.0")
	}
	if cfg.RateLimiter.Interval <= 0 {
		panic("config: rate_limiter.interval must be positive")
	}
	if cfg.RateLimiter.UserLimit < 0 {
		panic("config: rate_limiter.user_limit must not be negative")
	}
	if cfg.Source.Driver != "static" && cfg.Source.Driver != "postgres" {
		panic(fmt.Sprintf("config: source.driver %q must be static or postgres", cfg.Source.Driver))
	}
	if cfg.Source.Driver == "postgres" && cfg.Source.Postgres.Host == "" {
		panic("config: source.postgres.host is required for the postgres driver")
	}
	if cfg.Auth.Enabled && cfg.Auth.Postgres.Host == "" {
		panic("config: auth.postgres.host is required when auth is enabled")
	}
	for _, t := range cfg.Valuation.MAOTiers {
		if t <= 0 || t >= 1 {
			panic(fmt.Sprintf("config: valuation.mao_tiers entry %v must be in (0,1)", t))
		}
	}
	for cond, psf := range cfg.Valuation.RehabPSF {
		if psf <= 0 {
			panic(fmt.Sprintf("config: valuation.rehab_psf[%s] must be positive", cond))
		}
	}
	if cfg.Telegram.Enabled && cfg.Telegram.Token == "" && os.Getenv("BOT_TOKEN") == "" {
		panic("config: telegram.token (or BOT_TOKEN) is required when telegram is enabled")
	}
}
