package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"librarycatalog/internal/validation"
)

type Config struct {
	AppEnv   string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
	Library  LibraryConfig
	Server   ServerConfig
	Archive  ArchiveConfig
}

type LibraryConfig struct {
	LoanDays       int             `mapstructure:"LIBRARY_LOAN_DAYS"`
	FinePerDay     decimal.Decimal `mapstructure:"LIBRARY_FINE_PER_DAY"`
	SeedSampleData bool            `mapstructure:"LIBRARY_SEED_SAMPLE_DATA"`
	StrictCSV      bool            `mapstructure:"LIBRARY_STRICT_CSV"`
}

type ServerConfig struct {
	Enabled      bool          `mapstructure:"SERVE"`
	Addr         string        `mapstructure:"SERVER_ADDR"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
}

// ArchiveConfig points at the database the catalog snapshot is exported to.
// An empty DSN disables the export.
type ArchiveConfig struct {
	Driver string `mapstructure:"ARCHIVE_DRIVER"`
	DSN    string `mapstructure:"DATABASE_URL"`
}

func (a ArchiveConfig) Enabled() bool { return strings.TrimSpace(a.DSN) != "" }

// Flags declares the command-line overrides understood by Load.
func Flags() *pflag.FlagSet {
	set := pflag.NewFlagSet("library", pflag.ContinueOnError)
	set.String("env-file", ".env", "dotenv file to load before reading the environment")
	set.Bool("serve", false, "run the HTTP API instead of the console menu")
	set.String("addr", "", "HTTP listen address (overrides SERVER_ADDR)")
	set.String("log-level", "", "log level: debug, info, warn, error, off")
	set.Int("loan-days", 0, "default loan period in days")
	set.Bool("no-seed", false, "start with an empty catalog")
	set.Bool("strict-csv", false, "abort CSV imports on the first malformed row")
	return set
}

// Load reads .env (if present), the environment and the parsed flags, in
// increasing order of precedence.
func Load(flags *pflag.FlagSet) (*Config, error) {
	envFile := ".env"
	if flags != nil {
		if f := flags.Lookup("env-file"); f != nil {
			envFile = f.Value.String()
		}
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "production")
	v.SetDefault("LOG_LEVEL", "warn")
	v.SetDefault("LIBRARY_LOAN_DAYS", 14)
	v.SetDefault("LIBRARY_FINE_PER_DAY", "0.50")
	v.SetDefault("LIBRARY_SEED_SAMPLE_DATA", true)
	v.SetDefault("LIBRARY_STRICT_CSV", false)
	v.SetDefault("SERVE", false)
	v.SetDefault("SERVER_ADDR", ":8080")
	v.SetDefault("SERVER_READ_TIMEOUT", 15*time.Second)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("ARCHIVE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_URL", "")

	if flags != nil {
		bind := map[string]string{
			"SERVE":              "serve",
			"SERVER_ADDR":        "addr",
			"LOG_LEVEL":          "log-level",
			"LIBRARY_LOAN_DAYS":  "loan-days",
			"LIBRARY_STRICT_CSV": "strict-csv",
		}
		for key, name := range bind {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag --%s: %w", name, err)
				}
			}
		}
		if f := flags.Lookup("no-seed"); f != nil && f.Changed && f.Value.String() == "true" {
			v.Set("LIBRARY_SEED_SAMPLE_DATA", false)
		}
	}

	var cfg Config
	cfg.AppEnv = v.GetString("APP_ENV")
	cfg.LogLevel = v.GetString("LOG_LEVEL")

	cfg.Library.LoanDays = v.GetInt("LIBRARY_LOAN_DAYS")
	if !validation.IsValidLoanDays(cfg.Library.LoanDays) {
		return nil, fmt.Errorf("LIBRARY_LOAN_DAYS must be between 1 and %d, got %d", validation.MaxLoanDays, cfg.Library.LoanDays)
	}
	fine, err := decimal.NewFromString(strings.TrimSpace(v.GetString("LIBRARY_FINE_PER_DAY")))
	if err != nil {
		return nil, fmt.Errorf("LIBRARY_FINE_PER_DAY: %w", err)
	}
	if fine.IsNegative() {
		return nil, fmt.Errorf("LIBRARY_FINE_PER_DAY must not be negative, got %s", fine)
	}
	cfg.Library.FinePerDay = fine
	cfg.Library.SeedSampleData = v.GetBool("LIBRARY_SEED_SAMPLE_DATA")
	cfg.Library.StrictCSV = v.GetBool("LIBRARY_STRICT_CSV")

	cfg.Server.Enabled = v.GetBool("SERVE")
	cfg.Server.Addr = v.GetString("SERVER_ADDR")
	cfg.Server.ReadTimeout = v.GetDuration("SERVER_READ_TIMEOUT")
	cfg.Server.WriteTimeout = v.GetDuration("SERVER_WRITE_TIMEOUT")

	cfg.Archive.Driver = strings.ToLower(v.GetString("ARCHIVE_DRIVER"))
	cfg.Archive.DSN = v.GetString("DATABASE_URL")

	return &cfg, nil
}
