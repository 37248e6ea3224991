package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

type AuthConfig struct {
	AccessSecret string
}

// NumberingConfig is the external document-number contract:
// {PREFIX}-{YEAR}-{SEQ} with SEQ zero-padded per kind.
type NumberingConfig struct {
	QuotePrefix     string
	QuoteWidth      int
	InvoicePrefix   string
	InvoiceWidth    int
	WidenOnOverflow bool
	MaxRetries      int
}

type DocumentsConfig struct {
	QuoteValidityDays int
	InvoiceDueDays    int
	// DiscountAffectsTVA selects the discount/TVA interaction: true
	// reduces the TVA pool proportionally with the discounted HT,
	// false passes the summed TVA through unchanged.
	DiscountAffectsTVA bool
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Numbering   NumberingConfig
	Documents   DocumentsConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetString("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Numbering: NumberingConfig{
			QuotePrefix:     v.GetString("QUOTE_NUMBER_PREFIX"),
			QuoteWidth:      v.GetInt("QUOTE_NUMBER_WIDTH"),
			InvoicePrefix:   v.GetString("INVOICE_NUMBER_PREFIX"),
			InvoiceWidth:    v.GetInt("INVOICE_NUMBER_WIDTH"),
			WidenOnOverflow: v.GetBool("NUMBER_WIDEN_ON_OVERFLOW"),
			MaxRetries:      v.GetInt("NUMBER_MAX_RETRIES"),
		},
		Documents: DocumentsConfig{
			QuoteValidityDays:  v.GetInt("QUOTE_VALIDITY_DAYS"),
			InvoiceDueDays:     v.GetInt("INVOICE_DUE_DAYS"),
			DiscountAffectsTVA: v.GetBool("TOTALS_DISCOUNT_AFFECTS_TVA"),
		},
	}

	if !v.IsSet("TOTALS_DISCOUNT_AFFECTS_TVA") {
		cfg.Documents.DiscountAffectsTVA = true
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 7093
	}
	if cfg.Numbering.QuotePrefix == "" {
		cfg.Numbering.QuotePrefix = "DEV"
	}
	if cfg.Numbering.QuoteWidth == 0 {
		cfg.Numbering.QuoteWidth = 3
	}
	if cfg.Numbering.InvoicePrefix == "" {
		cfg.Numbering.InvoicePrefix = "FAC"
	}
	if cfg.Numbering.InvoiceWidth == 0 {
		cfg.Numbering.InvoiceWidth = 4
	}
	if cfg.Numbering.MaxRetries == 0 {
		cfg.Numbering.MaxRetries = 5
	}
	if cfg.Documents.QuoteValidityDays == 0 {
		cfg.Documents.QuoteValidityDays = 30
	}
	if cfg.Documents.InvoiceDueDays == 0 {
		cfg.Documents.InvoiceDueDays = 30
	}
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.Numbering.QuoteWidth < 1 || cfg.Numbering.InvoiceWidth < 1 {
		return fmt.Errorf("number widths must be >= 1")
	}
	if cfg.Numbering.QuotePrefix == cfg.Numbering.InvoicePrefix {
		return fmt.Errorf("quote and invoice number prefixes must differ")
	}
	return nil
}
