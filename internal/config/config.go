package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the relay process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App      AppConfig
	Attio    AttioConfig
	OpenAI   OpenAIConfig
	Fathom   FathomConfig
	Calendly CalendlyConfig
	Slack    SlackConfig
	Poll     PollConfig
	Stores   StoresConfig
	Ops      OpsConfig
	DB       DBConfig
	Redis    RedisConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type AttioConfig struct {
	APIKey  string
	BaseURL string
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type FathomConfig struct {
	APIKey  string
	BaseURL string

	// WebhookSecret verifies deliveries on the generic endpoint.
	WebhookSecret string

	// AccountSecrets maps account path segments to per-account webhook
	// secrets, parsed from "acct1:secret1,acct2:secret2".
	AccountSecrets map[string]string

	// PollSlotLimit caps concurrent transcript polls per account (redis-backed).
	// Zero disables the cap.
	PollSlotLimit int

	// EndGrace is how long to wait past the reported meeting end before the
	// first transcript fetch.
	EndGrace time.Duration
}

type CalendlyConfig struct {
	// WebhookSigningKey is optional; when empty, signature checks are skipped.
	WebhookSigningKey string
}

type SlackConfig struct {
	// WebhookURL is optional; when empty, failure notifications are disabled.
	WebhookURL string
}

type PollConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

type StoresConfig struct {
	// BookingTTL bounds how long a booking waits for its notetaker webhook.
	BookingTTL time.Duration
	// LeadTTL bounds how long an engaged lead waits for enrichment.
	// Zero means pending leads never expire.
	LeadTTL time.Duration
}

type OpsConfig struct {
	// APIKey is exchanged for a JWT pair at /v1/auth/token.
	APIKey string

	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// DBConfig is optional; when Host is empty the delivery audit log stays in memory.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig is optional; when Addr is empty per-account poll caps are disabled.
type RedisConfig struct {
	Addr string
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.Attio.APIKey = os.Getenv("ATTIO_API_KEY")
	c.Attio.BaseURL = strings.TrimSpace(os.Getenv("ATTIO_BASE_URL"))

	c.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	c.OpenAI.Model = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	c.OpenAI.BaseURL = strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))

	c.Fathom.APIKey = os.Getenv("FATHOM_API_KEY")
	c.Fathom.BaseURL = strings.TrimSpace(os.Getenv("FATHOM_BASE_URL"))
	c.Fathom.WebhookSecret = os.Getenv("FATHOM_WEBHOOK_SECRET")
	c.Fathom.AccountSecrets = parseAccountSecrets(os.Getenv("FATHOM_ACCOUNT_SECRETS"))
	c.Fathom.PollSlotLimit = optInt("FATHOM_POLL_SLOT_LIMIT")
	c.Fathom.EndGrace = mustDuration("FATHOM_END_GRACE")

	c.Calendly.WebhookSigningKey = os.Getenv("CALENDLY_WEBHOOK_SIGNING_KEY")

	c.Slack.WebhookURL = strings.TrimSpace(os.Getenv("SLACK_WEBHOOK_URL"))

	c.Poll.MaxAttempts = optInt("POLL_MAX_ATTEMPTS")
	c.Poll.BaseDelay = mustDuration("POLL_BASE_DELAY")
	c.Poll.MaxDelay = mustDuration("POLL_MAX_DELAY")

	c.Stores.BookingTTL = mustDuration("BOOKING_TTL")
	c.Stores.LeadTTL = mustDuration("LEAD_TTL")

	c.Ops.APIKey = os.Getenv("OPS_API_KEY")
	c.Ops.JWTSecret = os.Getenv("JWT_SECRET")
	c.Ops.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Ops.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	c.Ops.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Ops.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	if c.DB.Host != "" {
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
		c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
		c.DB.Password = os.Getenv("DB_PASSWORD")
		c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
		c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))
	}

	c.Redis.Addr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	c.applyDefaults()
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.Attio.APIKey == "" {
		errs = append(errs, errors.New("ATTIO_API_KEY is required"))
	}
	if c.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required"))
	}
	if c.Fathom.APIKey == "" {
		errs = append(errs, errors.New("FATHOM_API_KEY is required"))
	}

	if c.Ops.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Ops.APIKey == "" {
		errs = append(errs, errors.New("OPS_API_KEY is required"))
	}
	if c.IsProduction() {
		if c.Ops.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Fathom.WebhookSecret == "" && len(c.Fathom.AccountSecrets) == 0 {
			errs = append(errs, errors.New("FATHOM_WEBHOOK_SECRET (or FATHOM_ACCOUNT_SECRETS) is required in production"))
		}
	}

	if c.DB.Host != "" {
		if c.DB.Port <= 0 || c.DB.Port > 65535 {
			errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
		}
		if c.DB.User == "" {
			errs = append(errs, errors.New("DB_USER is required when DB_HOST is set"))
		}
		if c.DB.Name == "" {
			errs = append(errs, errors.New("DB_NAME is required when DB_HOST is set"))
		}
		if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
			errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
		}
	}

	if c.Poll.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("POLL_MAX_ATTEMPTS must be >= 0, got %d", c.Poll.MaxAttempts))
	}
	if c.Fathom.PollSlotLimit < 0 {
		errs = append(errs, fmt.Errorf("FATHOM_POLL_SLOT_LIMIT must be >= 0, got %d", c.Fathom.PollSlotLimit))
	}

	return joinErrors(errs)
}

func (c *Config) applyDefaults() {
	if c.Poll.MaxAttempts == 0 {
		c.Poll.MaxAttempts = 5
	}
	if c.Poll.BaseDelay <= 0 {
		c.Poll.BaseDelay = 30 * time.Second
	}
	if c.Poll.MaxDelay <= 0 {
		c.Poll.MaxDelay = 5 * time.Minute
	}
	if c.Stores.BookingTTL <= 0 {
		c.Stores.BookingTTL = 24 * time.Hour
	}
	// LeadTTL deliberately has no default: zero means no expiry.
	if c.Fathom.EndGrace <= 0 {
		c.Fathom.EndGrace = 2 * time.Minute
	}
	if c.Ops.AccessTokenTTL <= 0 {
		c.Ops.AccessTokenTTL = 15 * time.Minute
	}
	if c.Ops.RefreshTokenTTL <= 0 {
		c.Ops.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Attio.BaseURL == "" {
		c.Attio.BaseURL = "https://api.attio.com"
	}
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = "https://api.openai.com"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.Fathom.BaseURL == "" {
		c.Fathom.BaseURL = "https://api.fathom.ai"
	}
	if c.DB.Host != "" && c.DB.SSLMode == "" {
		if c.IsProduction() {
			c.DB.SSLMode = "require"
		} else {
			c.DB.SSLMode = "disable"
		}
	}
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) AuditDBEnabled() bool {
	return c.DB.Host != ""
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

// parseAccountSecrets parses "acct1:secret1,acct2:secret2" into a map.
// Malformed entries are skipped rather than failing the whole load.
func parseAccountSecrets(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	out := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		account, secret, ok := strings.Cut(strings.TrimSpace(pair), ":")
		account = strings.TrimSpace(account)
		if !ok || account == "" || secret == "" {
			continue
		}
		out[account] = secret
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

// optInt returns 0 when the variable is unset or unparsable; defaults are
// applied by applyDefaults.
func optInt(key string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
