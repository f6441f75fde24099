// Configuration is loaded from a yaml file placed on the server. Secrets may instead
// come from the environment (or a .env file), which then take precedence.

package config

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type (
	DatabaseType string
	LogStyle     string

	Application struct {
		Service        ServiceConfig        `yaml:"service"`
		Server         ServerConfig         `yaml:"server"`
		Database       DatabaseConfig       `yaml:"database"`
		Redis          RedisConfig          `yaml:"redis"`
		Security       SecurityConfig       `yaml:"security"`
		Mia            MiaConfig            `yaml:"mia"`
		Reconciliation ReconciliationConfig `yaml:"reconciliation"`
		Logging        LoggingConfig        `yaml:"logging"`
	}

	ServiceConfig struct {
		Name string `yaml:"name"`
	}

	ServerConfig struct {
		BaseAddress  string `yaml:"address"`
		Port         int    `yaml:"port"`
		ReadTimeout  int    `yaml:"read_timeout_seconds"`
		WriteTimeout int    `yaml:"write_timeout_seconds"`
		IdleTimeout  int    `yaml:"idle_timeout_seconds"`
	}

	DatabaseConfig struct {
		Use        DatabaseType `yaml:"use"`
		Username   string       `yaml:"username"`
		Password   string       `yaml:"password"`
		Database   string       `yaml:"database"`
		Parameters []string     `yaml:"parameters"`
	}

	// RedisConfig is optional. Without an address, order locks are process-local.
	RedisConfig struct {
		Address        string `yaml:"address"`
		Password       string `yaml:"password"`
		DB             int    `yaml:"db"`
		LockTTLSeconds int    `yaml:"lock_ttl_seconds"`
	}

	SecurityConfig struct {
		Fixed FixedTokenConfig `yaml:"fixed_token"`
	}

	FixedTokenConfig struct {
		Api string `yaml:"api"` // shared-secret for shop backend to service requests
	}

	MiaConfig struct {
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		SignatureKey string `yaml:"signature_key"`
		CallbackURL  string `yaml:"callback_url"`
		// RedirectURL may contain {orderId}, which is replaced with the escaped order id.
		RedirectURL string `yaml:"redirect_url"`
		// OrderDescription is a fmt template receiving the order id.
		OrderDescription           string `yaml:"order_description"`
		TransactionValidityMinutes int    `yaml:"transaction_validity_minutes"`
		RequestTimeoutSeconds      int    `yaml:"request_timeout_seconds"`
		Sandbox                    bool   `yaml:"sandbox"`
		Debug                      bool   `yaml:"debug"`
		BaseURL                    string `yaml:"base_url"`
	}

	ReconciliationConfig struct {
		// Schedule is a cron expression. Empty disables scheduled reconciliation.
		Schedule string `yaml:"schedule"`
	}

	LoggingConfig struct {
		Severity string   `yaml:"severity"`
		Style    LogStyle `yaml:"style"`
	}
)

const (
	Mysql    DatabaseType = "mysql"
	Inmemory DatabaseType = "inmemory"

	Plain LogStyle = "plain"
	ECS   LogStyle = "ecs" // default
)

const (
	DefaultTransactionValidityMinutes = 360
	DefaultRequestTimeoutSeconds      = 30
	DefaultOrderDescription           = "Order #%s"
	DefaultMethodTitle                = "maib MIA"
)

// environment variables overriding secrets from the configuration file
const (
	EnvClientID      = "MIA_CLIENT_ID"
	EnvClientSecret  = "MIA_CLIENT_SECRET"
	EnvSignatureKey  = "MIA_SIGNATURE_KEY"
	EnvApiToken      = "MIA_API_TOKEN"
	EnvDbPassword    = "MIA_DB_PASSWORD"
	EnvRedisPassword = "MIA_REDIS_PASSWORD"
)

// LoadConfiguration reads, defaults and validates the configuration file at path.
func LoadConfiguration(path string, logFunc func(format string, v ...interface{})) (*Application, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open configuration file '%s': %w", path, err)
	}
	defer f.Close()

	conf, err := UnmarshalFromYamlConfiguration(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file '%s': %w", path, err)
	}

	// a missing .env file is fine, it is purely a development convenience
	_ = godotenv.Load()
	ApplyEnvironmentOverrides(conf, NewEnvSource())

	ApplyDefaults(conf)

	if err := Validate(conf, logFunc); err != nil {
		return nil, err
	}
	return conf, nil
}

func UnmarshalFromYamlConfiguration(file io.Reader) (*Application, error) {
	d := yaml.NewDecoder(file)
	d.KnownFields(true)

	conf := &Application{}
	if err := d.Decode(conf); err != nil {
		return nil, err
	}

	return conf, nil
}

func ApplyDefaults(conf *Application) {
	if conf.Mia.TransactionValidityMinutes == 0 {
		conf.Mia.TransactionValidityMinutes = DefaultTransactionValidityMinutes
	}
	if conf.Mia.RequestTimeoutSeconds == 0 {
		conf.Mia.RequestTimeoutSeconds = DefaultRequestTimeoutSeconds
	}
	if conf.Mia.OrderDescription == "" {
		conf.Mia.OrderDescription = DefaultOrderDescription
	}
	if conf.Redis.LockTTLSeconds == 0 {
		conf.Redis.LockTTLSeconds = MinLockTTLSeconds(conf.Mia.RequestTimeoutSeconds)
	}
	if conf.Logging.Severity == "" {
		conf.Logging.Severity = "INFO"
	}
	if conf.Logging.Style == "" {
		conf.Logging.Style = ECS
	}
	if conf.Mia.Debug {
		conf.Logging.Severity = "DEBUG"
	}
}

// EnvSource looks up environment overrides.
type EnvSource interface {
	GetString(key string) string
}

// NewEnvSource reads the process environment through viper.
func NewEnvSource() EnvSource {
	v := viper.New()
	v.AutomaticEnv()
	return v
}

func ApplyEnvironmentOverrides(conf *Application, env EnvSource) {
	override := func(target *string, key string) {
		if value := strings.TrimSpace(env.GetString(key)); value != "" {
			*target = value
		}
	}

	override(&conf.Mia.ClientID, EnvClientID)
	override(&conf.Mia.ClientSecret, EnvClientSecret)
	override(&conf.Mia.SignatureKey, EnvSignatureKey)
	override(&conf.Security.Fixed.Api, EnvApiToken)
	override(&conf.Database.Password, EnvDbPassword)
	override(&conf.Redis.Password, EnvRedisPassword)
}

func (c MiaConfig) TransactionValidity() time.Duration {
	return time.Duration(c.TransactionValidityMinutes) * time.Minute
}

func (c MiaConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// HasCredentials is true when everything needed to talk to the bank is present.
func (c MiaConfig) HasCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.SignatureKey != ""
}

func (c MiaConfig) RedirectURLFor(orderID string) string {
	return strings.ReplaceAll(c.RedirectURL, "{orderId}", url.PathEscape(orderID))
}

func (c MiaConfig) DescriptionFor(orderID string) string {
	template := c.OrderDescription
	if template == "" {
		template = DefaultOrderDescription
	}
	if !strings.Contains(template, "%s") {
		return template
	}
	return fmt.Sprintf(template, orderID)
}

// a payment initiation holds the order lock across up to this many bank calls
const bankCallsUnderLock = 4

// MinLockTTLSeconds is the shortest lock lifetime that cannot run out while an initiation is still
// waiting for the bank.
func MinLockTTLSeconds(requestTimeoutSeconds int) int {
	return bankCallsUnderLock * requestTimeoutSeconds
}

func (c RedisConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}
