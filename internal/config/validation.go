package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/robfig/cron/v3"
)

func Validate(conf *Application, logFunc func(format string, v ...interface{})) error {
	errs := url.Values{}
	validateServerConfiguration(errs, conf.Server)
	validateDatabaseConfiguration(errs, conf.Database)
	validateRedisConfiguration(errs, conf.Redis, conf.Mia)
	validateSecurityConfiguration(errs, conf.Security)
	validateMiaConfiguration(errs, conf.Mia)
	validateReconciliationConfiguration(errs, conf.Reconciliation)
	validateLoggingConfiguration(errs, conf.Logging)

	if len(errs) > 0 {
		logValidationErrorDetails(errs, logFunc)
		return errors.New("configuration values failed to validate, bailing out")
	}

	return nil
}

const (
	urlPattern     = "^https?://.*$"
	baseUrlPattern = "^https?://.*[^/]$"
)

func validateServerConfiguration(errs url.Values, c ServerConfig) {
	checkIntValueRange(errs, 1, 65535, "server.port", c.Port)
	checkIntValueRange(errs, 1, 300, "server.read_timeout_seconds", c.ReadTimeout)
	checkIntValueRange(errs, 1, 300, "server.write_timeout_seconds", c.WriteTimeout)
	checkIntValueRange(errs, 1, 300, "server.idle_timeout_seconds", c.IdleTimeout)
}

func validateSecurityConfiguration(errs url.Values, c SecurityConfig) {
	checkLength(&errs, 16, 256, "security.fixed_token.api", c.Fixed.Api)
}

var allowedDatabases = []DatabaseType{Mysql, Inmemory}

func validateDatabaseConfiguration(errs url.Values, c DatabaseConfig) {
	if notInAllowedValues(allowedDatabases[:], c.Use) {
		errs.Add("database.use", "must be one of mysql, inmemory")
	}
	if c.Use == Mysql {
		checkLength(&errs, 1, 256, "database.username", c.Username)
		checkLength(&errs, 1, 256, "database.password", c.Password)
		checkLength(&errs, 1, 256, "database.database", c.Database)
	}
}

func validateRedisConfiguration(errs url.Values, c RedisConfig, mia MiaConfig) {
	if c.Address == "" {
		return
	}
	checkIntValueRange(errs, 0, 15, "redis.db", c.DB)
	checkIntValueRange(errs, 1, 3600, "redis.lock_ttl_seconds", c.LockTTLSeconds)
	if minTTL := MinLockTTLSeconds(mia.RequestTimeoutSeconds); c.LockTTLSeconds < minTTL {
		errs.Add("redis.lock_ttl_seconds", fmt.Sprintf("redis.lock_ttl_seconds must be at least %d, four times mia.request_timeout_seconds", minTTL))
	}
}

func validateMiaConfiguration(errs url.Values, c MiaConfig) {
	checkLength(&errs, 1, 256, "mia.client_id", c.ClientID)
	checkLength(&errs, 1, 256, "mia.client_secret", c.ClientSecret)
	checkLength(&errs, 1, 256, "mia.signature_key", c.SignatureKey)
	if violatesPattern(urlPattern, c.CallbackURL) {
		errs.Add("mia.callback_url", "must start with http:// or https://")
	}
	if violatesPattern(urlPattern, c.RedirectURL) {
		errs.Add("mia.redirect_url", "must start with http:// or https://")
	}
	if c.BaseURL != "" && violatesPattern(baseUrlPattern, c.BaseURL) {
		errs.Add("mia.base_url", "base url must start with http:// or https:// and may not end in a /")
	}
	if strings.Count(c.OrderDescription, "%") > 1 || (strings.Contains(c.OrderDescription, "%") && !strings.Contains(c.OrderDescription, "%s")) {
		errs.Add("mia.order_description", "may contain at most one %s placeholder for the order id")
	}
	checkIntValueRange(errs, 1, 1440, "mia.transaction_validity_minutes", c.TransactionValidityMinutes)
	checkIntValueRange(errs, 1, 300, "mia.request_timeout_seconds", c.RequestTimeoutSeconds)
}

func validateReconciliationConfiguration(errs url.Values, c ReconciliationConfig) {
	if c.Schedule == "" {
		return
	}
	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		errs.Add("reconciliation.schedule", "must be a standard 5 field cron expression or a descriptor like @every 5m")
	}
}

var allowedSeverities = []string{"DEBUG", "INFO", "WARN", "ERROR"}

var allowedLogStyles = []LogStyle{Plain, ECS}

func validateLoggingConfiguration(errs url.Values, c LoggingConfig) {
	if notInAllowedValues(allowedSeverities[:], c.Severity) {
		errs.Add("logging.severity", "must be one of DEBUG, INFO, WARN, ERROR")
	}
	if notInAllowedValues(allowedLogStyles[:], c.Style) {
		errs.Add("logging.style", "must be one of plain, ecs")
	}
}

func violatesPattern(pattern string, value string) bool {
	matched, err := regexp.MatchString(pattern, value)
	if err != nil {
		return true
	}
	return !matched
}

func checkLength(errs *url.Values, min int, max int, key string, value string) {
	if len(value) < min || len(value) > max {
		errs.Add(key, fmt.Sprintf("%s field must be at least %d and at most %d characters long", key, min, max))
	}
}

func checkIntValueRange(errs url.Values, min int, max int, key string, value int) {
	if value < min || value > max {
		errs.Add(key, fmt.Sprintf("%s field must be an integer at least %d and at most %d", key, min, max))
	}
}

func notInAllowedValues[T comparable](allowed []T, value T) bool {
	return !sliceContains(allowed, value)
}

func sliceContains[T comparable](s []T, e T) bool {
	for _, v := range s {
		if v == e {
			return true
		}
	}
	return false
}

func logValidationErrorDetails(errs url.Values, logFunc func(format string, v ...interface{})) {
	var keys []string
	for key := range errs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, k := range keys {
		key := k
		val := errs[k]
		logFunc("configuration error: %s: %s", key, val[0])
	}
}
