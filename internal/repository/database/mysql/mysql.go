package mysql

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/config"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/entities"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/logging"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/repository/database"
)

var _ database.Repository = (*mysqlConnector)(nil)

// order traffic is low, the pool only needs to absorb callback bursts
const (
	maxOpenConns    = 20
	maxIdleConns    = 5
	connMaxLifetime = 10 * time.Minute
	slowQuery       = time.Second
)

type mysqlConnector struct {
	logger logging.Logger
	db     *gorm.DB
}

func NewMySQLConnector(conf config.DatabaseConfig, logger logging.Logger) (database.Repository, error) {
	dsn, err := buildMySQLDSN(conf.Username, conf.Password, conf.Database, conf.Parameters)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			TablePrefix: "mia_",
		},
		Logger: gormlogger.New(gormWriter{logger: logger}, gormlogger.Config{
			SlowThreshold:             slowQuery,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	return &mysqlConnector{
		logger: logger,
		db:     db,
	}, nil
}

// Migrate creates the order and note tables. Existing orders are never altered.
func (m *mysqlConnector) Migrate() error {
	if err := m.db.AutoMigrate(&entities.Order{}, &entities.OrderNote{}); err != nil {
		return fmt.Errorf("failed to migrate order tables: %w", err)
	}
	m.logger.Info("order tables migrated")
	return nil
}

// gormWriter sends slow query and sql error reports to our logger.
type gormWriter struct {
	logger logging.Logger
}

func (w gormWriter) Printf(format string, v ...interface{}) {
	w.logger.Warn("gorm: "+format, v...)
}

func buildMySQLDSN(username, password, database string, parameters []string) (string, error) {
	switch {
	case username == "":
		return "", errors.New("username must not be empty")
	case password == "":
		return "", errors.New("password must not be empty")
	case database == "":
		return "", errors.New("database must not be empty")
	}

	dsn := fmt.Sprintf("%s:%s@%s", username, password, database)
	if len(parameters) > 0 {
		dsn += "?" + strings.Join(parameters, "&")
	}
	return dsn, nil
}
