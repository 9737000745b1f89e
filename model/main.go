package model

import (
	"os"
	"strings"
	"time"

	"github.com/yszxh/nano-image-generator/common"
	"github.com/yszxh/nano-image-generator/common/config"
	"github.com/yszxh/nano-image-generator/common/logger"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

var usingSQLite = false

func chooseDB(envName string) (*gorm.DB, error) {
	dsn := os.Getenv(envName)

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		logger.SysLog("using PostgreSQL as database")
		return gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true, // disables implicit prepared statement usage
		}), gormConfig())
	}
	if dsn != "" {
		logger.SysLog("using MySQL as database")
		return gorm.Open(mysql.Open(dsn), gormConfig())
	}
	logger.SysLog("SQL_DSN not set, using SQLite as database")
	usingSQLite = true
	return gorm.Open(sqlite.Open(common.SQLitePath), gormConfig())
}

func gormConfig() *gorm.Config {
	level := gormlogger.Silent
	if config.DebugEnabled {
		level = gormlogger.Info
	}
	return &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(level),
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
	}
}

func InitDB(envName string) (db *gorm.DB, err error) {
	db, err = chooseDB(envName)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	if usingSQLite {
		// SQLite 单写者，连接开多了只会互相等锁
		sqlDB.SetMaxOpenConns(1)
	}

	logger.SysLog("database migration started")
	if err = db.AutoMigrate(&History{}); err != nil {
		return nil, err
	}
	logger.SysLog("database migrated")
	return db, nil
}

func CloseDB() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
