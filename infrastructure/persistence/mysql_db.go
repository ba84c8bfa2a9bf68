package persistence

import (
	"fmt"
	"time"

	"publish-scheduler/domain/model"
	"publish-scheduler/infrastructure/configuration"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewMySQLGorm opens the MySQL task store through gorm and migrates the
// scheduled_posts and oauth_tokens tables.
func NewMySQLGorm(cfg configuration.Db) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
	db, err := OpenGorm(mysql.Open(dsn))
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	if err := db.AutoMigrate(&model.Task{}, &model.OAuthToken{}); err != nil {
		return nil, fmt.Errorf("migrate mysql schema: %w", err)
	}
	return db, nil
}

// OpenGorm opens a gorm handle with the settings every store relies on:
// no implicit transactions around single statements and UTC timestamps.
func OpenGorm(dialector gorm.Dialector) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
}
