package repository

import (
	"buyer-intent-engine/internal/config"
	"buyer-intent-engine/internal/models"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDatabase(cfg config.DatabaseConfig, app config.AppConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.Host, cfg.User, cfg.Password, cfg.DBName, cfg.Port, cfg.SSLMode,
	)

	var logLevel logger.LogLevel
	if app.Environment == "development" {
		logLevel = logger.Info
	} else {
		logLevel = logger.Error
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxConns)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}

// AutoMigrate creates the tables owned by the engine.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Buyer{},
		&models.BuyerEvent{},
		&models.BuyerPropertyView{},
		&models.IntentScore{},
		&models.IntentScoreLog{},
		&models.IntentScoreSnapshot{},
		&models.TriggerHistory{},
		&models.AgentBuyerEngagement{},
		&models.ZoneScarcityHistory{},
	)
}

// AutoMigrateProjections creates the collaborator-owned tables for local setups.
func AutoMigrateProjections(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Zone{},
		&models.Property{},
		&models.Lead{},
	)
}

func CloseDatabase(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
