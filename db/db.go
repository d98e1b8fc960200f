package db

import (
	"fmt"

	"guardiao/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect 打开 Postgres 并执行迁移
func Connect(dsn string, log *zap.Logger) (*gorm.DB, error) {
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := Migrate(conn); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info("database connected")
	return conn, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Operator{},
		&models.Client{},
		&models.Category{},
		&models.Material{},
		&models.Loan{},
		&models.LoanItem{},
		&models.LoanHistory{},
		&models.Case{},
		&models.Signer{},
		&models.SignerRole{},
		&models.ReadinessReport{},
	); err != nil {
		return err
	}

	// 无序列号物资：同名同类别只保留一条，登记时合并数量
	if err := db.Exec(fmt.Sprintf(`
	  CREATE UNIQUE INDEX IF NOT EXISTS %s_fungible_key
	  ON %s (name, category_id)
	  WHERE has_serial = false;
	`, models.MaterialTable, models.MaterialTable)).Error; err != nil {
		return err
	}

	// 对账时按物资查明细
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_material_loan
	  ON %s (material_id, loan_id);
	`, models.LoanItemTable, models.LoanItemTable)).Error; err != nil {
		return err
	}

	return nil
}
