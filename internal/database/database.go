package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dbext/podstream/internal/config"
)

var DB *gorm.DB

func Init() error {
	dbPath := config.Cfg.DatabasePath
	if dbPath == "" {
		dbPath = filepath.Join(config.Cfg.DataPath, "podstream.db")
	}
	if dbDir := filepath.Dir(dbPath); dbDir != "" {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return fmt.Errorf("create db directory: %w", err)
		}
	}

	var err error
	DB, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}

	if err := DB.AutoMigrate(&Execution{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

func Close() {
	if DB == nil {
		return
	}
	if sqlDB, err := DB.DB(); err == nil {
		sqlDB.Close()
	}
}

// RecordStart persists a newly launched execution.
func RecordStart(exec *Execution) error {
	exec.Status = "running"
	exec.StartedAt = time.Now()
	return DB.Create(exec).Error
}

// RecordFinish stores the outcome of an execution once its terminal record
// arrived.
func RecordFinish(id, pod, status, detail string, exitCode int) error {
	now := time.Now()
	return DB.Model(&Execution{}).Where("id = ?", id).Updates(map[string]any{
		"pod":         pod,
		"status":      status,
		"detail":      detail,
		"exit_code":   exitCode,
		"finished_at": &now,
	}).Error
}

// RecentExecutions returns the latest runs, newest first.
func RecentExecutions(limit int) ([]Execution, error) {
	if limit <= 0 {
		limit = 50
	}
	var execs []Execution
	err := DB.Order("started_at DESC").Limit(limit).Find(&execs).Error
	return execs, err
}
