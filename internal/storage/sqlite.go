package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/radioastro/visdiff/internal/model"
)

const DefaultDBFile = "visdiff.sqlite3"

// Client persists comparison runs so regressions can be tracked
// across simulator versions.
type Client struct {
	DB *gorm.DB
	db *sql.DB
}

// Run is one invocation of the comparison engine.
type Run struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	CurrentDir  string
	BaselineDir string
	Tolerance   float64
	MaxDiff     float64
	Comparable  bool // false when no pair compared successfully
	Passed      bool
	CreatedAt   time.Time
}

// BandResult is the per-band outcome within a run.
type BandResult struct {
	ID      uint   `gorm:"primaryKey;autoIncrement"`
	RunID   string `gorm:"type:varchar(36);index:idx_run"`
	Band    uint
	Samples int
	MaxDiff float64
	Failure string // empty when the pair compared cleanly
}

// Open opens (creating if necessary) the history database at dbPath.
func Open(dbPath string) (*Client, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Run{}, &BandResult{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &Client{DB: db, db: sqlDB}, nil
}

func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// SaveRun stores a finished report and returns the new run's ID.
func (c *Client) SaveRun(report *model.Report, currentDir, baselineDir string) (string, error) {
	if c == nil || c.DB == nil {
		return "", errors.New("storage client is nil")
	}

	maxDiff, comparable := report.MaxDiff()
	run := Run{
		ID:          uuid.NewString(),
		CurrentDir:  currentDir,
		BaselineDir: baselineDir,
		Tolerance:   report.Tolerance,
		MaxDiff:     maxDiff,
		Comparable:  comparable,
		Passed:      report.WithinTolerance(),
	}

	results := make([]BandResult, 0, len(report.Pairs))
	for _, p := range report.Pairs {
		r := BandResult{RunID: run.ID, Band: p.Band}
		if p.OK() {
			r.Samples = p.Samples
			r.MaxDiff = p.MaxDiff
		} else {
			r.Failure = p.Err.Error()
		}
		results = append(results, r)
	}

	err := c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return fmt.Errorf("creating run: %w", err)
		}
		if len(results) > 0 {
			if err := tx.Create(&results).Error; err != nil {
				return fmt.Errorf("creating band results: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

// RecentRuns returns up to limit runs, newest first.
func (c *Client) RecentRuns(limit int) ([]Run, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New("storage client is nil")
	}
	var runs []Run
	if err := c.DB.Order("created_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	return runs, nil
}

// BandResults returns the per-band rows for one run, ascending by band.
func (c *Client) BandResults(runID string) ([]BandResult, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New("storage client is nil")
	}
	var results []BandResult
	if err := c.DB.Where("run_id = ?", runID).Order("band ASC").Find(&results).Error; err != nil {
		return nil, fmt.Errorf("querying band results: %w", err)
	}
	return results, nil
}
