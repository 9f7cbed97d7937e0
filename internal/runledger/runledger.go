// Package runledger records every improving run the solver finds to a
// database, for QA/regression tooling (SPEC_FULL.md §B). It is an optional
// collaborator: the solver runs correctly with no ledger configured, and a
// nil *Ledger is a valid no-op.
//
// Grounded on the teacher's internal/repository package: GORM models with a
// TableName method, a config.DatabaseConfig-driven dialector switch
// (dialectorFor, used by Open; originally
// internal/repository/factory.go's NewGormDB, generalized to add a sqlite
// default so a ledger needs no external database to be useful locally), and
// the same WithContext/errors.Is(gorm.ErrRecordNotFound) idiom throughout.
package runledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/perf-analysis/pkg/compression"
	"github.com/perf-analysis/pkg/config"
)

// Run is one improving solution the runner yielded, as recorded to the
// ledger. TaskHash identifies the task the run solved (cmd/solver fills it
// from internal/board's Board.Hash, a stable content digest).
type Run struct {
	ID             int64  `gorm:"column:id;primaryKey;autoIncrement"`
	TaskHash       string `gorm:"column:task_hash;type:varchar(32);index"`
	Seed           uint64 `gorm:"column:seed"`
	Score          uint32 `gorm:"column:score"`
	Turn           uint32 `gorm:"column:turn"`
	DurationMillis int64  `gorm:"column:duration_millis"`
	Solution       []byte `gorm:"column:solution"` // zstd-compressed solution JSON
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName names the run_ledger table.
func (Run) TableName() string { return "run_ledger" }

// Entry is the caller-facing shape RecordImprovement accepts, pre-compression.
type Entry struct {
	TaskHash     string
	Seed         uint64
	Score        uint32
	Turn         uint32
	Duration     time.Duration
	SolutionJSON []byte
}

// Ledger persists improving runs and answers best/history queries.
type Ledger struct {
	db         *gorm.DB
	compressor compression.Compressor
}

// Open connects to the database named by cfg and ensures the ledger's
// table exists. A nil *Ledger is safe to use as a no-op collaborator
// (RecordImprovement/Best/History all degrade to no-ops or empty results),
// so callers that want no ledger skip Open entirely. DatabaseConfig.Type ""
// is treated as sqlite, at ./solver.db when no Path is set.
func Open(cfg config.DatabaseConfig) (*Ledger, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("runledger: open database: %w", err)
	}

	if err := db.AutoMigrate(&Run{}); err != nil {
		return nil, fmt.Errorf("runledger: migrate schema: %w", err)
	}

	return newLedger(db)
}

// OpenWithDB wraps an already-connected *gorm.DB, skipping AutoMigrate.
// Used in tests to drive the ledger against a go-sqlmock-backed connection.
func OpenWithDB(db *gorm.DB) (*Ledger, error) {
	return newLedger(db)
}

func newLedger(db *gorm.DB) (*Ledger, error) {
	compressor, err := compression.New(compression.TypeZstd, compression.LevelDefault)
	if err != nil {
		return nil, fmt.Errorf("runledger: init compressor: %w", err)
	}
	return &Ledger{db: db, compressor: compressor}, nil
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Type {
	case "", "sqlite":
		path := cfg.Path
		if path == "" {
			path = "./solver.db"
		}
		return sqlite.Open(path), nil
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database,
		)
		return postgres.Open(dsn), nil
	case "mysql":
		dsn := fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=Local",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		)
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("runledger: unsupported database type: %s", cfg.Type)
	}
}

// RecordImprovement compresses and persists one improving run. Called from
// cmd/solver's runner.Config.OnImprovement hook each time a candidate beats
// the best seen so far.
func (l *Ledger) RecordImprovement(ctx context.Context, e Entry) error {
	if l == nil {
		return nil
	}

	compressed, err := l.compressor.Compress(e.SolutionJSON)
	if err != nil {
		return fmt.Errorf("runledger: compress solution: %w", err)
	}

	record := &Run{
		TaskHash:       e.TaskHash,
		Seed:           e.Seed,
		Score:          e.Score,
		Turn:           e.Turn,
		DurationMillis: e.Duration.Milliseconds(),
		Solution:       compressed,
	}

	if err := l.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("runledger: insert run: %w", err)
	}
	return nil
}

// Best returns the highest-scoring recorded run for taskHash, decompressing
// its solution JSON. Returns (nil, nil) if no run has been recorded yet.
func (l *Ledger) Best(ctx context.Context, taskHash string) (*Entry, error) {
	if l == nil {
		return nil, nil
	}

	var record Run
	err := l.db.WithContext(ctx).
		Where("task_hash = ?", taskHash).
		Order("score DESC, turn ASC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("runledger: query best run: %w", err)
	}

	return l.decode(&record)
}

// History returns up to limit recent runs for taskHash, newest first.
func (l *Ledger) History(ctx context.Context, taskHash string, limit int) ([]Entry, error) {
	if l == nil {
		return nil, nil
	}

	var records []Run
	err := l.db.WithContext(ctx).
		Where("task_hash = ?", taskHash).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("runledger: query history: %w", err)
	}

	entries := make([]Entry, 0, len(records))
	for i := range records {
		entry, err := l.decode(&records[i])
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func (l *Ledger) decode(record *Run) (*Entry, error) {
	solutionJSON, err := l.compressor.Decompress(record.Solution)
	if err != nil {
		return nil, fmt.Errorf("runledger: decompress solution: %w", err)
	}

	return &Entry{
		TaskHash:     record.TaskHash,
		Seed:         record.Seed,
		Score:        record.Score,
		Turn:         record.Turn,
		Duration:     time.Duration(record.DurationMillis) * time.Millisecond,
		SolutionJSON: solutionJSON,
	}, nil
}

// Close releases the underlying database connection.
func (l *Ledger) Close() error {
	if l == nil {
		return nil
	}
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
