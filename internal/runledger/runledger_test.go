package runledger

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/perf-analysis/pkg/config"
)

func setupSqliteLedger(t *testing.T) *Ledger {
	t.Helper()
	ledger, err := Open(config.DatabaseConfig{Type: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ledger.Close() })
	return ledger
}

func TestRecordImprovementAndBestRoundTrip(t *testing.T) {
	ledger := setupSqliteLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.RecordImprovement(ctx, Entry{
		TaskHash: "task-a", Seed: 1, Score: 10, Turn: 5,
		Duration: 100 * time.Millisecond, SolutionJSON: []byte(`[{"type":"factory"}]`),
	}))
	require.NoError(t, ledger.RecordImprovement(ctx, Entry{
		TaskHash: "task-a", Seed: 2, Score: 40, Turn: 8,
		Duration: 200 * time.Millisecond, SolutionJSON: []byte(`[{"type":"mine"}]`),
	}))

	best, err := ledger.Best(ctx, "task-a")
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, uint32(40), best.Score)
	assert.Equal(t, uint64(2), best.Seed)
	assert.JSONEq(t, `[{"type":"mine"}]`, string(best.SolutionJSON))
}

func TestBestReturnsNilWhenNoRunsRecorded(t *testing.T) {
	ledger := setupSqliteLedger(t)
	best, err := ledger.Best(context.Background(), "unknown-task")
	require.NoError(t, err)
	assert.Nil(t, best)
}

func TestHistoryRespectsLimit(t *testing.T) {
	ledger := setupSqliteLedger(t)
	ctx := context.Background()

	for i := uint64(0); i < 3; i++ {
		require.NoError(t, ledger.RecordImprovement(ctx, Entry{
			TaskHash: "task-b", Seed: i, Score: uint32(10 * (i + 1)),
			SolutionJSON: []byte(`[]`),
		}))
	}

	history, err := ledger.History(ctx, "task-b", 2)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestNilLedgerIsANoOp(t *testing.T) {
	var ledger *Ledger
	require.NoError(t, ledger.RecordImprovement(context.Background(), Entry{}))

	best, err := ledger.Best(context.Background(), "anything")
	require.NoError(t, err)
	assert.Nil(t, best)

	history, err := ledger.History(context.Background(), "anything", 10)
	require.NoError(t, err)
	assert.Nil(t, history)

	assert.NoError(t, ledger.Close())
}

func TestDialectorForRejectsUnknownType(t *testing.T) {
	_, err := dialectorFor(config.DatabaseConfig{Type: "oracle"})
	assert.Error(t, err)
}

// TestRecordImprovementAgainstMockedMySQL drives Ledger.RecordImprovement
// against a go-sqlmock connection wrapped in gorm's MySQL dialector,
// confirming the insert issues the SQL the schema implies without a live
// MySQL server, the same pattern the teacher's mysql_test.go used against
// its own hand-rolled database/sql repositories.
func TestRecordImprovementAgainstMockedMySQL(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	gormDB, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	ledger, err := OpenWithDB(gormDB)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `run_ledger`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err = ledger.RecordImprovement(context.Background(), Entry{
		TaskHash: "task-c", Seed: 9, Score: 162, Turn: 12,
		Duration: time.Second, SolutionJSON: []byte(`[]`),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
