package jobs

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeExecutor struct {
	mu      sync.Mutex
	queries []string
	args    [][]any
	err     error
}

func (f *fakeExecutor) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	f.queries = append(f.queries, sql)
	f.args = append(f.args, args)
	return pgconn.NewCommandTag("DELETE 5"), nil
}

func TestRunOnce_PrunesPastCutoff(t *testing.T) {
	db := &fakeExecutor{}
	job := NewPriceRetention(zap.NewNop(), db, 7*24*time.Hour, time.Hour)

	before := time.Now().Add(-7 * 24 * time.Hour)
	job.runOnce(context.Background())

	require.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0], "DELETE FROM market.exchange_price")

	require.Len(t, db.args[0], 1)
	cutoff, ok := db.args[0][0].(time.Time)
	require.True(t, ok)
	assert.WithinDuration(t, before, cutoff, time.Minute)
}

func TestRunOnce_ExecFailureIsContained(t *testing.T) {
	db := &fakeExecutor{err: fmt.Errorf("connection refused")}
	job := NewPriceRetention(zap.NewNop(), db, time.Hour, time.Minute)

	// Must not panic or propagate
	job.runOnce(context.Background())
}

func TestStartStop(t *testing.T) {
	db := &fakeExecutor{}
	job := NewPriceRetention(zap.NewNop(), db, time.Hour, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		job.Start(context.Background())
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	job.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not stop")
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	assert.NotEmpty(t, db.queries)
}
