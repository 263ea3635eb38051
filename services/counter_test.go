package services

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/autostock/autostock-api/models"
)

// testDB connects to the MongoDB named by MONGO_TEST_URI and hands back a
// throwaway database, dropped on cleanup. Tests are skipped when the
// variable is unset.
func testDB(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set, skipping MongoDB-backed test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))

	db := client.Database(fmt.Sprintf("autostock_test_%d", time.Now().UnixNano()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}

func TestNextSequenceStartsAtOne(t *testing.T) {
	svc := NewCounterService(testDB(t))
	ctx := context.Background()

	seq, err := svc.NextSequence(ctx, "u1", models.CounterProduct)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
}

func TestNextSequenceSequential(t *testing.T) {
	svc := NewCounterService(testDB(t))
	ctx := context.Background()

	for want := int64(1); want <= 5; want++ {
		got, err := svc.NextSequence(ctx, "u1", models.CounterBatch)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestNextSequenceIndependentPartitions(t *testing.T) {
	svc := NewCounterService(testDB(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.NextSequence(ctx, "u1", models.CounterProduct)
		require.NoError(t, err)
	}

	// Different kind, different owner: both start fresh.
	seq, err := svc.NextSequence(ctx, "u1", models.CounterBatch)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	seq, err = svc.NextSequence(ctx, "u2", models.CounterProduct)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
}

func TestNextSequenceConcurrent(t *testing.T) {
	svc := NewCounterService(testDB(t))
	ctx := context.Background()

	const n = 25
	results := make([]int64, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seq, err := svc.NextSequence(ctx, "u1", models.CounterProduct)
			assert.NoError(t, err)
			results[i] = seq
		}(i)
	}
	wg.Wait()

	// N concurrent calls must return a permutation of 1..N.
	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })
	for i := 0; i < n; i++ {
		assert.Equal(t, int64(i+1), results[i])
	}
}

func TestCurrentSequence(t *testing.T) {
	svc := NewCounterService(testDB(t))
	ctx := context.Background()

	cur, err := svc.CurrentSequence(ctx, "u1", models.CounterProduct)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cur, "no counter document yet")

	for i := 0; i < 4; i++ {
		_, err := svc.NextSequence(ctx, "u1", models.CounterProduct)
		require.NoError(t, err)
	}

	cur, err = svc.CurrentSequence(ctx, "u1", models.CounterProduct)
	require.NoError(t, err)
	assert.Equal(t, int64(4), cur)
}

func TestResetSequence(t *testing.T) {
	svc := NewCounterService(testDB(t))
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		_, err := svc.NextSequence(ctx, "u1", models.CounterBatch)
		require.NoError(t, err)
	}

	require.NoError(t, svc.ResetSequence(ctx, "u1", models.CounterBatch))

	seq, err := svc.NextSequence(ctx, "u1", models.CounterBatch)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq, "sequence restarts after reset")
}

func TestResetSequenceCreatesDocument(t *testing.T) {
	svc := NewCounterService(testDB(t))
	ctx := context.Background()

	require.NoError(t, svc.ResetSequence(ctx, "fresh", models.CounterProduct))

	cur, err := svc.CurrentSequence(ctx, "fresh", models.CounterProduct)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cur)
}
