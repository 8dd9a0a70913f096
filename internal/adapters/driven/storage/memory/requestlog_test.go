package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

func TestRequestLogStore_RecordAndRecent(t *testing.T) {
	store := NewRequestLogStore()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := store.Record(ctx, domain.RequestRecord{
			RequestID:     fmt.Sprintf("req_%d", i),
			QuestionCount: i,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	recent, err := store.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "req_4", recent[0].RequestID)
	assert.Equal(t, "req_2", recent[2].RequestID)
}

func TestRequestLogStore_RecordUpsertsByID(t *testing.T) {
	store := NewRequestLogStore()
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, domain.RequestRecord{RequestID: "req_1", AvgConfidence: 10}))
	require.NoError(t, store.Record(ctx, domain.RequestRecord{RequestID: "req_1", AvgConfidence: 90}))

	recent, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, 90, recent[0].AvgConfidence)
}

func TestRequestLogStore_CapsRecordCount(t *testing.T) {
	store := NewRequestLogStore()
	ctx := context.Background()

	for i := 0; i < maxRecords+10; i++ {
		require.NoError(t, store.Record(ctx, domain.RequestRecord{
			RequestID: fmt.Sprintf("req_%d", i),
			CreatedAt: time.Now().UTC(),
		}))
	}

	recent, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, recent, maxRecords)
}
