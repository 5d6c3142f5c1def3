package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/fieldops-bot/internal/domain"
	"github.com/spec-kit/fieldops-bot/pkg/util"
)

func newProgressFixture(t *testing.T) (*ProgressService, int64) {
	t.Helper()
	repo := newFakeProgressRepo()
	clock := func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }
	svc := NewProgressService(repo, clock)
	orderID := int64(1)
	require.NoError(t, svc.Initialize(context.Background(), orderID))
	return svc, orderID
}

func TestUpdateStageRequiresEarlierStagesDone(t *testing.T) {
	svc, orderID := newProgressFixture(t)
	ctx := context.Background()

	_, err := svc.UpdateStage(ctx, orderID, domain.StageCablePull, domain.StageDone, "", 7)
	assert.True(t, util.IsCode(err, "CONFLICT"))

	_, err = svc.UpdateStage(ctx, orderID, domain.StageSurvey, domain.StageDone, "", 7)
	require.NoError(t, err)

	progress, err := svc.UpdateStage(ctx, orderID, domain.StageCablePull, domain.StageDone, "", 7)
	require.NoError(t, err)
	assert.Equal(t, domain.StageDone, progress.StageRecord(domain.StageCablePull).Status)
}

func TestUpdateStageRejectsUnknownStage(t *testing.T) {
	svc, orderID := newProgressFixture(t)

	_, err := svc.UpdateStage(context.Background(), orderID, domain.StageCompleted, domain.StageDone, "", 7)
	assert.True(t, util.IsCode(err, "VALIDATION_FAILED"))
}

func TestUpdateStageTimestamps(t *testing.T) {
	svc, orderID := newProgressFixture(t)
	ctx := context.Background()

	progress, err := svc.UpdateStage(ctx, orderID, domain.StageSurvey, domain.StageInProgress, "mulai survey", 7)
	require.NoError(t, err)
	rec := progress.StageRecord(domain.StageSurvey)
	require.NotNil(t, rec.StartedAt)
	assert.Nil(t, rec.CompletedAt)
	assert.Equal(t, "mulai survey", rec.Notes)
	assert.Equal(t, int64(7), rec.UpdatedBy)

	progress, err = svc.UpdateStage(ctx, orderID, domain.StageSurvey, domain.StageDone, "", 7)
	require.NoError(t, err)
	rec = progress.StageRecord(domain.StageSurvey)
	require.NotNil(t, rec.CompletedAt)
	assert.Equal(t, "mulai survey", rec.Notes, "empty notes must not erase earlier ones")
}

func TestNextStageWalksWorkStages(t *testing.T) {
	svc, orderID := newProgressFixture(t)
	ctx := context.Background()

	stage, ok, err := svc.NextStage(ctx, orderID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.StageSurvey, stage)

	for _, s := range domain.WorkStages {
		_, err = svc.UpdateStage(ctx, orderID, s, domain.StageDone, "", 7)
		require.NoError(t, err)
	}

	_, ok, err = svc.NextStage(ctx, orderID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProgressStats(t *testing.T) {
	svc, orderID := newProgressFixture(t)
	ctx := context.Background()

	_, err := svc.UpdateStage(ctx, orderID, domain.StageSurvey, domain.StageDone, "", 7)
	require.NoError(t, err)
	_, err = svc.UpdateStage(ctx, orderID, domain.StageCablePull, domain.StageInProgress, "", 7)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalStages)
	assert.Equal(t, 1, stats.CompletedStages)
	assert.Equal(t, 25, stats.CompletionPercentage)

	complete, err := svc.IsComplete(ctx, orderID)
	require.NoError(t, err)
	assert.False(t, complete)
}

func TestProgressSummaryListsAllStages(t *testing.T) {
	svc, orderID := newProgressFixture(t)
	ctx := context.Background()

	_, err := svc.UpdateStage(ctx, orderID, domain.StageSurvey, domain.StageDone, "", 7)
	require.NoError(t, err)

	summary, err := svc.Summary(ctx, orderID)
	require.NoError(t, err)
	assert.Contains(t, summary, "Survey Lokasi")
	assert.Contains(t, summary, "Penarikan Kabel")
	assert.Contains(t, summary, "Instalasi ONT")
	assert.Contains(t, summary, "Upload Evidence")
	assert.Equal(t, 1, strings.Count(summary, "✅"))
}
