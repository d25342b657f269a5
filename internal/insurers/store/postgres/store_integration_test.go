//go:build integration

package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polledger/internal/insurers/models"
	"polledger/internal/insurers/service"
	dErrors "polledger/pkg/domain-errors"
	"polledger/pkg/testutil/containers"
)

func setupStore(t *testing.T) (*Store, *containers.PostgresContainer) {
	t.Helper()
	pg := containers.GetManager().GetPostgres(t)
	pg.TruncateTables(t, "insurer_lines", "insurers", "lines_of_business")
	return New(pg.DB), pg
}

func seedCatalog(t *testing.T, pg *containers.PostgresContainer) {
	t.Helper()
	for _, line := range []models.LineOfBusiness{
		{ID: 1, Name: "Auto", Code: "AU"},
		{ID: 2, Name: "Life", Code: "LI"},
		{ID: 3, Name: "Property", Code: "PR"},
		{ID: 4, Name: "Health", Code: "HE"},
	} {
		_, err := pg.DB.Exec(`
			INSERT INTO lines_of_business (id, name, code) VALUES ($1, $2, $3)
		`, line.ID, line.Name, line.Code)
		require.NoError(t, err)
	}
}

func seedInsurer(t *testing.T, pg *containers.PostgresContainer) uuid.UUID {
	t.Helper()
	insurerID := uuid.New()
	_, err := pg.DB.Exec(`
		INSERT INTO insurers (id, name, status) VALUES ($1, 'Seguros del Sur', 'ACTIVE')
	`, insurerID)
	require.NoError(t, err)
	return insurerID
}

func TestPostgresStore_SyncReplacesAssignmentSet(t *testing.T) {
	st, pg := setupStore(t)
	seedCatalog(t, pg)
	insurerID := seedInsurer(t, pg)
	svc := service.New(st, st)
	ctx := context.Background()

	_, err := svc.SyncLines(ctx, insurerID, []int64{1, 2, 4}, models.AssignmentActive)
	require.NoError(t, err)

	result, err := svc.SyncLines(ctx, insurerID, []int64{2, 3}, models.AssignmentActive)
	require.NoError(t, err)
	assert.Equal(t, &models.SyncResult{Added: 1, Updated: 1, Removed: 2, Status: models.AssignmentActive}, result)

	ids, err := st.AssignedLineIDs(ctx, insurerID)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids)
}

// An unknown line id aborts the sync before the transaction writes anything.
func TestPostgresStore_UnknownLineLeavesAssignmentsUntouched(t *testing.T) {
	st, pg := setupStore(t)
	seedCatalog(t, pg)
	insurerID := seedInsurer(t, pg)
	svc := service.New(st, st)
	ctx := context.Background()

	_, err := svc.SyncLines(ctx, insurerID, []int64{1}, models.AssignmentActive)
	require.NoError(t, err)

	_, err = svc.SyncLines(ctx, insurerID, []int64{2, 99}, models.AssignmentActive)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnknownLine))

	ids, err := st.AssignedLineIDs(ctx, insurerID)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
}

func TestPostgresStore_AssignedLinesJoinCatalog(t *testing.T) {
	st, pg := setupStore(t)
	seedCatalog(t, pg)
	insurerID := seedInsurer(t, pg)
	svc := service.New(st, st)
	ctx := context.Background()

	_, err := svc.SyncLines(ctx, insurerID, []int64{2, 4}, models.AssignmentActive)
	require.NoError(t, err)

	lines, err := st.AssignedLines(ctx, insurerID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "Life", lines[0].Name)
	assert.Equal(t, "Health", lines[1].Name)
}

func TestPostgresStore_SyncUnknownInsurer(t *testing.T) {
	st, pg := setupStore(t)
	seedCatalog(t, pg)
	svc := service.New(st, st)

	_, err := svc.SyncLines(context.Background(), uuid.New(), []int64{1}, models.AssignmentActive)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
