package storage_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"sampark/backend/internal/models"
	"sampark/backend/internal/storage"
	"sampark/backend/internal/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGrievance(code, owner string) *models.Grievance {
	return &models.Grievance{
		TrackingID:  code,
		Title:       "Pothole on Main St",
		Description: "Large pothole",
		Category:    "potholes",
		Location:    "Main St",
		UserID:      owner,
	}
}

func seedEntry(owner string) *models.StatusEntry {
	comment := "Grievance submitted successfully"
	return &models.StatusEntry{Status: models.StatusSubmitted, Comment: &comment, CreatedBy: owner}
}

func create(t *testing.T, s *storage.Service, code, owner string) *models.Grievance {
	t.Helper()
	g := newGrievance(code, owner)
	require.NoError(t, s.CreateGrievance(context.Background(), g, seedEntry(owner)))
	return g
}

func TestCreateGrievance_SeedsHistory(t *testing.T) {
	s := testutils.NewStorage(t)
	ctx := context.Background()

	g := create(t, s, "SMPK123450001", "owner-1")
	assert.NotEmpty(t, g.ID)
	assert.Equal(t, models.CategoryPotholes, g.Category)
	assert.Equal(t, models.PriorityMedium, g.Priority)

	history, err := s.StatusHistory(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusSubmitted, history[0].Status)
	assert.Equal(t, "owner-1", history[0].CreatedBy)
}

func TestCreateGrievance_DuplicateTrackingID(t *testing.T) {
	s := testutils.NewStorage(t)
	ctx := context.Background()

	create(t, s, "SMPK123450001", "owner-1")

	dup := newGrievance("SMPK123450001", "owner-2")
	err := s.CreateGrievance(ctx, dup, seedEntry("owner-2"))
	assert.ErrorIs(t, err, storage.ErrDuplicateTrackingID)

	list, err := s.ListGrievancesByOwner(ctx, "owner-2")
	require.NoError(t, err)
	assert.Empty(t, list, "failed insert must not leave a grievance or a seed entry behind")
}

func TestCreateGrievance_Validation(t *testing.T) {
	s := testutils.NewStorage(t)

	g := newGrievance("SMPK123450001", "owner-1")
	g.Location = ""
	err := s.CreateGrievance(context.Background(), g, seedEntry("owner-1"))
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestTrackingIDExists(t *testing.T) {
	s := testutils.NewStorage(t)
	ctx := context.Background()
	create(t, s, "SMPK123450001", "owner-1")

	exists, err := s.TrackingIDExists(ctx, "smpk123450001")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.TrackingIDExists(ctx, "SMPK999990000")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFindGrievance(t *testing.T) {
	s := testutils.NewStorage(t)
	ctx := context.Background()
	g := create(t, s, "SMPK123450001", "owner-1")

	byCode, err := s.FindGrievanceByTrackingID(ctx, "SMPK123450001")
	require.NoError(t, err)
	assert.Equal(t, g.ID, byCode.ID)
	assert.Len(t, byCode.Statuses, 1)
	assert.Equal(t, models.StatusSubmitted, byCode.CurrentStatus)

	byID, err := s.FindGrievanceByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "SMPK123450001", byID.TrackingID)

	_, err = s.FindGrievanceByTrackingID(ctx, "SMPK00000000")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.FindGrievanceByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFindGrievanceWithSubmitter(t *testing.T) {
	s := testutils.NewStorage(t)
	ctx := context.Background()
	owner := &models.User{Name: "Asha", Email: "asha@example.com", Password: "hash"}
	require.NoError(t, s.CreateUser(ctx, owner))
	g := create(t, s, "SMPK123450001", owner.ID)

	got, err := s.FindGrievanceWithSubmitter(ctx, g.ID)
	require.NoError(t, err)
	require.NotNil(t, got.User)
	assert.Equal(t, owner.ID, got.User.ID)
	assert.Equal(t, "Asha", got.User.Name)
	assert.Equal(t, "asha@example.com", got.User.Email)
	assert.Len(t, got.Statuses, 1)

	plain, err := s.FindGrievanceByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Nil(t, plain.User)
	byCode, err := s.FindGrievanceByTrackingID(ctx, g.TrackingID)
	require.NoError(t, err)
	assert.Nil(t, byCode.User, "public lookups never load the submitter")

	listed, _, err := s.ListGrievances(ctx, storage.GrievanceFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.NotNil(t, listed[0].User)
	assert.Equal(t, "Asha", listed[0].User.Name)

	_, err = s.FindGrievanceWithSubmitter(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStatusLog_OrderingAndLatest(t *testing.T) {
	s := testutils.NewStorage(t)
	ctx := context.Background()
	g := create(t, s, "SMPK123450001", "owner-1")

	for _, st := range []models.Status{models.StatusUnderReview, models.StatusInProgress, models.StatusResolved} {
		require.NoError(t, s.AppendStatus(ctx, &models.StatusEntry{GrievanceID: g.ID, Status: st, CreatedBy: "admin-1"}))
	}

	history, err := s.StatusHistory(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, models.StatusResolved, history[0].Status)
	assert.Equal(t, models.StatusSubmitted, history[3].Status, "oldest entry is the seed")

	for i := 1; i < len(history); i++ {
		assert.False(t, history[i].CreatedAt.After(history[i-1].CreatedAt), "history must be newest first")
	}

	latest, err := s.LatestStatus(ctx, g.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, history[0].ID, latest.ID)
}

func TestStatusLog_TiesBrokenByInsertionOrder(t *testing.T) {
	s := testutils.NewStorage(t)
	ctx := context.Background()
	g := create(t, s, "SMPK123450001", "owner-1")

	at := time.Now().Add(time.Minute)
	require.NoError(t, s.AppendStatus(ctx, &models.StatusEntry{GrievanceID: g.ID, Status: models.StatusUnderReview, CreatedAt: at}))
	require.NoError(t, s.AppendStatus(ctx, &models.StatusEntry{GrievanceID: g.ID, Status: models.StatusRejected, CreatedAt: at}))

	latest, err := s.LatestStatus(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, latest.Status)
}

func TestStatusLog_NoEntries(t *testing.T) {
	s := testutils.NewStorage(t)

	latest, err := s.LatestStatus(context.Background(), "unknown")
	assert.NoError(t, err)
	assert.Nil(t, latest)
}

func TestAppendStatus_RejectsUnknownStatus(t *testing.T) {
	s := testutils.NewStorage(t)
	g := create(t, s, "SMPK123450001", "owner-1")

	err := s.AppendStatus(context.Background(), &models.StatusEntry{GrievanceID: g.ID, Status: "CLOSED"})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestListGrievancesByOwner_LatestOnly(t *testing.T) {
	s := testutils.NewStorage(t)
	ctx := context.Background()

	first := create(t, s, "SMPK111110001", "owner-1")
	second := create(t, s, "SMPK222220002", "owner-1")
	create(t, s, "SMPK333330003", "owner-2")
	require.NoError(t, s.AppendStatus(ctx, &models.StatusEntry{GrievanceID: first.ID, Status: models.StatusInProgress}))

	list, err := s.ListGrievancesByOwner(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, second.ID, list[0].ID, "newest grievance first")
	assert.Equal(t, first.ID, list[1].ID)
	for _, g := range list {
		assert.Len(t, g.Statuses, 1, "only the latest status is attached")
	}
	assert.Equal(t, models.StatusInProgress, list[1].CurrentStatus)
	assert.Equal(t, models.StatusSubmitted, list[0].CurrentStatus)
}

func TestTouchGrievance(t *testing.T) {
	s := testutils.NewStorage(t)
	ctx := context.Background()
	g := create(t, s, "SMPK123450001", "owner-1")

	require.NoError(t, s.TouchGrievance(ctx, g.ID))

	got, err := s.FindGrievanceByID(ctx, g.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
	assert.Equal(t, g.Title, got.Title)

	assert.ErrorIs(t, s.TouchGrievance(ctx, "missing"), storage.ErrNotFound)
}

func TestDeleteGrievance_CascadesHistory(t *testing.T) {
	s := testutils.NewStorage(t)
	ctx := context.Background()
	g := create(t, s, "SMPK123450001", "owner-1")
	require.NoError(t, s.AppendStatus(ctx, &models.StatusEntry{GrievanceID: g.ID, Status: models.StatusRejected}))

	require.NoError(t, s.DeleteGrievance(ctx, g.ID))

	_, err := s.FindGrievanceByID(ctx, g.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	history, err := s.StatusHistory(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	assert.ErrorIs(t, s.DeleteGrievance(ctx, g.ID), storage.ErrNotFound)
}

func TestListGrievances_Filters(t *testing.T) {
	s := testutils.NewStorage(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		g := newGrievance(fmt.Sprintf("SMPK1000%d0000", i), "owner-1")
		if i%2 == 0 {
			g.Category = "water"
			g.Priority = "high"
		}
		if i == 3 {
			g.Title = "Streetlight broken near Gandhi Park"
		}
		require.NoError(t, s.CreateGrievance(ctx, g, seedEntry("owner-1")))
		if i == 1 {
			require.NoError(t, s.AppendStatus(ctx, &models.StatusEntry{GrievanceID: g.ID, Status: models.StatusResolved}))
		}
	}

	all, total, err := s.ListGrievances(ctx, storage.GrievanceFilter{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Len(t, all, 2)

	water, total, err := s.ListGrievances(ctx, storage.GrievanceFilter{Category: models.CategoryWater})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	for _, g := range water {
		assert.Equal(t, models.CategoryWater, g.Category)
		assert.Equal(t, models.PriorityHigh, g.Priority)
	}

	resolved, total, err := s.ListGrievances(ctx, storage.GrievanceFilter{Status: models.StatusResolved})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, resolved, 1)
	assert.Equal(t, models.StatusResolved, resolved[0].CurrentStatus)
	assert.Len(t, resolved[0].Statuses, 2, "admin listing carries the full history")

	search, total, err := s.ListGrievances(ctx, storage.GrievanceFilter{Search: "gandhi"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, search, 1)
	assert.Contains(t, search[0].Title, "Gandhi")

	byCode, total, err := s.ListGrievances(ctx, storage.GrievanceFilter{Search: "smpk10002", Category: models.CategoryWater})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, byCode, 1)
	assert.Equal(t, "SMPK100020000", byCode[0].TrackingID)
}

func TestListGrievances_SortAndPage(t *testing.T) {
	s := testutils.NewStorage(t)
	ctx := context.Background()
	a := create(t, s, "SMPK111110001", "owner-1")
	b := create(t, s, "SMPK222220002", "owner-1")

	asc, _, err := s.ListGrievances(ctx, storage.GrievanceFilter{SortBy: "createdAt", SortOrder: "asc"})
	require.NoError(t, err)
	require.Len(t, asc, 2)
	assert.Equal(t, a.ID, asc[0].ID)

	desc, _, err := s.ListGrievances(ctx, storage.GrievanceFilter{SortBy: "dropTable", SortOrder: "sideways"})
	require.NoError(t, err)
	require.Len(t, desc, 2)
	assert.Equal(t, b.ID, desc[0].ID, "unknown sort falls back to newest first")

	page2, total, err := s.ListGrievances(ctx, storage.GrievanceFilter{Page: 2, Limit: 1, SortBy: "createdAt", SortOrder: "asc"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, page2, 1)
	assert.Equal(t, b.ID, page2[0].ID)
}

func TestListGrievances_SortByPriorityRank(t *testing.T) {
	s := testutils.NewStorage(t)
	ctx := context.Background()
	for i, p := range []models.Priority{models.PriorityLow, models.PriorityHigh, models.PriorityMedium} {
		g := newGrievance(fmt.Sprintf("SMPK3333%d0000", i), "owner-1")
		g.Priority = p
		require.NoError(t, s.CreateGrievance(ctx, g, seedEntry("owner-1")))
	}

	priorities := func(list []models.Grievance) []models.Priority {
		out := make([]models.Priority, 0, len(list))
		for _, g := range list {
			out = append(out, g.Priority)
		}
		return out
	}

	desc, _, err := s.ListGrievances(ctx, storage.GrievanceFilter{SortBy: "priority", SortOrder: "desc"})
	require.NoError(t, err)
	assert.Equal(t, []models.Priority{models.PriorityHigh, models.PriorityMedium, models.PriorityLow}, priorities(desc))

	asc, _, err := s.ListGrievances(ctx, storage.GrievanceFilter{SortBy: "priority", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, []models.Priority{models.PriorityLow, models.PriorityMedium, models.PriorityHigh}, priorities(asc))
}

func TestNewPagination(t *testing.T) {
	p := storage.NewPagination(2, 10, 25)
	assert.Equal(t, storage.Pagination{CurrentPage: 2, TotalPages: 3, TotalCount: 25, HasMore: true}, p)

	p = storage.NewPagination(0, 0, 0)
	assert.Equal(t, 1, p.CurrentPage)
	assert.Equal(t, 0, p.TotalPages)
	assert.False(t, p.HasMore)

	p = storage.NewPagination(1, 1000, 150)
	assert.Equal(t, 2, p.TotalPages, "limit is capped")
}
