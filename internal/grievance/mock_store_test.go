package grievance_test

import (
	"context"
	"errors"
	"testing"

	"sampark/backend/internal/grievance"
	"sampark/backend/internal/models"
	"sampark/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStore mocks the calls made on the submit path. Anything else panics
// through the nil embedded Store.
type MockStore struct {
	mock.Mock
	grievance.Store
}

func (m *MockStore) TrackingIDExists(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) CreateGrievance(ctx context.Context, g *models.Grievance, seed *models.StatusEntry) error {
	args := m.Called(ctx, g, seed)
	return args.Error(0)
}

func (m *MockStore) FindGrievanceByID(ctx context.Context, id string) (*models.Grievance, error) {
	args := m.Called(ctx, id)
	if g, ok := args.Get(0).(*models.Grievance); ok {
		return g, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) LatestStatus(ctx context.Context, grievanceID string) (*models.StatusEntry, error) {
	args := m.Called(ctx, grievanceID)
	if e, ok := args.Get(0).(*models.StatusEntry); ok {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestSubmit_RetriesOnceOnDuplicateInsert(t *testing.T) {
	store := new(MockStore)
	svc := grievance.NewService(store, nil, nil)
	ctx := context.Background()

	codes := []string{"SMPK111110001", "SMPK222220002"}
	svc.Codes.Candidate = func() string {
		c := codes[0]
		codes = codes[1:]
		return c
	}

	store.On("TrackingIDExists", ctx, mock.Anything).Return(false, nil)
	store.On("CreateGrievance", ctx, mock.Anything, mock.Anything).Return(storage.ErrDuplicateTrackingID).Once()
	store.On("CreateGrievance", ctx, mock.Anything, mock.Anything).Return(nil).Once()

	g, err := svc.Submit(ctx, "owner-1", potholeInput())
	require.NoError(t, err)
	assert.Equal(t, "SMPK222220002", g.TrackingID)
	store.AssertNumberOfCalls(t, "CreateGrievance", 2)
}

func TestSubmit_GivesUpAfterSecondDuplicateInsert(t *testing.T) {
	store := new(MockStore)
	svc := grievance.NewService(store, nil, nil)
	ctx := context.Background()

	store.On("TrackingIDExists", ctx, mock.Anything).Return(false, nil)
	store.On("CreateGrievance", ctx, mock.Anything, mock.Anything).Return(storage.ErrDuplicateTrackingID)

	_, err := svc.Submit(ctx, "owner-1", potholeInput())
	assert.ErrorIs(t, err, storage.ErrDuplicateTrackingID)
	store.AssertNumberOfCalls(t, "CreateGrievance", 2)
}

func TestSubmit_StoreErrorSurfaces(t *testing.T) {
	store := new(MockStore)
	svc := grievance.NewService(store, nil, nil)
	ctx := context.Background()
	boom := errors.New("connection reset")

	store.On("TrackingIDExists", ctx, mock.Anything).Return(false, boom)

	_, err := svc.Submit(ctx, "owner-1", potholeInput())
	assert.ErrorIs(t, err, boom)
	store.AssertNotCalled(t, "CreateGrievance", mock.Anything, mock.Anything, mock.Anything)
}

func TestTransition_StoreErrorOnLatest(t *testing.T) {
	store := new(MockStore)
	svc := grievance.NewService(store, nil, nil)
	ctx := context.Background()
	boom := errors.New("connection reset")

	store.On("FindGrievanceByID", ctx, "g1").Return(&models.Grievance{ID: "g1", UserID: "owner-1"}, nil)
	store.On("LatestStatus", ctx, "g1").Return(nil, boom)

	_, _, err := svc.Transition(ctx, "g1", "RESOLVED", "", "admin-1")
	assert.ErrorIs(t, err, boom)
}

func TestTransition_MissingHistoryDefaultsToSubmitted(t *testing.T) {
	store := new(MockStore)
	svc := grievance.NewService(store, nil, nil)
	ctx := context.Background()

	store.On("FindGrievanceByID", ctx, "g1").Return(&models.Grievance{ID: "g1", UserID: "owner-1"}, nil)
	store.On("LatestStatus", ctx, "g1").Return(nil, nil)

	_, _, err := svc.Transition(ctx, "g1", "SUBMITTED", "", "admin-1")
	assert.ErrorIs(t, err, grievance.ErrDuplicateStatus)
}
