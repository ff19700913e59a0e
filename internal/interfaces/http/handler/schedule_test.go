package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	subapp "github.com/commercekit/subscriptions/internal/application/subscription"
	"github.com/commercekit/subscriptions/internal/domain/shared"
	"github.com/commercekit/subscriptions/internal/domain/subscription"
	"github.com/commercekit/subscriptions/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memScheduleRepo is an in-memory subscription.Repository for handler tests
type memScheduleRepo struct {
	byID      map[uuid.UUID]*subscription.Schedule
	byVariant map[uuid.UUID]*subscription.Schedule
}

func newMemScheduleRepo() *memScheduleRepo {
	return &memScheduleRepo{
		byID:      make(map[uuid.UUID]*subscription.Schedule),
		byVariant: make(map[uuid.UUID]*subscription.Schedule),
	}
}

func (r *memScheduleRepo) FindByID(ctx context.Context, id uuid.UUID) (*subscription.Schedule, error) {
	s, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return s, nil
}

func (r *memScheduleRepo) FindByVariant(ctx context.Context, productVariantID uuid.UUID) (*subscription.Schedule, error) {
	s, ok := r.byVariant[productVariantID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return s, nil
}

func (r *memScheduleRepo) List(ctx context.Context) ([]subscription.Schedule, error) {
	var out []subscription.Schedule
	for _, s := range r.byID {
		out = append(out, *s)
	}
	return out, nil
}

func (r *memScheduleRepo) Save(ctx context.Context, s *subscription.Schedule) error {
	r.byID[s.ID] = s
	return nil
}

func (r *memScheduleRepo) AttachVariant(ctx context.Context, scheduleID, productVariantID uuid.UUID) error {
	s, ok := r.byID[scheduleID]
	if !ok {
		return shared.ErrNotFound
	}
	r.byVariant[productVariantID] = s
	return nil
}

func (r *memScheduleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.byID, id)
	return nil
}

func setupScheduleRouter(repo *memScheduleRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	service := subapp.NewScheduleService(repo, zap.NewNop())
	NewScheduleHandler(service, zap.NewNop()).RegisterRoutes(engine.Group(""))
	return engine
}

func TestScheduleHandler_Create(t *testing.T) {
	t.Run("creates a schedule", func(t *testing.T) {
		repo := newMemScheduleRepo()
		engine := setupScheduleRouter(repo)

		body, _ := json.Marshal(ScheduleRequest{
			Name:             "Monthly",
			DurationInterval: "month",
			DurationCount:    12,
			BillingInterval:  "month",
			BillingCount:     1,
			AutoRenew:        true,
		})
		req := httptest.NewRequest(http.MethodPost, "/admin/schedules", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Len(t, repo.byID, 1)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
	})

	t.Run("rejects an unknown interval", func(t *testing.T) {
		engine := setupScheduleRouter(newMemScheduleRepo())

		body, _ := json.Marshal(map[string]interface{}{
			"name":              "Fortnightly",
			"duration_interval": "fortnight",
			"duration_count":    1,
			"billing_interval":  "week",
			"billing_count":     2,
		})
		req := httptest.NewRequest(http.MethodPost, "/admin/schedules", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects a missing name", func(t *testing.T) {
		engine := setupScheduleRouter(newMemScheduleRepo())

		body, _ := json.Marshal(map[string]interface{}{
			"duration_interval": "month",
			"duration_count":    12,
			"billing_interval":  "month",
			"billing_count":     1,
		})
		req := httptest.NewRequest(http.MethodPost, "/admin/schedules", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestScheduleHandler_GetAndDelete(t *testing.T) {
	repo := newMemScheduleRepo()
	engine := setupScheduleRouter(repo)

	sched, err := subscription.NewSchedule("Monthly", subscription.IntervalMonth, 12, subscription.IntervalMonth, 1)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), sched))

	t.Run("get returns the schedule", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/schedules/"+sched.ID.String(), nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown id is a 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/schedules/"+uuid.NewString(), nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id is a 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/schedules/not-a-uuid", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("delete removes the schedule", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/admin/schedules/"+sched.ID.String(), nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, repo.byID)
	})
}

func TestScheduleHandler_AttachVariant(t *testing.T) {
	repo := newMemScheduleRepo()
	engine := setupScheduleRouter(repo)

	sched, err := subscription.NewSchedule("Monthly", subscription.IntervalMonth, 12, subscription.IntervalMonth, 1)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), sched))

	variantID := uuid.New()
	body, _ := json.Marshal(AttachVariantRequest{ProductVariantID: variantID.String()})
	req := httptest.NewRequest(http.MethodPost, "/admin/schedules/"+sched.ID.String()+"/variants", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, repo.byVariant, variantID)
}
