package models_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/task-registry/internal/models"
)

func TestCreateTaskRequest_ToTask_AppliesDefaults(t *testing.T) {
	t.Parallel()

	task, err := models.CreateTaskRequest{Name: "shop-scan", URL: "https://example.com"}.ToTask()
	require.NoError(t, err)

	assert.Equal(t, models.SiteTypeOther, task.SiteType)
	assert.Equal(t, models.StatusCreated, task.Status)
	assert.NotNil(t, task.Criteria)
	assert.Empty(t, task.Criteria)
}

func TestCreateTaskRequest_ToTask_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		req       models.CreateTaskRequest
		wantField string
	}{
		{name: "empty name", req: models.CreateTaskRequest{URL: "https://example.com"}, wantField: "name"},
		{name: "blank name", req: models.CreateTaskRequest{Name: "   ", URL: "https://example.com"}, wantField: "name"},
		{name: "long name", req: models.CreateTaskRequest{Name: strings.Repeat("я", 201), URL: "https://example.com"}, wantField: "name"},
		{name: "relative url", req: models.CreateTaskRequest{Name: "a", URL: "/catalog"}, wantField: "url"},
		{name: "missing url", req: models.CreateTaskRequest{Name: "a"}, wantField: "url"},
		{name: "long url", req: models.CreateTaskRequest{Name: "a", URL: "https://example.com/" + strings.Repeat("a", 2048)}, wantField: "url"},
		{name: "bad site type", req: models.CreateTaskRequest{Name: "a", URL: "https://example.com", SiteType: "forum"}, wantField: "site_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := tt.req.ToTask()
			require.ErrorIs(t, err, models.ErrValidation)

			var verr *models.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestCreateTaskRequest_NameLimitCountsCharacters(t *testing.T) {
	t.Parallel()

	_, err := models.CreateTaskRequest{Name: strings.Repeat("я", 200), URL: "https://example.com"}.ToTask()
	assert.NoError(t, err)
}

func TestTaskPatch(t *testing.T) {
	t.Parallel()

	var empty models.TaskPatch
	assert.True(t, empty.IsEmpty())
	require.NoError(t, empty.Validate())

	var patch models.TaskPatch
	require.NoError(t, json.Unmarshal([]byte(`{"status":"running","criteria":{"depth":2},"name":null}`), &patch))

	assert.Equal(t, []string{"status", "criteria"}, patch.Fields())
	require.NoError(t, patch.Validate())

	bad := models.Status("archived")
	assert.ErrorIs(t, models.TaskPatch{Status: &bad}.Validate(), models.ErrValidation)

	blank := ""
	assert.ErrorIs(t, models.TaskPatch{Name: &blank}.Validate(), models.ErrValidation)
}

func TestListFilter_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, models.ListFilter{Limit: 20}.Validate())
	assert.NoError(t, models.ListFilter{Limit: 200, Status: models.StatusCompleted, SiteType: models.SiteTypeNews}.Validate())
	assert.ErrorIs(t, models.ListFilter{Limit: 0}.Validate(), models.ErrValidation)
	assert.ErrorIs(t, models.ListFilter{Limit: 201}.Validate(), models.ErrValidation)
	assert.ErrorIs(t, models.ListFilter{Limit: 10, Offset: -1}.Validate(), models.ErrValidation)
	assert.ErrorIs(t, models.ListFilter{Limit: 10, Status: "unknown"}.Validate(), models.ErrValidation)
	assert.ErrorIs(t, models.ListFilter{Limit: 10, SiteType: "unknown"}.Validate(), models.ErrValidation)
}

func TestCriteria_NeverNull(t *testing.T) {
	t.Parallel()

	var nilCriteria models.Criteria

	b, err := json.Marshal(models.Task{Criteria: nilCriteria})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"criteria":{}`)

	v, err := nilCriteria.Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", v)

	var scanned models.Criteria
	require.NoError(t, scanned.Scan(nil))
	assert.NotNil(t, scanned)

	require.NoError(t, scanned.Scan([]byte("null")))
	assert.NotNil(t, scanned)

	require.NoError(t, scanned.Scan([]byte(`{"category":"phones","pages":3}`)))
	assert.Equal(t, models.Criteria{"category": "phones", "pages": float64(3)}, scanned)

	assert.Error(t, scanned.Scan(42))
	assert.Error(t, scanned.Scan("[1,2]"))
}

func TestEnums(t *testing.T) {
	t.Parallel()

	for _, s := range models.Statuses {
		assert.True(t, s.Valid(), s)
	}
	for _, s := range models.SiteTypes {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, models.Status("").Valid())
	assert.False(t, models.SiteType("Other").Valid())
}

func TestWrapStoreError(t *testing.T) {
	t.Parallel()

	require.NoError(t, models.WrapStoreError("find", nil))
	assert.Same(t, models.ErrNotFound, models.WrapStoreError("find", models.ErrNotFound))

	verr := &models.ValidationError{Field: "id", Message: "task already exists"}
	assert.Equal(t, error(verr), models.WrapStoreError("insert", verr))

	cause := errors.New("connection refused")
	err := models.WrapStoreError("list", cause)
	require.ErrorIs(t, err, models.ErrStoreUnavailable)
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "list")
	assert.Equal(t, err, models.WrapStoreError("list", err))
}
