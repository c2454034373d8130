package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopfloor/internal/license"
	"shopfloor/internal/services"
	"shopfloor/internal/workorder"
)

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	manager := workorder.NewManager(workorder.NewStore(), workorder.NewAccessIssuer())
	workOrderService := services.NewWorkOrderService(manager, logger, nil)
	licenseService := services.NewLicenseService(license.NewManager(license.NewRegistry()), logger, nil)

	r := chi.NewRouter()
	r.Mount("/api/work-orders", NewWorkOrderHandler(workOrderService, logger).Routes())
	r.Mount("/api/licenses", NewLicenseHandler(licenseService, logger).Routes())
	return r
}

func doJSON(t *testing.T, router chi.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func createRequestBody() map[string]interface{} {
	return map[string]interface{}{
		"code":            "WO-240501-001",
		"title":           "外壳组装批次",
		"owner_id":        "u-100",
		"owner_name":      "王强",
		"priority":        "HIGH",
		"start_at":        "2024-05-01T08:00:00Z",
		"end_at":          "2024-05-20T18:00:00Z",
		"target_quantity": 100,
		"procurement":     map[string]interface{}{"auto_notify": true},
		"steps": []map[string]interface{}{
			{
				"step_code":         "step-1",
				"step_name":         "焊接",
				"assignee_id":       "u-201",
				"assignee_name":     "李明",
				"expected_quantity": 100,
			},
		},
		"watchers": []string{"李明"},
	}
}

func createWorkOrder(t *testing.T, router chi.Router) workorder.Detail {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/work-orders", createRequestBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var detail workorder.Detail
	decodeBody(t, rec, &detail)
	return detail
}

func TestWorkOrderHandler_CreateAndList(t *testing.T) {
	router := newTestRouter(t)

	detail := createWorkOrder(t, router)
	assert.Equal(t, "WO-240501-001", detail.Code)
	assert.Equal(t, workorder.StatusPlanned, detail.Status)
	assert.Equal(t, []string{"王强", "李明"}, detail.Watchers)

	rec := doJSON(t, router, http.MethodGet, "/api/work-orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summaries []workorder.Summary
	decodeBody(t, rec, &summaries)
	require.Len(t, summaries, 1)
	assert.Equal(t, detail.ID, summaries[0].ID)
}

func TestWorkOrderHandler_Create_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(body map[string]interface{})
	}{
		{"missing code", func(b map[string]interface{}) { b["code"] = "" }},
		{"missing title", func(b map[string]interface{}) { b["title"] = "  " }},
		{"bad priority", func(b map[string]interface{}) { b["priority"] = "URGENT" }},
		{"zero target quantity", func(b map[string]interface{}) { b["target_quantity"] = 0 }},
		{"step without code", func(b map[string]interface{}) {
			b["steps"] = []map[string]interface{}{{"step_code": "", "expected_quantity": 10}}
		}},
		{"step zero expected", func(b map[string]interface{}) {
			b["steps"] = []map[string]interface{}{{"step_code": "step-1", "expected_quantity": 0}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t)
			body := createRequestBody()
			tt.mutate(body)

			rec := doJSON(t, router, http.MethodPost, "/api/work-orders", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var problem map[string]interface{}
			decodeBody(t, rec, &problem)
			assert.Equal(t, float64(http.StatusBadRequest), problem["status"])
			assert.NotEmpty(t, problem["detail"])
		})
	}
}

func TestWorkOrderHandler_Get_NotFound(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/work-orders/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var problem map[string]interface{}
	decodeBody(t, rec, &problem)
	assert.Equal(t, float64(http.StatusNotFound), problem["status"])
	assert.NotEmpty(t, problem["title"])
}

func TestWorkOrderHandler_Update(t *testing.T) {
	router := newTestRouter(t)
	detail := createWorkOrder(t, router)

	rec := doJSON(t, router, http.MethodPatch, "/api/work-orders/"+detail.ID, map[string]interface{}{
		"title": "外壳组装批次（加急）",
		"steps": []map[string]interface{}{
			{"step_code": "step-2", "step_name": "品质检验", "expected_quantity": 100},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated workorder.Detail
	decodeBody(t, rec, &updated)
	assert.Equal(t, "外壳组装批次（加急）", updated.Title)
	assert.Len(t, updated.Steps, 2)
	assert.Equal(t, "WO-240501-001", updated.Code, "absent fields untouched")
}

func TestWorkOrderHandler_UpdateStatus(t *testing.T) {
	router := newTestRouter(t)
	detail := createWorkOrder(t, router)

	rec := doJSON(t, router, http.MethodPatch, "/api/work-orders/"+detail.ID+"/status",
		map[string]interface{}{"status": "CANCELLED"})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated workorder.Detail
	decodeBody(t, rec, &updated)
	assert.Equal(t, workorder.StatusCancelled, updated.Status)

	rec = doJSON(t, router, http.MethodPatch, "/api/work-orders/"+detail.ID+"/status",
		map[string]interface{}{"status": "ARCHIVED"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWorkOrderHandler_RecordProgress(t *testing.T) {
	router := newTestRouter(t)
	detail := createWorkOrder(t, router)

	path := fmt.Sprintf("/api/work-orders/%s/steps/step-1/progress", detail.ID)
	rec := doJSON(t, router, http.MethodPatch, path, map[string]interface{}{
		"completed_quantity": 150,
		"defective_quantity": 3,
		"confirmation": map[string]interface{}{
			"method":         "fingerprint",
			"fingerprint_id": "fp-009",
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated workorder.Detail
	decodeBody(t, rec, &updated)
	assert.Equal(t, 100, updated.Steps[0].CompletedQuantity, "clamped at expected")
	assert.Equal(t, 3, updated.Steps[0].DefectiveQuantity)
	assert.Equal(t, workorder.StatusCompleted, updated.Status)
}

func TestWorkOrderHandler_RecordProgress_ConfirmationRules(t *testing.T) {
	tests := []struct {
		name         string
		confirmation map[string]interface{}
		wantStatus   int
	}{
		{
			name:         "missing confirmation",
			confirmation: nil,
			wantStatus:   http.StatusBadRequest,
		},
		{
			name:         "fingerprint without id",
			confirmation: map[string]interface{}{"method": "fingerprint"},
			wantStatus:   http.StatusBadRequest,
		},
		{
			name: "double confirm with one confirmer",
			confirmation: map[string]interface{}{
				"method":     "double_confirm",
				"confirmers": []string{"王强"},
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "double confirm with duplicate confirmers",
			confirmation: map[string]interface{}{
				"method":     "double_confirm",
				"confirmers": []string{"王强", "王强"},
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "double confirm valid",
			confirmation: map[string]interface{}{
				"method":     "double_confirm",
				"confirmers": []string{"王强", "李明"},
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "unknown method",
			confirmation: map[string]interface{}{
				"method": "pinky_swear",
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t)
			detail := createWorkOrder(t, router)

			body := map[string]interface{}{"completed_quantity": 10}
			if tt.confirmation != nil {
				body["confirmation"] = tt.confirmation
			}
			path := fmt.Sprintf("/api/work-orders/%s/steps/step-1/progress", detail.ID)
			rec := doJSON(t, router, http.MethodPatch, path, body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestWorkOrderHandler_RecordProgress_UnknownStep(t *testing.T) {
	router := newTestRouter(t)
	detail := createWorkOrder(t, router)

	path := fmt.Sprintf("/api/work-orders/%s/steps/step-99/progress", detail.ID)
	rec := doJSON(t, router, http.MethodPatch, path, map[string]interface{}{
		"completed_quantity": 10,
		"confirmation":       map[string]interface{}{"method": "fingerprint", "fingerprint_id": "fp-1"},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWorkOrderHandler_CustomerAccessFlow(t *testing.T) {
	router := newTestRouter(t)
	detail := createWorkOrder(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/work-orders/"+detail.ID+"/customer-access",
		map[string]interface{}{"customer_name": "华强客户", "company": "华强电子"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var withAccess workorder.Detail
	decodeBody(t, rec, &withAccess)
	access := withAccess.CustomerAccess
	require.NotNil(t, access)
	assert.Equal(t, workorder.AccessActive, access.Status)

	confirmPath := fmt.Sprintf("/api/work-orders/%s/customer-access/%s/confirm", detail.ID, access.ID)
	rec = doJSON(t, router, http.MethodPatch, confirmPath, map[string]interface{}{"confirmed_by": "王强"})
	require.Equal(t, http.StatusOK, rec.Code)

	var confirmed workorder.Detail
	decodeBody(t, rec, &confirmed)
	assert.Equal(t, workorder.AccessConfirmed, confirmed.CustomerAccess.Status)

	// idempotent second confirm
	rec = doJSON(t, router, http.MethodPatch, confirmPath, map[string]interface{}{"confirmed_by": "李明"})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &confirmed)
	assert.Equal(t, "王强", *confirmed.CustomerAccess.ConfirmedBy)
}

func TestWorkOrderHandler_CustomerAccess_EmptyName(t *testing.T) {
	router := newTestRouter(t)
	detail := createWorkOrder(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/work-orders/"+detail.ID+"/customer-access",
		map[string]interface{}{"customer_name": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWorkOrderHandler_Remove(t *testing.T) {
	router := newTestRouter(t)
	detail := createWorkOrder(t, router)

	rec := doJSON(t, router, http.MethodDelete, "/api/work-orders/"+detail.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/api/work-orders/"+detail.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
