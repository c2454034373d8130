package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopfloor/internal/license"
)

func TestLicenseHandler_GetPlans(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/licenses/plans", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var plans []license.Plan
	decodeBody(t, rec, &plans)
	require.Len(t, plans, 3)
	assert.Equal(t, license.TierStarter, plans[0].Tier)
	assert.Equal(t, license.TierEnterprise, plans[2].Tier)
}

func TestLicenseHandler_InitialStatus(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/licenses/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view license.StatusView
	decodeBody(t, rec, &view)
	assert.Equal(t, license.StatusInactive, view.Status)
	assert.Nil(t, view.Tier)
}

func TestLicenseHandler_ActivationFlow(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/licenses/activate",
		map[string]interface{}{"code": "gxl-starter-90d", "operator": "张敏"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var view license.StatusView
	decodeBody(t, rec, &view)
	assert.Equal(t, license.StatusActive, view.Status)
	require.NotNil(t, view.Tier)
	assert.Equal(t, license.TierStarter, *view.Tier)
	require.NotNil(t, view.RemainingDays)
	assert.Equal(t, 90, *view.RemainingDays)

	// second use of the same code is rejected
	rec = doJSON(t, router, http.MethodPost, "/api/licenses/activate",
		map[string]interface{}{"code": "GXL-STARTER-90D", "operator": "李雷"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLicenseHandler_Activate_Validation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing code", map[string]interface{}{"operator": "张敏"}},
		{"short code", map[string]interface{}{"code": "GXL", "operator": "张敏"}},
		{"missing operator", map[string]interface{}{"code": "GXL-STARTER-90D"}},
		{"blank operator", map[string]interface{}{"code": "GXL-STARTER-90D", "operator": "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t)
			rec := doJSON(t, router, http.MethodPost, "/api/licenses/activate", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestLicenseHandler_Renew(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/licenses/activate",
		map[string]interface{}{"code": "GXL-STARTER-90D", "operator": "张敏"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/licenses/renew",
		map[string]interface{}{"code": "GXL-PRO-365D", "operator": "张敏"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var view license.StatusView
	decodeBody(t, rec, &view)
	assert.Equal(t, license.StatusActive, view.Status)
	assert.Equal(t, license.TierProfessional, *view.Tier)
	// 90 days remaining plus 365 renewed
	assert.Equal(t, 455, *view.RemainingDays)
}

func TestLicenseHandler_SuspendResume(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/licenses/activate",
		map[string]interface{}{"code": "GXL-ENT-180D", "operator": "张敏"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/licenses/suspend",
		map[string]interface{}{"operator": "张敏", "reason": "项目暂停"})
	require.Equal(t, http.StatusOK, rec.Code)

	var view license.StatusView
	decodeBody(t, rec, &view)
	assert.Equal(t, license.StatusSuspended, view.Status)
	require.NotNil(t, view.SuspensionReason)
	assert.Equal(t, "项目暂停", *view.SuspensionReason)

	rec = doJSON(t, router, http.MethodPost, "/api/licenses/resume",
		map[string]interface{}{"operator": "李雷"})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &view)
	assert.Equal(t, license.StatusActive, view.Status)
	assert.Nil(t, view.SuspensionReason)
}

func TestLicenseHandler_Suspend_Inactive(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/licenses/suspend",
		map[string]interface{}{"operator": "张敏"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLicenseHandler_Resume_NotSuspended(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/licenses/resume",
		map[string]interface{}{"operator": "张敏"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
