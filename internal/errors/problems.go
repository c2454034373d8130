package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"shopfloor/internal/license"
	"shopfloor/internal/workorder"
)

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// Additional fields for extensibility
	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON custom marshaler to include extensions
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{})
	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status
	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}
	for k, v := range pd.Extensions {
		data[k] = v
	}
	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field to the problem details
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}

// MapWorkOrderError maps work order domain errors to HTTP problem details.
func MapWorkOrderError(err error, traceID string) render.Renderer {
	instance := fmt.Sprintf("/api/work-orders#trace-%s", traceID)

	switch {
	case errors.Is(err, workorder.ErrNotFound):
		return NewProblemDetails(
			http.StatusNotFound,
			"/errors/work-order-not-found",
			"Work Order Not Found",
			err.Error(),
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "WORK_ORDER_NOT_FOUND")

	case errors.Is(err, workorder.ErrStepNotFound):
		return NewProblemDetails(
			http.StatusNotFound,
			"/errors/step-not-found",
			"Step Not Found",
			err.Error(),
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "STEP_NOT_FOUND")

	case errors.Is(err, workorder.ErrAccessNotFound):
		return NewProblemDetails(
			http.StatusNotFound,
			"/errors/customer-access-not-found",
			"Customer Access Not Found",
			err.Error(),
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "CUSTOMER_ACCESS_NOT_FOUND")

	case errors.Is(err, workorder.ErrCustomerNameRequired):
		return NewProblemDetails(
			http.StatusBadRequest,
			"/errors/customer-name-required",
			"Customer Name Required",
			"The customer name must not be empty.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "CUSTOMER_NAME_REQUIRED")

	default:
		return internalProblem(traceID, instance)
	}
}

// MapLicenseError maps license domain errors to HTTP problem details.
func MapLicenseError(err error, traceID string) render.Renderer {
	instance := fmt.Sprintf("/api/licenses#trace-%s", traceID)

	switch {
	case errors.Is(err, license.ErrInvalidCode):
		return NewProblemDetails(
			http.StatusBadRequest,
			"/errors/invalid-activation-code",
			"Invalid Activation Code",
			"The activation code is not recognized. Please verify and retry.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "INVALID_ACTIVATION_CODE")

	case errors.Is(err, license.ErrCodeAlreadyUsed):
		return NewProblemDetails(
			http.StatusBadRequest,
			"/errors/activation-code-used",
			"Activation Code Already Used",
			"This activation code has already been consumed. Please obtain a new one.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "ACTIVATION_CODE_USED")

	case errors.Is(err, license.ErrNothingToSuspend):
		return NewProblemDetails(
			http.StatusBadRequest,
			"/errors/nothing-to-suspend",
			"No Subscription To Suspend",
			"There is no active subscription to suspend.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "NOTHING_TO_SUSPEND")

	case errors.Is(err, license.ErrNotSuspended):
		return NewProblemDetails(
			http.StatusBadRequest,
			"/errors/not-suspended",
			"License Not Suspended",
			"The license is not suspended, so it cannot be resumed.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "NOT_SUSPENDED")

	case errors.Is(err, license.ErrExpiredUseRenewal):
		return NewProblemDetails(
			http.StatusBadRequest,
			"/errors/license-expired",
			"License Expired",
			"The license has expired. Use a renewal code to reactivate it.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "LICENSE_EXPIRED")

	default:
		return internalProblem(traceID, instance)
	}
}

func internalProblem(traceID, instance string) *ProblemDetails {
	return NewProblemDetails(
		http.StatusInternalServerError,
		"/errors/internal-error",
		"Internal Server Error",
		"An unexpected error occurred while processing your request.",
		instance,
	).WithExtension("trace_id", traceID).
		WithExtension("error_code", "INTERNAL_ERROR")
}
