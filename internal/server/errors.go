package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/tally/internal/audit/domain"
	authdomain "github.com/smallbiznis/tally/internal/auth/domain"
	dashboarddomain "github.com/smallbiznis/tally/internal/dashboard/domain"
	expensedomain "github.com/smallbiznis/tally/internal/expense/domain"
	onboardingdomain "github.com/smallbiznis/tally/internal/onboarding/domain"
	orderdomain "github.com/smallbiznis/tally/internal/order/domain"
	orgdomain "github.com/smallbiznis/tally/internal/organization/domain"
	"github.com/smallbiznis/tally/internal/permission"
	settingsdomain "github.com/smallbiznis/tally/internal/settings/domain"
	"github.com/smallbiznis/tally/internal/tenant"
	"github.com/smallbiznis/tally/pkg/db"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

// domainError is a sentinel with a fixed status and user-facing message.
type domainError struct {
	err     error
	status  int
	kind    string
	message string
}

var domainErrors = []domainError{
	{tenant.ErrNotResolved, http.StatusNotFound, "not_found", "Tenant not found"},
	{orgdomain.ErrOrganizationNotFound, http.StatusNotFound, "not_found", "Organization not found"},
	{orgdomain.ErrMemberNotFound, http.StatusNotFound, "not_found", "Member not found"},
	{orgdomain.ErrJoinRequestNotFound, http.StatusNotFound, "not_found", "Request not found"},
	{orderdomain.ErrNotFound, http.StatusNotFound, "not_found", "Order not found"},
	{expensedomain.ErrNotFound, http.StatusNotFound, "not_found", "Expense not found"},
	{authdomain.ErrUserNotFound, http.StatusNotFound, "not_found", "User not found"},

	{orgdomain.ErrInvalidOrganization, http.StatusBadRequest, "invalid_request", "Organization ID not found"},
	{auditdomain.ErrInvalidOrganization, http.StatusBadRequest, "invalid_request", "Organization ID not found"},

	{orgdomain.ErrAlreadyMember, http.StatusConflict, "conflict", "User already in organization"},
	{orgdomain.ErrAlreadyApproved, http.StatusConflict, "conflict", "User already in this organization"},
	{orgdomain.ErrRequestPending, http.StatusConflict, "conflict", "Request already sent"},
	{orgdomain.ErrRequestDecided, http.StatusConflict, "conflict", "Request already decided"},
	{onboardingdomain.ErrAlreadyOnboarded, http.StatusConflict, "conflict", "Onboarding already completed"},
	{onboardingdomain.ErrJoinRequestPending, http.StatusConflict, "conflict", "A join request is still pending"},
	{orgdomain.ErrUserOnboarded, http.StatusConflict, "conflict", "User already onboarded"},
	{authdomain.ErrUserExists, http.StatusConflict, "conflict", "User already exists"},

	{orgdomain.ErrAdminPermissions, http.StatusForbidden, "forbidden", "Cannot modify admin permissions"},
	{orgdomain.ErrAdminRemoval, http.StatusForbidden, "forbidden", "Cannot remove an admin"},
	{orgdomain.ErrSelfRemoval, http.StatusForbidden, "forbidden", "Cannot remove yourself"},

	{orgdomain.ErrRateLimited, http.StatusTooManyRequests, "rate_limited", "Too many join requests, try again later"},
}

var validationErrors = []error{
	ErrInvalidRequest,
	authdomain.ErrInvalidEmail,
	authdomain.ErrInvalidPassword,
	authdomain.ErrInvalidName,
	orgdomain.ErrInvalidUser,
	orgdomain.ErrInvalidName,
	orgdomain.ErrInvalidCode,
	orgdomain.ErrInvalidMember,
	orgdomain.ErrInvalidRequest,
	orgdomain.ErrInvalidPermission,
	orgdomain.ErrInvalidDecision,
	onboardingdomain.ErrInvalidUser,
	onboardingdomain.ErrInvalidAccountType,
	onboardingdomain.ErrInvalidEmail,
	orderdomain.ErrInvalidID,
	orderdomain.ErrInvalidCustomerName,
	orderdomain.ErrInvalidItem,
	orderdomain.ErrInvalidFee,
	orderdomain.ErrInvalidAmount,
	orderdomain.ErrInvalidAction,
	expensedomain.ErrInvalidID,
	expensedomain.ErrInvalidDescription,
	expensedomain.ErrInvalidAmount,
	expensedomain.ErrInvalidCategory,
	expensedomain.ErrInvalidItem,
	settingsdomain.ErrInvalidCurrency,
	settingsdomain.ErrInvalidEmail,
	settingsdomain.ErrInvalidFunding,
	dashboarddomain.ErrInvalidRange,
	auditdomain.ErrInvalidPageToken,
	auditdomain.ErrInvalidTimeRange,
	auditdomain.ErrInvalidAction,
}

var tenantErrors = []error{
	orderdomain.ErrInvalidTenant,
	expensedomain.ErrInvalidTenant,
	settingsdomain.ErrInvalidTenant,
	dashboarddomain.ErrInvalidTenant,
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		if status == http.StatusInternalServerError {
			payload.Message = failureMessage(c.Request.Method, c.FullPath())
		}
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

// failureMessages names the operation that failed, keyed by method and route.
var failureMessages = map[string]string{
	"POST /auth/register":              "Failed to create user",
	"POST /auth/login":                 "Failed to sign in",
	"GET /api/onboarding":              "Failed to fetch onboarding status",
	"POST /api/onboarding":             "Failed to complete onboarding",
	"GET /api/dashboard":               "Failed to fetch dashboard data",
	"GET /api/dashboard/trends":        "Failed to fetch trends",
	"GET /api/analytics":               "Failed to fetch analytics",
	"GET /api/metrics":                 "Failed to fetch metrics",
	"GET /api/orders":                  "Failed to fetch orders",
	"POST /api/orders":                 "Failed to create order",
	"GET /api/orders/:id":              "Failed to fetch order",
	"POST /api/orders/action":          "Failed to perform order action",
	"GET /api/expenses":                "Failed to fetch expenses",
	"POST /api/expenses":               "Failed to create expense",
	"POST /api/expenses/delete":        "Failed to delete expense",
	"GET /api/settings":                "Failed to fetch settings",
	"POST /api/settings":               "Failed to save settings",
	"GET /api/organization":            "Failed to fetch organization data",
	"POST /api/organization":           "Failed to update organization",
	"GET /api/organization/audit-logs": "Failed to fetch audit logs",
}

func failureMessage(method, route string) string {
	if msg, ok := failureMessages[method+" "+route]; ok {
		return msg
	}
	return "internal server error"
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var denied *permission.DeniedError
	if errors.As(err, &denied) {
		return denied.Status, errorPayload{
			Type:    deniedType(denied.Status),
			Message: denied.Reason,
		}
	}

	for _, d := range domainErrors {
		if errors.Is(err, d.err) {
			return d.status, errorPayload{Type: d.kind, Message: d.message}
		}
	}

	if target := matchValidationError(err); target != nil {
		code := target.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrUnauthenticated):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "Unauthorized",
		}
	case errors.Is(err, authdomain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "Invalid email or password",
		}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: permission.ReasonDenied,
		}
	case isTenantError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "Tenant not found",
		}
	case db.IsDuplicateKeyErr(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "duplicate",
			Message: "A record with this value already exists",
		}
	case errors.Is(err, ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger a (type, code) pair.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	code := ""
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	} else if status < http.StatusInternalServerError {
		code = err.Error()
	}
	return payload.Type, code
}

func deniedType(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	default:
		return "forbidden"
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

// matchValidationError returns the sentinel err wraps, if any.
func matchValidationError(err error) error {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return target
		}
	}
	return nil
}

func isTenantError(err error) bool {
	for _, target := range tenantErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}
