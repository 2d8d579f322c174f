package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	auditdomain "github.com/srithedesigner/credmatrix-backend/internal/audit/domain"
	authdomain "github.com/srithedesigner/credmatrix-backend/internal/auth/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/authorization"
	documentdomain "github.com/srithedesigner/credmatrix-backend/internal/document/domain"
	entitydomain "github.com/srithedesigner/credmatrix-backend/internal/entity/domain"
	ledgerdomain "github.com/srithedesigner/credmatrix-backend/internal/ledger/domain"
	otpdomain "github.com/srithedesigner/credmatrix-backend/internal/otp/domain"
	paymentdomain "github.com/srithedesigner/credmatrix-backend/internal/payment/domain"
	reportdomain "github.com/srithedesigner/credmatrix-backend/internal/report/domain"
	signupdomain "github.com/srithedesigner/credmatrix-backend/internal/signup/domain"
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
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
	ErrNoEntity           = errors.New("no_entity")
)

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
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
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

// bindError turns binding failures into field errors.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return invalidRequestError()
	}
	out := &ValidationErrors{Errors: make([]ValidationError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fe.Field(),
			Code:    "invalid_" + fe.Field(),
			Message: bindMessage(fe),
		})
	}
	return out
}

func bindMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be an email address"
	case "min", "gte":
		return fe.Field() + " must be at least " + fe.Param()
	case "max", "lte":
		return fe.Field() + " must be at most " + fe.Param()
	default:
		return "invalid value"
	}
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
			Type:    "invalid_request",
			Message: "invalid request",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ledgerdomain.ErrInsufficientCredits):
		return http.StatusPaymentRequired, errorPayload{
			Type:    "insufficient_credits",
			Message: "insufficient credits",
		}
	case isNoEntityError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "no_entity",
			Message: "user has no entity",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case errors.Is(err, otpdomain.ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case isValidationError(err):
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: "invalid request",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	case isUpstreamError(err):
		return http.StatusBadGateway, errorPayload{
			Type:    "upstream_failure",
			Message: "upstream service failed",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the error type and code the request logger
// records.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	} else if payload.Type != "internal_error" {
		code = err.Error()
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked),
		errors.Is(err, authdomain.ErrInvalidToken),
		errors.Is(err, authdomain.ErrTokenExpired),
		errors.Is(err, authorization.ErrInvalidActor):
		return true
	default:
		return false
	}
}

func isNoEntityError(err error) bool {
	switch {
	case errors.Is(err, ErrNoEntity),
		errors.Is(err, reportdomain.ErrNoEntity),
		errors.Is(err, paymentdomain.ErrNoEntity):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, reportdomain.ErrNotFound),
		errors.Is(err, documentdomain.ErrNotFound),
		errors.Is(err, entitydomain.ErrNotFound),
		errors.Is(err, ledgerdomain.ErrEntityNotFound),
		errors.Is(err, paymentdomain.ErrNotFound),
		errors.Is(err, authdomain.ErrUserNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, authdomain.ErrUserExists),
		errors.Is(err, reportdomain.ErrInvalidTransition),
		errors.Is(err, paymentdomain.ErrVerifyInProgress),
		errors.Is(err, paymentdomain.ErrNotCompleted),
		errors.Is(err, documentdomain.ErrNotUploaded):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, authdomain.ErrUserExists):
		return "user already exists"
	case errors.Is(err, reportdomain.ErrInvalidTransition):
		return "status transition not allowed"
	default:
		return "conflict"
	}
}

func isUpstreamError(err error) bool {
	switch {
	case errors.Is(err, documentdomain.ErrStorageUnavailable),
		errors.Is(err, otpdomain.ErrDeliveryFailed),
		errors.Is(err, paymentdomain.ErrGatewayUnavailable):
		return true
	default:
		return false
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, signupdomain.ErrInvalidRequest),
		errors.Is(err, paymentdomain.ErrInvalidRequest):
		return true
	case isAuthValidationError(err),
		isReportValidationError(err),
		isLedgerValidationError(err),
		isDocumentValidationError(err),
		isPaymentValidationError(err),
		isAuditValidationError(err):
		return true
	default:
		return false
	}
}

func isAuthValidationError(err error) bool {
	switch {
	case errors.Is(err, authdomain.ErrInvalidEmail),
		errors.Is(err, authdomain.ErrInvalidName),
		errors.Is(err, authdomain.ErrWeakPassword),
		errors.Is(err, otpdomain.ErrInvalidEmail),
		errors.Is(err, otpdomain.ErrInvalidOTP),
		errors.Is(err, otpdomain.ErrOTPExpired),
		errors.Is(err, entitydomain.ErrInvalidName),
		errors.Is(err, entitydomain.ErrInvalidEntityType):
		return true
	default:
		return false
	}
}

func isReportValidationError(err error) bool {
	switch {
	case errors.Is(err, reportdomain.ErrInvalidStatus),
		errors.Is(err, reportdomain.ErrNoChanges),
		errors.Is(err, reportdomain.ErrFieldNotMutable),
		errors.Is(err, reportdomain.ErrInvalidFieldValue),
		errors.Is(err, reportdomain.ErrCancellationReasonRequired),
		errors.Is(err, reportdomain.ErrInvalidCancellationReason),
		errors.Is(err, reportdomain.ErrCancellationReasonMismatch),
		errors.Is(err, reportdomain.ErrInvalidTargetName),
		errors.Is(err, reportdomain.ErrInvalidPAN),
		errors.Is(err, reportdomain.ErrInvalidPageToken):
		return true
	default:
		return false
	}
}

func isLedgerValidationError(err error) bool {
	switch {
	case errors.Is(err, ledgerdomain.ErrInvalidAmount),
		errors.Is(err, ledgerdomain.ErrEmptyServices),
		errors.Is(err, ledgerdomain.ErrInvalidServiceCode),
		errors.Is(err, ledgerdomain.ErrInvalidPageToken):
		return true
	default:
		return false
	}
}

func isDocumentValidationError(err error) bool {
	return errors.Is(err, documentdomain.ErrInvalidName)
}

func isPaymentValidationError(err error) bool {
	switch {
	case errors.Is(err, paymentdomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrInvalidSignature):
		return true
	default:
		return false
	}
}

func isAuditValidationError(err error) bool {
	switch {
	case errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidTimeRange):
		return true
	default:
		return false
	}
}

// validationErrorCode picks the sentinel's text out of a possibly wrapped
// error.
func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, signupdomain.ErrInvalidRequest),
		errors.Is(err, paymentdomain.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ledgerdomain.ErrInvalidServiceCode):
		return ledgerdomain.ErrInvalidServiceCode.Error()
	case errors.Is(err, reportdomain.ErrInvalidFieldValue):
		return reportdomain.ErrInvalidFieldValue.Error()
	case errors.Is(err, reportdomain.ErrFieldNotMutable):
		return reportdomain.ErrFieldNotMutable.Error()
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "invalid_otp", "otp_expired":
		return "otp"
	case "invalid_service_code", "empty_services":
		return "services"
	case "invalid_amount":
		return "amount"
	case "invalid_signature":
		return "signature"
	case "invalid_page_token":
		return "page_token"
	case "weak_password":
		return "password"
	case "cancellation_reason_required", "cancellation_reason_mismatch":
		return "cancellation_reason"
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
	case "insufficient_credits":
		return "insufficient credits"
	case "no_changes":
		return "no fields to update"
	case "otp_expired":
		return "otp expired"
	case "weak_password":
		return "password too weak"
	default:
		return "invalid value"
	}
}
