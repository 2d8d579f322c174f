package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	authdomain "github.com/srithedesigner/credmatrix-backend/internal/auth/domain"
	documentdomain "github.com/srithedesigner/credmatrix-backend/internal/document/domain"
	ledgerdomain "github.com/srithedesigner/credmatrix-backend/internal/ledger/domain"
	otpdomain "github.com/srithedesigner/credmatrix-backend/internal/otp/domain"
	paymentdomain "github.com/srithedesigner/credmatrix-backend/internal/payment/domain"
	reportdomain "github.com/srithedesigner/credmatrix-backend/internal/report/domain"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestMapErrorStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{reportdomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{documentdomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{gorm.ErrRecordNotFound, http.StatusNotFound, "not_found"},
		{ledgerdomain.ErrInsufficientCredits, http.StatusPaymentRequired, "insufficient_credits"},
		{fmt.Errorf("debit: %w", ledgerdomain.ErrInsufficientCredits), http.StatusPaymentRequired, "insufficient_credits"},
		{reportdomain.ErrNoEntity, http.StatusBadRequest, "no_entity"},
		{reportdomain.ErrInvalidPAN, http.StatusBadRequest, "invalid_request"},
		{fmt.Errorf("%w: %v", documentdomain.ErrStorageUnavailable, errors.New("gcs down")), http.StatusBadGateway, "upstream_failure"},
		{otpdomain.ErrDeliveryFailed, http.StatusBadGateway, "upstream_failure"},
		{paymentdomain.ErrGatewayUnavailable, http.StatusBadGateway, "upstream_failure"},
		{reportdomain.ErrInvalidTransition, http.StatusConflict, "conflict"},
		{authdomain.ErrUserExists, http.StatusConflict, "conflict"},
		{authdomain.ErrTokenExpired, http.StatusUnauthorized, "unauthorized"},
		{otpdomain.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		status, payload := mapError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.kind, payload.Type, tc.err.Error())
	}
}

func TestMapErrorFieldFromWrappedSentinel(t *testing.T) {
	_, payload := mapError(fmt.Errorf("%w: %q", ledgerdomain.ErrInvalidServiceCode, "X"))
	if assert.Len(t, payload.Errors, 1) {
		assert.Equal(t, "invalid_service_code", payload.Errors[0].Code)
		assert.Equal(t, "services", payload.Errors[0].Field)
	}

	_, payload = mapError(reportdomain.ErrInvalidPAN)
	assert.Equal(t, "target_entity_pan", payload.Errors[0].Field)
}

func TestClassifyErrorForLog(t *testing.T) {
	kind, code := classifyErrorForLog(ledgerdomain.ErrInsufficientCredits)
	assert.Equal(t, "insufficient_credits", kind)
	assert.Equal(t, "insufficient_credits", code)

	kind, code = classifyErrorForLog(errors.New("db exploded"))
	assert.Equal(t, "internal_error", kind)
	assert.Equal(t, "internal_error", code)

	kind, code = classifyErrorForLog(nil)
	assert.Empty(t, kind)
	assert.Empty(t, code)
}
