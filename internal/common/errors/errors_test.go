package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	warns  []string
	errors []string
}

func (l *recordingLogger) Warn(msg string, _ map[string]interface{})  { l.warns = append(l.warns, msg) }
func (l *recordingLogger) Error(msg string, _ map[string]interface{}) { l.errors = append(l.errors, msg) }

func TestCustomerNotFound_SurvivesWrapping(t *testing.T) {
	err := NewCustomerNotFoundError("NOPE")
	wrapped := fmt.Errorf("analyze: %w", err)

	assert.True(t, IsCustomerNotFound(wrapped))
	assert.False(t, IsValidation(wrapped))
	assert.Contains(t, wrapped.Error(), "NOPE")

	std := AsStandardError(wrapped)
	assert.Equal(t, ErrCodeCustomerNotFound, std.Code)
	assert.Equal(t, "NOPE", std.Metadata["customerId"])
}

func TestAsStandardError_NormalizesUnknown(t *testing.T) {
	std := AsStandardError(stderrors.New("boom"))
	assert.Equal(t, ErrCodeInternal, std.Code)
	assert.Equal(t, "boom", std.Details)
	assert.Nil(t, AsStandardError(nil))
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := NewMemoryIOError("append", cause)
	assert.True(t, stderrors.Is(err, cause))
	assert.True(t, stderrors.Is(err, ErrMemoryIOFailed))
}

func TestGetHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, GetHTTPStatus(ErrCodeCustomerNotFound))
	assert.Equal(t, http.StatusUnprocessableEntity, GetHTTPStatus(ErrCodeValidationFailed))
	assert.Equal(t, http.StatusServiceUnavailable, GetHTTPStatus(ErrCodeServiceUnavailable))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus("SOMETHING_ELSE"))
}

func TestIsRetryableErrorCode(t *testing.T) {
	assert.True(t, IsRetryableErrorCode(ErrCodeMemoryIOFailed))
	assert.False(t, IsRetryableErrorCode(ErrCodeCustomerNotFound))
}

func TestErrorHandler_HandleHTTPError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
		leaks      string
	}{
		{
			name:       "not found keeps id",
			err:        NewCustomerNotFoundError("CUST999999"),
			wantStatus: http.StatusNotFound,
			wantBody:   "CUST999999",
		},
		{
			name:       "validation keeps details",
			err:        NewValidationError("customer_id", "Customer ID cannot be empty"),
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   "cannot be empty",
		},
		{
			name:       "unknown error is generic",
			err:        stderrors.New("pq: password authentication failed for user loyalty"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   "Internal server error",
			leaks:      "password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &recordingLogger{}
			h := NewErrorHandler(log)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/analyze", nil)

			status := h.HandleHTTPError(rec, req, tt.err)

			require.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			if tt.leaks != "" {
				assert.NotContains(t, rec.Body.String(), tt.leaks)
				assert.Len(t, log.errors, 1)
			}
		})
	}
}
