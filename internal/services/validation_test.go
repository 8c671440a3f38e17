package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

type borrowPayload struct {
	MemberID int64  `json:"member_id" validate:"required,gt=0"`
	CopyID   int64  `json:"copy_id" validate:"required,gt=0"`
	Method   string `json:"method" validate:"omitempty,oneof=CASH CARD ONLINE"`
}

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid struct", func(t *testing.T) {
		err := vh.ValidateStruct(&borrowPayload{MemberID: 1, CopyID: 2})
		assert.NoError(t, err)
	})

	t.Run("missing ids", func(t *testing.T) {
		err := vh.ValidateStruct(&borrowPayload{})
		assert.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		assert.True(t, ok)
		assert.Len(t, validationErrors, 2)
	})

	t.Run("unknown method", func(t *testing.T) {
		err := vh.ValidateStruct(&borrowPayload{MemberID: 1, CopyID: 2, Method: "CHEQUE"})

		validationErrors, ok := err.(validator.ValidationErrors)
		assert.True(t, ok)
		assert.Len(t, validationErrors, 1)
		assert.Equal(t, "Method", validationErrors[0].Field())
		assert.Equal(t, "oneof", validationErrors[0].Tag())
	})
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("without validation errors", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, "Something went wrong", http.StatusInternalServerError, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Something went wrong", response.Error)
		assert.Nil(t, response.Details)
	})

	t.Run("with validation errors", func(t *testing.T) {
		validationErr := NewValidationHelper().ValidateStruct(&borrowPayload{Method: "CHEQUE"})

		w := httptest.NewRecorder()
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, validationErr)

		var response ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, response.Details, "MemberID")
		assert.Contains(t, response.Details, "CopyID")
		assert.Contains(t, response.Details, "Method")
	})

	t.Run("non-validation error is not expanded", func(t *testing.T) {
		w := httptest.NewRecorder()
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, errors.New("boom"))

		var response ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Nil(t, response.Details)
	})
}

func TestSendServiceError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		kind    string
		message string
	}{
		{"not found", newError(KindNotFound, "copy 9 not found"), http.StatusNotFound, "NOT_FOUND", "copy 9 not found"},
		{"already exists", newError(KindAlreadyExists, "loan 1 already returned"), http.StatusConflict, "ALREADY_EXISTS", "loan 1 already returned"},
		{"not available", newError(KindNotAvailable, "reservation queue exists"), http.StatusConflict, "NOT_AVAILABLE", "reservation queue exists"},
		{"bad request", newError(KindBadRequest, "a lost copy has no shelf"), http.StatusBadRequest, "BAD_REQUEST", "a lost copy has no shelf"},
		{"illegal state", newError(KindIllegalState, "copy 1 is already lost"), http.StatusConflict, "ILLEGAL_STATE", "copy 1 is already lost"},
		{"access denied", newError(KindAccessDenied, "member 1 has unpaid penalties"), http.StatusForbidden, "ACCESS_DENIED", "member 1 has unpaid penalties"},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL", "An Internal Error Occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			SendServiceError(w, tt.err)

			var response ErrorResponse
			assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.kind, response.Kind)
			assert.Equal(t, tt.message, response.Error)
		})
	}

	t.Run("lock timeout asks the client to retry", func(t *testing.T) {
		w := httptest.NewRecorder()
		SendServiceError(w, dbError(&pq.Error{Code: "55P03"}, "lock copy"))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "1", w.Header().Get("Retry-After"))
	})
}

func TestDecodeJSONBody(t *testing.T) {
	t.Run("single object", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/loans", strings.NewReader(`{"member_id":1,"copy_id":2}`))
		var p borrowPayload
		assert.NoError(t, DecodeJSONBody(httptest.NewRecorder(), r, &p))
		assert.Equal(t, int64(2), p.CopyID)
	})

	t.Run("unknown field", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/loans", strings.NewReader(`{"member_id":1,"shelf":"A"}`))
		var p borrowPayload
		assert.Error(t, DecodeJSONBody(httptest.NewRecorder(), r, &p))
	})

	t.Run("two objects", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/loans", strings.NewReader(`{"member_id":1}{"member_id":2}`))
		var p borrowPayload
		err := DecodeJSONBody(httptest.NewRecorder(), r, &p)
		assert.EqualError(t, err, "request body must only contain a single JSON object")
	})
}
