package utils

import (
	"encoding/json"
	"net/http"
	"time"

	"ms-booking/internal/apperror"
)

type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Code      string      `json:"code,omitempty"`
	Kind      string      `json:"kind,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

func ErrorResponse(message, error string) APIResponse {
	return APIResponse{
		Success:   false,
		Message:   message,
		Error:     error,
		Timestamp: time.Now(),
	}
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindStateConflict:
		return http.StatusConflict
	case apperror.KindBusinessRule:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// AppErrorResponse builds the envelope for err. Infrastructure failures are
// reported with a generic message; the caller is expected to log the cause.
func AppErrorResponse(err error) (int, APIResponse) {
	appErr, ok := apperror.As(err)
	if !ok || appErr.Kind == apperror.KindInfrastructure {
		resp := ErrorResponse("Internal server error", "internal server error")
		resp.Kind = string(apperror.KindInfrastructure)
		resp.Code = apperror.CodeInternal
		if ok {
			resp.Code = appErr.Code
		}
		return http.StatusInternalServerError, resp
	}
	resp := ErrorResponse(appErr.Message, appErr.Message)
	resp.Code = appErr.Code
	resp.Kind = string(appErr.Kind)
	return StatusFor(appErr.Kind), resp
}

func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func WriteError(w http.ResponseWriter, err error) {
	status, resp := AppErrorResponse(err)
	WriteJSON(w, status, resp)
}
