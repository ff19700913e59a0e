package dto

import "net/http"

// Error codes surfaced by the transport layer
const (
	ErrCodeInternal   = "INTERNAL"
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeNotFound   = "NOT_FOUND"
)

// domainErrorHTTPStatus maps domain error codes to HTTP status codes
var domainErrorHTTPStatus = map[string]int{
	"NOT_FOUND":                http.StatusNotFound,
	"ALREADY_EXISTS":           http.StatusConflict,
	"INVALID_INPUT":            http.StatusBadRequest,
	"INVALID_STATE":            http.StatusUnprocessableEntity,
	"INVALID_STATE_TRANSITION": http.StatusUnprocessableEntity,
	"NO_ACTIVE_ORDER":          http.StatusUnprocessableEntity,
	"EMPTY_ORDER":              http.StatusUnprocessableEntity,
	"NO_CUSTOMER":              http.StatusUnprocessableEntity,
	"NO_SHIPPING_METHOD":       http.StatusUnprocessableEntity,
	"AMBIGUOUS_CREDENTIAL":     http.StatusUnprocessableEntity,
	"INVALID_SCHEDULE":         http.StatusBadRequest,
	"INVALID_CHANNEL":          http.StatusBadRequest,
	"INVALID_ORDER_CODE":       http.StatusBadRequest,
	"INVALID_CURRENCY":         http.StatusBadRequest,
	"INVALID_QUANTITY":         http.StatusBadRequest,
	"INVALID_PRICE":            http.StatusBadRequest,
	"INVALID_SURCHARGE":        http.StatusBadRequest,
	"INVALID_PAYMENT":          http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status code for a domain error code.
// Unknown codes map to 500 Internal Server Error.
func GetHTTPStatus(code string) int {
	if status, ok := domainErrorHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
