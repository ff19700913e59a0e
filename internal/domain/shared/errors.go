package shared

// DomainError represents a domain-level error surfaced to the caller
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrNoActiveOrder       = NewDomainError("NO_ACTIVE_ORDER", "No active order found for the current session")
	ErrEmptyOrder          = NewDomainError("EMPTY_ORDER", "Order has no lines")
	ErrNoCustomer          = NewDomainError("NO_CUSTOMER", "Order has no customer")
	ErrNoShippingMethod    = NewDomainError("NO_SHIPPING_METHOD", "Order has no shipping method selected")
	ErrAmbiguousCredential = NewDomainError("AMBIGUOUS_CREDENTIAL", "Expected exactly one enabled Stripe payment method for the channel")
)
