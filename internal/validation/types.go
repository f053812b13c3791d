package validation

// UpdateOrderStatusRequest is the payload for PUT /api/orders/{id}/status.
// The order id travels in the URL but is validated here alongside the body
// so handlers can return one field-error map for the whole operation.
type UpdateOrderStatusRequest struct {
	OrderID    string `json:"order_id" validate:"required,len=24,hexadecimal"`
	Status     string `json:"status" validate:"required,oneof=placed dispatched delivered refund-initiated refund-complete"`
	TrackingID string `json:"tracking_id" validate:"omitempty,max=64"`
	SendEmail  bool   `json:"send_email"`
}

// OrderIDRequest covers operations addressed by order id alone.
type OrderIDRequest struct {
	OrderID string `json:"order_id" validate:"required,len=24,hexadecimal"`
}

// LoginRequest is the payload for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// PasswordResetRequest is the payload for POST /api/auth/password-reset.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetComplete is the payload for POST /api/auth/password-reset/complete.
type PasswordResetComplete struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}
