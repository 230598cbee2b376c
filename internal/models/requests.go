package models

// RegisterRequest is the body of POST /api/users/register.
type RegisterRequest struct {
	FullName string `json:"fullName" validate:"required"`
	Username string `json:"username" validate:"required,min=3,max=20"`
	Email    string `json:"email"    validate:"required,email,max=50"`
	Password string `json:"password" validate:"required,min=6,max=40"`
}

// LoginRequest is the body of POST /api/users/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateUserRequest is the body of PUT /api/users/update. A blank password
// keeps the current one.
type UpdateUserRequest struct {
	Username string `json:"username" validate:"required"`
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email"    validate:"required,email,max=50"`
	Password string `json:"password" validate:"omitempty,min=6,max=40"`
}

// DeleteAccountRequest is the body of DELETE /api/users/delete-direct.
type DeleteAccountRequest struct {
	Username        string `json:"username" validate:"required"`
	Password        string `json:"password" validate:"required"`
	ConfirmDeletion bool   `json:"confirmDeletion"`
}

// APIResponse is the generic message envelope.
type APIResponse struct {
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
}
