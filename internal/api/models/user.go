package models

// User represents a user in the database.
type User struct {
	ID           int64  `db:"id"`
	Username     string `db:"username"`
	PasswordHash string `db:"password_hash"`
}

// RegisterRequest defines the fields submitted by the registration form.
type RegisterRequest struct {
	Username        string `form:"username" validate:"required,min=2,max=20"`
	Password        string `form:"password" validate:"required,maxbytes=72"`
	ConfirmPassword string `form:"confirm_password" validate:"required,eqfield=Password"`
}

// LoginRequest defines the fields submitted by the login form.
type LoginRequest struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// UpdateUsernameRequest is the account settings form.
type UpdateUsernameRequest struct {
	Username string `form:"username" validate:"required,min=2,max=20"`
}

// ChangePasswordRequest is the change password form.
type ChangePasswordRequest struct {
	OldPassword     string `form:"old_password" validate:"required"`
	NewPassword     string `form:"new_password" validate:"required,maxbytes=72"`
	ConfirmPassword string `form:"confirm_password" validate:"required,eqfield=NewPassword"`
}
