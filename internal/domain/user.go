package domain

import "time"

const (
	AuthProviderLocal  = "local"
	AuthProviderGoogle = "google"
	AuthProviderHosted = "hosted"
)

type User struct {
	UserID       string    `json:"id" db:"id" dynamodbav:"user_id"`
	Name         string    `json:"name" db:"name" dynamodbav:"name"`
	Email        string    `json:"email" db:"email" dynamodbav:"email"`
	PhoneNumber  *string   `json:"phone_number" db:"phone_number" dynamodbav:"phone_number,omitempty"`
	Role         string    `json:"role" db:"role" dynamodbav:"role"`
	PasswordHash string    `json:"-" db:"password_hash" dynamodbav:"password_hash"`
	AuthProvider string    `json:"auth_provider" db:"auth_provider" dynamodbav:"auth_provider"` // "local" | "google" | "hosted"
	CreatedAt    time.Time `json:"created_at" db:"created_at" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at" dynamodbav:"updated_at"`
}

// Actor returns the authorization view of the user.
func (u *User) Actor() Actor {
	return Actor{UserID: u.UserID, Role: u.Role, Email: u.Email, Name: u.Name}
}

type RegisterRequest struct {
	Name        string  `json:"name" validate:"required"`
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required,min=8,max=72"`
	PhoneNumber *string `json:"phone_number"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

type UpdateUserRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1"`
	Email       *string `json:"email" validate:"omitempty,email"`
	PhoneNumber *string `json:"phone_number"`
	Role        *string `json:"role"`
}
