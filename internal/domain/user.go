package domain

import "time"

type User struct {
	UserID       string    `json:"id" dynamodbav:"user_id"`
	Username     string    `json:"username" dynamodbav:"username"`
	Email        string    `json:"email" dynamodbav:"email"`
	FullName     string    `json:"fullname" dynamodbav:"full_name"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	AvatarKey    string    `json:"-" dynamodbav:"avatar_key"`
	AvatarURL    string    `json:"avatar" dynamodbav:"avatar_url"`
	CoverKey     string    `json:"-" dynamodbav:"cover_key"`
	CoverURL     string    `json:"cover_image" dynamodbav:"cover_url"`
	// RefreshToken is the single current-refresh-token slot. Overwriting it
	// (rotation, logout) is the only revocation mechanism: an old token still
	// verifies cryptographically but no longer matches the stored value.
	RefreshToken string    `json:"-" dynamodbav:"refresh_token,omitempty"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

// Sanitized returns a copy safe to hand to clients: no password hash, no
// refresh token. Mirrors the stored projection used by the auth middleware.
func (u User) Sanitized() *User {
	u.PasswordHash = ""
	u.RefreshToken = ""
	return &u
}

type UpdateAccountRequest struct {
	FullName *string `json:"fullname"`
	Email    *string `json:"email" validate:"omitempty,email"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}
