package models

import (
	"time"

	"github.com/yasinhessnawi1/authgate/internal/constants"
)

// User represents a registered account.
// It carries the password digest and the two single-use token slots,
// neither of which is ever sent to clients.
type User struct {
	ID                  int64      `json:"id" db:"user_id"`
	Name                string     `json:"name" db:"name"`
	Email               string     `json:"email" db:"email"`
	PasswordHash        string     `json:"-" db:"password_hash"`
	Salt                string     `json:"-" db:"salt"`
	Status              UserStatus `json:"status" db:"status"`
	AvatarImage         string     `json:"avatar_image" db:"avatar_image"`
	EmailVerifyToken    string     `json:"-" db:"email_verify_token"`
	ForgotPasswordToken string     `json:"-" db:"forgot_password_token"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
}

// NewUser creates an unverified user with the given name and email.
// Password fields are populated later during registration.
func NewUser(name, email string) *User {
	now := time.Now()
	return &User{
		Name:      name,
		Email:     email,
		Status:    UserUnverified,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TableName returns the database table name for the User model.
func (u *User) TableName() string {
	return constants.TableUsers
}

// IsVerified reports whether the user confirmed their email address.
func (u *User) IsVerified() bool {
	return u.Status == UserVerified
}

// IsBanned reports whether the account has been banned.
func (u *User) IsBanned() bool {
	return u.Status == UserBanned
}

// SlotValue returns the current value of the given single-use slot.
func (u *User) SlotValue(slot TokenSlot) string {
	if slot == SlotEmailVerify {
		return u.EmailVerifyToken
	}
	return u.ForgotPasswordToken
}

// Profile returns the client-facing projection of the user.
func (u *User) Profile() *UserProfile {
	return &UserProfile{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Status:      u.Status,
		AvatarImage: u.AvatarImage,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// UserProfile is what GET /me and the auth endpoints return about a user.
type UserProfile struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Status      UserStatus `json:"status"`
	AvatarImage string     `json:"avatar_image,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
