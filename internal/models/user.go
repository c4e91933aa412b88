package models

import (
	"strconv"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model    `json:"-"`
	ID            uint   `json:"id" gorm:"primaryKey"`
	Username      string `json:"username" gorm:"uniqueIndex;size:30"`
	Email         string `json:"email" gorm:"uniqueIndex"` // Ensure email is unique across all users
	Password      string `json:"-"`                        // Store hashed password, ignore for JSON serialization
	FullName      string `json:"full_name,omitempty"`
	Bio           string `json:"bio,omitempty" gorm:"size:160"`
	ProfilePicURL string `json:"profile_pic_url,omitempty"`
	FirebaseUID   string `json:"firebase_uid,omitempty" gorm:"index"` // Link to Firebase User UID, empty for local accounts
}

// DocumentID returns the user's ID in the form stored on MongoDB documents.
func (u *User) DocumentID() string {
	return strconv.FormatUint(uint64(u.ID), 10)
}

type SignupRequest struct {
	Username string `json:"username" validate:"required,min=2,max=30,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name,omitempty" validate:"omitempty,max=80"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	FullName      string `json:"full_name,omitempty" validate:"omitempty,max=80"`
	Bio           string `json:"bio,omitempty" validate:"omitempty,max=160"`
	ProfilePicURL string `json:"profile_pic_url,omitempty" validate:"omitempty,url"`
}

// UserProfile is the public projection of a User attached to feed items.
type UserProfile struct {
	ID            uint   `json:"id"`
	Username      string `json:"username"`
	FullName      string `json:"full_name,omitempty"`
	ProfilePicURL string `json:"profile_pic_url,omitempty"`
}

// Profile returns the public projection of the user.
func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:            u.ID,
		Username:      u.Username,
		FullName:      u.FullName,
		ProfilePicURL: u.ProfilePicURL,
	}
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
