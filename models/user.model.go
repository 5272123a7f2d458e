package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a user in the system
type User struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Name                string             `bson:"name" json:"name"`
	Email               string             `bson:"email" json:"email"`
	Password            string             `bson:"password,omitempty" json:"-"`
	Role                string             `bson:"role" json:"role"` // "user" or "admin"
	IsEmailVerified     bool               `bson:"isEmailVerified" json:"isEmailVerified"`
	FailedLoginAttempts int                `bson:"failedLoginAttempts" json:"-"`
	LockUntil           *time.Time         `bson:"lockUntil,omitempty" json:"-"`
	RefreshToken        string             `bson:"refreshToken,omitempty" json:"-"`
	ResetToken          string             `bson:"passwordResetToken,omitempty" json:"-"`
	ResetExpires        *time.Time         `bson:"passwordResetExpires,omitempty" json:"-"`
	CreatedAt           time.Time          `bson:"createdAt" json:"createdAt"`
}

// IsLocked reports whether the account is locked at now.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockUntil != nil && now.Before(*u.LockUntil)
}
