package model

import "time"

// Staff roles carried in the JWT "role" claim.
const (
	RoleAdmin = "ADMIN"
	RoleStaff = "STAFF"
)

// User is a hotel staff account.
//
// Fields:
//  ID           – identifier, also the JWT subject.
//  Email        – unique, stored lower case.
//  PasswordHash – bcrypt hash, never serialized.
//  Role         – ADMIN or STAFF.
//  IsActive     – inactive users cannot log in.
type User struct {
	ID           string    `bson:"_id" json:"id"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	Role         string    `bson:"role" json:"role"`
	IsActive     bool      `bson:"is_active" json:"is_active"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}
