package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a registered user. Products holds back-references to the
// user's product documents; the product store keeps it in sync on create and
// delete.
type User struct {
	ID                primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name              string               `bson:"name" json:"name"`
	Email             string               `bson:"email" json:"email"`
	Password          string               `bson:"password,omitempty" json:"-"`
	Image             string               `bson:"image,omitempty" json:"image,omitempty"`
	GoogleID          string               `bson:"google_id,omitempty" json:"-"`
	Status            string               `bson:"status" json:"status"` // pending, verified, active
	VerificationToken string               `bson:"verification_token,omitempty" json:"-"`
	OTP               string               `bson:"otp,omitempty" json:"-"`
	Products          []primitive.ObjectID `bson:"products,omitempty" json:"products,omitempty"`
	CreatedAt         time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time            `bson:"updated_at" json:"updated_at"`
}
