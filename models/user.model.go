package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a registered customer or admin.
type User struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name              string             `bson:"name" json:"name"`
	Email             string             `bson:"email" json:"email"`
	Password          string             `bson:"password,omitempty" json:"-"`
	ShippingAddress   ShippingAddress    `bson:"shipping_address,omitempty" json:"shipping_address,omitempty"`
	Role              string             `bson:"role" json:"role"` // "user" or "admin"
	IsVerified        bool               `bson:"is_verified" json:"is_verified"`
	VerificationToken string             `bson:"verification_token,omitempty" json:"-"`
}
