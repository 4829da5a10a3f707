package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CheckoutSession records a hosted payment session between its creation
// and the customer's return from the payment provider. SessionID is the
// provider-issued opaque identifier carried through the redirect.
type CheckoutSession struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	SessionID       string             `bson:"session_id" json:"session_id"`
	UserID          primitive.ObjectID `bson:"user_id" json:"user_id"`
	Amount          float64            `bson:"amount" json:"amount"`
	PaymentMethod   string             `bson:"payment_method" json:"payment_method"`
	ShippingAddress ShippingAddress    `bson:"shipping_address" json:"shipping_address"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
}
