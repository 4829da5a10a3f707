package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ShippingAddress is a delivery address. Fields may be overwritten with
// the carrier's standardized form before the order is placed.
type ShippingAddress struct {
	FullName     string `bson:"full_name" json:"full_name"`
	AddressLine1 string `bson:"address_line1" json:"address_line1"`
	AddressLine2 string `bson:"address_line2,omitempty" json:"address_line2,omitempty"`
	City         string `bson:"city" json:"city"`
	State        string `bson:"state" json:"state"`
	ZipCode      string `bson:"zipcode" json:"zipcode"`
	Country      string `bson:"country" json:"country"`
	PhoneNumber  string `bson:"phone_number,omitempty" json:"phone_number,omitempty"`
}

// Order statuses, in lifecycle order.
const (
	OrderStatusPending   = "Pending"
	OrderStatusPaid      = "Paid"
	OrderStatusShipped   = "Shipped"
	OrderStatusDelivered = "Delivered"
)

// Payment statuses.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// Order is an immutable snapshot taken at purchase time: item names,
// images and prices are copied out of the catalog, so later catalog
// edits never change what the customer bought or what they paid.
type Order struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID           primitive.ObjectID `bson:"user_id" json:"user_id"`
	Items            []CartItem         `bson:"items" json:"items"`
	TotalAmount      float64            `bson:"total_amount" json:"total_amount"`
	ShippingAddress  ShippingAddress    `bson:"shipping_address" json:"shipping_address"`
	PaymentMethod    string             `bson:"payment_method" json:"payment_method"`
	PaymentStatus    string             `bson:"payment_status" json:"payment_status"`
	PaymentSessionID string             `bson:"payment_session_id" json:"payment_session_id"`
	Status           string             `bson:"status" json:"status"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
}

// ValidStatusTransition reports whether an order may move from one
// status to the next. Transitions only ever advance.
func ValidStatusTransition(from, to string) bool {
	order := map[string]int{
		OrderStatusPending:   0,
		OrderStatusPaid:      1,
		OrderStatusShipped:   2,
		OrderStatusDelivered: 3,
	}
	f, okF := order[from]
	t, okT := order[to]
	return okF && okT && t == f+1
}
