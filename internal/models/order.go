package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	StatusPlaced          OrderStatus = "placed"
	StatusDispatched      OrderStatus = "dispatched"
	StatusDelivered       OrderStatus = "delivered"
	StatusRefundInitiated OrderStatus = "refund-initiated"
	StatusRefundComplete  OrderStatus = "refund-complete"
)

// AllStatuses lists every lifecycle status an order can carry, in the
// order customers usually move through them.
func AllStatuses() []OrderStatus {
	return []OrderStatus{
		StatusPlaced,
		StatusDispatched,
		StatusDelivered,
		StatusRefundInitiated,
		StatusRefundComplete,
	}
}

// ParseStatus maps a raw string onto a known lifecycle status.
func ParseStatus(value string) (OrderStatus, bool) {
	for _, status := range AllStatuses() {
		if string(status) == value {
			return status, true
		}
	}
	return "", false
}

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cod"
	PaymentCard           PaymentMethod = "card"
	PaymentUPI            PaymentMethod = "upi"
)

type OrderItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"product_id"`
	Name      string             `bson:"name" json:"name"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	UnitPrice int64              `bson:"unitPrice" json:"unit_price"`
	Size      string             `bson:"size,omitempty" json:"size,omitempty"`
	Color     string             `bson:"color,omitempty" json:"color,omitempty"`
	ImageURL  string             `bson:"imageUrl,omitempty" json:"image_url,omitempty"`
}

type ShippingAddress struct {
	FullName   string `bson:"fullName" json:"full_name"`
	Phone      string `bson:"phone" json:"phone"`
	Street     string `bson:"street" json:"street"`
	City       string `bson:"city" json:"city"`
	PostalCode string `bson:"postalCode" json:"postal_code"`
	Country    string `bson:"country" json:"country"`
}

// Order is one purchase transaction. Prices are stored in the smallest
// currency unit. DeliveredAt is present only while the order is in the
// delivered status; transitions away from delivered remove the field
// from the document entirely rather than nulling it.
type Order struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CustomerID       primitive.ObjectID `bson:"customerId" json:"customer_id"`
	Items            []OrderItem        `bson:"items" json:"items"`
	ShippingAddress  ShippingAddress    `bson:"shippingAddress" json:"shipping_address"`
	PaymentMethod    PaymentMethod      `bson:"paymentMethod" json:"payment_method"`
	TotalPrice       int64              `bson:"totalPrice" json:"total_price"`
	IsPaid           bool               `bson:"isPaid" json:"is_paid"`
	PaidAt           *time.Time         `bson:"paidAt,omitempty" json:"paid_at,omitempty"`
	Status           OrderStatus        `bson:"status" json:"status"`
	IsDelivered      bool               `bson:"isDelivered" json:"is_delivered"`
	TrackingID       string             `bson:"trackingId,omitempty" json:"tracking_id,omitempty"`
	DeliveredAt      *time.Time         `bson:"deliveredAt,omitempty" json:"delivered_at,omitempty"`
	NotifiedStatuses []OrderStatus      `bson:"notifiedStatuses,omitempty" json:"notified_statuses,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"created_at"`
}

// HasNotified reports whether a notification for the given status has
// already been delivered to the customer.
func (o *Order) HasNotified(status OrderStatus) bool {
	if o == nil {
		return false
	}
	for _, notified := range o.NotifiedStatuses {
		if notified == status {
			return true
		}
	}
	return false
}
