package domain

import "time"

type Order struct {
	ID            uint
	CustomerName  string
	CustomerEmail string
	Phone         *string
	Address       *string
	Status        string
	TotalAmount   float64
	DeliveryDate  *time.Time
	Items         []OrderItem
	Agreement     Agreement
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type OrderItem struct {
	ID       uint
	OrderID  uint
	Name     string
	Quantity int
	Price    float64
}

const (
	OrderStatusPending   = "PENDING"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusCanceled  = "CANCELED"
)

// CanDeliver is the delivery gate consulted by dispatch. The block is lifted
// only by a confirmed signature or an explicit operator override.
func (o *Order) CanDeliver() bool {
	return !o.Agreement.DeliveryBlocked
}

// HoursUntilDelivery returns false when the order has no structured delivery
// date. Orders without one never escalate past the initial notice.
func (o *Order) HoursUntilDelivery(now time.Time) (float64, bool) {
	if o.DeliveryDate == nil {
		return 0, false
	}
	return o.DeliveryDate.Sub(now).Hours(), true
}
