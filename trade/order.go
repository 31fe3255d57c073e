package trade

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/riskengine/pkg/errs"
)

type OrderStatus string

const (
	OrderNew             OrderStatus = "NEW"
	OrderPending         OrderStatus = "PENDING"
	OrderPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderFilled          OrderStatus = "FILLED"
	OrderCanceled        OrderStatus = "CANCELED"
	OrderRejected        OrderStatus = "REJECTED"
	OrderExpired         OrderStatus = "EXPIRED"
)

// ErrTerminalOrder is returned when a FILLED/CANCELED/REJECTED/EXPIRED
// order is asked to change status.
var ErrTerminalOrder = errors.New("order is in a terminal state")

func (s OrderStatus) rank() int {
	switch s {
	case OrderNew:
		return 0
	case OrderPending:
		return 1
	case OrderPartiallyFilled:
		return 2
	case OrderFilled, OrderCanceled, OrderRejected, OrderExpired:
		return 3
	}
	return -1
}

func (s OrderStatus) Valid() bool { return s.rank() >= 0 }

// Terminal reports whether the status is absorbing.
func (s OrderStatus) Terminal() bool { return s.rank() == 3 }

// Active reports whether the order can still fill.
func (s OrderStatus) Active() bool {
	r := s.rank()
	return r >= 0 && r < 3
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	if !st.Valid() {
		return "", errs.Invalid("order_status", s, "unknown")
	}
	return st, nil
}

type OrderRole string

const (
	RoleEntry      OrderRole = "entry"
	RoleDCA        OrderRole = "dca"
	RoleTakeProfit OrderRole = "take_profit"
	RoleStopLoss   OrderRole = "stop_loss"
)

// IsExit reports whether fills of this role reduce the position.
func (r OrderRole) IsExit() bool { return r == RoleTakeProfit || r == RoleStopLoss }

// OrderRef references an exchange order. FilledQty is cumulative.
type OrderRef struct {
	ID              string      `json:"id"`
	ExchangeOrderID string      `json:"exchange_order_id,omitempty"`
	Role            OrderRole   `json:"role"`
	Side            Side        `json:"side"`
	Status          OrderStatus `json:"status"`
	Price           float64     `json:"price"`
	Qty             float64     `json:"qty"`
	FilledQty       float64     `json:"filled_qty"`
	AvgPrice        float64     `json:"avg_price"`
	Fee             float64     `json:"fee"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// FillPrice is the average fill price, falling back to the limit price.
func (o OrderRef) FillPrice() float64 {
	if o.AvgPrice > 0 {
		return o.AvgPrice
	}
	return o.Price
}

// Transition moves the order forward. Statuses never move backwards and
// terminal statuses are absorbing; re-applying the current status is a no-op.
func (o OrderRef) Transition(to OrderStatus) (OrderRef, error) {
	if !to.Valid() {
		return o, errs.Invalid("order_status", to, "unknown")
	}
	if o.Status == to {
		return o, nil
	}
	if o.Status.Terminal() {
		return o, fmt.Errorf("order %s %s -> %s: %w", o.ID, o.Status, to, ErrTerminalOrder)
	}
	if to.rank() < o.Status.rank() {
		return o, fmt.Errorf("order %s %s -> %s: %w", o.ID, o.Status, to, errs.ErrInvalidTransition)
	}
	o.Status = to
	return o, nil
}
