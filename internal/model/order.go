package model

import "time"

type OrderState string

const (
	OrderPending   OrderState = "pending"
	OrderCompleted OrderState = "completed"
	OrderFailed    OrderState = "failed"
	OrderCancelled OrderState = "cancelled"
)

// Order 课程购买订单，关联Revolut侧的订单
// swagger:model Order
type Order struct {
	BaseModel
	UserID         uint       `gorm:"index;not null" json:"userId"`
	CourseID       uint       `gorm:"index;not null" json:"courseId"`
	Amount         int64      `gorm:"not null" json:"amount"` // 最小货币单位（分）
	Currency       string     `gorm:"size:3;not null" json:"currency"`
	State          OrderState `gorm:"size:20;default:'pending';index" json:"state"`
	RevolutOrderID string     `gorm:"size:64;uniqueIndex" json:"revolutOrderId"`
	CheckoutURL    string     `gorm:"size:512" json:"checkoutUrl"`
	PaidAt         *time.Time `json:"paidAt"`
}

func (Order) TableName() string {
	return "orders"
}
