package repository

import (
	"startup_edu_backend/internal/model"

	"gorm.io/gorm"
)

type OrderRepository struct {
	DB *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{DB: db}
}

func (r *OrderRepository) Create(order *model.Order) error {
	return r.DB.Create(order).Error
}

func (r *OrderRepository) FindByRevolutID(revolutOrderID string) (*model.Order, error) {
	var order model.Order
	err := r.DB.Where("revolut_order_id = ?", revolutOrderID).First(&order).Error
	return &order, err
}

func (r *OrderRepository) Save(order *model.Order) error {
	return r.DB.Save(order).Error
}

func (r *OrderRepository) FindByUser(userID uint) ([]model.Order, error) {
	var orders []model.Order
	err := r.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&orders).Error
	return orders, err
}
