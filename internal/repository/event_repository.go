package repository

import (
	"startup_edu_backend/internal/model"

	"gorm.io/gorm"
)

type EventRepository struct {
	DB *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{DB: db}
}

func (r *EventRepository) FindPublished() ([]model.Event, error) {
	var events []model.Event
	err := r.DB.Where("published = ?", true).Order("starts_at ASC").Find(&events).Error
	return events, err
}

func (r *EventRepository) FindAll(page, limit int) ([]model.Event, int64, error) {
	var events []model.Event
	var total int64

	query := r.DB.Model(&model.Event{})
	query.Count(&total)

	offset := (page - 1) * limit
	err := query.Offset(offset).Limit(limit).Order("starts_at DESC").Find(&events).Error
	return events, total, err
}

func (r *EventRepository) FindByID(id uint) (*model.Event, error) {
	var event model.Event
	err := r.DB.First(&event, id).Error
	return &event, err
}

func (r *EventRepository) Create(event *model.Event) error {
	return r.DB.Create(event).Error
}

func (r *EventRepository) Update(event *model.Event) error {
	return r.DB.Save(event).Error
}

func (r *EventRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Event{}, id).Error
}
