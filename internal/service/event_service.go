package service

import (
	"errors"
	"startup_edu_backend/internal/model"
	"startup_edu_backend/internal/repository"
	"startup_edu_backend/internal/util"

	"gorm.io/gorm"
)

// EventService 平台活动的展示与后台维护
type EventService struct {
	EventRepo *repository.EventRepository
}

func NewEventService(eventRepo *repository.EventRepository) *EventService {
	return &EventService{EventRepo: eventRepo}
}

func (s *EventService) GetPublishedEvents() ([]model.Event, error) {
	return s.EventRepo.FindPublished()
}

func (s *EventService) GetEvents(page, limit int) ([]model.Event, int64, error) {
	return s.EventRepo.FindAll(page, limit)
}

func (s *EventService) GetEventByID(id uint) (*model.Event, error) {
	event, err := s.EventRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrEventNotFound
		}
		return nil, err
	}
	return event, nil
}

func (s *EventService) CreateEvent(event *model.Event) error {
	return s.EventRepo.Create(event)
}

func (s *EventService) UpdateEvent(event *model.Event) error {
	return s.EventRepo.Update(event)
}

func (s *EventService) DeleteEvent(id uint) error {
	return s.EventRepo.Delete(id)
}
