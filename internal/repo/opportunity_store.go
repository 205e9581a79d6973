package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sally/internal/models"
)

type OpportunityStore struct{ db *gorm.DB }

func NewOpportunityStore(db *gorm.DB) *OpportunityStore { return &OpportunityStore{db: db} }

func (s *OpportunityStore) Create(ctx context.Context, o *models.Opportunity) error {
	// user rows are managed by UserStore, never written through associations
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(o).Error
}

// List returns every opportunity, newest first. The dashboard is an internal
// team tool, so listings are not filtered by owner.
func (s *OpportunityStore) List(ctx context.Context) ([]models.Opportunity, error) {
	var rows []models.Opportunity
	err := s.db.WithContext(ctx).Order("created_at desc").Find(&rows).Error
	return rows, err
}

func (s *OpportunityStore) GetByUUID(ctx context.Context, uuid string) (*models.Opportunity, error) {
	var o models.Opportunity
	err := s.db.WithContext(ctx).
		Preload("CreatedBy").
		Preload("AssignedSA").
		Where("uuid = ?", uuid).
		First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *OpportunityStore) GetByID(ctx context.Context, id uint) (*models.Opportunity, error) {
	var o models.Opportunity
	err := s.db.WithContext(ctx).First(&o, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *OpportunityStore) Save(ctx context.Context, o *models.Opportunity) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Save(o).Error
}
