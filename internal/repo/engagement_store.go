package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"sally/internal/models"
)

type EngagementStore struct{ db *gorm.DB }

func NewEngagementStore(db *gorm.DB) *EngagementStore { return &EngagementStore{db: db} }

func (s *EngagementStore) Create(ctx context.Context, e *models.EngagementStage) error {
	return s.db.WithContext(ctx).Create(e).Error
}

func (s *EngagementStore) ListForOpportunity(ctx context.Context, opportunityID uint) ([]models.EngagementStage, error) {
	var rows []models.EngagementStage
	err := s.db.WithContext(ctx).
		Where("opportunity_id = ?", opportunityID).
		Order("position asc").
		Find(&rows).Error
	return rows, err
}

func (s *EngagementStore) GetByUUID(ctx context.Context, uuid string) (*models.EngagementStage, error) {
	var e models.EngagementStage
	err := s.db.WithContext(ctx).Where("uuid = ?", uuid).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *EngagementStore) Save(ctx context.Context, e *models.EngagementStage) error {
	return s.db.WithContext(ctx).Save(e).Error
}

// NextPosition keeps stages append-ordered per opportunity.
func (s *EngagementStore) NextPosition(ctx context.Context, opportunityID uint) (int, error) {
	var max int
	err := s.db.WithContext(ctx).Model(&models.EngagementStage{}).
		Where("opportunity_id = ?", opportunityID).
		Select("COALESCE(MAX(position), 0)").
		Scan(&max).Error
	return max + 1, err
}
