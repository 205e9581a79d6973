package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"sally/internal/models"
)

type PortalStore struct{ db *gorm.DB }

func NewPortalStore(db *gorm.DB) *PortalStore { return &PortalStore{db: db} }

func (s *PortalStore) Create(ctx context.Context, p *models.ClientPortal) error {
	return s.db.WithContext(ctx).Create(p).Error
}

// GetByToken returns the row whatever its state; classifying it
// (active/expired/deactivated) is the service's job.
func (s *PortalStore) GetByToken(ctx context.Context, token string) (*models.ClientPortal, error) {
	var p models.ClientPortal
	err := s.db.WithContext(ctx).Where("access_token = ?", token).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PortalStore) GetByUUID(ctx context.Context, uuid string) (*models.ClientPortal, error) {
	var p models.ClientPortal
	err := s.db.WithContext(ctx).Where("uuid = ?", uuid).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ActiveForOpportunity picks the most recently issued active portal, or nil.
func (s *PortalStore) ActiveForOpportunity(ctx context.Context, opportunityID uint) (*models.ClientPortal, error) {
	var p models.ClientPortal
	err := s.db.WithContext(ctx).
		Where("opportunity_id = ? AND is_active = ?", opportunityID, true).
		Order("created_at desc").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PortalStore) Deactivate(ctx context.Context, uuid string) error {
	res := s.db.WithContext(ctx).Model(&models.ClientPortal{}).
		Where("uuid = ?", uuid).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PortalStore) DeactivateAllForOpportunity(ctx context.Context, opportunityID uint) error {
	return s.db.WithContext(ctx).Model(&models.ClientPortal{}).
		Where("opportunity_id = ? AND is_active = ?", opportunityID, true).
		Update("is_active", false).Error
}

// TouchAccessed records a successful public read; rows are kept after
// deactivation precisely so this audit trail survives.
func (s *PortalStore) TouchAccessed(ctx context.Context, id uint, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.ClientPortal{}).
		Where("id = ?", id).
		Update("last_accessed", at).Error
}
