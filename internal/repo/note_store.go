package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sally/internal/models"
)

type NoteStore struct{ db *gorm.DB }

func NewNoteStore(db *gorm.DB) *NoteStore { return &NoteStore{db: db} }

func (s *NoteStore) Create(ctx context.Context, n *models.Note) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(n).Error
}

func (s *NoteStore) ListForOpportunity(ctx context.Context, opportunityID uint) ([]models.Note, error) {
	var rows []models.Note
	err := s.db.WithContext(ctx).
		Preload("Author").
		Where("opportunity_id = ?", opportunityID).
		Order("created_at asc").
		Find(&rows).Error
	return rows, err
}

func (s *NoteStore) GetByUUID(ctx context.Context, uuid string) (*models.Note, error) {
	var n models.Note
	err := s.db.WithContext(ctx).Where("uuid = ?", uuid).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *NoteStore) Save(ctx context.Context, n *models.Note) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Save(n).Error
}

// Delete removes the note; deleting a note that is already gone is an error.
func (s *NoteStore) Delete(ctx context.Context, uuid string) error {
	res := s.db.WithContext(ctx).Where("uuid = ?", uuid).Delete(&models.Note{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
