package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sally/internal/models"
)

var ErrNotFound = errors.New("record not found")

type UserStore struct{ db *gorm.DB }

func NewUserStore(db *gorm.DB) *UserStore { return &UserStore{db: db} }

// Ensure upserts the caller's User row keyed by the identity provider's
// subject id. Two racing requests both land on the same row.
func (s *UserStore) Ensure(ctx context.Context, authID, email, firstName, lastName string) (*models.User, error) {
	u := models.User{AuthID: authID, Email: email, FirstName: firstName, LastName: lastName}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "auth_id"}}, DoNothing: true}).
		Create(&u).Error
	if err != nil {
		return nil, err
	}
	if u.ID != 0 {
		return &u, nil
	}
	// conflict path: the row already existed
	return s.GetByAuthID(ctx, authID)
}

func (s *UserStore) GetByAuthID(ctx context.Context, authID string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("auth_id = ?", authID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
