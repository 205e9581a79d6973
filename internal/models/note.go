package models

import "time"

type Note struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UUID string `gorm:"uniqueIndex;size:64;not null" json:"id"`

	// Notes belong to exactly one opportunity and go away with it.
	OpportunityID uint   `gorm:"index;not null;constraint:OnDelete:CASCADE" json:"-"`
	AuthorID      uint   `gorm:"index;not null" json:"-"`
	Content       string `gorm:"type:text;not null" json:"content"`

	Author *User `gorm:"foreignKey:AuthorID" json:"-"`
}

// NoteView is a Note enriched with the denormalized author name for listings.
type NoteView struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	AuthorName string    `json:"author_name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (n *Note) View() NoteView {
	return NoteView{
		ID:         n.UUID,
		Content:    n.Content,
		AuthorName: n.Author.DisplayName(),
		CreatedAt:  n.CreatedAt,
		UpdatedAt:  n.UpdatedAt,
	}
}
