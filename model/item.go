package model

import "github.com/google/uuid"

// ItemID identifies a ReviewItem for later mutation. Never reused.
type ItemID = uuid.UUID

func NewItemID() ItemID { return uuid.New() }

// ReviewItem is the display-ready projection of a Review.
type ReviewItem struct {
	ID        ItemID
	FullName  string
	Rating    int
	Text      string
	Created   string
	AvatarURL string
	PhotoURLs []string

	// MaxLines limits the visible text lines. Zero means the text is shown in full.
	MaxLines int
}

func (i ReviewItem) Expanded() bool { return i.MaxLines == 0 }

func (i ReviewItem) clone() ReviewItem {
	if i.PhotoURLs != nil {
		i.PhotoURLs = append([]string(nil), i.PhotoURLs...)
	}
	return i
}
