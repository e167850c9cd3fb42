package domain

import "time"

// Post references its author by user id. The identity lifecycle only needs the
// foreign relationship; post content itself is plain forum glue.
type Post struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UserID   uint      `gorm:"index;not null" json:"user_id"`
	User     User      `json:"-"`
	Message  string    `gorm:"type:text;not null" json:"message"`
	PostedAt time.Time `json:"posted_at"`
	EditedAt time.Time `json:"edited_at"`
}

// PostWithAuthor is the listing row shape: a post joined with its author's
// display name.
type PostWithAuthor struct {
	ID         uint      `json:"id"`
	Message    string    `json:"message"`
	PostedAt   time.Time `json:"posted_at"`
	EditedAt   time.Time `json:"edited_at"`
	AuthorName string    `json:"author_name"`
}
