package model

import "time"

// Review rating and content bounds enforced at the handler layer.
const (
	ReviewRatingMin    = 1
	ReviewRatingMax    = 6
	ReviewContentLimit = 5000
)

// Review is one user's feedback on the program, mirroring the
// `reviews` table.  The user_id column carries a unique index: a user
// has at most one review and writing again replaces it (upsert).
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – author (unique; one review per user).
//  Rating    – integer rating, 1..6.
//  Content   – review text, at most 5000 characters.
//  CreatedAt – timestamp of the first write.
//  UpdatedAt – timestamp of the last write.
type Review struct {
	ID        uint64    // reviews.id
	UserID    uint64    // reviews.user_id
	Rating    uint8     // reviews.rating
	Content   string    // reviews.content
	CreatedAt time.Time // reviews.created_at
	UpdatedAt time.Time // reviews.updated_at
}
