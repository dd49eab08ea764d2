package comment

import (
	"time"
)

type Comment struct {
	ID        string    `json:"id" bson:"_id"`
	PostID    string    `json:"postId" bson:"postId"`
	Body      string    `json:"body" bson:"body"`
	CreatedBy string    `json:"createdBy" bson:"createdBy"`
	VoteCount int       `json:"voteCount" bson:"voteCount"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`

	// Only the standalone document carries a version.
	Version int64 `json:"-" bson:"version,omitempty"`
}

func (c *Comment) OwnerID() string {
	return c.CreatedBy
}

// Draft is the validated payload of a new comment.
type Draft struct {
	Body string `json:"body"`
}

// Patch holds the fields a comment update may change.
type Patch struct {
	Body *string `json:"body"`
}

func (p Patch) Apply(c *Comment, now time.Time) {
	if p.Body != nil {
		c.Body = *p.Body
	}
	c.UpdatedAt = now
}
