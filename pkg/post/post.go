package post

import (
	"strings"
	"time"

	"postboard/pkg/comment"
	"postboard/pkg/outcome"
)

type Post struct {
	ID          string   `json:"id" bson:"_id"`
	Title       string   `json:"title" bson:"title"`
	Description string   `json:"description" bson:"description"`
	Categories  []string `json:"categories" bson:"categories"`
	CreatedBy   string   `json:"createdBy" bson:"createdBy"`
	VoteCount   int      `json:"voteCount" bson:"voteCount"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`

	// Embedded copies in insertion order.
	Comments []*comment.Comment `json:"comments" bson:"comments"`

	Version int64 `json:"-" bson:"version,omitempty"`
}

func (p *Post) OwnerID() string {
	return p.CreatedBy
}

// normalize makes empty sequences render as [] rather than null.
func (p *Post) normalize() {
	if p.Categories == nil {
		p.Categories = []string{}
	}
	if p.Comments == nil {
		p.Comments = []*comment.Comment{}
	}
}

type Draft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
}

func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" || strings.TrimSpace(d.Description) == "" || len(d.Categories) == 0 {
		return outcome.BadRequest("Bad request.")
	}
	return nil
}

// Patch holds the fields an update may change. Identity, ownership and
// counters are not representable here.
type Patch struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Categories  *[]string `json:"categories"`
}

func (pt Patch) Apply(p *Post, now time.Time) {
	if pt.Title != nil {
		p.Title = *pt.Title
	}
	if pt.Description != nil {
		p.Description = *pt.Description
	}
	if pt.Categories != nil {
		p.Categories = append([]string{}, (*pt.Categories)...)
	}
	p.UpdatedAt = now
}
