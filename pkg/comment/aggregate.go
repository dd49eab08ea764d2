package comment

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"postboard/pkg/docstore"
)

// Functions below never modify the slice or the comments they are given;
// they return a new sequence that the caller writes back once.

var ErrNotFound = errors.New("comment: comment not found")

// Append adds a new comment by authorID at the end of list.
func Append(list []*Comment, postID string, d Draft, authorID string, now time.Time) ([]*Comment, *Comment) {
	c := &Comment{
		ID:        uuid.NewString(),
		PostID:    postID,
		Body:      d.Body,
		CreatedBy: authorID,
		VoteCount: 0,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   docstore.InitialVersion,
	}
	out := make([]*Comment, 0, len(list)+1)
	out = append(out, list...)
	out = append(out, c)
	return out, c
}

func Find(list []*Comment, id string) (*Comment, error) {
	idx := indexOf(list, id)
	if idx < 0 {
		return nil, ErrNotFound
	}
	return list[idx], nil
}

// Replace merges the patch into the comment with the given id.
func Replace(list []*Comment, id string, p Patch, now time.Time) ([]*Comment, *Comment, error) {
	idx := indexOf(list, id)
	if idx < 0 {
		return nil, nil, ErrNotFound
	}
	updated := *list[idx]
	p.Apply(&updated, now)

	out := make([]*Comment, len(list))
	copy(out, list)
	out[idx] = &updated
	return out, &updated, nil
}

func Remove(list []*Comment, id string) ([]*Comment, error) {
	idx := indexOf(list, id)
	if idx < 0 {
		return nil, ErrNotFound
	}
	out := make([]*Comment, 0, len(list)-1)
	out = append(out, list[:idx]...)
	out = append(out, list[idx+1:]...)
	return out, nil
}

// Refresh stores a copy of c in place of the entry with the same id when
// that entry is older than c. A missing entry stays missing: the comment
// was dropped from the post or has not been appended yet.
func Refresh(list []*Comment, c *Comment) ([]*Comment, bool) {
	idx := indexOf(list, c.ID)
	if idx < 0 || list[idx].Version >= c.Version {
		return list, false
	}
	out := make([]*Comment, len(list))
	copy(out, list)
	out[idx] = embeddedCopy(c)
	return out, true
}

// Merge rebuilds an embedded sequence from the standalone comments of a
// post. Known comments keep their embedded position, unknown ones follow
// in creation order and comments missing from standalone are dropped.
func Merge(embedded, standalone []*Comment) []*Comment {
	byID := make(map[string]*Comment, len(standalone))
	for _, c := range standalone {
		byID[c.ID] = c
	}

	out := make([]*Comment, 0, len(standalone))
	seen := make(map[string]bool, len(standalone))
	for _, c := range embedded {
		if s, ok := byID[c.ID]; ok && !seen[c.ID] {
			out = append(out, embeddedCopy(s))
			seen[c.ID] = true
		}
	}

	rest := []*Comment{}
	for _, c := range standalone {
		if !seen[c.ID] {
			rest = append(rest, c)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		return rest[i].CreatedAt.Before(rest[j].CreatedAt)
	})
	for _, c := range rest {
		out = append(out, embeddedCopy(c))
	}
	return out
}

func indexOf(list []*Comment, id string) int {
	for i, c := range list {
		if c != nil && c.ID == id {
			return i
		}
	}
	return -1
}

// embeddedCopy keeps the standalone version so later copies can be
// ordered against it.
func embeddedCopy(c *Comment) *Comment {
	cp := *c
	return &cp
}
