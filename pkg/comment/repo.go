package comment

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"postboard/pkg/docstore"
)

const Collection = "comments"

// Repo keeps the standalone copy of every comment, one document each.
type Repo struct {
	store docstore.Store
}

func NewCommentRepo(store docstore.Store) *Repo {
	return &Repo{
		store: store,
	}
}

func (r *Repo) Add(ctx context.Context, c *Comment) error {
	_, err := r.store.Create(ctx, Collection, c)
	if err != nil {
		return fmt.Errorf("comment/repo: failed inserting a comment: %w", err)
	}
	c.Version = docstore.InitialVersion
	return nil
}

func (r *Repo) GetById(ctx context.Context, id string) (*Comment, error) {
	doc, err := r.store.Get(ctx, Collection, id)
	if err != nil {
		return nil, fmt.Errorf("comment/repo: comment %s: %w", id, err)
	}
	c := new(Comment)
	if err := docstore.Decode(doc, c); err != nil {
		return nil, fmt.Errorf("comment/repo: %w", err)
	}
	return c, nil
}

// Update writes the mutable fields of c if nobody changed the comment
// since c was read.
func (r *Repo) Update(ctx context.Context, c *Comment) error {
	fields := bson.M{
		"body":      c.Body,
		"voteCount": c.VoteCount,
		"updatedAt": c.UpdatedAt,
	}
	if err := r.store.Update(ctx, Collection, c.ID, c.Version, fields); err != nil {
		return fmt.Errorf("comment/repo: failed updating comment %s: %w", c.ID, err)
	}
	c.Version++
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, Collection, id); err != nil {
		return fmt.Errorf("comment/repo: failed deleting comment %s: %w", id, err)
	}
	return nil
}

func (r *Repo) GetPostComments(ctx context.Context, postID string) ([]*Comment, error) {
	docs, err := r.store.QueryEqual(ctx, Collection, "postId", postID)
	if err != nil {
		return nil, fmt.Errorf("comment/repo: failed finding comments of post %s: %w", postID, err)
	}
	comments := make([]*Comment, 0, len(docs))
	for _, doc := range docs {
		c := new(Comment)
		if err := docstore.Decode(doc, c); err != nil {
			return nil, fmt.Errorf("comment/repo: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, nil
}
