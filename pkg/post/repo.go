package post

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"postboard/pkg/docstore"
)

const Collection = "posts"

type Repo struct {
	store docstore.Store
}

func NewPostRepo(store docstore.Store) *Repo {
	return &Repo{
		store: store,
	}
}

func (r *Repo) Add(ctx context.Context, p *Post) (string, error) {
	p.normalize()
	id, err := r.store.Create(ctx, Collection, p)
	if err != nil {
		return "", fmt.Errorf("post/repo: failed inserting a post: %w", err)
	}
	p.ID = id
	p.Version = docstore.InitialVersion
	return id, nil
}

// Update writes the mutable fields of p if nobody changed the post since
// p was read.
func (r *Repo) Update(ctx context.Context, p *Post) error {
	p.normalize()
	fields := bson.M{
		"title":       p.Title,
		"description": p.Description,
		"categories":  p.Categories,
		"voteCount":   p.VoteCount,
		"comments":    p.Comments,
		"updatedAt":   p.UpdatedAt,
	}
	if err := r.store.Update(ctx, Collection, p.ID, p.Version, fields); err != nil {
		return fmt.Errorf("post/repo: failed updating post %s: %w", p.ID, err)
	}
	p.Version++
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, Collection, id); err != nil {
		return fmt.Errorf("post/repo: failed deleting post %s: %w", id, err)
	}
	return nil
}

func (r *Repo) GetById(ctx context.Context, id string) (*Post, error) {
	doc, err := r.store.Get(ctx, Collection, id)
	if err != nil {
		return nil, fmt.Errorf("post/repo: post %s: %w", id, err)
	}
	return decodePost(doc)
}

func (r *Repo) GetAll(ctx context.Context) ([]*Post, error) {
	docs, err := r.store.List(ctx, Collection)
	if err != nil {
		return nil, fmt.Errorf("post/repo: failed finding posts: %w", err)
	}
	return decodePosts(docs)
}

func (r *Repo) GetCategoryPosts(ctx context.Context, category string) ([]*Post, error) {
	docs, err := r.store.QueryArrayContains(ctx, Collection, "categories", category)
	if err != nil {
		return nil, fmt.Errorf("post/repo: failed finding posts of category %s: %w", category, err)
	}
	return decodePosts(docs)
}

func (r *Repo) GetUserPosts(ctx context.Context, userID string) ([]*Post, error) {
	docs, err := r.store.QueryEqual(ctx, Collection, "createdBy", userID)
	if err != nil {
		return nil, fmt.Errorf("post/repo: failed finding posts of user %s: %w", userID, err)
	}
	return decodePosts(docs)
}

func decodePost(doc docstore.Document) (*Post, error) {
	p := new(Post)
	if err := docstore.Decode(doc, p); err != nil {
		return nil, fmt.Errorf("post/repo: %w", err)
	}
	p.normalize()
	for _, c := range p.Comments {
		if c.PostID == "" {
			c.PostID = p.ID
		}
	}
	return p, nil
}

func decodePosts(docs []docstore.Document) ([]*Post, error) {
	posts := make([]*Post, 0, len(docs))
	for _, doc := range docs {
		p, err := decodePost(doc)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, nil
}
