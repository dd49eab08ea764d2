package post

import (
	"context"
	"errors"
	"time"

	"postboard/pkg/acl"
	"postboard/pkg/comment"
	"postboard/pkg/docstore"
	"postboard/pkg/logger"
	"postboard/pkg/outcome"
	"postboard/pkg/voting"
)

const notFoundMsg = "Post not found"

// errUnchanged lets a change function skip the write.
var errUnchanged = errors.New("post: nothing to write")

type (
	IPostRepo interface {
		Add(context.Context, *Post) (string, error)
		GetById(context.Context, string) (*Post, error)
		GetAll(context.Context) ([]*Post, error)
		GetUserPosts(context.Context, string) ([]*Post, error)
		GetCategoryPosts(context.Context, string) ([]*Post, error)
		Update(context.Context, *Post) error
		Delete(context.Context, string) error
	}

	// ICommentRepo is the standalone comment collection.
	ICommentRepo interface {
		Add(context.Context, *comment.Comment) error
		Delete(context.Context, string) error
		GetPostComments(context.Context, string) ([]*comment.Comment, error)
	}

	Service struct {
		posts    IPostRepo
		comments ICommentRepo
		retries  int
		timeout  time.Duration
		now      func() time.Time
	}
)

func NewService(posts IPostRepo, comments ICommentRepo, retries int, timeout time.Duration) *Service {
	return &Service{
		posts:    posts,
		comments: comments,
		retries:  retries,
		timeout:  timeout,
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (s *Service) Create(ctx context.Context, d Draft, creatorID string) (*Post, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.now()
	p := &Post{
		Title:       d.Title,
		Description: d.Description,
		Categories:  append([]string{}, d.Categories...),
		CreatedBy:   creatorID,
		VoteCount:   0,
		CreatedAt:   now,
		UpdatedAt:   now,
		Comments:    []*comment.Comment{},
	}
	if _, err := s.posts.Add(ctx, p); err != nil {
		return nil, outcome.Internal(err)
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Post, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	p, err := s.posts.GetById(ctx, id)
	if err != nil {
		return nil, docstore.ToOutcome(err, notFoundMsg)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context) ([]*Post, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	posts, err := s.posts.GetAll(ctx)
	if err != nil {
		return nil, outcome.Internal(err)
	}
	return posts, nil
}

func (s *Service) ListByCreator(ctx context.Context, creatorID string) ([]*Post, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	posts, err := s.posts.GetUserPosts(ctx, creatorID)
	if err != nil {
		return nil, outcome.Internal(err)
	}
	return posts, nil
}

func (s *Service) ListByCategory(ctx context.Context, category string) ([]*Post, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	posts, err := s.posts.GetCategoryPosts(ctx, category)
	if err != nil {
		return nil, outcome.Internal(err)
	}
	return posts, nil
}

// Update checks existence first, then ownership, then merges the patch.
func (s *Service) Update(ctx context.Context, id string, pt Patch, requesterID string) (*Post, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.mutate(ctx, id, func(p *Post) error {
		if !acl.CanMutate(p, requesterID) {
			return outcome.Forbidden("Not authorized to update this post")
		}
		pt.Apply(p, s.now())
		return nil
	})
}

// Delete removes the post and the standalone copies of its comments.
func (s *Service) Delete(ctx context.Context, id string, requesterID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	p, err := s.posts.GetById(ctx, id)
	if err != nil {
		return docstore.ToOutcome(err, notFoundMsg)
	}
	if !acl.CanMutate(p, requesterID) {
		return outcome.Forbidden("Not authorized to delete this post")
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		return docstore.ToOutcome(err, notFoundMsg)
	}

	standalone, err := s.comments.GetPostComments(ctx, id)
	if err != nil {
		logger.Log(ctx).Warnf("post/service: post %s deleted, its comments are orphaned: %v", id, err)
		return nil
	}
	for _, c := range standalone {
		if err := s.comments.Delete(ctx, c.ID); err != nil && !errors.Is(err, docstore.ErrNotFound) {
			logger.Log(ctx).Warnf("post/service: can't delete comment %s of deleted post %s: %v", c.ID, id, err)
		}
	}
	return nil
}

// Vote moves the post counter by one, never below zero. Any caller may vote.
func (s *Service) Vote(ctx context.Context, id string, dir voting.Direction) (voting.Tally, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	p, err := s.mutate(ctx, id, func(p *Post) error {
		p.VoteCount = voting.Apply(p.VoteCount, dir, voting.PostPolicy)
		p.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return voting.Tally{}, err
	}
	return voting.Tally{ID: p.ID, VoteCount: p.VoteCount}, nil
}

// mutate is a versioned read-modify-write of one post document, retried
// while other writers get there first. The whole cycle reruns on conflict
// so change always sees the latest stored post.
func (s *Service) mutate(ctx context.Context, id string, change func(*Post) error) (*Post, error) {
	var updated *Post
	err := docstore.Retry(ctx, s.retries, func(ctx context.Context) error {
		p, err := s.posts.GetById(ctx, id)
		if err != nil {
			return err
		}

		switch err := change(p); {
		case errors.Is(err, errUnchanged):
			updated = p
			return nil
		case err != nil:
			return err
		}

		if err := s.posts.Update(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, docstore.ToOutcome(err, notFoundMsg)
	}
	return updated, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
