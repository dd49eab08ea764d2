package comment

import (
	"context"
	"time"

	"postboard/pkg/acl"
	"postboard/pkg/docstore"
	"postboard/pkg/logger"
	"postboard/pkg/outcome"
	"postboard/pkg/voting"
)

//go:generate mockgen -source=service.go -destination=service_mock.go -package=comment

const notFoundMsg = "Comment not found"

type (
	ICommentRepo interface {
		GetById(context.Context, string) (*Comment, error)
		Update(context.Context, *Comment) error
		Delete(context.Context, string) error
	}

	// Mirror keeps the copy of a comment embedded in its post in step with
	// the standalone document.
	Mirror interface {
		MirrorComment(ctx context.Context, c *Comment) error
		DropComment(ctx context.Context, postID, commentID string) error
	}

	// Service serves the operations addressed by comment id. The standalone
	// document is the source of truth, the post copy follows it.
	Service struct {
		repo    ICommentRepo
		mirror  Mirror
		retries int
		timeout time.Duration
		now     func() time.Time
	}
)

func NewService(repo ICommentRepo, mirror Mirror, retries int, timeout time.Duration) *Service {
	return &Service{
		repo:    repo,
		mirror:  mirror,
		retries: retries,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (s *Service) Get(ctx context.Context, id string) (*Comment, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	c, err := s.repo.GetById(ctx, id)
	if err != nil {
		return nil, docstore.ToOutcome(err, notFoundMsg)
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, id string, p Patch, requesterID string) (*Comment, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	updated, err := s.mutate(ctx, id, func(c *Comment) error {
		if !acl.CanMutate(c, requesterID) {
			return outcome.Forbidden("Not authorized to update this comment")
		}
		p.Apply(c, s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.mirrorComment(ctx, updated)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string, requesterID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	c, err := s.repo.GetById(ctx, id)
	if err != nil {
		return docstore.ToOutcome(err, notFoundMsg)
	}
	if !acl.CanMutate(c, requesterID) {
		return outcome.Forbidden("Not authorized to delete this comment")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return docstore.ToOutcome(err, notFoundMsg)
	}

	if s.mirror != nil {
		if err := s.mirror.DropComment(ctx, c.PostID, c.ID); err != nil {
			logger.Log(ctx).Warnf("comment/service: comment %s deleted but post %s still embeds it: %v", c.ID, c.PostID, err)
		}
	}
	return nil
}

// Vote moves the comment counter by one. Comments have no floor.
func (s *Service) Vote(ctx context.Context, id string, dir voting.Direction) (voting.Tally, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	updated, err := s.mutate(ctx, id, func(c *Comment) error {
		c.VoteCount = voting.Apply(c.VoteCount, dir, voting.CommentPolicy)
		c.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return voting.Tally{}, err
	}
	s.mirrorComment(ctx, updated)
	return voting.Tally{ID: updated.ID, VoteCount: updated.VoteCount}, nil
}

// mutate is a versioned read-modify-write of one comment document,
// retried while other writers get there first.
func (s *Service) mutate(ctx context.Context, id string, change func(*Comment) error) (*Comment, error) {
	var updated *Comment
	err := docstore.Retry(ctx, s.retries, func(ctx context.Context) error {
		c, err := s.repo.GetById(ctx, id)
		if err != nil {
			return err
		}
		if err := change(c); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, docstore.ToOutcome(err, notFoundMsg)
	}
	return updated, nil
}

func (s *Service) mirrorComment(ctx context.Context, c *Comment) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.MirrorComment(ctx, c); err != nil {
		logger.Log(ctx).Warnf("comment/service: post %s copy of comment %s is stale: %v", c.PostID, c.ID, err)
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
