package post

import (
	"context"
	"errors"

	"postboard/pkg/acl"
	"postboard/pkg/comment"
	"postboard/pkg/docstore"
	"postboard/pkg/logger"
	"postboard/pkg/outcome"
)

var _ comment.Mirror = (*Service)(nil)

func (s *Service) Comments(ctx context.Context, postID string) ([]*comment.Comment, error) {
	p, err := s.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	return p.Comments, nil
}

// AddComment appends the comment to the post first and then stores the
// standalone copy. If the second write fails the append is undone. A post
// deleted in between takes the new standalone copy with it.
func (s *Service) AddComment(ctx context.Context, postID string, d comment.Draft, authorID string) (*comment.Comment, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var added *comment.Comment
	_, err := s.mutate(ctx, postID, func(p *Post) error {
		p.Comments, added = comment.Append(p.Comments, postID, d, authorID, s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.comments.Add(ctx, added); err != nil {
		if _, undoErr := s.mutate(ctx, postID, dropFrom(added.ID)); undoErr != nil {
			logger.Log(ctx).Errorf("post/service: comment %s left in post %s without its standalone copy: %v", added.ID, postID, undoErr)
		}
		return nil, outcome.Internal(err)
	}

	if _, err := s.posts.GetById(ctx, postID); errors.Is(err, docstore.ErrNotFound) {
		if err := s.comments.Delete(ctx, added.ID); err != nil && !errors.Is(err, docstore.ErrNotFound) {
			logger.Log(ctx).Warnf("post/service: comment %s outlived deleted post %s: %v", added.ID, postID, err)
		}
		return nil, outcome.NotFound(notFoundMsg)
	}
	return added, nil
}

// ReconcileComments rebuilds the embedded sequence from the standalone
// collection, which wins on every difference.
func (s *Service) ReconcileComments(ctx context.Context, postID string, requesterID string) ([]*comment.Comment, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.Get(ctx, postID); err != nil {
		return nil, err
	}
	standalone, err := s.comments.GetPostComments(ctx, postID)
	if err != nil {
		return nil, outcome.Internal(err)
	}

	p, err := s.mutate(ctx, postID, func(p *Post) error {
		if !acl.CanMutate(p, requesterID) {
			return outcome.Forbidden("Not authorized to update this post")
		}
		p.Comments = comment.Merge(p.Comments, standalone)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p.Comments, nil
}

// MirrorComment overwrites the post's copy of c with c unless the post
// already holds the same or a later version, or no longer holds c at all.
func (s *Service) MirrorComment(ctx context.Context, c *comment.Comment) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.mutate(ctx, c.PostID, func(p *Post) error {
		list, ok := comment.Refresh(p.Comments, c)
		if !ok {
			return errUnchanged
		}
		p.Comments = list
		return nil
	})
	return err
}

func (s *Service) DropComment(ctx context.Context, postID, commentID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.mutate(ctx, postID, dropFrom(commentID))
	return err
}

func dropFrom(commentID string) func(*Post) error {
	return func(p *Post) error {
		list, err := comment.Remove(p.Comments, commentID)
		if errors.Is(err, comment.ErrNotFound) {
			return errUnchanged
		}
		if err != nil {
			return err
		}
		p.Comments = list
		return nil
	}
}
