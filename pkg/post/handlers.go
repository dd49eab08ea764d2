package post

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"postboard/pkg/comment"
	. "postboard/pkg/common"
	"postboard/pkg/logger"
	"postboard/pkg/outcome"
	"postboard/pkg/sessions"
	"postboard/pkg/voting"
)

//go:generate mockgen -source=handlers.go -destination=handlers_mock.go -package=post

type IPostService interface {
	Create(ctx context.Context, d Draft, creatorID string) (*Post, error)
	Get(ctx context.Context, id string) (*Post, error)
	List(ctx context.Context) ([]*Post, error)
	ListByCreator(ctx context.Context, creatorID string) ([]*Post, error)
	ListByCategory(ctx context.Context, category string) ([]*Post, error)
	Update(ctx context.Context, id string, pt Patch, requesterID string) (*Post, error)
	Delete(ctx context.Context, id string, requesterID string) error
	Vote(ctx context.Context, id string, dir voting.Direction) (voting.Tally, error)

	Comments(ctx context.Context, postID string) ([]*comment.Comment, error)
	AddComment(ctx context.Context, postID string, d comment.Draft, authorID string) (*comment.Comment, error)
	ReconcileComments(ctx context.Context, postID string, requesterID string) ([]*comment.Comment, error)
}

type PostHandler struct {
	Service IPostService
}

func NewPostHandler(s IPostService) *PostHandler {
	return &PostHandler{
		Service: s,
	}
}

// List serves every post, or the posts of one category with ?category=.
func (ph *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		posts []*Post
		err   error
	)
	if category := r.URL.Query().Get("category"); category != "" {
		posts, err = ph.Service.ListByCategory(r.Context(), category)
	} else {
		posts, err = ph.Service.List(r.Context())
	}
	if err != nil {
		fail(w, r, err)
		return
	}
	WriteOutcome(r.Context(), w, outcome.OK("Posts retrieved successfully", posts))
}

func (ph *PostHandler) GetByUser(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	posts, err := ph.Service.ListByCreator(r.Context(), userID)
	if err != nil {
		fail(w, r, err)
		return
	}
	WriteOutcome(r.Context(), w, outcome.OK("Posts retrieved successfully!", posts))
}

func (ph *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["post_id"]

	p, err := ph.Service.Get(r.Context(), postID)
	if err != nil {
		fail(w, r, err)
		return
	}
	WriteOutcome(r.Context(), w, outcome.OK("Post retrieved successfully", p))
}

func (ph *PostHandler) Add(w http.ResponseWriter, r *http.Request) {
	author, err := sessions.RequesterID(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}

	d := Draft{}
	if err := ParseReqBody(r.Body, &d); err != nil {
		logger.Log(r.Context()).Infof("post/handlers: can't parse post from request body: %v", err)
		fail(w, r, outcome.BadRequest("Bad request."))
		return
	}
	if err := d.Validate(); err != nil {
		fail(w, r, err)
		return
	}

	p, err := ph.Service.Create(r.Context(), d, author)
	if err != nil {
		fail(w, r, err)
		return
	}
	WriteOutcome(r.Context(), w, outcome.Created("Post created successfully!", p))
}

func (ph *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["post_id"]

	requesterID, err := sessions.RequesterID(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}

	pt := Patch{}
	if err := ParseReqBody(r.Body, &pt); err != nil {
		logger.Log(r.Context()).Infof("post/handlers: can't parse post patch: %v", err)
		fail(w, r, outcome.BadRequest("Bad request."))
		return
	}

	p, err := ph.Service.Update(r.Context(), postID, pt, requesterID)
	if err != nil {
		fail(w, r, err)
		return
	}
	WriteOutcome(r.Context(), w, outcome.OK("Post updated successfully", p))
}

func (ph *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["post_id"]

	requesterID, err := sessions.RequesterID(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}

	if err := ph.Service.Delete(r.Context(), postID, requesterID); err != nil {
		fail(w, r, err)
		return
	}
	WriteOutcome(r.Context(), w, outcome.OK("Post deleted successfully", nil))
}

// Vote handles both vote routes, the direction comes from the "vote" path
// segment.
func (ph *PostHandler) Vote(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	postID := vars["post_id"]

	if _, err := sessions.RequesterID(r.Context()); err != nil {
		fail(w, r, err)
		return
	}

	dir, err := voting.ParseDirection(vars["vote"])
	if err != nil {
		logger.Log(r.Context()).Infof("post/handlers: %v", err)
		fail(w, r, outcome.BadRequest("Bad request."))
		return
	}

	tally, err := ph.Service.Vote(r.Context(), postID, dir)
	if err != nil {
		fail(w, r, err)
		return
	}
	logger.Log(r.Context()).Debugf("post/handlers: %s vote on post %s, now %d", dir.String(), postID, tally.VoteCount)
	WriteOutcome(r.Context(), w, outcome.OK("Vote added successfully!", tally))
}

func (ph *PostHandler) Comments(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["post_id"]

	comments, err := ph.Service.Comments(r.Context(), postID)
	if err != nil {
		fail(w, r, err)
		return
	}
	WriteOutcome(r.Context(), w, outcome.OK("Comments retrieved successfully", comments))
}

func (ph *PostHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["post_id"]

	commenter, err := sessions.RequesterID(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}

	d := comment.Draft{}
	if err := ParseReqBody(r.Body, &d); err != nil || strings.TrimSpace(d.Body) == "" {
		logger.Log(r.Context()).Infof("post/handlers: can't get comment body: %v", err)
		fail(w, r, outcome.BadRequest("Bad request."))
		return
	}

	c, err := ph.Service.AddComment(r.Context(), postID, d, commenter)
	if err != nil {
		fail(w, r, err)
		return
	}
	WriteOutcome(r.Context(), w, outcome.Created("Comment added successfully!", c))
}

func (ph *PostHandler) ReconcileComments(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["post_id"]

	requesterID, err := sessions.RequesterID(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}

	comments, err := ph.Service.ReconcileComments(r.Context(), postID, requesterID)
	if err != nil {
		fail(w, r, err)
		return
	}
	WriteOutcome(r.Context(), w, outcome.OK("Comments reconciled successfully", comments))
}

func fail(w http.ResponseWriter, r *http.Request, err error) {
	WriteOutcome(r.Context(), w, outcome.FromError(r.Context(), err))
}
