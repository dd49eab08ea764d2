package comment

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	. "postboard/pkg/common"
	"postboard/pkg/logger"
	"postboard/pkg/outcome"
	"postboard/pkg/sessions"
	"postboard/pkg/voting"
)

//go:generate mockgen -source=handlers.go -destination=handlers_mock.go -package=comment

type ICommentService interface {
	Get(ctx context.Context, id string) (*Comment, error)
	Update(ctx context.Context, id string, p Patch, requesterID string) (*Comment, error)
	Delete(ctx context.Context, id string, requesterID string) error
	Vote(ctx context.Context, id string, dir voting.Direction) (voting.Tally, error)
}

type CommentHandler struct {
	Service ICommentService
}

func NewCommentHandler(s ICommentService) *CommentHandler {
	return &CommentHandler{
		Service: s,
	}
}

func (ch *CommentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["comment_id"]

	c, err := ch.Service.Get(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	WriteOutcome(r.Context(), w, outcome.OK("Comment retrieved successfully", c))
}

func (ch *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["comment_id"]

	requesterID, err := sessions.RequesterID(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}

	p := Patch{}
	if err := ParseReqBody(r.Body, &p); err != nil {
		logger.Log(r.Context()).Infof("comment/handlers: can't parse comment patch: %v", err)
		fail(w, r, outcome.BadRequest("Bad request"))
		return
	}

	c, err := ch.Service.Update(r.Context(), id, p, requesterID)
	if err != nil {
		fail(w, r, err)
		return
	}
	WriteOutcome(r.Context(), w, outcome.OK("Comment updated successfully", c))
}

func (ch *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["comment_id"]

	requesterID, err := sessions.RequesterID(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}

	if err := ch.Service.Delete(r.Context(), id, requesterID); err != nil {
		fail(w, r, err)
		return
	}
	WriteOutcome(r.Context(), w, outcome.OK("Comment deleted successfully", nil))
}

var voteMessages = map[voting.Direction]string{
	voting.Up:   "Upvote added successfully",
	voting.Down: "Downvote added successfully",
}

func (ch *CommentHandler) Vote(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["comment_id"]

	if _, err := sessions.RequesterID(r.Context()); err != nil {
		fail(w, r, err)
		return
	}

	dir, err := voting.ParseDirection(vars["vote"])
	if err != nil {
		logger.Log(r.Context()).Infof("comment/handlers: %v", err)
		fail(w, r, outcome.BadRequest("Bad request."))
		return
	}

	tally, err := ch.Service.Vote(r.Context(), id, dir)
	if err != nil {
		fail(w, r, err)
		return
	}
	logger.Log(r.Context()).Debugf("comment/handlers: %s vote on comment %s, now %d", dir.String(), id, tally.VoteCount)
	WriteOutcome(r.Context(), w, outcome.OK(voteMessages[dir], tally))
}

func fail(w http.ResponseWriter, r *http.Request, err error) {
	WriteOutcome(r.Context(), w, outcome.FromError(r.Context(), err))
}
