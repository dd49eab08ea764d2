package comment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gomock "github.com/golang/mock/gomock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postboard/pkg/outcome"
	"postboard/pkg/sessions"
	"postboard/pkg/user"
	"postboard/pkg/voting"
)

type response struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func commentReq(method, id, body string, u *user.User) *http.Request {
	return voteReq(method, id, "", body, u)
}

func voteReq(method, id, vote, body string, u *user.User) *http.Request {
	vars := map[string]string{"comment_id": id}
	target := "/api/comments/" + id
	if vote != "" {
		vars["vote"] = vote
		target += "/" + vote
	}
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = mux.SetURLVars(req, vars)
	if u != nil {
		req = req.WithContext(context.WithValue(req.Context(), sessions.SessionKey, u))
	}
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response {
	t.Helper()
	var resp response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, w.Code, resp.Status)
	return resp
}

func TestCommentHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockICommentService(ctrl)
	h := NewCommentHandler(svc)
	pike := &user.User{Id: "u1", Username: "pike"}

	t.Run("get", func(t *testing.T) {
		svc.EXPECT().Get(gomock.Any(), "c1").Return(&Comment{ID: "c1", Body: "hi"}, nil)

		w := httptest.NewRecorder()
		h.Get(w, commentReq(http.MethodGet, "c1", "", nil))

		resp := decode(t, w)
		assert.Equal(t, http.StatusOK, resp.Status)
		assert.Equal(t, "Comment retrieved successfully", resp.Message)

		got := Comment{}
		require.NoError(t, json.Unmarshal(resp.Data, &got))
		assert.Equal(t, "hi", got.Body)
	})

	t.Run("get missing", func(t *testing.T) {
		svc.EXPECT().Get(gomock.Any(), "nope").Return(nil, outcome.NotFound("Comment not found"))

		w := httptest.NewRecorder()
		h.Get(w, commentReq(http.MethodGet, "nope", "", nil))

		resp := decode(t, w)
		assert.Equal(t, http.StatusNotFound, resp.Status)
		assert.Equal(t, "Comment not found", resp.Message)
	})

	t.Run("update", func(t *testing.T) {
		svc.EXPECT().
			Update(gomock.Any(), "c1", gomock.Any(), "u1").
			DoAndReturn(func(_ context.Context, _ string, p Patch, _ string) (*Comment, error) {
				require.NotNil(t, p.Body)
				return &Comment{ID: "c1", Body: *p.Body}, nil
			})

		w := httptest.NewRecorder()
		h.Update(w, commentReq(http.MethodPut, "c1", `{"body": "edited"}`, pike))

		resp := decode(t, w)
		assert.Equal(t, "Comment updated successfully", resp.Message)
	})

	t.Run("update anonymous", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Update(w, commentReq(http.MethodPut, "c1", `{"body": "edited"}`, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("update bad body", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Update(w, commentReq(http.MethodPut, "c1", `{"body": `, pike))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("delete forbidden", func(t *testing.T) {
		svc.EXPECT().Delete(gomock.Any(), "c1", "u1").Return(outcome.Forbidden("Not authorized to delete this comment"))

		w := httptest.NewRecorder()
		h.Delete(w, commentReq(http.MethodDelete, "c1", "", pike))

		resp := decode(t, w)
		assert.Equal(t, http.StatusForbidden, resp.Status)
	})

	t.Run("delete", func(t *testing.T) {
		svc.EXPECT().Delete(gomock.Any(), "c1", "u1").Return(nil)

		w := httptest.NewRecorder()
		h.Delete(w, commentReq(http.MethodDelete, "c1", "", pike))

		resp := decode(t, w)
		assert.Equal(t, "Comment deleted successfully", resp.Message)
	})

	t.Run("downvote", func(t *testing.T) {
		svc.EXPECT().Vote(gomock.Any(), "c1", voting.Down).Return(voting.Tally{ID: "c1", VoteCount: -1}, nil)

		w := httptest.NewRecorder()
		h.Vote(w, voteReq(http.MethodPost, "c1", "downvote", "", pike))

		resp := decode(t, w)
		assert.Equal(t, "Downvote added successfully", resp.Message)
		assert.JSONEq(t, `{"id": "c1", "voteCount": -1}`, string(resp.Data))
	})

	t.Run("missing direction", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Vote(w, commentReq(http.MethodPost, "c1", "", pike))
		assert.Equal(t, http.StatusBadRequest, decode(t, w).Status)
	})

	t.Run("upvote store failure hides the cause", func(t *testing.T) {
		svc.EXPECT().Vote(gomock.Any(), "c1", voting.Up).Return(voting.Tally{}, outcome.Internal(fmt.Errorf("mongo: socket closed")))

		w := httptest.NewRecorder()
		h.Vote(w, voteReq(http.MethodPost, "c1", "upvote", "", pike))

		resp := decode(t, w)
		assert.Equal(t, http.StatusInternalServerError, resp.Status)
		assert.NotContains(t, w.Body.String(), "socket")
		assert.Contains(t, string(resp.Data), "correlationId")
	})
}
