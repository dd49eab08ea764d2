package post

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gomock "github.com/golang/mock/gomock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postboard/pkg/comment"
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

func postReq(method, target, body string, vars map[string]string, u *user.User) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
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
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	return resp
}

func TestPostHandler_Add(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockIPostService(ctrl)
	h := NewPostHandler(svc)
	pike := &user.User{Id: "u1", Username: "pike"}

	t.Run("created", func(t *testing.T) {
		body := `{"title": "hello", "description": "world", "categories": ["news"]}`
		svc.EXPECT().
			Create(gomock.Any(), Draft{Title: "hello", Description: "world", Categories: []string{"news"}}, "u1").
			Return(&Post{ID: "p1", Title: "hello", CreatedBy: "u1", Comments: []*comment.Comment{}}, nil)

		w := httptest.NewRecorder()
		h.Add(w, postReq(http.MethodPost, "/api/posts", body, nil, pike))

		resp := decode(t, w)
		assert.Equal(t, http.StatusCreated, resp.Status)
		assert.Equal(t, "Post created successfully!", resp.Message)

		got := Post{}
		require.NoError(t, json.Unmarshal(resp.Data, &got))
		assert.Equal(t, "p1", got.ID)
		assert.NotContains(t, string(resp.Data), "version")
	})

	t.Run("missing fields", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Add(w, postReq(http.MethodPost, "/api/posts", `{"title": "hello"}`, nil, pike))
		assert.Equal(t, http.StatusBadRequest, decode(t, w).Status)
	})

	t.Run("anonymous", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Add(w, postReq(http.MethodPost, "/api/posts", `{}`, nil, nil))
		assert.Equal(t, http.StatusUnauthorized, decode(t, w).Status)
	})
}

func TestPostHandler_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockIPostService(ctrl)
	h := NewPostHandler(svc)

	t.Run("all", func(t *testing.T) {
		svc.EXPECT().List(gomock.Any()).Return([]*Post{}, nil)

		w := httptest.NewRecorder()
		h.List(w, postReq(http.MethodGet, "/api/posts", "", nil, nil))

		resp := decode(t, w)
		assert.Equal(t, "Posts retrieved successfully", resp.Message)
		assert.JSONEq(t, `[]`, string(resp.Data))
	})

	t.Run("by category", func(t *testing.T) {
		svc.EXPECT().ListByCategory(gomock.Any(), "music").Return([]*Post{{ID: "p1"}}, nil)

		w := httptest.NewRecorder()
		h.List(w, postReq(http.MethodGet, "/api/posts?category=music", "", nil, nil))
		assert.Equal(t, http.StatusOK, decode(t, w).Status)
	})

	t.Run("by user", func(t *testing.T) {
		svc.EXPECT().ListByCreator(gomock.Any(), "u1").Return([]*Post{}, nil)

		w := httptest.NewRecorder()
		h.GetByUser(w, postReq(http.MethodGet, "/api/users/u1/posts", "", map[string]string{"user_id": "u1"}, nil))
		assert.Equal(t, "Posts retrieved successfully!", decode(t, w).Message)
	})
}

func TestPostHandler_GetUpdateDelete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockIPostService(ctrl)
	h := NewPostHandler(svc)
	rob := &user.User{Id: "u2", Username: "rob"}
	vars := map[string]string{"post_id": "p1"}

	t.Run("get missing", func(t *testing.T) {
		svc.EXPECT().Get(gomock.Any(), "p1").Return(nil, outcome.NotFound("Post not found"))

		w := httptest.NewRecorder()
		h.Get(w, postReq(http.MethodGet, "/api/posts/p1", "", vars, nil))

		resp := decode(t, w)
		assert.Equal(t, http.StatusNotFound, resp.Status)
		assert.Equal(t, "Post not found", resp.Message)
	})

	t.Run("update by someone else", func(t *testing.T) {
		svc.EXPECT().
			Update(gomock.Any(), "p1", gomock.Any(), "u2").
			Return(nil, outcome.Forbidden("Not authorized to update this post"))

		w := httptest.NewRecorder()
		h.Update(w, postReq(http.MethodPut, "/api/posts/p1", `{"title": "mine now"}`, vars, rob))

		resp := decode(t, w)
		assert.Equal(t, http.StatusForbidden, resp.Status)
		assert.Equal(t, "Not authorized to update this post", resp.Message)
	})

	t.Run("concurrent update", func(t *testing.T) {
		svc.EXPECT().
			Update(gomock.Any(), "p1", gomock.Any(), "u2").
			Return(nil, outcome.Conflict("Concurrent update, please retry", nil))

		w := httptest.NewRecorder()
		h.Update(w, postReq(http.MethodPut, "/api/posts/p1", `{"title": "again"}`, vars, rob))
		assert.Equal(t, http.StatusConflict, decode(t, w).Status)
	})

	t.Run("delete", func(t *testing.T) {
		svc.EXPECT().Delete(gomock.Any(), "p1", "u2").Return(nil)

		w := httptest.NewRecorder()
		h.Delete(w, postReq(http.MethodDelete, "/api/posts/p1", "", vars, rob))
		assert.Equal(t, "Post deleted successfully", decode(t, w).Message)
	})
}

func TestPostHandler_VotesAndComments(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockIPostService(ctrl)
	h := NewPostHandler(svc)
	rob := &user.User{Id: "u2", Username: "rob"}
	vars := map[string]string{"post_id": "p1"}
	voteVars := func(vote string) map[string]string {
		return map[string]string{"post_id": "p1", "vote": vote}
	}

	t.Run("upvote", func(t *testing.T) {
		svc.EXPECT().Vote(gomock.Any(), "p1", voting.Up).Return(voting.Tally{ID: "p1", VoteCount: 1}, nil)

		w := httptest.NewRecorder()
		h.Vote(w, postReq(http.MethodPost, "/api/posts/p1/upvote", "", voteVars("upvote"), rob))

		resp := decode(t, w)
		assert.Equal(t, "Vote added successfully!", resp.Message)
		assert.JSONEq(t, `{"id": "p1", "voteCount": 1}`, string(resp.Data))
	})

	t.Run("downvote", func(t *testing.T) {
		svc.EXPECT().Vote(gomock.Any(), "p1", voting.Down).Return(voting.Tally{ID: "p1", VoteCount: 0}, nil)

		w := httptest.NewRecorder()
		h.Vote(w, postReq(http.MethodPost, "/api/posts/p1/downvote", "", voteVars("downvote"), rob))
		assert.Equal(t, http.StatusOK, decode(t, w).Status)
	})

	t.Run("downvote anonymous", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Vote(w, postReq(http.MethodPost, "/api/posts/p1/downvote", "", voteVars("downvote"), nil))
		assert.Equal(t, http.StatusUnauthorized, decode(t, w).Status)
	})

	t.Run("unknown direction", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Vote(w, postReq(http.MethodPost, "/api/posts/p1/sidevote", "", voteVars("sidevote"), rob))
		assert.Equal(t, http.StatusBadRequest, decode(t, w).Status)
	})

	t.Run("list comments", func(t *testing.T) {
		svc.EXPECT().Comments(gomock.Any(), "p1").Return([]*comment.Comment{{ID: "c1", Body: "hi"}}, nil)

		w := httptest.NewRecorder()
		h.Comments(w, postReq(http.MethodGet, "/api/posts/p1/comments", "", vars, nil))

		resp := decode(t, w)
		assert.Equal(t, "Comments retrieved successfully", resp.Message)
		got := []*comment.Comment{}
		require.NoError(t, json.Unmarshal(resp.Data, &got))
		assert.Equal(t, "hi", got[0].Body)
	})

	t.Run("add comment", func(t *testing.T) {
		svc.EXPECT().
			AddComment(gomock.Any(), "p1", comment.Draft{Body: "nice"}, "u2").
			Return(&comment.Comment{ID: "c2", PostID: "p1", Body: "nice", CreatedBy: "u2"}, nil)

		w := httptest.NewRecorder()
		h.AddComment(w, postReq(http.MethodPost, "/api/posts/p1/comments", `{"body": "nice"}`, vars, rob))

		resp := decode(t, w)
		assert.Equal(t, http.StatusCreated, resp.Status)
		assert.Equal(t, "Comment added successfully!", resp.Message)
	})

	t.Run("add empty comment", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.AddComment(w, postReq(http.MethodPost, "/api/posts/p1/comments", `{"body": "  "}`, vars, rob))
		assert.Equal(t, http.StatusBadRequest, decode(t, w).Status)
	})

	t.Run("reconcile", func(t *testing.T) {
		svc.EXPECT().ReconcileComments(gomock.Any(), "p1", "u2").Return([]*comment.Comment{}, nil)

		w := httptest.NewRecorder()
		h.ReconcileComments(w, postReq(http.MethodPost, "/api/posts/p1/comments/reconcile", "", vars, rob))
		assert.Equal(t, http.StatusOK, decode(t, w).Status)
	})
}
