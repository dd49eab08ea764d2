package post

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postboard/pkg/comment"
	"postboard/pkg/docstore"
	"postboard/pkg/outcome"
	"postboard/pkg/voting"
)

var (
	t0 = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
)

// flakyComments fails standalone inserts while addErr is set and runs
// beforeAdd ahead of every insert.
type flakyComments struct {
	*comment.Repo
	addErr    error
	beforeAdd func()
}

func (f *flakyComments) Add(ctx context.Context, c *comment.Comment) error {
	if f.beforeAdd != nil {
		f.beforeAdd()
	}
	if f.addErr != nil {
		return f.addErr
	}
	return f.Repo.Add(ctx, c)
}

// heldMirror queues comment copies instead of writing them to the post, so
// a test can deliver them late or out of order.
type heldMirror struct {
	*Service
	held []*comment.Comment
}

func (m *heldMirror) MirrorComment(_ context.Context, c *comment.Comment) error {
	cp := *c
	m.held = append(m.held, &cp)
	return nil
}

func (m *heldMirror) deliver(ctx context.Context, i int) error {
	return m.Service.MirrorComment(ctx, m.held[i])
}

type fixture struct {
	store    *docstore.MemoryStore
	posts    *Service
	comments *comment.Service
	repo     *flakyComments
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := docstore.NewMemoryStore()
	repo := &flakyComments{Repo: comment.NewCommentRepo(store)}

	posts := NewService(NewPostRepo(store), repo, 10, time.Second)
	posts.now = func() time.Time { return t0 }

	comments := comment.NewService(repo.Repo, posts, 10, time.Second)
	return &fixture{store: store, posts: posts, comments: comments, repo: repo}
}

func (f *fixture) create(t *testing.T, by string, categories ...string) *Post {
	t.Helper()
	p, err := f.posts.Create(context.Background(), Draft{
		Title:       "Go 1.18 is out",
		Description: "generics!",
		Categories:  categories,
	}, by)
	require.NoError(t, err)
	return p
}

func TestService_CreateGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.create(t, "pike", "programming", "news")
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, 0, p.VoteCount)
	assert.Empty(t, p.Comments)
	assert.Equal(t, t0, p.CreatedAt)
	assert.Equal(t, t0, p.UpdatedAt)

	got, err := f.posts.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go 1.18 is out", got.Title)
	assert.Equal(t, "generics!", got.Description)
	assert.Equal(t, []string{"programming", "news"}, got.Categories)
	assert.Equal(t, "pike", got.CreatedBy)
	assert.Equal(t, []*comment.Comment{}, got.Comments)

	_, err = f.posts.Get(ctx, "nope")
	assert.Equal(t, outcome.KindNotFound, outcome.KindOf(err))
}

func TestService_Lists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.create(t, "pike", "programming")
	b := f.create(t, "rob", "music", "programming")
	f.create(t, "rob", "funny")

	all, err := f.posts.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byRob, err := f.posts.ListByCreator(ctx, "rob")
	require.NoError(t, err)
	assert.Len(t, byRob, 2)

	prog, err := f.posts.ListByCategory(ctx, "programming")
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID}, []string{prog[0].ID, prog[1].ID})

	none, err := f.posts.ListByCategory(ctx, "fashion")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	nobody, err := f.posts.ListByCreator(ctx, "ken")
	require.NoError(t, err)
	assert.Empty(t, nobody)
}

func TestService_Vote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "pike", "news")

	t.Run("floor at zero", func(t *testing.T) {
		tally, err := f.posts.Vote(ctx, p.ID, voting.Down)
		require.NoError(t, err)
		assert.Equal(t, voting.Tally{ID: p.ID, VoteCount: 0}, tally)
	})

	t.Run("up from three", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			_, err := f.posts.Vote(ctx, p.ID, voting.Up)
			require.NoError(t, err)
		}
		tally, err := f.posts.Vote(ctx, p.ID, voting.Up)
		require.NoError(t, err)
		assert.Equal(t, 4, tally.VoteCount)

		stored, err := f.posts.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, stored.VoteCount)
	})

	t.Run("missing post", func(t *testing.T) {
		_, err := f.posts.Vote(ctx, "nope", voting.Up)
		assert.Equal(t, outcome.KindNotFound, outcome.KindOf(err))
	})
}

func TestService_ConcurrentVotes(t *testing.T) {
	for _, voters := range []int{2, 8} {
		t.Run(fmt.Sprintf("%d voters", voters), func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			p := f.create(t, "pike", "news")

			var wg sync.WaitGroup
			for i := 0; i < voters; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := f.posts.Vote(ctx, p.ID, voting.Up)
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			stored, err := f.posts.Get(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, voters, stored.VoteCount)
		})
	}
}

func TestService_Update(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "pike", "news")
	f.posts.now = func() time.Time { return t1 }

	title := "Go 1.18 is really out"

	t.Run("non-creator is forbidden", func(t *testing.T) {
		_, err := f.posts.Update(ctx, p.ID, Patch{Title: &title}, "rob")
		assert.Equal(t, outcome.KindForbidden, outcome.KindOf(err))

		stored, err := f.posts.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Go 1.18 is out", stored.Title)
		assert.Equal(t, t0, stored.UpdatedAt)
	})

	t.Run("anonymous is forbidden", func(t *testing.T) {
		_, err := f.posts.Update(ctx, p.ID, Patch{Title: &title}, "")
		assert.Equal(t, outcome.KindForbidden, outcome.KindOf(err))
	})

	t.Run("missing post is checked before ownership", func(t *testing.T) {
		_, err := f.posts.Update(ctx, "nope", Patch{Title: &title}, "rob")
		assert.Equal(t, outcome.KindNotFound, outcome.KindOf(err))
	})

	t.Run("creator", func(t *testing.T) {
		categories := []string{"programming"}
		got, err := f.posts.Update(ctx, p.ID, Patch{Title: &title, Categories: &categories}, "pike")
		require.NoError(t, err)
		assert.Equal(t, title, got.Title)
		assert.Equal(t, "generics!", got.Description)
		assert.Equal(t, []string{"programming"}, got.Categories)
		assert.Equal(t, "pike", got.CreatedBy)
		assert.Equal(t, t0, got.CreatedAt)
		assert.Equal(t, t1, got.UpdatedAt)

		stored, err := f.posts.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, title, stored.Title)
	})
}

func TestService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "pike", "news")

	c, err := f.posts.AddComment(ctx, p.ID, comment.Draft{Body: "nice"}, "rob")
	require.NoError(t, err)

	err = f.posts.Delete(ctx, p.ID, "rob")
	assert.Equal(t, outcome.KindForbidden, outcome.KindOf(err))

	require.NoError(t, f.posts.Delete(ctx, p.ID, "pike"))

	_, err = f.posts.Get(ctx, p.ID)
	assert.Equal(t, outcome.KindNotFound, outcome.KindOf(err))
	_, err = f.posts.Comments(ctx, p.ID)
	assert.Equal(t, outcome.KindNotFound, outcome.KindOf(err))
	_, err = f.comments.Get(ctx, c.ID)
	assert.Equal(t, outcome.KindNotFound, outcome.KindOf(err))

	err = f.posts.Delete(ctx, p.ID, "pike")
	assert.Equal(t, outcome.KindNotFound, outcome.KindOf(err))
}

func TestService_AddComment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "pike", "news")

	t.Run("first comment", func(t *testing.T) {
		c, err := f.posts.AddComment(ctx, p.ID, comment.Draft{Body: "first!"}, "rob")
		require.NoError(t, err)
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, 0, c.VoteCount)
		assert.Equal(t, "rob", c.CreatedBy)
		assert.Equal(t, p.ID, c.PostID)

		list, err := f.posts.Comments(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, c.ID, list[0].ID)

		standalone, err := f.comments.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "first!", standalone.Body)
	})

	t.Run("missing post", func(t *testing.T) {
		_, err := f.posts.AddComment(ctx, "nope", comment.Draft{Body: "x"}, "rob")
		assert.Equal(t, outcome.KindNotFound, outcome.KindOf(err))
	})

	t.Run("failed standalone insert is undone", func(t *testing.T) {
		f.repo.addErr = fmt.Errorf("mongo: write concern error")
		defer func() { f.repo.addErr = nil }()

		_, err := f.posts.AddComment(ctx, p.ID, comment.Draft{Body: "lost"}, "rob")
		assert.Equal(t, outcome.KindInternal, outcome.KindOf(err))

		list, err := f.posts.Comments(ctx, p.ID)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("post deleted during insert", func(t *testing.T) {
		doomed := f.create(t, "pike", "news")
		f.repo.beforeAdd = func() {
			require.NoError(t, f.posts.Delete(ctx, doomed.ID, "pike"))
		}
		defer func() { f.repo.beforeAdd = nil }()

		_, err := f.posts.AddComment(ctx, doomed.ID, comment.Draft{Body: "too late"}, "rob")
		assert.Equal(t, outcome.KindNotFound, outcome.KindOf(err))

		orphans, err := f.repo.GetPostComments(ctx, doomed.ID)
		require.NoError(t, err)
		assert.Empty(t, orphans)
	})
}

func TestService_CommentMirror(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "pike", "news")

	var added []*comment.Comment
	for _, body := range []string{"a", "b", "c"} {
		c, err := f.posts.AddComment(ctx, p.ID, comment.Draft{Body: body}, "rob")
		require.NoError(t, err)
		added = append(added, c)
	}

	t.Run("comment vote reaches the post", func(t *testing.T) {
		tally, err := f.comments.Vote(ctx, added[1].ID, voting.Down)
		require.NoError(t, err)
		assert.Equal(t, -1, tally.VoteCount)

		list, err := f.posts.Comments(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, -1, list[1].VoteCount)
	})

	t.Run("comment update by a stranger is forbidden", func(t *testing.T) {
		body := "hijacked"
		_, err := f.comments.Update(ctx, added[0].ID, comment.Patch{Body: &body}, "pike")
		assert.Equal(t, outcome.KindForbidden, outcome.KindOf(err))
	})

	t.Run("comment delete keeps the order", func(t *testing.T) {
		require.NoError(t, f.comments.Delete(ctx, added[1].ID, "rob"))

		list, err := f.posts.Comments(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, added[0].ID, list[0].ID)
		assert.Equal(t, added[2].ID, list[1].ID)

		_, err = comment.Find(list, added[1].ID)
		assert.ErrorIs(t, err, comment.ErrNotFound)
	})

	t.Run("dropping an absent comment is a no-op", func(t *testing.T) {
		require.NoError(t, f.posts.DropComment(ctx, p.ID, added[1].ID))
	})
}

func TestService_DelayedCommentMirror(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fixture, *heldMirror, *comment.Service, *Post, *comment.Comment) {
		f := newFixture(t)
		p := f.create(t, "pike", "news")
		c, err := f.posts.AddComment(ctx, p.ID, comment.Draft{Body: "hi"}, "rob")
		require.NoError(t, err)
		held := &heldMirror{Service: f.posts}
		return f, held, comment.NewService(f.repo.Repo, held, 10, time.Second), p, c
	}

	embeddedVotes := func(t *testing.T, f *fixture, postID string) []int {
		list, err := f.posts.Comments(ctx, postID)
		require.NoError(t, err)
		votes := []int{}
		for _, c := range list {
			votes = append(votes, c.VoteCount)
		}
		return votes
	}

	t.Run("earlier vote delivered last", func(t *testing.T) {
		f, held, comments, p, c := setup(t)
		for i := 0; i < 2; i++ {
			_, err := comments.Vote(ctx, c.ID, voting.Up)
			require.NoError(t, err)
		}
		require.Len(t, held.held, 2)

		require.NoError(t, held.deliver(ctx, 1))
		require.NoError(t, held.deliver(ctx, 0))

		standalone, err := comments.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, standalone.VoteCount)
		assert.Equal(t, []int{2}, embeddedVotes(t, f, p.ID))
	})

	t.Run("votes delivered in order", func(t *testing.T) {
		f, held, comments, p, c := setup(t)
		for i := 0; i < 2; i++ {
			_, err := comments.Vote(ctx, c.ID, voting.Down)
			require.NoError(t, err)
		}
		require.NoError(t, held.deliver(ctx, 0))
		require.NoError(t, held.deliver(ctx, 1))
		assert.Equal(t, []int{-2}, embeddedVotes(t, f, p.ID))
	})

	t.Run("update delivered after delete", func(t *testing.T) {
		f, held, comments, p, c := setup(t)
		body := "edited"
		_, err := comments.Update(ctx, c.ID, comment.Patch{Body: &body}, "rob")
		require.NoError(t, err)
		require.NoError(t, comments.Delete(ctx, c.ID, "rob"))

		require.NoError(t, held.deliver(ctx, 0))

		list, err := f.posts.Comments(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("stale copy after a fresh one", func(t *testing.T) {
		f, _, _, p, c := setup(t)
		fresh := *c
		fresh.VoteCount, fresh.Version = 2, 3
		stale := *c
		stale.VoteCount, stale.Version = 1, 2

		require.NoError(t, f.posts.MirrorComment(ctx, &fresh))
		require.NoError(t, f.posts.MirrorComment(ctx, &stale))
		assert.Equal(t, []int{2}, embeddedVotes(t, f, p.ID))
	})
}

func TestService_ReconcileComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "pike", "news")

	c, err := f.posts.AddComment(ctx, p.ID, comment.Draft{Body: "before"}, "rob")
	require.NoError(t, err)

	// A comment service without a mirror leaves the post copy stale.
	detached := comment.NewService(f.repo.Repo, nil, 10, time.Second)
	body := "after"
	_, err = detached.Update(ctx, c.ID, comment.Patch{Body: &body}, "rob")
	require.NoError(t, err)

	list, err := f.posts.Comments(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "before", list[0].Body)

	_, err = f.posts.ReconcileComments(ctx, p.ID, "rob")
	assert.Equal(t, outcome.KindForbidden, outcome.KindOf(err))

	reconciled, err := f.posts.ReconcileComments(ctx, p.ID, "pike")
	require.NoError(t, err)
	require.Len(t, reconciled, 1)
	assert.Equal(t, "after", reconciled[0].Body)

	list, err = f.posts.Comments(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", list[0].Body)
}
