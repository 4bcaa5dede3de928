package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/homeroom/core/community"
)

func TestCommunityAPI(t *testing.T) {
	app := newTestApp(t)
	jane, janeToken := app.createAccount(t, "Jane", "jane@example.com")
	_, johnToken := app.createAccount(t, "John", "john@example.com")
	_, annToken := app.createAccount(t, "Ann", "ann@example.com")

	var public, private community.Group
	decode(t, app.do(http.MethodPost, "/v1/groups", janeToken, map[string]string{"name": "Math Parents"}), &public)
	require.NotEmpty(t, public.ID)
	assert.Equal(t, community.Public, public.Visibility)
	assert.Equal(t, jane.ID, public.OwnerID)
	decode(t, app.do(http.MethodPost, "/v1/groups", janeToken,
		map[string]string{"name": "Co-op Board", "visibility": "private"}), &private)
	require.NotEmpty(t, private.ID)

	tests := []httpTest{
		{
			name:     "create with bad visibility",
			method:   http.MethodPost,
			path:     "/v1/groups",
			body:     map[string]string{"name": "Oops", "visibility": "secret"},
			token:    johnToken,
			wantCode: http.StatusBadRequest,
		},
		{name: "private group is hidden", method: http.MethodGet, path: "/v1/groups/" + private.ID, token: johnToken, wantCode: http.StatusNotFound},
		{name: "private group is visible to owner", method: http.MethodGet, path: "/v1/groups/" + private.ID, token: janeToken, wantCode: http.StatusOK},
		{name: "cannot join private group", method: http.MethodPost, path: "/v1/groups/" + private.ID + "/members", token: johnToken, wantCode: http.StatusNotFound},
		{name: "owner cannot leave", method: http.MethodDelete, path: "/v1/groups/" + public.ID + "/members", token: janeToken, wantCode: http.StatusBadRequest},
		{
			name:     "outsider cannot post",
			method:   http.MethodPost,
			path:     "/v1/groups/" + public.ID + "/posts",
			body:     map[string]string{"kind": "question", "title": "Hi", "body": "Hello"},
			token:    johnToken,
			wantCode: http.StatusForbidden,
		},
		{name: "join", method: http.MethodPost, path: "/v1/groups/" + public.ID + "/members", token: johnToken, wantCode: http.StatusOK},
		{name: "join again", method: http.MethodPost, path: "/v1/groups/" + public.ID + "/members", token: johnToken, wantCode: http.StatusOK},
		{name: "ann joins", method: http.MethodPost, path: "/v1/groups/" + public.ID + "/members", token: annToken, wantCode: http.StatusOK},
		{
			name:     "member cannot announce",
			method:   http.MethodPost,
			path:     "/v1/groups/" + public.ID + "/posts",
			body:     map[string]string{"kind": "announcement", "title": "News", "body": "Big news"},
			token:    johnToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "answers are not created as posts",
			method:   http.MethodPost,
			path:     "/v1/groups/" + public.ID + "/posts",
			body:     map[string]string{"kind": "answer", "title": "No", "body": "No"},
			token:    johnToken,
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.run(t, app)
		})
	}

	t.Run("question and answer", func(t *testing.T) {
		var q, a community.Post
		rec := app.do(http.MethodPost, "/v1/groups/"+public.ID+"/posts", johnToken,
			map[string]string{"kind": "question", "title": "Curriculum?", "body": "Which one do you use?"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &q)

		app.mailSvc.Reset()
		rec = app.do(http.MethodPost, "/v1/posts/"+q.ID+"/answers", annToken, map[string]string{"body": "We like Saxon."})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &a)
		assert.Equal(t, q.ID, a.ParentID)

		// the question author is told about the answer
		sent := app.mailSvc.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "john@example.com", sent[0].To[0].Address)

		rec = app.do(http.MethodPost, "/v1/posts/"+a.ID+"/answers", annToken, map[string]string{"body": "Nested?"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = app.do(http.MethodPost, "/v1/posts/"+q.ID+"/accept/"+a.ID, annToken)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = app.do(http.MethodPost, "/v1/posts/"+q.ID+"/accept/nope", johnToken)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = app.do(http.MethodPost, "/v1/posts/"+q.ID+"/accept/"+a.ID, johnToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decode(t, rec, &q)
		assert.Equal(t, a.ID, q.AcceptedAnswerID)

		var posts []community.Post
		decode(t, app.do(http.MethodGet, "/v1/groups/"+public.ID+"/posts", janeToken), &posts)
		assert.Len(t, posts, 2)
	})

	t.Run("query groups", func(t *testing.T) {
		var groups []community.Group
		decode(t, app.do(http.MethodGet, "/v1/groups", johnToken), &groups)
		require.Len(t, groups, 1)
		assert.Equal(t, public.ID, groups[0].ID)

		decode(t, app.do(http.MethodGet, "/v1/groups", janeToken), &groups)
		assert.Len(t, groups, 2)

		decode(t, app.do(http.MethodGet, "/v1/groups?search=board", janeToken), &groups)
		require.Len(t, groups, 1)
		assert.Equal(t, private.ID, groups[0].ID)
	})

	t.Run("leave", func(t *testing.T) {
		rec := app.do(http.MethodDelete, "/v1/groups/"+public.ID+"/members", johnToken)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		rec = app.do(http.MethodDelete, "/v1/groups/"+public.ID+"/members", johnToken)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
