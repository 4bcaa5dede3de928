package echoapi_test

import (
	"bytes"
	"image/png"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/homeroom/core/idcard"
)

func TestIDCardAPI(t *testing.T) {
	app := newTestApp(t)
	jane, janeToken := app.createAccount(t, "Jane", "jane@example.com")
	_, johnToken := app.createAccount(t, "John", "john@example.com")
	bob := app.createStudent(t, jane.ID, "Bob")

	tests := []httpTest{
		{
			name:     "student card needs a student",
			method:   http.MethodPost,
			path:     "/v1/id-cards",
			body:     map[string]string{"card_type": "student"},
			token:    janeToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown card type",
			method:   http.MethodPost,
			path:     "/v1/id-cards",
			body:     map[string]string{"card_type": "pilot"},
			token:    janeToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "foreign student",
			method:   http.MethodPost,
			path:     "/v1/id-cards",
			body:     map[string]string{"card_type": "student", "student_id": bob.ID},
			token:    johnToken,
			wantCode: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.run(t, app)
		})
	}

	var card idcard.IDCard
	rec := app.do(http.MethodPost, "/v1/id-cards", janeToken, map[string]interface{}{
		"card_type":   "student",
		"student_id":  bob.ID,
		"school_name": "Home Academy",
		"send_email":  true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decode(t, rec, &card)
	assert.Equal(t, "Bob Doe", card.FullName)
	assert.NotEmpty(t, card.CardNumber)
	assert.NotEmpty(t, card.ImageURL)
	path := "/v1/id-cards/" + card.ID

	t.Run("email carries the image", func(t *testing.T) {
		sent := app.mailSvc.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "jane@example.com", sent[0].To[0].Address)
		assert.True(t, sent[0].HasAttachments())
	})

	t.Run("image", func(t *testing.T) {
		rec := app.do(http.MethodGet, path+"/image", janeToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		_, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
		assert.NoError(t, err)

		rec = app.do(http.MethodGet, path+"/image", johnToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("query", func(t *testing.T) {
		var cards []idcard.IDCard
		decode(t, app.do(http.MethodGet, "/v1/id-cards?card_type=student", janeToken), &cards)
		require.Len(t, cards, 1)
		assert.Equal(t, card.CardNumber, cards[0].CardNumber)

		decode(t, app.do(http.MethodGet, "/v1/id-cards", johnToken), &cards)
		assert.Empty(t, cards)
	})

	t.Run("delete", func(t *testing.T) {
		rec := app.do(http.MethodDelete, path, johnToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = app.do(http.MethodDelete, path, janeToken)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		rec = app.do(http.MethodGet, path, janeToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
