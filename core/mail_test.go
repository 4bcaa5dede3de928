package core

import (
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailMessage_Render(t *testing.T) {
	ParseEmailTemplates(NewTestConfig(), NopLogger())

	tests := []struct {
		name     string
		data     map[string]interface{}
		wantText []string
		wantHTML bool
	}{
		{
			name:     "login_code",
			data:     map[string]interface{}{"Name": "Jane", "Code": "123456", "TTL": "10m0s"},
			wantText: []string{"Hi Jane,", "Your Homeroom login code is: 123456", "It expires in 10m0s", "The Homeroom team"},
			wantHTML: true,
		},
		{
			name: "answer_posted",
			data: map[string]interface{}{
				"Name":          "Jane",
				"AuthorName":    "Bob",
				"QuestionTitle": "Fractions?",
				"QuestionID":    "q1",
				"GroupID":       "g1",
				"Body":          "Use a number line.",
			},
			wantText: []string{"Bob answered your question \"Fractions?\"", "Use a number line.", "/groups/g1/posts/q1"},
			wantHTML: true,
		},
		{
			name:     "id_card_ready",
			data:     map[string]interface{}{"Name": "Jane", "CardType": "student", "FullName": "Bob Doe", "CardNumber": "HR-2026-ABCDEFGH"},
			wantText: []string{"The student ID card for Bob Doe (number HR-2026-ABCDEFGH) is ready."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &EmailMessage{
				To:           []mail.Address{{Name: "Jane", Address: "jane@test.io"}},
				TemplateName: tt.name,
				TemplateData: tt.data,
			}
			require.NoError(t, msg.Render())
			assert.True(t, msg.HasContent())
			for _, want := range tt.wantText {
				assert.Contains(t, msg.TextContent, want)
			}
			if tt.wantHTML {
				assert.True(t, strings.HasPrefix(msg.HTMLContent, "<!DOCTYPE html>"))
				assert.Contains(t, msg.HTMLContent, "Hi Jane,")
			} else {
				assert.Empty(t, msg.HTMLContent)
			}
		})
	}
}

func TestEmailMessage_Render_unknownTemplate(t *testing.T) {
	ParseEmailTemplates(NewTestConfig(), NopLogger())

	msg := &EmailMessage{TemplateName: "nope"}
	assert.EqualError(t, msg.Render(), `email template "nope" not found`)
}
