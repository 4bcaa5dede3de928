package echoapi_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/homeroom/core/transcript"
	"github.com/trezcool/homeroom/tests/testutil"
)

func TestTranscriptAPI(t *testing.T) {
	app := newTestApp(t)
	jane, janeToken := app.createAccount(t, "Jane", "jane@example.com")
	_, johnToken := app.createAccount(t, "John", "john@example.com")
	bob := app.createStudent(t, jane.ID, "Bob")

	var tr transcript.Transcript
	decode(t, app.do(http.MethodGet, "/v1/students/"+bob.ID+"/transcript", janeToken), &tr)
	require.NotEmpty(t, tr.ID)
	assert.Equal(t, "Bob Doe", tr.StudentName)
	base := "/v1/transcripts/" + tr.ID

	var algebra transcript.Course
	t.Run("add courses", func(t *testing.T) {
		rec := app.do(http.MethodPost, base+"/courses", janeToken, map[string]string{
			"title": "Algebra", "term1": "A", "credits": "1", "grade_level": "freshman",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &algebra)
		assert.Equal(t, transcript.Manual, algebra.Provenance)
		assert.Equal(t, transcript.Regular, algebra.Level)

		rec = app.do(http.MethodPost, base+"/courses", janeToken, map[string]string{
			"title": "History", "term1": "B", "credits": "1", "grade_level": "freshman",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	tests := []httpTest{
		{name: "retrieve foreign", method: http.MethodGet, path: base, token: johnToken, wantCode: http.StatusNotFound},
		{
			name:     "add course with unknown bucket",
			method:   http.MethodPost,
			path:     base + "/courses",
			body:     map[string]string{"title": "Art", "grade_level": "graduate"},
			token:    janeToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "update demographics",
			method:   http.MethodPut,
			path:     base,
			body:     map[string]string{"school_name": "Home Academy", "parent_email": "JANE@EXAMPLE.COM"},
			token:    janeToken,
			wantCode: http.StatusOK,
		},
		{
			name:     "update with invalid email",
			method:   http.MethodPut,
			path:     base,
			body:     map[string]string{"parent_email": "not-an-email"},
			token:    janeToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "update unknown course",
			method:   http.MethodPut,
			path:     base + "/courses/nope",
			body:     map[string]string{"term2": "A"},
			token:    janeToken,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "update course",
			method:   http.MethodPut,
			path:     base + "/courses/" + algebra.ID,
			body:     map[string]string{"term2": "A", "level": "honors"},
			token:    janeToken,
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.run(t, app)
		})
	}

	t.Run("recalculate", func(t *testing.T) {
		rec := app.do(http.MethodPost, base+"/recalculate", janeToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decode(t, rec, &tr)
		// Algebra A/A honors (1 credit) and History B (1 credit)
		assert.True(t, tr.TotalCredits.Equal(decimal.NewFromInt(2)), tr.TotalCredits.String())
		assert.Equal(t, "3.50", tr.GPA)
		assert.Equal(t, "3.75", tr.WeightedGPA)
		assert.Equal(t, "Home Academy", tr.SchoolName)
		assert.Equal(t, "jane@example.com", tr.ParentEmail)
	})

	t.Run("draft is saved after the delay", func(t *testing.T) {
		rec := app.do(http.MethodPatch, base+"/draft", janeToken, map[string]interface{}{
			"phone":   "555-0100",
			"courses": []map[string]string{{"id": algebra.ID, "term3": "B"}},
		})
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

		assert.Eventually(t, func() bool {
			var got transcript.Transcript
			if err := json.Unmarshal(app.do(http.MethodGet, base, janeToken).Body.Bytes(), &got); err != nil {
				return false
			}
			c, ok := got.CourseByID(algebra.ID)
			return got.Phone == "555-0100" && ok && c.Term3 == "B"
		}, 2*time.Second, 20*time.Millisecond)
	})

	t.Run("delete course", func(t *testing.T) {
		rec := app.do(http.MethodDelete, base+"/courses/"+algebra.ID, janeToken)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		var got transcript.Transcript
		decode(t, app.do(http.MethodGet, base, janeToken), &got)
		_, ok := got.CourseByID(algebra.ID)
		assert.False(t, ok)
	})
}

func TestTranscriptAPI_importedCourses(t *testing.T) {
	app := newTestApp(t)
	jane, janeToken := app.createAccount(t, "Jane", "jane@example.com")
	bob := app.createStudent(t, jane.ID, "Bob")
	course := testutil.CreatePlatformCourse(t, app.catalogRepo, "Physics", 1)

	rec := app.do(http.MethodPost, "/v1/platform-courses/"+course.ID+"/enrollments/"+bob.ID, janeToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var tr transcript.Transcript
	decode(t, app.do(http.MethodPost, "/v1/students/"+bob.ID+"/transcript/sync", janeToken), &tr)
	require.Len(t, tr.Courses, 1)
	path := "/v1/transcripts/" + tr.ID + "/courses/" + tr.Courses[0].ID

	tests := []httpTest{
		{
			name:     "title is owned by the source",
			method:   http.MethodPut,
			path:     path,
			body:     map[string]string{"title": "Quantum Physics"},
			token:    janeToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "grades are editable",
			method:   http.MethodPut,
			path:     path,
			body:     map[string]string{"term1": "A-"},
			token:    janeToken,
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.run(t, app)
		})
	}

	// a resync keeps the grades of imported courses
	decode(t, app.do(http.MethodPost, "/v1/students/"+bob.ID+"/transcript/sync", janeToken), &tr)
	require.Len(t, tr.Courses, 1)
	assert.Equal(t, "A-", tr.Courses[0].Term1)
}
