package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/homeroom/core/account"
	"github.com/trezcool/homeroom/core/workpermit"
)

func TestWorkPermitAPI(t *testing.T) {
	app := newTestApp(t)
	jane, janeToken := app.createAccount(t, "Jane", "jane@example.com")
	_, johnToken := app.createAccount(t, "John", "john@example.com")
	_, adminToken := app.createAccount(t, "Admin", "admin@example.com", account.RoleAdmin)
	bob := app.createStudent(t, jane.ID, "Bob")

	newPermit := map[string]interface{}{
		"student_id":     bob.ID,
		"employer_name":  "Corner Bakery",
		"job_title":      "Cashier",
		"hours_per_week": 12,
	}
	t.Run("foreign student", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/work-permits", johnToken, newPermit)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	var wp workpermit.WorkPermit
	rec := app.do(http.MethodPost, "/v1/work-permits", janeToken, newPermit)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decode(t, rec, &wp)
	assert.Equal(t, workpermit.Draft, wp.Status)
	assert.Equal(t, jane.ID, wp.AccountID)
	path := "/v1/work-permits/" + wp.ID

	tests := []httpTest{
		{
			name:     "too many hours",
			method:   http.MethodPost,
			path:     "/v1/work-permits",
			body:     map[string]interface{}{"student_id": bob.ID, "employer_name": "X", "job_title": "Y", "hours_per_week": 80},
			token:    janeToken,
			wantCode: http.StatusBadRequest,
		},
		{name: "retrieve foreign", method: http.MethodGet, path: path, token: johnToken, wantCode: http.StatusNotFound},
		{
			name:     "edit draft",
			method:   http.MethodPut,
			path:     path,
			body:     map[string]interface{}{"hours_per_week": 15},
			token:    janeToken,
			wantCode: http.StatusOK,
		},
		{
			name:     "unknown status",
			method:   http.MethodPost,
			path:     path + "/status",
			body:     map[string]string{"status": "archived"},
			token:    janeToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "skip a step",
			method:   http.MethodPost,
			path:     path + "/status",
			body:     map[string]string{"status": "approved"},
			token:    adminToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "submit",
			method:   http.MethodPost,
			path:     path + "/status",
			body:     map[string]string{"status": "submitted"},
			token:    janeToken,
			wantCode: http.StatusOK,
		},
		{
			name:     "submitted permits are locked",
			method:   http.MethodPut,
			path:     path,
			body:     map[string]interface{}{"hours_per_week": 20},
			token:    janeToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "parent cannot approve",
			method:   http.MethodPost,
			path:     path + "/status",
			body:     map[string]string{"status": "approved"},
			token:    janeToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "admin approves",
			method:   http.MethodPost,
			path:     path + "/status",
			body:     map[string]string{"status": "approved", "notes": "Looks good"},
			token:    adminToken,
			wantCode: http.StatusOK,
		},
		{name: "approved permits cannot be deleted by parents", method: http.MethodDelete, path: path, token: janeToken, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.run(t, app)
		})
	}

	decode(t, app.do(http.MethodGet, path, janeToken), &wp)
	assert.Equal(t, workpermit.Approved, wp.Status)
	assert.Equal(t, 15, wp.HoursPerWeek)
	assert.Equal(t, "Looks good", wp.Notes)

	var permits []workpermit.WorkPermit
	decode(t, app.do(http.MethodGet, "/v1/work-permits?status=approved", janeToken), &permits)
	assert.Len(t, permits, 1)
	decode(t, app.do(http.MethodGet, "/v1/work-permits", johnToken), &permits)
	assert.Empty(t, permits)

	rec = app.do(http.MethodDelete, path, adminToken)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
