// Package testutil opens migrated in-memory databases and creates fixtures.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/account"
	"github.com/trezcool/homeroom/core/catalog"
	"github.com/trezcool/homeroom/core/student"
	"github.com/trezcool/homeroom/storage/database"
)

// NewDB returns a fresh, migrated in-memory SQLite database.
func NewDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Open(core.NewTestConfig())
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err = database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

func CreateAccount(t *testing.T, repo account.Repository, name, email string, roles ...string) account.Account {
	t.Helper()
	if len(roles) == 0 {
		roles = []string{account.RoleParent}
	}
	now := time.Now().UTC()
	acc, err := repo.CreateAccount(context.Background(), account.Account{
		Name:      name,
		Email:     email,
		Roles:     roles,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	return acc
}

func CreateStudent(t *testing.T, repo student.Repository, accountID, firstName, lastName string, gl student.GradeLevel) student.Student {
	t.Helper()
	now := time.Now().UTC()
	st, err := repo.CreateStudent(context.Background(), student.Student{
		AccountID:  accountID,
		FirstName:  firstName,
		LastName:   lastName,
		GradeLevel: gl,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return st
}

func CreatePlatformCourse(t *testing.T, repo catalog.Repository, title string, credits float64) catalog.PlatformCourse {
	t.Helper()
	now := time.Now().UTC()
	c, err := repo.CreatePlatformCourse(context.Background(), catalog.PlatformCourse{
		Title:     title,
		Credits:   credits,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreatePlatformCourse() failed: %v", err)
	}
	return c
}
