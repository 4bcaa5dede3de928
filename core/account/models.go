package account

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/homeroom/core"
)

// Roles
const (
	RoleParent = "parent"
	RoleAdmin  = "admin"
)

var (
	AllRoles = []string{RoleParent, RoleAdmin}

	Roles = []Role{
		{Name: "Parent", Value: RoleParent},
		{Name: "Admin", Value: RoleAdmin},
	}

	codeLength = 6
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Account struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	Name               string    `json:"name"`
	Phone              string    `json:"phone"`
	Address            string    `json:"address"`
	Roles              []string  `json:"roles"`
	IsActive           bool      `json:"is_active"`
	LoginCodeHash      []byte    `json:"-"`
	LoginCodeExpiresAt time.Time `json:"-"`          // UTC
	CreatedAt          time.Time `json:"created_at"` // UTC
	UpdatedAt          time.Time `json:"updated_at"` // UTC
	LastLogin          time.Time `json:"last_login"` // UTC
}

func (a *Account) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (a *Account) IsAdmin() bool { return a.HasRole(RoleAdmin) }

// Actor returns the account as the author of an operation.
func (a *Account) Actor() core.Actor {
	return core.Actor{AccountID: a.ID, Email: a.Email, Name: a.Name, IsAdmin: a.IsAdmin()}
}

// SetLoginCode hashes code and stores it with its expiry.
func (a *Account) SetLoginCode(code string, expiresAt time.Time) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.LoginCodeHash = hash
	a.LoginCodeExpiresAt = expiresAt.UTC()
	return nil
}

// CheckLoginCode validates code against the stored hash. Expired or missing codes never match.
func (a *Account) CheckLoginCode(code string, now time.Time) error {
	if len(a.LoginCodeHash) == 0 || now.After(a.LoginCodeExpiresAt) {
		return ErrInvalidCode
	}
	if err := bcrypt.CompareHashAndPassword(a.LoginCodeHash, []byte(code)); err != nil {
		return ErrInvalidCode
	}
	return nil
}

func (a *Account) ClearLoginCode() {
	a.LoginCodeHash = nil
	a.LoginCodeExpiresAt = time.Time{}
}

// generateCode returns a random numeric one-time code.
func generateCode() (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(codeLength)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeLength, n.Int64()), nil
}

// NewAccount contains information needed to create a new Account.
type NewAccount struct {
	Email string   `json:"email" validate:"required,email"`
	Name  string   `json:"name" validate:"required"`
	Roles []string `json:"roles" validate:"omitempty,allroles"`
}

func (na *NewAccount) Clean() {
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.Name = core.CleanString(na.Name)
	if len(na.Roles) == 0 {
		na.Roles = []string{RoleParent}
	}
}

// UpdateAccount defines what information may be provided to modify an existing Account.
type UpdateAccount struct {
	Name     string   `json:"name"`
	Phone    string   `json:"phone" validate:"omitempty,max=32"`
	Address  string   `json:"address" validate:"omitempty,max=255"`
	IsActive *bool    `json:"is_active"`
	Roles    []string `json:"roles" validate:"omitempty,allroles"`
}

// Apply cleans the update and merges it into orig.
func (ua *UpdateAccount) Apply(orig Account) Account {
	acc := orig
	if name := core.CleanString(ua.Name); name != "" {
		acc.Name = name
	}
	if ua.Phone != "" {
		acc.Phone = core.CleanString(ua.Phone)
	}
	if ua.Address != "" {
		acc.Address = core.CleanString(ua.Address)
	}
	if ua.IsActive != nil {
		acc.IsActive = *ua.IsActive
	}
	if ua.Roles != nil {
		acc.Roles = ua.Roles
	}
	return acc
}

type QueryFilter struct {
	Search   string   `query:"search"`
	Roles    []string `query:"role"`
	IsActive *bool    `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = strings.ToLower(core.CleanString(qf.Search))
}
