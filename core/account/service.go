package account

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core"
)

var (
	// errors
	ErrNotFound           = errors.New("account not found")
	ErrEmailExists        = errors.New("an account with this email already exists")
	ErrInvalidCode        = errors.New("invalid or expired login code")
	ErrAccountDeactivated = errors.New("account deactivated")
)

type (
	Repository interface {
		CreateAccount(ctx context.Context, acc Account) (Account, error)
		GetAccountByID(ctx context.Context, id string) (Account, error)
		GetAccountByEmail(ctx context.Context, email string) (Account, error)
		// FilterAccounts applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Account.Name or Account.Email.
		FilterAccounts(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Account, error)
		UpdateAccount(ctx context.Context, acc Account) (Account, error)
	}

	Service struct {
		repo     Repository
		mailSvc  core.EmailService
		limiter  *CodeLimiter
		attempts *CodeLimiter
		codeTTL  time.Duration
		logger   core.Logger
		now      func() time.Time
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config, logger core.Logger) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Service{
		repo:     repo,
		mailSvc:  mailSvc,
		limiter:  NewCodeLimiter(conf.Auth.LoginCodeRequests, conf.Auth.LoginCodeWindow),
		attempts: NewCodeLimiter(conf.Auth.LoginCodeAttempts, conf.Auth.LoginCodeTTL),
		codeTTL:  conf.Auth.LoginCodeTTL,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (svc *Service) Create(ctx context.Context, na NewAccount) (Account, error) {
	na.Clean()
	if _, err := svc.repo.GetAccountByEmail(ctx, na.Email); err == nil {
		return Account{}, core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return Account{}, errors.Wrap(err, "checking email uniqueness")
	}

	now := svc.now()
	acc := Account{
		Email:     na.Email,
		Name:      na.Name,
		Roles:     na.Roles,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateAccount(ctx, acc)
}

// RequestLoginCode emails a fresh one-time code to email, creating a parent account on first request.
func (svc *Service) RequestLoginCode(ctx context.Context, email string) error {
	email = core.CleanString(email, true /* lower */)
	if !svc.limiter.Allow(email) {
		return core.ErrTooManyRequests
	}

	acc, err := svc.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			return errors.Wrap(err, "finding account by email")
		}
		if acc, err = svc.Create(ctx, NewAccount{Email: email, Name: email}); err != nil {
			return errors.Wrap(err, "creating account")
		}
		svc.logger.Info(fmt.Sprintf("account created for %s", email))
	}
	if !acc.IsActive {
		return ErrAccountDeactivated
	}

	code, err := generateCode()
	if err != nil {
		return errors.Wrap(err, "generating login code")
	}
	if err = acc.SetLoginCode(code, svc.now().Add(svc.codeTTL)); err != nil {
		return errors.Wrap(err, "hashing login code")
	}
	acc.UpdatedAt = svc.now()
	if _, err = svc.repo.UpdateAccount(ctx, acc); err != nil {
		return errors.Wrap(err, "storing login code")
	}
	svc.attempts.Reset(email)

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: acc.Name, Address: acc.Email}},
		Subject:      "Your login code",
		TemplateName: "login_code",
		TemplateData: map[string]interface{}{
			"Name": acc.Name,
			"Code": code,
			"TTL":  svc.codeTTL.String(),
		},
	})
	return nil
}

// VerifyLoginCode consumes a login code and returns the logged in account.
// A code is discarded once its verification attempts are used up.
func (svc *Service) VerifyLoginCode(ctx context.Context, email, code string) (Account, error) {
	email = core.CleanString(email, true /* lower */)
	if !svc.attempts.Allow(email) {
		return Account{}, core.ErrTooManyRequests
	}

	acc, err := svc.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Account{}, ErrInvalidCode
		}
		return Account{}, errors.Wrap(err, "finding account by email")
	}

	now := svc.now()
	if err = acc.CheckLoginCode(core.CleanString(code), now); err != nil {
		if svc.attempts.Spent(email) && len(acc.LoginCodeHash) > 0 {
			acc.ClearLoginCode()
			acc.UpdatedAt = now
			if _, uErr := svc.repo.UpdateAccount(ctx, acc); uErr != nil {
				return Account{}, errors.Wrap(uErr, "discarding login code")
			}
			svc.logger.Warn(fmt.Sprintf("login code for %s discarded after too many attempts", email))
		}
		return Account{}, err
	}
	if !acc.IsActive {
		return Account{}, ErrAccountDeactivated
	}

	svc.attempts.Reset(email)
	acc.ClearLoginCode()
	acc.LastLogin = now
	acc.UpdatedAt = now
	acc, err = svc.repo.UpdateAccount(ctx, acc)
	return acc, errors.Wrap(err, "setting last login")
}

func (svc *Service) GetByID(ctx context.Context, id string) (Account, error) {
	return svc.repo.GetAccountByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Account, error) {
	return svc.repo.GetAccountByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Account, error) {
	filter.Clean()
	return svc.repo.FilterAccounts(ctx, filter, ordering...)
}

func (svc *Service) Update(ctx context.Context, orig Account, ua UpdateAccount) (Account, error) {
	acc := ua.Apply(orig)
	acc.UpdatedAt = svc.now()
	return svc.repo.UpdateAccount(ctx, acc)
}
