package idcard

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/mail"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/account"
	"github.com/trezcool/homeroom/core/student"
)

var (
	ErrNotFound        = errors.New("id card not found")
	ErrDuplicateNumber = errors.New("card number already taken")

	numberAttempts = 3
	validFor       = 1 // years
)

type (
	Repository interface {
		// CreateIDCard returns ErrDuplicateNumber when CardNumber is taken.
		CreateIDCard(ctx context.Context, card IDCard) (IDCard, error)
		GetIDCardByID(ctx context.Context, id string) (IDCard, error)
		FilterIDCards(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]IDCard, error)
		DeleteIDCard(ctx context.Context, id string) error
	}

	Students interface {
		Get(ctx context.Context, actor core.Actor, id string) (student.Student, error)
	}

	Accounts interface {
		GetByID(ctx context.Context, id string) (account.Account, error)
	}

	Service struct {
		repo     Repository
		students Students
		accounts Accounts
		store    core.ObjectStore
		renderer *Renderer
		mailSvc  core.EmailService
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	students Students,
	accounts Accounts,
	store core.ObjectStore,
	renderer *Renderer,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(students, "students"),
		vala.IsNotNil(accounts, "accounts"),
		vala.IsNotNil(store, "store"),
		vala.IsNotNil(renderer, "renderer"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Service{
		repo:     repo,
		students: students,
		accounts: accounts,
		store:    store,
		renderer: renderer,
		mailSvc:  mailSvc,
		logger:   logger,
	}
}

func imageKey(accountID, cardNumber string) string {
	return fmt.Sprintf("id-cards/%s/%s.png", accountID, cardNumber)
}

// Create issues a card: number, PNG rendering, upload, then the database row.
func (svc *Service) Create(ctx context.Context, actor core.Actor, nc NewIDCard) (IDCard, error) {
	nc.Clean()
	acc, err := svc.accounts.GetByID(ctx, actor.AccountID)
	if err != nil {
		return IDCard{}, errors.Wrap(err, "getting account")
	}

	now := time.Now().UTC()
	card := IDCard{
		AccountID:  acc.ID,
		CardType:   nc.CardType,
		FullName:   acc.Name,
		SchoolName: nc.SchoolName,
		IssueDate:  now.Truncate(24 * time.Hour),
		CreatedAt:  now,
	}
	card.ExpiryDate = card.IssueDate.AddDate(validFor, 0, 0)
	if nc.ExpiryDate != nil {
		card.ExpiryDate = nc.ExpiryDate.UTC()
	}

	if nc.StudentID != "" {
		st, err := svc.students.Get(ctx, actor, nc.StudentID)
		if err != nil {
			return IDCard{}, err
		}
		card.StudentID = st.ID
		card.FullName = st.FullName()
		if card.SchoolName == "" {
			card.SchoolName = st.SchoolName
		}
	}
	if nc.FullName != "" {
		card.FullName = nc.FullName
	}

	for attempt := 1; ; attempt++ {
		if card.CardNumber, err = GenerateNumber(now); err != nil {
			return IDCard{}, errors.Wrap(err, "generating card number")
		}
		png, err := svc.renderer.Render(card)
		if err != nil {
			return IDCard{}, errors.Wrap(err, "rendering card")
		}
		card.ImageKey = imageKey(card.AccountID, card.CardNumber)
		if err := svc.store.Put(ctx, card.ImageKey, bytes.NewReader(png), "image/png"); err != nil {
			return IDCard{}, errors.Wrap(err, "storing card image")
		}

		created, err := svc.repo.CreateIDCard(ctx, card)
		if err == nil {
			created.ImageURL = svc.store.URL(created.ImageKey)
			if nc.SendEmail {
				svc.email(acc, created, png)
			}
			return created, nil
		}
		svc.discard(ctx, card.ImageKey)
		if errors.Cause(err) != ErrDuplicateNumber || attempt == numberAttempts {
			return IDCard{}, errors.Wrap(err, "creating id card")
		}
	}
}

func (svc *Service) discard(ctx context.Context, key string) {
	if err := svc.store.Delete(ctx, key); err != nil {
		svc.logger.Warn("deleting orphan card image "+key, err)
	}
}

func (svc *Service) email(acc account.Account, card IDCard, png []byte) {
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: acc.Name, Address: acc.Email}},
		Subject:      "Your ID card is ready",
		TemplateName: "id_card_ready",
		TemplateData: map[string]interface{}{
			"Name":       acc.Name,
			"CardType":   string(card.CardType),
			"FullName":   card.FullName,
			"CardNumber": card.CardNumber,
		},
	}
	if err := msg.Attach(bytes.NewReader(png), card.CardNumber+".png", "image/png"); err != nil {
		svc.logger.Error("attaching card image", err)
		return
	}
	svc.mailSvc.SendMessages(msg)
}

func (svc *Service) Get(ctx context.Context, actor core.Actor, id string) (IDCard, error) {
	card, err := svc.repo.GetIDCardByID(ctx, id)
	if err != nil {
		return IDCard{}, err
	}
	if !actor.CanAccess(card.AccountID) {
		return IDCard{}, ErrNotFound
	}
	card.ImageURL = svc.store.URL(card.ImageKey)
	return card, nil
}

func (svc *Service) Query(ctx context.Context, actor core.Actor, filter QueryFilter, ordering ...core.DBOrdering) ([]IDCard, error) {
	filter.AccountID = actor.OwnerFilter()
	cards, err := svc.repo.FilterIDCards(ctx, filter, ordering...)
	if err != nil {
		return nil, err
	}
	for i := range cards {
		cards[i].ImageURL = svc.store.URL(cards[i].ImageKey)
	}
	return cards, nil
}

// Image returns the rendered PNG of the card.
func (svc *Service) Image(ctx context.Context, actor core.Actor, id string) (IDCard, []byte, error) {
	card, err := svc.Get(ctx, actor, id)
	if err != nil {
		return IDCard{}, nil, err
	}
	rc, err := svc.store.Get(ctx, card.ImageKey)
	if err != nil {
		return IDCard{}, nil, errors.Wrap(err, "reading card image")
	}
	defer rc.Close()
	png, err := io.ReadAll(rc)
	if err != nil {
		return IDCard{}, nil, errors.Wrap(err, "reading card image")
	}
	return card, png, nil
}

// Delete removes the card and its image. A missing image is not an error.
func (svc *Service) Delete(ctx context.Context, actor core.Actor, id string) error {
	card, err := svc.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := svc.repo.DeleteIDCard(ctx, card.ID); err != nil {
		return errors.Wrap(err, "deleting id card")
	}
	if err := svc.store.Delete(ctx, card.ImageKey); err != nil && errors.Cause(err) != core.ErrObjectNotFound {
		return errors.Wrap(err, "deleting card image")
	}
	return nil
}
