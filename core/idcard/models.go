package idcard

import (
	"time"

	"github.com/trezcool/homeroom/core"
)

type CardType string

const (
	StudentCard CardType = "student"
	ParentCard  CardType = "parent"
	TeacherCard CardType = "teacher"
)

var AllCardTypes = []CardType{StudentCard, ParentCard, TeacherCard}

type IDCard struct {
	ID         string    `json:"id"`
	AccountID  string    `json:"account_id"`
	StudentID  string    `json:"student_id,omitempty"`
	CardType   CardType  `json:"card_type"`
	FullName   string    `json:"full_name"`
	SchoolName string    `json:"school_name"`
	CardNumber string    `json:"card_number"`
	IssueDate  time.Time `json:"issue_date"`  // UTC
	ExpiryDate time.Time `json:"expiry_date"` // UTC
	ImageKey   string    `json:"image_key"`
	ImageURL   string    `json:"image_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

// NewIDCard contains information needed to issue a card.
// Student cards need StudentID; names default from the student or the account.
type NewIDCard struct {
	CardType   CardType   `json:"card_type" validate:"required,cardtype"`
	StudentID  string     `json:"student_id" validate:"required_if=CardType student"`
	FullName   string     `json:"full_name" validate:"max=128"`
	SchoolName string     `json:"school_name" validate:"max=128"`
	ExpiryDate *time.Time `json:"expiry_date"`
	SendEmail  bool       `json:"send_email"`
}

func (nc *NewIDCard) Clean() {
	nc.FullName = core.CleanString(nc.FullName)
	nc.SchoolName = core.CleanString(nc.SchoolName)
	nc.StudentID = core.CleanString(nc.StudentID)
}

type QueryFilter struct {
	AccountID string   `query:"-"`
	CardType  CardType `query:"card_type"`
	StudentID string   `query:"student_id"`
}
