package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;not null"`
	Email        string `gorm:"index"`
	PasswordHash string `gorm:"not null"`
	FirstName    string
	LastName     string
	PhotoURL     string
	MoodMessage  string
	Roles        []RoleModel `gorm:"many2many:user_roles;joinForeignKey:UserID;joinReferences:RoleID"`
	CreatedAt    time.Time   `gorm:"not null"`
	UpdatedAt    time.Time
}

func (UserModel) TableName() string { return "users" }

type RoleModel struct {
	ID   string `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;not null"`
}

func (RoleModel) TableName() string { return "roles" }

// FollowModel is one directed edge of the follow graph, owned by the
// follower side. The composite key makes the set-add idempotent.
type FollowModel struct {
	FollowerID string    `gorm:"primaryKey"`
	FolloweeID string    `gorm:"primaryKey;index"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (FollowModel) TableName() string { return "follows" }

type QuestionModel struct {
	ID            string `gorm:"primaryKey"`
	QuestionerID  string `gorm:"index;not null"`
	AnswererID    string `gorm:"index;not null"`
	QuestionBody  string `gorm:"type:text;not null"`
	QuestionAudio datatypes.JSON
	Answered      bool `gorm:"not null;index"`
	AnsweredAt    *time.Time
	AnswerBody    string `gorm:"type:text"`
	AnswerAudio   datatypes.JSON
	CreatedAt     time.Time `gorm:"not null;index"`
	UpdatedAt     time.Time
}

func (QuestionModel) TableName() string { return "questions" }

// HeartModel is one member of a question's heart set.
type HeartModel struct {
	QuestionID string    `gorm:"primaryKey"`
	UserID     string    `gorm:"primaryKey"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (HeartModel) TableName() string { return "question_hearts" }
