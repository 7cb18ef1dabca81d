package store

import (
	"askwell/pkg/domain"
	"askwell/pkg/query"
)

// UserQuery selects a page of users. Filter carries schema-validated
// constraints; IDIn and FollowerOf narrow the result to an explicit id
// set or to followers of a user (owners whose following set contains
// the id). Zero-value fields are ignored.
type UserQuery struct {
	Filter     query.Filter
	IDIn       []string
	FollowerOf string
	Sort       []query.Order
	Page       query.Page
}

// QuestionQuery selects a page of questions joined with their answerer.
type QuestionQuery struct {
	AnswererID string
	AnswererIn []string
	Answered   *bool
	Sort       []query.Order
	Page       query.Page
}

// UserEdit is a partial profile update. Nil fields are left untouched.
type UserEdit struct {
	FirstName   *string
	LastName    *string
	PhotoURL    *string
	MoodMessage *string
}

// Store defines persistence operations for users, roles, questions and
// the relationship sets hanging off them. List operations return the
// windowed items plus the uncapped count of rows matching the predicate
// alone. The Add*/Remove* pairs are atomic set primitives: adding an
// existing member or removing an absent one is a no-op, never an error.
type Store interface {
	// users
	CreateUser(user domain.User) error
	GetUserByID(id string) (domain.User, bool, error)
	GetUserByUsername(username string) (domain.User, bool, error)
	ListUsers(q UserQuery) ([]domain.User, int64, error)
	SearchUsers(username string, limit int) ([]domain.User, error)
	UpdateUser(user domain.User) (domain.User, bool, error)
	EditUser(id string, edit UserEdit) (domain.User, bool, error)
	DeleteUser(id string) (bool, error)

	// follow edges
	AddFollowing(followerID, followeeID string) error
	RemoveFollowing(followerID, followeeID string) error

	// roles
	CreateRole(role domain.Role) error
	GetRole(id string) (domain.Role, bool, error)
	GetRoleByName(name string) (domain.Role, bool, error)
	ListRoles() ([]domain.Role, error)
	DeleteRole(id string) (bool, error)

	// questions
	CreateQuestion(question domain.Question) error
	GetQuestionByID(id string) (domain.Question, bool, error)
	ListQuestions(q QuestionQuery) ([]domain.Question, int64, error)
	AnswerQuestion(id, answerBody string, answerAudio *domain.Attachment) (bool, error)
	UnanswerQuestion(id string) (bool, error)
	DeleteQuestion(id string) (bool, error)

	// hearts
	AddHeart(questionID, userID string) error
	RemoveHeart(questionID, userID string) error
}

// SessionStore persists session tokens.
type SessionStore interface {
	NewSession(user domain.User) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}
