package domain

import "time"

// Role is a named permission group referenced by users.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is a member of the social graph. Following holds the IDs of the
// users this user follows; the edge lives on the follower side only and
// follower lists are derived by reverse lookup.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName,omitempty"`
	LastName     string    `json:"lastName,omitempty"`
	PhotoURL     string    `json:"photoUrl,omitempty"`
	MoodMessage  string    `json:"moodMessage,omitempty"`
	Roles        []Role    `json:"roles,omitempty"`
	Following    []string  `json:"following,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasRole reports whether the user carries the named role.
func (u User) HasRole(name string) bool {
	for _, role := range u.Roles {
		if role.Name == name {
			return true
		}
	}
	return false
}

// IsFollowing reports whether id is in the user's following set.
func (u User) IsFollowing(id string) bool {
	for _, followee := range u.Following {
		if followee == id {
			return true
		}
	}
	return false
}

// UserSummary is the projection of a user embedded in joined results.
// It never carries credentials.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	PhotoURL string `json:"photoUrl,omitempty"`
}

// Attachment references an uploaded media object.
type Attachment struct {
	URL         string `json:"url"`
	ContentType string `json:"contentType,omitempty"`
}

// Question is asked by a questioner and may only be answered, unanswered
// or deleted by its designated answerer. Hearts are answer-scoped: they
// are cleared whenever the question returns to the unanswered state.
type Question struct {
	ID            string       `json:"id"`
	QuestionerID  string       `json:"questioner"`
	AnswererID    string       `json:"answererId"`
	Answerer      *UserSummary `json:"answerer,omitempty"`
	QuestionBody  string       `json:"questionBody"`
	QuestionAudio *Attachment  `json:"questionAudio,omitempty"`
	Answered      bool         `json:"answered"`
	AnsweredAt    *time.Time   `json:"answeredAt,omitempty"`
	AnswerBody    string       `json:"answerBody,omitempty"`
	AnswerAudio   *Attachment  `json:"answerAudio,omitempty"`
	Hearts        []string     `json:"hearts,omitempty"`
	HeartCount    int          `json:"heartCount"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// HeartedBy reports whether userID is in the question's heart set.
func (q Question) HeartedBy(userID string) bool {
	for _, heart := range q.Hearts {
		if heart == userID {
			return true
		}
	}
	return false
}
