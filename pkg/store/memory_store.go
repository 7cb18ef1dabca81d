package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"askwell/pkg/domain"
	"askwell/pkg/query"
)

// MemoryStore keeps all entities in-process. It mirrors the semantics
// of GormStore so application and handler tests can run without
// Postgres.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]domain.User
	roles     map[string]domain.Role
	questions map[string]domain.Question
	follows   map[string][]string // follower id -> followee ids, insertion order
	hearts    map[string][]string // question id -> user ids, insertion order
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]domain.User),
		roles:     make(map[string]domain.Role),
		questions: make(map[string]domain.Question),
		follows:   make(map[string][]string),
		hearts:    make(map[string][]string),
	}
}

// users

func (m *MemoryStore) CreateUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Following = nil
	m.users[u.ID] = u
	return nil
}

func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, false, nil
	}
	u.Following = append([]string(nil), m.follows[id]...)
	return u, true, nil
}

func (m *MemoryStore) GetUserByUsername(username string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			u.Following = append([]string(nil), m.follows[u.ID]...)
			return u, true, nil
		}
	}
	return domain.User{}, false, nil
}

func (m *MemoryStore) ListUsers(q UserQuery) ([]domain.User, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matches []domain.User
	for _, u := range m.users {
		if m.userMatches(u, q) {
			matches = append(matches, u)
		}
	}
	total := int64(len(matches))
	sortUsers(matches, q.Sort)
	return windowUsers(matches, q.Page), total, nil
}

func (m *MemoryStore) userMatches(u domain.User, q UserQuery) bool {
	for _, c := range q.Filter.Constraints {
		value, ok := userFieldValue(u, c.Field)
		if !ok {
			continue
		}
		switch c.Match {
		case query.MatchSubstring:
			if !strings.Contains(strings.ToLower(value), strings.ToLower(c.Value)) {
				return false
			}
		default:
			if value != c.Value {
				return false
			}
		}
	}
	if len(q.IDIn) > 0 && !containsString(q.IDIn, u.ID) {
		return false
	}
	if q.FollowerOf != "" && !containsString(m.follows[u.ID], q.FollowerOf) {
		return false
	}
	return true
}

func (m *MemoryStore) SearchUsers(username string, limit int) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matches []domain.User
	for _, u := range m.users {
		if strings.Contains(strings.ToLower(u.Username), strings.ToLower(username)) {
			matches = append(matches, u)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Username < matches[j].Username
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (m *MemoryStore) UpdateUser(u domain.User) (domain.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.users[u.ID]
	if !ok {
		return domain.User{}, false, nil
	}
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	u.Following = nil
	m.users[u.ID] = u
	u.Following = append([]string(nil), m.follows[u.ID]...)
	return u, true, nil
}

func (m *MemoryStore) EditUser(id string, edit UserEdit) (domain.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, false, nil
	}
	if edit.FirstName != nil {
		u.FirstName = *edit.FirstName
	}
	if edit.LastName != nil {
		u.LastName = *edit.LastName
	}
	if edit.PhotoURL != nil {
		u.PhotoURL = *edit.PhotoURL
	}
	if edit.MoodMessage != nil {
		u.MoodMessage = *edit.MoodMessage
	}
	u.UpdatedAt = time.Now().UTC()
	m.users[id] = u
	u.Following = append([]string(nil), m.follows[id]...)
	return u, true, nil
}

func (m *MemoryStore) DeleteUser(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return false, nil
	}
	delete(m.users, id)
	delete(m.follows, id)
	for follower, followees := range m.follows {
		m.follows[follower] = removeString(followees, id)
	}
	for questionID, userIDs := range m.hearts {
		m.hearts[questionID] = removeString(userIDs, id)
	}
	return true, nil
}

// follow edges

func (m *MemoryStore) AddFollowing(followerID, followeeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !containsString(m.follows[followerID], followeeID) {
		m.follows[followerID] = append(m.follows[followerID], followeeID)
	}
	return nil
}

func (m *MemoryStore) RemoveFollowing(followerID, followeeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.follows[followerID] = removeString(m.follows[followerID], followeeID)
	return nil
}

// roles

func (m *MemoryStore) CreateRole(role domain.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roles[role.ID] = role
	return nil
}

func (m *MemoryStore) GetRole(id string) (domain.Role, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	role, ok := m.roles[id]
	return role, ok, nil
}

func (m *MemoryStore) GetRoleByName(name string) (domain.Role, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, role := range m.roles {
		if role.Name == name {
			return role, true, nil
		}
	}
	return domain.Role{}, false, nil
}

func (m *MemoryStore) ListRoles() ([]domain.Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	roles := make([]domain.Role, 0, len(m.roles))
	for _, role := range m.roles {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles, nil
}

func (m *MemoryStore) DeleteRole(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[id]; !ok {
		return false, nil
	}
	delete(m.roles, id)
	for userID, u := range m.users {
		var kept []domain.Role
		for _, role := range u.Roles {
			if role.ID != id {
				kept = append(kept, role)
			}
		}
		u.Roles = kept
		m.users[userID] = u
	}
	return true, nil
}

// questions

func (m *MemoryStore) CreateQuestion(q domain.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q.Hearts = nil
	q.HeartCount = 0
	q.Answerer = nil
	m.questions[q.ID] = q
	return nil
}

func (m *MemoryStore) GetQuestionByID(id string) (domain.Question, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok {
		return domain.Question{}, false, nil
	}
	q.Hearts = append([]string(nil), m.hearts[id]...)
	q.HeartCount = len(q.Hearts)
	q.Answerer = m.answererSummary(q.AnswererID)
	return q, true, nil
}

func (m *MemoryStore) ListQuestions(q QuestionQuery) ([]domain.Question, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matches []domain.Question
	for _, question := range m.questions {
		if q.AnswererID != "" && question.AnswererID != q.AnswererID {
			continue
		}
		if len(q.AnswererIn) > 0 && !containsString(q.AnswererIn, question.AnswererID) {
			continue
		}
		if q.Answered != nil && question.Answered != *q.Answered {
			continue
		}
		matches = append(matches, question)
	}
	total := int64(len(matches))
	sortQuestions(matches, q.Sort)
	matches = windowQuestions(matches, q.Page)
	for i := range matches {
		matches[i].HeartCount = len(m.hearts[matches[i].ID])
		matches[i].Answerer = m.answererSummary(matches[i].AnswererID)
	}
	return matches, total, nil
}

func (m *MemoryStore) answererSummary(id string) *domain.UserSummary {
	u, ok := m.users[id]
	if !ok {
		return nil
	}
	return &domain.UserSummary{ID: u.ID, Username: u.Username, PhotoURL: u.PhotoURL}
}

func (m *MemoryStore) AnswerQuestion(id, answerBody string, answerAudio *domain.Attachment) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return false, nil
	}
	now := time.Now().UTC()
	q.Answered = true
	q.AnsweredAt = &now
	q.AnswerBody = answerBody
	q.AnswerAudio = answerAudio
	q.UpdatedAt = now
	m.questions[id] = q
	return true, nil
}

func (m *MemoryStore) UnanswerQuestion(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return false, nil
	}
	q.Answered = false
	q.AnsweredAt = nil
	q.AnswerBody = ""
	q.AnswerAudio = nil
	q.UpdatedAt = time.Now().UTC()
	m.questions[id] = q
	delete(m.hearts, id)
	return true, nil
}

func (m *MemoryStore) DeleteQuestion(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[id]; !ok {
		return false, nil
	}
	delete(m.questions, id)
	delete(m.hearts, id)
	return true, nil
}

// hearts

func (m *MemoryStore) AddHeart(questionID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !containsString(m.hearts[questionID], userID) {
		m.hearts[questionID] = append(m.hearts[questionID], userID)
	}
	return nil
}

func (m *MemoryStore) RemoveHeart(questionID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hearts[questionID] = removeString(m.hearts[questionID], userID)
	return nil
}

// ordering and windowing

func sortUsers(users []domain.User, orders []query.Order) {
	sort.SliceStable(users, func(i, j int) bool {
		for _, order := range orders {
			c := compareUserField(users[i], users[j], order.Field)
			if c == 0 {
				continue
			}
			if order.Desc {
				return c > 0
			}
			return c < 0
		}
		// tiebreak: creation time descending, then id ascending
		if c := compareTimes(users[i].CreatedAt, users[j].CreatedAt); c != 0 {
			return c > 0
		}
		return users[i].ID < users[j].ID
	})
}

func sortQuestions(questions []domain.Question, orders []query.Order) {
	sort.SliceStable(questions, func(i, j int) bool {
		for _, order := range orders {
			c := compareQuestionField(questions[i], questions[j], order.Field)
			if c == 0 {
				continue
			}
			if order.Desc {
				return c > 0
			}
			return c < 0
		}
		if c := compareTimes(questions[i].CreatedAt, questions[j].CreatedAt); c != 0 {
			return c > 0
		}
		return questions[i].ID < questions[j].ID
	})
}

func compareUserField(a, b domain.User, field string) int {
	switch field {
	case "createdAt":
		return compareTimes(a.CreatedAt, b.CreatedAt)
	case "updatedAt":
		return compareTimes(a.UpdatedAt, b.UpdatedAt)
	default:
		av, _ := userFieldValue(a, field)
		bv, _ := userFieldValue(b, field)
		return strings.Compare(av, bv)
	}
}

func compareQuestionField(a, b domain.Question, field string) int {
	switch field {
	case "createdAt":
		return compareTimes(a.CreatedAt, b.CreatedAt)
	case "updatedAt":
		return compareTimes(a.UpdatedAt, b.UpdatedAt)
	case "answeredAt":
		return compareTimes(timeOrZero(a.AnsweredAt), timeOrZero(b.AnsweredAt))
	default:
		return 0
	}
}

func userFieldValue(u domain.User, field string) (string, bool) {
	switch field {
	case "username":
		return u.Username, true
	case "email":
		return u.Email, true
	case "firstName":
		return u.FirstName, true
	case "lastName":
		return u.LastName, true
	case "moodMessage":
		return u.MoodMessage, true
	default:
		return "", false
	}
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func windowUsers(users []domain.User, page query.Page) []domain.User {
	offset, limit := page.Offset(), page.Limit()
	if offset >= len(users) {
		return []domain.User{}
	}
	end := offset + limit
	if end > len(users) {
		end = len(users)
	}
	return users[offset:end]
}

func windowQuestions(questions []domain.Question, page query.Page) []domain.Question {
	offset, limit := page.Offset(), page.Limit()
	if offset >= len(questions) {
		return []domain.Question{}
	}
	end := offset + limit
	if end > len(questions) {
		end = len(questions)
	}
	return questions[offset:end]
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

func removeString(list []string, value string) []string {
	filtered := list[:0]
	for _, item := range list {
		if item != value {
			filtered = append(filtered, item)
		}
	}
	return filtered
}
