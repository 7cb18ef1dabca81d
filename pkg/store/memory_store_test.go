package store

import (
	"fmt"
	"testing"
	"time"

	"askwell/pkg/domain"
	"askwell/pkg/query"
)

func seedUser(t *testing.T, s *MemoryStore, id, username string, createdAt time.Time) {
	t.Helper()
	err := s.CreateUser(domain.User{
		ID:        id,
		Username:  username,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
}

func TestMemoryStoreListUsersFilterAndWindow(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)
	seedUser(t, s, "u1", "bobby", base)
	seedUser(t, s, "u2", "alice", base.Add(time.Minute))
	seedUser(t, s, "u3", "bob", base.Add(2*time.Minute))

	users, total, err := s.ListUsers(UserQuery{
		Filter: query.ParseFilter("username:bob", query.UserFilterSchema),
		Sort:   []query.Order{{Field: "username"}},
		Page:   query.Page{Number: 1, Size: 5},
	})
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if total != 2 {
		t.Fatalf("total = %d, want 2", total)
	}
	if len(users) != 2 || users[0].Username != "bob" || users[1].Username != "bobby" {
		t.Fatalf("unexpected page: %+v", users)
	}
}

func TestMemoryStoreListUsersTotalIsUncapped(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		seedUser(t, s, fmt.Sprintf("u%d", i), fmt.Sprintf("user%d", i), base.Add(time.Duration(i)*time.Minute))
	}
	users, total, err := s.ListUsers(UserQuery{Page: query.Page{Number: 2, Size: 5}})
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if total != 7 {
		t.Fatalf("total = %d, want 7", total)
	}
	if len(users) != 2 {
		t.Fatalf("page 2 length = %d, want 2", len(users))
	}
}

func TestMemoryStoreFollowEdgePrimitivesAreIdempotent(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now().UTC()
	seedUser(t, s, "a", "anna", now)
	seedUser(t, s, "b", "ben", now)

	if err := s.AddFollowing("a", "b"); err != nil {
		t.Fatalf("add following: %v", err)
	}
	// A duplicate add collapses server-side.
	if err := s.AddFollowing("a", "b"); err != nil {
		t.Fatalf("duplicate add following: %v", err)
	}
	u, _, err := s.GetUserByID("a")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if len(u.Following) != 1 || u.Following[0] != "b" {
		t.Fatalf("unexpected following set: %v", u.Following)
	}

	if err := s.RemoveFollowing("a", "b"); err != nil {
		t.Fatalf("remove following: %v", err)
	}
	// Removing an absent edge is a no-op, not an error.
	if err := s.RemoveFollowing("a", "b"); err != nil {
		t.Fatalf("duplicate remove following: %v", err)
	}
	u, _, _ = s.GetUserByID("a")
	if len(u.Following) != 0 {
		t.Fatalf("expected empty following set, got %v", u.Following)
	}
}

func TestMemoryStoreFollowerReverseLookup(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now().UTC()
	seedUser(t, s, "a", "anna", now)
	seedUser(t, s, "b", "ben", now.Add(time.Second))
	seedUser(t, s, "c", "cara", now.Add(2*time.Second))
	if err := s.AddFollowing("a", "c"); err != nil {
		t.Fatalf("add following: %v", err)
	}
	if err := s.AddFollowing("b", "c"); err != nil {
		t.Fatalf("add following: %v", err)
	}

	followers, total, err := s.ListUsers(UserQuery{
		FollowerOf: "c",
		Sort:       []query.Order{{Field: "username"}},
		Page:       query.Page{Number: 1, Size: 5},
	})
	if err != nil {
		t.Fatalf("list followers: %v", err)
	}
	if total != 2 || len(followers) != 2 {
		t.Fatalf("followers = %d/%d, want 2/2", len(followers), total)
	}
	if followers[0].Username != "anna" || followers[1].Username != "ben" {
		t.Fatalf("unexpected followers: %+v", followers)
	}
}

func TestMemoryStoreAnswerLifecycle(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now().UTC()
	seedUser(t, s, "b", "ben", now)
	err := s.CreateQuestion(domain.Question{
		ID:           "q1",
		QuestionerID: "a",
		AnswererID:   "b",
		QuestionBody: "Hi",
		CreatedAt:    now,
	})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}

	found, err := s.AnswerQuestion("q1", "Hello", nil)
	if err != nil || !found {
		t.Fatalf("answer question: found=%v err=%v", found, err)
	}
	q, _, err := s.GetQuestionByID("q1")
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if !q.Answered || q.AnsweredAt == nil || q.AnswerBody != "Hello" {
		t.Fatalf("unexpected answered question: %+v", q)
	}
	if q.HeartCount != 0 {
		t.Fatalf("fresh answer must have zero hearts, got %d", q.HeartCount)
	}

	if err := s.AddHeart("q1", "c"); err != nil {
		t.Fatalf("add heart: %v", err)
	}
	if err := s.AddHeart("q1", "c"); err != nil {
		t.Fatalf("duplicate heart: %v", err)
	}
	q, _, _ = s.GetQuestionByID("q1")
	if q.HeartCount != 1 {
		t.Fatalf("heart count = %d, want 1", q.HeartCount)
	}

	found, err = s.UnanswerQuestion("q1")
	if err != nil || !found {
		t.Fatalf("unanswer question: found=%v err=%v", found, err)
	}
	q, _, _ = s.GetQuestionByID("q1")
	if q.Answered || q.AnsweredAt != nil || q.AnswerBody != "" || q.AnswerAudio != nil {
		t.Fatalf("expected cleared answer fields: %+v", q)
	}
	if q.HeartCount != 0 || len(q.Hearts) != 0 {
		t.Fatalf("hearts must not survive unanswer: %+v", q)
	}
}

func TestMemoryStoreListQuestionsJoinsAnswerer(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now().UTC()
	seedUser(t, s, "b", "ben", now)
	answered := true
	for i := 0; i < 2; i++ {
		answeredAt := now.Add(time.Duration(i) * time.Minute)
		err := s.CreateQuestion(domain.Question{
			ID:         fmt.Sprintf("q%d", i),
			AnswererID: "b",
			Answered:   true,
			AnsweredAt: &answeredAt,
			CreatedAt:  now.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("create question: %v", err)
		}
	}
	// Question whose answerer no longer resolves is retained with a nil
	// joined summary rather than dropped from the page.
	answeredAt := now
	if err := s.CreateQuestion(domain.Question{
		ID:         "q-dangling",
		AnswererID: "ghost",
		Answered:   true,
		AnsweredAt: &answeredAt,
		CreatedAt:  now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("create question: %v", err)
	}

	questions, total, err := s.ListQuestions(QuestionQuery{
		Answered: &answered,
		Sort:     []query.Order{{Field: "answeredAt", Desc: true}},
		Page:     query.Page{Number: 1, Size: 5},
	})
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if total != 3 || len(questions) != 3 {
		t.Fatalf("got %d/%d questions, want 3/3", len(questions), total)
	}
	var danglingSeen bool
	for _, q := range questions {
		if q.ID == "q-dangling" {
			danglingSeen = true
			if q.Answerer != nil {
				t.Fatalf("expected nil answerer for dangling reference, got %+v", q.Answerer)
			}
			continue
		}
		if q.Answerer == nil || q.Answerer.Username != "ben" {
			t.Fatalf("expected joined answerer, got %+v", q.Answerer)
		}
	}
	if !danglingSeen {
		t.Fatalf("dangling question missing from page")
	}
}

func TestMemoryStoreDeleteQuestionRemovesHearts(t *testing.T) {
	s := NewMemoryStore()
	if err := s.CreateQuestion(domain.Question{ID: "q1", AnswererID: "b"}); err != nil {
		t.Fatalf("create question: %v", err)
	}
	if err := s.AddHeart("q1", "c"); err != nil {
		t.Fatalf("add heart: %v", err)
	}
	deleted, err := s.DeleteQuestion("q1")
	if err != nil || !deleted {
		t.Fatalf("delete question: deleted=%v err=%v", deleted, err)
	}
	if _, found, _ := s.GetQuestionByID("q1"); found {
		t.Fatalf("question still present after delete")
	}
	deleted, err = s.DeleteQuestion("q1")
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if deleted {
		t.Fatalf("second delete must report not found")
	}
}
