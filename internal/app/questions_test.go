package app

import (
	"errors"
	"fmt"
	"testing"

	"askwell/pkg/domain"
)

func askAndAnswer(t *testing.T, a *App, asker, answerer domain.User, body string) domain.Question {
	t.Helper()
	q, err := a.CreateQuestion(asker, QuestionInput{AnswererID: answerer.ID, QuestionBody: body})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	q, err = a.Answer(answerer, q.ID, AnswerInput{AnswerBody: "answer to " + body})
	if err != nil {
		t.Fatalf("answer question: %v", err)
	}
	return q
}

func TestCreateQuestionValidation(t *testing.T) {
	a, _ := newTestApp(t)
	aliceID := registerUser(t, a, "alice")
	bobID := registerUser(t, a, "bob")
	alice, _ := a.GetUser(aliceID)

	if _, err := a.CreateQuestion(alice, QuestionInput{AnswererID: bobID}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty body err = %v", err)
	}
	if _, err := a.CreateQuestion(alice, QuestionInput{QuestionBody: "hi?"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing answerer err = %v", err)
	}
	if _, err := a.CreateQuestion(alice, QuestionInput{AnswererID: "missing", QuestionBody: "hi?"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown answerer err = %v", err)
	}

	q, err := a.CreateQuestion(alice, QuestionInput{AnswererID: bobID, QuestionBody: "what's up?"})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	if q.Answered || q.AnsweredAt != nil || q.HeartCount != 0 {
		t.Fatalf("fresh question = %+v", q)
	}
	if q.Answerer == nil || q.Answerer.Username != "bob" {
		t.Fatalf("answerer summary = %+v", q.Answerer)
	}
}

func TestAnswerLifecycle(t *testing.T) {
	a, _ := newTestApp(t)
	aliceID := registerUser(t, a, "alice")
	bobID := registerUser(t, a, "bob")
	alice, _ := a.GetUser(aliceID)
	bob, _ := a.GetUser(bobID)

	q, err := a.CreateQuestion(alice, QuestionInput{AnswererID: bobID, QuestionBody: "what's up?"})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}

	if _, err := a.Answer(alice, q.ID, AnswerInput{AnswerBody: "not much"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-answerer answering err = %v", err)
	}
	if _, err := a.Answer(bob, q.ID, AnswerInput{AnswerBody: "  "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank answer err = %v", err)
	}

	answered, err := a.Answer(bob, q.ID, AnswerInput{AnswerBody: "not much"})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !answered.Answered || answered.AnsweredAt == nil || answered.AnswerBody != "not much" {
		t.Fatalf("answered question = %+v", answered)
	}

	// hearts accumulate on the answer and vanish when it is retracted
	if _, err := a.ToggleHeart(alice, q.ID); err != nil {
		t.Fatalf("heart: %v", err)
	}
	got, _ := a.GetQuestion(q.ID)
	if got.HeartCount != 1 || !got.HeartedBy(aliceID) {
		t.Fatalf("after heart = %+v", got)
	}

	if _, err := a.Unanswer(alice, q.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-answerer unanswering err = %v", err)
	}
	retracted, err := a.Unanswer(bob, q.ID)
	if err != nil {
		t.Fatalf("unanswer: %v", err)
	}
	if retracted.Answered || retracted.AnswerBody != "" || retracted.AnsweredAt != nil {
		t.Fatalf("retracted question = %+v", retracted)
	}
	if retracted.HeartCount != 0 || len(retracted.Hearts) != 0 {
		t.Fatalf("hearts survived retraction: %+v", retracted)
	}

	// answering again starts from zero hearts
	again, err := a.Answer(bob, q.ID, AnswerInput{AnswerBody: "still not much"})
	if err != nil {
		t.Fatalf("answer again: %v", err)
	}
	if again.HeartCount != 0 {
		t.Fatalf("fresh answer heart count = %d", again.HeartCount)
	}
}

func TestToggleHeart(t *testing.T) {
	a, _ := newTestApp(t)
	aliceID := registerUser(t, a, "alice")
	bobID := registerUser(t, a, "bob")
	alice, _ := a.GetUser(aliceID)
	bob, _ := a.GetUser(bobID)

	q, _ := a.CreateQuestion(alice, QuestionInput{AnswererID: bobID, QuestionBody: "tea or coffee?"})
	if _, err := a.ToggleHeart(alice, q.ID); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("hearting an unanswered question err = %v", err)
	}

	if _, err := a.Answer(bob, q.ID, AnswerInput{AnswerBody: "coffee"}); err != nil {
		t.Fatalf("answer: %v", err)
	}

	hearted, err := a.ToggleHeart(alice, q.ID)
	if err != nil {
		t.Fatalf("heart: %v", err)
	}
	if hearted.HeartCount != 1 {
		t.Fatalf("heart count = %d", hearted.HeartCount)
	}

	unhearted, err := a.ToggleHeart(alice, q.ID)
	if err != nil {
		t.Fatalf("unheart: %v", err)
	}
	if unhearted.HeartCount != 0 {
		t.Fatalf("heart count after second toggle = %d", unhearted.HeartCount)
	}
}

func TestDeleteQuestion(t *testing.T) {
	a, _ := newTestApp(t)
	aliceID := registerUser(t, a, "alice")
	bobID := registerUser(t, a, "bob")
	alice, _ := a.GetUser(aliceID)
	bob, _ := a.GetUser(bobID)

	q, _ := a.CreateQuestion(alice, QuestionInput{AnswererID: bobID, QuestionBody: "why?"})

	if err := a.DeleteQuestion(alice, q.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-answerer delete err = %v", err)
	}
	if err := a.DeleteQuestion(bob, q.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := a.GetQuestion(q.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get deleted question err = %v", err)
	}
	if err := a.DeleteQuestion(bob, q.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete err = %v", err)
	}
}

func TestUnansweredInbox(t *testing.T) {
	a, _ := newTestApp(t)
	aliceID := registerUser(t, a, "alice")
	bobID := registerUser(t, a, "bob")
	alice, _ := a.GetUser(aliceID)
	bob, _ := a.GetUser(bobID)

	for i := 0; i < 3; i++ {
		if _, err := a.CreateQuestion(alice, QuestionInput{AnswererID: bobID, QuestionBody: fmt.Sprintf("q%d?", i)}); err != nil {
			t.Fatalf("create question: %v", err)
		}
	}
	askAndAnswer(t, a, alice, bob, "answered one")

	if _, err := a.UnansweredQuestions(alice, bobID, "1", "10"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("reading someone else's inbox err = %v", err)
	}

	inbox, err := a.UnansweredQuestions(bob, bobID, "1", "10")
	if err != nil {
		t.Fatalf("inbox: %v", err)
	}
	if inbox.Pagination.TotalItems != 3 {
		t.Fatalf("inbox totals = %+v", inbox.Pagination)
	}
	for _, q := range inbox.Items {
		if q.Answered {
			t.Fatalf("answered question in inbox: %+v", q)
		}
	}
}

func TestAnsweredWallPagination(t *testing.T) {
	a, _ := newTestApp(t)
	aliceID := registerUser(t, a, "alice")
	bobID := registerUser(t, a, "bob")
	alice, _ := a.GetUser(aliceID)
	bob, _ := a.GetUser(bobID)

	for i := 0; i < 7; i++ {
		askAndAnswer(t, a, alice, bob, fmt.Sprintf("q%d?", i))
	}
	// an unanswered question must not count toward the wall
	if _, err := a.CreateQuestion(alice, QuestionInput{AnswererID: bobID, QuestionBody: "pending?"}); err != nil {
		t.Fatalf("create question: %v", err)
	}

	wall, err := a.AnsweredQuestions(bobID, "", "", "1", "5")
	if err != nil {
		t.Fatalf("wall: %v", err)
	}
	if wall.Pagination.TotalItems != 7 || wall.Pagination.TotalPages != 2 {
		t.Fatalf("wall pagination = %+v", wall.Pagination)
	}
	if len(wall.Items) != 5 {
		t.Fatalf("wall page 1 size = %d", len(wall.Items))
	}

	second, err := a.AnsweredQuestions(bobID, "", "", "2", "5")
	if err != nil {
		t.Fatalf("wall page 2: %v", err)
	}
	if len(second.Items) != 2 {
		t.Fatalf("wall page 2 size = %d", len(second.Items))
	}

	// explicit filter can flip the wall to pending questions
	pending, err := a.AnsweredQuestions(bobID, "answered:false", "", "1", "10")
	if err != nil {
		t.Fatalf("pending wall: %v", err)
	}
	if pending.Pagination.TotalItems != 1 {
		t.Fatalf("pending totals = %+v", pending.Pagination)
	}
}

func TestNewsFeed(t *testing.T) {
	a, _ := newTestApp(t)
	aliceID := registerUser(t, a, "alice")
	bobID := registerUser(t, a, "bob")
	carolID := registerUser(t, a, "carol")
	alice, _ := a.GetUser(aliceID)
	bob, _ := a.GetUser(bobID)
	carol, _ := a.GetUser(carolID)

	askAndAnswer(t, a, alice, bob, "from bob?")
	askAndAnswer(t, a, bob, carol, "from carol?")
	// unanswered questions never reach the feed
	if _, err := a.CreateQuestion(alice, QuestionInput{AnswererID: bobID, QuestionBody: "pending?"}); err != nil {
		t.Fatalf("create question: %v", err)
	}

	// alice follows nobody yet: empty feed, no store round trip
	feed, err := a.NewsFeed(alice, "1", "10")
	if err != nil {
		t.Fatalf("empty feed: %v", err)
	}
	if len(feed.Items) != 0 || feed.Pagination.TotalPages != 0 {
		t.Fatalf("empty feed = %v %+v", feed.Items, feed.Pagination)
	}

	alice, _ = a.ToggleFollow(alice, bobID)
	feed, err = a.NewsFeed(alice, "1", "10")
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if feed.Pagination.TotalItems != 1 || feed.Items[0].AnswererID != bobID {
		t.Fatalf("feed = %+v", feed)
	}

	alice, _ = a.ToggleFollow(alice, carolID)
	feed, err = a.NewsFeed(alice, "1", "10")
	if err != nil {
		t.Fatalf("feed after following carol: %v", err)
	}
	if feed.Pagination.TotalItems != 2 {
		t.Fatalf("feed totals = %+v", feed.Pagination)
	}
	// newest answer first
	if feed.Items[0].AnswererID != carolID {
		t.Fatalf("feed order = %v", feed.Items)
	}
}
