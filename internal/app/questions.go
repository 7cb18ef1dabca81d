package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"askwell/pkg/domain"
	"askwell/pkg/query"
	"askwell/pkg/store"
)

func boolPtr(b bool) *bool { return &b }

// NewsFeed returns one page of answered questions whose answerer is in
// the caller's following set, newest answer first.
func (a *App) NewsFeed(caller domain.User, pageNumber, pageSize string) (QuestionPage, error) {
	page := query.ParsePage(pageNumber, pageSize)
	if len(caller.Following) == 0 {
		return emptyQuestionPage(page), nil
	}
	questions, total, err := a.store.ListQuestions(store.QuestionQuery{
		AnswererIn: caller.Following,
		Answered:   boolPtr(true),
		Sort:       []query.Order{{Field: "answeredAt", Desc: true}},
		Page:       page,
	})
	if err != nil {
		return QuestionPage{}, fmt.Errorf("news feed: %w", err)
	}
	return QuestionPage{Items: questions, Pagination: query.NewPagination(page, total)}, nil
}

// UnansweredQuestions returns one page of the caller's inbox: questions
// addressed to them that have no answer yet, newest first. Only the
// addressee may read their own inbox.
func (a *App) UnansweredQuestions(caller domain.User, answererID, pageNumber, pageSize string) (QuestionPage, error) {
	if caller.ID != answererID {
		return QuestionPage{}, ErrUnauthorized
	}
	page := query.ParsePage(pageNumber, pageSize)
	questions, total, err := a.store.ListQuestions(store.QuestionQuery{
		AnswererID: answererID,
		Answered:   boolPtr(false),
		Sort:       []query.Order{{Field: "createdAt", Desc: true}},
		Page:       page,
	})
	if err != nil {
		return QuestionPage{}, fmt.Errorf("unanswered questions: %w", err)
	}
	return QuestionPage{Items: questions, Pagination: query.NewPagination(page, total)}, nil
}

// AnsweredQuestions returns one page of a user's public wall. Raw
// filter and sort values are parsed against the question schema; absent
// an explicit answered constraint only answered questions show, and
// absent a sort the newest answer comes first.
func (a *App) AnsweredQuestions(answererID, filter, sort, pageNumber, pageSize string) (QuestionPage, error) {
	page := query.ParsePage(pageNumber, pageSize)
	q := store.QuestionQuery{
		AnswererID: answererID,
		Answered:   boolPtr(true),
		Sort:       []query.Order{{Field: "answeredAt", Desc: true}},
		Page:       page,
	}
	for _, c := range query.ParseFilter(filter, query.QuestionFilterSchema).Constraints {
		switch c.Field {
		case "answered":
			q.Answered = boolPtr(c.Value == "true")
		case "answerer":
			q.AnswererID = c.Value
		}
	}
	if sort != "" {
		q.Sort = query.ParseSort(sort, "createdAt", "updatedAt", "answeredAt")
	}
	questions, total, err := a.store.ListQuestions(q)
	if err != nil {
		return QuestionPage{}, fmt.Errorf("answered questions: %w", err)
	}
	return QuestionPage{Items: questions, Pagination: query.NewPagination(page, total)}, nil
}

// GetQuestion returns one question with its joined answerer summary.
func (a *App) GetQuestion(id string) (domain.Question, error) {
	question, found, err := a.store.GetQuestionByID(id)
	if err != nil {
		return domain.Question{}, fmt.Errorf("fetch question: %w", err)
	}
	if !found {
		return domain.Question{}, ErrNotFound
	}
	return question, nil
}

// QuestionInput carries the writable fields of a new question.
type QuestionInput struct {
	AnswererID    string
	QuestionBody  string
	QuestionAudio *domain.Attachment
}

// CreateQuestion posts a question from the caller to an answerer. The
// answerer must exist; the question starts unanswered.
func (a *App) CreateQuestion(caller domain.User, input QuestionInput) (domain.Question, error) {
	input.QuestionBody = strings.TrimSpace(input.QuestionBody)
	if input.QuestionBody == "" || input.AnswererID == "" {
		return domain.Question{}, fmt.Errorf("%w: question body and answerer are required", ErrInvalidInput)
	}
	if _, found, err := a.store.GetUserByID(input.AnswererID); err != nil {
		return domain.Question{}, fmt.Errorf("fetch answerer: %w", err)
	} else if !found {
		return domain.Question{}, ErrNotFound
	}
	now := time.Now().UTC()
	question := domain.Question{
		ID:            uuid.NewString(),
		QuestionerID:  caller.ID,
		AnswererID:    input.AnswererID,
		QuestionBody:  input.QuestionBody,
		QuestionAudio: input.QuestionAudio,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := a.store.CreateQuestion(question); err != nil {
		return domain.Question{}, fmt.Errorf("create question: %w", err)
	}
	return a.GetQuestion(question.ID)
}

// AnswerInput carries the answer payload.
type AnswerInput struct {
	AnswerBody  string
	AnswerAudio *domain.Attachment
}

// Answer publishes an answer. Only the designated answerer may answer,
// and a fresh answer always starts with zero hearts.
func (a *App) Answer(caller domain.User, questionID string, input AnswerInput) (domain.Question, error) {
	question, err := a.GetQuestion(questionID)
	if err != nil {
		return domain.Question{}, err
	}
	if question.AnswererID != caller.ID {
		return domain.Question{}, ErrUnauthorized
	}
	input.AnswerBody = strings.TrimSpace(input.AnswerBody)
	if input.AnswerBody == "" {
		return domain.Question{}, fmt.Errorf("%w: answer body is required", ErrInvalidInput)
	}
	if _, err := a.store.AnswerQuestion(questionID, input.AnswerBody, input.AnswerAudio); err != nil {
		return domain.Question{}, fmt.Errorf("answer question: %w", err)
	}
	return a.GetQuestion(questionID)
}

// Unanswer retracts an answer, returning the question to the unanswered
// state and discarding its hearts. Only the answerer may retract.
func (a *App) Unanswer(caller domain.User, questionID string) (domain.Question, error) {
	question, err := a.GetQuestion(questionID)
	if err != nil {
		return domain.Question{}, err
	}
	if question.AnswererID != caller.ID {
		return domain.Question{}, ErrUnauthorized
	}
	if _, err := a.store.UnanswerQuestion(questionID); err != nil {
		return domain.Question{}, fmt.Errorf("unanswer question: %w", err)
	}
	return a.GetQuestion(questionID)
}

// DeleteQuestion removes a question. Only the designated answerer may
// delete it.
func (a *App) DeleteQuestion(caller domain.User, questionID string) error {
	question, err := a.GetQuestion(questionID)
	if err != nil {
		return err
	}
	if question.AnswererID != caller.ID {
		return ErrUnauthorized
	}
	if _, err := a.store.DeleteQuestion(questionID); err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	return nil
}

// ToggleHeart hearts an answered question if the caller has not yet
// hearted it, and removes the heart otherwise. Unanswered questions
// cannot be hearted.
func (a *App) ToggleHeart(caller domain.User, questionID string) (domain.Question, error) {
	question, err := a.GetQuestion(questionID)
	if err != nil {
		return domain.Question{}, err
	}
	if !question.Answered {
		return domain.Question{}, fmt.Errorf("%w: question is not answered", ErrInvalidInput)
	}
	err = toggleSetMember(question.HeartedBy(caller.ID),
		func() error { return a.store.AddHeart(questionID, caller.ID) },
		func() error { return a.store.RemoveHeart(questionID, caller.ID) },
	)
	if err != nil {
		return domain.Question{}, fmt.Errorf("toggle heart: %w", err)
	}
	return a.GetQuestion(questionID)
}
