package server

import (
	"net/http"
	"strings"

	"askwell/internal/app"
	"askwell/pkg/domain"
)

type createQuestionRequest struct {
	Answerer      string             `json:"answerer"`
	QuestionBody  string             `json:"questionBody"`
	QuestionAudio *domain.Attachment `json:"questionAudio"`
}

type answerRequest struct {
	AnswerBody  string             `json:"answerBody"`
	AnswerAudio *domain.Attachment `json:"answerAudio"`
}

// /api/questions
func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req createQuestionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	question, err := s.app.CreateQuestion(user, app.QuestionInput{
		AnswererID:    req.Answerer,
		QuestionBody:  req.QuestionBody,
		QuestionAudio: req.QuestionAudio,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, question)
}

// /api/questions/{id} and its answer/unanswer/heart actions.
func (s *Server) handleQuestionByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	path := strings.TrimPrefix(r.URL.Path, "/api/questions/")
	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	if id == "" {
		http.NotFound(w, r)
		return
	}
	if len(parts) == 2 {
		s.handleQuestionAction(w, r, user, id, parts[1])
		return
	}

	switch r.Method {
	case http.MethodGet:
		question, err := s.app.GetQuestion(id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, question)
	case http.MethodDelete:
		if err := s.app.DeleteQuestion(user, id); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleQuestionAction(w http.ResponseWriter, r *http.Request, user domain.User, id, action string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var (
		question domain.Question
		err      error
	)
	switch action {
	case "answer":
		var req answerRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		question, err = s.app.Answer(user, id, app.AnswerInput{
			AnswerBody:  req.AnswerBody,
			AnswerAudio: req.AnswerAudio,
		})
	case "unanswer":
		question, err = s.app.Unanswer(user, id)
	case "heart":
		question, err = s.app.ToggleHeart(user, id)
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}
