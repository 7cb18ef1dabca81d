package app

import (
	"fmt"

	"askwell/pkg/domain"
	"askwell/pkg/query"
	"askwell/pkg/store"
)

// Config wires required dependencies for the core application.
type Config struct {
	Store    store.Store
	Sessions store.SessionStore
}

// App is the core application service. It composes feed queries,
// applies relationship toggles and drives the question lifecycle on top
// of the storage and session boundaries.
type App struct {
	store    store.Store
	sessions store.SessionStore
}

// New constructs the application.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	return &App{store: cfg.Store, sessions: cfg.Sessions}, nil
}

// UserPage is one page of users plus its pagination envelope.
type UserPage struct {
	Items      []domain.User    `json:"items"`
	Pagination query.Pagination `json:"pagination"`
}

// QuestionPage is one page of questions plus its pagination envelope.
type QuestionPage struct {
	Items      []domain.Question `json:"items"`
	Pagination query.Pagination  `json:"pagination"`
}

func emptyUserPage(page query.Page) UserPage {
	return UserPage{Items: []domain.User{}, Pagination: query.NewPagination(page, 0)}
}

func emptyQuestionPage(page query.Page) QuestionPage {
	return QuestionPage{Items: []domain.Question{}, Pagination: query.NewPagination(page, 0)}
}
