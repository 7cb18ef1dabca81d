package server

import (
	"net/http"
	"strings"

	"askwell/internal/app"
	"askwell/pkg/domain"
	"askwell/pkg/store"
)

type registerRequest struct {
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	PhotoURL    string   `json:"photoUrl"`
	MoodMessage string   `json:"moodMessage"`
	Roles       []string `json:"roles"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.registerLimiter, "too many registration attempts") {
		s.audit(r, "register", "rate_limited")
		return
	}
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, token, err := s.app.Register(s.userInput(req))
	if err != nil {
		s.audit(r, "register", "fail", "reason", err.Error())
		writeAppError(w, err)
		return
	}
	s.audit(r, "register", "success", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (s *Server) handleCheckUsername(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		Username string `json:"username"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	taken, err := s.app.IsUsernameTaken(req.Username)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"taken": taken})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.loginLimiter, "too many login attempts") {
		s.audit(r, "login", "rate_limited")
		return
	}
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, token, err := s.app.Login(req.Username, req.Password)
	if err != nil {
		s.audit(r, "login", "fail", "reason", err.Error())
		writeAppError(w, err)
		return
	}
	s.audit(r, "login", "success", "user_id", user.ID)
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	token, _ := bearerToken(r)
	if err := s.app.Logout(token); err != nil {
		writeAppError(w, err)
		return
	}
	s.audit(r, "logout", "success", "user_id", user.ID)
	w.WriteHeader(http.StatusNoContent)
}

// /api/users
func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request, _ domain.User) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		page, err := s.app.ListUsers(q.Get("filter"), q.Get("sort"), q.Get("pageNumber"), q.Get("pageSize"))
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	case http.MethodPost:
		var req registerRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		user, err := s.app.CreateUser(s.userInput(req), nil)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, user)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	users, err := s.app.SearchUsers(user, r.URL.Query().Get("username"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": users,
		"count": len(users),
	})
}

// /api/users/{id} plus the sub-resources hanging off a user. The
// following and followers lists are public; everything else requires a
// session, and the admin-gated verbs check the role inline.
func (s *Server) handleUserByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/users/")
	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	if id == "" {
		http.NotFound(w, r)
		return
	}
	if len(parts) == 2 {
		s.handleUserSubresource(w, r, id, parts[1])
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodPut, http.MethodDelete:
		s.adminOnly(func(w http.ResponseWriter, r *http.Request, _ domain.User) {
			s.handleAdminUser(w, r, id)
		}).ServeHTTP(w, r)
	case http.MethodPatch:
		s.authenticated(func(w http.ResponseWriter, r *http.Request, caller domain.User) {
			s.handleEditProfile(w, r, caller, id)
		}).ServeHTTP(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleAdminUser(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		user, err := s.app.GetUser(id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodPut:
		var req registerRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		user, err := s.app.UpdateUser(id, s.userInput(req))
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodDelete:
		if err := s.app.DeleteUser(id); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

type editProfileRequest struct {
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	PhotoURL    *string `json:"photoUrl"`
	MoodMessage *string `json:"moodMessage"`
}

func (s *Server) handleEditProfile(w http.ResponseWriter, r *http.Request, caller domain.User, id string) {
	var req editProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := s.app.EditProfile(caller, id, store.UserEdit{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhotoURL:    req.PhotoURL,
		MoodMessage: req.MoodMessage,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUserSubresource(w http.ResponseWriter, r *http.Request, id, rest string) {
	q := r.URL.Query()
	pageNumber, pageSize := q.Get("pageNumber"), q.Get("pageSize")
	switch rest {
	case "following":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		page, err := s.app.FollowingList(id, pageNumber, pageSize)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	case "followers":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		page, err := s.app.FollowerList(id, pageNumber, pageSize)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	case "follow":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.authenticated(func(w http.ResponseWriter, r *http.Request, caller domain.User) {
			user, err := s.app.ToggleFollow(caller, id)
			if err != nil {
				writeAppError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, user)
		}).ServeHTTP(w, r)
	case "news_feed":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.authenticated(func(w http.ResponseWriter, r *http.Request, caller domain.User) {
			page, err := s.app.NewsFeed(caller, pageNumber, pageSize)
			if err != nil {
				writeAppError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, page)
		}).ServeHTTP(w, r)
	case "unanswered-questions":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.authenticated(func(w http.ResponseWriter, r *http.Request, caller domain.User) {
			page, err := s.app.UnansweredQuestions(caller, id, pageNumber, pageSize)
			if err != nil {
				writeAppError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, page)
		}).ServeHTTP(w, r)
	case "answered-questions":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		page, err := s.app.AnsweredQuestions(id, q.Get("filter"), q.Get("sort"), pageNumber, pageSize)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	default:
		http.NotFound(w, r)
	}
}

// roles

func (s *Server) handleRoles(w http.ResponseWriter, r *http.Request, _ domain.User) {
	switch r.Method {
	case http.MethodGet:
		roles, err := s.app.ListRoles()
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items": roles,
			"count": len(roles),
		})
	case http.MethodPost:
		var req struct {
			Name string `json:"name"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		role, err := s.app.CreateRole(req.Name)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, role)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleRoleByID(w http.ResponseWriter, r *http.Request, _ domain.User) {
	id := strings.TrimPrefix(r.URL.Path, "/api/roles/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		role, err := s.app.GetRole(id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, role)
	case http.MethodDelete:
		if err := s.app.DeleteRole(id); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) userInput(req registerRequest) app.UserInput {
	return app.UserInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhotoURL:    req.PhotoURL,
		MoodMessage: req.MoodMessage,
		Roles:       req.Roles,
	}
}
