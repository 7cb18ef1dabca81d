package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"askwell/pkg/auth"
	"askwell/pkg/domain"
	"askwell/pkg/query"
	"askwell/pkg/store"
)

const searchResultLimit = 10

// UserInput carries the writable fields of a user account.
type UserInput struct {
	Username    string
	Email       string
	Password    string
	FirstName   string
	LastName    string
	PhotoURL    string
	MoodMessage string
	Roles       []string
}

// Register creates an account with the default user role and opens a
// session for it.
func (a *App) Register(input UserInput) (domain.User, string, error) {
	user, err := a.CreateUser(input, []string{domain.RoleUser})
	if err != nil {
		return domain.User{}, "", err
	}
	token, err := a.sessions.NewSession(user)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("open session: %w", err)
	}
	return user, token, nil
}

// CreateUser creates an account. When roleNames is nil the roles come
// from the input; either way each role must already exist.
func (a *App) CreateUser(input UserInput, roleNames []string) (domain.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	if input.Username == "" || input.Password == "" {
		return domain.User{}, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	if err := auth.ValidatePassword(input.Password); err != nil {
		return domain.User{}, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	if _, exists, err := a.store.GetUserByUsername(input.Username); err != nil {
		return domain.User{}, fmt.Errorf("check username: %w", err)
	} else if exists {
		return domain.User{}, ErrUsernameTaken
	}
	if roleNames == nil {
		roleNames = input.Roles
	}
	roles, err := a.resolveRoles(roleNames)
	if err != nil {
		return domain.User{}, err
	}
	passwordHash, err := auth.HashPassword(input.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Username:     input.Username,
		Email:        strings.TrimSpace(input.Email),
		PasswordHash: passwordHash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PhotoURL:     input.PhotoURL,
		MoodMessage:  input.MoodMessage,
		Roles:        roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.CreateUser(user); err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// resolveRoles guarantees each named role exists, creating missing ones
// so a fresh deployment can register its first users.
func (a *App) resolveRoles(names []string) ([]domain.Role, error) {
	roles := make([]domain.Role, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		role, found, err := a.store.GetRoleByName(name)
		if err != nil {
			return nil, fmt.Errorf("resolve role %q: %w", name, err)
		}
		if !found {
			role = domain.Role{ID: uuid.NewString(), Name: name}
			if err := a.store.CreateRole(role); err != nil {
				return nil, fmt.Errorf("create role %q: %w", name, err)
			}
		}
		roles = append(roles, role)
	}
	return roles, nil
}

// Login validates credentials and opens a session.
func (a *App) Login(username, password string) (domain.User, string, error) {
	user, found, err := a.store.GetUserByUsername(strings.TrimSpace(username))
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !found || !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(user)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("open session: %w", err)
	}
	return user, token, nil
}

// Logout invalidates the session token.
func (a *App) Logout(token string) error {
	return a.sessions.DeleteSession(token)
}

// UserFromToken resolves a user from a session token.
func (a *App) UserFromToken(token string) (domain.User, bool) {
	uid, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, false
	}
	user, found, err := a.store.GetUserByID(uid)
	if err != nil || !found {
		return domain.User{}, false
	}
	return user, true
}

// IsUsernameTaken reports whether a username is already registered.
func (a *App) IsUsernameTaken(username string) (bool, error) {
	_, exists, err := a.store.GetUserByUsername(strings.TrimSpace(username))
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return exists, nil
}

// ListUsers returns one page of users for raw filter/sort/pagination
// query values.
func (a *App) ListUsers(filter, sort, pageNumber, pageSize string) (UserPage, error) {
	page := query.ParsePage(pageNumber, pageSize)
	users, total, err := a.store.ListUsers(store.UserQuery{
		Filter: query.ParseFilter(filter, query.UserFilterSchema),
		Sort:   query.ParseSort(sort, "username", "email", "firstName", "lastName", "moodMessage", "createdAt", "updatedAt"),
		Page:   page,
	})
	if err != nil {
		return UserPage{}, fmt.Errorf("list users: %w", err)
	}
	return UserPage{Items: users, Pagination: query.NewPagination(page, total)}, nil
}

// GetUser returns a single user by id.
func (a *App) GetUser(id string) (domain.User, error) {
	user, found, err := a.store.GetUserByID(id)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !found {
		return domain.User{}, ErrNotFound
	}
	return user, nil
}

// UpdateUser replaces the account's profile, credentials and roles.
func (a *App) UpdateUser(id string, input UserInput) (domain.User, error) {
	if input.Password == "" {
		return domain.User{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if err := auth.ValidatePassword(input.Password); err != nil {
		return domain.User{}, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	existing, err := a.GetUser(id)
	if err != nil {
		return domain.User{}, err
	}
	username := strings.TrimSpace(input.Username)
	if username == "" {
		username = existing.Username
	}
	if username != existing.Username {
		if _, exists, err := a.store.GetUserByUsername(username); err != nil {
			return domain.User{}, fmt.Errorf("check username: %w", err)
		} else if exists {
			return domain.User{}, ErrUsernameTaken
		}
	}
	roles, err := a.resolveRoles(input.Roles)
	if err != nil {
		return domain.User{}, err
	}
	passwordHash, err := auth.HashPassword(input.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	updated, found, err := a.store.UpdateUser(domain.User{
		ID:           id,
		Username:     username,
		Email:        strings.TrimSpace(input.Email),
		PasswordHash: passwordHash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PhotoURL:     input.PhotoURL,
		MoodMessage:  input.MoodMessage,
		Roles:        roles,
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	if !found {
		return domain.User{}, ErrNotFound
	}
	return updated, nil
}

// EditProfile applies a partial profile update. Only the account owner
// may edit it.
func (a *App) EditProfile(caller domain.User, id string, edit store.UserEdit) (domain.User, error) {
	if caller.ID != id {
		return domain.User{}, ErrUnauthorized
	}
	user, found, err := a.store.EditUser(id, edit)
	if err != nil {
		return domain.User{}, fmt.Errorf("edit user: %w", err)
	}
	if !found {
		return domain.User{}, ErrNotFound
	}
	return user, nil
}

// DeleteUser removes an account permanently.
func (a *App) DeleteUser(id string) error {
	deleted, err := a.store.DeleteUser(id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

// FollowingList returns one page of the users a user follows, ordered
// by username.
func (a *App) FollowingList(id, pageNumber, pageSize string) (UserPage, error) {
	page := query.ParsePage(pageNumber, pageSize)
	user, err := a.GetUser(id)
	if err != nil {
		return UserPage{}, err
	}
	if len(user.Following) == 0 {
		return emptyUserPage(page), nil
	}
	users, total, err := a.store.ListUsers(store.UserQuery{
		IDIn: user.Following,
		Sort: []query.Order{{Field: "username"}},
		Page: page,
	})
	if err != nil {
		return UserPage{}, fmt.Errorf("list following: %w", err)
	}
	return UserPage{Items: users, Pagination: query.NewPagination(page, total)}, nil
}

// FollowerList returns one page of the users following a user. The
// follow edge lives on the follower side only, so this is a reverse
// lookup over the owned sets.
func (a *App) FollowerList(id, pageNumber, pageSize string) (UserPage, error) {
	page := query.ParsePage(pageNumber, pageSize)
	users, total, err := a.store.ListUsers(store.UserQuery{
		FollowerOf: id,
		Sort:       []query.Order{{Field: "username"}},
		Page:       page,
	})
	if err != nil {
		return UserPage{}, fmt.Errorf("list followers: %w", err)
	}
	return UserPage{Items: users, Pagination: query.NewPagination(page, total)}, nil
}

// ToggleFollow follows targetID if the caller's loaded following set
// does not contain it, and unfollows otherwise. The returned user
// reflects the set after the mutation.
func (a *App) ToggleFollow(caller domain.User, targetID string) (domain.User, error) {
	if _, found, err := a.store.GetUserByID(targetID); err != nil {
		return domain.User{}, fmt.Errorf("fetch target: %w", err)
	} else if !found {
		return domain.User{}, ErrNotFound
	}
	err := toggleSetMember(caller.IsFollowing(targetID),
		func() error { return a.store.AddFollowing(caller.ID, targetID) },
		func() error { return a.store.RemoveFollowing(caller.ID, targetID) },
	)
	if err != nil {
		return domain.User{}, fmt.Errorf("toggle follow: %w", err)
	}
	return a.GetUser(caller.ID)
}

// SearchUsers matches usernames case-insensitively, excluding the
// caller from the results.
func (a *App) SearchUsers(caller domain.User, username string) ([]domain.User, error) {
	matches, err := a.store.SearchUsers(username, searchResultLimit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	results := make([]domain.User, 0, len(matches))
	for _, user := range matches {
		if user.ID != caller.ID {
			results = append(results, user)
		}
	}
	return results, nil
}

// roles

// CreateRole registers a new role name.
func (a *App) CreateRole(name string) (domain.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Role{}, fmt.Errorf("%w: role name is required", ErrInvalidInput)
	}
	if _, exists, err := a.store.GetRoleByName(name); err != nil {
		return domain.Role{}, fmt.Errorf("check role: %w", err)
	} else if exists {
		return domain.Role{}, fmt.Errorf("%w: %q", ErrRoleExists, name)
	}
	role := domain.Role{ID: uuid.NewString(), Name: name}
	if err := a.store.CreateRole(role); err != nil {
		return domain.Role{}, fmt.Errorf("create role: %w", err)
	}
	return role, nil
}

// GetRole returns a role by id.
func (a *App) GetRole(id string) (domain.Role, error) {
	role, found, err := a.store.GetRole(id)
	if err != nil {
		return domain.Role{}, fmt.Errorf("fetch role: %w", err)
	}
	if !found {
		return domain.Role{}, ErrNotFound
	}
	return role, nil
}

// ListRoles returns all roles ordered by name.
func (a *App) ListRoles() ([]domain.Role, error) {
	roles, err := a.store.ListRoles()
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// DeleteRole removes a role and its user links.
func (a *App) DeleteRole(id string) error {
	deleted, err := a.store.DeleteRole(id)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}
