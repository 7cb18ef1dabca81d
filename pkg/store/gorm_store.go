package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"askwell/pkg/domain"
	"askwell/pkg/query"
)

const migrateLockID int64 = 48114811

// userColumns maps exposed user field names to their columns. Only keys
// present here are usable in filters and orderings, which keeps raw
// request strings away from the SQL layer.
var userColumns = map[string]string{
	"username":    "username",
	"email":       "email",
	"firstName":   "first_name",
	"lastName":    "last_name",
	"moodMessage": "mood_message",
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
}

var questionColumns = map[string]string{
	"createdAt":  "created_at",
	"updatedAt":  "updated_at",
	"answeredAt": "answered_at",
}

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations under an advisory
// lock so concurrently starting replicas do not race each other.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&UserModel{}, &RoleModel{}, &FollowModel{},
			&QuestionModel{}, &HeartModel{},
		); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// users

// CreateUser inserts a user together with its role references.
func (s *GormStore) CreateUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Create(&model).Error
}

// GetUserByID returns a user with roles and following set loaded.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	return s.getUser("id = ?", id)
}

// GetUserByUsername looks up a user by its unique username.
func (s *GormStore) GetUserByUsername(username string) (domain.User, bool, error) {
	return s.getUser("username = ?", username)
}

func (s *GormStore) getUser(cond string, arg any) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Preload("Roles").Where(cond, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	following, err := s.loadFollowing(model.ID)
	if err != nil {
		return domain.User{}, false, err
	}
	return userFromModel(model, following), true, nil
}

func (s *GormStore) loadFollowing(id string) ([]string, error) {
	var following []string
	err := s.db.Model(&FollowModel{}).
		Where("follower_id = ?", id).
		Order("created_at ASC").
		Pluck("followee_id", &following).Error
	return following, err
}

// usersQuery applies the predicate of a UserQuery without ordering or
// windowing so the same conditions feed both the page read and the
// independent total count.
func (s *GormStore) usersQuery(q UserQuery) *gorm.DB {
	tx := s.db.Model(&UserModel{})
	for _, c := range q.Filter.Constraints {
		column, ok := userColumns[c.Field]
		if !ok {
			continue
		}
		switch c.Match {
		case query.MatchSubstring:
			tx = tx.Where(fmt.Sprintf("users.%s ILIKE ?", column), "%"+escapeLike(c.Value)+"%")
		default:
			tx = tx.Where(fmt.Sprintf("users.%s = ?", column), c.Value)
		}
	}
	if len(q.IDIn) > 0 {
		tx = tx.Where("users.id IN ?", q.IDIn)
	}
	if q.FollowerOf != "" {
		tx = tx.Joins(
			"JOIN follows ON follows.follower_id = users.id AND follows.followee_id = ?",
			q.FollowerOf,
		)
	}
	return tx
}

// ListUsers returns one page of users with roles joined plus the total
// number of users matching the predicate alone.
func (s *GormStore) ListUsers(q UserQuery) ([]domain.User, int64, error) {
	var total int64
	if err := s.usersQuery(q).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []UserModel
	err := s.usersQuery(q).
		Preload("Roles").
		Order(orderClause("users", q.Sort, userColumns)).
		Offset(q.Page.Offset()).
		Limit(q.Page.Limit()).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}
	users := make([]domain.User, 0, len(models))
	for _, m := range models {
		users = append(users, userFromModel(m, nil))
	}
	return users, total, nil
}

// SearchUsers matches usernames case-insensitively, ascending, capped.
func (s *GormStore) SearchUsers(username string, limit int) ([]domain.User, error) {
	var models []UserModel
	err := s.db.Preload("Roles").
		Where("username ILIKE ?", "%"+escapeLike(username)+"%").
		Order("username ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(models))
	for _, m := range models {
		users = append(users, userFromModel(m, nil))
	}
	return users, nil
}

// UpdateUser replaces all profile fields and role references of a user.
func (s *GormStore) UpdateUser(u domain.User) (domain.User, bool, error) {
	var existing UserModel
	if err := s.db.First(&existing, "id = ?", u.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	model := userToModel(u)
	model.CreatedAt = existing.CreatedAt
	model.UpdatedAt = time.Now().UTC()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Roles").Save(&model).Error; err != nil {
			return err
		}
		return tx.Model(&model).Association("Roles").Replace(model.Roles)
	})
	if err != nil {
		return domain.User{}, false, err
	}
	return s.GetUserByID(u.ID)
}

// EditUser applies a partial profile update.
func (s *GormStore) EditUser(id string, edit UserEdit) (domain.User, bool, error) {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if edit.FirstName != nil {
		updates["first_name"] = *edit.FirstName
	}
	if edit.LastName != nil {
		updates["last_name"] = *edit.LastName
	}
	if edit.PhotoURL != nil {
		updates["photo_url"] = *edit.PhotoURL
	}
	if edit.MoodMessage != nil {
		updates["mood_message"] = *edit.MoodMessage
	}
	res := s.db.Model(&UserModel{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return domain.User{}, false, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.User{}, false, nil
	}
	return s.GetUserByID(id)
}

// DeleteUser removes a user along with its role links, follow edges in
// both directions, and hearts it placed. Questions referencing the user
// are left in place; their joined answerer resolves to null.
func (s *GormStore) DeleteUser(id string) (bool, error) {
	var deleted bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM user_roles WHERE user_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&FollowModel{}, "follower_id = ? OR followee_id = ?", id, id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&HeartModel{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&UserModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}

// follow edges

// AddFollowing inserts a follow edge; inserting an existing edge is a
// no-op so concurrent toggles collapse instead of failing.
func (s *GormStore) AddFollowing(followerID, followeeID string) error {
	edge := FollowModel{
		FollowerID: followerID,
		FolloweeID: followeeID,
		CreatedAt:  time.Now().UTC(),
	}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge).Error
}

// RemoveFollowing deletes a follow edge if present.
func (s *GormStore) RemoveFollowing(followerID, followeeID string) error {
	return s.db.Delete(&FollowModel{}, "follower_id = ? AND followee_id = ?", followerID, followeeID).Error
}

// roles

func (s *GormStore) CreateRole(role domain.Role) error {
	model := RoleModel{ID: role.ID, Name: role.Name}
	return s.db.Create(&model).Error
}

func (s *GormStore) GetRole(id string) (domain.Role, bool, error) {
	var model RoleModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Role{}, false, nil
		}
		return domain.Role{}, false, err
	}
	return domain.Role{ID: model.ID, Name: model.Name}, true, nil
}

func (s *GormStore) GetRoleByName(name string) (domain.Role, bool, error) {
	var model RoleModel
	if err := s.db.First(&model, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Role{}, false, nil
		}
		return domain.Role{}, false, err
	}
	return domain.Role{ID: model.ID, Name: model.Name}, true, nil
}

func (s *GormStore) ListRoles() ([]domain.Role, error) {
	var models []RoleModel
	if err := s.db.Order("name ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	roles := make([]domain.Role, 0, len(models))
	for _, m := range models {
		roles = append(roles, domain.Role{ID: m.ID, Name: m.Name})
	}
	return roles, nil
}

func (s *GormStore) DeleteRole(id string) (bool, error) {
	var deleted bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM user_roles WHERE role_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&RoleModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}

// questions

// CreateQuestion inserts a question in the unanswered state.
func (s *GormStore) CreateQuestion(q domain.Question) error {
	model, err := questionToModel(q)
	if err != nil {
		return err
	}
	return s.db.Create(&model).Error
}

// GetQuestionByID returns a question with its heart set and the joined
// answerer summary. A dangling answerer reference yields a nil summary,
// not an error.
func (s *GormStore) GetQuestionByID(id string) (domain.Question, bool, error) {
	var model QuestionModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Question{}, false, nil
		}
		return domain.Question{}, false, err
	}
	var hearts []string
	err := s.db.Model(&HeartModel{}).
		Where("question_id = ?", id).
		Order("created_at ASC").
		Pluck("user_id", &hearts).Error
	if err != nil {
		return domain.Question{}, false, err
	}
	question, err := questionFromModel(model)
	if err != nil {
		return domain.Question{}, false, err
	}
	question.Hearts = hearts
	question.HeartCount = len(hearts)
	summaries, err := s.answererSummaries([]string{model.AnswererID})
	if err != nil {
		return domain.Question{}, false, err
	}
	if summary, ok := summaries[model.AnswererID]; ok {
		question.Answerer = &summary
	}
	return question, true, nil
}

func (s *GormStore) questionsQuery(q QuestionQuery) *gorm.DB {
	tx := s.db.Model(&QuestionModel{})
	if q.AnswererID != "" {
		tx = tx.Where("answerer_id = ?", q.AnswererID)
	}
	if len(q.AnswererIn) > 0 {
		tx = tx.Where("answerer_id IN ?", q.AnswererIn)
	}
	if q.Answered != nil {
		tx = tx.Where("answered = ?", *q.Answered)
	}
	return tx
}

type questionRow struct {
	QuestionModel
	HeartCount int
}

// ListQuestions returns one windowed page of questions with the derived
// heart count and joined answerer summaries, plus the uncapped total.
func (s *GormStore) ListQuestions(q QuestionQuery) ([]domain.Question, int64, error) {
	var total int64
	if err := s.questionsQuery(q).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []questionRow
	err := s.questionsQuery(q).
		Select("questions.*, (SELECT COUNT(*) FROM question_hearts WHERE question_hearts.question_id = questions.id) AS heart_count").
		Order(orderClause("questions", q.Sort, questionColumns)).
		Offset(q.Page.Offset()).
		Limit(q.Page.Limit()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	answererIDs := make([]string, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		if !seen[row.AnswererID] {
			seen[row.AnswererID] = true
			answererIDs = append(answererIDs, row.AnswererID)
		}
	}
	summaries, err := s.answererSummaries(answererIDs)
	if err != nil {
		return nil, 0, err
	}

	questions := make([]domain.Question, 0, len(rows))
	for _, row := range rows {
		question, err := questionFromModel(row.QuestionModel)
		if err != nil {
			return nil, 0, err
		}
		question.HeartCount = row.HeartCount
		if summary, ok := summaries[row.AnswererID]; ok {
			question.Answerer = &summary
		}
		questions = append(questions, question)
	}
	return questions, total, nil
}

// answererSummaries is the dependent user lookup for question results.
// IDs that no longer resolve are simply absent from the map.
func (s *GormStore) answererSummaries(ids []string) (map[string]domain.UserSummary, error) {
	summaries := make(map[string]domain.UserSummary, len(ids))
	if len(ids) == 0 {
		return summaries, nil
	}
	var models []UserModel
	if err := s.db.Select("id", "username", "photo_url").Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, err
	}
	for _, m := range models {
		summaries[m.ID] = domain.UserSummary{
			ID:       m.ID,
			Username: m.Username,
			PhotoURL: m.PhotoURL,
		}
	}
	return summaries, nil
}

// AnswerQuestion stamps the answered state in one atomic update.
func (s *GormStore) AnswerQuestion(id, answerBody string, answerAudio *domain.Attachment) (bool, error) {
	audio, err := attachmentToJSON(answerAudio)
	if err != nil {
		return false, err
	}
	now := time.Now().UTC()
	res := s.db.Model(&QuestionModel{}).Where("id = ?", id).Updates(map[string]any{
		"answered":     true,
		"answered_at":  now,
		"answer_body":  answerBody,
		"answer_audio": audio,
		"updated_at":   now,
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UnanswerQuestion clears the answer fields and empties the heart set.
// Hearts are answer-scoped and never survive the transition.
func (s *GormStore) UnanswerQuestion(id string) (bool, error) {
	var found bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&QuestionModel{}).Where("id = ?", id).Updates(map[string]any{
			"answered":     false,
			"answered_at":  nil,
			"answer_body":  "",
			"answer_audio": nil,
			"updated_at":   time.Now().UTC(),
		})
		if res.Error != nil {
			return res.Error
		}
		found = res.RowsAffected > 0
		if !found {
			return nil
		}
		return tx.Delete(&HeartModel{}, "question_id = ?", id).Error
	})
	return found, err
}

// DeleteQuestion removes a question and its heart set permanently.
func (s *GormStore) DeleteQuestion(id string) (bool, error) {
	var deleted bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&HeartModel{}, "question_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&QuestionModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}

// hearts

// AddHeart inserts a heart; duplicates collapse server-side.
func (s *GormStore) AddHeart(questionID, userID string) error {
	heart := HeartModel{
		QuestionID: questionID,
		UserID:     userID,
		CreatedAt:  time.Now().UTC(),
	}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&heart).Error
}

// RemoveHeart deletes a heart if present.
func (s *GormStore) RemoveHeart(questionID, userID string) error {
	return s.db.Delete(&HeartModel{}, "question_id = ? AND user_id = ?", questionID, userID).Error
}

// helpers

// orderClause renders a composite ordering with a stable tiebreak on
// creation time then id so pagination stays deterministic across pages.
func orderClause(table string, orders []query.Order, columns map[string]string) string {
	var parts []string
	for _, order := range orders {
		column, ok := columns[order.Field]
		if !ok {
			continue
		}
		direction := "ASC"
		if order.Desc {
			direction = "DESC"
		}
		parts = append(parts, fmt.Sprintf("%s.%s %s", table, column, direction))
	}
	parts = append(parts,
		fmt.Sprintf("%s.created_at DESC", table),
		fmt.Sprintf("%s.id ASC", table),
	)
	return strings.Join(parts, ", ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}

func userToModel(u domain.User) UserModel {
	roles := make([]RoleModel, 0, len(u.Roles))
	for _, role := range u.Roles {
		roles = append(roles, RoleModel{ID: role.ID, Name: role.Name})
	}
	return UserModel{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PhotoURL:     u.PhotoURL,
		MoodMessage:  u.MoodMessage,
		Roles:        roles,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel, following []string) domain.User {
	roles := make([]domain.Role, 0, len(m.Roles))
	for _, role := range m.Roles {
		roles = append(roles, domain.Role{ID: role.ID, Name: role.Name})
	}
	return domain.User{
		ID:           m.ID,
		Username:     m.Username,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		PhotoURL:     m.PhotoURL,
		MoodMessage:  m.MoodMessage,
		Roles:        roles,
		Following:    following,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func questionToModel(q domain.Question) (QuestionModel, error) {
	questionAudio, err := attachmentToJSON(q.QuestionAudio)
	if err != nil {
		return QuestionModel{}, err
	}
	answerAudio, err := attachmentToJSON(q.AnswerAudio)
	if err != nil {
		return QuestionModel{}, err
	}
	return QuestionModel{
		ID:            q.ID,
		QuestionerID:  q.QuestionerID,
		AnswererID:    q.AnswererID,
		QuestionBody:  q.QuestionBody,
		QuestionAudio: questionAudio,
		Answered:      q.Answered,
		AnsweredAt:    q.AnsweredAt,
		AnswerBody:    q.AnswerBody,
		AnswerAudio:   answerAudio,
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
	}, nil
}

func questionFromModel(m QuestionModel) (domain.Question, error) {
	questionAudio, err := attachmentFromJSON(m.QuestionAudio)
	if err != nil {
		return domain.Question{}, err
	}
	answerAudio, err := attachmentFromJSON(m.AnswerAudio)
	if err != nil {
		return domain.Question{}, err
	}
	return domain.Question{
		ID:            m.ID,
		QuestionerID:  m.QuestionerID,
		AnswererID:    m.AnswererID,
		QuestionBody:  m.QuestionBody,
		QuestionAudio: questionAudio,
		Answered:      m.Answered,
		AnsweredAt:    m.AnsweredAt,
		AnswerBody:    m.AnswerBody,
		AnswerAudio:   answerAudio,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}, nil
}

func attachmentToJSON(a *domain.Attachment) (datatypes.JSON, error) {
	if a == nil {
		return nil, nil
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode attachment: %w", err)
	}
	return datatypes.JSON(raw), nil
}

func attachmentFromJSON(raw datatypes.JSON) (*domain.Attachment, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var attachment domain.Attachment
	if err := json.Unmarshal(raw, &attachment); err != nil {
		return nil, fmt.Errorf("decode attachment: %w", err)
	}
	return &attachment, nil
}
