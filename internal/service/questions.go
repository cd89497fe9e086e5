package service

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"hasker/backend/internal/hub"
	"hasker/backend/internal/metrics"
	"hasker/backend/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TagQueryPrefix switches a search to tag lookup (e.g., "tag:go").
const TagQueryPrefix = "tag:"

// Notifier is told about new answers so it can alert the question author.
type Notifier interface {
	NewAnswer(question *models.Question, answer *models.Answer)
}

// Publisher pushes live events to the clients watching a question.
type Publisher interface {
	Broadcast(questionID uint, event hub.Event)
}

// QuestionService reads and writes questions and their answers.
type QuestionService struct {
	db        *gorm.DB
	notifier  Notifier
	publisher Publisher
	log       *logrus.Logger
}

// NewQuestionService returns a service backed by db. notifier may be nil.
func NewQuestionService(db *gorm.DB, notifier Notifier, log *logrus.Logger) *QuestionService {
	return &QuestionService{db: db, notifier: notifier, log: log}
}

// WithPublisher makes the service announce answers, votes and accepted
// answers to p.
func (s *QuestionService) WithPublisher(p Publisher) *QuestionService {
	s.publisher = p
	return s
}

func (s *QuestionService) publish(questionID uint, kind string, payload any) {
	if s.publisher != nil {
		s.publisher.Broadcast(questionID, hub.Event{Type: kind, Payload: payload})
	}
}

const (
	recentOrder   = "questions.created_at DESC, questions.rating DESC, questions.id DESC"
	trendingOrder = "questions.rating DESC, questions.created_at DESC, questions.id DESC"
	answerOrder   = "answers.rating DESC, answers.created_at DESC, answers.id DESC"
)

func (s *QuestionService) questions() *gorm.DB {
	return s.db.Model(&models.Question{})
}

// Recent lists questions newest first.
func (s *QuestionService) Recent(page, size int) (*Page[models.Question], error) {
	return paginate[models.Question](s.questions, page, size, false, recentOrder, "Author", "Tags")
}

// Trending lists questions by rating, highest first.
func (s *QuestionService) Trending(page, size int) (*Page[models.Question], error) {
	return paginate[models.Question](s.questions, page, size, false, trendingOrder, "Author", "Tags")
}

// TopTrending returns the n best rated questions.
func (s *QuestionService) TopTrending(n int) ([]models.Question, error) {
	var questions []models.Question
	if err := s.questions().Order(trendingOrder).Limit(n).Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("top trending: %w", err)
	}
	return questions, nil
}

// TagFromQuery reports whether q is a tag search and returns the tag name.
func TagFromQuery(q string) (string, bool) {
	q = strings.TrimSpace(q)
	if !strings.HasPrefix(q, TagQueryPrefix) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(q, TagQueryPrefix)), true
}

// Search matches q case-insensitively against titles and bodies, best rated
// first. A "tag:" prefix searches by tag instead.
func (s *QuestionService) Search(q string, page, size int) (*Page[models.Question], error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, invalid("q", "search query must not be empty")
	}
	if tag, ok := TagFromQuery(q); ok {
		return s.ByTag(tag, page, size)
	}

	pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
	query := func() *gorm.DB {
		return s.questions().Where(
			`LOWER(questions.title) LIKE ? ESCAPE '\' OR LOWER(questions.body) LIKE ? ESCAPE '\'`,
			pattern, pattern,
		)
	}
	return paginate[models.Question](query, page, size, false, trendingOrder, "Author", "Tags")
}

// ByTag lists questions carrying the tag name, best rated first. An unknown
// tag yields an empty page.
func (s *QuestionService) ByTag(name string, page, size int) (*Page[models.Question], error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("tag", "tag name must not be empty")
	}

	query := func() *gorm.DB {
		tagged := s.db.Table("question_tags").
			Select("question_tags.question_id").
			Joins("JOIN tags ON tags.id = question_tags.tag_id").
			Where("tags.name = ? AND tags.deleted_at IS NULL", name)
		return s.questions().Where("questions.id IN (?)", tagged)
	}
	return paginate[models.Question](query, page, size, false, trendingOrder, "Author", "Tags")
}

// Get loads a question with its author and tags.
func (s *QuestionService) Get(id uint) (*models.Question, error) {
	var q models.Question
	if err := s.db.Preload("Author").Preload("Tags").First(&q, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get question %d: %w", id, err)
	}
	return &q, nil
}

// Answers lists the answers of a question, best rated first.
func (s *QuestionService) Answers(questionID uint, page, size int) (*Page[models.Answer], error) {
	return s.answers(questionID, page, size, false)
}

// AnswersClamped is Answers for the question page: a page past the end
// shows the last page.
func (s *QuestionService) AnswersClamped(questionID uint, page int) (*Page[models.Answer], error) {
	return s.answers(questionID, page, AnswersPerPage, true)
}

func (s *QuestionService) answers(questionID uint, page, size int, clamp bool) (*Page[models.Answer], error) {
	if err := s.exists(&models.Question{}, questionID); err != nil {
		return nil, err
	}
	query := func() *gorm.DB {
		return s.db.Model(&models.Answer{}).Where("answers.question_id = ?", questionID)
	}
	return paginate[models.Answer](query, page, size, clamp, answerOrder, "Author")
}

func (s *QuestionService) exists(model any, id uint) error {
	var count int64
	if err := s.db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("lookup %d: %w", id, err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

// Create stores a new question. rawTags is a comma-separated list; missing
// tags are created and existing ones reused.
func (s *QuestionService) Create(authorID uint, title, body, rawTags string) (*models.Question, error) {
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)
	if err := checkText("title", title, models.TitleMaxLength); err != nil {
		return nil, err
	}
	if err := checkText("body", body, models.BodyMaxLength); err != nil {
		return nil, err
	}
	names, err := ParseTags(rawTags)
	if err != nil {
		return nil, err
	}

	q := &models.Question{AuthorID: authorID, Title: title, Body: body}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		tags, err := resolveTags(tx, names)
		if err != nil {
			return err
		}
		q.Tags = tags
		if err := tx.Omit("Author", "Tags.*").Create(q).Error; err != nil {
			return fmt.Errorf("create question: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordPost("question")
	s.log.WithFields(logrus.Fields{"question_id": q.ID, "author_id": authorID}).Info("Question created")
	return s.Get(q.ID)
}

func resolveTags(tx *gorm.DB, names []string) ([]*models.Tag, error) {
	tags := make([]*models.Tag, 0, len(names))
	for _, name := range names {
		tag := &models.Tag{}
		if err := tx.Where(models.Tag{Name: name}).FirstOrCreate(tag).Error; err != nil {
			return nil, fmt.Errorf("resolve tag %q: %w", name, err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// AddAnswer stores an answer and notifies the question author.
func (s *QuestionService) AddAnswer(questionID, authorID uint, body string) (*models.Answer, error) {
	body = strings.TrimSpace(body)
	if err := checkText("body", body, models.BodyMaxLength); err != nil {
		return nil, err
	}

	q, err := s.Get(questionID)
	if err != nil {
		return nil, err
	}

	a := &models.Answer{QuestionID: q.ID, AuthorID: authorID, Body: body}
	if err := s.db.Omit("Question", "Author").Create(a).Error; err != nil {
		return nil, fmt.Errorf("create answer: %w", err)
	}
	if err := s.db.First(&a.Author, authorID).Error; err != nil {
		return nil, fmt.Errorf("load answer author: %w", err)
	}

	metrics.RecordPost("answer")
	s.log.WithFields(logrus.Fields{"question_id": q.ID, "answer_id": a.ID, "author_id": authorID}).Info("Answer added")

	s.publish(q.ID, hub.EventAnswer, map[string]any{"answer_id": a.ID, "author": a.Author.Username})
	if s.notifier != nil && q.AuthorID != authorID {
		s.notifier.NewAnswer(q, a)
	}
	return a, nil
}

// AcceptAnswer marks the answer as the accepted one of its question. Only
// the question author may do it. Accepting the accepted answer clears it.
func (s *QuestionService) AcceptAnswer(questionID, answerID, userID uint) (*models.Answer, error) {
	var answer models.Answer
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var q models.Question
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&q, questionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("lock question: %w", err)
		}
		if q.AuthorID != userID {
			return ErrForbidden
		}

		if err := tx.Where("question_id = ?", q.ID).First(&answer, answerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("get answer: %w", err)
		}

		if answer.IsAccepted {
			answer.IsAccepted = false
			return tx.Model(&answer).Update("is_accepted", false).Error
		}

		if err := tx.Model(&models.Answer{}).
			Where("question_id = ? AND is_accepted = ?", q.ID, true).
			Update("is_accepted", false).Error; err != nil {
			return fmt.Errorf("clear accepted answer: %w", err)
		}
		answer.IsAccepted = true
		return tx.Model(&answer).Update("is_accepted", true).Error
	})
	if err != nil {
		return nil, err
	}
	if err := s.db.Preload("Author").First(&answer, answer.ID).Error; err != nil {
		return nil, fmt.Errorf("reload answer: %w", err)
	}
	s.publish(questionID, hub.EventAccept, map[string]any{"answer_id": answer.ID, "accepted": answer.IsAccepted})
	return &answer, nil
}

func checkText(field, value string, max int) error {
	if value == "" {
		return invalid(field, "this field is required")
	}
	if utf8.RuneCountInString(value) > max {
		return invalid(field, "must be at most %d characters", max)
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
