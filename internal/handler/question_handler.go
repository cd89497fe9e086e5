package handler

import (
	"net/http"
	"strings"
	"time"

	"hasker/backend/internal/auth"
	"hasker/backend/internal/media"
	"hasker/backend/internal/models"
	"hasker/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

// AuthorResponse is the public part of a user embedded in posts.
type AuthorResponse struct {
	ID        uint   `json:"id" example:"1"`
	Username  string `json:"username" example:"alice"`
	AvatarURL string `json:"avatar_url,omitempty" example:"/media/avatars/1f0c.png"`
}

// QuestionResponse defines the structure of a question.
type QuestionResponse struct {
	ID        uint           `json:"id" example:"1"`
	Title     string         `json:"title" example:"How do I use channels?"`
	Body      string         `json:"body" example:"I want to fan out work to goroutines."`
	Author    AuthorResponse `json:"author"`
	Tags      []string       `json:"tags" example:"go,concurrency"`
	Rating    int            `json:"rating" example:"3"`
	CreatedAt time.Time      `json:"created_at"`
}

// AnswerResponse defines the structure of an answer.
type AnswerResponse struct {
	ID         uint           `json:"id" example:"1"`
	QuestionID uint           `json:"question_id" example:"1"`
	Body       string         `json:"body" example:"Use a buffered channel."`
	Author     AuthorResponse `json:"author"`
	Rating     int            `json:"rating" example:"1"`
	IsAccepted bool           `json:"is_accepted"`
	CreatedAt  time.Time      `json:"created_at"`
}

// CreateQuestionInput defines the structure for asking a question.
type CreateQuestionInput struct {
	Title string `json:"title" binding:"required,max=100" example:"How do I use channels?"`
	Body  string `json:"body" binding:"required,max=1000" example:"I want to fan out work to goroutines."`
	Tags  string `json:"tags" binding:"omitempty,taglist" example:"go,concurrency"`
}

// CreateAnswerInput defines the structure for answering a question.
type CreateAnswerInput struct {
	Body string `json:"body" binding:"required,max=1000" example:"Use a buffered channel."`
}

// VoteInput defines the structure for a vote.
type VoteInput struct {
	Value int `json:"value" binding:"required,oneof=1 -1" example:"1"`
}

// PaginatedQuestionResponse documents a page of questions.
type PaginatedQuestionResponse struct {
	Data []QuestionResponse `json:"data"`
	Meta PaginationMeta     `json:"meta"`
}

// PaginatedAnswerResponse documents a page of answers.
type PaginatedAnswerResponse struct {
	Data []AnswerResponse `json:"data"`
	Meta PaginationMeta   `json:"meta"`
}

// endregion

// QuestionHandler serves the question and answer resources.
type QuestionHandler struct {
	questions *service.QuestionService
	media     *media.Store
}

func NewQuestionHandler(questions *service.QuestionService, store *media.Store) *QuestionHandler {
	return &QuestionHandler{questions: questions, media: store}
}

// region --- Question Handlers ---

// ListQuestions godoc
// @Summary      List recent questions
// @Description  Questions ordered by creation date, newest first.
// @Tags         questions
// @Produce      json
// @Security     BearerAuth
// @Param        page       query     int  false  "Page number" default(1)
// @Param        page_size  query     int  false  "Items per page" default(20)
// @Success      200  {object}  PaginatedQuestionResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Page out of range"
// @Router       /questions [get]
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	page, size := pageParams(c)
	h.listQuestions(c, page, size, h.questions.Recent)
}

// TrendingQuestions godoc
// @Summary      List trending questions
// @Description  Questions ordered by rating, highest first.
// @Tags         questions
// @Produce      json
// @Security     BearerAuth
// @Param        page       query     int  false  "Page number" default(1)
// @Param        page_size  query     int  false  "Items per page" default(20)
// @Success      200  {object}  PaginatedQuestionResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Page out of range"
// @Router       /questions/trending [get]
func (h *QuestionHandler) TrendingQuestions(c *gin.Context) {
	page, size := pageParams(c)
	h.listQuestions(c, page, size, h.questions.Trending)
}

func (h *QuestionHandler) listQuestions(c *gin.Context, page, size int, list func(page, size int) (*service.Page[models.Question], error)) {
	p, err := list(page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromPage(p, h.questionResponse))
}

// TopTrending godoc
// @Summary      Top trending questions
// @Description  The 20 best rated questions.
// @Tags         questions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   QuestionResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /questions/top_trending [get]
func (h *QuestionHandler) TopTrending(c *gin.Context) {
	questions, err := h.questions.TopTrending(service.TrendingSize)
	if err != nil {
		respondError(c, err)
		return
	}
	response := make([]QuestionResponse, 0, len(questions))
	for i := range questions {
		response = append(response, h.questionResponse(&questions[i]))
	}
	c.JSON(http.StatusOK, response)
}

// SearchQuestions godoc
// @Summary      Search questions
// @Description  Case-insensitive search in titles and bodies. A "tag:" prefix searches by tag name.
// @Tags         questions
// @Produce      json
// @Security     BearerAuth
// @Param        q          query     string  true   "Search query, e.g. channels or tag:go"
// @Param        page       query     int     false  "Page number" default(1)
// @Param        page_size  query     int     false  "Items per page" default(20)
// @Success      200  {object}  PaginatedQuestionResponse
// @Failure      400  {object}  ErrorResponse "Missing query"
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Page out of range"
// @Router       /questions/search [get]
func (h *QuestionHandler) SearchQuestions(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Query parameter q is required", Field: "q"})
		return
	}
	page, size := pageParams(c)
	h.listQuestions(c, page, size, func(page, size int) (*service.Page[models.Question], error) {
		return h.questions.Search(q, page, size)
	})
}

// GetQuestion godoc
// @Summary      Get a question
// @Tags         questions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Question ID"
// @Success      200  {object}  QuestionResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /questions/{id} [get]
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	q, err := h.questions.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.questionResponse(q))
}

// CreateQuestion godoc
// @Summary      Ask a question
// @Description  Creates a question. Tags are comma separated, at most 3, each up to 20 characters.
// @Tags         questions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body CreateQuestionInput true "Question"
// @Success      201  {object}  QuestionResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /questions [post]
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var input CreateQuestionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	userID, _ := auth.UserID(c)

	q, err := h.questions.Create(userID, input.Title, input.Body, input.Tags)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.questionResponse(q))
}

// endregion

// region --- Answer Handlers ---

// ListAnswers godoc
// @Summary      List answers of a question
// @Description  Answers ordered by rating, then newest first.
// @Tags         answers
// @Produce      json
// @Security     BearerAuth
// @Param        id         path      int  true   "Question ID"
// @Param        page       query     int  false  "Page number" default(1)
// @Param        page_size  query     int  false  "Items per page" default(20)
// @Success      200  {object}  PaginatedAnswerResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /questions/{id}/answers [get]
func (h *QuestionHandler) ListAnswers(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	page, size := pageParams(c)
	p, err := h.questions.Answers(id, page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromPage(p, h.answerResponse))
}

// CreateAnswer godoc
// @Summary      Answer a question
// @Description  Adds an answer; the question author is notified by e-mail.
// @Tags         answers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id     path  int                true  "Question ID"
// @Param        input  body  CreateAnswerInput  true  "Answer"
// @Success      201  {object}  AnswerResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /questions/{id}/answers [post]
func (h *QuestionHandler) CreateAnswer(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input CreateAnswerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	userID, _ := auth.UserID(c)

	a, err := h.questions.AddAnswer(id, userID, input.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.answerResponse(a))
}

// AcceptAnswer godoc
// @Summary      Accept an answer
// @Description  Marks the answer as accepted. Only the question author may do it; accepting the accepted answer clears it.
// @Tags         answers
// @Produce      json
// @Security     BearerAuth
// @Param        id         path  int  true  "Question ID"
// @Param        answer_id  path  int  true  "Answer ID"
// @Success      200  {object}  AnswerResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Not the question author"
// @Failure      404  {object}  ErrorResponse
// @Router       /questions/{id}/answers/{answer_id}/accept [post]
func (h *QuestionHandler) AcceptAnswer(c *gin.Context) {
	questionID, ok := parseID(c, "id")
	if !ok {
		return
	}
	answerID, ok := parseID(c, "answer_id")
	if !ok {
		return
	}
	userID, _ := auth.UserID(c)

	a, err := h.questions.AcceptAnswer(questionID, answerID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.answerResponse(a))
}

// endregion

// region --- Vote Handlers ---

// VoteQuestion godoc
// @Summary      Vote on a question
// @Description  Value 1 votes up, -1 down. Repeating a vote retracts it; the opposite value flips it.
// @Tags         votes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id     path  int        true  "Question ID"
// @Param        input  body  VoteInput  true  "Vote"
// @Success      200  {object}  service.VoteResult
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /questions/{id}/vote [post]
func (h *QuestionHandler) VoteQuestion(c *gin.Context) {
	h.vote(c, models.TargetQuestion)
}

// VoteAnswer godoc
// @Summary      Vote on an answer
// @Description  Value 1 votes up, -1 down. Repeating a vote retracts it; the opposite value flips it.
// @Tags         votes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id     path  int        true  "Answer ID"
// @Param        input  body  VoteInput  true  "Vote"
// @Success      200  {object}  service.VoteResult
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /answers/{id}/vote [post]
func (h *QuestionHandler) VoteAnswer(c *gin.Context) {
	h.vote(c, models.TargetAnswer)
}

func (h *QuestionHandler) vote(c *gin.Context, target models.VoteTarget) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input VoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	userID, _ := auth.UserID(c)

	result, err := h.questions.Vote(target, id, userID, input.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// endregion

// region --- Helpers ---

func (h *QuestionHandler) author(u *models.User) AuthorResponse {
	return AuthorResponse{ID: u.ID, Username: u.Username, AvatarURL: h.media.URL(u.Avatar)}
}

func (h *QuestionHandler) questionResponse(q *models.Question) QuestionResponse {
	tags := make([]string, 0, len(q.Tags))
	for _, t := range q.Tags {
		tags = append(tags, t.Name)
	}
	return QuestionResponse{
		ID:        q.ID,
		Title:     q.Title,
		Body:      q.Body,
		Author:    h.author(&q.Author),
		Tags:      tags,
		Rating:    q.Rating,
		CreatedAt: q.CreatedAt,
	}
}

func (h *QuestionHandler) answerResponse(a *models.Answer) AnswerResponse {
	return AnswerResponse{
		ID:         a.ID,
		QuestionID: a.QuestionID,
		Body:       a.Body,
		Author:     h.author(&a.Author),
		Rating:     a.Rating,
		IsAccepted: a.IsAccepted,
		CreatedAt:  a.CreatedAt,
	}
}

// endregion
