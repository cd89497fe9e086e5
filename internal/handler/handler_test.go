package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hasker/backend/internal/auth"
	"hasker/backend/internal/media"
	"hasker/backend/internal/models"
	"hasker/backend/internal/service"
	"hasker/backend/internal/testutil"
	"hasker/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "handler-test-secret"

func setupRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)
	require.NoError(t, service.RegisterValidators(v))

	db := testutil.NewDB(t)
	log := testutil.Logger()
	store := media.NewStore(t.TempDir(), "/media", 1<<20)
	users := service.NewUserService(db, log)
	questions := NewQuestionHandler(service.NewQuestionService(db, nil, log), store)
	tags := NewTagHandler(service.NewTagService(db))
	accounts := NewUserHandler(users, store, testSecret, time.Hour)

	r := gin.New()
	api := r.Group("/api", auth.OptionalAuthMiddleware(testSecret, users))
	api.POST("/auth/register", accounts.RegisterUser)
	api.POST("/auth/login", accounts.LoginUser)

	protected := api.Group("", auth.AuthMiddleware())
	protected.GET("/users/me", accounts.GetMe)
	protected.GET("/users/:id", accounts.GetUserByID)
	protected.GET("/questions", questions.ListQuestions)
	protected.POST("/questions", questions.CreateQuestion)
	protected.GET("/questions/search", questions.SearchQuestions)
	protected.GET("/questions/top_trending", questions.TopTrending)
	protected.GET("/questions/:id", questions.GetQuestion)
	protected.GET("/questions/:id/answers", questions.ListAnswers)
	protected.POST("/questions/:id/answers", questions.CreateAnswer)
	protected.POST("/questions/:id/answers/:answer_id/accept", questions.AcceptAnswer)
	protected.POST("/questions/:id/vote", questions.VoteQuestion)
	protected.POST("/answers/:id/vote", questions.VoteAnswer)
	protected.GET("/tags", tags.GetTags)

	admin := protected.Group("/admin", auth.AdminMiddleware(users))
	admin.POST("/tags", tags.CreateTag)
	admin.PUT("/tags/:id", tags.UpdateTag)
	admin.DELETE("/tags/:id", tags.DeleteTag)
	return r, db
}

func tokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := jwt.GenerateToken(user.ID, testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func request(r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRegisterAndLogin(t *testing.T) {
	r, _ := setupRouter(t)

	input := RegisterInput{
		Username:             "carol",
		Email:                "carol@example.com",
		Password:             testutil.Password,
		PasswordConfirmation: testutil.Password,
	}
	w := request(r, http.MethodPost, "/api/auth/register", "", input)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	token := decode[TokenResponse](t, w).Token

	w = request(r, http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[PrivateUserResponse](t, w)
	assert.Equal(t, "carol", me.Username)
	assert.Equal(t, "carol@example.com", me.Email)

	w = request(r, http.MethodPost, "/api/auth/register", "", input)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "username", decode[ErrorResponse](t, w).Field)

	w = request(r, http.MethodPost, "/api/auth/login", "", LoginInput{Login: "carol@example.com", Password: testutil.Password})
	assert.Equal(t, http.StatusOK, w.Code)

	w = request(r, http.MethodPost, "/api/auth/login", "", LoginInput{Login: "carol", Password: "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	r, _ := setupRouter(t)

	w := request(r, http.MethodPost, "/api/auth/register", "", RegisterInput{
		Username:             "dave",
		Email:                "dave@example.com",
		Password:             "12345678",
		PasswordConfirmation: "12345678",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "password", decode[ErrorResponse](t, w).Field)
}

func TestCreateQuestionValidation(t *testing.T) {
	r, db := setupRouter(t)
	token := tokenFor(t, testutil.CreateUser(t, db, "alice"))

	tests := []struct {
		name  string
		input CreateQuestionInput
		code  int
	}{
		{"valid", CreateQuestionInput{Title: "Title", Body: "Body", Tags: "go"}, http.StatusCreated},
		{"no tags", CreateQuestionInput{Title: "Title", Body: "Body"}, http.StatusCreated},
		{"missing title", CreateQuestionInput{Body: "Body"}, http.StatusBadRequest},
		{"too many tags", CreateQuestionInput{Title: "Title", Body: "Body", Tags: "a,b,c,d"}, http.StatusBadRequest},
		{"tag too long", CreateQuestionInput{Title: "Title", Body: "Body", Tags: "abcdefghijklmnopqrstu"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := request(r, http.MethodPost, "/api/questions", token, tt.input)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	r, db := setupRouter(t)
	alice := testutil.CreateUser(t, db, "alice")
	token := tokenFor(t, alice)
	testutil.CreateQuestion(t, db, alice, "Goroutine leaks")

	w := request(r, http.MethodGet, "/api/questions/search", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = request(r, http.MethodGet, "/api/questions/search?q=goroutine", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[PaginatedQuestionResponse](t, w)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Goroutine leaks", page.Data[0].Title)
}

func TestVoteToggleAndFlip(t *testing.T) {
	r, db := setupRouter(t)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	q := testutil.CreateQuestion(t, db, alice, "Question")
	a := testutil.CreateAnswer(t, db, q, alice, "Answer")
	token := tokenFor(t, bob)
	path := fmt.Sprintf("/api/answers/%d/vote", a.ID)

	steps := []struct {
		value  int
		rating int
		vote   int
	}{
		{1, 1, 1},
		{-1, -1, -1},
		{-1, 0, 0},
	}
	for _, s := range steps {
		w := request(r, http.MethodPost, path, token, VoteInput{Value: s.value})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		result := decode[service.VoteResult](t, w)
		assert.Equal(t, s.rating, result.Rating)
		assert.Equal(t, s.vote, result.Vote)
	}

	var count int64
	require.NoError(t, db.Model(&models.Vote{}).Count(&count).Error)
	assert.Zero(t, count)

	w := request(r, http.MethodPost, path, token, gin.H{"value": 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = request(r, http.MethodPost, "/api/answers/999/vote", token, VoteInput{Value: 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAcceptAnswer(t *testing.T) {
	r, db := setupRouter(t)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	q := testutil.CreateQuestion(t, db, alice, "Question")
	first := testutil.CreateAnswer(t, db, q, bob, "First")
	second := testutil.CreateAnswer(t, db, q, bob, "Second")
	acceptPath := func(a *models.Answer) string {
		return fmt.Sprintf("/api/questions/%d/answers/%d/accept", q.ID, a.ID)
	}

	w := request(r, http.MethodPost, acceptPath(first), tokenFor(t, bob), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	owner := tokenFor(t, alice)
	w = request(r, http.MethodPost, acceptPath(first), owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[AnswerResponse](t, w).IsAccepted)

	w = request(r, http.MethodPost, acceptPath(second), owner, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var accepted []models.Answer
	require.NoError(t, db.Where("is_accepted = ?", true).Find(&accepted).Error)
	require.Len(t, accepted, 1)
	assert.Equal(t, second.ID, accepted[0].ID)
}

func TestAnswersEndpoint(t *testing.T) {
	r, db := setupRouter(t)
	alice := testutil.CreateUser(t, db, "alice")
	token := tokenFor(t, alice)
	q := testutil.CreateQuestion(t, db, alice, "Question")

	w := request(r, http.MethodPost, fmt.Sprintf("/api/questions/%d/answers", q.ID), token, CreateAnswerInput{Body: "Use a mutex."})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[AnswerResponse](t, w)
	assert.Equal(t, "alice", created.Author.Username)

	w = request(r, http.MethodGet, fmt.Sprintf("/api/questions/%d/answers", q.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[PaginatedAnswerResponse](t, w)
	assert.Len(t, page.Data, 1)
	assert.Equal(t, int64(1), page.Meta.TotalItems)

	w = request(r, http.MethodGet, "/api/questions/999/answers", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = request(r, http.MethodGet, "/api/questions/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminTags(t *testing.T) {
	r, db := setupRouter(t)
	alice := testutil.CreateUser(t, db, "alice")
	root := testutil.CreateUser(t, db, "root")
	require.NoError(t, db.Model(root).Update("role", models.RoleAdmin).Error)

	w := request(r, http.MethodPost, "/api/admin/tags", tokenFor(t, alice), TagInput{Name: "go"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin := tokenFor(t, root)
	w = request(r, http.MethodPost, "/api/admin/tags", admin, TagInput{Name: "go"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	tag := decode[TagResponse](t, w)

	w = request(r, http.MethodPost, "/api/admin/tags", admin, TagInput{Name: "go"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = request(r, http.MethodPut, fmt.Sprintf("/api/admin/tags/%d", tag.ID), admin, TagInput{Name: "golang"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "golang", decode[TagResponse](t, w).Name)

	w = request(r, http.MethodGet, "/api/tags", tokenFor(t, alice), nil)
	require.Equal(t, http.StatusOK, w.Code)
	tags := decode[[]service.TagCount](t, w)
	require.Len(t, tags, 1)
	assert.Equal(t, "golang", tags[0].Name)

	w = request(r, http.MethodDelete, fmt.Sprintf("/api/admin/tags/%d", tag.ID), admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = request(r, http.MethodDelete, fmt.Sprintf("/api/admin/tags/%d", tag.ID), admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNewPaginatedResponse(t *testing.T) {
	resp := NewPaginatedResponse[int](nil, 0, 1, 20)
	assert.NotNil(t, resp.Data)
	assert.Equal(t, 1, resp.Meta.TotalPages)

	resp = NewPaginatedResponse([]int{1, 2}, 41, 3, 20)
	assert.Equal(t, 3, resp.Meta.TotalPages)
	assert.Equal(t, 3, resp.Meta.CurrentPage)
}
