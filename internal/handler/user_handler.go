package handler

import (
	"net/http"
	"time"

	"hasker/backend/internal/auth"
	"hasker/backend/internal/media"
	"hasker/backend/internal/service"
	"hasker/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

// RegisterInput defines the structure for user registration.
type RegisterInput struct {
	Username             string `json:"username" binding:"required,max=150" example:"testuser"`
	Email                string `json:"email" binding:"required,email" example:"test@example.com"`
	Password             string `json:"password" binding:"required" example:"s3cret-enough"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required" example:"s3cret-enough"`
}

// LoginInput defines the structure for user login.
type LoginInput struct {
	Login    string `json:"login" binding:"required" example:"testuser"`
	Password string `json:"password" binding:"required" example:"s3cret-enough"`
}

// TokenResponse carries a freshly issued JWT.
type TokenResponse struct {
	Token string `json:"token" example:"eyJhbGciOiJIUzI1NiIs..."`
}

// PublicUserResponse defines the structure for a user's public profile.
type PublicUserResponse struct {
	ID             uint      `json:"id" example:"1"`
	Username       string    `json:"username" example:"testuser"`
	AvatarURL      string    `json:"avatar_url,omitempty" example:"/media/avatars/1f0c.png"`
	Rating         int       `json:"rating" example:"12"`
	QuestionsCount int64     `json:"questions_count" example:"3"`
	AnswersCount   int64     `json:"answers_count" example:"8"`
	JoinedAt       time.Time `json:"joined_at"`
}

// PrivateUserResponse defines the structure for the authenticated user's own profile.
type PrivateUserResponse struct {
	PublicUserResponse
	Email string `json:"email" example:"test@example.com"`
}

// endregion

// UserHandler serves authentication and profiles.
type UserHandler struct {
	users     *service.UserService
	media     *media.Store
	jwtSecret string
	jwtTTL    time.Duration
}

func NewUserHandler(users *service.UserService, store *media.Store, jwtSecret string, jwtTTL time.Duration) *UserHandler {
	return &UserHandler{users: users, media: store, jwtSecret: jwtSecret, jwtTTL: jwtTTL}
}

// region --- Auth Handlers ---

// RegisterUser godoc
// @Summary      Register a new user
// @Description  Creates a new user and returns an authentication token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body RegisterInput true "Registration Info"
// @Success      201  {object}  TokenResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      429  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /auth/register [post]
func (h *UserHandler) RegisterUser(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.users.Register(service.RegisterInput{
		Username:     input.Username,
		Email:        input.Email,
		Password:     input.Password,
		Confirmation: input.PasswordConfirmation,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := jwt.GenerateToken(user.ID, h.jwtSecret, h.jwtTTL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, TokenResponse{Token: token})
}

// LoginUser godoc
// @Summary      Log in a user
// @Description  Authenticates a user with username/email and password, and returns a new token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body LoginInput true "Login Info"
// @Success      200  {object}  TokenResponse
// @Failure      400  {object}  ErrorResponse "Invalid input"
// @Failure      401  {object}  ErrorResponse "Invalid credentials"
// @Failure      429  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse "Internal server error"
// @Router       /auth/login [post]
func (h *UserHandler) LoginUser(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.users.Authenticate(input.Login, input.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := jwt.GenerateToken(user.ID, h.jwtSecret, h.jwtTTL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, TokenResponse{Token: token})
}

// endregion

// region --- User Handlers ---

// GetUserByID godoc
// @Summary      Get user by ID
// @Description  Retrieves the public profile for a specific user, including their rating.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  PublicUserResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/{id} [get]
func (h *UserHandler) GetUserByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	profile, err := h.users.Profile(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.buildPublicUserResponse(profile))
}

// GetMe godoc
// @Summary      Get current user's info
// @Description  Retrieves the private profile for the currently authenticated user.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  PrivateUserResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	viewerID, _ := auth.UserID(c)

	profile, err := h.users.Profile(viewerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, PrivateUserResponse{
		PublicUserResponse: h.buildPublicUserResponse(profile),
		Email:              profile.User.Email,
	})
}

// endregion

func (h *UserHandler) buildPublicUserResponse(p *service.Profile) PublicUserResponse {
	return PublicUserResponse{
		ID:             p.User.ID,
		Username:       p.User.Username,
		AvatarURL:      h.media.URL(p.User.Avatar),
		Rating:         p.Rating,
		QuestionsCount: p.Questions,
		AnswersCount:   p.Answers,
		JoinedAt:       p.User.CreatedAt,
	}
}
