package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"hasker/backend/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	UsernameMaxLength = 150
	PasswordMinLength = 8
)

var (
	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

	commonPasswords = map[string]bool{
		"password": true, "password1": true, "password123": true, "passw0rd": true,
		"12345678": true, "123456789": true, "1234567890": true, "qwertyuiop": true,
		"qwerty123": true, "iloveyou": true, "sunshine": true, "princess": true,
		"football": true, "baseball": true, "welcome1": true, "superman": true,
		"trustno1": true, "abc12345": true, "letmein1": true, "starwars": true,
		"whatever": true, "dragon12": true, "michael1": true, "computer": true,
	}

	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := RegisterValidators(v); err != nil {
		panic(err)
	}
	return v
}

// RegisterValidators adds the "username" and "taglist" rules to v.
func RegisterValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("taglist", func(fl validator.FieldLevel) bool {
		_, err := ParseTags(fl.Field().String())
		return err == nil
	})
}

// RegisterInput holds the sign-up form.
type RegisterInput struct {
	Username     string
	Email        string
	Password     string
	Confirmation string
}

// UserService manages accounts.
type UserService struct {
	db  *gorm.DB
	log *logrus.Logger
}

func NewUserService(db *gorm.DB, log *logrus.Logger) *UserService {
	return &UserService{db: db, log: log}
}

// Register validates the input and creates the account.
func (s *UserService) Register(in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if err := validate.Var(in.Username, fmt.Sprintf("required,max=%d,username", UsernameMaxLength)); err != nil {
		return nil, fieldError("username", err)
	}
	if err := checkEmail(in.Email); err != nil {
		return nil, err
	}
	if in.Password != in.Confirmation {
		return nil, invalid("password_confirmation", "the two password fields didn't match")
	}
	if err := CheckPassword(in.Password, in.Username); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("username = ?", in.Username).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if count > 0 {
		return nil, invalid("username", "a user with that username already exists")
	}
	if err := s.checkEmailFree(in.Email, 0); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
	}
	if err := s.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.WithField("user_id", user.ID).Info("User registered")
	return user, nil
}

// Authenticate checks a username or e-mail and password pair.
func (s *UserService) Authenticate(login, password string) (*models.User, error) {
	login = strings.TrimSpace(login)
	for _, column := range []string{"username", "email"} {
		var user models.User
		err := s.db.Where(column+" = ?", login).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("find user: %w", err)
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil {
			return &user, nil
		}
	}
	return nil, ErrInvalidCredentials
}

// Get loads a user by id.
func (s *UserService) Get(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &user, nil
}

// UpdateSettings changes the e-mail and, when avatar is not empty, the
// avatar path.
func (s *UserService) UpdateSettings(userID uint, email, avatar string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if err := checkEmail(email); err != nil {
		return nil, err
	}
	if err := s.checkEmailFree(email, userID); err != nil {
		return nil, err
	}

	user, err := s.Get(userID)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{"email": email}
	if avatar != "" {
		updates["avatar"] = avatar
	}
	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	return s.Get(userID)
}

// Rating is the sum of the ratings of the user's questions and answers.
func (s *UserService) Rating(userID uint) (int, error) {
	var fromQuestions, fromAnswers int64
	if err := s.db.Model(&models.Question{}).Where("author_id = ?", userID).
		Select("COALESCE(SUM(rating), 0)").Scan(&fromQuestions).Error; err != nil {
		return 0, fmt.Errorf("question rating: %w", err)
	}
	if err := s.db.Model(&models.Answer{}).Where("author_id = ?", userID).
		Select("COALESCE(SUM(rating), 0)").Scan(&fromAnswers).Error; err != nil {
		return 0, fmt.Errorf("answer rating: %w", err)
	}
	return int(fromQuestions + fromAnswers), nil
}

// Profile is a user with activity totals.
type Profile struct {
	User      *models.User
	Rating    int
	Questions int64
	Answers   int64
}

// Profile loads a user with their rating and post counts.
func (s *UserService) Profile(id uint) (*Profile, error) {
	user, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	p := &Profile{User: user}
	if p.Rating, err = s.Rating(id); err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Question{}).Where("author_id = ?", id).Count(&p.Questions).Error; err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	if err := s.db.Model(&models.Answer{}).Where("author_id = ?", id).Count(&p.Answers).Error; err != nil {
		return nil, fmt.Errorf("count answers: %w", err)
	}
	return p, nil
}

func (s *UserService) checkEmailFree(email string, self uint) error {
	var count int64
	if err := s.db.Model(&models.User{}).
		Where("LOWER(email) = LOWER(?) AND id <> ?", email, self).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return invalid("email", "a user with that e-mail already exists")
	}
	return nil
}

func checkEmail(email string) error {
	if err := validate.Var(email, "required,email,max=255"); err != nil {
		return fieldError("email", err)
	}
	return nil
}

// CheckPassword applies the password strength rules.
func CheckPassword(password, username string) error {
	if len([]rune(password)) < PasswordMinLength {
		return invalid("password", "this password is too short; it must contain at least %d characters", PasswordMinLength)
	}
	if isAllDigits(password) {
		return invalid("password", "this password is entirely numeric")
	}
	if commonPasswords[strings.ToLower(password)] {
		return invalid("password", "this password is too common")
	}
	if username != "" && strings.EqualFold(password, username) {
		return invalid("password", "the password is too similar to the username")
	}
	return nil
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func fieldError(field string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return invalid(field, "invalid value")
	}
	switch fe := verrs[0]; fe.Tag() {
	case "required":
		return invalid(field, "this field is required")
	case "max":
		return invalid(field, "must be at most %s characters", fe.Param())
	case "email":
		return invalid(field, "enter a valid e-mail address")
	case "username":
		return invalid(field, "letters, digits and @/./+/-/_ only")
	default:
		return invalid(field, "invalid value")
	}
}
