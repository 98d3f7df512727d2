package services

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"quizmaster/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	db              *gorm.DB
	jwtSecret       string
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
}

func NewAuthService(db *gorm.DB, jwtSecret string, accessTokenTTL, refreshTokenTTL time.Duration) *AuthService {
	return &AuthService{
		db:              db,
		jwtSecret:       jwtSecret,
		accessTokenTTL:  accessTokenTTL,
		refreshTokenTTL: refreshTokenTTL,
	}
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	UserID       uint   `json:"user_id"`
	RefreshToken string `json:"refresh_token"`
}

type TokenResponse struct {
	UserID       uint   `json:"user_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (s *AuthService) Register(req *RegisterRequest) (*models.User, error) {
	if len(strings.TrimSpace(req.Username)) < 6 {
		return nil, validationErr("Name must be at least 6 characters long")
	}

	if strings.TrimSpace(req.Email) == "" || !strings.Contains(req.Email, "@") {
		return nil, validationErr("Invalid email address")
	}

	if len(req.Password) < 6 {
		return nil, validationErr("Password must be at least 6 characters long")
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		return nil, internalErr("register", err)
	}
	if count > 0 {
		return nil, validationErr("Email is already registered")
	}

	if err := s.db.Model(&models.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		return nil, internalErr("register", err)
	}
	if count > 0 {
		return nil, validationErr("Username is already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, internalErr("register", err)
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
	}

	if err := s.db.Create(&user).Error; err != nil {
		return nil, internalErr("register", err)
	}

	return &user, nil
}

func (s *AuthService) Login(req *LoginRequest) (*TokenResponse, error) {
	if len(req.Password) < 6 {
		return nil, validationErr("Password must be at least 6 characters long")
	}

	var user models.User
	err := s.db.Where("email = ?", req.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, validationErr("Incorrect email or password")
	}
	if err != nil {
		return nil, internalErr("login", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, validationErr("Incorrect email or password")
	}

	return s.createTokenResponse(&user)
}

// Refresh exchanges a valid refresh token for a new token pair. The stored
// refresh token rotates on every exchange, so a token can be used once.
func (s *AuthService) Refresh(req *RefreshRequest) (*TokenResponse, error) {
	if strings.TrimSpace(req.RefreshToken) == "" {
		return nil, validationErr("Refresh token is required")
	}

	var user models.User
	err := s.db.Where("id = ?", req.UserID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, validationErr("Invalid refresh token")
	}
	if err != nil {
		return nil, internalErr("refresh token", err)
	}

	if user.RefreshToken == "" ||
		user.RefreshToken != req.RefreshToken ||
		user.RefreshTokenExpireIn == nil ||
		!user.RefreshTokenExpireIn.After(time.Now()) {
		return nil, validationErr("Invalid refresh token")
	}

	return s.createTokenResponse(&user)
}

func (s *AuthService) GetProfile(userID uint) (*models.User, error) {
	var user models.User
	err := s.db.Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, internalErr("get profile", err)
	}
	return &user, nil
}

func (s *AuthService) createTokenResponse(user *models.User) (*TokenResponse, error) {
	accessToken, err := s.createAccessToken(user)
	if err != nil {
		return nil, internalErr("sign token", err)
	}

	refreshToken, err := s.rotateRefreshToken(user)
	if err != nil {
		return nil, internalErr("save refresh token", err)
	}

	return &TokenResponse{
		UserID:       user.ID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *AuthService) createAccessToken(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"name": user.Username,
		"iat":  now.Unix(),
		"exp":  now.Add(s.accessTokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *AuthService) rotateRefreshToken(user *models.User) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	refreshToken := base64.StdEncoding.EncodeToString(raw)

	expiry := time.Now().Add(s.refreshTokenTTL)
	err := s.db.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"refresh_token":           refreshToken,
		"refresh_token_expire_in": expiry,
	}).Error
	if err != nil {
		return "", err
	}

	return refreshToken, nil
}
