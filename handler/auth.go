package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"medscribe/dto"
	"medscribe/entities"
	"medscribe/middleware"
	"medscribe/repository"
)

type AuthHandler struct {
	users     repository.UserRepository
	jwtSecret string
}

func NewAuthHandler(users repository.UserRepository, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		users:     users,
		jwtSecret: jwtSecret,
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Success: false, Message: "All fields are required and password must be at least 6 characters"})
		return
	}

	existing, err := h.users.FindUserByEmailOrUsername(c.Request.Context(), req.Email, req.Username)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to check existing user")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Success: false, Message: "Server error during registration"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Success: false, Message: "User with this email or username already exists"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Success: false, Message: "Server error during registration"})
		return
	}

	user := &entities.User{
		ID:       uuid.New(),
		Username: req.Username,
		Email:    req.Email,
		Password: string(hash),
	}
	if err := h.users.CreateUser(c.Request.Context(), user); err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to create user")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Success: false, Message: "Server error during registration"})
		return
	}

	token, err := middleware.GenerateToken(h.jwtSecret, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Success: false, Message: "Server error during registration"})
		return
	}

	c.JSON(http.StatusCreated, dto.AuthResponse{
		Success: true,
		Message: "User registered successfully",
		Token:   token,
		User: &dto.UserInfo{
			ID:       user.ID,
			Username: user.Username,
			Email:    user.Email,
		},
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Success: false, Message: "Email and password are required"})
		return
	}

	user, err := h.users.FindUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Success: false, Message: "Invalid credentials"})
			return
		}
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to find user")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Success: false, Message: "Server error during login"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Success: false, Message: "Invalid credentials"})
		return
	}

	token, err := middleware.GenerateToken(h.jwtSecret, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Success: false, Message: "Server error during login"})
		return
	}

	c.JSON(http.StatusOK, dto.AuthResponse{
		Success: true,
		Message: "Login successful",
		Token:   token,
		User: &dto.UserInfo{
			ID:       user.ID,
			Username: user.Username,
			Email:    user.Email,
		},
	})
}
