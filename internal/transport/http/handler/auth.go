package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docqa/internal/devserver"
	"docqa/internal/transport/http/response"
)

type AuthHandler struct {
	accounts *devserver.AccountService
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Password string `json:"password" binding:"required,max=128"`
}

type LoginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func NewAuthHandler(accounts *devserver.AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, response.DetailInvalidPayload)
		return
	}

	result, err := h.accounts.Register(devserver.Credentials{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, devserver.ErrInvalidInput):
			response.Error(c, http.StatusUnprocessableEntity, response.DetailInvalidPayload)
		case errors.Is(err, devserver.ErrUsernameExists):
			response.Error(c, http.StatusBadRequest, "Username already registered")
		default:
			response.Error(c, http.StatusInternalServerError, "register failed")
		}
		return
	}

	response.OK(c, TokenResponse{AccessToken: result.Token, TokenType: "bearer"})
}

// Login takes form-encoded credentials, the OAuth2 password flow shape.
func (h *AuthHandler) Login(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, response.DetailInvalidPayload)
		return
	}

	result, err := h.accounts.Login(devserver.Credentials{
		Username: form.Username,
		Password: form.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, devserver.ErrInvalidCredential):
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, http.StatusUnauthorized, "Incorrect username or password")
		default:
			response.Error(c, http.StatusInternalServerError, "login failed")
		}
		return
	}

	response.OK(c, TokenResponse{AccessToken: result.Token, TokenType: "bearer"})
}
