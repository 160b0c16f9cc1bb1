package handler

import (
	"net/http"

	"procurement/internal/middleware"
	"procurement/internal/service"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService service.UserService
}

// NewUserHandler sets up the routing dependencies for auth endpoints
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// RegisterRoutes binds the public auth endpoints; /me authenticates itself.
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/api/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)
		auth.GET("/me", middleware.RequireAuth(h.userService), h.GetMe)
	}
}

// Register creates a self-service account
// @Summary      Register user
// @Description  Creates a buyer_user, sourcing_manager or vendor account. buyer_admin accounts come from the seed command.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RegisterUserRequest  true  "Registration payload"
// @Success      201      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/auth/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req service.RegisterUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.userService.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, user))
}

// Login authenticates a user and returns a JWT (also set as an HttpOnly cookie)
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginUserRequest  true  "Credentials"
// @Success      200      {object}  response.Response{data=service.TokenResponse}
// @Failure      401      {object}  response.Response
// @Router       /api/auth/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req service.LoginUserRequest
	if !bindJSON(c, &req) {
		return
	}
	tokenRes, err := h.userService.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	middleware.SetTokenCookies(c, tokenRes.Token, int(service.TokenTTL.Seconds()))
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tokenRes))
}

// Logout clears the auth cookie
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/auth/logout [post]
func (h *UserHandler) Logout(c *gin.Context) {
	middleware.ClearTokenCookies(c)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Logged out successfully"}))
}

// GetMe returns the authenticated user
// @Summary      Current user
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Failure      401  {object}  response.Response
// @Router       /api/auth/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := h.userService.Me(c.Request.Context(), actorOf(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}
