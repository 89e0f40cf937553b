package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/contaleve/identity-service/internal/core/ports"
)

type AuthHandler struct {
	identities ports.IdentityService
}

func NewAuthHandler(identities ports.IdentityService) *AuthHandler {
	return &AuthHandler{identities: identities}
}

type registerRequest struct {
	Name  string `json:"name" validate:"required"`
	CPF   string `json:"cpf" validate:"required"`
	Email string `json:"email" validate:"required"`
}

type registerResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

type loginRequest struct {
	CPF  string `json:"cpf,omitempty"`
	Name string `json:"name,omitempty"`
}

// Register provisions a new authenticated user.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Name, CPF, and email"
// @Success      201   {object}  registerResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	userID, err := h.identities.Register(c.Request().Context(), req.Name, req.CPF, req.Email)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, registerResponse{
		Message: "User registered successfully",
		UserID:  userID,
	})
}

// Login authenticates a registered user (cpf) or provisions and
// authenticates an anonymous one (name). Exactly one of the two fields
// must be present.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Either cpf or name"
// @Success      200   {object}  domain.LoginResult
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	result, err := h.identities.Login(c.Request().Context(), req.CPF, req.Name)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}
