package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/smartmaint/maintenance-service/internal/api/dto"
	"github.com/smartmaint/maintenance-service/internal/auth"
	"github.com/smartmaint/maintenance-service/internal/domain"
	"github.com/smartmaint/maintenance-service/internal/service"
	"github.com/smartmaint/maintenance-service/pkg/errorutil"
)

// UsersHandler manages account endpoints.
type UsersHandler struct {
	users   *service.UserService
	restore *service.RestoreService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService, restoreService *service.RestoreService) *UsersHandler {
	return &UsersHandler{users: userService, restore: restoreService}
}

// Create POST /users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}

	user, err := h.users.Create(c.Context(), actor, service.UserCreateInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		Role:        req.Role,
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": userResponse(user)})
}

// List GET /users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	users, err := h.users.List(c.Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponses(users)})
}

// Get GET /users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	user, err := h.users.Get(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// Update PATCH /users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}

	user, err := h.users.Update(c.Context(), actor, c.Params("id"), service.UserPatch{
		Username:    req.Username,
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		IsActive:    req.IsActive,
		Role:        req.Role,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// Delete DELETE /users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	var req dto.DeleteUserRequest
	_ = c.BodyParser(&req)

	if err := h.users.Remove(c.Context(), actor, c.Params("id"), req.Reason); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Restore POST /users/:id/restore.
func (h *UsersHandler) Restore(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	user, err := h.restore.RestoreUser(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// Technicians GET /users/technicians.
func (h *UsersHandler) Technicians(c *fiber.Ctx) error {
	if _, ok := auth.ActorFromContext(c); !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	technicians, err := h.users.Technicians(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponses(technicians)})
}

// History GET /users/:id/history.
func (h *UsersHandler) History(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	entries, err := h.users.History(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": auditEntryResponses(entries)})
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Role:        user.Role,
		FullName:    user.FullName,
		PhoneNumber: user.PhoneNumber,
		IsActive:    user.IsActive,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

func userResponses(users []domain.User) []dto.UserResponse {
	resp := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, userResponse(&users[i]))
	}
	return resp
}
