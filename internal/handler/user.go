package handler

import (
	"net/http"

	"fleamarket-backend/internal/service"

	"github.com/labstack/echo/v4"
)

type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

func (h *UserHandler) GetPurchases(c echo.Context) error {
	ctx := c.Request().Context()

	buyerID, err := actingUserID(c)
	if err != nil {
		return err
	}

	entries, err := h.userService.GetPurchaseHistory(ctx, buyerID)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, entries)
}

func (h *UserHandler) GetConversationMessages(c echo.Context) error {
	ctx := c.Request().Context()

	if _, err := actingUserID(c); err != nil {
		return err
	}

	conversationID := c.Param("conversationID")
	if conversationID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing conversation id")
	}

	msgs, err := h.userService.GetConversationMessages(ctx, conversationID)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, msgs)
}
