package handler

import (
	"errors"
	"net/http"
	"strconv"

	"fleamarket-backend/internal/apperr"
	"fleamarket-backend/internal/dto"
	"fleamarket-backend/internal/service"

	"github.com/labstack/echo/v4"
)

type ConfirmHandler struct {
	confirmService service.ConfirmService
}

func NewConfirmHandler(confirmService service.ConfirmService) *ConfirmHandler {
	return &ConfirmHandler{
		confirmService: confirmService,
	}
}

func actingUserID(c echo.Context) (string, error) {
	userID, _ := c.Get("user_id").(string)
	if userID == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, apperr.ErrUnauthorized.Error())
	}
	return userID, nil
}

// mapError translates the workflow taxonomy into HTTP statuses. Forbidden
// and invalid-state get explicit messages since they show up in normal
// concurrent use (two tabs responding at once), not just abuse.
func mapError(err error) error {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "confirm request not found")
	case errors.Is(err, apperr.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "you are not a participant of this confirmation")
	case errors.Is(err, apperr.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, "a pending confirmation already exists for this item")
	case errors.Is(err, apperr.ErrInvalidState):
		return echo.NewHTTPError(http.StatusConflict, "this confirmation was already resolved")
	case errors.Is(err, apperr.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, apperr.ErrUnauthorized.Error())
	default:
		return err
	}
}

// respond unwraps a possible DependencyError: the transition committed, so
// the caller still gets the request, with the failed side effect reported as
// a warning instead of an error status.
func respond(c echo.Context, status int, resp *dto.ConfirmResponse, err error) error {
	var depErr *apperr.DependencyError
	if errors.As(err, &depErr) {
		resp.Warning = depErr.Error()
		return c.JSON(status, resp)
	}
	if err != nil {
		return mapError(err)
	}
	return c.JSON(status, resp)
}

func (h *ConfirmHandler) CreateConfirmRequest(c echo.Context) error {
	ctx := c.Request().Context()

	sellerID, err := actingUserID(c)
	if err != nil {
		return err
	}

	var in dto.CreateConfirmRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}

	req, err := h.confirmService.CreateConfirmRequest(ctx, sellerID, &in)
	return respond(c, http.StatusCreated, &dto.ConfirmResponse{Request: req}, err)
}

func (h *ConfirmHandler) RespondToConfirmRequest(c echo.Context) error {
	ctx := c.Request().Context()

	buyerID, err := actingUserID(c)
	if err != nil {
		return err
	}

	var in dto.RespondConfirmRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}

	req, err := h.confirmService.RespondToConfirmRequest(ctx, buyerID, c.Param("confirmRequestID"), &in)
	return respond(c, http.StatusOK, &dto.ConfirmResponse{Request: req}, err)
}

func (h *ConfirmHandler) GetConfirmRequestStatus(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := actingUserID(c)
	if err != nil {
		return err
	}

	req, err := h.confirmService.GetConfirmRequestStatus(ctx, userID, c.Param("confirmRequestID"))
	return respond(c, http.StatusOK, &dto.ConfirmResponse{Request: req}, err)
}

func (h *ConfirmHandler) SweepExpired(c echo.Context) error {
	ctx := c.Request().Context()

	if _, err := actingUserID(c); err != nil {
		return err
	}

	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = parsed
	}

	processed, err := h.confirmService.SweepExpired(ctx, limit)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, &dto.SweepResponse{Processed: processed})
}
