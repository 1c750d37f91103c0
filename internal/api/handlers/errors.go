package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/richman/backend/internal/game/models"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string           `json:"error"`
	Code  models.ErrorCode `json:"code,omitempty"`
}

// StatusFor maps a game error code onto an HTTP status
func StatusFor(code models.ErrorCode) int {
	switch code {
	case models.CodeNotFound:
		return http.StatusNotFound
	case models.CodeInvalidArgument, models.CodeInvalidPlayerCount,
		models.CodeUnknownDifficulty, models.CodeUnknownGameMode:
		return http.StatusBadRequest
	case models.CodeIllegalTurnState, models.CodeAlreadyOwned,
		models.CodeNothingToUndo, models.CodeNothingToRedo, models.CodeTradeRejected:
		return http.StatusConflict
	case models.CodeInsufficientFunds, models.CodeNotOwner, models.CodeNotUpgradable:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// gameError turns err into an echo error carrying the game error code
func gameError(err error) error {
	code := models.CodeOf(err)
	status := StatusFor(code)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	return echo.NewHTTPError(status, ErrorResponse{Error: msg, Code: code}).SetInternal(err)
}

// bindAndValidate decodes the body into req and runs the registered validator
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: models.CodeInvalidArgument})
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: models.CodeInvalidArgument})
	}
	return nil
}
