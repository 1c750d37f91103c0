package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/richman/backend/internal/game/command"
	"github.com/richman/backend/internal/game/engine"
	"github.com/richman/backend/internal/game/manager"
	"github.com/richman/backend/internal/game/models"
	"github.com/richman/backend/internal/game/strategy"
)

const maxAutoTurns = 100

// ActionHandler routes turn actions to a session's engine
type ActionHandler struct {
	gameManager *manager.GameManager
	logger      *zap.SugaredLogger
}

// NewActionHandler creates a new ActionHandler
func NewActionHandler(gameManager *manager.GameManager, logger *zap.SugaredLogger) *ActionHandler {
	return &ActionHandler{gameManager: gameManager, logger: logger}
}

// ActionRequest names the player taking a turn action
type ActionRequest struct {
	PlayerID string `json:"playerId" validate:"required"`
}

// JailRequest is a jailed player's choice
type JailRequest struct {
	PlayerID string              `json:"playerId" validate:"required"`
	Action   strategy.JailAction `json:"action" validate:"required,oneof=pay_fine use_card wait"`
}

// UpgradeRequest upgrades an owned cell
type UpgradeRequest struct {
	PlayerID string `json:"playerId" validate:"required"`
	Position int    `json:"position" validate:"min=0"`
}

// TradeRequest either offers a trade or, without a counterparty, asks an
// automated player's strategy for a proposal. A missing offerCell offers cash only.
type TradeRequest struct {
	FromID      string `json:"fromId" validate:"required"`
	ToID        string `json:"toId,omitempty"`
	RequestCell int    `json:"requestCell" validate:"min=0"`
	OfferCell   *int   `json:"offerCell,omitempty"`
	OfferCash   int    `json:"offerCash" validate:"min=0"`
}

// TradeAnswer is the counterparty's reply to a pending trade
type TradeAnswer struct {
	PlayerID string `json:"playerId" validate:"required"`
	Accept   bool   `json:"accept"`
}

// ActionResponse carries an action's result and the view after it
type ActionResponse struct {
	Result interface{} `json:"result,omitempty"`
	Game   engine.View `json:"game"`
}

// act runs fn as playerID's action and answers with the updated view. The
// turn check and the action happen in one engine call.
func (h *ActionHandler) act(c echo.Context, playerID string, fn func(t *engine.Turn) (interface{}, error)) error {
	gameID := c.Param("gameId")
	var (
		result interface{}
		view   engine.View
	)
	err := h.gameManager.Do(gameID, func(e *engine.Engine) error {
		return e.AsPlayer(playerID, func(t *engine.Turn) error {
			var err error
			if result, err = fn(t); err != nil {
				return err
			}
			view = t.View()
			return nil
		})
	})
	if err != nil {
		h.logger.Debugw("Action rejected", "gameId", gameID, "playerId", playerID, "error", err)
		return gameError(err)
	}
	return c.JSON(http.StatusOK, ActionResponse{Result: result, Game: view})
}

// Jail handles a jailed player's decision
func (h *ActionHandler) Jail(c echo.Context) error {
	var req JailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	return h.act(c, req.PlayerID, func(t *engine.Turn) (interface{}, error) {
		return nil, t.JailDecision(req.Action)
	})
}

// RollDice rolls for the current player
func (h *ActionHandler) RollDice(c echo.Context) error {
	var req ActionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	return h.act(c, req.PlayerID, func(t *engine.Turn) (interface{}, error) {
		dice, err := t.RollDice()
		return map[string]interface{}{"dice": dice}, err
	})
}

// Move advances the current player by the dice just rolled
func (h *ActionHandler) Move(c echo.Context) error {
	var req ActionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	return h.act(c, req.PlayerID, func(t *engine.Turn) (interface{}, error) {
		steps, passed, err := t.Move()
		return map[string]interface{}{"steps": steps, "passedStart": passed}, err
	})
}

// Resolve applies the landed cell's effect
func (h *ActionHandler) Resolve(c echo.Context) error {
	var req ActionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	return h.act(c, req.PlayerID, func(t *engine.Turn) (interface{}, error) {
		return t.ResolveLanding()
	})
}

// Purchase buys the landed cell
func (h *ActionHandler) Purchase(c echo.Context) error {
	var req ActionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	return h.act(c, req.PlayerID, func(t *engine.Turn) (interface{}, error) {
		return nil, t.Purchase()
	})
}

// Upgrade raises the level of an owned cell
func (h *ActionHandler) Upgrade(c echo.Context) error {
	var req UpgradeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	return h.act(c, req.PlayerID, func(t *engine.Turn) (interface{}, error) {
		return nil, t.Upgrade(req.Position)
	})
}

// EndTurn passes play to the next player
func (h *ActionHandler) EndTurn(c echo.Context) error {
	var req ActionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	return h.act(c, req.PlayerID, func(t *engine.Turn) (interface{}, error) {
		return nil, t.EndTurn()
	})
}

// Auto plays automated turns until a human is up. The turns query parameter
// caps how many.
func (h *ActionHandler) Auto(c echo.Context) error {
	turns := 1
	if raw := c.QueryParam("turns"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxAutoTurns {
			return echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{Error: "turns must be between 1 and 100", Code: models.CodeInvalidArgument})
		}
		turns = n
	}

	gameID := c.Param("gameId")
	reports, err := h.gameManager.PlayAutomatedTurns(gameID, turns)
	if err != nil {
		return gameError(err)
	}
	s, err := h.gameManager.GetSession(gameID)
	if err != nil {
		return gameError(err)
	}
	return c.JSON(http.StatusOK, ActionResponse{Result: reports, Game: s.Engine().View()})
}

// Undo reverses the current player's latest action
func (h *ActionHandler) Undo(c echo.Context) error {
	return h.history(c, (*engine.Turn).Undo)
}

// Redo reapplies the current player's latest undone action
func (h *ActionHandler) Redo(c echo.Context) error {
	return h.history(c, (*engine.Turn).Redo)
}

func (h *ActionHandler) history(c echo.Context, fn func(*engine.Turn) command.Result) error {
	var req ActionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	return h.act(c, req.PlayerID, func(t *engine.Turn) (interface{}, error) {
		res := fn(t)
		if !res.Success {
			return nil, models.Errorf(res.Code, "%s", res.Message)
		}
		return res, nil
	})
}

// Trade offers a trade from the current player or, without a counterparty,
// asks an automated player for a proposal. A human counterparty answers with
// RespondTrade.
func (h *ActionHandler) Trade(c echo.Context) error {
	var req TradeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.ToID == "" {
		s, err := h.gameManager.GetSession(c.Param("gameId"))
		if err != nil {
			return gameError(err)
		}
		proposal, err := s.Engine().ProposeTrade(req.FromID)
		if err != nil {
			return gameError(err)
		}
		return c.JSON(http.StatusOK, ActionResponse{Result: map[string]interface{}{"proposal": proposal}, Game: s.Engine().View()})
	}

	p := strategy.TradeProposal{
		FromID:      req.FromID,
		ToID:        req.ToID,
		RequestCell: req.RequestCell,
		OfferCell:   -1,
		OfferCash:   req.OfferCash,
	}
	if req.OfferCell != nil {
		p.OfferCell = *req.OfferCell
	}
	return h.act(c, req.FromID, func(t *engine.Turn) (interface{}, error) {
		status, err := t.OfferTrade(p)
		return map[string]interface{}{"trade": p, "status": status}, err
	})
}

// RespondTrade lets the counterparty accept or decline the pending trade
func (h *ActionHandler) RespondTrade(c echo.Context) error {
	var req TradeAnswer
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	gameID := c.Param("gameId")
	var view engine.View
	err := h.gameManager.Do(gameID, func(e *engine.Engine) error {
		if err := e.RespondTrade(req.PlayerID, req.Accept); err != nil {
			return err
		}
		view = e.View()
		return nil
	})
	if err != nil {
		h.logger.Debugw("Trade answer rejected", "gameId", gameID, "playerId", req.PlayerID, "error", err)
		return gameError(err)
	}
	return c.JSON(http.StatusOK, ActionResponse{Result: map[string]interface{}{"accepted": req.Accept}, Game: view})
}
