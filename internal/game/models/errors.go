package models

import (
	"errors"
	"fmt"
)

// ErrorCode classifies recoverable game errors
type ErrorCode string

const (
	CodeInvalidPlayerCount ErrorCode = "invalid_player_count"
	CodeIllegalTurnState   ErrorCode = "illegal_turn_state"
	CodeInsufficientFunds  ErrorCode = "insufficient_funds"
	CodeNotOwner           ErrorCode = "not_owner"
	CodeAlreadyOwned       ErrorCode = "already_owned"
	CodeNotUpgradable      ErrorCode = "not_upgradable"
	CodeNothingToUndo      ErrorCode = "nothing_to_undo"
	CodeNothingToRedo      ErrorCode = "nothing_to_redo"
	CodeUnknownDifficulty  ErrorCode = "unknown_difficulty"
	CodeUnknownGameMode    ErrorCode = "unknown_game_mode"
	CodeNotFound           ErrorCode = "not_found"
	CodeInvalidArgument    ErrorCode = "invalid_argument"
	CodeTradeRejected      ErrorCode = "trade_rejected"
)

// GameError is a recoverable, player-facing error
type GameError struct {
	Code    ErrorCode
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

// Is matches any GameError carrying the same code
func (e *GameError) Is(target error) bool {
	var ge *GameError
	if !errors.As(target, &ge) {
		return false
	}
	return ge.Code == e.Code
}

// Errorf builds a GameError with a formatted message
func Errorf(code ErrorCode, format string, args ...interface{}) *GameError {
	return &GameError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Sentinels for errors.Is checks
var (
	ErrInvalidPlayerCount = &GameError{Code: CodeInvalidPlayerCount, Message: "invalid player count"}
	ErrIllegalTurnState   = &GameError{Code: CodeIllegalTurnState, Message: "illegal turn state"}
	ErrInsufficientFunds  = &GameError{Code: CodeInsufficientFunds, Message: "insufficient funds"}
	ErrNotOwner           = &GameError{Code: CodeNotOwner, Message: "not owner"}
	ErrAlreadyOwned       = &GameError{Code: CodeAlreadyOwned, Message: "already owned"}
	ErrNotUpgradable      = &GameError{Code: CodeNotUpgradable, Message: "not upgradable"}
	ErrNothingToUndo      = &GameError{Code: CodeNothingToUndo, Message: "nothing to undo"}
	ErrNothingToRedo      = &GameError{Code: CodeNothingToRedo, Message: "nothing to redo"}
	ErrUnknownDifficulty  = &GameError{Code: CodeUnknownDifficulty, Message: "unknown difficulty"}
	ErrUnknownGameMode    = &GameError{Code: CodeUnknownGameMode, Message: "unknown game mode"}
	ErrNotFound           = &GameError{Code: CodeNotFound, Message: "not found"}
	ErrInvalidArgument    = &GameError{Code: CodeInvalidArgument, Message: "invalid argument"}
	ErrTradeRejected      = &GameError{Code: CodeTradeRejected, Message: "trade rejected"}
)

// CodeOf extracts the code of a GameError, or "" for other errors
func CodeOf(err error) ErrorCode {
	var ge *GameError
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}
