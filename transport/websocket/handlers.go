package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

func (that *Server) handleAuthenticate(ctx context.Context, client *Client, data json.RawMessage) error {
	var payload AuthenticatePayload
	if err := decodePayload(data, &payload); err != nil {
		return err
	}

	if err := that.manager.Authenticate(ctx, client.ID(), payload.Username); err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}

	return nil
}

func (that *Server) handleStartMatchmaking(_ context.Context, client *Client, _ json.RawMessage) error {
	if err := that.manager.StartMatchmaking(client.ID()); err != nil {
		return fmt.Errorf("failed to start matchmaking: %w", err)
	}

	return nil
}

func (that *Server) handleCancelMatchmaking(_ context.Context, client *Client, _ json.RawMessage) error {
	that.manager.CancelMatchmaking(client.ID())

	return nil
}

func (that *Server) handleMakeMove(ctx context.Context, client *Client, data json.RawMessage) error {
	var payload MakeMovePayload
	if err := decodePayload(data, &payload); err != nil {
		return err
	}

	if payload.MatchID == "" || payload.CellIndex == nil {
		return fmt.Errorf("%w: matchId and cellIndex are required", ErrInvalidPayload)
	}

	if err := that.manager.MakeMove(ctx, client.ID(), payload.MatchID, *payload.CellIndex); err != nil {
		return fmt.Errorf("failed to make move: %w", err)
	}

	return nil
}

func (that *Server) handleLeaveMatch(_ context.Context, client *Client, data json.RawMessage) error {
	var payload LeaveMatchPayload
	if err := decodePayload(data, &payload); err != nil {
		return err
	}

	if payload.MatchID == "" {
		return fmt.Errorf("%w: matchId is required", ErrInvalidPayload)
	}

	if err := that.manager.LeaveMatch(client.ID(), payload.MatchID); err != nil {
		return fmt.Errorf("failed to leave match: %w", err)
	}

	return nil
}

func (that *Server) handleGetLeaderboard(ctx context.Context, client *Client, _ json.RawMessage) error {
	that.manager.Leaderboard(ctx, client.ID())

	return nil
}

func (that *Server) handleStartBotMatch(_ context.Context, client *Client, data json.RawMessage) error {
	var payload StartBotMatchPayload
	if err := decodePayload(data, &payload); err != nil {
		return err
	}

	if err := that.manager.StartBotMatch(client.ID(), entity.ParseDifficulty(payload.Difficulty)); err != nil {
		return fmt.Errorf("failed to start bot match: %w", err)
	}

	return nil
}

// clientErrors are reported back to the client as error events. Move and queue
// rejections are only logged.
var clientErrors = []error{
	ErrInvalidPayload,
	apperror.ErrInvalidUsername,
	apperror.ErrNotAuthenticated,
	apperror.ErrAlreadyInMatch,
}

func errorMessage(err error) string {
	for _, clientErr := range clientErrors {
		if errors.Is(err, clientErr) {
			return clientErr.Error()
		}
	}

	return ""
}
