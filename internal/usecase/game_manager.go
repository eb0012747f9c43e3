package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/metrics"
	"github.com/rocketscienceinc/tictactoe-arena/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-arena/internal/tictactoe"
)

// BotID is the participant identity of the server-side opponent in bot matches.
const BotID = "bot"

const (
	maxUsernameLength     = 50
	defaultNameSuffix     = 6
	defaultSinkTimeout    = 5 * time.Second
	defaultLeaderboard    = 50
	abandonedByLeave      = "left"
	abandonedByDisconnect = "disconnected"
)

type rankingRepo interface {
	EnsurePlayer(ctx context.Context, username string) error
	RecordResult(ctx context.Context, username string, result entity.Result) error
	TopRankings(ctx context.Context, limit int) ([]entity.LeaderboardEntry, error)
}

type historyRepo interface {
	AppendHistory(ctx context.Context, summary entity.MatchSummary) error
}

type moveSelector interface {
	SelectMove(board entity.Board, side entity.Mark, difficulty entity.Difficulty) (int, error)
}

type matchMirror interface {
	Save(match entity.Match)
	Delete(matchID string)
}

type recorder interface {
	MatchStarted(ranked bool)
	MatchFinished(outcome entity.Outcome)
	MatchAbandoned(reason string)
	MoveRejected(reason string)
}

type Options struct {
	LeaderboardLimit int
	SinkTimeout      time.Duration
}

// GameManager owns every live match. All state changes happen under mu; events are
// handed to the connections while it is held, sink calls run after it is released.
type GameManager struct {
	logger *slog.Logger

	rankings rankingRepo
	history  historyRepo
	bot      moveSelector
	mirror   matchMirror
	recorder recorder
	options  Options

	registry *ConnectionRegistry
	queue    *MatchmakingQueue

	mu      sync.Mutex
	matches map[string]*entity.Match
}

func NewGameManager(
	logger *slog.Logger,
	rankings rankingRepo,
	history historyRepo,
	bot moveSelector,
	mirror matchMirror,
	recorder recorder,
	options Options,
) *GameManager {
	if options.LeaderboardLimit <= 0 {
		options.LeaderboardLimit = defaultLeaderboard
	}

	if options.SinkTimeout <= 0 {
		options.SinkTimeout = defaultSinkTimeout
	}

	return &GameManager{
		logger: logger.With("component", "game_manager"),

		rankings: rankings,
		history:  history,
		bot:      bot,
		mirror:   mirror,
		recorder: recorder,
		options:  options,

		registry: NewConnectionRegistry(),
		queue:    NewMatchmakingQueue(),

		matches: make(map[string]*entity.Match),
	}
}

// finishedMatch carries what the sink needs once the lock is released.
type finishedMatch struct {
	summary    entity.MatchSummary
	players    [2]entity.Participant
	recipients []string
}

func (that *GameManager) Connect(id string, conn Conn) {
	that.registry.Register(id, conn)

	that.logger.Debug("session connected", "session", id)
}

// Authenticate binds a display name to the session and sends it the leaderboard.
// An empty name falls back to a generated one.
func (that *GameManager) Authenticate(ctx context.Context, id, username string) error {
	log := that.logger.With("method", "Authenticate", "session", id)

	username = strings.TrimSpace(username)
	if username == "" {
		username = defaultUsername(id)
	}

	if utf8.RuneCountInString(username) > maxUsernameLength {
		return apperror.ErrInvalidUsername
	}

	that.mu.Lock()
	err := that.registry.Bind(id, username)
	that.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to bind username: %w", err)
	}

	sinkCtx, cancel := context.WithTimeout(ctx, that.options.SinkTimeout)
	defer cancel()

	if err = that.rankings.EnsurePlayer(sinkCtx, username); err != nil {
		log.Error("failed to ensure player", "username", username, "error", err)
	}

	log.Info("player authenticated", "username", username)

	that.sendLeaderboard(sinkCtx, id)

	return nil
}

// StartMatchmaking queues the session and pairs the two oldest waiting sessions.
func (that *GameManager) StartMatchmaking(id string) error {
	log := that.logger.With("method", "StartMatchmaking", "session", id)

	that.mu.Lock()
	defer that.mu.Unlock()

	session, err := that.idleSession(id)
	if err != nil {
		return err
	}

	if !that.queue.Enqueue(id) {
		return apperror.ErrAlreadyQueued
	}

	log.Info("added to queue", "username", session.Name, "queue", that.queue.Len())

	first, second, ok := that.queue.DequeuePair()
	if !ok {
		return nil
	}

	that.createMatch(first, second)

	return nil
}

func (that *GameManager) CancelMatchmaking(id string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.queue.Remove(id) {
		that.logger.Info("removed from queue", "session", id)
	}
}

// StartBotMatch creates an unranked match against the move selector. The human plays X.
func (that *GameManager) StartBotMatch(id string, difficulty entity.Difficulty) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, err := that.idleSession(id)
	if err != nil {
		return err
	}

	that.queue.Remove(id)

	match := entity.NewMatch(
		pkg.GenerateMatchID(),
		entity.Participant{ID: session.ID, Name: session.Name},
		entity.Participant{ID: BotID, Name: "Computer (" + string(difficulty) + ")", Bot: true},
	)
	match.Difficulty = difficulty

	that.startMatch(match)

	return nil
}

// MakeMove applies a move for the session. Rejected moves return a sentinel error and
// leave the match untouched.
func (that *GameManager) MakeMove(ctx context.Context, id, matchID string, cell int) error {
	that.mu.Lock()

	match, err := that.applyMove(id, matchID, cell)
	if err != nil {
		that.mu.Unlock()
		that.recorder.MoveRejected(rejectReason(err))

		return err
	}

	if !match.IsFinished() {
		that.broadcast(match, entity.NewGameUpdateEvent(match.Board, match.Turn))
		that.mirror.Save(*match)
		that.mu.Unlock()

		return nil
	}

	finished := that.finishMatch(match)
	that.mu.Unlock()

	if match.Ranked {
		that.report(ctx, finished)
	}

	return nil
}

func (that *GameManager) applyMove(id, matchID string, cell int) (*entity.Match, error) {
	log := that.logger.With("method", "applyMove", "match", matchID)

	match, ok := that.matches[matchID]
	if !ok {
		return nil, apperror.ErrMatchNotFound
	}

	participant, ok := match.Participant(id)
	if !ok {
		return nil, apperror.ErrNotParticipant
	}

	if err := tictactoe.MakeTurn(match, participant.Mark, cell); err != nil {
		return nil, fmt.Errorf("failed to make turn: %w", err)
	}

	log.Debug("move accepted", "mark", participant.Mark, "cell", cell)

	if match.Ranked || match.IsFinished() {
		return match, nil
	}

	opponent, _ := match.Opponent(id)
	if !opponent.Bot {
		return match, nil
	}

	reply, err := that.bot.SelectMove(match.Board, opponent.Mark, match.Difficulty)
	if err != nil {
		log.Error("bot has no move", "error", err)
		return match, nil
	}

	if err = tictactoe.MakeTurn(match, opponent.Mark, reply); err != nil {
		log.Error("bot move rejected", "cell", reply, "error", err)
	}

	return match, nil
}

// LeaveMatch abandons the match on behalf of a participant. A match that is already
// gone is not an error.
func (that *GameManager) LeaveMatch(id, matchID string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	match, ok := that.matches[matchID]
	if !ok {
		return nil
	}

	if _, ok = match.Participant(id); !ok {
		return apperror.ErrNotParticipant
	}

	that.abandonMatch(match, id, entity.NewOpponentLeftEvent(), abandonedByLeave)

	return nil
}

// Disconnect drops the session from the queue and from its match, then forgets it.
func (that *GameManager) Disconnect(id string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.queue.Remove(id)

	if session, ok := that.registry.Lookup(id); ok && session.InMatch() {
		if match, ok := that.matches[session.MatchID]; ok {
			that.abandonMatch(match, id, entity.NewOpponentDisconnectedEvent(), abandonedByDisconnect)
		}
	}

	that.registry.Unregister(id)

	that.logger.Debug("session disconnected", "session", id)
}

// Leaderboard sends the current top rankings to the session.
func (that *GameManager) Leaderboard(ctx context.Context, id string) {
	sinkCtx, cancel := context.WithTimeout(ctx, that.options.SinkTimeout)
	defer cancel()

	that.sendLeaderboard(sinkCtx, id)
}

// Match returns a snapshot of a live match.
func (that *GameManager) Match(matchID string) (entity.Match, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	match, ok := that.matches[matchID]
	if !ok {
		return entity.Match{}, false
	}

	return *match, true
}

func (that *GameManager) Stats() metrics.Snapshot {
	that.mu.Lock()
	matches := len(that.matches)
	that.mu.Unlock()

	return metrics.Snapshot{
		Sessions:   that.registry.Len(),
		Matches:    matches,
		QueueDepth: that.queue.Len(),
	}
}

func (that *GameManager) idleSession(id string) (*Session, error) {
	session, ok := that.registry.Lookup(id)
	if !ok {
		return nil, apperror.ErrSessionNotFound
	}

	if !session.IsAuthenticated() {
		return nil, apperror.ErrNotAuthenticated
	}

	if session.InMatch() {
		return nil, apperror.ErrAlreadyInMatch
	}

	return session, nil
}

func (that *GameManager) createMatch(firstID, secondID string) {
	log := that.logger.With("method", "createMatch")

	first, ok := that.registry.Lookup(firstID)
	if !ok {
		log.Error("dequeued session is not registered", "session", firstID)
		return
	}

	second, ok := that.registry.Lookup(secondID)
	if !ok {
		log.Error("dequeued session is not registered", "session", secondID)
		return
	}

	match := entity.NewMatch(
		pkg.GenerateMatchID(),
		entity.Participant{ID: first.ID, Name: first.Name},
		entity.Participant{ID: second.ID, Name: second.Name},
	)

	that.startMatch(match)
}

func (that *GameManager) startMatch(match *entity.Match) {
	that.matches[match.ID] = match

	for _, participant := range match.Players {
		session, ok := that.registry.Lookup(participant.ID)
		if !ok {
			continue
		}

		session.MatchID = match.ID

		opponent, _ := match.Opponent(participant.ID)
		that.notify(session, entity.NewMatchFoundEvent(match.ID, participant.Mark, opponent.ID))
	}

	that.mirror.Save(*match)
	that.recorder.MatchStarted(match.Ranked)

	that.logger.Info("match created",
		"match", match.ID,
		"x", match.Players[0].Name,
		"o", match.Players[1].Name,
		"ranked", match.Ranked,
	)
}

func (that *GameManager) finishMatch(match *entity.Match) finishedMatch {
	that.broadcast(match, entity.NewGameEndEvent(match.Outcome, match.Board))

	finished := finishedMatch{
		summary: match.Summary(),
		players: match.Players,
	}

	for _, participant := range match.Players {
		if that.release(participant.ID, match.ID) {
			finished.recipients = append(finished.recipients, participant.ID)
		}
	}

	that.removeMatch(match)
	that.recorder.MatchFinished(match.Outcome)

	that.logger.Info("match finished", "match", match.ID, "outcome", match.Outcome, "moves", match.MoveCount)

	return finished
}

func (that *GameManager) abandonMatch(match *entity.Match, leaverID string, event entity.Event, reason string) {
	for _, participant := range match.Players {
		if participant.ID == leaverID {
			that.release(participant.ID, match.ID)
			continue
		}

		if session, ok := that.registry.Lookup(participant.ID); ok {
			that.notify(session, event)
		}

		that.release(participant.ID, match.ID)
	}

	that.removeMatch(match)
	that.recorder.MatchAbandoned(reason)

	that.logger.Info("match abandoned", "match", match.ID, "reason", reason)
}

// release clears the match pointer of a registered session still attached to matchID.
func (that *GameManager) release(id, matchID string) bool {
	session, ok := that.registry.Lookup(id)
	if !ok || session.MatchID != matchID {
		return false
	}

	session.MatchID = ""

	return true
}

func (that *GameManager) removeMatch(match *entity.Match) {
	delete(that.matches, match.ID)
	that.mirror.Delete(match.ID)
}

// report pushes a finished ranked match to the sink and refreshes the leaderboard of
// its participants. Failures are logged and never retried.
func (that *GameManager) report(ctx context.Context, finished finishedMatch) {
	log := that.logger.With("method", "report", "match", finished.summary.MatchID)

	sinkCtx, cancel := context.WithTimeout(ctx, that.options.SinkTimeout)
	defer cancel()

	if err := that.history.AppendHistory(sinkCtx, finished.summary); err != nil {
		log.Error("failed to append history", "error", err)
	}

	for _, participant := range finished.players {
		result := finished.summary.Outcome.ResultFor(participant.Mark)

		if err := that.rankings.RecordResult(sinkCtx, participant.Name, result); err != nil {
			log.Error("failed to record result", "username", participant.Name, "result", result, "error", err)
		}
	}

	that.sendLeaderboard(sinkCtx, finished.recipients...)
}

func (that *GameManager) sendLeaderboard(ctx context.Context, ids ...string) {
	if len(ids) == 0 {
		return
	}

	entries, err := that.rankings.TopRankings(ctx, that.options.LeaderboardLimit)
	if err != nil {
		that.logger.Error("failed to fetch rankings", "method", "sendLeaderboard", "error", err)
		return
	}

	event := entity.NewLeaderboardEvent(entries)
	for _, id := range ids {
		if session, ok := that.registry.Lookup(id); ok {
			that.notify(session, event)
		}
	}
}

func (that *GameManager) broadcast(match *entity.Match, event entity.Event) {
	for _, participant := range match.Players {
		if session, ok := that.registry.Lookup(participant.ID); ok {
			that.notify(session, event)
		}
	}
}

func (that *GameManager) notify(session *Session, event entity.Event) {
	if err := session.Conn.Send(event); err != nil {
		that.logger.Debug("event dropped", "session", session.ID, "type", event.Type, "error", err)
	}
}

func defaultUsername(id string) string {
	if len(id) > defaultNameSuffix {
		id = id[len(id)-defaultNameSuffix:]
	}

	return "Player_" + id
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, apperror.ErrMatchNotFound):
		return "match_not_found"
	case errors.Is(err, apperror.ErrNotParticipant):
		return "not_participant"
	case errors.Is(err, apperror.ErrGameFinished):
		return "game_finished"
	case errors.Is(err, apperror.ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, apperror.ErrInvalidCell):
		return "invalid_cell"
	case errors.Is(err, apperror.ErrCellOccupied):
		return "cell_occupied"
	default:
		return "unknown"
	}
}
