package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const mirrorWriteTimeout = 2 * time.Second

type matchStore interface {
	CreateOrUpdate(ctx context.Context, match *entity.Match) error
	DeleteByID(ctx context.Context, id string) error
}

type mirrorOp struct {
	match    *entity.Match
	deleteID string
}

// MatchMirror copies live match state into an external store. Writes are applied in
// order by a single worker; when the buffer is full the write is dropped.
type MatchMirror struct {
	logger *slog.Logger
	store  matchStore
	ops    chan mirrorOp
}

func NewMatchMirror(logger *slog.Logger, store matchStore, buffer int) *MatchMirror {
	return &MatchMirror{
		logger: logger.With("component", "match_mirror"),
		store:  store,
		ops:    make(chan mirrorOp, buffer),
	}
}

func (that *MatchMirror) Save(match entity.Match) {
	that.enqueue(mirrorOp{match: &match})
}

func (that *MatchMirror) Delete(matchID string) {
	that.enqueue(mirrorOp{deleteID: matchID})
}

func (that *MatchMirror) enqueue(op mirrorOp) {
	select {
	case that.ops <- op:
	default:
		that.logger.Warn("mirror buffer is full, write dropped")
	}
}

// Run applies queued writes until ctx is done.
func (that *MatchMirror) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case op := <-that.ops:
			that.apply(ctx, op)
		}
	}
}

func (that *MatchMirror) apply(ctx context.Context, op mirrorOp) {
	log := that.logger.With("method", "apply")

	ctx, cancel := context.WithTimeout(ctx, mirrorWriteTimeout)
	defer cancel()

	if op.match != nil {
		if err := that.store.CreateOrUpdate(ctx, op.match); err != nil {
			log.Error("failed to mirror match", "match", op.match.ID, "error", err)
		}
		return
	}

	if err := that.store.DeleteByID(ctx, op.deleteID); err != nil {
		log.Error("failed to drop mirrored match", "match", op.deleteID, "error", err)
	}
}
