// Package engine hosts the authoritative game state machine. A Service owns
// one game instance: it validates every operation against the current phase,
// verifies cell reveals against the opponent's commitment, and settles the
// escrow when the game ends.
//
// Operations are atomic. All checks run against a snapshot of the stored
// state, every record write of a transition is staged and committed in one
// substrate batch, and settlement instructions dispatch only after that batch
// holds. A returned error from a rejected operation therefore means the game
// is exactly as it was before the call.
package engine

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/broadside/internal/battleship/domain"
	"github.com/louisbranch/broadside/internal/battleship/event"
	"github.com/louisbranch/broadside/internal/battleship/proof"
	"github.com/louisbranch/broadside/internal/battleship/settle"
	apperrors "github.com/louisbranch/broadside/internal/platform/errors"
	"github.com/louisbranch/broadside/internal/storage"
	"github.com/louisbranch/broadside/internal/storage/keyspace"
	"github.com/louisbranch/broadside/internal/token"
)

const (
	keyGameConfig = "game_config"
	keyGameState  = "game_state"
	prefixPlayers = "players"
)

// Transition is the record of one accepted state-mutating operation:
// flat attributes, typed signals, and the ledger instructions that were
// applied as part of it.
type Transition struct {
	Attributes   []event.Attribute   `json:"attributes,omitempty"`
	Signals      []event.Signal      `json:"signals,omitempty"`
	Instructions []token.Instruction `json:"instructions,omitempty"`
}

// PlayerSetup is one player's registration: identity, stake, and the Merkle
// root committing to their hidden board.
type PlayerSetup struct {
	Address domain.Address `json:"address"`
	Stake   uint64         `json:"stake"`
	Board   string         `json:"board"`
}

// InstantiateParams creates a game. The first player listed takes the first
// turn.
type InstantiateParams struct {
	TokenAddress domain.Address `json:"token_address"`
	Ships        int            `json:"ships"`
	Players      [2]PlayerSetup `json:"players"`
}

// Service applies operations to one game instance stored in a KV substrate.
// A write lock serializes state-mutating operations, standing in for the
// transaction ordering a hosting ledger would provide; queries take the read
// lock so they never observe a transition mid-commit.
type Service struct {
	mu     sync.RWMutex
	kv     storage.KV
	ledger token.Ledger
	now    func() time.Time
	tracer trace.Tracer

	gameConfig keyspace.Item[domain.GameConfig]
	gameState  keyspace.Item[domain.GameState]
	players    keyspace.Bucket[domain.Player]
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock. Tests use this to drive turn expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service over the given substrate and token ledger.
func New(kv storage.KV, ledger token.Ledger, opts ...Option) *Service {
	s := &Service{
		kv:         kv,
		ledger:     ledger,
		now:        time.Now,
		tracer:     otel.Tracer("broadside/engine"),
		gameConfig: keyspace.NewItem[domain.GameConfig](keyGameConfig),
		gameState:  keyspace.NewItem[domain.GameState](keyGameState),
		players:    keyspace.NewBucket[domain.Player](prefixPlayers),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Instantiate validates the setup and persists the initial records in one
// batch: config, the not-started state with the first player on turn, and one
// record per player with an empty hit list. A service whose substrate already
// holds a game rejects the call, and nothing is stored when validation fails.
func (s *Service) Instantiate(ctx context.Context, params InstantiateParams) error {
	ctx, span := s.tracer.Start(ctx, "engine.Instantiate")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.gameState.Load(ctx, s.kv); err == nil {
		return domain.ErrGameStarted
	} else if !apperrors.Is(err, apperrors.CodeNotFound) {
		return err
	}

	if params.Ships <= 0 {
		return domain.ErrInvalidShips
	}
	if params.Players[0].Stake < domain.MinStake {
		return domain.ErrInvalidStake
	}
	if params.Players[0].Stake != params.Players[1].Stake {
		return domain.ErrInvalidStake
	}

	entries := make([]storage.Entry, 0, 4)

	configEntry, err := s.gameConfig.Entry(domain.GameConfig{
		TokenAddress: params.TokenAddress,
		Ships:        params.Ships,
	})
	if err != nil {
		return err
	}
	entries = append(entries, configEntry)

	stateEntry, err := s.gameState.Entry(domain.GameState{Turn: params.Players[0].Address})
	if err != nil {
		return err
	}
	entries = append(entries, stateEntry)

	for _, setup := range params.Players {
		playerEntry, err := s.players.Entry(string(setup.Address), domain.Player{
			Address: setup.Address,
			Stake:   setup.Stake,
			Board:   domain.Board{Commitment: setup.Board},
		})
		if err != nil {
			return err
		}
		entries = append(entries, playerEntry)
	}
	return s.kv.Apply(ctx, entries)
}

// Begin starts the game: both stakes move into escrow and the turn clock
// starts. Only a registered player may call it, and only once. A failure
// anywhere unwinds the escrow debits so no stake is stranded.
func (s *Service) Begin(ctx context.Context, caller domain.Address) (Transition, error) {
	ctx, span := s.tracer.Start(ctx, "engine.Begin",
		trace.WithAttributes(attribute.String("caller", string(caller))))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.gameState.Load(ctx, s.kv)
	if err != nil {
		return Transition{}, err
	}
	if state.Started {
		return Transition{}, domain.ErrGameStarted
	}
	if state.Finished {
		return Transition{}, domain.ErrGameFinished
	}

	players, err := s.players.All(ctx, s.kv)
	if err != nil {
		return Transition{}, err
	}
	registered := false
	for _, p := range players {
		if p.Address == caller {
			registered = true
			break
		}
	}
	if !registered {
		return Transition{}, domain.ErrUnauthorized
	}

	state.Started = true
	state.LastTurnTime = s.now().Unix()
	stateEntry, err := s.gameState.Entry(state)
	if err != nil {
		return Transition{}, err
	}

	instrs := settle.EscrowInstructions(players)
	for i, instr := range instrs {
		if err := token.Apply(ctx, s.ledger, instr); err != nil {
			s.refundEscrow(ctx, instrs[:i])
			return Transition{}, err
		}
	}
	if err := s.kv.Apply(ctx, []storage.Entry{stateEntry}); err != nil {
		s.refundEscrow(ctx, instrs)
		return Transition{}, err
	}

	return Transition{
		Attributes: []event.Attribute{
			{Key: event.KeyAction, Value: event.ActionStartGame},
			{Key: event.KeyStake, Value: strconv.FormatUint(players[0].Stake, 10)},
		},
		Instructions: instrs,
	}, nil
}

// Reveal plays one move: the caller discloses the opponent's cell at field,
// backed by an authentication path against the opponent's commitment.
//
// A proven hit is recorded on the opponent's board; hit or miss, the turn
// passes to the opponent. Sinking the last ship finishes the game, settles
// the escrow to the caller, and leaves the turn where it was.
func (s *Service) Reveal(ctx context.Context, caller domain.Address, field domain.Coord, value bool, path []proof.Step) (Transition, error) {
	ctx, span := s.tracer.Start(ctx, "engine.Reveal",
		trace.WithAttributes(
			attribute.String("caller", string(caller)),
			attribute.String("field", field.String()),
		))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	config, err := s.gameConfig.Load(ctx, s.kv)
	if err != nil {
		return Transition{}, err
	}
	state, err := s.gameState.Load(ctx, s.kv)
	if err != nil {
		return Transition{}, err
	}
	if !state.Started {
		return Transition{}, domain.ErrGameNotStarted
	}
	if state.Finished {
		return Transition{}, domain.ErrGameFinished
	}

	now := s.now().Unix()
	if now > turnDeadline(state) {
		return Transition{}, domain.ErrTurnExpired
	}
	if caller != state.Turn {
		return Transition{}, domain.ErrWrongTurn
	}

	player, err := s.loadPlayer(ctx, caller)
	if err != nil {
		return Transition{}, err
	}
	opponent, err := s.opponentOf(ctx, caller)
	if err != nil {
		return Transition{}, err
	}

	if !proof.Verify(value, path, opponent.Board.Commitment) {
		return Transition{}, domain.ErrInvalidProof
	}
	if opponent.Board.HasSunk(field) {
		return Transition{}, domain.ErrAlreadySunk
	}

	state.LastTurnTime = now

	if !value {
		state.Turn = opponent.Address
		stateEntry, err := s.gameState.Entry(state)
		if err != nil {
			return Transition{}, err
		}
		if err := s.kv.Apply(ctx, []storage.Entry{stateEntry}); err != nil {
			return Transition{}, err
		}
		return Transition{
			Attributes: []event.Attribute{{Key: event.KeyAction, Value: event.ActionPlay}},
			Signals:    []event.Signal{event.ShipMissed(field)},
		}, nil
	}

	opponent.Board.Sank = append(opponent.Board.Sank, field)

	if len(opponent.Board.Sank) == config.Ships {
		state.Finished = true

		settlement, err := settle.Settle(player.Stake, opponent.Stake, domain.FeePercent, domain.RewardPercent)
		if err != nil {
			return Transition{}, err
		}
		instrs := settle.WinnerInstructions(player.Address, settlement)

		entries, err := s.stageOutcome(opponent, state)
		if err != nil {
			return Transition{}, err
		}
		if err := s.kv.Apply(ctx, entries); err != nil {
			return Transition{}, err
		}
		if err := s.dispatch(ctx, instrs); err != nil {
			return Transition{}, err
		}

		return Transition{
			Attributes:   winAttributes(event.ActionPlay, player.Address, settlement),
			Signals:      []event.Signal{event.GameWon(field)},
			Instructions: instrs,
		}, nil
	}

	state.Turn = opponent.Address
	entries, err := s.stageOutcome(opponent, state)
	if err != nil {
		return Transition{}, err
	}
	if err := s.kv.Apply(ctx, entries); err != nil {
		return Transition{}, err
	}

	return Transition{
		Attributes: []event.Attribute{{Key: event.KeyAction, Value: event.ActionPlay}},
		Signals:    []event.Signal{event.ShipSank(field)},
	}, nil
}

// AdjudicateTimeout awards the game to the caller when the player on turn
// let the clock run out. The caller must be the registered player who is not
// on turn.
func (s *Service) AdjudicateTimeout(ctx context.Context, caller domain.Address) (Transition, error) {
	ctx, span := s.tracer.Start(ctx, "engine.AdjudicateTimeout",
		trace.WithAttributes(attribute.String("caller", string(caller))))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.gameState.Load(ctx, s.kv)
	if err != nil {
		return Transition{}, err
	}
	if !state.Started {
		return Transition{}, domain.ErrGameNotStarted
	}
	if state.Finished {
		return Transition{}, domain.ErrGameFinished
	}

	player, err := s.players.Load(ctx, s.kv, string(caller))
	if err != nil {
		if apperrors.Is(err, apperrors.CodeNotFound) {
			return Transition{}, domain.ErrUnauthorized
		}
		return Transition{}, err
	}
	if player.Address == state.Turn {
		return Transition{}, domain.ErrUnauthorized
	}

	if s.now().Unix() <= turnDeadline(state) {
		return Transition{}, domain.ErrTurnNotExpired
	}

	opponent, err := s.loadPlayer(ctx, state.Turn)
	if err != nil {
		return Transition{}, err
	}

	settlement, err := settle.Settle(player.Stake, opponent.Stake, domain.FeePercent, domain.RewardPercent)
	if err != nil {
		return Transition{}, err
	}
	instrs := settle.WinnerInstructions(player.Address, settlement)

	state.Finished = true
	stateEntry, err := s.gameState.Entry(state)
	if err != nil {
		return Transition{}, err
	}
	if err := s.kv.Apply(ctx, []storage.Entry{stateEntry}); err != nil {
		return Transition{}, err
	}
	if err := s.dispatch(ctx, instrs); err != nil {
		return Transition{}, err
	}

	return Transition{
		Attributes:   winAttributes(event.ActionTimeoutCheck, player.Address, settlement),
		Signals:      []event.Signal{event.GameWon(domain.NoField)},
		Instructions: instrs,
	}, nil
}

// GameConfig returns the immutable game configuration.
func (s *Service) GameConfig(ctx context.Context) (domain.GameConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gameConfig.Load(ctx, s.kv)
}

// GameState returns the current phase and turn state.
func (s *Service) GameState(ctx context.Context) (domain.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gameState.Load(ctx, s.kv)
}

// Players returns both player records in ascending address order.
func (s *Service) Players(ctx context.Context) ([]domain.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.players.All(ctx, s.kv)
}

func (s *Service) loadPlayer(ctx context.Context, addr domain.Address) (domain.Player, error) {
	player, err := s.players.Load(ctx, s.kv, string(addr))
	if err != nil {
		if apperrors.Is(err, apperrors.CodeNotFound) {
			return domain.Player{}, domain.ErrPlayerNotFound
		}
		return domain.Player{}, err
	}
	return player, nil
}

// opponentOf returns the first registered player, in ascending address
// order, whose address differs from addr.
func (s *Service) opponentOf(ctx context.Context, addr domain.Address) (domain.Player, error) {
	players, err := s.players.All(ctx, s.kv)
	if err != nil {
		return domain.Player{}, err
	}
	for _, p := range players {
		if p.Address != addr {
			return p, nil
		}
	}
	return domain.Player{}, domain.ErrPlayerNotFound
}

// stageOutcome encodes the writes of one reveal outcome: the opponent's
// updated board and the new turn state.
func (s *Service) stageOutcome(opponent domain.Player, state domain.GameState) ([]storage.Entry, error) {
	playerEntry, err := s.players.Entry(string(opponent.Address), opponent)
	if err != nil {
		return nil, err
	}
	stateEntry, err := s.gameState.Entry(state)
	if err != nil {
		return nil, err
	}
	return []storage.Entry{playerEntry, stateEntry}, nil
}

// dispatch applies ledger instructions in order, stopping at the first
// failure. Settlement instructions run only after the state batch holds, the
// same ordering a hosting ledger gives messages of a committed transaction.
func (s *Service) dispatch(ctx context.Context, instrs []token.Instruction) error {
	for _, instr := range instrs {
		if err := token.Apply(ctx, s.ledger, instr); err != nil {
			return err
		}
	}
	return nil
}

// refundEscrow reverses escrow debits after a failed start. Best effort: the
// original failure is what callers see.
func (s *Service) refundEscrow(ctx context.Context, debits []token.Instruction) {
	for _, debit := range debits {
		_ = s.ledger.CreditFromEscrow(ctx, debit.Owner, debit.Amount)
	}
}

func turnDeadline(state domain.GameState) int64 {
	return state.LastTurnTime + int64(domain.TurnDuration/time.Second)
}

func winAttributes(action string, winner domain.Address, s settle.Settlement) []event.Attribute {
	return []event.Attribute{
		{Key: event.KeyAction, Value: action},
		{Key: event.KeyWinner, Value: string(winner)},
		{Key: event.KeyPayout, Value: strconv.FormatUint(s.Payout, 10)},
		{Key: event.KeyFeeRetained, Value: strconv.FormatUint(s.Fee, 10)},
		{Key: event.KeyMintedReward, Value: strconv.FormatUint(s.Reward, 10)},
	}
}
