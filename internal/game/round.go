package game

import (
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jason-s-yu/bingo/internal/models"
	"github.com/sirupsen/logrus"
)

// MaxUsernameLength bounds display names set by clients.
const MaxUsernameLength = 32

// RoundConfig holds the timing and stake settings of a hall.
type RoundConfig struct {
	SelectionSeconds int
	WinnerSeconds    int

	// Stake is debited from a verified player's wallet on confirmation. Zero means free play.
	Stake int64
	// HouseCutPercent is kept from the pot when paying the winner.
	HouseCutPercent int
}

// DefaultRoundConfig returns the standard 45s selection and 5s winner windows.
func DefaultRoundConfig() RoundConfig {
	return RoundConfig{
		SelectionSeconds: 45,
		WinnerSeconds:    5,
	}
}

// Charge is a wallet debit the hall must perform before a confirmation takes effect.
type Charge struct {
	SessionID int64
	UserID    uuid.UUID
	RoundID   uuid.UUID
	CardID    int
	Amount    int64
}

// Payout is a wallet credit owed to a round's winner.
type Payout struct {
	UserID  uuid.UUID
	RoundID uuid.UUID
	Amount  int64
}

// Recorder receives round history. Implementations must not block.
type Recorder interface {
	Record(action models.RoundAction)
}

// Round is the authoritative state machine of the hall: the current phase, its
// countdown, the drawn numbers and the registry of player sessions.
// None of its methods are safe for concurrent use; Hall serializes every call.
type Round struct {
	ID uuid.UUID

	phase    models.Phase
	timeLeft int
	winner   *models.Winner
	pot      int64

	// callerDone is set once a draw attempt found the pool empty.
	callerDone bool

	cfg         RoundConfig
	pool        *NumberPool
	deck        *Deck
	registry    *Registry
	actionIndex int

	// ChargesEnabled turns on wallet debits for confirmations when Stake > 0.
	ChargesEnabled bool

	Log      logrus.FieldLogger
	Recorder Recorder

	// BroadcastFn sends an event to every connection. If nil, no broadcast is done.
	BroadcastFn func(ev GameEvent)

	// BroadcastToPlayerFn sends an event to a single session.
	BroadcastToPlayerFn func(sessionID int64, ev GameEvent)

	// OnPayout is invoked when a verified winner is owed the pot.
	OnPayout func(p Payout)
}

// NewRound builds a round in the selection phase. Nothing is broadcast until Start.
func NewRound(cfg RoundConfig, deck *Deck, rng *rand.Rand) *Round {
	return &Round{
		ID:       uuid.New(),
		phase:    models.PhaseSelection,
		timeLeft: cfg.SelectionSeconds,
		cfg:      cfg,
		pool:     NewNumberPool(rng),
		deck:     deck,
		registry: NewRegistry(),
		Log:      logrus.StandardLogger(),
	}
}

// Start enters the first selection phase.
func (r *Round) Start() {
	r.enterSelection()
}

func (r *Round) Phase() models.Phase { return r.phase }

func (r *Round) TimeLeft() int { return r.timeLeft }

func (r *Round) DrawnNumbers() []int { return r.pool.Drawn() }

func (r *Round) Pot() int64 { return r.pot }

func (r *Round) Registry() *Registry { return r.registry }

func (r *Round) Deck() *Deck { return r.deck }

// Winner returns a copy of the winner record, or nil outside the winner phase.
func (r *Round) Winner() *models.Winner {
	if r.winner == nil {
		return nil
	}
	w := *r.winner
	return &w
}

// CallerActive reports whether the caller should keep drawing.
func (r *Round) CallerActive() bool {
	return r.phase == models.PhaseGame && !r.callerDone
}

// AwaitingFallback reports whether the pool ran dry and the round waits for the
// forced return to selection.
func (r *Round) AwaitingFallback() bool {
	return r.phase == models.PhaseGame && r.callerDone
}

// Join creates a session for a new connection.
func (r *Round) Join(id models.Identity) *models.PlayerSession {
	name := ""
	if !id.IsGuest() {
		name = strings.TrimSpace(id.Username)
	}
	s := r.registry.Create(name, id.UserID)
	r.logAction(s, "player_join", nil)
	return s
}

// SendInit sends the full state snapshot to one session so a late joiner can
// catch up without replaying history.
func (r *Round) SendInit(sessionID int64) {
	r.fireEventToPlayer(sessionID, r.initEvent(sessionID))
}

// Leave removes a session. Nothing is broadcast.
func (r *Round) Leave(sessionID int64) {
	s, ok := r.registry.Get(sessionID)
	if !ok {
		return
	}
	r.logAction(s, "player_leave", map[string]interface{}{"confirmed": s.IsConfirmed})
	r.registry.Remove(sessionID)
}

func (r *Round) initEvent(sessionID int64) GameEvent {
	return GameEvent{
		Type:         EventInit,
		SessionID:    sessionID,
		Phase:        r.phase,
		TimeLeft:     intPtr(r.timeLeft),
		DrawnNumbers: r.pool.Drawn(),
		Winner:       r.Winner(),
	}
}

// Tick advances the countdown by one second. It does nothing during a game,
// where progress is driven by the caller and win claims.
func (r *Round) Tick() {
	if r.phase == models.PhaseGame {
		return
	}
	r.timeLeft--
	r.fireEvent(GameEvent{
		Type:     EventTimerUpdate,
		Phase:    r.phase,
		TimeLeft: intPtr(r.timeLeft),
	})
	if r.timeLeft > 0 {
		return
	}

	switch r.phase {
	case models.PhaseSelection:
		if r.registry.CountConfirmed() >= 1 {
			r.enterGame()
		} else {
			r.enterSelection()
		}
	case models.PhaseWinner:
		r.enterSelection()
	}
}

// CallNext draws the next number and broadcasts it. When the pool is empty it
// announces exhaustion once and stops; the hall then schedules ExhaustionTimeout.
func (r *Round) CallNext() {
	if !r.CallerActive() {
		return
	}
	n, err := r.pool.Draw()
	if err != nil {
		r.callerDone = true
		r.Log.WithField("round", r.ID).Info("All numbers called without a winner")
		r.fireEvent(GameEvent{Type: EventAllNumbersCalled})
		r.logAction(nil, string(EventAllNumbersCalled), nil)
		return
	}
	r.fireEvent(GameEvent{
		Type:         EventNumberCalled,
		Number:       n,
		Letter:       LetterFor(n),
		DrawnNumbers: r.pool.Drawn(),
	})
	r.logAction(nil, string(EventNumberCalled), map[string]interface{}{"number": n})
}

// ExhaustionTimeout ends a game whose pool ran out without a winner.
func (r *Round) ExhaustionTimeout() {
	if !r.AwaitingFallback() {
		return
	}
	r.enterSelection()
}

func (r *Round) enterSelection() {
	r.ID = uuid.New()
	r.phase = models.PhaseSelection
	r.timeLeft = r.cfg.SelectionSeconds
	r.winner = nil
	r.callerDone = false
	r.actionIndex = 0
	r.pool.Reset()
	r.registry.ResetSelections()

	r.Log.WithFields(logrus.Fields{"round": r.ID, "pot": r.pot}).Debug("Selection phase started")
	r.fireEvent(GameEvent{
		Type:     EventPhaseChange,
		Phase:    r.phase,
		TimeLeft: intPtr(r.timeLeft),
	})
	r.logAction(nil, "round_selection_start", map[string]interface{}{"pot": r.pot})
}

func (r *Round) enterGame() {
	r.phase = models.PhaseGame
	r.timeLeft = -1
	r.callerDone = false
	r.pool.Reset()

	players := r.registry.Confirmed()
	r.Log.WithFields(logrus.Fields{"round": r.ID, "players": len(players)}).Info("Game phase started")
	r.fireEvent(GameEvent{
		Type:     EventPhaseChange,
		Phase:    r.phase,
		TimeLeft: intPtr(r.timeLeft),
		Players:  players,
	})
	r.logAction(nil, "round_game_start", map[string]interface{}{"players": len(players), "pot": r.pot})
}

func (r *Round) enterWinner(s *models.PlayerSession) {
	r.phase = models.PhaseWinner
	r.timeLeft = r.cfg.WinnerSeconds
	r.winner = &models.Winner{Username: s.DisplayName, CardID: s.SelectedCardID}

	r.Log.WithFields(logrus.Fields{
		"round":   r.ID,
		"session": s.ID,
		"card":    s.SelectedCardID,
		"calls":   r.pool.Len(),
	}).Info("Bingo claimed")
	r.fireEvent(GameEvent{
		Type:     EventPhaseChange,
		Phase:    r.phase,
		TimeLeft: intPtr(r.timeLeft),
		Winner:   r.Winner(),
	})
	r.logAction(s, "round_winner", map[string]interface{}{
		"cardId":       s.SelectedCardID,
		"username":     s.DisplayName,
		"drawnNumbers": r.pool.Drawn(),
	})

	// guests cannot be paid; their pot rolls over to the next round
	if r.pot > 0 && s.Verified() && r.OnPayout != nil {
		amount := r.pot * int64(100-r.cfg.HouseCutPercent) / 100
		r.OnPayout(Payout{UserID: s.UserID, RoundID: r.ID, Amount: amount})
		r.pot = 0
	}
}

// HandleMessage applies a client intent. Invalid intents leave state unchanged
// and are answered privately with action_rejected. A non-nil Charge means the
// confirmation waits on a wallet debit; the hall reports back via CompleteCharge.
func (r *Round) HandleMessage(sessionID int64, msg ClientMessage) *Charge {
	s, ok := r.registry.Get(sessionID)
	if !ok {
		r.Log.WithField("session", sessionID).Debug("Message for unknown session dropped")
		return nil
	}

	switch msg.Type {
	case MsgSetUsername:
		r.handleSetUsername(s, msg.Username)
	case MsgSelectCard:
		r.handleSelectCard(s, int(msg.CardID))
	case MsgConfirmCard:
		return r.handleConfirmCard(s, int(msg.CardID))
	case MsgClaimBingo:
		r.handleClaimBingo(s, msg.IsValid)
	case MsgPing:
		r.fireEventToPlayer(s.ID, GameEvent{Type: EventPong})
	default:
		r.Log.WithFields(logrus.Fields{"session": s.ID, "type": msg.Type}).Debug("Unknown message type ignored")
	}
	return nil
}

func (r *Round) handleSetUsername(s *models.PlayerSession, name string) {
	if s.Verified() {
		r.reject(s, MsgSetUsername, "name is provided by your account")
		return
	}
	if s.IsConfirmed {
		r.reject(s, MsgSetUsername, "name is locked after confirmation")
		return
	}
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxUsernameLength {
		r.reject(s, MsgSetUsername, "invalid name")
		return
	}
	s.DisplayName = name
}

func (r *Round) handleSelectCard(s *models.PlayerSession, cardID int) {
	switch {
	case r.phase != models.PhaseSelection:
		r.reject(s, MsgSelectCard, "card selection is closed")
	case s.IsConfirmed:
		r.reject(s, MsgSelectCard, "card already confirmed")
	case s.PendingCharge:
		r.reject(s, MsgSelectCard, "confirmation in progress")
	default:
		if _, ok := r.deck.Card(cardID); !ok {
			r.reject(s, MsgSelectCard, "unknown card")
			return
		}
		s.SelectedCardID = cardID
	}
}

func (r *Round) handleConfirmCard(s *models.PlayerSession, cardID int) *Charge {
	switch {
	case r.phase != models.PhaseSelection:
		r.reject(s, MsgConfirmCard, "card selection is closed")
		return nil
	case s.IsConfirmed:
		r.reject(s, MsgConfirmCard, "card already confirmed")
		return nil
	case s.PendingCharge:
		r.reject(s, MsgConfirmCard, "confirmation in progress")
		return nil
	case s.SelectedCardID == 0:
		r.reject(s, MsgConfirmCard, "no card selected")
		return nil
	case cardID != 0 && cardID != s.SelectedCardID:
		r.reject(s, MsgConfirmCard, "card does not match selection")
		return nil
	}
	if _, taken := r.registry.CardConfirmedBy(s.SelectedCardID); taken {
		r.reject(s, MsgConfirmCard, "card already taken")
		return nil
	}

	if r.ChargesEnabled && r.cfg.Stake > 0 {
		if !s.Verified() {
			r.reject(s, MsgConfirmCard, "sign in to play for stakes")
			return nil
		}
		s.PendingCharge = true
		return &Charge{
			SessionID: s.ID,
			UserID:    s.UserID,
			RoundID:   r.ID,
			CardID:    s.SelectedCardID,
			Amount:    r.cfg.Stake,
		}
	}
	r.confirm(s)
	return nil
}

// CompleteCharge finishes a confirmation once its debit has been attempted.
// It returns true when the debit succeeded but can no longer be honoured, in
// which case the hall must refund it.
func (r *Round) CompleteCharge(ch Charge, err error) bool {
	s, ok := r.registry.Get(ch.SessionID)
	if !ok {
		return err == nil
	}
	s.PendingCharge = false
	if err != nil {
		r.Log.WithFields(logrus.Fields{"session": s.ID, "error": err}).Warn("Stake debit failed")
		r.reject(s, MsgConfirmCard, "payment failed")
		return false
	}

	_, taken := r.registry.CardConfirmedBy(ch.CardID)
	if ch.RoundID != r.ID || r.phase != models.PhaseSelection || s.IsConfirmed ||
		s.SelectedCardID != ch.CardID || taken {
		r.reject(s, MsgConfirmCard, "selection changed before payment completed")
		return true
	}
	s.Charged = true
	r.pot += ch.Amount
	r.confirm(s)
	return false
}

func (r *Round) confirm(s *models.PlayerSession) {
	s.IsConfirmed = true
	r.fireEventToPlayer(s.ID, GameEvent{Type: EventCardConfirmed, CardID: s.SelectedCardID})
	r.logAction(s, "card_confirmed", map[string]interface{}{"cardId": s.SelectedCardID, "charged": s.Charged})
}

func (r *Round) handleClaimBingo(s *models.PlayerSession, clientSaysValid bool) {
	if r.phase != models.PhaseGame {
		r.reject(s, MsgClaimBingo, "no game in progress")
		return
	}
	if !s.IsConfirmed {
		r.reject(s, MsgClaimBingo, "no confirmed card")
		return
	}
	card, ok := r.deck.Card(s.SelectedCardID)
	if !ok || !HasBingo(card, r.pool.Called) {
		r.logAction(s, "claim_rejected", map[string]interface{}{"cardId": s.SelectedCardID, "clientValid": clientSaysValid})
		r.reject(s, MsgClaimBingo, "claim not valid")
		return
	}
	r.enterWinner(s)
}

func (r *Round) reject(s *models.PlayerSession, action ClientMessageType, reason string) {
	r.Log.WithFields(logrus.Fields{
		"session": s.ID,
		"action":  action,
		"phase":   r.phase,
	}).Debugf("Rejected: %s", reason)
	r.fireEventToPlayer(s.ID, GameEvent{Type: EventActionRejected, Action: action, Reason: reason})
}

// fireEvent broadcasts an event to all connections.
func (r *Round) fireEvent(ev GameEvent) {
	if r.BroadcastFn != nil {
		r.BroadcastFn(ev)
	}
}

// fireEventToPlayer sends an event only to a specific session.
func (r *Round) fireEventToPlayer(sessionID int64, ev GameEvent) {
	if r.BroadcastToPlayerFn != nil {
		r.BroadcastToPlayerFn(sessionID, ev)
	}
}

// logAction hands a history entry to the recorder.
func (r *Round) logAction(s *models.PlayerSession, actionType string, payload map[string]interface{}) {
	if r.Recorder == nil {
		return
	}
	r.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	rec := models.RoundAction{
		RoundID:       r.ID,
		ActionIndex:   r.actionIndex,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	if s != nil {
		rec.SessionID = s.ID
		rec.ActorUserID = s.UserID
	}
	r.Recorder.Record(rec)
}
