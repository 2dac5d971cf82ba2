package game

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/bingo/internal/models"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// ErrHallClosed is returned when the hall loop is no longer running.
var ErrHallClosed = errors.New("hall is closed")

// Wallet is the balance collaborator used for stakes and payouts.
type Wallet interface {
	Debit(ctx context.Context, userID uuid.UUID, amount int64, roundID uuid.UUID) error
	Credit(ctx context.Context, userID uuid.UUID, amount int64, roundID uuid.UUID) error
}

// HallOptions configures a Hall. Zero values fall back to the standard timings.
type HallOptions struct {
	Round           RoundConfig
	CallInterval    time.Duration
	ExhaustionDelay time.Duration
	WalletTimeout   time.Duration
	InboxSize       int

	Deck     *Deck
	Clock    clockwork.Clock
	Rand     *rand.Rand
	Logger   logrus.FieldLogger
	Recorder Recorder
	Wallet   Wallet
}

func (o *HallOptions) applyDefaults() {
	if o.Round.SelectionSeconds <= 0 {
		o.Round.SelectionSeconds = 45
	}
	if o.Round.WinnerSeconds <= 0 {
		o.Round.WinnerSeconds = 5
	}
	if o.CallInterval <= 0 {
		o.CallInterval = 3 * time.Second
	}
	if o.ExhaustionDelay <= 0 {
		o.ExhaustionDelay = 5 * time.Second
	}
	if o.WalletTimeout <= 0 {
		o.WalletTimeout = 5 * time.Second
	}
	if o.InboxSize <= 0 {
		o.InboxSize = 256
	}
	if o.Deck == nil {
		o.Deck = NewDeck(DefaultCardCount, 1)
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
}

type hallMsg interface{ isHallMsg() }

type joinMsg struct {
	identity models.Identity
	outbox   chan<- []byte
	reply    chan int64
}

type leaveMsg struct{ sessionID int64 }

type clientMsg struct {
	sessionID int64
	msg       ClientMessage
}

type stateMsg struct{ reply chan HallState }

type chargeResultMsg struct {
	charge Charge
	err    error
}

func (joinMsg) isHallMsg()         {}
func (leaveMsg) isHallMsg()        {}
func (clientMsg) isHallMsg()       {}
func (stateMsg) isHallMsg()        {}
func (chargeResultMsg) isHallMsg() {}

// Hall owns one Round and every connection's outbox. All mutations happen on the
// goroutine running Run: client messages, the one-second phase clock, the caller
// and the exhaustion fallback are applied one at a time in arrival order.
type Hall struct {
	opts  HallOptions
	log   logrus.FieldLogger
	clock clockwork.Clock
	round *Round

	inbox chan hallMsg
	done  chan struct{}
	ctx   context.Context

	outboxes map[int64]chan<- []byte
	dropped  []int64

	caller   clockwork.Ticker
	fallback clockwork.Timer
}

// NewHall builds a hall. Call Run to start it.
func NewHall(opts HallOptions) *Hall {
	opts.applyDefaults()
	h := &Hall{
		opts:     opts,
		log:      opts.Logger,
		clock:    opts.Clock,
		inbox:    make(chan hallMsg, opts.InboxSize),
		done:     make(chan struct{}),
		ctx:      context.Background(),
		outboxes: make(map[int64]chan<- []byte),
	}

	r := NewRound(opts.Round, opts.Deck, opts.Rand)
	r.Log = opts.Logger
	r.Recorder = opts.Recorder
	r.ChargesEnabled = opts.Wallet != nil
	r.BroadcastFn = h.broadcast
	r.BroadcastToPlayerFn = h.sendTo
	r.OnPayout = h.payout
	h.round = r
	return h
}

// Deck returns the card layouts served by this hall. It is immutable.
func (h *Hall) Deck() *Deck { return h.opts.Deck }

// Run drives the hall until ctx is cancelled. It closes every outbox on exit.
func (h *Hall) Run(ctx context.Context) error {
	h.ctx = ctx
	defer h.shutdown()

	phaseClock := h.clock.NewTicker(time.Second)
	defer phaseClock.Stop()

	h.round.Start()
	h.log.WithFields(logrus.Fields{
		"selection": h.opts.Round.SelectionSeconds,
		"cards":     h.opts.Deck.Len(),
	}).Info("Hall started")

	for {
		select {
		case <-ctx.Done():
			h.log.Info("Hall shutting down")
			return ctx.Err()

		case m := <-h.inbox:
			h.handle(m)

		case <-phaseClock.Chan():
			h.round.Tick()

		case <-tickerChan(h.caller):
			h.round.CallNext()

		case <-timerChan(h.fallback):
			h.fallback = nil
			h.round.ExhaustionTimeout()
		}
		h.flushDropped()
		h.syncTimers()
	}
}

func (h *Hall) handle(m hallMsg) {
	switch msg := m.(type) {
	case joinMsg:
		s := h.round.Join(msg.identity)
		h.outboxes[s.ID] = msg.outbox
		h.round.SendInit(s.ID)
		msg.reply <- s.ID

	case leaveMsg:
		h.round.Leave(msg.sessionID)
		h.closeOutbox(msg.sessionID)

	case clientMsg:
		if ch := h.round.HandleMessage(msg.sessionID, msg.msg); ch != nil {
			go h.charge(*ch)
		}

	case stateMsg:
		msg.reply <- h.round.State()

	case chargeResultMsg:
		if refund := h.round.CompleteCharge(msg.charge, msg.err); refund {
			go h.credit(msg.charge.UserID, msg.charge.Amount, msg.charge.RoundID, "refund")
		}
	}
}

// syncTimers starts or stops the caller and the exhaustion fallback so they
// match the round's phase.
func (h *Hall) syncTimers() {
	if h.round.CallerActive() {
		if h.caller == nil {
			h.caller = h.clock.NewTicker(h.opts.CallInterval)
		}
	} else if h.caller != nil {
		h.caller.Stop()
		h.caller = nil
	}

	if h.round.AwaitingFallback() {
		if h.fallback == nil {
			h.fallback = h.clock.NewTimer(h.opts.ExhaustionDelay)
		}
	} else if h.fallback != nil {
		stopAndDrainTimer(h.fallback)
		h.fallback = nil
	}
}

// broadcast marshals ev once and queues it on every outbox. A full outbox
// marks its connection for removal; nobody else waits on it.
func (h *Hall) broadcast(ev GameEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Errorf("Failed to marshal broadcast event (%s): %v", ev.Type, err)
		return
	}
	for id, out := range h.outboxes {
		h.push(id, out, data)
	}
}

func (h *Hall) sendTo(sessionID int64, ev GameEvent) {
	out, ok := h.outboxes[sessionID]
	if !ok {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Errorf("Failed to marshal private event (%s) for session %d: %v", ev.Type, sessionID, err)
		return
	}
	h.push(sessionID, out, data)
}

func (h *Hall) push(id int64, out chan<- []byte, data []byte) {
	select {
	case out <- data:
	default:
		h.log.WithField("session", id).Warn("Outbox full, dropping connection")
		h.dropped = append(h.dropped, id)
	}
}

func (h *Hall) flushDropped() {
	for _, id := range h.dropped {
		h.round.Leave(id)
		h.closeOutbox(id)
	}
	h.dropped = h.dropped[:0]
}

func (h *Hall) closeOutbox(id int64) {
	if out, ok := h.outboxes[id]; ok {
		close(out)
		delete(h.outboxes, id)
	}
}

func (h *Hall) shutdown() {
	for id := range h.outboxes {
		h.closeOutbox(id)
	}
	if h.caller != nil {
		h.caller.Stop()
	}
	if h.fallback != nil {
		stopAndDrainTimer(h.fallback)
	}
	close(h.done)
}

func (h *Hall) charge(ch Charge) {
	ctx, cancel := context.WithTimeout(h.ctx, h.opts.WalletTimeout)
	err := h.opts.Wallet.Debit(ctx, ch.UserID, ch.Amount, ch.RoundID)
	cancel()
	select {
	case h.inbox <- chargeResultMsg{charge: ch, err: err}:
	case <-h.done:
		if err == nil {
			h.credit(ch.UserID, ch.Amount, ch.RoundID, "refund")
		}
	}
}

func (h *Hall) payout(p Payout) {
	go h.credit(p.UserID, p.Amount, p.RoundID, "payout")
}

func (h *Hall) credit(userID uuid.UUID, amount int64, roundID uuid.UUID, reason string) {
	if h.opts.Wallet == nil || amount <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.opts.WalletTimeout)
	defer cancel()
	fields := logrus.Fields{"user": userID, "amount": amount, "round": roundID, "reason": reason}
	if err := h.opts.Wallet.Credit(ctx, userID, amount, roundID); err != nil {
		h.log.WithFields(fields).WithError(err).Error("Wallet credit failed")
		return
	}
	h.log.WithFields(fields).Info("Wallet credited")
}

// send delivers m to the loop unless the hall has stopped or ctx ends first.
func (h *Hall) send(ctx context.Context, m hallMsg) error {
	select {
	case h.inbox <- m:
		return nil
	case <-h.done:
		return ErrHallClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Join creates a session for a new connection. Events for it, starting with the
// init snapshot, are queued on outbox; the hall closes outbox when the session ends.
func (h *Hall) Join(ctx context.Context, id models.Identity, outbox chan<- []byte) (int64, error) {
	reply := make(chan int64, 1)
	if err := h.send(ctx, joinMsg{identity: id, outbox: outbox, reply: reply}); err != nil {
		return 0, err
	}
	select {
	case sid := <-reply:
		return sid, nil
	case <-h.done:
		return 0, ErrHallClosed
	}
}

// Leave removes a session and closes its outbox.
func (h *Hall) Leave(sessionID int64) {
	_ = h.send(context.Background(), leaveMsg{sessionID: sessionID})
}

// Submit queues a client message for the session.
func (h *Hall) Submit(ctx context.Context, sessionID int64, msg ClientMessage) error {
	return h.send(ctx, clientMsg{sessionID: sessionID, msg: msg})
}

// State returns a snapshot taken on the hall goroutine.
func (h *Hall) State(ctx context.Context) (HallState, error) {
	reply := make(chan HallState, 1)
	if err := h.send(ctx, stateMsg{reply: reply}); err != nil {
		return HallState{}, err
	}
	select {
	case st := <-reply:
		return st, nil
	case <-h.done:
		return HallState{}, ErrHallClosed
	case <-ctx.Done():
		return HallState{}, ctx.Err()
	}
}

func tickerChan(t clockwork.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.Chan()
}

func timerChan(t clockwork.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.Chan()
}

// stopAndDrainTimer stops a timer and empties its channel if it already fired.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
