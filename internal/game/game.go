// internal/game/game.go
package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/pitch/internal/cache"
	"github.com/jason-s-yu/pitch/internal/models"
	"github.com/jason-s-yu/pitch/internal/policy"
	"github.com/sirupsen/logrus"
)

// Phase is the coarse state of a game.
type Phase string

const (
	PhaseWaiting      Phase = "waiting"
	PhaseBidding      Phase = "bidding"
	PhasePlaying      Phase = "playing"
	PhaseRoundSettled Phase = "round_settled"
	PhaseGameOver     Phase = "game_over"
)

// policyTimeout bounds a single provider call.
const policyTimeout = 5 * time.Second

// OnRoundSettledFunc receives every settled round. It runs with the game lock
// held and must not call back into the game.
type OnRoundSettledFunc func(gameID uuid.UUID, roundNumber int, result RoundResult)

// OnGameEndFunc receives the winning team and final scores. Same locking rules
// as OnRoundSettledFunc.
type OnGameEndFunc func(gameID uuid.UUID, winner int, scores TeamScores)

type decisionKind int

const (
	decideBid decisionKind = iota
	decidePlay
)

// decision is everything a bot turn needs, captured under the lock so the
// provider call can run without it.
type decision struct {
	kind     decisionKind
	seat     int
	gen      uint64
	turn     int
	human    bool
	features []float32
	mask     []bool
	provider policy.Provider
	delay    time.Duration
	seed     int64
	log      *logrus.Entry
}

// PitchGame owns one table: the scoreboard, the live round and the bot turns
// in flight. Every exported method takes Mu.
type PitchGame struct {
	ID         uuid.UUID
	HouseRules HouseRules
	Policy     policy.Provider
	teamPolicy [NumTeams]policy.Provider

	Phase           Phase
	Scores          TeamScores
	Dealer          int
	RoundNumber     int
	Round           *Round
	LastRoundResult *RoundResult
	Winner          int // team, -1 until game over

	// TurnID increments on every accepted action; a bot answer computed for
	// an older turn is discarded.
	TurnID        int
	generation    uint64
	actionIndex   int
	scheduledTurn int
	autoPlay      bool
	closed        bool

	rng     *rand.Rand
	ctx     context.Context
	cancel  context.CancelFunc
	pending sync.WaitGroup
	log     *logrus.Entry

	Mu sync.Mutex

	// BroadcastFn is used to send events to all viewers. If nil, no broadcast is done.
	BroadcastFn    func(ev GameEvent)
	OnRoundSettled OnRoundSettledFunc
	OnGameEnd      OnGameEndFunc
}

// NewPitchGame creates a game in the waiting phase. A nil provider makes
// every bot seat play uniformly random legal moves.
func NewPitchGame(rules HouseRules, provider policy.Provider) *PitchGame {
	id := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())
	return &PitchGame{
		ID:            id,
		HouseRules:    rules,
		Policy:        provider,
		Phase:         PhaseWaiting,
		Winner:        -1,
		scheduledTurn: -1,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		ctx:           ctx,
		cancel:        cancel,
		log:           logrus.WithField("game_id", id),
	}
}

// SetLogger routes the game's logs through l.
func (g *PitchGame) SetLogger(l *logrus.Logger) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	g.log = l.WithField("game_id", g.ID)
}

// SetSeed makes deals, dealer choice and bot fallbacks reproducible.
func (g *PitchGame) SetSeed(seed int64) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	g.rng = rand.New(rand.NewSource(seed))
}

// Generation identifies the live round. It changes on every deal, reset and close.
func (g *PitchGame) Generation() uint64 {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.generation
}

// WaitIdle blocks until no bot turn is in flight. Human actions (SubmitBid,
// SubmitPlay, NewGame, SetAutoPlay) can schedule new bot turns, so they must
// not run concurrently with WaitIdle; callers serialize them, as tests and the
// simulator do.
func (g *PitchGame) WaitIdle() {
	g.pending.Wait()
}

func (g *PitchGame) entry() *logrus.Entry {
	return g.log.WithField("generation", g.generation)
}

// advanceGeneration abandons every bot turn in flight. Assumes lock is held.
func (g *PitchGame) advanceGeneration() {
	g.generation++
	g.cancel()
	g.ctx, g.cancel = context.WithCancel(context.Background())
	g.scheduledTurn = -1
}

// NewGame zeroes the scores, picks a random dealer and deals the first round.
// It may be called from any phase.
func (g *PitchGame) NewGame() error {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	if g.closed {
		return fmt.Errorf("game closed: %w", ErrWrongPhase)
	}
	if err := g.HouseRules.Validate(); err != nil {
		return fmt.Errorf("house rules: %w", err)
	}

	g.Scores = TeamScores{}
	g.Winner = -1
	g.LastRoundResult = nil
	g.RoundNumber = 0
	g.Dealer = g.rng.Intn(NumSeats)
	g.logAction(-1, models.ActionNewGame, map[string]interface{}{"dealer": g.Dealer})

	if err := g.startRound(EventGameNew); err != nil {
		return err
	}
	g.entry().WithField("dealer", g.Dealer).Info("new game started")
	g.scheduleBotTurn()
	return nil
}

// Reset abandons the game in progress and returns to the waiting phase.
func (g *PitchGame) Reset() {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	g.advanceGeneration()
	g.Phase = PhaseWaiting
	g.Scores = TeamScores{}
	g.Winner = -1
	g.Round = nil
	g.LastRoundResult = nil
	g.RoundNumber = 0
	g.TurnID++

	g.entry().Info("game reset")
	g.logAction(-1, models.ActionReset, nil)
	g.fireEvent(GameEvent{Type: EventGameReset})
}

// Close stops all bot activity for good. Used when a game leaves the store.
func (g *PitchGame) Close() {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	g.closed = true
	g.generation++
	g.cancel()
}

// SetAutoPlay lets the random fallback act for human seats.
func (g *PitchGame) SetAutoPlay(on bool) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	if g.autoPlay == on {
		return
	}
	g.autoPlay = on
	g.entry().WithField("auto_play", on).Info("auto play toggled")
	g.logAction(-1, models.ActionAutoPlay, map[string]interface{}{"enabled": on})
	if on {
		g.scheduleBotTurn()
	}
}

// SetTeamPolicy seats provider on both bot seats of team. nil restores the
// game-wide provider.
func (g *PitchGame) SetTeamPolicy(team int, provider policy.Provider) error {
	if team < 0 || team >= NumTeams {
		return fmt.Errorf("team %d: %w", team, ErrUnknownSeat)
	}
	g.Mu.Lock()
	defer g.Mu.Unlock()
	g.teamPolicy[team] = provider
	return nil
}

func (g *PitchGame) providerFor(seat int) policy.Provider {
	if p := g.teamPolicy[TeamOf(seat)]; p != nil {
		return p
	}
	return g.Policy
}

// LegalBids returns the bid mask for the seat on turn, all false outside bidding.
func (g *PitchGame) LegalBids() [NumBidActions]bool {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	if g.Phase != PhaseBidding {
		return [NumBidActions]bool{}
	}
	return g.Round.LegalBids()
}

// LegalMoves returns the cards seat may play now.
func (g *PitchGame) LegalMoves(seat int) []models.Card {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	if g.Phase != PhasePlaying {
		return nil
	}
	return g.Round.LegalMoves(seat)
}

// SubmitBid is the entry point for a human bid or pass.
func (g *PitchGame) SubmitBid(seat, amount int) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	if err := g.checkHuman(seat); err != nil {
		return err
	}
	return g.submitBid(seat, amount)
}

// SubmitPlay is the entry point for a human card play.
func (g *PitchGame) SubmitPlay(seat int, card models.Card) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	if err := g.checkHuman(seat); err != nil {
		return err
	}
	return g.submitPlay(seat, card)
}

func (g *PitchGame) checkHuman(seat int) error {
	if !validSeat(seat) {
		return fmt.Errorf("seat %d: %w", seat, ErrUnknownSeat)
	}
	if !g.HouseRules.IsHuman(seat) {
		return fmt.Errorf("seat %d: %w", seat, ErrHumanSeatsOnly)
	}
	return nil
}

// startRound deals with the current dealer and opens bidding. Assumes lock is held.
func (g *PitchGame) startRound(ev GameEventType) error {
	round, err := DealRound(g.Dealer, g.rng, g.HouseRules.HandSize, g.HouseRules.StuckDealerBid)
	if err != nil {
		return fmt.Errorf("deal: %w", err)
	}
	g.advanceGeneration()
	g.Round = round
	g.RoundNumber++
	g.Phase = PhaseBidding
	g.TurnID++

	g.logAction(-1, string(EventRoundDealt), map[string]interface{}{
		"round":  g.RoundNumber,
		"dealer": g.Dealer,
		"hands":  round.OriginalHands,
	})
	g.fireEvent(GameEvent{Type: ev, Seat: intPtr(g.Dealer)})
	return nil
}

// submitBid applies a bid from any controller. Assumes lock is held.
func (g *PitchGame) submitBid(seat, amount int) error {
	if g.Phase != PhaseBidding {
		return fmt.Errorf("phase %s: %w", g.Phase, ErrWrongPhase)
	}
	r := g.Round
	if err := r.SubmitBid(seat, amount); err != nil {
		g.entry().WithError(err).WithField("seat", seat).Debug("bid rejected")
		return err
	}
	g.TurnID++
	g.logAction(seat, models.ActionBid, map[string]interface{}{"amount": amount})
	g.fireEvent(GameEvent{Type: EventBidPlaced, Seat: intPtr(seat), Amount: intPtr(amount)})

	if r.AuctionClosed {
		g.Phase = PhasePlaying
		g.entry().WithFields(logrus.Fields{
			"bid_winner": r.BidWinner,
			"bid_amount": r.BidAmount,
			"stuck":      r.Stuck,
		}).Info("auction closed")
		g.logAction(r.BidWinner, string(EventAuctionClosed), map[string]interface{}{"amount": r.BidAmount, "stuck": r.Stuck})
		g.fireEvent(GameEvent{
			Type:    EventAuctionClosed,
			Seat:    intPtr(r.BidWinner),
			Amount:  intPtr(r.BidAmount),
			Payload: map[string]interface{}{"stuck": r.Stuck},
		})
	}
	g.scheduleBotTurn()
	return nil
}

// submitPlay applies a card play from any controller. Assumes lock is held.
func (g *PitchGame) submitPlay(seat int, card models.Card) error {
	if g.Phase != PhasePlaying {
		return fmt.Errorf("phase %s: %w", g.Phase, ErrWrongPhase)
	}
	r := g.Round
	out, err := r.PlayCard(seat, card)
	if err != nil {
		g.entry().WithError(err).WithField("seat", seat).Debug("play rejected")
		return err
	}
	g.TurnID++
	g.logAction(seat, models.ActionPlay, map[string]interface{}{"card": card.String()})
	c := card
	g.fireEvent(GameEvent{Type: EventCardPlayed, Seat: intPtr(seat), Card: &c})

	if out.TrumpSet {
		g.entry().WithField("trump", r.Trump.String()).Info("trump set")
		g.fireEvent(GameEvent{
			Type:    EventTrumpSet,
			Seat:    intPtr(seat),
			Payload: map[string]interface{}{"trump": r.Trump.String()},
		})
	}
	if out.TrickComplete {
		g.logAction(out.Winner, string(EventTrickWon), map[string]interface{}{"trick": len(r.Tricks)})
		g.fireEvent(GameEvent{Type: EventTrickWon, Seat: intPtr(out.Winner)})
	}
	if out.RoundComplete {
		g.settleRound()
		return nil
	}
	g.scheduleBotTurn()
	return nil
}

// settleRound scores the finished round, then either ends the game or deals
// the next round with the deal passed left. Assumes lock is held.
func (g *PitchGame) settleRound() {
	res := SettleRound(g.Round, &g.Scores)
	g.LastRoundResult = &res
	g.Phase = PhaseRoundSettled

	g.entry().WithFields(logrus.Fields{
		"round":    g.RoundNumber,
		"bid_made": res.BidMade,
		"delta":    res.ScoreDelta,
		"scores":   res.Scores,
	}).Info("round settled")
	g.logAction(-1, string(EventRoundSettled), map[string]interface{}{"round": g.RoundNumber, "result": res})
	g.fireEvent(GameEvent{Type: EventRoundSettled, Payload: map[string]interface{}{"result": res}})
	if g.OnRoundSettled != nil {
		g.OnRoundSettled(g.ID, g.RoundNumber, res)
	}

	if over, winner := GameOver(g.Scores, g.HouseRules.WinningScore, res.BiddingTeam); over {
		g.advanceGeneration()
		g.Phase = PhaseGameOver
		g.Winner = winner
		g.entry().WithFields(logrus.Fields{"winner": winner, "scores": g.Scores}).Info("game over")
		g.logAction(-1, string(EventGameOver), map[string]interface{}{"winner": winner, "scores": g.Scores})
		g.fireEvent(GameEvent{Type: EventGameOver, Payload: map[string]interface{}{"winner": winner}})
		if g.OnGameEnd != nil {
			g.OnGameEnd(g.ID, winner, g.Scores)
		}
		return
	}

	g.Dealer = NextSeat(g.Dealer)
	if err := g.startRound(EventRoundDealt); err != nil {
		g.entry().WithError(err).Error("failed to deal next round")
		return
	}
	g.scheduleBotTurn()
}

// scheduleBotTurn starts the provider call for the seat on turn if a bot
// controls it. At most one call is in flight per turn. Assumes lock is held.
func (g *PitchGame) scheduleBotTurn() {
	if g.closed || (g.Phase != PhaseBidding && g.Phase != PhasePlaying) {
		return
	}
	r := g.Round
	seat := r.CurrentPlayer
	human := g.HouseRules.IsHuman(seat)
	if human && !g.autoPlay {
		return
	}
	if g.scheduledTurn == g.TurnID {
		return
	}

	d := decision{
		seat:  seat,
		gen:   g.generation,
		turn:  g.TurnID,
		human: human,
		delay: g.HouseRules.ThinkDelay(),
		seed:  g.rng.Int63(),
		log:   g.entry().WithField("seat", seat),
	}
	if !human {
		d.provider = g.providerFor(seat)
	}
	if g.Phase == PhaseBidding {
		mask := r.LegalBids()
		d.kind = decideBid
		d.mask = mask[:]
		d.features = policy.EncodeBidding(policy.BiddingView{Hand: r.Hands[seat], Seat: seat})
	} else {
		mask := r.LegalMoveMask(seat)
		d.kind = decidePlay
		d.mask = mask[:]
		d.features = policy.EncodePlaying(g.playingView(seat))
	}

	g.scheduledTurn = g.TurnID
	g.pending.Add(1)
	go g.runDecision(g.ctx, d)
}

func (g *PitchGame) playingView(seat int) policy.PlayingView {
	r := g.Round
	v := policy.PlayingView{
		Hand:       r.Hands[seat],
		Trump:      r.Trump,
		Trick:      r.Trick.Cards(),
		Played:     r.History,
		BidWinner:  r.BidWinner,
		BidAmount:  r.BidAmount,
		PrevWinner: -1,
	}
	if r.PrevTrick != nil {
		v.PrevTrick = r.PrevTrick.Cards()
		v.PrevWinner = r.PrevTrick.Winner
	}
	return v
}

// runDecision waits out the think delay, asks the provider and applies the
// answer if the round it was computed for is still live.
func (g *PitchGame) runDecision(ctx context.Context, d decision) {
	defer g.pending.Done()

	if d.delay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.delay):
		}
	}

	action := g.decide(ctx, d)
	if action < 0 {
		return
	}

	g.Mu.Lock()
	defer g.Mu.Unlock()
	if err := g.applyPolicyAction(d, action); err != nil {
		if errors.Is(err, ErrStaleResponse) {
			d.log.WithError(err).Debug("discarding policy response")
			return
		}
		d.log.WithError(err).Error("policy action rejected")
	}
}

// decide returns a legal action index, falling back to a uniform random
// choice when the provider is missing, fails or answers illegally. It
// returns -1 only when the turn was abandoned.
func (g *PitchGame) decide(ctx context.Context, d decision) int {
	if d.provider != nil {
		pctx, cancel := context.WithTimeout(ctx, policyTimeout)
		var idx int
		var err error
		if d.kind == decideBid {
			idx, err = d.provider.ChooseBid(pctx, d.features, d.mask)
		} else {
			idx, err = d.provider.ChoosePlay(pctx, d.features, d.mask)
		}
		cancel()

		if err == nil && policy.Legal(d.mask, idx) {
			return idx
		}
		if ctx.Err() != nil {
			return -1
		}
		if err == nil {
			err = fmt.Errorf("provider chose illegal action %d", idx)
		}
		d.log.WithError(err).Warn("policy provider failed, falling back to random")
	}

	idx, err := policy.PickRandom(d.mask, rand.New(rand.NewSource(d.seed)))
	if err != nil {
		d.log.WithError(err).Error("bot seat has no legal action")
		return -1
	}
	return idx
}

// applyPolicyAction applies a bot's chosen action index. Answers for a
// previous generation or turn fail with ErrStaleResponse and change nothing.
// Assumes lock is held.
func (g *PitchGame) applyPolicyAction(d decision, action int) error {
	if d.gen != g.generation || d.turn != g.TurnID {
		return fmt.Errorf("generation %d turn %d, live %d/%d: %w", d.gen, d.turn, g.generation, g.TurnID, ErrStaleResponse)
	}
	if d.human && !g.autoPlay {
		return fmt.Errorf("auto play switched off: %w", ErrStaleResponse)
	}
	g.scheduledTurn = -1

	if d.kind == decideBid {
		if action < 0 || action >= NumBidActions {
			return fmt.Errorf("bid action %d: %w", action, ErrIllegalBid)
		}
		return g.submitBid(d.seat, BidActions[action])
	}
	card, err := models.CardFromIndex(action)
	if err != nil {
		return fmt.Errorf("%v: %w", err, ErrIllegalCard)
	}
	return g.submitPlay(d.seat, card)
}

// fireEvent stamps the event with the generation and a full snapshot and
// broadcasts it. Assumes lock is held.
func (g *PitchGame) fireEvent(ev GameEvent) {
	if g.BroadcastFn == nil {
		return
	}
	ev.Generation = g.generation
	snap := g.snapshot()
	ev.State = &snap
	g.BroadcastFn(ev)
}

// logAction sends the action details to the historian via Redis.
// Assumes lock is held by caller.
func (g *PitchGame) logAction(seat int, actionType string, payload map[string]interface{}) {
	g.actionIndex++
	if cache.Rdb == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.GameActionRecord{
		GameID:        g.ID,
		ActionIndex:   g.actionIndex,
		Generation:    g.generation,
		Seat:          seat,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	log := g.entry()
	go func(rec cache.GameActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.PublishGameAction(ctx, rec); err != nil {
			log.WithError(err).Warnf("failed to publish action %d", rec.ActionIndex)
		}
	}(record)
}
