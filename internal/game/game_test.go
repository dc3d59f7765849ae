// internal/game/game_test.go
package game

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/pitch/internal/models"
	"github.com/jason-s-yu/pitch/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBroadcaster collects events instead of sending them over WS.
type mockBroadcaster struct {
	mu        sync.Mutex
	allEvents []GameEvent
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{}
}

func (mb *mockBroadcaster) broadcastFn(ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = append(mb.allEvents, ev)
}

func (mb *mockBroadcaster) clear() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = nil
}

func (mb *mockBroadcaster) getLastEvent() *GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if len(mb.allEvents) == 0 {
		return nil
	}
	return &mb.allEvents[len(mb.allEvents)-1]
}

func (mb *mockBroadcaster) count(typ GameEventType) int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	n := 0
	for _, ev := range mb.allEvents {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func (mb *mockBroadcaster) types() []GameEventType {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	out := make([]GameEventType, len(mb.allEvents))
	for i, ev := range mb.allEvents {
		out[i] = ev.Type
	}
	return out
}

// setupTestGame builds a seeded game with the given human seats and a mock broadcaster.
func setupTestGame(t *testing.T, provider policy.Provider, humanSeats ...int) (*PitchGame, *mockBroadcaster) {
	t.Helper()
	rules := DefaultHouseRules()
	rules.HumanSeats = humanSeats
	require.NoError(t, rules.Validate())

	g := NewPitchGame(rules, provider)
	g.SetSeed(11)
	mb := newMockBroadcaster()
	g.BroadcastFn = mb.broadcastFn
	return g, mb
}

// firstLegal is a provider that always takes the lowest legal index.
type firstLegal struct {
	bids, plays atomic.Int32
}

func (p *firstLegal) pick(mask []bool) (int, error) {
	for i, ok := range mask {
		if ok {
			return i, nil
		}
	}
	return -1, policy.ErrNoLegalAction
}

func (p *firstLegal) ChooseBid(_ context.Context, features []float32, mask []bool) (int, error) {
	p.bids.Add(1)
	if len(features) != policy.BiddingFeatureWidth || len(mask) != NumBidActions {
		return -1, errors.New("bad bidding shapes")
	}
	return p.pick(mask)
}

func (p *firstLegal) ChoosePlay(_ context.Context, features []float32, mask []bool) (int, error) {
	p.plays.Add(1)
	if len(features) != policy.PlayingFeatureWidth || len(mask) != models.NumCards {
		return -1, errors.New("bad playing shapes")
	}
	return p.pick(mask)
}

// brokenProvider fails or answers illegally on every call.
type brokenProvider struct {
	calls   atomic.Int32
	illegal bool
}

func (p *brokenProvider) answer(mask []bool) (int, error) {
	p.calls.Add(1)
	if !p.illegal {
		return -1, errors.New("model unavailable")
	}
	for i, ok := range mask {
		if !ok {
			return i, nil
		}
	}
	return len(mask), nil
}

func (p *brokenProvider) ChooseBid(_ context.Context, _ []float32, mask []bool) (int, error) {
	return p.answer(mask)
}

func (p *brokenProvider) ChoosePlay(_ context.Context, _ []float32, mask []bool) (int, error) {
	return p.answer(mask)
}

func TestAllBotGameRunsToCompletion(t *testing.T) {
	provider := &firstLegal{}
	g, mb := setupTestGame(t, provider)

	var results []RoundResult
	g.OnRoundSettled = func(_ uuid.UUID, _ int, res RoundResult) {
		results = append(results, res)
	}
	var ended int32
	g.OnGameEnd = func(_ uuid.UUID, winner int, scores TeamScores) {
		atomic.AddInt32(&ended, 1)
		assert.GreaterOrEqual(t, scores[winner], 11)
	}

	require.NoError(t, g.NewGame())
	g.WaitIdle()

	snap := g.Snapshot()
	assert.Equal(t, PhaseGameOver, snap.Phase)
	require.GreaterOrEqual(t, snap.Winner, 0)
	assert.GreaterOrEqual(t, snap.Scores[snap.Winner], 11)
	assert.EqualValues(t, 1, atomic.LoadInt32(&ended))
	assert.Greater(t, provider.bids.Load(), int32(0))
	assert.Greater(t, provider.plays.Load(), int32(0))

	require.NotEmpty(t, results)
	assert.Equal(t, len(results), mb.count(EventRoundSettled))
	assert.Equal(t, 1, mb.count(EventGameOver))
	for i := 1; i < len(results); i++ {
		assert.Equal(t, NextSeat(results[i-1].Dealer), results[i].Dealer, "dealer passes left")
	}
	var running TeamScores
	for _, res := range results {
		running[0] += res.ScoreDelta[0]
		running[1] += res.ScoreDelta[1]
		assert.Equal(t, running, res.Scores)
	}
	assert.Equal(t, running, snap.Scores)
}

func TestSeededGamesAreReproducible(t *testing.T) {
	play := func() TeamScores {
		g, _ := setupTestGame(t, &firstLegal{})
		require.NoError(t, g.NewGame())
		g.WaitIdle()
		return g.Snapshot().Scores
	}
	assert.Equal(t, play(), play())
}

func TestProviderFailureFallsBackToRandom(t *testing.T) {
	for _, illegal := range []bool{false, true} {
		provider := &brokenProvider{illegal: illegal}
		g, _ := setupTestGame(t, provider)
		require.NoError(t, g.NewGame())
		g.WaitIdle()

		assert.Equal(t, PhaseGameOver, g.Snapshot().Phase, "illegal=%v", illegal)
		assert.Greater(t, provider.calls.Load(), int32(0))
	}
}

func TestNilProviderPlaysRandom(t *testing.T) {
	g, _ := setupTestGame(t, nil)
	require.NoError(t, g.NewGame())
	g.WaitIdle()
	assert.Equal(t, PhaseGameOver, g.Snapshot().Phase)
}

func TestTeamPolicyOverridesProvider(t *testing.T) {
	shared, team1 := &firstLegal{}, &firstLegal{}
	g, _ := setupTestGame(t, shared)
	require.NoError(t, g.SetTeamPolicy(1, team1))
	assert.ErrorIs(t, g.SetTeamPolicy(2, team1), ErrUnknownSeat)

	require.NoError(t, g.NewGame())
	g.WaitIdle()

	assert.Equal(t, PhaseGameOver, g.Snapshot().Phase)
	assert.Greater(t, shared.plays.Load(), int32(0))
	assert.Greater(t, team1.plays.Load(), int32(0))
}

func TestHumanSeatDrivesTheGame(t *testing.T) {
	g, mb := setupTestGame(t, &firstLegal{}, 0)
	require.NoError(t, g.NewGame())

	assert.ErrorIs(t, g.SubmitBid(1, Pass), ErrHumanSeatsOnly)
	assert.ErrorIs(t, g.SubmitBid(9, Pass), ErrUnknownSeat)

	for step := 0; step < 5000; step++ {
		g.WaitIdle()
		snap := g.Snapshot()
		if snap.Phase == PhaseGameOver {
			break
		}
		require.Equal(t, 0, snap.CurrentPlayer, "bots stop at the human seat")

		switch snap.Phase {
		case PhaseBidding:
			assert.ErrorIs(t, g.SubmitBid(0, 1), ErrIllegalBid)
			assert.ErrorIs(t, g.SubmitPlay(0, snap.Seats[0].Hand[0]), ErrWrongPhase)
			require.NoError(t, g.SubmitBid(0, Pass))
		case PhasePlaying:
			moves := g.LegalMoves(0)
			require.NotEmpty(t, moves)
			assert.Equal(t, snap.LegalMoves, moves)
			assert.ErrorIs(t, g.SubmitBid(0, Pass), ErrWrongPhase)
			require.NoError(t, g.SubmitPlay(0, moves[0]))
		default:
			t.Fatalf("unexpected phase %s", snap.Phase)
		}
	}
	assert.Equal(t, PhaseGameOver, g.Snapshot().Phase)
	assert.Greater(t, mb.count(EventTrumpSet), 0)
	assert.Equal(t, mb.count(EventTrickWon), 6*mb.count(EventRoundSettled))
}

func TestEventsCarryGenerationAndState(t *testing.T) {
	g, mb := setupTestGame(t, nil, 0, 1, 2, 3)
	require.NoError(t, g.NewGame())

	ev := mb.getLastEvent()
	require.NotNil(t, ev)
	assert.Equal(t, EventGameNew, ev.Type)
	require.NotNil(t, ev.State)
	assert.Equal(t, g.Generation(), ev.Generation)
	assert.Equal(t, PhaseBidding, ev.State.Phase)

	snap := g.Snapshot()
	seat := snap.CurrentPlayer
	require.NoError(t, g.SubmitBid(seat, 2))
	ev = mb.getLastEvent()
	assert.Equal(t, EventBidPlaced, ev.Type)
	require.NotNil(t, ev.Seat)
	assert.Equal(t, seat, *ev.Seat)
	assert.Equal(t, 2, *ev.Amount)
	assert.Equal(t, 2, ev.State.BidAmount)

	data := EventBytes(*ev)
	assert.Contains(t, string(data), `"type":"bid_placed"`)
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	g, _ := setupTestGame(t, nil, 0, 1, 2, 3)
	require.NoError(t, g.NewGame())

	g.Mu.Lock()
	seat := g.Round.CurrentPlayer
	d := decision{kind: decideBid, seat: seat, gen: g.generation - 1, turn: g.TurnID}
	err := g.applyPolicyAction(d, 0)
	bids := len(g.Round.Bids)
	g.Mu.Unlock()

	assert.ErrorIs(t, err, ErrStaleResponse)
	assert.Equal(t, "stale_response", RejectionReason(err))
	assert.Zero(t, bids)

	g.Mu.Lock()
	d.gen = g.generation
	d.turn = g.TurnID - 1
	err = g.applyPolicyAction(d, 0)
	g.Mu.Unlock()
	assert.ErrorIs(t, err, ErrStaleResponse, "answer for an earlier turn")

	g.Mu.Lock()
	d.turn = g.TurnID
	err = g.applyPolicyAction(d, 0)
	g.Mu.Unlock()
	assert.NoError(t, err)
}

func TestResetAbandonsBotTurns(t *testing.T) {
	g, mb := setupTestGame(t, &firstLegal{})
	g.HouseRules.ThinkDelayMs = 50

	require.NoError(t, g.NewGame())
	gen := g.Generation()
	g.Reset()
	g.WaitIdle()

	snap := g.Snapshot()
	assert.Equal(t, PhaseWaiting, snap.Phase)
	assert.Greater(t, snap.Generation, gen)
	assert.Equal(t, TeamScores{}, snap.Scores)
	assert.Equal(t, []GameEventType{EventGameNew, EventGameReset}, mb.types())
}

func TestNewGameFromAnyPhase(t *testing.T) {
	g, mb := setupTestGame(t, nil, 0)
	require.NoError(t, g.NewGame())
	g.WaitIdle()
	first := g.Generation()

	mb.clear()
	require.NoError(t, g.NewGame())
	g.WaitIdle()
	snap := g.Snapshot()
	assert.Greater(t, snap.Generation, first)
	assert.Equal(t, 1, snap.RoundNumber)
	assert.Equal(t, EventGameNew, mb.types()[0])
}

func TestAutoPlayDrivesHumanSeat(t *testing.T) {
	g, _ := setupTestGame(t, &firstLegal{}, 0)
	require.NoError(t, g.NewGame())
	g.WaitIdle()
	require.Equal(t, PhaseBidding, g.Snapshot().Phase)

	g.SetAutoPlay(true)
	g.WaitIdle()
	snap := g.Snapshot()
	assert.Equal(t, PhaseGameOver, snap.Phase)
	assert.True(t, snap.AutoPlay)
}

func TestSnapshotForHidesOtherHands(t *testing.T) {
	g, _ := setupTestGame(t, nil, 0)
	require.NoError(t, g.NewGame())
	g.WaitIdle()

	full := g.Snapshot()
	view := g.SnapshotFor(0)
	assert.Equal(t, full.Seats[0].Hand, view.Seats[0].Hand)
	for seat := 1; seat < NumSeats; seat++ {
		assert.Nil(t, view.Seats[seat].Hand)
		assert.NotEmpty(t, full.Seats[seat].Hand)
		assert.Equal(t, full.Seats[seat].HandSize, view.Seats[seat].HandSize)
	}
	assert.True(t, view.Seats[0].Human)

	spectator := full.ForSeat(-1)
	for seat := 0; seat < NumSeats; seat++ {
		assert.Nil(t, spectator.Seats[seat].Hand)
	}
	assert.Nil(t, spectator.LegalMoves)
}

func TestSnapshotForHidesOtherHoldings(t *testing.T) {
	g, _ := setupTestGame(t, nil, 0, 1, 2, 3)
	r, err := NewRound(3, [NumSeats][]models.Card{
		cards("2H 3C"),
		cards("KD 4C"),
		cards("AH JH"),
		cards("5S 6S"),
	}, 2)
	require.NoError(t, err)
	require.NoError(t, r.SubmitBid(0, 2))
	for _, seat := range []int{1, 2, 3} {
		require.NoError(t, r.SubmitBid(seat, Pass))
	}
	_, err = r.PlayCard(0, card("2H"))
	require.NoError(t, err)
	g.Round, g.Phase = r, PhasePlaying

	full := g.Snapshot()
	assert.Equal(t, 2, full.Holdings.JackSeat)
	assert.Equal(t, 2, full.Holdings.HighSeat)

	east := g.SnapshotFor(1)
	assert.Equal(t, noHoldings(), east.Holdings)
	data, err := json.Marshal(east)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"high_card"`)
	assert.Contains(t, string(data), `"jack_seat":-1`)

	south := g.SnapshotFor(2)
	assert.Equal(t, 2, south.Holdings.JackSeat)
	assert.Equal(t, 2, south.Holdings.HighSeat)
	assert.Equal(t, card("AH"), *south.Holdings.HighCard)
	assert.Equal(t, -1, south.Holdings.LowSeat)

	north := g.SnapshotFor(0)
	assert.Equal(t, 0, north.Holdings.LowSeat)
	assert.Equal(t, card("2H"), *north.Holdings.LowCard)
	assert.Equal(t, -1, north.Holdings.JackSeat)

	g.Phase = PhaseRoundSettled
	assert.Equal(t, full.Holdings, g.SnapshotFor(1).Holdings, "revealed once the round is over")
}

func TestTrumpSetEventOmitsHoldings(t *testing.T) {
	g, mb := setupTestGame(t, nil)
	require.NoError(t, g.NewGame())
	g.WaitIdle()

	require.Positive(t, mb.count(EventTrumpSet))
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for _, ev := range mb.allEvents {
		if ev.Type != EventTrumpSet {
			continue
		}
		assert.Contains(t, ev.Payload, "trump")
		assert.NotContains(t, ev.Payload, "holdings")
	}
}

func TestClosedGameRefusesNewGame(t *testing.T) {
	store := NewGameStore()
	g, _ := setupTestGame(t, nil)
	store.AddGame(g)
	got, ok := store.GetGame(g.ID)
	require.True(t, ok)
	assert.Same(t, g, got)
	assert.Equal(t, 1, store.Len())

	store.DeleteGame(g.ID)
	_, ok = store.GetGame(g.ID)
	assert.False(t, ok)
	assert.ErrorIs(t, g.NewGame(), ErrWrongPhase)
}
