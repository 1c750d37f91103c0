package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richman/backend/internal/game/events"
	"github.com/richman/backend/internal/game/factory"
	"github.com/richman/backend/internal/game/models"
	"github.com/richman/backend/internal/game/strategy"
)

type recorder struct {
	mu    sync.Mutex
	notes []models.Notification
}

func (r *recorder) Notify(n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) has(t models.NotificationType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notes {
		if n.Type == t {
			return true
		}
	}
	return false
}

type factSink struct {
	mu    sync.Mutex
	facts []models.Fact
}

func (s *factSink) Record(f models.Fact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts = append(s.facts, f)
}

func (s *factSink) find(t models.FactType) (models.Fact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.facts {
		if f.Type == t {
			return f, true
		}
	}
	return models.Fact{}, false
}

func newEngine(t *testing.T, cfg models.GameConfig) (*Engine, *recorder, *factSink) {
	t.Helper()
	rec, sink := &recorder{}, &factSink{}
	e, err := New(cfg, nil, factory.Standard(),
		WithRand(rand.New(rand.NewSource(42))),
		WithObserver(rec),
		WithStats(sink),
		WithGameID("game-1"),
	)
	require.NoError(t, err)
	return e, rec, sink
}

func players(n int, kind models.PlayerKind, difficulty string) []*models.Player {
	out := make([]*models.Player, n)
	for i := range out {
		out[i] = models.NewPlayer(fmt.Sprintf("p%d", i), fmt.Sprintf("Player %d", i), kind, difficulty, 15000)
	}
	return out
}

func started(t *testing.T, n int) (*Engine, *recorder, *factSink) {
	t.Helper()
	e, rec, sink := newEngine(t, models.DefaultGameConfig())
	require.NoError(t, e.Start(players(n, models.PlayerKindHuman, "")))
	return e, rec, sink
}

// landOn rolls and moves the current player steps cells and resolves the landing
func landOn(t *testing.T, e *Engine, steps int) Landing {
	t.Helper()
	_, err := e.RollDice()
	require.NoError(t, err)
	_, err = e.MovePlayer(steps)
	require.NoError(t, err)
	landing, err := e.ResolveLanding()
	require.NoError(t, err)
	return landing
}

func assertCode(t *testing.T, err error, code models.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, models.CodeOf(err), err.Error())
}

func TestStartValidatesPlayers(t *testing.T) {
	e, _, _ := newEngine(t, models.DefaultGameConfig())

	assertCode(t, e.Start(players(1, models.PlayerKindHuman, "")), models.CodeInvalidPlayerCount)
	assertCode(t, e.Start(players(7, models.PlayerKindHuman, "")), models.CodeInvalidPlayerCount)

	two := players(2, models.PlayerKindHuman, "")
	two[1].Bankrupt = true
	assertCode(t, e.Start(two), models.CodeInvalidPlayerCount)

	dup := players(2, models.PlayerKindHuman, "")
	dup[1].ID = dup[0].ID
	assertCode(t, e.Start(dup), models.CodeInvalidArgument)
	assert.Equal(t, models.GameStateWaiting, e.State())

	require.NoError(t, e.Start(players(3, models.PlayerKindHuman, "")))
	assert.Equal(t, models.GameStatePlaying, e.State())
	assert.Equal(t, models.PhaseAwaitingRoll, e.Phase())
	assert.Equal(t, 1, e.Round())
	assert.Len(t, e.Players(), 3)

	assertCode(t, e.Start(players(3, models.PlayerKindHuman, "")), models.CodeIllegalTurnState)
}

func TestIllegalPhaseChangesNothing(t *testing.T) {
	e, _, _ := newEngine(t, models.DefaultGameConfig())
	_, err := e.RollDice()
	assertCode(t, err, models.CodeIllegalTurnState)

	require.NoError(t, e.Start(players(2, models.PlayerKindHuman, "")))
	before := e.SaveSnapshot("before")

	_, err = e.MovePlayer(3)
	assertCode(t, err, models.CodeIllegalTurnState)
	_, err = e.ResolveLanding()
	assertCode(t, err, models.CodeIllegalTurnState)
	assertCode(t, e.Purchase(), models.CodeIllegalTurnState)
	assertCode(t, e.Upgrade(3), models.CodeIllegalTurnState)
	assertCode(t, e.EndTurn(), models.CodeIllegalTurnState)

	after := e.SaveSnapshot("before")
	assert.Equal(t, before.Checksum, after.Checksum)
	assert.Equal(t, models.PhaseAwaitingRoll, e.Phase())
}

func TestRollDiceRange(t *testing.T) {
	e, rec, _ := started(t, 2)
	dice, err := e.RollDice()
	require.NoError(t, err)
	require.Len(t, dice, 2)
	for _, d := range dice {
		assert.GreaterOrEqual(t, d, 1)
		assert.LessOrEqual(t, d, 6)
	}
	assert.Equal(t, models.PhaseMoving, e.Phase())
	assert.True(t, rec.has(models.NotifyDiceRolled))

	_, err = e.RollDice()
	assertCode(t, err, models.CodeIllegalTurnState)
}

func TestPurchaseScenario(t *testing.T) {
	e, rec, sink := started(t, 2)
	cur, _ := e.CurrentPlayer()

	landing := landOn(t, e, 3)
	assert.Equal(t, OutcomePurchaseOffer, landing.Outcome)
	assert.Equal(t, 600, landing.Amount)
	assert.Equal(t, models.PhaseAwaitingAction, e.Phase())

	require.NoError(t, e.Purchase())
	p, _ := e.Player(cur.ID)
	assert.Equal(t, 14400, p.Cash)
	assert.Equal(t, []int{3}, p.Properties)
	cell := e.Cell(3)
	assert.Equal(t, cur.ID, cell.OwnerID)
	assert.Equal(t, models.LevelNone, cell.Level)
	assert.True(t, rec.has(models.NotifyPurchase))
	fact, ok := sink.find(models.FactPropertyPurchase)
	require.True(t, ok)
	assert.Equal(t, 600, fact.Amount)

	assertCode(t, e.Purchase(), models.CodeAlreadyOwned)

	res := e.Undo()
	require.True(t, res.Success, res.Message)
	p, _ = e.Player(cur.ID)
	assert.Equal(t, 15000, p.Cash)
	assert.Empty(t, p.Properties)
	assert.Empty(t, e.Cell(3).OwnerID)
	assert.Equal(t, models.LevelNone, e.Cell(3).Level)

	res = e.Redo()
	require.True(t, res.Success, res.Message)
	assert.Equal(t, cur.ID, e.Cell(3).OwnerID)
}

func TestRentAtTier1(t *testing.T) {
	e, rec, sink := started(t, 2)
	payer := e.players[0]
	owner := e.players[1]

	cell := e.board.At(6)
	cell.BaseRent = 50
	cell.OwnerID = owner.ID
	cell.Level = models.LevelTier1
	owner.AddProperty(6)

	landing := landOn(t, e, 6)
	assert.Equal(t, OutcomeRentPaid, landing.Outcome)
	assert.Equal(t, 100, landing.Amount)
	assert.Equal(t, 14900, payer.Cash)
	assert.Equal(t, 15100, owner.Cash)
	assert.True(t, rec.has(models.NotifyRentPaid))

	paid, ok := sink.find(models.FactRentPayment)
	require.True(t, ok)
	assert.Equal(t, 100, paid.Amount)
	collected, ok := sink.find(models.FactRentCollection)
	require.True(t, ok)
	assert.Equal(t, owner.ID, collected.PlayerID)
}

func TestBankruptOwnerCollectsNothing(t *testing.T) {
	e, _, _ := started(t, 3)
	payer, owner := e.players[0], e.players[1]
	cell := e.board.At(6)
	cell.OwnerID = owner.ID
	owner.AddProperty(6)
	owner.Bankrupt = true

	landing := landOn(t, e, 6)
	assert.Equal(t, OutcomeOwnerBankrupt, landing.Outcome)
	assert.Equal(t, 15000, payer.Cash)
	assert.Equal(t, 15000, owner.Cash)
}

func TestUpgradeOwnProperty(t *testing.T) {
	e, _, _ := started(t, 2)
	cur := e.players[0]
	cell := e.board.At(6)
	cell.OwnerID = cur.ID
	cur.AddProperty(6)

	landing := landOn(t, e, 6)
	assert.Equal(t, OutcomeUpgradeOffer, landing.Outcome)
	require.NoError(t, e.Upgrade(6))
	assert.Equal(t, models.LevelTier1, e.Cell(6).Level)
	assert.Equal(t, 14500, cur.Cash)

	assertCode(t, e.Upgrade(5), models.CodeNotOwner)
	assertCode(t, e.Upgrade(99), models.CodeInvalidArgument)
}

func TestTaxCells(t *testing.T) {
	e, _, sink := started(t, 2)
	cur := e.players[0]

	landing := landOn(t, e, 4)
	assert.Equal(t, OutcomeTaxPaid, landing.Outcome)
	assert.Equal(t, 200, landing.Amount)
	assert.Equal(t, 14800, cur.Cash)
	_, ok := sink.find(models.FactTaxPayment)
	assert.True(t, ok)
}

func TestGoToJail(t *testing.T) {
	e, rec, _ := started(t, 2)
	cur := e.players[0]

	landing := landOn(t, e, 27)
	assert.Equal(t, OutcomeSentToJail, landing.Outcome)
	assert.True(t, cur.InJail)
	assert.Equal(t, 3, cur.JailTurns)
	assert.Equal(t, 9, cur.Position)
	assert.Equal(t, models.PhaseTurnComplete, e.Phase())
	assert.True(t, rec.has(models.NotifyJail))
}

func TestJailWait(t *testing.T) {
	e, _, _ := started(t, 2)
	cur := e.players[0]
	cur.InJail, cur.JailTurns, cur.Position = true, 2, 9

	_, err := e.RollDice()
	assertCode(t, err, models.CodeIllegalTurnState)

	require.NoError(t, e.JailDecision(strategy.JailWait))
	assert.Equal(t, 1, cur.JailTurns)
	assert.True(t, cur.InJail)
	assert.Equal(t, 9, cur.Position)
	assert.Equal(t, 15000, cur.Cash)
	assert.Equal(t, models.PhaseTurnComplete, e.Phase())
	require.NoError(t, e.EndTurn())
}

func TestJailReleaseOptions(t *testing.T) {
	e, _, _ := started(t, 2)
	cur := e.players[0]

	cur.InJail, cur.JailTurns = true, 1
	require.NoError(t, e.JailDecision(strategy.JailWait))
	assert.False(t, cur.InJail)
	assert.Equal(t, models.PhaseAwaitingRoll, e.Phase())

	cur.InJail, cur.JailTurns = true, 3
	assertCode(t, e.JailDecision(strategy.JailUseCard), models.CodeInvalidArgument)
	require.NoError(t, e.JailDecision(strategy.JailPayFine))
	assert.Equal(t, 14500, cur.Cash)
	assert.False(t, cur.InJail)

	cur.InJail, cur.JailTurns, cur.Cash = true, 3, 100
	assertCode(t, e.JailDecision(strategy.JailPayFine), models.CodeInsufficientFunds)
	assert.True(t, cur.InJail)
	assertCode(t, e.JailDecision(strategy.JailAction("bribe")), models.CodeInvalidArgument)

	_, err := e.RollDice()
	assertCode(t, err, models.CodeIllegalTurnState)
}

func TestBankruptcyFinishesGame(t *testing.T) {
	e, rec, sink := started(t, 2)
	loser, winner := e.players[0], e.players[1]
	loser.Cash = 100

	landing := landOn(t, e, 4)
	assert.Equal(t, OutcomeTaxPaid, landing.Outcome)
	assert.Equal(t, -100, loser.Cash)
	assert.True(t, loser.Bankrupt)
	assert.Equal(t, models.PhaseTurnComplete, e.Phase())
	assert.True(t, rec.has(models.NotifyBankruptcy))

	require.NoError(t, e.EndTurn())
	assert.Equal(t, models.GameStateFinished, e.State())
	w, ok := e.Winner()
	require.True(t, ok)
	assert.Equal(t, winner.ID, w.ID)
	assert.True(t, rec.has(models.NotifyGameFinished))
	_, ok = sink.find(models.FactBankruptcy)
	assert.True(t, ok)

	_, err := e.RollDice()
	assertCode(t, err, models.CodeIllegalTurnState)
}

func TestRoundCounterAndSkipping(t *testing.T) {
	e, _, _ := started(t, 3)
	order := []string{e.players[0].ID, e.players[1].ID, e.players[2].ID}

	for i := 0; i < 3; i++ {
		cur, _ := e.CurrentPlayer()
		assert.Equal(t, order[i], cur.ID)
		landing := landOn(t, e, 0)
		assert.Equal(t, OutcomeNone, landing.Outcome)
		require.NoError(t, e.EndTurn())
	}
	assert.Equal(t, 2, e.Round())

	e.players[1].Bankrupt = true
	landOn(t, e, 0)
	require.NoError(t, e.EndTurn())
	cur, _ := e.CurrentPlayer()
	assert.Equal(t, order[2], cur.ID)
	assert.Equal(t, 2, e.Round())

	landOn(t, e, 0)
	require.NoError(t, e.EndTurn())
	cur, _ = e.CurrentPlayer()
	assert.Equal(t, order[0], cur.ID)
	assert.Equal(t, 3, e.Round())
}

func singleEvent(effects models.Effects) events.Catalog {
	ev := models.Event{Kind: models.EventFortune, Title: "Test", Effects: effects}
	return events.Catalog{Fortune: []models.Event{ev}}
}

func TestExtraTurnKeepsPlayer(t *testing.T) {
	e, _, _ := started(t, 2)
	e.catalog = singleEvent(models.Effects{ExtraTurn: true})
	first := e.players[0].ID

	landing := landOn(t, e, 2)
	assert.Equal(t, OutcomeEvent, landing.Outcome)
	require.NotNil(t, landing.Event)
	require.NoError(t, e.EndTurn())

	cur, _ := e.CurrentPlayer()
	assert.Equal(t, first, cur.ID)
	assert.Equal(t, models.PhaseAwaitingRoll, e.Phase())

	landOn(t, e, 1)
	require.NoError(t, e.EndTurn())
	cur, _ = e.CurrentPlayer()
	assert.NotEqual(t, first, cur.ID)
}

func TestFreeMoveAllowsOneMoreRoll(t *testing.T) {
	e, _, _ := started(t, 2)
	e.catalog = singleEvent(models.Effects{FreeMove: true})

	landOn(t, e, 2)
	assert.True(t, e.View().FreeMove)

	_, err := e.RollDice()
	require.NoError(t, err)
	_, err = e.MovePlayer(1)
	require.NoError(t, err)
	landing, err := e.ResolveLanding()
	require.NoError(t, err)
	assert.Equal(t, OutcomePurchaseOffer, landing.Outcome)

	_, err = e.RollDice()
	assertCode(t, err, models.CodeIllegalTurnState)
}

func TestDiscountEventAppliesToNextPurchase(t *testing.T) {
	e, _, _ := started(t, 2)
	e.catalog = singleEvent(models.Effects{Discount: 0.8, FreeMove: true})
	cur := e.players[0]

	landOn(t, e, 2)
	assert.Equal(t, 0.8, cur.Discount)

	_, err := e.RollDice()
	require.NoError(t, err)
	_, err = e.MovePlayer(3)
	require.NoError(t, err)
	landing, err := e.ResolveLanding()
	require.NoError(t, err)
	require.Equal(t, OutcomePurchaseOffer, landing.Outcome)
	assert.Equal(t, 1600, landing.Amount)

	require.NoError(t, e.Purchase())
	assert.Equal(t, 13400, cur.Cash)
	assert.Zero(t, cur.Discount)
}

func TestPauseResume(t *testing.T) {
	e, rec, _ := started(t, 2)

	require.NoError(t, e.Pause())
	assert.Equal(t, models.GameStatePaused, e.State())
	assertCode(t, e.Pause(), models.CodeIllegalTurnState)
	_, err := e.RollDice()
	assertCode(t, err, models.CodeIllegalTurnState)
	assert.False(t, e.Undo().Success)

	require.NoError(t, e.Resume())
	assertCode(t, e.Resume(), models.CodeIllegalTurnState)
	_, err = e.RollDice()
	require.NoError(t, err)
	assert.True(t, rec.has(models.NotifyGamePaused))
	assert.True(t, rec.has(models.NotifyGameResumed))
}

func TestUndoWithEmptyHistory(t *testing.T) {
	e, _, _ := started(t, 2)
	res := e.Undo()
	assert.False(t, res.Success)
	assert.Equal(t, models.CodeNothingToUndo, res.Code)
	assert.Equal(t, models.CodeNothingToRedo, e.Redo().Code)
}

func TestTradeWithHumanNeedsConsent(t *testing.T) {
	e, rec, _ := started(t, 3)
	buyer, seller, outsider := e.players[0], e.players[1], e.players[2]
	cell := e.board.At(5)
	cell.OwnerID = seller.ID
	seller.AddProperty(5)

	deal := strategy.TradeProposal{FromID: buyer.ID, ToID: seller.ID, RequestCell: 5, OfferCell: -1, OfferCash: 2500}
	status, err := e.OfferTrade(deal)
	require.NoError(t, err)
	assert.Equal(t, TradePending, status)
	assert.Equal(t, seller.ID, cell.OwnerID, "nothing moves before the answer")
	pending, ok := e.PendingTrade()
	require.True(t, ok)
	assert.Equal(t, deal, pending)

	_, err = e.OfferTrade(deal)
	assertCode(t, err, models.CodeIllegalTurnState)
	assertCode(t, e.RespondTrade(outsider.ID, true), models.CodeIllegalTurnState)
	assertCode(t, e.RespondTrade(buyer.ID, true), models.CodeIllegalTurnState)

	require.NoError(t, e.RespondTrade(seller.ID, true))
	assert.Equal(t, buyer.ID, cell.OwnerID)
	assert.Equal(t, 12500, buyer.Cash)
	assert.Equal(t, 17500, seller.Cash)
	assert.True(t, rec.has(models.NotifyTrade))
	_, ok = e.PendingTrade()
	assert.False(t, ok)

	require.True(t, e.Undo().Success)
	assert.Equal(t, seller.ID, cell.OwnerID)
	assert.Equal(t, 15000, buyer.Cash)
	assert.Equal(t, 15000, seller.Cash)
}

func TestDeclinedTradeChangesNothing(t *testing.T) {
	e, _, _ := started(t, 2)
	buyer, seller := e.players[0], e.players[1]
	e.board.At(5).OwnerID = seller.ID
	seller.AddProperty(5)

	_, err := e.OfferTrade(strategy.TradeProposal{FromID: buyer.ID, ToID: seller.ID, RequestCell: 5, OfferCell: -1, OfferCash: 100})
	require.NoError(t, err)
	require.NoError(t, e.RespondTrade(seller.ID, false))
	assert.Equal(t, seller.ID, e.Cell(5).OwnerID)
	assert.Equal(t, 15000, buyer.Cash)
	assertCode(t, e.RespondTrade(seller.ID, true), models.CodeIllegalTurnState)
}

func TestAcceptedTradeIsAtomic(t *testing.T) {
	e, _, _ := started(t, 2)
	buyer, seller := e.players[0], e.players[1]
	cell := e.board.At(5)
	cell.OwnerID = seller.ID
	seller.AddProperty(5)

	_, err := e.OfferTrade(strategy.TradeProposal{FromID: buyer.ID, ToID: seller.ID, RequestCell: 5, OfferCell: -1, OfferCash: 20000})
	require.NoError(t, err)
	assertCode(t, e.RespondTrade(seller.ID, true), models.CodeInsufficientFunds)
	assert.Equal(t, seller.ID, cell.OwnerID)
	assert.Equal(t, []int{5}, seller.Properties)
	assert.Empty(t, buyer.Properties)
	assert.Equal(t, 15000, buyer.Cash)
}

func TestTradeWithAutomatedPlayerUsesItsValuation(t *testing.T) {
	e, _, _ := started(t, 2)
	buyer, seller := e.players[0], e.players[1]
	seller.Kind = models.PlayerKindAutomated
	cell := e.board.At(5)
	cell.OwnerID = seller.ID
	seller.AddProperty(5)

	lowball := strategy.TradeProposal{FromID: buyer.ID, ToID: seller.ID, RequestCell: 5, OfferCell: -1, OfferCash: cell.Price - 1}
	_, err := e.OfferTrade(lowball)
	assertCode(t, err, models.CodeTradeRejected)
	assert.Equal(t, seller.ID, cell.OwnerID)
	assert.Equal(t, 15000, buyer.Cash)

	fair := strategy.TradeProposal{FromID: buyer.ID, ToID: seller.ID, RequestCell: 5, OfferCell: -1, OfferCash: cell.Price}
	status, err := e.OfferTrade(fair)
	require.NoError(t, err)
	assert.Equal(t, TradeAccepted, status)
	assert.Equal(t, buyer.ID, cell.OwnerID)
	assert.Equal(t, 15000-cell.Price, buyer.Cash)
}

func TestTradeValidation(t *testing.T) {
	e, _, _ := started(t, 2)
	buyer, seller := e.players[0], e.players[1]
	e.board.At(5).OwnerID = seller.ID
	seller.AddProperty(5)

	tests := []struct {
		name     string
		proposal strategy.TradeProposal
		code     models.ErrorCode
	}{
		{"nothing offered", strategy.TradeProposal{FromID: buyer.ID, ToID: seller.ID, RequestCell: 5, OfferCell: -1}, models.CodeInvalidArgument},
		{"with oneself", strategy.TradeProposal{FromID: buyer.ID, ToID: buyer.ID, RequestCell: 5, OfferCell: -1, OfferCash: 10}, models.CodeInvalidArgument},
		{"unknown party", strategy.TradeProposal{FromID: buyer.ID, ToID: "ghost", RequestCell: 5, OfferCell: -1, OfferCash: 10}, models.CodeNotFound},
		{"cell not owned by counterparty", strategy.TradeProposal{FromID: buyer.ID, ToID: seller.ID, RequestCell: 3, OfferCell: -1, OfferCash: 10}, models.CodeNotOwner},
		{"offered cell not owned", strategy.TradeProposal{FromID: buyer.ID, ToID: seller.ID, RequestCell: 5, OfferCell: 3}, models.CodeNotOwner},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.OfferTrade(tt.proposal)
			assertCode(t, err, tt.code)
			assert.Equal(t, seller.ID, e.Cell(5).OwnerID)
			_, pending := e.PendingTrade()
			assert.False(t, pending)
		})
	}

	// the counterparty owns what is asked for, but the turn is not theirs
	e.board.At(7).OwnerID = buyer.ID
	buyer.AddProperty(7)
	_, err := e.OfferTrade(strategy.TradeProposal{FromID: seller.ID, ToID: buyer.ID, RequestCell: 7, OfferCell: -1, OfferCash: 10})
	assertCode(t, err, models.CodeIllegalTurnState)
}

func TestUndoMoveReturnsToMoving(t *testing.T) {
	e, _, sink := started(t, 2)
	payer, owner := e.players[0], e.players[1]
	cell := e.board.At(6)
	cell.BaseRent = 50
	cell.OwnerID = owner.ID
	owner.AddProperty(6)

	_, err := e.RollDice()
	require.NoError(t, err)
	_, err = e.MovePlayer(6)
	require.NoError(t, err)
	require.Equal(t, models.PhaseLanded, e.Phase())

	require.True(t, e.Undo().Success)
	assert.Equal(t, models.PhaseMoving, e.Phase())
	assert.Equal(t, 0, payer.Position)
	_, err = e.ResolveLanding()
	assertCode(t, err, models.CodeIllegalTurnState)

	_, err = e.MovePlayer(6)
	require.NoError(t, err)
	landing, err := e.ResolveLanding()
	require.NoError(t, err)
	assert.Equal(t, OutcomeRentPaid, landing.Outcome)
	assert.Equal(t, 14950, payer.Cash)
	assert.Equal(t, 15050, owner.Cash)

	paid := 0
	for _, f := range sink.facts {
		if f.Type == models.FactRentPayment && !f.Retracted {
			paid++
		}
	}
	assert.Equal(t, 1, paid)
}

func TestUndoRentReopensLanding(t *testing.T) {
	e, _, sink := started(t, 2)
	payer, owner := e.players[0], e.players[1]
	cell := e.board.At(6)
	cell.BaseRent = 50
	cell.OwnerID = owner.ID
	owner.AddProperty(6)

	landOn(t, e, 6)
	require.Equal(t, 14950, payer.Cash)

	require.True(t, e.Undo().Success)
	assert.Equal(t, models.PhaseLanded, e.Phase())
	assert.Nil(t, e.View().Landing)
	assert.Equal(t, 15000, payer.Cash)
	assert.Equal(t, 15000, owner.Cash)
	assertCode(t, e.EndTurn(), models.CodeIllegalTurnState)

	retracted, ok := sink.find(models.FactRentPayment)
	require.True(t, ok)
	assert.False(t, retracted.Retracted)
	var undone []models.Fact
	for _, f := range sink.facts {
		if f.Retracted {
			undone = append(undone, f)
		}
	}
	require.Len(t, undone, 2)
	assert.Equal(t, models.FactRentCollection, undone[0].Type)
	assert.Equal(t, models.FactRentPayment, undone[1].Type)

	require.True(t, e.Redo().Success)
	assert.Equal(t, models.PhaseAwaitingAction, e.Phase())
	require.NotNil(t, e.View().Landing)
	assert.Equal(t, OutcomeRentPaid, e.View().Landing.Outcome)
	assert.Equal(t, 14950, payer.Cash)

	require.True(t, e.Undo().Success)
	landing, err := e.ResolveLanding()
	require.NoError(t, err)
	assert.Equal(t, OutcomeRentPaid, landing.Outcome)
	assert.Equal(t, 14950, payer.Cash)
	require.NoError(t, e.EndTurn())
}

func TestUndoEventClearsGrantedFlags(t *testing.T) {
	e, _, _ := started(t, 2)
	e.catalog = singleEvent(models.Effects{FreeMove: true, ExtraTurn: true})

	landOn(t, e, 2)
	require.True(t, e.View().FreeMove)
	require.True(t, e.View().ExtraTurn)

	require.True(t, e.Undo().Success)
	v := e.View()
	assert.False(t, v.FreeMove)
	assert.False(t, v.ExtraTurn)
	assert.Equal(t, models.PhaseLanded, v.Phase)
	_, err := e.RollDice()
	assertCode(t, err, models.CodeIllegalTurnState)
}

func TestUndoStopsAtTurnBoundary(t *testing.T) {
	e, _, _ := started(t, 2)
	first := e.players[0]

	landOn(t, e, 3)
	require.NoError(t, e.Purchase())
	require.NoError(t, e.EndTurn())

	res := e.Undo()
	assert.False(t, res.Success)
	assert.Equal(t, models.CodeNothingToUndo, res.Code)
	assert.Equal(t, first.ID, e.Cell(3).OwnerID)
	assert.Equal(t, models.PhaseAwaitingRoll, e.Phase())
}

func TestAsPlayerChecksTurnInsideTheCall(t *testing.T) {
	e, _, _ := started(t, 2)
	first, second := e.players[0], e.players[1]

	err := e.AsPlayer(second.ID, func(turn *Turn) error {
		_, err := turn.RollDice()
		return err
	})
	assertCode(t, err, models.CodeIllegalTurnState)
	assert.Equal(t, models.PhaseAwaitingRoll, e.Phase())

	var steps int
	err = e.AsPlayer(first.ID, func(turn *Turn) error {
		if _, err := turn.RollDice(); err != nil {
			return err
		}
		var err error
		steps, _, err = turn.Move()
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, sum(e.View().LastRoll), steps)
	assert.Equal(t, steps, first.Position)
	assert.Equal(t, models.PhaseLanded, e.Phase())
}

func TestObserverPanicIsRecovered(t *testing.T) {
	rec := &recorder{}
	e, err := New(models.DefaultGameConfig(), nil, nil,
		WithRand(rand.New(rand.NewSource(1))),
		WithObserver(ObserverFunc(func(models.Notification) { panic("boom") })),
		WithObserver(rec),
	)
	require.NoError(t, err)

	require.NotPanics(t, func() {
		require.NoError(t, e.Start(players(2, models.PlayerKindHuman, "")))
	})
	assert.True(t, rec.has(models.NotifyGameStarted))
	assert.Equal(t, models.GameStatePlaying, e.State())
}

func TestPlayAutomatedTurnRejectsHumans(t *testing.T) {
	e, _, _ := started(t, 2)
	_, err := e.PlayAutomatedTurn()
	assertCode(t, err, models.CodeIllegalTurnState)

	_, err = e.ProposeTrade(e.players[0].ID)
	assertCode(t, err, models.CodeInvalidArgument)
}

// checkInvariants verifies debt and ownership consistency
func checkInvariants(t *testing.T, e *Engine) {
	t.Helper()
	byID := map[string]models.Player{}
	for _, p := range e.Players() {
		byID[p.ID] = p
		if p.Cash < 0 {
			assert.True(t, p.Bankrupt, "%s is in debt but not bankrupt", p.ID)
		}
		for _, pos := range p.Properties {
			assert.Equal(t, p.ID, e.Cell(pos).OwnerID, "%s lists cell %d", p.ID, pos)
		}
	}
	for _, cell := range e.Cells() {
		if cell.OwnerID == "" {
			continue
		}
		owner, ok := byID[cell.OwnerID]
		require.True(t, ok)
		assert.True(t, owner.Owns(cell.Position), "cell %d owner mismatch", cell.Position)
		assert.True(t, cell.Level.Valid())
	}
}

func TestAutomatedGame(t *testing.T) {
	cfg := models.DefaultGameConfig()
	cfg.InitialCash = 4000
	e, _, sink := newEngine(t, cfg)

	ps := []*models.Player{
		models.NewPlayer("a", "Ada", models.PlayerKindAutomated, "easy", cfg.InitialCash),
		models.NewPlayer("b", "Bo", models.PlayerKindAutomated, "medium", cfg.InitialCash),
		models.NewPlayer("c", "Cy", models.PlayerKindAutomated, "hard", cfg.InitialCash),
		models.NewPlayer("d", "Di", models.PlayerKindAutomated, "unknown", cfg.InitialCash),
	}
	require.NoError(t, e.Start(ps))

	for i := 0; i < 3000 && e.State() == models.GameStatePlaying; i++ {
		report, err := e.PlayAutomatedTurn()
		require.NoError(t, err, "turn %d", i)
		assert.NotEmpty(t, report.PlayerID)
		checkInvariants(t, e)
	}

	_, ok := sink.find(models.FactTurnCompleted)
	assert.True(t, ok)
	if e.State() == models.GameStateFinished {
		w, ok := e.Winner()
		require.True(t, ok)
		assert.False(t, w.Bankrupt)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	e, _, _ := newEngine(t, models.DefaultGameConfig())
	require.NoError(t, e.Start(players(3, models.PlayerKindAutomated, "hard")))
	for i := 0; i < 30 && e.State() == models.GameStatePlaying; i++ {
		_, err := e.PlayAutomatedTurn()
		require.NoError(t, err)
	}

	snap := e.SaveSnapshot("slot-1")
	assert.True(t, snap.Verify())
	assert.Equal(t, factory.ModeStandard, snap.Mode)

	restored, err := New(models.DefaultGameConfig(), nil, factory.Standard(), WithRand(rand.New(rand.NewSource(9))))
	require.NoError(t, err)
	require.NoError(t, restored.LoadSnapshot(snap))

	again := restored.SaveSnapshot("slot-1")
	assert.Equal(t, snap.Players, again.Players)
	assert.Equal(t, snap.Cells, again.Cells)
	assert.Equal(t, snap.Round, again.Round)
	assert.Equal(t, snap.Phase, again.Phase)
	assert.Equal(t, snap.Checksum, again.Checksum)
	assert.Empty(t, again.History)

	if restored.State() == models.GameStatePlaying {
		_, err = restored.PlayAutomatedTurn()
		require.NoError(t, err)
	}

	tampered := snap
	tampered.Players = append([]models.Player(nil), snap.Players...)
	tampered.Players[0].Cash += 1
	err = restored.LoadSnapshot(tampered)
	assertCode(t, err, models.CodeInvalidArgument)
	assert.True(t, errors.Is(err, models.ErrInvalidArgument))
}
