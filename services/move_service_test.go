// services/move_service_test.go
package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"chess-match-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const afterE4 = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPPPPPP/RNBQKBNR b KQkq e3 0 1"

func TestApplyMoveContinues(t *testing.T) {
	db := newTestDB(t)
	hub := NewMemoryHub()
	ec := stubEvaluator(t, http.StatusOK,
		`{"status":"MOVEOK","states":{"halfmove":1},"fen":"`+afterE4+`"}`)
	s := NewMoveService(db, ec, hub)

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	game := startTestGame(t, db, alice.ID, bob.ID)

	events, cancel := hub.Subscribe(game.ID)
	defer cancel()

	got, err := s.ApplyMove(context.Background(), game.ID, alice.ID, "e2e4")
	require.NoError(t, err)

	assert.Equal(t, afterE4, got.FEN)
	assert.JSONEq(t, `{"halfmove":1}`, got.States)
	assert.Equal(t, bob.ID, got.Whomst)
	assert.True(t, got.IsActive)
	assert.Nil(t, got.Result)
	assert.Nil(t, got.Winner)

	var move models.Move
	require.NoError(t, db.Where("game_id = ?", game.ID).First(&move).Error)
	assert.Equal(t, alice.ID, move.UserID)
	assert.Equal(t, "e2e4", move.MoveStr)
	assert.Equal(t, afterE4, move.FEN)

	select {
	case data := <-events:
		var ev MoveEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		assert.Equal(t, "move", ev.Type)
		assert.Equal(t, game.ID, ev.GameID)
		assert.Equal(t, "e2e4", ev.Move)
		assert.Equal(t, afterE4, ev.FEN)
		assert.Equal(t, EvalMoveOK, ev.Status)
		assert.Equal(t, bob.ID, ev.Whomst)
		assert.NotEmpty(t, ev.EventID)
	case <-time.After(time.Second):
		t.Fatal("no live update published")
	}
}

func TestApplyMoveCheckmate(t *testing.T) {
	db := newTestDB(t)
	ec := stubEvaluator(t, http.StatusOK,
		`{"status":"CHECKMATE","states":{},"fen":"final-fen"}`)
	s := NewMoveService(db, ec, NewMemoryHub())

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	game := startTestGame(t, db, alice.ID, bob.ID)

	got, err := s.ApplyMove(context.Background(), game.ID, alice.ID, "d8h4")
	require.NoError(t, err)

	assert.False(t, got.IsActive)
	require.NotNil(t, got.Result)
	assert.Equal(t, models.ResultCheckmate, *got.Result)
	require.NotNil(t, got.Winner)
	assert.Equal(t, alice.ID, *got.Winner)

	var winner, loser models.User
	require.NoError(t, db.First(&winner, alice.ID).Error)
	require.NoError(t, db.First(&loser, bob.ID).Error)
	assert.Equal(t, 1, winner.Wins)
	assert.Equal(t, 1, loser.Losses)

	// the final move is still recorded
	var moves int64
	require.NoError(t, db.Model(&models.Move{}).Where("game_id = ?", game.ID).Count(&moves).Error)
	assert.EqualValues(t, 1, moves)
}

func TestApplyMoveDraw(t *testing.T) {
	db := newTestDB(t)
	ec := stubEvaluator(t, http.StatusOK,
		`{"status":"STALEMATE","states":{},"fen":"final-fen"}`)
	s := NewMoveService(db, ec, NewMemoryHub())

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	game := startTestGame(t, db, alice.ID, bob.ID)

	got, err := s.ApplyMove(context.Background(), game.ID, alice.ID, "a1a2")
	require.NoError(t, err)

	assert.False(t, got.IsActive)
	require.NotNil(t, got.Result)
	assert.Equal(t, models.ResultStalemate, *got.Result)
	assert.True(t, models.DrawResult(*got.Result))
	assert.Nil(t, got.Winner)

	var white, black models.User
	require.NoError(t, db.First(&white, alice.ID).Error)
	require.NoError(t, db.First(&black, bob.ID).Error)
	assert.Equal(t, 1, white.Draws)
	assert.Equal(t, 1, black.Draws)
	assert.Equal(t, 0, white.Wins)
	assert.Equal(t, 0, black.Wins)
}

func TestApplyMoveGuards(t *testing.T) {
	db := newTestDB(t)
	ec := stubEvaluator(t, http.StatusOK,
		`{"status":"MOVEOK","states":{},"fen":"`+afterE4+`"}`)
	s := NewMoveService(db, ec, NewMemoryHub())

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	carol := createTestUser(t, db, "carol")
	game := startTestGame(t, db, alice.ID, bob.ID)

	_, err := s.ApplyMove(context.Background(), 999, alice.ID, "e2e4")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.ApplyMove(context.Background(), game.ID, carol.ID, "e2e4")
	assert.ErrorIs(t, err, ErrForbidden)

	// black moving on white's turn
	_, err = s.ApplyMove(context.Background(), game.ID, bob.ID, "e7e5")
	assert.ErrorIs(t, err, ErrInvalidTurn)
}

func TestApplyMoveRejectedLeavesGameUntouched(t *testing.T) {
	db := newTestDB(t)
	ec := stubEvaluator(t, http.StatusBadRequest, `{"message":"invalid move"}`)
	s := NewMoveService(db, ec, NewMemoryHub())

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	game := startTestGame(t, db, alice.ID, bob.ID)

	_, err := s.ApplyMove(context.Background(), game.ID, alice.ID, "e2e9")
	assert.ErrorIs(t, err, ErrUpstreamRejected)

	var got models.Game
	require.NoError(t, db.First(&got, game.ID).Error)
	assert.Equal(t, models.StartingFEN, got.FEN)
	assert.Equal(t, alice.ID, got.Whomst)
	assert.True(t, got.IsActive)

	var moves int64
	require.NoError(t, db.Model(&models.Move{}).Where("game_id = ?", game.ID).Count(&moves).Error)
	assert.EqualValues(t, 0, moves)
}

func TestApplyMoveEvaluatorDown(t *testing.T) {
	db := newTestDB(t)
	ec := stubEvaluator(t, http.StatusBadGateway, `upstream sad`)
	s := NewMoveService(db, ec, NewMemoryHub())

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	game := startTestGame(t, db, alice.ID, bob.ID)

	_, err := s.ApplyMove(context.Background(), game.ID, alice.ID, "e2e4")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)

	var moves int64
	require.NoError(t, db.Model(&models.Move{}).Where("game_id = ?", game.ID).Count(&moves).Error)
	assert.EqualValues(t, 0, moves)
}

func TestApplyMoveDuplicateSubmission(t *testing.T) {
	db := newTestDB(t)
	// a slow evaluator holds both submissions in flight past the in-memory
	// turn check, so only the conditional update can arbitrate
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"MOVEOK","states":{},"fen":"` + afterE4 + `"}`))
	}))
	t.Cleanup(srv.Close)
	s := NewMoveService(db, NewEvaluatorClient(srv.URL, 2*time.Second), NewMemoryHub())

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	game := startTestGame(t, db, alice.ID, bob.ID)

	var wg sync.WaitGroup
	wg.Add(2)
	var errs [2]error
	for i := 0; i < 2; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.ApplyMove(context.Background(), game.ID, alice.ID, "e2e4")
		}(i)
	}
	wg.Wait()

	// exactly one ply lands; the duplicate loses the conditional update
	if errs[0] == nil {
		assert.ErrorIs(t, errs[1], ErrConflict)
	} else {
		assert.ErrorIs(t, errs[0], ErrConflict)
		assert.NoError(t, errs[1])
	}

	var moves int64
	require.NoError(t, db.Model(&models.Move{}).Where("game_id = ?", game.ID).Count(&moves).Error)
	assert.EqualValues(t, 1, moves)

	var got models.Game
	require.NoError(t, db.First(&got, game.ID).Error)
	assert.Equal(t, bob.ID, got.Whomst)
	assert.True(t, got.IsActive)
}

func TestApplyMoveOnFinishedGameConflicts(t *testing.T) {
	db := newTestDB(t)
	ec := stubEvaluator(t, http.StatusOK,
		`{"status":"MOVEOK","states":{},"fen":"`+afterE4+`"}`)
	s := NewMoveService(db, ec, NewMemoryHub())

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	game := startTestGame(t, db, alice.ID, bob.ID)

	// the game ends between the load and the commit
	require.NoError(t, db.Model(&models.Game{}).Where("id = ?", game.ID).
		Update("is_active", false).Error)

	_, err := s.ApplyMove(context.Background(), game.ID, alice.ID, "e2e4")
	assert.ErrorIs(t, err, ErrConflict)
}
