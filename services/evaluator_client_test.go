// services/evaluator_client_test.go
package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEvaluator serves a canned response for every move request.
func stubEvaluator(t *testing.T, status int, body string) *EvaluatorClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewEvaluatorClient(srv.URL, 2*time.Second)
}

func TestDoMoveVerdict(t *testing.T) {
	var gotReq doMoveRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"MOVEOK","states":{"castling":"KQkq"},"fen":"8/8/8/8/8/8/8/8 b - - 0 1"}`))
	}))
	t.Cleanup(srv.Close)

	ec := NewEvaluatorClient(srv.URL, 2*time.Second)
	verdict, err := ec.DoMove(context.Background(), "fen-in", "e2e4", `{"castling":"KQkq"}`)
	require.NoError(t, err)

	assert.Equal(t, "fen-in", gotReq.FEN)
	assert.Equal(t, "e2e4", gotReq.Move)
	assert.JSONEq(t, `{"castling":"KQkq"}`, string(gotReq.States))

	assert.Equal(t, EvalMoveOK, verdict.Status)
	assert.Equal(t, "8/8/8/8/8/8/8/8 b - - 0 1", verdict.FEN)
	// the states blob comes back verbatim for the next round trip
	assert.JSONEq(t, `{"castling":"KQkq"}`, string(verdict.States))
}

func TestDoMoveRejection(t *testing.T) {
	for _, msg := range []string{
		"invalid move",
		"move puts player in check",
		"player is still in check",
		"the game is already over",
	} {
		ec := stubEvaluator(t, http.StatusBadRequest, `{"message":"`+msg+`"}`)
		_, err := ec.DoMove(context.Background(), "fen", "e2e4", "{}")
		assert.ErrorIs(t, err, ErrUpstreamRejected, msg)
		assert.Contains(t, err.Error(), msg)
	}
}

func TestDoMoveUnknown4xxIsFailure(t *testing.T) {
	// a 4xx outside the known rejection set is an evaluator fault, not a
	// client error
	ec := stubEvaluator(t, http.StatusBadRequest, `{"message":"surprise"}`)
	_, err := ec.DoMove(context.Background(), "fen", "e2e4", "{}")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestDoMoveServerFailure(t *testing.T) {
	ec := stubEvaluator(t, http.StatusInternalServerError, `oops`)
	_, err := ec.DoMove(context.Background(), "fen", "e2e4", "{}")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestDoMoveMalformedSuccess(t *testing.T) {
	ec := stubEvaluator(t, http.StatusOK, `not json`)
	_, err := ec.DoMove(context.Background(), "fen", "e2e4", "{}")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)

	ec = stubEvaluator(t, http.StatusOK, `{"states":{}}`)
	_, err = ec.DoMove(context.Background(), "fen", "e2e4", "{}")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestDoMoveUnreachable(t *testing.T) {
	ec := NewEvaluatorClient("http://127.0.0.1:1", 500*time.Millisecond)
	_, err := ec.DoMove(context.Background(), "fen", "e2e4", "{}")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}
