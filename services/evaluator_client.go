// services/evaluator_client.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Move evaluation statuses returned by the chess-workers service. MOVEOK and
// CHECK mean the game continues; the rest are terminal and match the
// models.Result* values.
const (
	EvalMoveOK = "MOVEOK"
	EvalCheck  = "CHECK"
)

// Rejection messages the workers service uses for moves it refuses. Anything
// outside this set on a 4xx is treated as a server-side failure.
var evaluatorRejections = map[string]bool{
	"invalid move":              true,
	"move puts player in check": true,
	"player is still in check":  true,
	"the game is already over":  true,
}

// MoveVerdict is the evaluator's answer to a proposed move. States is the
// evaluator-owned blob, passed through verbatim.
type MoveVerdict struct {
	Status string          `json:"status"`
	States json.RawMessage `json:"states"`
	FEN    string          `json:"fen"`
}

// EvaluatorClient calls the external chess-workers service, the sole
// authority on move legality and game termination.
type EvaluatorClient struct {
	client *resty.Client
}

func NewEvaluatorClient(baseURL string, timeout time.Duration) *EvaluatorClient {
	return &EvaluatorClient{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
	}
}

type doMoveRequest struct {
	FEN    string          `json:"fen"`
	Move   string          `json:"move"`
	States json.RawMessage `json:"states"`
}

// DoMove validates the move against the given position. Errors are either
// ErrUpstreamRejected (move illegal / game over — a client error, carries the
// evaluator's message) or ErrUpstreamUnavailable (anything else).
func (ec *EvaluatorClient) DoMove(ctx context.Context, fen, move, states string) (*MoveVerdict, error) {
	resp, err := ec.client.R().
		SetContext(ctx).
		SetBody(doMoveRequest{FEN: fen, Move: move, States: json.RawMessage(states)}).
		Post("/")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode() == 200 {
		var verdict MoveVerdict
		if err := json.Unmarshal(resp.Body(), &verdict); err != nil {
			return nil, fmt.Errorf("%w: malformed response: %v", ErrUpstreamUnavailable, err)
		}
		if verdict.Status == "" || verdict.FEN == "" {
			return nil, fmt.Errorf("%w: incomplete response", ErrUpstreamUnavailable)
		}
		return &verdict, nil
	}

	if resp.StatusCode() >= 400 && resp.StatusCode() < 500 {
		var body struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(resp.Body(), &body); err == nil && evaluatorRejections[body.Message] {
			return nil, fmt.Errorf("%w: %s", ErrUpstreamRejected, body.Message)
		}
	}

	return nil, fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode())
}
