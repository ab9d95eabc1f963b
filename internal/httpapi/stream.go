package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/pai-progress/internal/challenge"
)

// Stream message types.
const (
	MessageRoster    = "roster"
	MessageRemaining = "remaining"
)

// StreamMessage is one frame of the challenge stream.
type StreamMessage struct {
	Type       string                `json:"type"`
	Challenges []challenge.Challenge `json:"challenges,omitempty"`
	Remaining  *challenge.Remaining  `json:"remaining,omitempty"`
}

const writeTimeout = 5 * time.Second

// handleStream sends the roster once, then the countdown every tick. When the
// reset boundary passes, the new roster is pushed before the next countdown.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	board, release := s.cfg.Challenges.Acquire(r.PathValue("id"))
	defer release()

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	// Inbound frames are not expected; CloseRead handles control frames and
	// cancels ctx when the client goes away.
	ctx := conn.CloseRead(r.Context())

	if err := sendRoster(ctx, conn, board); err != nil {
		logStreamEnd(board.LearnerID(), err)
		return
	}

	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	for {
		if err := sendRemaining(ctx, conn, board); err != nil {
			logStreamEnd(board.LearnerID(), err)
			return
		}

		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-ticker.C:
		}

		reset, err := board.ResetIfDue(ctx)
		if err != nil {
			slog.Warn("stream reset check failed", "learner_id", board.LearnerID(), "error", err)
			continue
		}
		if reset {
			if err := sendRoster(ctx, conn, board); err != nil {
				logStreamEnd(board.LearnerID(), err)
				return
			}
		}
	}
}

func sendRoster(ctx context.Context, conn *websocket.Conn, board *challenge.Board) error {
	cs, err := board.Challenges(ctx)
	if err != nil {
		return err
	}
	return write(ctx, conn, StreamMessage{Type: MessageRoster, Challenges: cs})
}

func sendRemaining(ctx context.Context, conn *websocket.Conn, board *challenge.Board) error {
	rem := board.TimeRemaining()
	return write(ctx, conn, StreamMessage{Type: MessageRemaining, Remaining: &rem})
}

func write(ctx context.Context, conn *websocket.Conn, msg StreamMessage) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}

func logStreamEnd(learnerID string, err error) {
	if errors.Is(err, context.Canceled) || websocket.CloseStatus(err) != -1 {
		slog.Debug("challenge stream closed", "learner_id", learnerID)
		return
	}
	slog.Warn("challenge stream ended", "learner_id", learnerID, "error", err)
}
