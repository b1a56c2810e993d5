// Package gateway implements the gateway session (spec section 4.7): a
// single connection handler running the
// Connected -> AwaitingAuth -> Executing -> Done state machine, adapted
// from the teacher's internal/handler/websocket.go duplex relay shape
// (upgrader config, eventBus fan-out goroutine, init timeout) onto the
// spec's job-token-authenticated submission flow instead of the teacher's
// compile/run package protocol.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/codr/codr/internal/bus"
	"github.com/codr/codr/internal/config"
	"github.com/codr/codr/internal/executor"
	"github.com/codr/codr/internal/jobstore"
	"github.com/codr/codr/internal/token"
	"github.com/codr/codr/internal/types"
	"github.com/codr/codr/internal/validator"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server owns the dependencies every connection handler needs.
type Server struct {
	Cfg       *config.Config
	Bus       *bus.Bus
	Store     *jobstore.Store
	Tokens    *token.Service
	Logger    *logrus.Entry
	ActiveCount int64
}

// ActiveSessions returns the current number of live /ws/execute
// connections, backing GET /api/websocket/status.
func (s *Server) ActiveSessions() int64 {
	return atomic.LoadInt64(&s.ActiveCount)
}

// session is one connection's worth of state, implementing the
// Connected -> AwaitingAuth -> Executing -> Done machine.
type session struct {
	srv    *Server
	conn   *websocket.Conn
	logger *logrus.Entry

	jobID    string
	outbound chan types.WSMessage
	mutex    sync.Mutex
	closed   bool
}

// HandleWebSocket upgrades the HTTP request and runs one session to
// completion.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.WithError(err).Error("websocket upgrade failed")
		return
	}

	atomic.AddInt64(&s.ActiveCount, 1)
	defer atomic.AddInt64(&s.ActiveCount, -1)

	sess := &session{
		srv:      s,
		conn:     conn,
		logger:   s.Logger.WithField("component", "gateway"),
		outbound: make(chan types.WSMessage, 64),
	}

	go sess.sender()
	sess.run(r.Context())
}

// run drives Connected -> AwaitingAuth -> Executing -> Done.
func (sess *session) run(ctx context.Context) {
	defer sess.close(websocket.CloseNormalClosure, "done")

	// Connected: wait up to 5s for the first frame.
	sess.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := sess.conn.ReadMessage()
	if err != nil {
		sess.logger.WithError(err).Debug("no auth frame received within timeout")
		sess.close(websocket.ClosePolicyViolation, "auth timeout")
		return
	}
	sess.conn.SetReadDeadline(time.Time{})

	// AwaitingAuth
	var first types.WSMessage
	if err := json.Unmarshal(data, &first); err != nil {
		sess.sendError("malformed auth frame")
		sess.close(websocket.ClosePolicyViolation, "malformed auth frame")
		return
	}

	if first.JobID == "" || first.JobToken == "" {
		sess.sendError("missing job_id or job_token")
		sess.close(websocket.ClosePolicyViolation, "auth missing")
		return
	}

	claims, err := sess.srv.Tokens.Verify(first.JobToken, first.JobID)
	if err != nil {
		sess.sendError(sess.sanitizeErr(err))
		sess.close(websocket.ClosePolicyViolation, "auth invalid")
		return
	}

	if sess.srv.Tokens.IsUsed(ctx, claims.Jti) {
		sess.sendError("job token has already been used")
		sess.close(websocket.ClosePolicyViolation, "auth reused")
		return
	}
	sess.srv.Tokens.MarkUsed(ctx, claims.Jti)

	sess.jobID = first.JobID

	// Executing
	if first.Language == "" || first.Code == "" {
		sess.sendError("missing code or language")
		sess.close(websocket.CloseNormalClosure, "submission malformed")
		return
	}
	if _, err := executor.Resolve(first.Language); err != nil {
		sess.sendError(fmt.Sprintf("unsupported language: %s", first.Language))
		sess.close(websocket.CloseNormalClosure, "submission malformed")
		return
	}

	ok, reason := validator.Validate(first.Code, first.Language)
	if !ok {
		sess.sendError(reason)
		sess.close(websocket.CloseNormalClosure, "validation rejected")
		return
	}

	filename := executor.DefaultFilename(first.Language)
	if _, err := sess.srv.Store.Create(ctx, first.Code, first.Language, filename); err != nil {
		sess.logger.WithError(err).Error("failed to create job record")
		sess.sendError("internal error creating job")
		sess.close(websocket.CloseInternalServerErr, "server fault")
		return
	}

	subCtx, cancelSub := context.WithCancel(ctx)
	defer cancelSub()

	done := make(chan struct{})
	go func() {
		defer close(done)
		err := sess.srv.Bus.Subscribe(subCtx, sess.jobID, func(msg types.BusMessage) {
			sess.forward(msg)
		})
		if err != nil && subCtx.Err() == nil {
			sess.logger.WithError(err).Warn("bus subscription ended unexpectedly")
		}
	}()

	entry := types.JobQueueEntry{
		JobID:    sess.jobID,
		Code:     first.Code,
		Language: first.Language,
		Filename: filename,
		QueuedAt: time.Now(),
	}
	if err := sess.srv.Bus.Enqueue(ctx, entry); err != nil {
		sess.logger.WithError(err).Error("failed to enqueue job")
		sess.sendError("internal error enqueuing job")
		sess.close(websocket.CloseInternalServerErr, "server fault")
		return
	}

	sess.messageLoop(ctx, done)
}

// messageLoop reads client frames until disconnect or the bus delivers
// complete. Backpressure: the gateway never buffers output itself; it
// forwards one bus frame at a time via the sender goroutine and lets the
// client socket apply its own flow control.
func (sess *session) messageLoop(ctx context.Context, done <-chan struct{}) {
	maxInputBytes := sess.srv.Cfg.MaxInputKB * 1024

	readCh := make(chan []byte, 1)
	readErrCh := make(chan error, 1)
	go func() {
		for {
			_, data, err := sess.conn.ReadMessage()
			if err != nil {
				readErrCh <- err
				return
			}
			readCh <- data
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-readErrCh:
			return
		case data := <-readCh:
			var msg types.WSMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				sess.sendError("malformed frame")
				continue
			}
			if msg.Type != "input" {
				sess.sendError(fmt.Sprintf("unexpected frame type: %s", msg.Type))
				continue
			}
			if len(msg.Data) > maxInputBytes {
				sess.sendError("input exceeds maximum size")
				continue
			}
			if err := sess.srv.Bus.PublishInput(ctx, sess.jobID, msg.Data); err != nil {
				sess.logger.WithError(err).Warn("failed to publish input")
			}
		}
	}
}

// forward translates a bus message into a client-facing WSMessage.
func (sess *session) forward(msg types.BusMessage) {
	switch msg.Type {
	case types.BusMessageOutput:
		sess.send(types.WSMessage{Type: "output", Stream: msg.Stream, Data: msg.Data})
	case types.BusMessageComplete:
		exitCode := msg.ExitCode
		sess.send(types.WSMessage{Type: "complete", ExitCode: &exitCode, ExecutionTime: msg.ExecutionTime, Message: msg.Message})
	case types.BusMessageError:
		sess.send(types.WSMessage{Type: "error", Message: msg.Message})
	}
}

func (sess *session) sendError(message string) {
	sess.send(types.WSMessage{Type: "error", Message: message})
}

func (sess *session) sanitizeErr(err error) string {
	if sess.srv.Cfg.IsDevelopment() {
		return err.Error()
	}
	return "authentication failed"
}

func (sess *session) send(msg types.WSMessage) {
	sess.mutex.Lock()
	defer sess.mutex.Unlock()
	if sess.closed {
		return
	}
	select {
	case sess.outbound <- msg:
	default:
		sess.logger.Warn("outbound buffer full; dropping frame")
	}
}

// sender drains the outbound channel, one frame at a time, applying the
// client socket's own flow control.
func (sess *session) sender() {
	for msg := range sess.outbound {
		sess.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := sess.conn.WriteJSON(msg); err != nil {
			sess.logger.WithError(err).Debug("write failed; client likely disconnected")
		}
	}
}

func (sess *session) close(code int, reason string) {
	sess.mutex.Lock()
	if sess.closed {
		sess.mutex.Unlock()
		return
	}
	sess.closed = true
	close(sess.outbound)
	sess.mutex.Unlock()

	deadline := time.Now().Add(2 * time.Second)
	msg := websocket.FormatCloseMessage(code, reason)
	_ = sess.conn.WriteControl(websocket.CloseMessage, msg, deadline)
	_ = sess.conn.Close()
}
