package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"quiz-learning-service/internal/app"
	"quiz-learning-service/internal/domain"
)

var errNotAnswered = errors.New("select an answer before checking it")

type WSHandler struct {
	service  *app.QuizService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		service: service,
		log:     log.With().Str("component", "ws").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	QuestionID string `json:"questionId"`
	OptionID   string `json:"optionId"`
}

type jumpPayload struct {
	Index int `json:"index"`
}

type flagPayload struct {
	QuestionID string `json:"questionId"`
}

type exitPayload struct {
	Confirm bool `json:"confirm"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}

// stream forwards the snapshots of one session to the connection writer.
type stream struct {
	cancel     func()
	quit       chan struct{}
	done       chan struct{}
	resultOnce sync.Once
}

// sendResult emits the result message at most once per attempt.
func (st *stream) sendResult(send chan<- outboundMessage[any], result domain.Result) {
	st.resultOnce.Do(func() {
		select {
		case send <- outboundMessage[any]{Type: "result", Payload: result}:
		case <-st.quit:
		}
	})
}

func (st *stream) stop() {
	close(st.quit)
	st.cancel()
	<-st.done
}

// follow streams session snapshots to send. onGone runs when the service drops
// the session while the stream is still wanted, e.g. after a REST exit.
func (h *WSHandler) follow(ctx context.Context, sessionID string, send chan<- outboundMessage[any], onGone func()) (*stream, error) {
	updates, cancel, err := h.service.Subscribe(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	st := &stream{cancel: cancel, quit: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(st.done)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					select {
					case <-st.quit:
					default:
						onGone()
					}
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: snap}:
				case <-st.quit:
					return
				}
				if snap.Result != nil {
					st.sendResult(send, *snap.Result)
				}
			case <-st.quit:
				return
			}
		}
	}()
	return st, nil
}

// ServeWS upgrades HTTP requests to websockets and drives one quiz session per
// connection. ?sessionId= attaches to a session started over REST, ?quizId=
// starts a new one. The session is discarded when the connection ends.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	quizID := r.URL.Query().Get("quizId")
	if sessionID == "" && quizID == "" {
		http.Error(w, "missing sessionId or quizId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	var session *app.Session
	if sessionID != "" {
		session, err = h.service.Session(sessionID)
	} else {
		session, err = h.service.StartSession(ctx, quizID)
	}
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err.Error()))
		return
	}

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		failed := false
		for msg := range send {
			if failed {
				continue // keep draining so senders never block
			}
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug().Err(err).Msg("ws write error")
				failed = true
			}
		}
	}()

	// exited tells the client its session is gone and unblocks the read loop.
	var exitOnce sync.Once
	exited := func() {
		exitOnce.Do(func() {
			send <- outboundMessage[any]{Type: "exited", Payload: struct{}{}}
			_ = conn.SetReadDeadline(time.Now())
		})
	}

	st, err := h.follow(ctx, session.ID(), send, exited)
	if err != nil {
		send <- errorMessage(err.Error())
		close(send)
		<-writerDone
		return
	}

	defer func() {
		if st != nil {
			st.stop()
		}
		h.service.Discard(session.ID())
		close(send)
		<-writerDone
	}()

loop:
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}

		var opErr error
		switch inbound.Type {
		case "select":
			var p selectPayload
			if json.Unmarshal(inbound.Payload, &p) != nil {
				send <- errorMessage("invalid select payload")
				continue
			}
			opErr = session.SelectAnswer(p.QuestionID, p.OptionID)
		case "reveal":
			if !session.RevealExplanation() {
				opErr = errNotAnswered
			}
		case "next":
			session.Advance()
		case "previous":
			session.Retreat()
		case "jump":
			var p jumpPayload
			if json.Unmarshal(inbound.Payload, &p) != nil {
				send <- errorMessage("invalid jump payload")
				continue
			}
			opErr = session.JumpTo(p.Index)
		case "flag":
			var p flagPayload
			if json.Unmarshal(inbound.Payload, &p) != nil {
				send <- errorMessage("invalid flag payload")
				continue
			}
			_, opErr = session.ToggleFlag(p.QuestionID)
		case "submit":
			st.sendResult(send, session.Submit())
		case "state":
			send <- outboundMessage[any]{Type: "state", Payload: session.Snapshot()}
		case "retake":
			st.stop()
			st = nil
			next, err := h.service.Retake(ctx, session.ID())
			if err != nil {
				send <- errorMessage(err.Error())
				break loop
			}
			session = next
			if st, err = h.follow(ctx, session.ID(), send, exited); err != nil {
				send <- errorMessage(err.Error())
				break loop
			}
		case "exit":
			var p exitPayload
			if len(inbound.Payload) > 0 && json.Unmarshal(inbound.Payload, &p) != nil {
				send <- errorMessage("invalid exit payload")
				continue
			}
			err := h.service.Exit(ctx, session.ID(), p.Confirm)
			if errors.Is(err, domain.ErrConfirmationRequired) {
				send <- outboundMessage[any]{Type: "confirmExit", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			if err != nil {
				opErr = err
				break
			}
			exited()
			break loop
		default:
			opErr = errors.New("unsupported message type")
		}
		if opErr != nil {
			send <- errorMessage(opErr.Error())
		}
	}
}
