package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// wsFrame is the JSON frame exchanged with the chat gateway.
type wsFrame struct {
	ID       string `json:"id,omitempty"`
	ChatID   string `json:"chat_id"`
	AuthorID string `json:"author_id,omitempty"`
	Text     string `json:"text"`
}

// WSSession implements Session over a WebSocket chat gateway that speaks
// one JSON frame per message.
type WSSession struct {
	url   string
	token string

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSSession creates a session targeting the given WebSocket URL. token,
// when set, is sent as a bearer Authorization header on connect.
func NewWSSession(url, token string) *WSSession {
	return &WSSession{url: url, token: token}
}

// Connect dials the gateway. Any previous connection is abandoned; the
// bridge calls Connect again after every drop.
func (s *WSSession) Connect(ctx context.Context) error {
	opts := &websocket.DialOptions{}
	if s.token != "" {
		opts.HTTPHeader = http.Header{"Authorization": []string{"Bearer " + s.token}}
	}

	conn, _, err := websocket.Dial(ctx, s.url, opts)
	if err != nil {
		return eris.Wrap(err, "bridge: dial chat gateway")
	}
	conn.SetReadLimit(256 * 1024)

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	return nil
}

// Recv blocks for the next inbound frame. Malformed frames are dropped and
// reading continues; only a dead connection surfaces an error.
func (s *WSSession) Recv(ctx context.Context) (Message, error) {
	conn := s.current()
	if conn == nil {
		return Message{}, ErrSessionClosed
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return Message{}, ErrSessionClosed
		}

		var f wsFrame
		if err := json.Unmarshal(data, &f); err != nil {
			zap.L().Warn("dropping malformed chat frame", zap.Error(err))
			continue
		}

		return Message{ID: f.ID, ChatID: f.ChatID, AuthorID: f.AuthorID, Text: f.Text}, nil
	}
}

// Send posts a reply frame into the given chat.
func (s *WSSession) Send(ctx context.Context, chatID, text string) error {
	conn := s.current()
	if conn == nil {
		return ErrSessionClosed
	}

	data, err := json.Marshal(wsFrame{ChatID: chatID, Text: text})
	if err != nil {
		return eris.Wrap(err, "bridge: encode frame")
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return eris.Wrap(err, "bridge: write frame")
	}
	return nil
}

// Close closes the current connection, if any.
func (s *WSSession) Close() error {
	conn := s.current()
	if conn == nil {
		return nil
	}
	return conn.Close(websocket.StatusNormalClosure, "shutting down")
}

func (s *WSSession) current() *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}
