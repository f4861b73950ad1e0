package widget

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/genie-widget/internal/config"
	"github.com/zhouzirui/genie-widget/internal/service/answer"
	chatservice "github.com/zhouzirui/genie-widget/internal/service/chat"
	chatwidget "github.com/zhouzirui/genie-widget/internal/widget"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 25 * time.Second
	writeWait    = 10 * time.Second
	outboxSize   = 64
)

// Handler 聊天组件的HTTP与WebSocket处理器
type Handler struct {
	asker    answer.Asker
	cfg      config.WidgetConfig
	chatSvc  *chatservice.Service
	renderer *chatwidget.Renderer
	upgrader websocket.Upgrader
}

// New 创建聊天组件处理器
func New(asker answer.Asker, chatSvc *chatservice.Service, cfg config.WidgetConfig) *Handler {
	return &Handler{
		asker:    asker,
		cfg:      cfg,
		chatSvc:  chatSvc,
		renderer: chatwidget.NewRenderer(cfg),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册组件相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/widget/ws", h.handleWebSocket)
	r.Get("/widget/sessions/{sessionID}", h.handleGetSession)
}

type inboundMessage struct {
	Type  string  `json:"type"`
	Key   string  `json:"key,omitempty"`
	Value *string `json:"value,omitempty"`
}

type outgoingMessage struct {
	Type      string  `json:"type"`
	SessionID string  `json:"sessionId,omitempty"`
	EntryID   string  `json:"entryId,omitempty"`
	HTML      string  `json:"html,omitempty"`
	Display   string  `json:"display,omitempty"`
	Value     *string `json:"value,omitempty"`
	Error     string  `json:"error,omitempty"`
	Timestamp int64   `json:"timestamp"`
}

// handleWebSocket runs one widget per connection. The read loop feeds user
// actions into the widget; widget events are rendered and queued to a single
// writer goroutine that owns all writes on conn.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbox := make(chan outgoingMessage, outboxSize)
	push := func(msg outgoingMessage) {
		msg.Timestamp = time.Now().UnixMilli()
		select {
		case outbox <- msg:
		case <-ctx.Done():
		}
	}

	wgt := chatwidget.New(h.asker, h.cfg,
		chatwidget.WithListener(chatwidget.ListenerFunc(func(ev chatwidget.Event) {
			if msg, ok := h.frameFor(ev); ok {
				push(msg)
			}
		})),
	)

	session, err := h.chatSvc.CreateSession(ctx, wgt)
	if err != nil {
		log.Error().Err(err).Msg("failed to create widget session")
		return
	}
	logger := log.With().Str("session_id", session.ID).Logger()
	defer h.chatSvc.CloseSession(context.Background(), session.ID)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(ctx, conn, outbox, logger)
		// unblocks the read loop when the writer gives up first
		cancel()
		conn.Close()
	}()

	logger.Info().Msg("widget session opened")
	push(h.stateFrame(session.ID, wgt.Snapshot()))

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug().Err(err).Msg("websocket read error")
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		if ctx.Err() != nil {
			break
		}
		if errMsg := h.handleMessage(ctx, wgt, &msg); errMsg != "" {
			push(outgoingMessage{Type: "error", Error: errMsg})
		}
	}

	cancel()
	wgt.Wait()
	<-writerDone
	logger.Info().Msg("widget session closed")
}

func (h *Handler) handleMessage(ctx context.Context, wgt *chatwidget.Widget, msg *inboundMessage) string {
	switch msg.Type {
	case "input":
		if msg.Value == nil {
			return "input requires a value"
		}
		wgt.SyncInput(*msg.Value)
	case "key":
		if msg.Value != nil {
			wgt.SyncInput(*msg.Value)
		}
		wgt.OnKey(ctx, msg.Key)
	case "send":
		if msg.Value != nil {
			wgt.SyncInput(*msg.Value)
		}
		wgt.SendAsync(ctx)
	case "toggle":
		wgt.Toggle()
	case "clear":
		wgt.Clear()
	default:
		return "unknown message type: " + msg.Type
	}
	return ""
}

func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, outbox <-chan outgoingMessage, logger zerolog.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case msg := <-outbox:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug().Err(err).Str("type", msg.Type).Msg("websocket write failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Debug().Err(err).Msg("websocket ping failed")
				return
			}
		}
	}
}

// frameFor renders a widget event into its wire frame.
func (h *Handler) frameFor(ev chatwidget.Event) (outgoingMessage, bool) {
	switch ev.Type {
	case chatwidget.EventEntryAppended, chatwidget.EventEntryResolved:
		fragment, err := h.renderer.EntryHTML(ev.Entry)
		if err != nil {
			log.Error().Err(err).Str("entry_id", ev.Entry.ID).Msg("failed to render entry")
			return outgoingMessage{}, false
		}
		return outgoingMessage{Type: string(ev.Type), EntryID: ev.Entry.ID, HTML: string(fragment)}, true
	case chatwidget.EventLogCleared, chatwidget.EventScrolledToTail:
		return outgoingMessage{Type: string(ev.Type)}, true
	case chatwidget.EventInputChanged:
		value := ev.Input
		return outgoingMessage{Type: string(ev.Type), Value: &value}, true
	case chatwidget.EventVisibilityChanged:
		return outgoingMessage{Type: string(ev.Type), Display: chatwidget.Display(ev.Visible)}, true
	}
	return outgoingMessage{}, false
}

func (h *Handler) stateFrame(sessionID string, state chatwidget.State) outgoingMessage {
	fragment, err := h.renderer.LogHTML(state.Entries)
	if err != nil {
		log.Error().Err(err).Msg("failed to render log")
	}
	value := state.Input
	return outgoingMessage{
		Type:      "state",
		SessionID: sessionID,
		HTML:      string(fragment),
		Display:   chatwidget.Display(state.Visible),
		Value:     &value,
	}
}
