package widget

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/genie-widget/internal/config"
	"github.com/zhouzirui/genie-widget/internal/service/answer"
	chatservice "github.com/zhouzirui/genie-widget/internal/service/chat"
)

func strPtr(s string) *string { return &s }

func setupServer(t *testing.T, asker answer.Asker) (*httptest.Server, *chatservice.Service) {
	t.Helper()
	chatSvc := chatservice.NewService()
	h := New(asker, chatSvc, config.DefaultWidgetConfig())

	r := chi.NewRouter()
	r.Get("/", h.ServePage)
	r.Route("/api", func(api chi.Router) {
		h.RegisterRoutes(api)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, chatSvc
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/widget/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) outgoingMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg outgoingMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// readUntil collects frames up to and including the first frame of type stop.
func readUntil(t *testing.T, conn *websocket.Conn, stop string) []outgoingMessage {
	t.Helper()
	var frames []outgoingMessage
	for {
		msg := readFrame(t, conn)
		frames = append(frames, msg)
		if msg.Type == stop {
			return frames
		}
	}
}

func frameTypes(frames []outgoingMessage) []string {
	types := make([]string, 0, len(frames))
	for _, f := range frames {
		types = append(types, f.Type)
	}
	return types
}

func TestWebSocketInitialStateIsClosed(t *testing.T) {
	srv, chatSvc := setupServer(t, answer.AskerFunc(func(context.Context, string) (string, error) { return "", nil }))
	conn := dial(t, srv)

	state := readFrame(t, conn)
	require.Equal(t, "state", state.Type)
	require.NotEmpty(t, state.SessionID)
	require.Equal(t, "none", state.Display)
	require.Empty(t, state.HTML)
	require.Equal(t, 1, chatSvc.Count())
}

func TestWebSocketToggle(t *testing.T) {
	srv, _ := setupServer(t, answer.AskerFunc(func(context.Context, string) (string, error) { return "", nil }))
	conn := dial(t, srv)
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(inboundMessage{Type: "toggle"}))
	require.Equal(t, "flex", readFrame(t, conn).Display)

	require.NoError(t, conn.WriteJSON(inboundMessage{Type: "toggle"}))
	require.Equal(t, "none", readFrame(t, conn).Display)
}

func TestWebSocketEnterSendsAndResolves(t *testing.T) {
	asked := make(chan string, 1)
	srv, _ := setupServer(t, answer.AskerFunc(func(_ context.Context, q string) (string, error) {
		asked <- q
		return "Hi there\nHow can I help?", nil
	}))
	conn := dial(t, srv)
	state := readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(inboundMessage{Type: "key", Key: "Enter", Value: strPtr("<b>hello</b>")}))
	frames := readUntil(t, conn, "resolve")

	require.Equal(t, []string{"append", "input", "append", "scroll", "resolve"}, frameTypes(frames))
	require.Equal(t, "<b>hello</b>", <-asked)

	userFrame := frames[0]
	require.Contains(t, userFrame.HTML, "&lt;b&gt;hello&lt;/b&gt;")
	require.Contains(t, userFrame.HTML, "user-message")
	require.Equal(t, "", *frames[1].Value)

	placeholder := frames[2]
	require.Contains(t, placeholder.HTML, "thinking")

	resolved := frames[4]
	require.Equal(t, placeholder.EntryID, resolved.EntryID)
	require.Contains(t, resolved.HTML, "Hi there<br>How can I help?")
	require.NotContains(t, resolved.HTML, "thinking")

	require.Equal(t, "scroll", readFrame(t, conn).Type)

	resp, err := http.Get(srv.URL + "/api/widget/sessions/" + state.SessionID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view sessionView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	require.Equal(t, state.SessionID, view.SessionID)
	require.False(t, view.CreatedAt.IsZero())
	require.Len(t, view.Entries, 2)
	require.Equal(t, "Hi there\nHow can I help?", view.Entries[1].Text)
	require.Equal(t, 0, view.InFlight)
}

func TestWebSocketFailureShowsErrorText(t *testing.T) {
	srv, _ := setupServer(t, answer.AskerFunc(func(context.Context, string) (string, error) {
		return "", errors.Wrap(answer.ErrRequestFailed, "connection refused")
	}))
	conn := dial(t, srv)
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(inboundMessage{Type: "input", Value: strPtr("hello")}))
	require.NoError(t, conn.WriteJSON(inboundMessage{Type: "key", Key: "Enter"}))

	frames := readUntil(t, conn, "resolve")
	resolved := frames[len(frames)-1]
	require.Contains(t, resolved.HTML, "❌ Server error. Try again.")
	require.Contains(t, resolved.HTML, "failed")
}

func TestWebSocketBlankInputAndOtherKeysAreIgnored(t *testing.T) {
	srv, _ := setupServer(t, answer.AskerFunc(func(context.Context, string) (string, error) {
		t.Error("answer service must not be called")
		return "", nil
	}))
	conn := dial(t, srv)
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(inboundMessage{Type: "key", Key: "Enter", Value: strPtr("   ")}))
	require.NoError(t, conn.WriteJSON(inboundMessage{Type: "key", Key: "a"}))
	require.NoError(t, conn.WriteJSON(inboundMessage{Type: "clear"}))

	require.Equal(t, "clear", readFrame(t, conn).Type)
}

func TestWebSocketTypedInputIsNotEchoed(t *testing.T) {
	srv, chatSvc := setupServer(t, answer.AskerFunc(func(context.Context, string) (string, error) { return "", nil }))
	conn := dial(t, srv)
	state := readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(inboundMessage{Type: "input", Value: strPtr("a")}))
	require.NoError(t, conn.WriteJSON(inboundMessage{Type: "input", Value: strPtr("ab")}))
	require.NoError(t, conn.WriteJSON(inboundMessage{Type: "toggle"}))

	// frames are written in order, so anything echoed would precede the toggle
	frames := readUntil(t, conn, "visibility")
	require.Equal(t, []string{"visibility"}, frameTypes(frames))

	snapshot, err := chatSvc.Snapshot(context.Background(), state.SessionID)
	require.NoError(t, err)
	require.Equal(t, "ab", snapshot.Input)
}

func TestWebSocketUnknownMessageType(t *testing.T) {
	srv, _ := setupServer(t, answer.AskerFunc(func(context.Context, string) (string, error) { return "", nil }))
	conn := dial(t, srv)
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(inboundMessage{Type: "explode"}))
	msg := readFrame(t, conn)
	require.Equal(t, "error", msg.Type)
	require.Contains(t, msg.Error, "explode")
}

func TestSessionClosedAfterDisconnect(t *testing.T) {
	srv, chatSvc := setupServer(t, answer.AskerFunc(func(context.Context, string) (string, error) { return "", nil }))
	conn := dial(t, srv)
	state := readFrame(t, conn)
	require.Equal(t, 1, chatSvc.Count())

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return chatSvc.Count() == 0 }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get(srv.URL + "/api/widget/sessions/" + state.SessionID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServePageContainsWidgetRegions(t *testing.T) {
	srv, _ := setupServer(t, answer.AskerFunc(func(context.Context, string) (string, error) { return "", nil }))

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(raw)
	for _, id := range []string{`id="chatbot"`, `id="chatMessages"`, `id="chatInput"`, `id="chatToggle"`} {
		require.Contains(t, body, id)
	}
}
