// Package widget implements the chat widget controller: a visibility flag, a
// single-line input and a message log whose bot placeholders are resolved by
// the Answer Service.
package widget

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/genie-widget/internal/config"
	"github.com/zhouzirui/genie-widget/internal/model/chat"
	"github.com/zhouzirui/genie-widget/internal/service/answer"
)

// KeyEnter is the key name that triggers a send.
const KeyEnter = "Enter"

// Request pairs an issued question with the placeholder awaiting its answer.
type Request struct {
	EntryID  string
	Question string
}

// State is a copy of everything the widget renders.
type State struct {
	Visible  bool
	Input    string
	Entries  []chat.Entry
	InFlight int
}

// Widget owns the container visibility, the input field and the message log.
// All mutations are serialized by one lock, so the widget may be driven from
// several goroutines.
type Widget struct {
	asker    answer.Asker
	cfg      config.WidgetConfig
	listener Listener
	logger   zerolog.Logger

	mu      sync.Mutex
	visible bool
	input   string
	log     *chat.Log
	pending map[string]struct{}

	wg sync.WaitGroup
}

// Option customizes a Widget.
type Option func(*Widget)

// WithListener registers the observer for widget events.
func WithListener(l Listener) Option {
	return func(w *Widget) {
		if l != nil {
			w.listener = l
		}
	}
}

// WithVisible sets the initial visibility. Widgets start closed by default.
func WithVisible(visible bool) Option {
	return func(w *Widget) {
		w.visible = visible
	}
}

// WithLogger replaces the logger used for request diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Widget) {
		w.logger = logger
	}
}

// New creates a widget that relays questions to asker.
func New(asker answer.Asker, cfg config.WidgetConfig, opts ...Option) *Widget {
	w := &Widget{
		asker:    asker,
		cfg:      cfg,
		listener: nopListener{},
		logger:   log.Logger,
		log:      chat.NewLog(),
		pending:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Config returns the texts the widget was built with.
func (w *Widget) Config() config.WidgetConfig {
	return w.cfg
}

// Toggle flips the container between open and closed.
func (w *Widget) Toggle() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.visible = !w.visible
	w.listener.OnWidgetEvent(Event{Type: EventVisibilityChanged, Visible: w.visible})
}

// Visible reports whether the container is open.
func (w *Widget) Visible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

// SetInput replaces the input field value.
func (w *Widget) SetInput(value string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.setInputLocked(value)
}

// Input returns the current input field value.
func (w *Widget) Input() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.input
}

// SyncInput records a value the host already shows in its input field. No
// event is emitted, so the value is not echoed back to the field it came from.
func (w *Widget) SyncInput(value string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.input = value
}

func (w *Widget) setInputLocked(value string) {
	if w.input == value {
		return
	}
	w.input = value
	w.listener.OnWidgetEvent(Event{Type: EventInputChanged, Input: value})
}

// OnKey sends the current input when key is Enter and ignores anything else.
// The request runs in the background; OnKey reports whether one was issued.
func (w *Widget) OnKey(ctx context.Context, key string) bool {
	if key != KeyEnter {
		return false
	}
	return w.SendAsync(ctx)
}

// Clear empties the message log.
func (w *Widget) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.log.Clear()
	w.listener.OnWidgetEvent(Event{Type: EventLogCleared})
}

// Send relays the current input to the Answer Service and blocks until the
// placeholder is resolved. Blank input is ignored. Failures end up in the log
// as the configured error text; nothing is returned.
func (w *Widget) Send(ctx context.Context) {
	req, ok := w.Submit()
	if !ok {
		return
	}
	w.ask(ctx, req)
}

// SendAsync is Send with the Answer Service call moved to a goroutine. The
// user entry and placeholder are in the log when it returns.
func (w *Widget) SendAsync(ctx context.Context) bool {
	req, ok := w.Submit()
	if !ok {
		return false
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.ask(ctx, req)
	}()
	return true
}

// Wait blocks until every request started by SendAsync has been resolved.
func (w *Widget) Wait() {
	w.wg.Wait()
}

// Submit takes the trimmed input, logs it with a pending placeholder and clears
// the input. It returns false, leaving everything untouched, when the input is
// blank or when sends are serialized and one is still in flight.
func (w *Widget) Submit() (Request, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	question := strings.TrimSpace(w.input)
	if question == "" {
		return Request{}, false
	}
	if w.cfg.SerializeSends && len(w.pending) > 0 {
		w.logger.Debug().Int("in_flight", len(w.pending)).Msg("send refused while a request is pending")
		return Request{}, false
	}

	userEntry := w.log.Append(chat.RoleUser, question, false)
	w.listener.OnWidgetEvent(Event{Type: EventEntryAppended, Entry: userEntry})

	w.setInputLocked("")

	placeholder := w.log.Append(chat.RoleBot, w.cfg.PendingText, true)
	w.listener.OnWidgetEvent(Event{Type: EventEntryAppended, Entry: placeholder})
	w.listener.OnWidgetEvent(Event{Type: EventScrolledToTail})

	w.pending[placeholder.ID] = struct{}{}
	return Request{EntryID: placeholder.ID, Question: question}, true
}

// Resolve fills the placeholder of req with answer, or with the error text
// when err is non-nil. Answers for placeholders removed by Clear are dropped.
func (w *Widget) Resolve(req Request, answer string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.pending[req.EntryID]; !ok {
		return
	}
	delete(w.pending, req.EntryID)

	text, failed := answer, false
	if err != nil {
		w.logger.Debug().Err(err).Str("entry_id", req.EntryID).Msg("answer request failed")
		text, failed = w.cfg.ErrorText, true
	}

	entry, ok := w.log.Resolve(req.EntryID, text, failed)
	if !ok {
		w.logger.Debug().Str("entry_id", req.EntryID).Msg("placeholder cleared before answer arrived")
		return
	}
	w.listener.OnWidgetEvent(Event{Type: EventEntryResolved, Entry: entry})
	w.listener.OnWidgetEvent(Event{Type: EventScrolledToTail})
}

// InFlight returns the number of unresolved requests.
func (w *Widget) InFlight() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Snapshot copies the current view state.
func (w *Widget) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return State{
		Visible:  w.visible,
		Input:    w.input,
		Entries:  w.log.Entries(),
		InFlight: len(w.pending),
	}
}

func (w *Widget) ask(ctx context.Context, req Request) {
	reply, err := Ask(ctx, w.asker, req.Question)
	w.Resolve(req, reply, err)
}

// Ask calls asker and turns a panic into an error, so a broken Answer
// Service ends up as the error text instead of taking the host down.
func Ask(ctx context.Context, asker answer.Asker, question string) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			reply, err = "", errors.Errorf("answer service panicked: %v", r)
		}
	}()
	return asker.Ask(ctx, question)
}
