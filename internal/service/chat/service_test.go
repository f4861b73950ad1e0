package chat_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/genie-widget/internal/config"
	"github.com/zhouzirui/genie-widget/internal/service/answer"
	chat "github.com/zhouzirui/genie-widget/internal/service/chat"
	"github.com/zhouzirui/genie-widget/internal/widget"
)

func newWidget() *widget.Widget {
	asker := answer.AskerFunc(func(context.Context, string) (string, error) { return "ok", nil })
	return widget.New(asker, config.DefaultWidgetConfig())
}

func TestServiceGetSession(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, newWidget())
	require.NoError(t, err)

	got, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, session.ID, got.ID)
	require.Equal(t, 1, svc.Count())
}

func TestServiceGetSessionNotFound(t *testing.T) {
	svc := chat.NewService()

	_, err := svc.GetSession(context.Background(), "missing")
	require.ErrorIs(t, err, chat.ErrSessionNotFound)
}

func TestServiceRequiresWidget(t *testing.T) {
	svc := chat.NewService()

	_, err := svc.CreateSession(context.Background(), nil)
	require.ErrorIs(t, err, chat.ErrWidgetRequired)
}

func TestServiceSnapshotReflectsWidget(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()
	w := newWidget()

	session, err := svc.CreateSession(ctx, w)
	require.NoError(t, err)

	w.SetInput("hello")
	w.Send(ctx)

	state, err := svc.Snapshot(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, state.Entries, 2)
	require.Equal(t, "ok", state.Entries[1].Text)
}

func TestServiceCloseSession(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, newWidget())
	require.NoError(t, err)

	svc.CloseSession(ctx, session.ID)
	svc.CloseSession(ctx, session.ID)

	_, err = svc.Snapshot(ctx, session.ID)
	require.ErrorIs(t, err, chat.ErrSessionNotFound)
	require.Equal(t, 0, svc.Count())
}
