package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu     sync.Mutex
	name   string
	fail   bool
	titles []string
}

func (f *fakeSender) Send(_ context.Context, title, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("boom")
	}
	f.titles = append(f.titles, title)
	return nil
}

func (f *fakeSender) Name() string { return f.name }

func (f *fakeSender) sentTitles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.titles...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestNotifyFiltersEvents(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := New([]Sender{sender}, []string{EventStopTriggered}, discardLogger())

	require.NoError(t, n.Notify(context.Background(), EventPositionOpened, "opened", "msg"))
	assert.Empty(t, sender.sentTitles())

	require.NoError(t, n.Notify(context.Background(), EventStopTriggered, "stopped", "msg"))
	assert.Equal(t, []string{"stopped"}, sender.sentTitles())
}

func TestNotifyEmptyFilterAllowsAll(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := New([]Sender{sender}, nil, discardLogger())

	require.NoError(t, n.Notify(context.Background(), EventPositionClosed, "closed", "msg"))
	assert.Equal(t, []string{"closed"}, sender.sentTitles())
}

func TestNotifyCollectsSenderFailures(t *testing.T) {
	bad := &fakeSender{name: "bad", fail: true}
	good := &fakeSender{name: "good"}
	n := New([]Sender{bad, good}, nil, discardLogger())

	err := n.Notify(context.Background(), EventPositionOpened, "opened", "msg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")

	// The failing sender does not block delivery to the healthy one.
	assert.Equal(t, []string{"opened"}, good.sentTitles())
}

func TestNilNotifierIsNoOp(t *testing.T) {
	var n *Notifier

	assert.NoError(t, n.Notify(context.Background(), EventPositionOpened, "t", "m"))
	n.NotifyAsync(context.Background(), EventPositionOpened, "t", "m")
}
