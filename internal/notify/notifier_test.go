package notify

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSender records deliveries.
type fakeSender struct {
	name   string
	titles []string
	err    error
}

func (f *fakeSender) Send(_ context.Context, title, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.titles = append(f.titles, title)
	return nil
}

func (f *fakeSender) Name() string { return f.name }

func TestNotifierFiltersEvents(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{s}, []string{"withdraw"}, slog.Default())

	require.NoError(t, n.Notify(context.Background(), "stake", "Stake", "ignored"))
	assert.Empty(t, s.titles)

	require.NoError(t, n.Notify(context.Background(), "withdraw", "Withdraw", "sent"))
	assert.Equal(t, []string{"Withdraw"}, s.titles)
}

func TestNotifierEmptyEventListAllowsAll(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{s}, nil, slog.Default())

	require.NoError(t, n.Notify(context.Background(), "anything", "Title", "body"))
	assert.Len(t, s.titles, 1)
}

func TestNotifierCollectsSenderErrors(t *testing.T) {
	good := &fakeSender{name: "good"}
	bad := &fakeSender{name: "bad", err: errors.New("boom")}
	n := NewNotifier([]Sender{bad, good}, nil, slog.Default())

	err := n.NotifyAll(context.Background(), "Title", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	// The failing sender did not block the healthy one.
	assert.Len(t, good.titles, 1)
}

func TestRenderWithdraw(t *testing.T) {
	title, message := render("withdraw", map[string]any{
		"account": "0xabc", "payout": "90", "fee": "10", "rewards": "20",
	})
	assert.Equal(t, "Position withdrawn", title)
	assert.Contains(t, message, "0xabc")
	assert.Contains(t, message, "fee 10")
}
