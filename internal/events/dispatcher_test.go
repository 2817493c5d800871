package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var received []Event
	d.Subscribe(EventIssueSubmitted, func(_ context.Context, event Event) error {
		received = append(received, event)
		return nil
	})
	d.Subscribe(EventIssueUpvoted, func(_ context.Context, _ Event) error {
		t.Fatal("handler for a different event type must not fire")
		return nil
	})

	err := d.Publish(context.Background(), Event{
		ID:      "evt-1",
		Type:    EventIssueSubmitted,
		IssueID: "issue-1",
	})
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "issue-1", received[0].IssueID)
}

func TestDispatcherHandlerErrorsDoNotStopDelivery(t *testing.T) {
	d := NewInMemoryDispatcher()

	calls := 0
	d.Subscribe(EventPaymentRecorded, func(_ context.Context, _ Event) error {
		calls++
		return errors.New("notification backend down")
	})
	d.Subscribe(EventPaymentRecorded, func(_ context.Context, _ Event) error {
		calls++
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventPaymentRecorded})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDispatcherNoSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventIssueRejected}))
}
