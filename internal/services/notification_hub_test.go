package services

import (
	"testing"
	"time"

	"rentbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationHubDeliversPerUser(t *testing.T) {
	hub := NewNotificationHub()
	chA, cancelA := hub.Subscribe(1)
	chB, cancelB := hub.Subscribe(2)
	defer cancelB()

	hub.Publish(&models.Notification{ID: 10, UserID: 1, Title: "for a"})

	select {
	case n := <-chA:
		assert.Equal(t, uint(10), n.ID)
	case <-time.After(time.Second):
		t.Fatal("notification not delivered")
	}
	select {
	case n := <-chB:
		t.Fatalf("unexpected delivery %v", n)
	default:
	}

	cancelA()
	_, ok := <-chA
	assert.False(t, ok)
	assert.Zero(t, hub.Subscribers(1))
	cancelA()
}

func TestNotificationHubDropsWhenFull(t *testing.T) {
	hub := NewNotificationHub()
	ch, cancel := hub.Subscribe(7)
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		hub.Publish(&models.Notification{UserID: 7})
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestNotificationHubClose(t *testing.T) {
	hub := NewNotificationHub()
	ch, cancel := hub.Subscribe(3)
	hub.Close()

	_, ok := <-ch
	require.False(t, ok)
	cancel()
}
