package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner_RoundTrip(t *testing.T) {
	signer := NewSigner("shared-secret", "release-queue")
	body := []byte(`{"type":"queue_entered"}`)

	token, err := signer.Sign(Event{ID: "evt-1", Type: EventQueueEntered}, body)
	require.NoError(t, err)

	claims, err := signer.Verify(token, body)
	require.NoError(t, err)
	assert.Equal(t, "evt-1", claims.EventID)
	assert.Equal(t, EventQueueEntered, claims.EventType)
	assert.Equal(t, "release-queue", claims.Issuer)
}

func TestSigner_RejectsTamperedBody(t *testing.T) {
	signer := NewSigner("shared-secret", "release-queue")
	token, err := signer.Sign(Event{ID: "evt-1", Type: EventQueueExited}, []byte(`{"a":1}`))
	require.NoError(t, err)

	_, err = signer.Verify(token, []byte(`{"a":2}`))
	assert.Error(t, err)
}

func TestSigner_RejectsOtherSecret(t *testing.T) {
	token, err := NewSigner("one", "release-queue").Sign(Event{ID: "evt-1"}, nil)
	require.NoError(t, err)

	_, err = NewSigner("two", "release-queue").Verify(token, nil)
	assert.Error(t, err)
}
