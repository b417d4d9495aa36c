package invoke

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/fanout"
)

func TestDecodeReply(t *testing.T) {
	t.Parallel()

	reply, err := decodeReply([]byte(`{"status":"FAILED","sent":0,"failed":2,"total_recipients":2,"message":"Failed to send notification to any recipients"}`))
	require.NoError(t, err)
	assert.Equal(t, Reply{Status: fanout.StatusFailed, Failed: 2, TotalRecipients: 2, Message: "Failed to send notification to any recipients"}, reply)

	_, err = decodeReply([]byte(`{"error":"Unknown action: purge"}`))
	require.ErrorIs(t, err, ErrRemote)
	assert.Contains(t, err.Error(), "Unknown action: purge")

	_, err = decodeReply([]byte(`<html>`))
	assert.ErrorIs(t, err, ErrRequestFailed)
}
