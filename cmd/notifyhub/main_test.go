package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/fanout"
)

func TestAppConfig_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, appConfig{PushMode: PushModeGateway}.Validate())
	assert.NoError(t, appConfig{PushMode: PushModeAPIGateway}.Validate())
	assert.ErrorIs(t, appConfig{PushMode: "sns"}.Validate(), errUnknownPushMode)
}

func TestSendCmd_Request(t *testing.T) {
	t.Parallel()

	t.Run("from flags", func(t *testing.T) {
		t.Parallel()
		cmd := &sendCmd{
			req: fanout.Request{
				Type:          "SYSTEM_ALERTS",
				RequiredRoles: []string{"ADMIN"},
				Priority:      fanout.PriorityCritical,
			},
			data: `{"host":"db-1"}`,
		}

		req, err := cmd.request()
		require.NoError(t, err)
		assert.Equal(t, "SYSTEM_ALERTS", req.Type)
		assert.Equal(t, []string{"ADMIN"}, req.RequiredRoles)
		assert.Equal(t, map[string]any{"host": "db-1"}, req.Data)
	})

	t.Run("from file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "req.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"type":"PROCESS_COMPLETE","targetUsers":["u1"]}`), 0o600))

		req, err := (&sendCmd{file: path, req: fanout.Request{Type: "IGNORED"}}).request()
		require.NoError(t, err)
		assert.Equal(t, "PROCESS_COMPLETE", req.Type)
		assert.Equal(t, []string{"u1"}, req.TargetUsers)
	})

	t.Run("type is required", func(t *testing.T) {
		t.Parallel()
		_, err := (&sendCmd{}).request()
		assert.ErrorIs(t, err, errTypeRequired)
	})

	t.Run("bad data", func(t *testing.T) {
		t.Parallel()
		_, err := (&sendCmd{req: fanout.Request{Type: "X"}, data: `[1,2`}).request()
		assert.Error(t, err)
	})
}
