package awsconfig_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/awsconfig"
)

func TestLoad_StaticCredentials(t *testing.T) {
	t.Parallel()

	cfg, err := awsconfig.Load(context.Background(), awsconfig.Config{
		Region:      "eu-west-1",
		AccessKeyID: "AKIDEXAMPLE",
		SecretKey:   "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Region)

	creds, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIDEXAMPLE", creds.AccessKeyID)
	assert.Equal(t, "secret", creds.SecretAccessKey)
}
