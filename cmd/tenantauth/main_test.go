package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{
		{"serve"},
		{"migrate"},
		{"tenant", "create"},
		{"tenant", "key", "rotate"},
		{"tenant", "key", "revoke"},
		{"provider", "set"},
		{"provider", "toggle"},
		{"login"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestAdminCommandsRejectMemoryStore(t *testing.T) {
	t.Setenv("TENANTAUTH_JWT_SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("TENANTAUTH_SECURITY_SECRETBOX_MASTER_KEY", "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY=")
	t.Setenv("TENANTAUTH_STORAGE_DRIVER", "memory")

	root := newRootCmd()
	root.SetArgs([]string{"tenant", "create", "--slug", "acme", "--env-file", t.TempDir() + "/none.env"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persistent store")
}
