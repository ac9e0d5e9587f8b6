package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stagegate/stagegate/pkg/check"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, check.Validate(DefaultConfig()))
}

func TestValidateRejectsBadStoreKind(t *testing.T) {
	c := DefaultConfig()
	c.Exchange.Store = "ftp"
	err := check.Validate(c)
	require.Error(t, err)
	require.Contains(t, err.Error(), "exchange store")
}

func TestValidateLocalStoreNeedsRoot(t *testing.T) {
	c := DefaultConfig()
	c.Exchange.Store = StoreLocal
	err := check.Validate(c)
	require.Error(t, err)
	require.Contains(t, err.Error(), "root directory")

	c.Exchange.LocalRoot = "/tmp/exchange"
	require.NoError(t, check.Validate(c))
}

func TestValidateWorkspaceNeedsURL(t *testing.T) {
	c := DefaultConfig()
	c.Workspaces["dev"] = WorkspaceConfig{APIKey: "k"}
	err := check.Validate(c)
	require.Error(t, err)
	require.Contains(t, err.Error(), "workspace url")
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	c := DefaultConfig()
	c.Log.Level = "loud"
	require.Error(t, check.Validate(c))
}

func TestWorkspaceLookup(t *testing.T) {
	c := DefaultConfig()
	c.Workspaces["dev"] = WorkspaceConfig{URL: "http://dev.local"}

	ws, err := c.Workspace("dev")
	require.NoError(t, err)
	require.Equal(t, "http://dev.local", ws.URL)

	_, err = c.Workspace("prod")
	require.Error(t, err)
}

func TestPrintableRedactsAPIKeys(t *testing.T) {
	c := DefaultConfig()
	c.Workspaces["dev"] = WorkspaceConfig{URL: "http://dev.local", APIKey: "secret-key"}

	out, err := c.Printable()
	require.NoError(t, err)
	require.NotContains(t, string(out), "secret-key")
	require.Contains(t, string(out), "********")

	// The original config must keep its secret.
	require.Equal(t, "secret-key", c.Workspaces["dev"].APIKey)
}
