package downstream

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeClientsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clients.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRegistryLoad(t *testing.T) {
	path := writeClientsFile(t, `clients:
  - id: app-one
    name: App One
    redirectUris:
      - https://one.example.com/cb
  - id: app-two
    redirectUris:
      - https://two.example.com/cb
      - https://two.example.com/alt
`)

	registry, err := NewRegistry(path)
	require.NoError(t, err)

	client, ok := registry.Get("app-one")
	require.True(t, ok)
	assert.Equal(t, "App One", client.Name)
	assert.Len(t, registry.List(), 2)

	_, ok = registry.Get("missing")
	assert.False(t, ok)
}

func TestRegistryMissingFileStartsEmpty(t *testing.T) {
	registry, err := NewRegistry(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, registry.List())
}

func TestRegistryMalformedFile(t *testing.T) {
	path := writeClientsFile(t, "clients: [not: valid: yaml")
	_, err := NewRegistry(path)
	assert.Error(t, err)
}

func TestValidateRedirectURI(t *testing.T) {
	path := writeClientsFile(t, `clients:
  - id: single
    redirectUris:
      - https://single.example.com/cb
  - id: multi
    redirectUris:
      - https://multi.example.com/a
      - https://multi.example.com/b
`)
	registry, err := NewRegistry(path)
	require.NoError(t, err)

	uri, err := registry.ValidateRedirectURI("single", "https://single.example.com/cb")
	require.NoError(t, err)
	assert.Equal(t, "https://single.example.com/cb", uri)

	// An omitted redirect resolves to the sole registration.
	uri, err = registry.ValidateRedirectURI("single", "")
	require.NoError(t, err)
	assert.Equal(t, "https://single.example.com/cb", uri)

	// But is ambiguous with multiple registrations.
	_, err = registry.ValidateRedirectURI("multi", "")
	assert.Error(t, err)

	_, err = registry.ValidateRedirectURI("single", "https://evil.example.com/cb")
	assert.Error(t, err)

	_, err = registry.ValidateRedirectURI("ghost", "https://single.example.com/cb")
	assert.Error(t, err)
}

func TestRegistryWatchReloadsOnChange(t *testing.T) {
	path := writeClientsFile(t, `clients:
  - id: first
    redirectUris: ["https://first.example.com/cb"]
`)
	registry, err := NewRegistry(path)
	require.NoError(t, err)
	require.NoError(t, registry.Watch())
	defer registry.Stop()

	require.NoError(t, os.WriteFile(path, []byte(`clients:
  - id: second
    redirectUris: ["https://second.example.com/cb"]
`), 0o644))

	require.Eventually(t, func() bool {
		_, ok := registry.Get("second")
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRegistryStopIsIdempotent(t *testing.T) {
	path := writeClientsFile(t, `clients:
  - id: app
    redirectUris: ["https://app.example.com/cb"]
`)
	registry, err := NewRegistry(path)
	require.NoError(t, err)
	require.NoError(t, registry.Watch())

	registry.Stop()
	registry.Stop()
}

func TestRegistryStopConcurrentWithWatcher(t *testing.T) {
	path := writeClientsFile(t, `clients:
  - id: app
    redirectUris: ["https://app.example.com/cb"]
`)
	registry, err := NewRegistry(path)
	require.NoError(t, err)
	require.NoError(t, registry.Watch())

	// Generate events while two goroutines race to stop the watcher.
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				os.WriteFile(path, []byte("clients: []\n"), 0o644)
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			registry.Stop()
		}()
	}
	wg.Wait()
	close(done)
}

func TestRegistryReloadReplacesClients(t *testing.T) {
	path := writeClientsFile(t, `clients:
  - id: first
    redirectUris: ["https://first.example.com/cb"]
`)
	registry, err := NewRegistry(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`clients:
  - id: second
    redirectUris: ["https://second.example.com/cb"]
`), 0o644))
	require.NoError(t, registry.reload())

	_, ok := registry.Get("first")
	assert.False(t, ok)
	_, ok = registry.Get("second")
	assert.True(t, ok)
}
