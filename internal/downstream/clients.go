package downstream

import (
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"authrelay/pkg/logging"
)

// Client is a registered downstream OAuth client.
type Client struct {
	ID           string   `yaml:"id" json:"id"`
	Name         string   `yaml:"name,omitempty" json:"name,omitempty"`
	RedirectURIs []string `yaml:"redirectUris" json:"redirectUris"`
}

// clientsFile is the on-disk shape of clients.yaml.
type clientsFile struct {
	Clients []Client `yaml:"clients"`
}

// Registry holds the downstream client registrations. It is reloaded from
// disk when the backing file changes, so registrations can be edited without
// restarting the relay.
type Registry struct {
	mu      sync.RWMutex
	path    string
	clients map[string]Client

	fsWatcher *fsnotify.Watcher
	stopCh    chan struct{}
}

// NewRegistry loads the client registrations from path. A missing file
// yields an empty registry rather than an error, matching config loading.
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{
		path:    path,
		clients: make(map[string]Client),
	}
	if err := r.reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Get returns the client registered under id.
func (r *Registry) Get(id string) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	return c, ok
}

// List returns all registered clients.
func (r *Registry) List() []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

// ValidateRedirectURI checks that uri is registered for the client. An empty
// uri selects the client's sole registered redirect, mirroring RFC 6749 §3.1.2.3.
func (r *Registry) ValidateRedirectURI(clientID, uri string) (string, error) {
	client, ok := r.Get(clientID)
	if !ok {
		return "", fmt.Errorf("%s: unknown client %q", ErrorCodeInvalidClient, clientID)
	}
	if uri == "" {
		if len(client.RedirectURIs) != 1 {
			return "", fmt.Errorf("%s: redirect_uri is required", ErrorCodeInvalidRequest)
		}
		return client.RedirectURIs[0], nil
	}
	for _, registered := range client.RedirectURIs {
		if registered == uri {
			return uri, nil
		}
	}
	return "", fmt.Errorf("%s: redirect_uri %q is not registered for client %q",
		ErrorCodeInvalidRequest, uri, clientID)
}

// reload replaces the in-memory registrations with the file contents.
func (r *Registry) reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Info("ClientRegistry", "No clients file at %s, starting empty", r.path)
			return nil
		}
		return fmt.Errorf("failed to read clients file %s: %w", r.path, err)
	}

	var file clientsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse clients file %s: %w", r.path, err)
	}

	clients := make(map[string]Client, len(file.Clients))
	for _, c := range file.Clients {
		if c.ID == "" {
			logging.Warn("ClientRegistry", "Skipping client with empty id in %s", r.path)
			continue
		}
		clients[c.ID] = c
	}

	r.mu.Lock()
	r.clients = clients
	r.mu.Unlock()

	logging.Info("ClientRegistry", "Loaded %d client registrations from %s", len(clients), r.path)
	return nil
}

// Watch starts watching the clients file for changes. Reload failures keep
// the previous registrations.
func (r *Registry) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(r.path); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", r.path, err)
	}

	stopCh := make(chan struct{})

	r.mu.Lock()
	r.fsWatcher = watcher
	r.stopCh = stopCh
	r.mu.Unlock()

	// The goroutine closes over locals only; Stop clears the struct fields
	// concurrently.
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					if err := r.reload(); err != nil {
						logging.Warn("ClientRegistry", "Reload after change failed, keeping previous registrations: %v", err)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Warn("ClientRegistry", "Watcher error: %v", err)
			case <-stopCh:
				return
			}
		}
	}()

	return nil
}

// Stop stops the file watcher if one is running. Safe to call repeatedly.
func (r *Registry) Stop() {
	r.mu.Lock()
	watcher := r.fsWatcher
	stopCh := r.stopCh
	r.fsWatcher = nil
	r.stopCh = nil
	r.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
	}
	if watcher != nil {
		watcher.Close()
	}
}
