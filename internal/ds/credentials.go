package ds

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// credentialFieldLen is the fixed width of both the username and
// password fields packed into each user_credentials/<file> (spec.md
// section 4.4: "content = <14-char username><14-char password>
// concatenated").
const credentialFieldLen = 14

// CredentialStore holds the HTTP Basic auth credentials for every
// registered user, loaded once at startup.
type CredentialStore struct {
	mu    sync.RWMutex
	users map[string]string // username -> password
}

// LoadCredentialStore reads every file directly under dir and
// parses its fixed-width username/password pair.
func LoadCredentialStore(dir string) (*CredentialStore, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ds: read credentials dir: %w", err)
	}

	users := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("ds: read credential file %s: %w", entry.Name(), err)
		}
		content := strings.TrimRight(string(data), "\r\n")
		if len(content) != 2*credentialFieldLen {
			return nil, fmt.Errorf("ds: credential file %s: want %d bytes, got %d", entry.Name(), 2*credentialFieldLen, len(content))
		}
		username := content[:credentialFieldLen]
		password := content[credentialFieldLen:]
		users[username] = password
	}

	return &CredentialStore{users: users}, nil
}

// Verify reports whether username/password is a valid pair.
func (s *CredentialStore) Verify(username, password string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want, ok := s.users[username]
	return ok && want == password
}

// Exists reports whether username is a registered user.
func (s *CredentialStore) Exists(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[username]
	return ok
}
