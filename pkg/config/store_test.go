package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func newStore(t *testing.T, content string) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, content)
	return NewStore(path), path
}

func TestCurrentBeforeLoad(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "config.json"))
	_, err := s.Current()
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestLoad(t *testing.T) {
	s, _ := newStore(t, `{"token": "abc", "prefix": "!"}`)

	cfg, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, Config{Token: "abc", Prefix: "!"}, cfg)

	cur, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, cfg, cur)
}

func TestLoadAcceptsByteOrderMark(t *testing.T) {
	s, _ := newStore(t, "\xef\xbb\xbf"+`{"token": "abc", "prefix": "!"}`)
	_, err := s.Load()
	require.NoError(t, err)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "token: abc\nprefix: \"?\"\naudit_db: audit.db\n")

	cfg, err := NewStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, Config{Token: "abc", Prefix: "?", AuditDB: "audit.db"}, cfg)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content *string
		reason  Reason
	}{
		{name: "missing file", reason: ReasonUnreadable},
		{name: "malformed", content: ptr(`{"token": `), reason: ReasonMalformed},
		{name: "missing prefix", content: ptr(`{"token": "abc"}`), reason: ReasonMissingField},
		{name: "empty token", content: ptr(`{"token": "", "prefix": "!"}`), reason: ReasonMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			if tt.content != nil {
				writeFile(t, path, *tt.content)
			}
			s := NewStore(path)

			_, err := s.Load()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrLoad)

			var le *LoadError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, tt.reason, le.Reason)

			_, err = s.Current()
			assert.ErrorIs(t, err, ErrNotInitialized)
		})
	}
}

func TestMissingFieldNamesJSONKey(t *testing.T) {
	s, _ := newStore(t, `{"token": "abc"}`)
	_, err := s.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prefix")
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("PREREQBOT_TOKEN", "from-env")
	s, _ := newStore(t, `{"token": "from-file", "prefix": "!"}`)

	cfg, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Token)
	assert.Equal(t, "!", cfg.Prefix)
}

func TestReloadReplacesValue(t *testing.T) {
	s, path := newStore(t, `{"token": "abc", "prefix": "!"}`)
	_, err := s.Load()
	require.NoError(t, err)

	writeFile(t, path, `{"token": "abc", "prefix": "?"}`)
	cfg, err := s.Reload()
	require.NoError(t, err)
	assert.Equal(t, "?", cfg.Prefix)

	cur, _ := s.Current()
	assert.Equal(t, "?", cur.Prefix)
}

func TestFailedReloadKeepsPreviousValue(t *testing.T) {
	s, path := newStore(t, `{"token": "abc", "prefix": "!"}`)
	before, err := s.Load()
	require.NoError(t, err)

	for _, broken := range []string{`not json`, `{"token": "abc"}`} {
		writeFile(t, path, broken)
		_, err := s.Reload()
		require.ErrorIs(t, err, ErrLoad)

		cur, err := s.Current()
		require.NoError(t, err)
		assert.Equal(t, before, cur)
	}

	require.NoError(t, os.Remove(path))
	_, err = s.Reload()
	require.ErrorIs(t, err, ErrLoad)
	cur, _ := s.Current()
	assert.Equal(t, before, cur)
}

func TestConcurrentReloadsNeverTear(t *testing.T) {
	s, path := newStore(t, `{"token": "token-0", "prefix": "prefix-0"}`)
	_, err := s.Load()
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		stop = make(chan struct{})
	)
	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				cfg, err := s.Current()
				if err != nil {
					t.Errorf("Current: %v", err)
					return
				}
				var n, m int
				fmt.Sscanf(cfg.Token, "token-%d", &n)
				fmt.Sscanf(cfg.Prefix, "prefix-%d", &m)
				if n != m {
					t.Errorf("torn configuration: %+v", cfg)
					return
				}
			}
		}()
	}

	for i := 1; i <= 50; i++ {
		// Rewrite through a temp file so the reloader never sees a half-written file.
		tmp := path + ".tmp"
		writeFile(t, tmp, fmt.Sprintf(`{"token": "token-%d", "prefix": "prefix-%d"}`, i, i))
		require.NoError(t, os.Rename(tmp, path))
		_, err := s.Reload()
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()
}

func TestWatchReloadsOnWrite(t *testing.T) {
	s, path := newStore(t, `{"token": "abc", "prefix": "!"}`)
	s.debounce = 10 * time.Millisecond
	_, err := s.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()

	// Give the watcher time to register before writing.
	time.Sleep(50 * time.Millisecond)
	writeFile(t, path, `{"token": "abc", "prefix": "$"}`)

	require.Eventually(t, func() bool {
		cfg, _ := s.Current()
		return cfg.Prefix == "$"
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func ptr(s string) *string { return &s }
