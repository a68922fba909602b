package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/taskrelay/pkg/cli/config"
	"github.com/secmon-lab/taskrelay/pkg/service/dispatch"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	gt.NoError(t, os.WriteFile(path, []byte(content), 0600)).Required()
	return path
}

func TestLoadChannelFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name: "valid bindings",
			content: `
[channels]
NOTION = "https://hooks.example.com/notion"
SLACK = "http://localhost:8080/slack"
`,
		},
		{
			name:    "empty file",
			content: ``,
		},
		{
			name: "local channel cannot be bound",
			content: `
[channels]
TERMINAL = "https://hooks.example.com/terminal"
`,
			wantErr: config.ErrInvalidConfig,
		},
		{
			name: "non-http scheme",
			content: `
[channels]
NOTION = "ftp://hooks.example.com/notion"
`,
			wantErr: config.ErrInvalidConfig,
		},
		{
			name: "missing host",
			content: `
[channels]
NOTION = "https:///notion"
`,
			wantErr: config.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "channels.toml", tt.content)
			file, err := config.LoadChannelFile(path)
			if tt.wantErr != nil {
				gt.Error(t, err).Is(tt.wantErr)
				return
			}
			gt.NoError(t, err).Required()
			gt.Value(t, file).NotNil()
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := config.LoadChannelFile(filepath.Join(t.TempDir(), "nope.toml"))
		gt.Error(t, err).Is(config.ErrConfigNotFound)
	})

	t.Run("broken TOML", func(t *testing.T) {
		path := writeFile(t, "channels.toml", "[channels\nNOTION=")
		_, err := config.LoadChannelFile(path)
		gt.Value(t, err).NotNil()
	})
}

func TestChannel_Configure(t *testing.T) {
	t.Run("file bindings win over environment", func(t *testing.T) {
		path := writeFile(t, "channels.toml", `
[channels]
NOTION = "https://file.example.com/notion"
`)
		t.Setenv("HOOK_NOTION", "https://env.example.com/notion")
		t.Setenv("HOOK_SLACK", "https://env.example.com/slack")

		resolver, err := config.NewChannelForTest(path, nil, "HOOK_").Configure()
		gt.NoError(t, err).Required()

		url, ok := resolver.Resolve("NOTION")
		gt.Bool(t, ok).True()
		gt.Value(t, url).Equal("https://file.example.com/notion")

		url, ok = resolver.Resolve("SLACK")
		gt.Bool(t, ok).True()
		gt.Value(t, url).Equal("https://env.example.com/slack")

		_, ok = resolver.Resolve("GITHUB")
		gt.Bool(t, ok).False()
	})

	t.Run("loads dotenv files", func(t *testing.T) {
		name := "TASKRELAY_TEST_" + time.Now().Format("150405000") + "_JIRA"
		path := writeFile(t, ".env", name+"=https://dotenv.example.com/jira\n")
		t.Cleanup(func() { _ = os.Unsetenv(name) })

		resolver, err := config.NewChannelForTest("", []string{path}, "").Configure()
		gt.NoError(t, err).Required()

		url, ok := resolver.Resolve(name)
		gt.Bool(t, ok).True()
		gt.Value(t, url).Equal("https://dotenv.example.com/jira")
	})

	t.Run("missing dotenv file fails", func(t *testing.T) {
		_, err := config.NewChannelForTest("", []string{filepath.Join(t.TempDir(), "none.env")}, "").Configure()
		gt.Value(t, err).NotNil()
	})

	t.Run("invalid channel file fails", func(t *testing.T) {
		path := writeFile(t, "channels.toml", `
[channels]
FILES = "https://hooks.example.com/files"
`)
		_, err := config.NewChannelForTest(path, nil, "").Configure()
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}

func TestDispatch_Configure(t *testing.T) {
	cfg := config.NewDispatchForTest(5*time.Second, 10*time.Second, "vi", true)
	router := cfg.Configure(dispatch.MapResolver{})
	gt.Value(t, router).NotNil()
	gt.Bool(t, cfg.AutoComplete()).True()
	gt.Value(t, len(cfg.Flags())).Equal(4)
}

func TestRepository_Configure(t *testing.T) {
	t.Run("memory backend", func(t *testing.T) {
		repo, err := config.NewRepositoryForTest("memory", "").Configure(t.Context())
		gt.NoError(t, err).Required()
		gt.Value(t, repo).NotNil()
		gt.NoError(t, repo.Close())
	})

	t.Run("firestore requires project ID", func(t *testing.T) {
		_, err := config.NewRepositoryForTest("firestore", "").Configure(t.Context())
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := config.NewRepositoryForTest("postgres", "").Configure(t.Context())
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}

func TestRepository_Persistent(t *testing.T) {
	gt.Bool(t, config.NewRepositoryForTest("firestore", "p").Persistent()).True()
	gt.Bool(t, config.NewRepositoryForTest("memory", "").Persistent()).False()
	gt.Bool(t, config.NewRepositoryForTest("", "").Persistent()).False()
}

func TestLogger_Configure(t *testing.T) {
	t.Run("json to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		closer, err := config.NewLoggerForTest("debug", "json", path).Configure()
		gt.NoError(t, err).Required()
		closer()

		_, err = os.Stat(path)
		gt.NoError(t, err)
	})

	t.Run("console to stderr", func(t *testing.T) {
		closer, err := config.NewLoggerForTest("info", "console", "stderr").Configure()
		gt.NoError(t, err).Required()
		closer()
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := config.NewLoggerForTest("verbose", "json", "stderr").Configure()
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := config.NewLoggerForTest("info", "xml", "stderr").Configure()
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}

func TestSentry_Configure(t *testing.T) {
	closer, err := config.NewSentryForTest("").Configure()
	gt.NoError(t, err).Required()
	gt.Value(t, closer).NotNil()
	closer()

	_, err = config.NewSentryForTest("not a dsn").Configure()
	gt.Value(t, err).NotNil()
	gt.Bool(t, errors.Is(err, config.ErrInvalidConfig)).False()
}
