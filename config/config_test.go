package config

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", p, err)
	}
	return p
}

func TestRead_TOML(t *testing.T) {
	p := writeFile(t, "config.toml", `
limit_per_feed = 5
link_mode = "qr-code"
fetch_timeout = "5s"

[newspapers.tech]
name = "Tech"
rss = ["https://a.example/rss", "https://b.example/rss"]
filters = ["ads"]

[filters.ads]
exclude_patterns = ["(?i)sponsored"]

[output]
directory = "/tmp/briefs"
`)

	conf, err := Read(p)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if conf.LimitPerFeed != 5 {
		t.Errorf("expected limit 5, got %d", conf.LimitPerFeed)
	}
	if conf.LinkMode != LinkQRCode {
		t.Errorf("expected qr-code link mode, got %s", conf.LinkMode)
	}
	if conf.FetchTimeout.Std() != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", conf.FetchTimeout.Std())
	}
	if conf.Workers != DefaultWorkers {
		t.Errorf("expected default workers, got %d", conf.Workers)
	}

	want := NewspaperConfig{
		Name:        "Tech",
		Feeds:       []string{"https://a.example/rss", "https://b.example/rss"},
		FilterNames: []string{"ads"},
	}
	if diff := cmp.Diff(want, conf.Newspapers["tech"]); diff != "" {
		t.Errorf("newspaper mismatch (-want +got):\n%s", diff)
	}
	if err := conf.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestRead_YAML(t *testing.T) {
	p := writeFile(t, "config.yaml", `
newspapers:
  world:
    name: World
    rss:
      - https://w.example/rss
limit_per_feed: 3
fetch_timeout: 1m
dropbox:
  access_token: token
`)

	conf, err := Read(p)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if conf.Newspapers["world"].Name != "World" {
		t.Errorf("unexpected newspapers: %+v", conf.Newspapers)
	}
	if conf.FetchTimeout.Std() != time.Minute {
		t.Errorf("expected 1m timeout, got %v", conf.FetchTimeout.Std())
	}
	if conf.LinkMode != LinkText {
		t.Errorf("expected default text link mode, got %s", conf.LinkMode)
	}
	if !conf.HasSink() {
		t.Error("expected dropbox sink to be configured")
	}
}

func TestRead_Errors(t *testing.T) {
	if _, err := Read(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}

	p := writeFile(t, "broken.toml", "newspapers = [")
	if _, err := Read(p); err == nil {
		t.Error("expected decode error")
	}
}

func TestWriteAndRead(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "config.toml")
	conf := Default()
	conf.Newspapers["tech"] = NewspaperConfig{Name: "Tech", Feeds: []string{"https://a.example/rss"}}

	if err := Write(p, conf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got, err := Read(p)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if diff := cmp.Diff(conf.Newspapers, got.Newspapers); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		c := Default()
		c.Output.Directory = "/tmp"
		c.Newspapers["tech"] = NewspaperConfig{Name: "Tech", Feeds: []string{"https://a.example/rss"}}
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
		ok      bool
	}{
		{name: "valid", mutate: func(*Config) {}, ok: true},
		{name: "no sink", mutate: func(c *Config) { c.Output.Directory = "" }, wantErr: ErrNoSink},
		{name: "telegram only", mutate: func(c *Config) {
			c.Output.Directory = ""
			c.Telegram = TelegramConfig{AppID: 1, AppHash: "hash"}
		}, ok: true},
		{name: "no newspapers", mutate: func(c *Config) { c.Newspapers = nil }, wantErr: ErrNoNewspapers},
		{name: "no name", mutate: func(c *Config) {
			c.Newspapers["tech"] = NewspaperConfig{Feeds: []string{"https://a.example/rss"}}
		}},
		{name: "no feeds", mutate: func(c *Config) {
			c.Newspapers["tech"] = NewspaperConfig{Name: "Tech"}
		}},
		{name: "unknown filter", mutate: func(c *Config) {
			c.Newspapers["tech"] = NewspaperConfig{Name: "Tech", Feeds: []string{"x"}, FilterNames: []string{"nope"}}
		}},
		{name: "bad link mode", mutate: func(c *Config) { c.LinkMode = "morse" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.ok {
				if err != nil {
					t.Errorf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	c := Default()
	c.LimitPerFeed = 120
	c.Workers = 0
	c.LinkMode = ""
	c.Normalize(discard)

	if c.LimitPerFeed != MaxLimitPerFeed {
		t.Errorf("expected limit clamped to %d, got %d", MaxLimitPerFeed, c.LimitPerFeed)
	}
	if c.Workers != DefaultWorkers {
		t.Errorf("expected default workers, got %d", c.Workers)
	}
	if c.LinkMode != LinkText {
		t.Errorf("expected text link mode, got %q", c.LinkMode)
	}

	c.LimitPerFeed = 0
	c.Normalize(discard)
	if c.LimitPerFeed != 0 {
		t.Errorf("zero limit must be kept, got %d", c.LimitPerFeed)
	}
}

func TestApplyEnv(t *testing.T) {
	env := func(vars map[string]string) EnvVarProvider {
		return EnvVarProvider{LookupEnv: func(k string) (string, bool) {
			v, ok := vars[k]
			return v, ok
		}}
	}

	tests := []struct {
		name      string
		vars      map[string]string
		wantLimit int
		wantMode  LinkMode
		wantDir   string
		wantToken string
	}{
		{
			name:      "nothing set",
			vars:      map[string]string{},
			wantLimit: 7,
			wantMode:  LinkText,
		},
		{
			name: "all set",
			vars: map[string]string{
				EnvOutput:       "/out",
				EnvDropboxToken: "tok",
				EnvLimitPerFeed: "25",
				EnvURL2QR:       "True",
			},
			wantLimit: 25,
			wantMode:  LinkQRCode,
			wantDir:   "/out",
			wantToken: "tok",
		},
		{
			name:      "non integer limit",
			vars:      map[string]string{EnvLimitPerFeed: "lots"},
			wantLimit: DefaultLimitPerFeed,
			wantMode:  LinkText,
		},
		{
			name:      "yes spelling",
			vars:      map[string]string{EnvURL2QR: "yes"},
			wantLimit: 7,
			wantMode:  LinkQRCode,
		},
		{
			name:      "invalid bool keeps mode",
			vars:      map[string]string{EnvURL2QR: "maybe"},
			wantLimit: 7,
			wantMode:  LinkText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			c.LimitPerFeed = 7
			c.ApplyEnv(env(tt.vars), discard)

			if c.LimitPerFeed != tt.wantLimit {
				t.Errorf("limit = %d, want %d", c.LimitPerFeed, tt.wantLimit)
			}
			if c.LinkMode != tt.wantMode {
				t.Errorf("link mode = %s, want %s", c.LinkMode, tt.wantMode)
			}
			if c.Output.Directory != tt.wantDir {
				t.Errorf("output dir = %q, want %q", c.Output.Directory, tt.wantDir)
			}
			if c.Dropbox.AccessToken != tt.wantToken {
				t.Errorf("dropbox token = %q, want %q", c.Dropbox.AccessToken, tt.wantToken)
			}
		})
	}
}

func TestOrderedNewspapers(t *testing.T) {
	c := Default()
	c.Newspapers["b"] = NewspaperConfig{Name: "B"}
	c.Newspapers["a"] = NewspaperConfig{Name: "A"}
	c.Newspapers["c"] = NewspaperConfig{Name: "C"}
	c.Newspapers["d"] = NewspaperConfig{Name: "D"}

	tests := []struct {
		name  string
		order []string
		want  []string
	}{
		{name: "built in code", want: []string{"A", "B", "C", "D"}},
		{name: "file order", order: []string{"c", "a", "d", "b"}, want: []string{"C", "A", "D", "B"}},
		{name: "partial order", order: []string{"d", "missing", "d"}, want: []string{"D", "A", "B", "C"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.NewspaperOrder = tt.order

			var names []string
			for _, p := range c.OrderedNewspapers() {
				names = append(names, p.Name)
			}
			if diff := cmp.Diff(tt.want, names); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRead_KeepsNewspaperOrder(t *testing.T) {
	tests := []struct {
		file    string
		content string
	}{
		{
			file: "config.toml",
			content: `
[newspapers.world]
name = "World"
rss = ["https://w.example/rss"]

[newspapers.business]
name = "Business"
rss = ["https://b.example/rss"]

[newspapers.arts]
name = "Arts"
rss = ["https://a.example/rss"]
`,
		},
		{
			file: "config.yaml",
			content: `
newspapers:
  world:
    name: World
    rss: [https://w.example/rss]
  business:
    name: Business
    rss: [https://b.example/rss]
  arts:
    name: Arts
    rss: [https://a.example/rss]
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			conf, err := Read(writeFile(t, tt.file, tt.content))
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}

			var names []string
			for _, p := range conf.OrderedNewspapers() {
				names = append(names, p.Name)
			}
			if diff := cmp.Diff([]string{"World", "Business", "Arts"}, names); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
