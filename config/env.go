package config

import (
	"log/slog"
	"strconv"
	"strings"
)

const (
	EnvOutput       = "BRIEF_OUTPUT"
	EnvDropboxToken = "DROPBOX_ACCESS_TOKEN"
	EnvLimitPerFeed = "LIMIT_PER_RSS"
	EnvURL2QR       = "URL2QR"
)

// EnvVarProvider looks up environment variables; os.LookupEnv in production
type EnvVarProvider struct {
	LookupEnv func(string) (string, bool)
}

// ApplyEnv overrides file settings with the environment. Invalid values are
// logged and replaced with defaults rather than failing the run.
func (c *Config) ApplyEnv(env EnvVarProvider, logger *slog.Logger) {
	if v, ok := lookup(env, EnvOutput); ok {
		c.Output.Directory = v
	}
	if v, ok := lookup(env, EnvDropboxToken); ok {
		c.Dropbox.AccessToken = v
	}
	if v, ok := lookup(env, EnvLimitPerFeed); ok {
		limit, err := strconv.Atoi(v)
		if err != nil {
			logger.Warn("limit per feed must be an integer, using default",
				"key", EnvLimitPerFeed,
				"value", v,
				"default", DefaultLimitPerFeed)
			limit = DefaultLimitPerFeed
		}
		c.LimitPerFeed = limit
	}
	if v, ok := lookup(env, EnvURL2QR); ok {
		qr, err := ParseBool(v)
		if err != nil {
			logger.Warn("invalid boolean value, keeping configured link mode",
				"key", EnvURL2QR,
				"value", v,
				"link_mode", c.LinkMode)
		} else if qr {
			c.LinkMode = LinkQRCode
		} else {
			c.LinkMode = LinkText
		}
	}
}

func lookup(env EnvVarProvider, key string) (string, bool) {
	if env.LookupEnv == nil {
		return "", false
	}
	v, ok := env.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// ParseBool accepts the usual strconv spellings plus yes/no, y/n and on/off
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off":
		return false, nil
	}
	return strconv.ParseBool(s)
}
