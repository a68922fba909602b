package dispatch

import (
	"os"
	"strings"
)

// ChannelResolver maps a remote channel name to the webhook URL it is bound to
type ChannelResolver interface {
	Resolve(name string) (string, bool)
}

// MapResolver resolves channels from a fixed table
type MapResolver map[string]string

func (m MapResolver) Resolve(name string) (string, bool) {
	url, ok := m[name]
	if !ok || strings.TrimSpace(url) == "" {
		return "", false
	}
	return url, true
}

// EnvResolver resolves a channel by reading the environment variable of the
// same name, optionally prefixed.
type EnvResolver struct {
	Prefix string
}

func (e EnvResolver) Resolve(name string) (string, bool) {
	url, ok := os.LookupEnv(e.Prefix + name)
	if !ok || strings.TrimSpace(url) == "" {
		return "", false
	}
	return url, true
}

// ChainResolver tries each resolver in order and returns the first hit
type ChainResolver []ChannelResolver

func (c ChainResolver) Resolve(name string) (string, bool) {
	for _, r := range c {
		if r == nil {
			continue
		}
		if url, ok := r.Resolve(name); ok {
			return url, true
		}
	}
	return "", false
}
