// Package featureflags evaluates FEATURE_FLAGS, a comma-separated list such
// as "realtime=on,feed_cache=25%". Percentages roll a flag out to a stable
// slice of users.
package featureflags

import (
	"hash/fnv"
	"maps"
	"strconv"
	"strings"
)

// Known flags.
const (
	// Realtime gates the notification WebSocket.
	Realtime = "realtime"
)

// Flags is an immutable set of parsed flag values.
type Flags struct {
	values map[string]string
}

// Parse reads raw, skipping malformed entries.
func Parse(raw string) *Flags {
	values := make(map[string]string)
	for _, entry := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(entry, "=")
		key, value = clean(key), clean(value)
		if !ok || key == "" || value == "" {
			continue
		}
		values[key] = value
	}
	return &Flags{values: values}
}

// Enabled evaluates name for userID. Unknown flags are off; a percentage
// never enables a flag for an anonymous (empty) user unless it is 100%.
func (f *Flags) Enabled(name, userID string) bool {
	if f == nil {
		return false
	}
	value, ok := f.values[clean(name)]
	if !ok {
		return false
	}
	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pct, err := strconv.Atoi(strings.TrimSuffix(value, "%"))
	if err != nil || !strings.HasSuffix(value, "%") || pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	return userID != "" && bucket(name, userID) < pct
}

// Snapshot evaluates every configured flag for userID.
func (f *Flags) Snapshot(userID string) map[string]bool {
	if f == nil {
		return map[string]bool{}
	}
	out := make(map[string]bool, len(f.values))
	for name := range f.values {
		out[name] = f.Enabled(name, userID)
	}
	return out
}

// Raw returns a copy of the configured values.
func (f *Flags) Raw() map[string]string {
	return maps.Clone(f.values)
}

func clean(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(name, userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(clean(name) + ":" + userID))
	return int(h.Sum32() % 100)
}
