// Package validate implements the entrypoint/metadata/expiration checks,
// resource-string parsing, timestamp parsing, and filter matching shared
// by the sandbox service and both providers.
package validate

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/opensandbox/control-plane/internal/sandboxerr"
	"github.com/opensandbox/control-plane/internal/sandboxmodel"
)

// labelKeyRE matches a DNS-1123 label, optionally prefixed by a DNS
// subdomain segment and a slash (the Kubernetes label-key convention:
// "prefix/name" or bare "name").
var labelKeyRE = regexp.MustCompile(`^([a-z0-9]([a-z0-9.-]*[a-z0-9])?/)?[a-zA-Z0-9]([a-zA-Z0-9_.-]*[a-zA-Z0-9])?$`)

// EnsureEntrypoint validates that entrypoint is a non-empty sequence of
// non-empty strings.
func EnsureEntrypoint(entrypoint []string) *sandboxerr.Error {
	if len(entrypoint) == 0 {
		return sandboxerr.New(sandboxerr.InvalidEntrypoint, "entrypoint must not be empty")
	}
	for _, arg := range entrypoint {
		if arg == "" {
			return sandboxerr.New(sandboxerr.InvalidEntrypoint, "entrypoint must not contain empty arguments")
		}
	}
	return nil
}

// EnsureMetadataLabels validates that every key in metadata is a legal
// label key and every value is non-empty after trimming whitespace.
func EnsureMetadataLabels(metadata map[string]string) *sandboxerr.Error {
	for key, value := range metadata {
		if !labelKeyRE.MatchString(key) {
			return sandboxerr.New(sandboxerr.InvalidMetadataLabel, "metadata key %q is not a valid label key", key)
		}
		if strings.TrimSpace(value) == "" {
			return sandboxerr.New(sandboxerr.InvalidMetadataLabel, "metadata value for key %q must not be empty", key)
		}
	}
	return nil
}

// EnsureFutureExpiration coerces a possibly-naive timestamp to UTC and
// rejects timestamps that are not strictly in the future.
func EnsureFutureExpiration(t time.Time) (time.Time, *sandboxerr.Error) {
	utc := t.UTC()
	if !utc.After(time.Now().UTC()) {
		return time.Time{}, sandboxerr.New(sandboxerr.InvalidExpiration, "expiration %s must be in the future", utc.Format(time.RFC3339))
	}
	return utc, nil
}

// EnsureVolumeMounts validates that every mount has a container path and
// that its host path resolves to an existing directory on the host the
// service runs on (relative paths resolve against the service process's
// working directory).
func EnsureVolumeMounts(mounts []sandboxmodel.VolumeMount) *sandboxerr.Error {
	for _, m := range mounts {
		if m.HostPath == "" || m.ContainerPath == "" {
			return sandboxerr.New(sandboxerr.InvalidVolumeMount, "volume mount must set both host_path and container_path")
		}
		hostPath := m.HostPath
		if !filepath.IsAbs(hostPath) {
			abs, err := filepath.Abs(hostPath)
			if err != nil {
				return sandboxerr.New(sandboxerr.InvalidVolumeMount, "host path %q could not be resolved", m.HostPath)
			}
			hostPath = abs
		}
		info, err := os.Stat(hostPath)
		if err != nil {
			return sandboxerr.New(sandboxerr.InvalidVolumeMount, "host path %q does not exist", m.HostPath)
		}
		if !info.IsDir() {
			return sandboxerr.New(sandboxerr.InvalidVolumeMount, "host path %q is not a directory", m.HostPath)
		}
	}
	return nil
}

// EnsurePort validates that port is in the legal TCP port range.
func EnsurePort(port int) *sandboxerr.Error {
	if port < 1 || port > 65535 {
		return sandboxerr.New(sandboxerr.InvalidPort, "port %d is out of range [1, 65535]", port)
	}
	return nil
}

// EnsureTimeoutSeconds validates that n falls within the accepted
// sandbox lifetime range.
func EnsureTimeoutSeconds(n int) *sandboxerr.Error {
	if n < 60 || n > 86400 {
		return sandboxerr.New(sandboxerr.InvalidParameter, "timeout_seconds %d is out of range [60, 86400]", n)
	}
	return nil
}

// EnsurePagination validates a list request's page and page_size.
func EnsurePagination(page, pageSize int) *sandboxerr.Error {
	if page < 1 {
		return sandboxerr.New(sandboxerr.InvalidParameter, "page %d must be >= 1", page)
	}
	if pageSize < 1 || pageSize > 200 {
		return sandboxerr.New(sandboxerr.InvalidParameter, "page_size %d is out of range [1, 200]", pageSize)
	}
	return nil
}

// memoryUnits maps a case-normalized unit suffix to its byte multiplier.
var memoryUnits = map[string]int64{
	"b":  1,
	"k":  1000,
	"ki": 1024,
	"m":  1000 * 1000,
	"mi": 1024 * 1024,
	"g":  1000 * 1000 * 1000,
	"gi": 1024 * 1024 * 1024,
}

var memoryRE = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?)\s*([a-zA-Z]{0,2})$`)

// ParseMemoryLimit accepts a number optionally suffixed by B, K, Ki, M, Mi,
// G, Gi (any case) and returns the value in bytes. Returns ok=false on
// unparseable input, mirroring the "-> None" contract of the original
// implementation.
func ParseMemoryLimit(s string) (bytes int64, ok bool) {
	s = strings.TrimSpace(s)
	m := memoryRE.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	unit := strings.ToLower(m[2])
	if unit == "" {
		unit = "b"
	}
	mult, ok := memoryUnits[unit]
	if !ok {
		return 0, false
	}
	return int64(value * float64(mult)), true
}

var nanoCPURE = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?)(m)?$`)

// ParseNanoCPUs accepts "500m" (millicpu) or "2" (whole cpu) and returns
// nanocpus (1 cpu = 1e9). Returns ok=false on unparseable input.
func ParseNanoCPUs(s string) (nanoCPUs int64, ok bool) {
	s = strings.TrimSpace(s)
	m := nanoCPURE.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	if m[2] == "m" {
		return int64(value * 1e6), true
	}
	return int64(value * 1e9), true
}

// epoch is the well-known fallback timestamp used by ParseTimestamp.
var epoch = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)

// ParseTimestamp parses an RFC-3339 timestamp. The sentinel
// "0001-01-01T00:00:00Z" and any unparseable input both return the
// well-known epoch in UTC; this function never returns an error.
func ParseTimestamp(s string) time.Time {
	if s == "" {
		return epoch
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return epoch
	}
	return t.UTC()
}

// Filter is the query shape accepted by MatchesFilter: an OR over State
// and an AND over Metadata key/value equality. An empty filter matches
// everything.
type Filter struct {
	State    []string
	Metadata map[string]string
}

// Matchable is the minimal view of a sandbox MatchesFilter needs.
type Matchable interface {
	MatchState() string
	MatchMetadata() map[string]string
}

// MatchesFilter reports whether sbx satisfies filter: sbx.State must be
// one of filter.State (if non-empty), and every key/value pair in
// filter.Metadata must be present and equal in sbx's metadata.
func MatchesFilter(sbx Matchable, filter Filter) bool {
	if len(filter.State) > 0 {
		found := false
		for _, s := range filter.State {
			if s == sbx.MatchState() {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(filter.Metadata) > 0 {
		md := sbx.MatchMetadata()
		for k, v := range filter.Metadata {
			if md[k] != v {
				return false
			}
		}
	}
	return true
}
