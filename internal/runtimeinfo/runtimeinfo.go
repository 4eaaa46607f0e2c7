// Package runtimeinfo derives default profile tags from the host and the
// running process.
package runtimeinfo

import (
	"os"
	"runtime"
	"strconv"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v4/host"
)

// Tags returns host and process metadata as profile tags. Keys already
// present in user-supplied tags should win; callers merge accordingly.
func Tags() map[string]string {
	tags := map[string]string{
		"pid":        strconv.Itoa(os.Getpid()),
		"go_version": runtime.Version(),
		"cores":      strconv.Itoa(runtime.NumCPU()),
		"session_id": uuid.NewString(),
	}

	if info, err := host.Info(); err == nil {
		tags["hostname"] = info.Hostname
		tags["os"] = info.OS
	} else if hn, err := os.Hostname(); err == nil {
		tags["hostname"] = hn
	}

	return tags
}

// Merge overlays user tags on top of the runtime defaults. User-supplied
// keys always win.
func Merge(user map[string]string) map[string]string {
	merged := Tags()
	for k, v := range user {
		merged[k] = v
	}
	return merged
}
