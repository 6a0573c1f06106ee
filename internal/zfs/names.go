package zfs

import (
	"fmt"
	"strings"
	"time"
)

// sessionPrefix is prepended to every session working dataset name.
const sessionPrefix = "crashloop"

// SplitSnapshot splits "pool/dataset@snap" into its dataset and snapshot
// parts. A name without '@' is a configuration error.
func SplitSnapshot(snapshot string) (dataset, snap string, err error) {
	dataset, snap, ok := strings.Cut(snapshot, "@")
	if !ok || dataset == "" {
		return "", "", fmt.Errorf("bad syntax for snapshot name %q (missing '@')", snapshot)
	}
	return dataset, snap, nil
}

// SessionDataset returns the working dataset name for a new session under
// the snapshot's parent dataset. The name embeds a millisecond timestamp
// so concurrent sessions on the same dataset cannot collide.
func SessionDataset(dataset string) string {
	return fmt.Sprintf("%s/%s-%d", dataset, sessionPrefix, time.Now().UnixMilli())
}

// AttemptDataset returns the dataset name for one test attempt. Worker
// index and attempt index are both embedded, which makes concurrent
// allocation collision-free without any cross-worker coordination.
func AttemptDataset(sessionDataset string, worker, attempt int) string {
	return fmt.Sprintf("%s/worker-%d-run-%d", sessionDataset, worker, attempt)
}
