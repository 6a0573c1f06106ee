package loop

import (
	"context"
	"fmt"

	"github.com/schmitthub/crashloop/internal/zfs"
)

// Volume is the writable clone backing one test attempt.
type Volume struct {
	// Dataset is the ZFS dataset name of the clone.
	Dataset string
	// Mountpoint is where the clone is mounted in the filesystem.
	Mountpoint string
}

// Lifecycle manages the storage resources of a session: the working
// dataset and the per-attempt clones. The production implementation
// shells out to zfs(8); tests substitute fakes.
type Lifecycle interface {
	// CreateWorkArea creates the session's working dataset. It must be
	// called exactly once, before any worker starts; failure aborts the
	// whole run.
	CreateWorkArea(ctx context.Context) error

	// Allocate clones the source snapshot into a fresh volume for one
	// attempt. The clone's name embeds (worker, attempt), so concurrent
	// allocation cannot collide; allocating the same pair twice fails
	// loudly rather than silently reusing the volume.
	Allocate(ctx context.Context, worker, attempt int) (Volume, error)

	// Release finishes an attempt's use of its volume. With destroy it
	// irreversibly removes the volume and all data in it; without, the
	// volume is left in place for later inspection.
	Release(ctx context.Context, vol Volume, destroy bool) error
}

// zfsLifecycle implements Lifecycle on top of the zfs CLI wrapper.
type zfsLifecycle struct {
	mgr         *zfs.Manager
	snapshot    string
	workDataset string
}

// NewZFSLifecycle returns the production Lifecycle: clones of snapshot
// created under workDataset via mgr.
func NewZFSLifecycle(mgr *zfs.Manager, snapshot, workDataset string) Lifecycle {
	return &zfsLifecycle{mgr: mgr, snapshot: snapshot, workDataset: workDataset}
}

func (z *zfsLifecycle) CreateWorkArea(ctx context.Context) error {
	return z.mgr.Create(ctx, z.workDataset)
}

func (z *zfsLifecycle) Allocate(ctx context.Context, worker, attempt int) (Volume, error) {
	dataset := zfs.AttemptDataset(z.workDataset, worker, attempt)

	if err := z.mgr.Clone(ctx, z.snapshot, dataset); err != nil {
		return Volume{}, err
	}

	mountpoint, err := z.mgr.Mountpoint(ctx, dataset)
	if err != nil {
		return Volume{}, fmt.Errorf("failed to resolve mountpoint of %s: %w", dataset, err)
	}

	return Volume{Dataset: dataset, Mountpoint: mountpoint}, nil
}

func (z *zfsLifecycle) Release(ctx context.Context, vol Volume, destroy bool) error {
	if !destroy {
		return nil
	}
	return z.mgr.Destroy(ctx, vol.Dataset)
}
