package main

import (
	"context"
	"fmt"

	"voxeldisplay.ai/internal/persistence/displaydb"
	"voxeldisplay.ai/internal/persistence/snapshot"
)

// restoreSnapshot loads path into store only when the store is empty, so a
// live db always wins over an older snapshot.
func restoreSnapshot(ctx context.Context, store *displaydb.Store, path, storeID string) (int, error) {
	n, err := store.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return 0, err
	}
	if snap.Header.StoreID != "" && snap.Header.StoreID != storeID {
		return 0, fmt.Errorf("snapshot store id mismatch: config=%s snap=%s", storeID, snap.Header.StoreID)
	}
	for _, d := range snap.Displays {
		if _, _, err := store.Put(ctx, d.Pos, d.Rotation, d.UpdatedBy); err != nil {
			return 0, err
		}
	}
	return len(snap.Displays), nil
}

func writeSnapshot(ctx context.Context, store *displaydb.Store, dir, storeID string, tick uint64) (string, error) {
	displays, err := store.All(ctx)
	if err != nil {
		return "", err
	}
	snap := snapshot.SnapshotV1{
		Header:   snapshot.Header{StoreID: storeID, Tick: tick},
		Displays: make([]snapshot.DisplayV1, 0, len(displays)),
	}
	for _, d := range displays {
		snap.Displays = append(snap.Displays, snapshot.DisplayV1{Pos: d.Pos, Rotation: d.Rotation, UpdatedBy: d.UpdatedBy})
	}
	path := snapshot.PathFor(dir, tick)
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		return "", err
	}
	return path, nil
}
