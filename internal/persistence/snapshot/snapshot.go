package snapshot

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"voxeldisplay.ai/internal/sim/rotation"
)

const Version = 1

// Ext is the file suffix WriteSnapshot callers use; Latest only looks at it.
const Ext = ".snap.zst"

type Header struct {
	Version int    `json:"version" yaml:"version"`
	StoreID string `json:"store_id" yaml:"store_id"`
	Tick    uint64 `json:"tick" yaml:"tick"`
}

type SnapshotV1 struct {
	Header   Header      `json:"header" yaml:"header"`
	Displays []DisplayV1 `json:"displays" yaml:"displays"`
}

type DisplayV1 struct {
	Pos       [3]int         `json:"pos" yaml:"pos,flow"`
	Rotation  rotation.State `json:"rotation" yaml:"rotation"`
	UpdatedBy string         `json:"updated_by,omitempty" yaml:"updated_by,omitempty"`
}

// WriteSnapshot writes a zstd stream holding one JSON header line followed
// by a YAML document. Rotations are written as tree scalars.
func WriteSnapshot(path string, snap SnapshotV1) (err error) {
	if snap.Header.Version == 0 {
		snap.Header.Version = Version
	}
	displays := make([]DisplayV1, len(snap.Displays))
	copy(displays, snap.Displays)
	sort.Slice(displays, func(i, j int) bool { return lessPos(displays[i].Pos, displays[j].Pos) })
	snap.Displays = displays

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	var enc *zstd.Encoder
	defer func() {
		if err != nil {
			if enc != nil {
				_ = enc.Close()
			}
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	enc, err = zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	ye := yaml.NewEncoder(bw)
	ye.SetIndent(2)
	if err := ye.Encode(&snap); err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}
	if err := ye.Close(); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	err = enc.Close()
	enc = nil
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	var hdr Header
	if err := json.Unmarshal(line, &hdr); err != nil {
		return snap, fmt.Errorf("header: %w", err)
	}
	if hdr.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", hdr.Version)
	}

	if err := yaml.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("yaml decode: %w", err)
	}
	if snap.Header != hdr {
		return snap, fmt.Errorf("header mismatch: line=%+v body=%+v", hdr, snap.Header)
	}
	return snap, nil
}

// Latest returns the snapshot in dir with the highest tick, or "" if none.
func Latest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	best := ""
	var bestTick uint64
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Ext) {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(e.Name(), Ext), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			best, bestTick = e.Name(), tick
		}
	}
	if best == "" {
		return "", nil
	}
	return filepath.Join(dir, best), nil
}

// PathFor names a snapshot file by tick inside dir.
func PathFor(dir string, tick uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%d%s", tick, Ext))
}

func lessPos(a, b [3]int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
