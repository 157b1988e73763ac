// Package log keeps the rotation audit trail: zstd-compressed JSONL segments,
// one segment per period, each opened fresh and closed whole.
package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"voxeldisplay.ai/internal/sim/rotation"
)

// AuditEntry records one accepted rotation change. From is nil for a display
// that had no rotation yet.
type AuditEntry struct {
	Time  time.Time       `json:"time"`
	Pos   [3]int          `json:"pos"`
	From  *rotation.State `json:"from"`
	To    rotation.State  `json:"to"`
	By    string          `json:"by,omitempty"`
	ReqID string          `json:"req_id,omitempty"`
}

const (
	segmentPrefix = "audit-"
	segmentExt    = ".jsonl.zst"
)

type Options struct {
	// Period is the segment length; anything other than 24h rotates hourly.
	Period time.Duration
	// Retain is how many segments to keep; 0 keeps all of them.
	Retain int
}

// AuditLog appends entries to the segment for the current period. A segment
// is never reopened: after a restart, or when a period comes back around,
// the next sequence number is used.
type AuditLog struct {
	dir  string
	opts Options
	now  func() time.Time

	mu     sync.Mutex
	period string
	path   string
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

func NewAuditLog(dir string, opts Options) *AuditLog {
	return &AuditLog{dir: dir, opts: opts, now: time.Now}
}

func (l *AuditLog) WriteAudit(e AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	if e.Time.IsZero() {
		e.Time = now
	}
	if p := l.periodOf(now); p != l.period {
		if err := l.openLocked(p); err != nil {
			return err
		}
	}
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit entry: %w", err)
	}
	if _, err := l.w.Write(b); err != nil {
		return err
	}
	if err := l.w.WriteByte('\n'); err != nil {
		return err
	}
	return l.w.Flush()
}

func (l *AuditLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}

func (l *AuditLog) periodOf(t time.Time) string {
	if l.opts.Period == 24*time.Hour {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02-15")
}

func (l *AuditLog) openLocked(period string) error {
	if err := l.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}
	var f *os.File
	for seq := 0; f == nil; seq++ {
		path := filepath.Join(l.dir, fmt.Sprintf("%s%s.%04d%s", segmentPrefix, period, seq, segmentExt))
		nf, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		switch {
		case err == nil:
			f, l.path = nf, path
		case os.IsExist(err):
			continue
		default:
			return err
		}
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	l.f = f
	l.enc = enc
	l.w = bufio.NewWriterSize(enc, 64*1024)
	l.period = period
	return l.pruneLocked()
}

// pruneLocked drops the oldest segments beyond Retain. The open segment
// always survives.
func (l *AuditLog) pruneLocked() error {
	if l.opts.Retain <= 0 {
		return nil
	}
	segs, err := Segments(l.dir)
	if err != nil {
		return err
	}
	for len(segs) > l.opts.Retain {
		if segs[0] != l.path {
			if err := os.Remove(segs[0]); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
		segs = segs[1:]
	}
	return nil
}

func (l *AuditLog) closeLocked() error {
	var err error
	if l.w != nil {
		err = l.w.Flush()
	}
	if l.enc != nil {
		if cerr := l.enc.Close(); err == nil {
			err = cerr
		}
		l.enc = nil
	}
	if l.f != nil {
		if cerr := l.f.Close(); err == nil {
			err = cerr
		}
		l.f = nil
	}
	l.w = nil
	l.period = ""
	return err
}

// Segments lists the audit segments in dir, oldest first.
func Segments(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, segmentPrefix) || !strings.HasSuffix(name, segmentExt) {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	sort.Strings(out)
	return out, nil
}

// ReadSegment decodes every entry of one segment. Rotations go back through
// the JSON codec, so a hand-edited segment is validated like wire input.
func ReadSegment(path string) ([]AuditEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []AuditEntry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for line := 1; sc.Scan(); line++ {
		var e AuditEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return out, fmt.Errorf("%s:%d: %w", filepath.Base(path), line, err)
		}
		out = append(out, e)
	}
	return out, sc.Err()
}
