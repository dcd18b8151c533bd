// Package tradelog journals orders and scored decisions as JSON lines, one
// file per UTC day, and gzips files past retention.
package tradelog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const timeLayout = "2006-01-02 15:04:05"

type Entry struct {
	Time    string         `json:"time"`
	Symbol  string         `json:"symbol"`
	Side    string         `json:"side"`
	Qty     int            `json:"qty"`
	Price   float64        `json:"price,omitempty"`
	OrderID string         `json:"order_id,omitempty"`
	Status  string         `json:"status,omitempty"`
	Reason  string         `json:"reason,omitempty"`
	Extra   map[string]any `json:"extra,omitempty"`
}

type DecisionEntry struct {
	Time       string             `json:"time"`
	Symbol     string             `json:"symbol"`
	Signal     string             `json:"signal"`
	Score      int                `json:"score"`
	Price      float64            `json:"price"`
	Reason     string             `json:"reason,omitempty"`
	Indicators map[string]float64 `json:"indicators,omitempty"`
}

type Journal struct {
	dir string
	now func() time.Time
	mu  sync.Mutex
}

// New returns a journal rooted at dir ("logs" when empty).
func New(dir string) *Journal {
	if dir == "" {
		dir = "logs"
	}
	return &Journal{dir: dir, now: time.Now}
}

func (j *Journal) Dir() string { return j.dir }

func (j *Journal) ordersPath(t time.Time) string {
	return filepath.Join(j.dir, t.Format("2006-01-02")+".txt")
}

func (j *Journal) decisionsPath(t time.Time) string {
	return filepath.Join(j.dir, "decisions", t.Format("2006-01-02")+".txt")
}

func (j *Journal) Append(e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := j.now().UTC()
	e.Time = now.Format(timeLayout)
	return appendLine(j.ordersPath(now), e)
}

func (j *Journal) AppendDecision(e DecisionEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := j.now().UTC()
	e.Time = now.Format(timeLayout)
	return appendLine(j.decisionsPath(now), e)
}

func appendLine(p string, v any) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips journal files last modified before the retention
// window and removes the originals. Files that fail are left in place.
func (j *Journal) CompressOlder(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	cutoff := j.now().AddDate(0, 0, -retentionDays)
	n := 0
	err := filepath.WalkDir(j.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || filepath.Ext(p) != ".txt" {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		gz := p + ".gz"
		// if already gz exists, remove original .txt
		if _, err := os.Stat(gz); err == nil {
			_ = os.Remove(p)
			return nil
		}
		if compress(p, gz) == nil {
			_ = os.Remove(p)
			n++
		}
		return nil
	})
	return n, err
}

func compress(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	_, copyErr := io.Copy(gw, in)
	closeErr := gw.Close()
	fileErr := out.Close()
	for _, e := range []error{copyErr, closeErr, fileErr} {
		if e != nil {
			_ = os.Remove(dst)
			return e
		}
	}
	return nil
}
