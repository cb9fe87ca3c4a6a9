// Package auditlog appends one JSON line per finished analysis to a daily file.
package auditlog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const ext = ".jsonl"

type Entry struct {
	Time       string `json:"time"`
	RequestID  string `json:"request_id"`
	Strategy   string `json:"strategy"`
	VideoID    string `json:"video_id,omitempty"`
	Trades     int    `json:"trades"`
	Stocks     int    `json:"stocks"`
	Status     int    `json:"status"`
	TotalScore *int   `json:"total_score,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Log writes entries under dir. A nil *Log discards everything.
type Log struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

func New(dir string) *Log {
	return &Log{dir: dir, now: time.Now}
}

func (l *Log) dailyFilepath(t time.Time) string {
	return filepath.Join(l.dir, t.Format("2006-01-02")+ext)
}

// Append stamps e with the current time and writes it to today's file.
func (l *Log) Append(e Entry) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e.Time = now.Format(time.RFC3339)
	p := l.dailyFilepath(now)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips daily files last modified more than retentionDays ago
// and returns how many it compressed. retentionDays <= 0 disables it.
func (l *Log) CompressOlder(retentionDays int) (int, error) {
	if l == nil || retentionDays <= 0 {
		return 0, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := os.ReadDir(l.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	cutoff := l.now().AddDate(0, 0, -retentionDays)
	compressed := 0
	for _, d := range entries {
		if d.IsDir() || !strings.HasSuffix(d.Name(), ext) {
			continue
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}

		p := filepath.Join(l.dir, d.Name())
		if _, err := os.Stat(p + ".gz"); err == nil {
			// already archived by an earlier run
			if err := os.Remove(p); err != nil {
				return compressed, fmt.Errorf("remove archived %s: %w", p, err)
			}
			continue
		}
		if err := gzipFile(p); err != nil {
			return compressed, fmt.Errorf("compress %s: %w", p, err)
		}
		compressed++
	}
	return compressed, nil
}

func gzipFile(p string) error {
	in, err := os.Open(p)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(p+".gz", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		_ = gw.Close()
		_ = out.Close()
		_ = os.Remove(p + ".gz")
		return err
	}
	if err := gw.Close(); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	_ = in.Close()
	return os.Remove(p)
}
