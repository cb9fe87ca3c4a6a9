package auditlog

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedLog(t *testing.T, now time.Time) *Log {
	t.Helper()
	l := New(t.TempDir())
	l.now = func() time.Time { return now }
	return l
}

func TestAppend(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	l := fixedLog(t, now)
	score := 81

	require.NoError(t, l.Append(Entry{RequestID: "r1", Strategy: "external", VideoID: "abc", Trades: 3, Stocks: 2, Status: 200, TotalScore: &score}))
	require.NoError(t, l.Append(Entry{RequestID: "r2", Strategy: "external", Status: 404, Error: "no transcript"}))

	f, err := os.Open(filepath.Join(l.dir, "2024-03-15.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	var got []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		got = append(got, e)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "2024-03-15T10:30:00Z", got[0].Time)
	require.NotNil(t, got[0].TotalScore)
	assert.Equal(t, 81, *got[0].TotalScore)
	assert.Equal(t, 404, got[1].Status)
	assert.Equal(t, "no transcript", got[1].Error)
}

func TestNilLog(t *testing.T) {
	var l *Log
	assert.NoError(t, l.Append(Entry{}))
	n, err := l.CompressOlder(1)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestCompressOlder(t *testing.T) {
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	l := fixedLog(t, now)

	old := filepath.Join(l.dir, "2024-03-01.jsonl")
	fresh := filepath.Join(l.dir, "2024-03-14.jsonl")
	other := filepath.Join(l.dir, "notes.txt")
	for _, p := range []string{old, fresh, other} {
		require.NoError(t, os.WriteFile(p, []byte(`{"request_id":"x"}`+"\n"), 0o644))
	}
	oldTime := now.AddDate(0, 0, -10)
	require.NoError(t, os.Chtimes(old, oldTime, oldTime))
	require.NoError(t, os.Chtimes(other, oldTime, oldTime))
	require.NoError(t, os.Chtimes(fresh, now, now))

	n, err := l.CompressOlder(7)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
	assert.FileExists(t, other)

	f, err := os.Open(old + ".gz")
	require.NoError(t, err)
	defer f.Close()
	gr, err := gzip.NewReader(f)
	require.NoError(t, err)
	body, err := io.ReadAll(gr)
	require.NoError(t, err)
	assert.Equal(t, `{"request_id":"x"}`+"\n", string(body))
}

func TestCompressOlderMissingDir(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "absent"))
	n, err := l.CompressOlder(7)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestCompressOlderRemovesArchivedOriginal(t *testing.T) {
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	l := fixedLog(t, now)

	stale := filepath.Join(l.dir, "2024-03-01.jsonl")
	require.NoError(t, os.WriteFile(stale, []byte("{}\n"), 0o644))
	require.NoError(t, os.WriteFile(stale+".gz", []byte("archived"), 0o644))
	oldTime := now.AddDate(0, 0, -10)
	require.NoError(t, os.Chtimes(stale, oldTime, oldTime))

	n, err := l.CompressOlder(7)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoFileExists(t, stale)

	b, err := os.ReadFile(stale + ".gz")
	require.NoError(t, err)
	assert.Equal(t, "archived", string(b), "existing archive is left alone")
}
