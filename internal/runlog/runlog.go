// Package runlog keeps a per-sample history of engine events as JSONL.
package runlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"pbloss-mcp/internal/concordia"
	"pbloss-mcp/internal/simulation"
)

// Entry is one recorded event. Ages are in Ma.
type Entry struct {
	Timestamp  int64     `json:"ts"` // unix microseconds
	SampleID   string    `json:"sample_id"`
	SampleName string    `json:"sample_name"`
	Kind       string    `json:"kind"`
	Message    string    `json:"message,omitempty"`
	Run        *int      `json:"run,omitempty"`
	AgeMa      *float64  `json:"age_ma,omitempty"`
	LowerMa    *float64  `json:"lower_ma,omitempty"`
	UpperMa    *float64  `json:"upper_ma,omitempty"`
	Scores     []float64 `json:"scores,omitempty"`
}

func (e Entry) identity() string {
	run := -1
	if e.Run != nil {
		run = *e.Run
	}
	return fmt.Sprintf("%d|%s|%d|%s", e.Timestamp, e.Kind, run, e.Message)
}

// Log provides thread-safe storage of entries partitioned by sample ID.
// It implements simulation.Progress.
type Log struct {
	mu      sync.RWMutex
	entries map[string][]Entry
	now     func() time.Time
}

// New creates an empty log.
func New() *Log {
	return &Log{entries: make(map[string][]Entry), now: time.Now}
}

// Report records sample-level events. Per-spot events and the batch
// summary are ignored.
func (l *Log) Report(ev simulation.Event) {
	if ev.SampleID == "" || ev.Kind == simulation.ClassificationProgress {
		return
	}
	e := Entry{
		Timestamp:  l.now().UnixMicro(),
		SampleID:   ev.SampleID,
		SampleName: ev.SampleName,
		Kind:       ev.Kind.String(),
		Message:    ev.Message,
	}
	switch ev.Kind {
	case simulation.SamplingProgress:
		if ev.Run == nil {
			return
		}
		n := ev.Run.RunNumber
		e.Run = &n
		e.AgeMa = ma(ev.Run.OptimalPbLossAge)
		e.Scores = ev.Run.Scores()
	case simulation.OptimalAgeProgress:
		if ev.Optimal == nil {
			return
		}
		n := ev.Optimal.Runs
		e.Run = &n
		e.AgeMa, e.LowerMa, e.UpperMa = ma(ev.Optimal.Age), ma(ev.Optimal.LowerBound), ma(ev.Optimal.UpperBound)
	case simulation.SampleFailed:
		if ev.Err != nil {
			e.Message = ev.Err.Error()
		}
	}
	l.Append(ev.SampleID, []Entry{e})
}

// Append adds entries for a sample, dropping duplicates and keeping
// chronological order.
func (l *Log) Append(sampleID string, entries []Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	list := l.entries[sampleID]
	existing := make(map[string]bool, len(list))
	for _, e := range list {
		existing[e.identity()] = true
	}

	added := 0
	for _, e := range entries {
		if !existing[e.identity()] {
			list = append(list, e)
			existing[e.identity()] = true
			added++
		}
	}
	if added == 0 {
		return
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Timestamp < list[j].Timestamp
	})
	l.entries[sampleID] = list
}

// Entries returns a copy of a sample's entries.
func (l *Log) Entries(sampleID string) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry(nil), l.entries[sampleID]...)
}

// Samples returns the IDs with at least one entry, sorted.
func (l *Log) Samples() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.entries))
	for id := range l.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Drop forgets a sample's entries once they are no longer needed.
func (l *Log) Drop(sampleID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, sampleID)
}

func path(dir, sampleID string) string {
	return filepath.Join(dir, fmt.Sprintf("%s.jsonl", sampleID))
}

// Load reads a sample's JSONL file. A missing file is not an error.
func (l *Log) Load(dir, sampleID string) error {
	file, err := os.Open(path(dir, sampleID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open run log: %w", err)
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			log.Warn().Err(err).Str("sample", sampleID).Msg("Skipping invalid JSON line in run log")
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading run log: %w", err)
	}

	log.Debug().Str("sample", sampleID).Int("count", len(entries)).Msg("Loaded run log")
	l.Append(sampleID, entries)
	return nil
}

// Save writes a sample's entries to dir, replacing any earlier file.
func (l *Log) Save(dir, sampleID string) error {
	entries := l.Entries(sampleID)
	if len(entries) == 0 {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create run log directory: %w", err)
	}

	target := path(dir, sampleID)
	tmpPath := target + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp run log: %w", err)
	}

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)
	for _, e := range entries {
		if err := encoder.Encode(e); err != nil {
			file.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("failed to encode entry: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("failed to rename run log: %w", err)
	}

	log.Debug().Str("sample", sampleID).Int("count", len(entries)).Msg("Saved run log")
	return nil
}

// SaveAll writes every sample's entries to dir.
func (l *Log) SaveAll(dir string) error {
	for _, id := range l.Samples() {
		if err := l.Save(dir, id); err != nil {
			return err
		}
	}
	return nil
}

func ma(years float64) *float64 {
	v := years / concordia.Ma
	return &v
}
