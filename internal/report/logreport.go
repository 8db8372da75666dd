package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	KeyIteration   = "iteration"
	KeyEpoch       = "epoch"
	KeyElapsedTime = "elapsed_time"
)

// Entry is one line of the training log: averaged metrics plus iteration bookkeeping.
type Entry map[string]float64

func (e Entry) Iteration() int { return int(e[KeyIteration]) }

// LogReport averages observations between flushes and keeps the full log as a JSON array
// in outDir/log.txt. It is safe to read entries while training runs.
type LogReport struct {
	mu      sync.Mutex
	path    string
	summary *Summary
	entries []Entry
	logger  *logrus.Logger
}

func NewLogReport(outDir string, logger *logrus.Logger) *LogReport {
	if logger == nil {
		logger = logrus.New()
	}
	return &LogReport{
		path:    filepath.Join(outDir, "log.txt"),
		summary: NewSummary(),
		logger:  logger,
	}
}

func (r *LogReport) Path() string { return r.path }

func (r *LogReport) Observe(o Observation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.Add(o)
}

// Flush closes the current averaging window, appends an entry and rewrites the log file.
func (r *LogReport) Flush(iteration, epoch int, elapsed time.Duration) (Entry, error) {
	r.mu.Lock()
	var entry = Entry(r.summary.Mean())
	r.summary.Reset()
	entry[KeyIteration] = float64(iteration)
	entry[KeyEpoch] = float64(epoch)
	entry[KeyElapsedTime] = elapsed.Seconds()
	r.entries = append(r.entries, entry)
	var data, err = json.MarshalIndent(r.encodable(), "", "    ")
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var fields = logrus.Fields{}
	for k, v := range entry {
		fields[k] = v
	}
	r.logger.WithFields(fields).Info("log report")

	err = os.WriteFile(r.path, data, 0o644)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *LogReport) encodable() []map[string]interface{} {
	var result = make([]map[string]interface{}, len(r.entries))
	for i, e := range r.entries {
		result[i] = jsonValues(e)
	}
	return result
}

func (r *LogReport) Encodable() []map[string]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.encodable()
}

func (r *LogReport) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result = make([]Entry, len(r.entries))
	copy(result, r.entries)
	return result
}

func (r *LogReport) Latest() (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return nil, false
	}
	return r.entries[len(r.entries)-1], true
}
