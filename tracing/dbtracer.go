package tracing

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/elevsim/datarecording"
	"github.com/sarchlab/elevsim/sim"
)

// DefaultTableName is the table the DBTracer writes into.
const DefaultTableName = "bus_messages"

// DBTracer is a tracer that stores bus records in a data recorder. Only the
// records between the start and the end time are stored.
type DBTracer struct {
	mu       sync.Mutex
	backend  datarecording.DataRecorder
	table    string
	log      *logrus.Entry
	filter   MessageFilter
	start    sim.VTime
	end      sim.VTime
	count    uint64
	failures uint64
}

// NewDBTracer creates a tracer and the table it writes into.
func NewDBTracer(
	backend datarecording.DataRecorder,
	log *logrus.Entry,
) (*DBTracer, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	t := &DBTracer{
		backend: backend,
		table:   DefaultTableName,
		log:     log.WithField("component", "tracer"),
		end:     sim.Forever,
	}

	if err := backend.CreateTable(t.table, MessageRecord{}); err != nil {
		return nil, err
	}

	return t, nil
}

// SetTimeRange limits the records stored to the ones in [start, end].
func (t *DBTracer) SetTimeRange(start, end sim.VTime) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.start = start
	t.end = end
}

// SetFilter limits the records stored to the ones the filter accepts.
func (t *DBTracer) SetFilter(f MessageFilter) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.filter = f
}

// Trace stores a record.
func (t *DBTracer) Trace(rec MessageRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	at := rec.At()
	if at < t.start || at > t.end {
		return
	}

	if t.filter != nil && !t.filter(rec) {
		return
	}

	if err := t.backend.InsertData(t.table, rec); err != nil {
		// Only the first failure is logged, every record fails the same way.
		if t.failures == 0 {
			t.log.WithError(err).Error("cannot store record")
		}

		t.failures++

		return
	}

	t.count++
}

// Count returns the number of records stored so far.
func (t *DBTracer) Count() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.count
}

// Table returns the name of the table the tracer writes into.
func (t *DBTracer) Table() string {
	return t.table
}

// Flush writes the buffered records.
func (t *DBTracer) Flush() error {
	return t.backend.Flush()
}
