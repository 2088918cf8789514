// Package datarecording stores the records a run produces in a SQLite
// database, so that runs can be analyzed after they complete.
package datarecording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"github.com/tebeka/atexit"
)

// DefaultBatchSize is the number of buffered entries that triggers a flush.
const DefaultBatchSize = 10000

var (
	// ErrUnknownTable is returned when inserting into a table that was not
	// created.
	ErrUnknownTable = errors.New("datarecording: unknown table")

	// ErrInvalidEntry is returned for entries that cannot be stored as one
	// row, such as structs with nested fields.
	ErrInvalidEntry = errors.New("datarecording: invalid entry")
)

// DataRecorder is a backend that can record and store data.
type DataRecorder interface {
	// CreateTable creates a table with one column per field of sampleEntry.
	CreateTable(tableName string, sampleEntry any) error

	// InsertData buffers an entry for a table that already exists.
	InsertData(tableName string, entry any) error

	// ListTables returns the names of the tables created so far.
	ListTables() []string

	// Flush writes the buffered entries to the database.
	Flush() error

	// Close flushes and closes the database.
	Close() error
}

// Option configures a recorder.
type Option func(w *sqliteWriter)

// WithBatchSize sets the number of entries buffered before a flush.
func WithBatchSize(n int) Option {
	return func(w *sqliteWriter) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithLogger sets the logger of the recorder.
func WithLogger(log *logrus.Entry) Option {
	return func(w *sqliteWriter) {
		w.log = log
	}
}

// New creates a recorder that writes into path.sqlite3. An empty path
// generates a unique name. The recorder is flushed when the program exits
// through atexit.
func New(path string, opts ...Option) (DataRecorder, error) {
	if path == "" {
		path = "elevsim_trace_" + xid.New().String()
	}

	filename := path + ".sqlite3"

	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("datarecording: file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, fmt.Errorf("datarecording: %w", err)
	}

	w := newWriter(db, opts...)
	w.filename = filename
	w.log.WithField("file", filename).Info("database created for recording")

	atexit.Register(func() {
		if err := w.Flush(); err != nil {
			w.log.WithError(err).Error("flush at exit failed")
		}
	})

	return w, nil
}

// NewWithDB creates a recorder on an open database.
func NewWithDB(db *sql.DB, opts ...Option) DataRecorder {
	return newWriter(db, opts...)
}

func newWriter(db *sql.DB, opts ...Option) *sqliteWriter {
	w := &sqliteWriter{
		DB:        db,
		batchSize: DefaultBatchSize,
		tables:    make(map[string]*table),
		log: logrus.NewEntry(logrus.StandardLogger()).
			WithField("component", "datarecording"),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

type table struct {
	structType reflect.Type
	insert     string
	entries    []any
}

// sqliteWriter is the writer that writes data into SQLite database
type sqliteWriter struct {
	*sql.DB

	lock       sync.Mutex
	log        *logrus.Entry
	filename   string
	tables     map[string]*table
	order      []string
	batchSize  int
	entryCount int
	closed     bool
}

func isAllowedKind(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func checkStructFields(entry any) error {
	t := reflect.TypeOf(entry)
	if t == nil || t.Kind() != reflect.Struct {
		return fmt.Errorf("%w: %T is not a struct", ErrInvalidEntry, entry)
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if !isAllowedKind(field.Type.Kind()) {
			return fmt.Errorf("%w: field %s of %s has kind %s",
				ErrInvalidEntry, field.Name, t, field.Type.Kind())
		}
	}

	return nil
}

func (w *sqliteWriter) CreateTable(tableName string, sampleEntry any) error {
	if err := checkStructFields(sampleEntry); err != nil {
		return err
	}

	w.lock.Lock()
	defer w.lock.Unlock()

	if _, exists := w.tables[tableName]; exists {
		return fmt.Errorf("datarecording: table %s already exists", tableName)
	}

	names := structs.Names(sampleEntry)
	fields := strings.Join(names, ", \n\t")

	createTableSQL := `CREATE TABLE ` + tableName +
		` (` + "\n\t" + fields + "\n" + `);`
	if _, err := w.Exec(createTableSQL); err != nil {
		return fmt.Errorf("datarecording: creating %s: %w", tableName, err)
	}

	placeholders := make([]string, len(names))
	for i := range placeholders {
		placeholders[i] = "?"
	}

	w.tables[tableName] = &table{
		structType: reflect.TypeOf(sampleEntry),
		insert: "INSERT INTO " + tableName +
			" VALUES (" + strings.Join(placeholders, ", ") + ")",
	}
	w.order = append(w.order, tableName)

	return nil
}

func (w *sqliteWriter) InsertData(tableName string, entry any) error {
	w.lock.Lock()

	t, exists := w.tables[tableName]
	if !exists {
		w.lock.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownTable, tableName)
	}

	if reflect.TypeOf(entry) != t.structType {
		w.lock.Unlock()
		return fmt.Errorf("%w: %T does not match table %s",
			ErrInvalidEntry, entry, tableName)
	}

	t.entries = append(t.entries, entry)
	w.entryCount++
	full := w.entryCount >= w.batchSize

	w.lock.Unlock()

	if full {
		return w.Flush()
	}

	return nil
}

func (w *sqliteWriter) ListTables() []string {
	w.lock.Lock()
	defer w.lock.Unlock()

	return append([]string(nil), w.order...)
}

func (w *sqliteWriter) Flush() error {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.entryCount == 0 || w.closed {
		return nil
	}

	tx, err := w.Begin()
	if err != nil {
		return fmt.Errorf("datarecording: %w", err)
	}

	for _, name := range w.order {
		if err := w.flushTable(tx, w.tables[name]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("datarecording: flushing %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("datarecording: %w", err)
	}

	w.log.WithField("entries", w.entryCount).Debug("flushed")
	w.entryCount = 0

	return nil
}

func (w *sqliteWriter) flushTable(tx *sql.Tx, t *table) error {
	if len(t.entries) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(t.insert)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, entry := range t.entries {
		if _, err := stmt.Exec(structs.Values(entry)...); err != nil {
			return err
		}
	}

	t.entries = nil

	return nil
}

func (w *sqliteWriter) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}

	w.lock.Lock()
	defer w.lock.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true

	return w.DB.Close()
}
