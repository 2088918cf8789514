package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// QueryParams selects and orders the entries of a table.
type QueryParams struct {
	// Where is a condition without the WHERE keyword, like "TimeNS > ?".
	Where string

	// Args fill the placeholders of Where.
	Args []any

	// OrderBy lists the sort columns without the ORDER BY keywords.
	OrderBy string

	// Limit caps the number of entries returned. Zero means no limit.
	Limit int

	// Offset skips entries. It only applies with a Limit.
	Offset int
}

func (p QueryParams) where() string {
	if p.Where == "" {
		return ""
	}

	return " WHERE " + p.Where
}

func (p QueryParams) tail() string {
	var b strings.Builder

	if p.OrderBy != "" {
		b.WriteString(" ORDER BY " + p.OrderBy)
	}

	if p.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", p.Limit)

		if p.Offset > 0 {
			fmt.Fprintf(&b, " OFFSET %d", p.Offset)
		}
	}

	return b.String()
}

// DataReader reads back the tables a DataRecorder wrote.
type DataReader interface {
	// MapTable tells which struct the entries of a table are read into. A
	// table must be mapped before it is queried.
	MapTable(tableName string, sampleEntry any)

	// ListTables returns the sorted names of the mapped tables.
	ListTables() []string

	// StoredTables returns the sorted names of the tables in the file,
	// whether they are mapped or not.
	StoredTables(ctx context.Context) ([]string, error)

	// Query returns pointers to the matching entries and the number of
	// entries that match the Where clause, ignoring Limit and Offset.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	// Close closes the database.
	Close() error
}

type sqliteReader struct {
	db      *sql.DB
	typeMap map[string]reflect.Type
}

// NewReader opens a database written by a recorder.
func NewReader(dbFilename string) (DataReader, error) {
	db, err := sql.Open("sqlite3", "file:"+dbFilename+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("datarecording: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("datarecording: opening %s: %w",
			dbFilename, err)
	}

	return NewReaderWithDB(db), nil
}

// NewReaderWithDB creates a reader on an open database.
func NewReaderWithDB(db *sql.DB) DataReader {
	return &sqliteReader{
		db:      db,
		typeMap: make(map[string]reflect.Type),
	}
}

func (r *sqliteReader) MapTable(tableName string, sampleEntry any) {
	r.typeMap[tableName] = reflect.TypeOf(sampleEntry)
}

func (r *sqliteReader) ListTables() []string {
	tables := make([]string, 0, len(r.typeMap))
	for table := range r.typeMap {
		tables = append(tables, table)
	}

	sort.Strings(tables)

	return tables
}

func (r *sqliteReader) StoredTables(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("datarecording: %w", err)
	}
	defer rows.Close()

	var tables []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("datarecording: %w", err)
		}

		tables = append(tables, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("datarecording: %w", err)
	}

	return tables, nil
}

func (r *sqliteReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	entryType, ok := r.typeMap[tableName]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s is not mapped",
			ErrUnknownTable, tableName)
	}

	var total int

	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+tableName+params.where(),
		params.Args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("datarecording: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT * FROM "+tableName+params.where()+params.tail(),
		params.Args...)
	if err != nil {
		return nil, 0, fmt.Errorf("datarecording: %w", err)
	}
	defer rows.Close()

	results, err := scanEntries(rows, entryType)
	if err != nil {
		return nil, 0, err
	}

	return results, total, nil
}

func (r *sqliteReader) Close() error {
	return r.db.Close()
}

// scanEntries reads every row into a new entry. Columns without a field of
// the same name are skipped.
func scanEntries(rows *sql.Rows, entryType reflect.Type) ([]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("datarecording: %w", err)
	}

	var results []any

	for rows.Next() {
		entry := reflect.New(entryType).Elem()
		targets := make([]any, len(columns))

		for i, col := range columns {
			field := entry.FieldByName(col)
			if !field.IsValid() || !field.CanSet() {
				targets[i] = new(any)
				continue
			}

			targets[i] = field.Addr().Interface()
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("datarecording: %w", err)
		}

		results = append(results, entry.Addr().Interface())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("datarecording: %w", err)
	}

	return results, nil
}

// QueryAll maps the table to T and returns every matching entry.
func QueryAll[T any](
	ctx context.Context,
	r DataReader,
	tableName string,
	params QueryParams,
) ([]T, error) {
	var sample T

	r.MapTable(tableName, sample)

	results, _, err := r.Query(ctx, tableName, params)
	if err != nil {
		return nil, err
	}

	entries := make([]T, 0, len(results))
	for _, res := range results {
		entries = append(entries, *res.(*T))
	}

	return entries, nil
}
