package catalog

// Catalog defines the persisted views of the pipeline that transports query.
// Consumers depend on this interface rather than *DB.
type Catalog interface {
	RecordCycle(c CycleRow) error
	ListCycles(limit int) ([]CycleRow, error)
	ReplaceFiles(files []FileRow) error
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies Catalog at compile time.
var _ Catalog = (*DB)(nil)
