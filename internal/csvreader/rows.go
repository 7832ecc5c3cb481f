package csvreader

// Row maps a column name to its trimmed value. Empty cells are absent.
type Row map[string]string

// Get returns the value of col, or "" when the cell was empty or missing
func (r Row) Get(col string) string {
	return r[col]
}

// Has reports whether col carries a non-empty value
func (r Row) Has(col string) bool {
	_, ok := r[col]
	return ok
}

// Rows is the decoded, framed content of one file. It is immutable once
// built and can be iterated any number of times.
type Rows struct {
	header  []string
	records []Row
}

// NewRows builds a buffer directly, used when rows don't come from a file
func NewRows(header []string, records []Row) *Rows {
	return &Rows{header: header, records: records}
}

// Header returns the literal column list, duplicates included
func (r *Rows) Header() []string {
	out := make([]string, len(r.header))
	copy(out, r.header)
	return out
}

// Len is the number of data rows after the header
func (r *Rows) Len() int {
	return len(r.records)
}

// At returns the data row at zero-based index i
func (r *Rows) At(i int) Row {
	return r.records[i]
}

// Batches calls fn with consecutive slices of at most size rows. start is
// the zero-based index of the first row in the batch.
func (r *Rows) Batches(size int, fn func(start int, batch []Row) error) error {
	if size <= 0 {
		size = 1
	}
	for start := 0; start < len(r.records); start += size {
		end := start + size
		if end > len(r.records) {
			end = len(r.records)
		}
		if err := fn(start, r.records[start:end]); err != nil {
			return err
		}
	}
	return nil
}
