package constants

// Field and column names shared between the parser, the mapper and the
// warehouse schema.
const (
	// SalaryDateField is the extracted field holding the payment date. It is
	// also the merge key column in the destination table.
	SalaryDateField = "salary_date"

	// CurrencyField is set by the normalizer on every record.
	CurrencyField = "Currency"

	// FileNameColumn and LoadDateColumn are provenance columns written by the
	// field mapper.
	FileNameColumn = "file_name"
	LoadDateColumn = "load_date"
)

// PDFMimeType is the only attachment MIME type the inbox source accepts.
const PDFMimeType = "application/pdf"

// Warehouse dialects supported by the loader.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)
