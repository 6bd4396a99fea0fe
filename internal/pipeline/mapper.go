package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/markozagar94/paycheck-tracker/constants"
	"github.com/markozagar94/paycheck-tracker/internal/common"
	"github.com/markozagar94/paycheck-tracker/internal/warehouse"
)

// FieldMapping renames extracted field names to warehouse column names.
// Unmapped keys pass through unchanged, they are not dropped.
type FieldMapping map[string]string

// LoadFieldMapping reads the mapping dictionary from a JSON file.
func LoadFieldMapping(path string) (FieldMapping, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, common.NewAppError("MAPPING_ERROR", "reading field mapping "+path, err)
	}
	var m FieldMapping
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, common.NewAppError("MAPPING_ERROR", "unmarshal field mapping", err)
	}
	return m, nil
}

// MapFields rewrites keys per the mapping and stamps provenance: the source
// filename (basename only) and the load timestamp, captured here at mapping
// time rather than at extraction time.
func MapFields(rec map[string]any, mapping FieldMapping, sourceFile string, loadTime time.Time) warehouse.Row {
	row := make(warehouse.Row, len(rec)+2)
	for key, value := range rec {
		if mapped, ok := mapping[key]; ok {
			row[mapped] = value
		} else {
			row[key] = value
		}
	}
	row[constants.FileNameColumn] = filepath.Base(sourceFile)
	row[constants.LoadDateColumn] = loadTime.Unix()
	return row
}
