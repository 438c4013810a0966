package corpus

import (
	"fmt"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// urlColumnNames are the recognized source-URL column names, matched
// case-insensitively against the parquet schema.
var urlColumnNames = map[string]struct{}{
	"url":       {},
	"link":      {},
	"source":    {},
	"referensi": {},
}

// columnBinding holds the leaf-level parquet column indexes resolved once at
// load time. -1 marks an absent optional column.
type columnBinding struct {
	text     int
	textName string
	parentID int
	url      int
	urlName  string
}

// resolveColumns binds the chunk table schema. The text column is
// jawaban_bersih when present, chunk_text otherwise; parent_id and the URL
// column are optional.
func resolveColumns(pf *parquet.File) (columnBinding, error) {
	cols := columnBinding{text: -1, parentID: -1, url: -1}
	textFallback := -1

	for i, path := range pf.Schema().Columns() {
		if len(path) == 0 {
			continue
		}
		name := path[0]
		switch name {
		case "jawaban_bersih":
			cols.text = i
			cols.textName = name
		case "chunk_text":
			textFallback = i
		case "parent_id":
			cols.parentID = i
		}
		if cols.url == -1 {
			if _, ok := urlColumnNames[strings.ToLower(name)]; ok {
				cols.url = i
				cols.urlName = name
			}
		}
	}

	if cols.text == -1 && textFallback != -1 {
		cols.text = textFallback
		cols.textName = "chunk_text"
	}
	if cols.text == -1 {
		return cols, fmt.Errorf("chunk table has neither jawaban_bersih nor chunk_text column")
	}
	return cols, nil
}
