//go:build cgo

package xcf

import (
	"strings"

	"github.com/jmoiron/sqlx"

	_ "github.com/mattn/go-sqlite3"
)

// If cgo is enabled, the faster mattn/go-sqlite3 cgo driver backs the
// XcfIndex, matching bgen's own cgo/non-cgo split.
const whichSQLiteDriver = "sqlite3"

func connectXcfIndexDB(path string) (*sqlx.DB, error) {
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	return sqlx.Connect(whichSQLiteDriver, path)
}
