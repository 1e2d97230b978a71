//go:build !cgo

package xcf

import (
	"strings"

	"github.com/jmoiron/sqlx"

	_ "modernc.org/sqlite"
)

// Without cgo, the pure-Go modernc.org/sqlite driver backs the
// XcfIndex. It is slower but keeps the toolbox cross-compilable
// without a C toolchain, matching bgen's own cgo/non-cgo split.
const whichSQLiteDriver = "sqlite"

func connectXcfIndexDB(path string) (*sqlx.DB, error) {
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	db, err := sqlx.Connect(whichSQLiteDriver, path)
	if err != nil {
		return nil, err
	}
	// See https://www.rockyourcode.com/til-sqlite-foreign-key-support-with-go/
	// and https://twitter.com/frioux/status/1483235674228596739
	if _, err := db.DB.Exec(`
	PRAGMA journal_mode = OFF;
	PRAGMA synchronous = OFF;
	PRAGMA auto_vacuum = NONE;
	`); err != nil {
		return nil, err
	}
	return db, nil
}
