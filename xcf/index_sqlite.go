package xcf

import (
	"os"

	"github.com/jmoiron/sqlx"
)

// XcfIndex is a SQLite-backed random-access index over a companion
// file's INFO/SEEK entries, letting a reader jump straight to a
// region's byte range in the side-car without a linear scan of the
// text companion. It mirrors bgen's own BGIIndex (a sqlx.DB
// handle plus a small metadata row), generalized from BGEN's
// (chrom, pos, rsid, alleles, offset, size) schema to XCF's
// (chrom, pos, rsid, record type, hi30, lo30, nbytes) SEEK tuple.
type XcfIndex struct {
	DB       *sqlx.DB
	Metadata *IndexMetadata
}

// IndexMetadata is the single summary row written once an index build
// completes; absent on an index still being populated.
type IndexMetadata struct {
	Filename    string
	NumSamples  int     `db:"num_samples"`
	NumVariants int     `db:"num_variants"`
	BuildTime   SQLTime `db:"build_time"`
}

// IndexedSeek is one row of the SeekEntry table: a site's location
// plus the Seek tuple needed to read its payload back out of the
// side-car.
type IndexedSeek struct {
	Chrom  string
	Pos    uint32
	Rsid   string
	Type   int32
	Hi30   int32
	Lo30   int32
	NBytes int32
}

func (s IndexedSeek) Seek() Seek {
	return Seek{Type: RecordType(s.Type), Hi30: s.Hi30, Lo30: s.Lo30, NBytes: s.NBytes}
}

const xcfIndexSchema = `
CREATE TABLE IF NOT EXISTS SeekEntry (
	chrom   TEXT    NOT NULL,
	pos     INTEGER NOT NULL,
	rsid    TEXT    NOT NULL,
	type    INTEGER NOT NULL,
	hi30    INTEGER NOT NULL,
	lo30    INTEGER NOT NULL,
	nbytes  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_seekentry_chrom_pos ON SeekEntry(chrom, pos);
CREATE TABLE IF NOT EXISTS Metadata (
	filename     TEXT,
	num_samples  INTEGER,
	num_variants INTEGER,
	build_time   INTEGER
);
`

// CreateXcfIndex creates (or truncates, if it already exists) the
// SQLite file at path and prepares it to receive Put calls.
func CreateXcfIndex(path string) (*XcfIndex, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, wrapErr("xcf.CreateXcfIndex", KindIO, err)
	}
	db, err := connectXcfIndexDB(path)
	if err != nil {
		return nil, wrapErr("xcf.CreateXcfIndex", KindIO, err)
	}
	if _, err := db.Exec(xcfIndexSchema); err != nil {
		db.Close()
		return nil, wrapErr("xcf.CreateXcfIndex", KindIO, err)
	}
	return &XcfIndex{DB: db}, nil
}

// OpenXcfIndex opens an existing index for lookups.
func OpenXcfIndex(path string) (*XcfIndex, error) {
	db, err := connectXcfIndexDB(path)
	if err != nil {
		return nil, wrapErr("xcf.OpenXcfIndex", KindIO, err)
	}
	idx := &XcfIndex{DB: db, Metadata: &IndexMetadata{}}
	// Not every index has been finalized with metadata; ignore any error.
	_ = idx.DB.Get(idx.Metadata, "SELECT * FROM Metadata LIMIT 1")
	return idx, nil
}

// Put records one site's Seek tuple.
func (x *XcfIndex) Put(site Site, seek Seek) error {
	_, err := x.DB.Exec(
		`INSERT INTO SeekEntry (chrom, pos, rsid, type, hi30, lo30, nbytes) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		site.Chrom, site.Pos, site.Rsid, int32(seek.Type), seek.Hi30, seek.Lo30, seek.NBytes,
	)
	if err != nil {
		return wrapErr("xcf.XcfIndex.Put", KindIO, err)
	}
	return nil
}

// Finalize writes the summary Metadata row once indexing is complete.
func (x *XcfIndex) Finalize(filename string, numSamples int) error {
	var numVariants int
	if err := x.DB.Get(&numVariants, `SELECT COUNT(*) FROM SeekEntry`); err != nil {
		return wrapErr("xcf.XcfIndex.Finalize", KindIO, err)
	}
	_, err := x.DB.Exec(
		`INSERT INTO Metadata (filename, num_samples, num_variants, build_time) VALUES (?, ?, ?, strftime('%s','now'))`,
		filename, numSamples, numVariants,
	)
	if err != nil {
		return wrapErr("xcf.XcfIndex.Finalize", KindIO, err)
	}
	return nil
}

// Lookup returns every SeekEntry at exactly (chrom, pos).
func (x *XcfIndex) Lookup(chrom string, pos uint32) ([]IndexedSeek, error) {
	var rows []IndexedSeek
	err := x.DB.Select(&rows, `SELECT chrom, pos, rsid, type, hi30, lo30, nbytes FROM SeekEntry WHERE chrom = ? AND pos = ?`, chrom, pos)
	if err != nil {
		return nil, wrapErr("xcf.XcfIndex.Lookup", KindIO, err)
	}
	return rows, nil
}

// LookupRange returns every SeekEntry with chrom and pos in
// [start, end], ordered by position.
func (x *XcfIndex) LookupRange(chrom string, start, end uint32) ([]IndexedSeek, error) {
	var rows []IndexedSeek
	err := x.DB.Select(&rows,
		`SELECT chrom, pos, rsid, type, hi30, lo30, nbytes FROM SeekEntry WHERE chrom = ? AND pos BETWEEN ? AND ? ORDER BY pos`,
		chrom, start, end,
	)
	if err != nil {
		return nil, wrapErr("xcf.XcfIndex.LookupRange", KindIO, err)
	}
	return rows, nil
}

// Close releases the underlying SQLite handle.
func (x *XcfIndex) Close() error {
	return x.DB.Close()
}
