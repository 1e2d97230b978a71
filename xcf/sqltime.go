package xcf

import (
	"fmt"
	"time"
)

// SQLTime lets the XcfIndex metadata table round-trip a build
// timestamp through sqlite regardless of whether the driver returns it
// as a unix epoch integer or a text datetime, mirroring bgen's
// own metadata Time type. Derived from
// https://github.com/mattn/go-sqlite3/issues/190#issuecomment-343341834f
type SQLTime time.Time

func (t *SQLTime) Scan(v interface{}) error {
	switch which := v.(type) {
	case int64:
		*t = SQLTime(time.Unix(which, 0))
		return nil
	case int:
		*t = SQLTime(time.Unix(int64(which), 0))
		return nil
	case []byte:
		vt, err := time.Parse("2006-01-02 15:04:05", string(which))
		if err != nil {
			return err
		}
		*t = SQLTime(vt)
		return nil
	case string:
		vt, err := time.Parse("2006-01-02 15:04:05", which)
		if err != nil {
			return err
		}
		*t = SQLTime(vt)
		return nil
	}
	return fmt.Errorf("no appropriate type could be found to decode %v", v)
}

func (t SQLTime) Time() time.Time { return time.Time(t) }
