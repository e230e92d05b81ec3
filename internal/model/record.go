package model

// Record is one successfully parsed module-usage line.
// Version, Hash and Path are nil when the line does not carry them.
type Record struct {
	Username   string  `json:"username" parquet:"username"`
	EUID       string  `json:"euid" parquet:"euid"`
	EGID       string  `json:"egid" parquet:"egid"`
	ModuleName string  `json:"module_name" parquet:"module_name"`
	Version    *string `json:"version,omitempty" parquet:"version,optional"`
	Hash       *string `json:"hash,omitempty" parquet:"hash,optional"` // always 7 chars when set
	Path       *string `json:"path,omitempty" parquet:"path,optional"`
	UnixTime   string  `json:"unix_time" parquet:"unix_time"` // seconds since epoch, may be fractional
	Date       string  `json:"date" parquet:"date"`           // MM-DD-YYYY
	Time       string  `json:"time" parquet:"time"`           // HH:MM:SS
}

// Columns lists the persisted column names in order.
var Columns = []string{
	"username", "euid", "egid", "module_name", "version",
	"hash", "path", "unix_time", "date", "time",
}

// Headers are the console column titles, in the same order as Columns.
var Headers = []string{
	"Username", "euid", "egid", "Module Name", "Version",
	"Hash Value", "Path", "Unix Time", "Date", "Time",
}

// Str returns a pointer to s, for populating optional fields.
func Str(s string) *string { return &s }

// Value dereferences an optional field, returning "" when absent.
func Value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Fields returns the record as strings in Columns order.
func (r Record) Fields() []string {
	return []string{
		r.Username, r.EUID, r.EGID, r.ModuleName, Value(r.Version),
		Value(r.Hash), Value(r.Path), r.UnixTime, r.Date, r.Time,
	}
}

// Table is the ordered set of parsed records, in file-then-line order.
type Table []Record
