package parser

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/atikulmunna/modusage/internal/model"
)

// marker is the token that anchors the positional fields of a usage line.
const marker = "username"

// Positions of the fields after the marker, once split on whitespace.
const (
	tokUsername = iota
	tokEUID
	tokEGID
	tokModule
	tokPath
	_ // unused
	tokUnixTime

	minTokens
)

const hashLen = 7

const (
	DateLayout = "01-02-2006"
	TimeLayout = "15:04:05"
)

var (
	// ErrMalformedLine marks a line that cannot be turned into a Record.
	ErrMalformedLine = errors.New("malformed line")

	// ErrExcluded marks a well-formed line dropped by a configured filter.
	ErrExcluded = errors.New("line excluded")
)

// LineError explains why a single line was skipped.
type LineError struct {
	Reason string
	Err    error
}

func (e *LineError) Error() string { return e.Err.Error() + ": " + e.Reason }

func (e *LineError) Unwrap() error { return e.Err }

func malformed(format string, args ...any) error {
	return &LineError{Reason: fmt.Sprintf(format, args...), Err: ErrMalformedLine}
}

func excluded(format string, args ...any) error {
	return &LineError{Reason: fmt.Sprintf(format, args...), Err: ErrExcluded}
}

// Options tune which lines are accepted.
type Options struct {
	// Location is used to derive Date and Time. Nil means time.Local.
	Location *time.Location

	// SkipAmbiguous drops lines that contain the marker more than once.
	SkipAmbiguous bool

	// ExcludeMarkers drops any line containing one of these substrings.
	ExcludeMarkers []string

	// AllowedPrefixes, when non-empty, keeps only lines whose path starts
	// with one of them.
	AllowedPrefixes []string
}

// Parser converts module-usage log lines into Records.
// It holds no mutable state and is safe to reuse.
type Parser struct {
	opts Options
}

func New(opts Options) *Parser {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Parser{opts: opts}
}

// Parse extracts a Record from raw. On failure the returned error is a
// *LineError wrapping ErrMalformedLine or ErrExcluded and the Record is zero.
func (p *Parser) Parse(raw string) (model.Record, error) {
	idx := strings.Index(raw, marker)
	if idx < 0 {
		return model.Record{}, malformed("no %q marker", marker)
	}
	if p.opts.SkipAmbiguous && strings.Count(raw, marker) > 1 {
		return model.Record{}, excluded("ambiguous: %q appears more than once", marker)
	}
	for _, m := range p.opts.ExcludeMarkers {
		if m != "" && strings.Contains(raw, m) {
			return model.Record{}, excluded("contains excluded marker %q", m)
		}
	}

	tokens := strings.Fields(raw[idx:])
	if len(tokens) < minTokens {
		return model.Record{}, malformed("expected at least %d tokens after %q, got %d", minTokens, marker, len(tokens))
	}

	var rec model.Record
	var err error
	if rec.Username, err = required(tokens, tokUsername, "username"); err != nil {
		return model.Record{}, err
	}
	if rec.EUID, err = required(tokens, tokEUID, "euid"); err != nil {
		return model.Record{}, err
	}
	if rec.EGID, err = required(tokens, tokEGID, "egid"); err != nil {
		return model.Record{}, err
	}

	spec, err := required(tokens, tokModule, "module")
	if err != nil {
		return model.Record{}, err
	}
	rec.ModuleName, rec.Version, rec.Hash = SplitModule(spec)

	unix, err := required(tokens, tokUnixTime, "unix time")
	if err != nil {
		return model.Record{}, err
	}
	unix = strings.TrimRightFunc(unix, unicode.IsSpace)
	ts, err := parseUnix(unix)
	if err != nil {
		return model.Record{}, malformed("unix time %q: %v", unix, err)
	}
	local := ts.In(p.opts.Location)

	// The prefix filter only sees lines that are otherwise well formed, so a
	// malformed line is always counted as malformed.
	if v, ok := value(tokens[tokPath]); ok && v != "" {
		rec.Path = model.Str(v)
	}
	if len(p.opts.AllowedPrefixes) > 0 && !hasAnyPrefix(model.Value(rec.Path), p.opts.AllowedPrefixes) {
		return model.Record{}, excluded("path %q outside allowed prefixes", model.Value(rec.Path))
	}

	rec.UnixTime = unix
	rec.Date = local.Format(DateLayout)
	rec.Time = local.Format(TimeLayout)
	return rec, nil
}

// SplitModule splits a name[/version[/hash]] module spec. The hash is only
// returned when the third segment is exactly seven characters long.
func SplitModule(spec string) (name string, version, hash *string) {
	parts := strings.Split(spec, "/")
	name = parts[0]
	if len(parts) > 1 {
		version = model.Str(parts[1])
	}
	if len(parts) > 2 && len(parts[2]) == hashLen {
		hash = model.Str(parts[2])
	}
	return name, version, hash
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// value returns the text after the first '=' in tok.
func value(tok string) (string, bool) {
	i := strings.IndexByte(tok, '=')
	if i < 0 {
		return "", false
	}
	return tok[i+1:], true
}

func required(tokens []string, pos int, name string) (string, error) {
	v, ok := value(tokens[pos])
	if !ok {
		return "", malformed("%s token %q has no '='", name, tokens[pos])
	}
	return v, nil
}

func parseUnix(s string) (time.Time, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, errors.New("not a finite number")
	}
	// float64(math.MaxInt64) rounds up to 2^63, hence >=.
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return time.Time{}, errors.New("out of range")
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)), nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
