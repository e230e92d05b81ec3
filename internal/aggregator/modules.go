package aggregator

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/atikulmunna/modusage/internal/model"
)

// HashAlgo selects the digest used for computed module hashes.
type HashAlgo string

const (
	MD5     HashAlgo = "md5"
	SHA256  HashAlgo = "sha256"
	BLAKE2b HashAlgo = "blake2b"
)

// computedHashLen matches the length of the hashes embedded in module specs.
const computedHashLen = 7

// ParseHashAlgo accepts md5, sha256 or blake2b.
func ParseHashAlgo(s string) (HashAlgo, error) {
	switch a := HashAlgo(strings.ToLower(s)); a {
	case MD5, SHA256, BLAKE2b:
		return a, nil
	default:
		return "", fmt.Errorf("unknown hash algorithm %q (want md5, sha256 or blake2b)", s)
	}
}

func (a HashAlgo) hasher() hash.Hash {
	switch a {
	case MD5:
		return md5.New()
	case BLAKE2b:
		h, _ := blake2b.New256(nil) // only fails for oversized keys
		return h
	default:
		return sha256.New()
	}
}

// PathHash digests an install path and shortens it to the embedded hash length.
func PathHash(path string, algo HashAlgo) string {
	h := algo.hasher()
	h.Write([]byte(path))
	return hex.EncodeToString(h.Sum(nil))[:computedHashLen]
}

// ModuleOptions control how module identity is built and which records
// take part.
type ModuleOptions struct {
	// ComputeHash replaces the embedded hash with a digest of the path.
	ComputeHash bool
	HashAlgo    HashAlgo

	// Instances keeps only keys containing one of these substrings.
	// Matching is case-sensitive.
	Instances []string

	// RootPrefix keeps only records whose path starts with it.
	RootPrefix string
}

// ModuleKey builds name/version[/hash] for rec.
func ModuleKey(rec model.Record, opts ModuleOptions) string {
	var b strings.Builder
	b.WriteString(rec.ModuleName)
	if rec.Version != nil {
		b.WriteByte('/')
		b.WriteString(*rec.Version)
	}

	switch {
	case opts.ComputeHash:
		if rec.Path != nil {
			b.WriteByte('/')
			b.WriteString(PathHash(*rec.Path, opts.HashAlgo))
		}
	case rec.Hash != nil:
		b.WriteByte('/')
		b.WriteString(*rec.Hash)
	}
	return b.String()
}

// moduleKeys yields the key of every record that passes the filters.
func moduleKeys(tbl model.Table, opts ModuleOptions, yield func(key string, rec model.Record)) {
	for _, rec := range tbl {
		if opts.RootPrefix != "" && !strings.HasPrefix(model.Value(rec.Path), opts.RootPrefix) {
			continue
		}
		key := ModuleKey(rec, opts)
		if len(opts.Instances) > 0 && !containsAny(key, opts.Instances) {
			continue
		}
		yield(key, rec)
	}
}

// UniqueModules counts records per module key.
func UniqueModules(tbl model.Table, opts ModuleOptions) Report {
	c := newCounter()
	moduleKeys(tbl, opts, func(key string, _ model.Record) {
		c.add(key)
	})
	return c.report("Module")
}

// Find counts the records whose module key or bare module name equals
// keyword exactly. It returns ErrNotFound when there are none.
func Find(tbl model.Table, keyword string, opts ModuleOptions) (int, error) {
	n := 0
	moduleKeys(tbl, opts, func(key string, rec model.Record) {
		if key == keyword || rec.ModuleName == keyword {
			n++
		}
	})
	if n == 0 {
		return 0, ErrNotFound
	}
	return n, nil
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
