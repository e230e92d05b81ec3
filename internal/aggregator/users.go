package aggregator

import "github.com/atikulmunna/modusage/internal/model"

// UniqueUsers counts records per username.
func UniqueUsers(tbl model.Table) Report {
	c := newCounter()
	for _, rec := range tbl {
		c.add(rec.Username)
	}
	return c.report("Username")
}
