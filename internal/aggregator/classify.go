package aggregator

import (
	"strings"

	"github.com/atikulmunna/modusage/internal/model"
)

// Class is the hardware partition a module was built for.
type Class string

const (
	CPU   Class = "CPU"
	GPU   Class = "GPU"
	Other Class = "Other"
)

// ClassifyPath reports CPU when path contains "cpu", else GPU when it
// contains "gpu", else Other. A missing path is Other.
func ClassifyPath(path *string) Class {
	p := model.Value(path)
	switch {
	case strings.Contains(p, "cpu"):
		return CPU
	case strings.Contains(p, "gpu"):
		return GPU
	default:
		return Other
	}
}

// Classify counts records per Class.
func Classify(tbl model.Table) Report {
	c := newCounter()
	for _, rec := range tbl {
		c.add(string(ClassifyPath(rec.Path)))
	}
	return c.report("Class")
}
