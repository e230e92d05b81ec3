package parser

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/atikulmunna/modusage/internal/model"
)

// TestParseInvariants checks the version/hash rules over generated
// well-formed lines.
func TestParseInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)
	p := New(Options{Location: time.UTC})

	segment := gen.Identifier()

	properties.Property("well-formed lines always parse, deterministically", prop.ForAll(
		func(user, name string, segs []string, ts int64) bool {
			line := buildLine(user, name, segs, ts)
			a, errA := p.Parse(line)
			b, errB := p.Parse(line)
			return errA == nil && errB == nil && reflect.DeepEqual(a, b)
		},
		segment, segment, gen.SliceOfN(3, segment), gen.Int64Range(0, 4102444800),
	))

	properties.Property("version set iff at least two segments", prop.ForAll(
		func(name string, segs []string) bool {
			rec, err := p.Parse(buildLine("u", name, segs, 0))
			if err != nil {
				return false
			}
			return (rec.Version != nil) == (len(segs) >= 1)
		},
		segment, gen.SliceOf(segment).Map(truncate(2)),
	))

	properties.Property("hash set iff third segment has length seven", prop.ForAll(
		func(name, version, third string) bool {
			rec, err := p.Parse(buildLine("u", name, []string{version, third}, 0))
			if err != nil {
				return false
			}
			if len(third) == 7 {
				return model.Value(rec.Hash) == third
			}
			return rec.Hash == nil
		},
		segment, segment, gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func truncate(n int) func([]string) []string {
	return func(s []string) []string {
		if len(s) > n {
			return s[:n]
		}
		return s
	}
}

func buildLine(user, name string, segs []string, ts int64) string {
	spec := name
	for _, s := range segs {
		spec += "/" + s
	}
	return fmt.Sprintf("host tag: username=%s euid=1 egid=1 module=%s path=/apps/%s x unix_time=%d", user, spec, name, ts)
}
