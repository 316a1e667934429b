// Package format holds the canonical layout rules applied when dirty
// subtrees are regenerated. The rules are shipped as versioned data
// (rules.yaml) rather than per-element code so they can be re-derived from a
// reference-file corpus without touching the emitter.
package format

import (
	_ "embed"
	"fmt"
	"math"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var rulesYAML []byte

// Rules describes the canonical layout for one range of file-format
// versions, beginning at MinVersion.
type Rules struct {
	// MinVersion is the lowest document (version N) this table applies to.
	MinVersion int `yaml:"min_version"`
	// Indent is the per-level indentation unit.
	Indent string `yaml:"indent"`
	// Precision is the maximum number of fractional digits emitted for
	// numeric atoms; trailing zeros are always trimmed.
	Precision int `yaml:"precision"`
	// Runs lists, per parent tag, the child tags that share a single
	// wrapped line instead of each taking their own ((pts (xy ..) (xy ..))).
	Runs map[string][]string `yaml:"runs"`
	// QuotedArgs lists tags whose atom arguments are emitted as quoted
	// strings ((uuid "...") in newer formats, bare in older ones).
	QuotedArgs []string `yaml:"quoted_args"`
	// PropertyID selects the legacy (id N) sub-field of (property ...)
	// emitted by format versions before KiCad 7.
	PropertyID bool `yaml:"property_id"`

	quoted map[string]bool
}

type ruleFile struct {
	Tables []*Rules `yaml:"tables"`
}

var tables []*Rules

func init() {
	var f ruleFile
	if err := yaml.Unmarshal(rulesYAML, &f); err != nil {
		panic(fmt.Sprintf("format: embedded rules.yaml is invalid: %v", err))
	}
	if len(f.Tables) == 0 {
		panic("format: embedded rules.yaml defines no tables")
	}
	for _, t := range f.Tables {
		t.quoted = make(map[string]bool, len(t.QuotedArgs))
		for _, tag := range t.QuotedArgs {
			t.quoted[tag] = true
		}
	}
	sort.Slice(f.Tables, func(i, j int) bool {
		return f.Tables[i].MinVersion < f.Tables[j].MinVersion
	})
	tables = f.Tables
}

// ForVersion returns the rule table for a document format version: the
// entry with the highest MinVersion not exceeding version. Versions older
// than every table fall back to the oldest entry.
func ForVersion(version int) *Rules {
	r := tables[0]
	for _, t := range tables {
		if t.MinVersion > version {
			break
		}
		r = t
	}
	return r
}

// RunsInline reports whether childTag renders on a shared wrapped line
// under parentTag.
func (r *Rules) RunsInline(parentTag, childTag string) bool {
	for _, t := range r.Runs[parentTag] {
		if t == childTag {
			return true
		}
	}
	return false
}

// QuoteArgs reports whether atom arguments of the given tag are emitted
// quoted.
func (r *Rules) QuoteArgs(tag string) bool {
	return r.quoted[tag]
}

// Number renders a numeric atom: fixed notation, at most r.Precision
// fractional digits, trailing zeros trimmed ("127", "76.2", "0").
func (r *Rules) Number(v float64) string {
	prec := r.Precision
	if prec <= 0 {
		prec = 6
	}
	scale := math.Pow10(prec)
	v = math.Round(v*scale) / scale
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if s == "-0" {
		return "0"
	}
	return s
}
