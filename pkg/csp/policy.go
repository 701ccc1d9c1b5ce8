// Package csp parses Content-Security-Policy headers into directives so
// sources can be added without string surgery on the raw header.
package csp

import (
	"slices"
	"strings"
)

// Directive is one policy clause, e.g. "frame-src 'self' https://a.example".
type Directive struct {
	Name    string
	Sources []string
}

// Policy keeps directives in header order.
type Policy struct {
	Directives []Directive
}

// Parse splits a header value into directives. Empty clauses are dropped and
// directive names are lower-cased. Sources keep their original spelling.
func Parse(header string) Policy {
	var p Policy
	for _, clause := range strings.Split(header, ";") {
		fields := strings.Fields(clause)
		if len(fields) == 0 {
			continue
		}
		p.Directives = append(p.Directives, Directive{
			Name:    strings.ToLower(fields[0]),
			Sources: fields[1:],
		})
	}
	return p
}

// Lookup returns the first directive called name.
func (p *Policy) Lookup(name string) (*Directive, bool) {
	name = strings.ToLower(name)
	for i := range p.Directives {
		if p.Directives[i].Name == name {
			return &p.Directives[i], true
		}
	}
	return nil, false
}

// Merge appends sources to the directive called name, skipping ones already
// listed. A missing directive is added at the end. Existing sources are never
// removed or reordered, so Merge is idempotent.
func (p *Policy) Merge(name string, sources ...string) {
	if len(sources) == 0 {
		return
	}
	d, ok := p.Lookup(name)
	if !ok {
		p.Directives = append(p.Directives, Directive{Name: strings.ToLower(name)})
		d = &p.Directives[len(p.Directives)-1]
	}
	for _, src := range sources {
		if !slices.Contains(d.Sources, src) {
			d.Sources = append(d.Sources, src)
		}
	}
}

// String renders the policy as a header value.
func (p Policy) String() string {
	clauses := make([]string, 0, len(p.Directives))
	for _, d := range p.Directives {
		if len(d.Sources) == 0 {
			clauses = append(clauses, d.Name)
			continue
		}
		clauses = append(clauses, d.Name+" "+strings.Join(d.Sources, " "))
	}
	return strings.Join(clauses, "; ")
}

// Patch merges additions (directive name to sources) into a header value.
// Directives are merged in the order given by names so output is stable.
func Patch(header string, names []string, additions map[string][]string) string {
	p := Parse(header)
	for _, name := range names {
		p.Merge(name, additions[name]...)
	}
	return p.String()
}
