package csp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ext = "https://web.minusxapi.com"

func TestParse(t *testing.T) {
	p := Parse("default-src 'self';  FRAME-SRC 'self' https://a.example ;; upgrade-insecure-requests")

	require.Len(t, p.Directives, 3)
	assert.Equal(t, Directive{Name: "default-src", Sources: []string{"'self'"}}, p.Directives[0])
	assert.Equal(t, Directive{Name: "frame-src", Sources: []string{"'self'", "https://a.example"}}, p.Directives[1])
	assert.Equal(t, "upgrade-insecure-requests", p.Directives[2].Name)
	assert.Empty(t, p.Directives[2].Sources)
}

func TestMerge_existingDirective(t *testing.T) {
	p := Parse("default-src 'self'; frame-src 'self' https://a.example; img-src *")
	p.Merge("frame-src", ext)

	assert.Equal(t, "default-src 'self'; frame-src 'self' https://a.example "+ext+"; img-src *", p.String())
}

func TestMerge_missingDirective(t *testing.T) {
	p := Parse("default-src 'self'")
	p.Merge("frame-src", ext, "http://localhost:3005")

	assert.Equal(t, "default-src 'self'; frame-src "+ext+" http://localhost:3005", p.String())
}

func TestMerge_noDuplicates(t *testing.T) {
	p := Parse("frame-src " + ext + " 'self'")
	p.Merge("frame-src", ext)

	assert.Equal(t, "frame-src "+ext+" 'self'", p.String())
}

func TestMerge_nothingToAdd(t *testing.T) {
	p := Parse("default-src 'self'")
	p.Merge("frame-src")

	assert.Equal(t, "default-src 'self'", p.String())
}

func TestMerge_supersetAndIdempotent(t *testing.T) {
	headers := []string{
		"",
		"default-src 'self'",
		"frame-src 'self'",
		"frame-src 'self' https://a.example; connect-src 'self' wss://b.example",
		"connect-src *; frame-src 'none'",
		"frame-src " + ext,
	}
	names := []string{"frame-src", "connect-src"}
	additions := map[string][]string{
		"frame-src":   {ext, "http://localhost:3005"},
		"connect-src": {ext},
	}

	for _, header := range headers {
		before := Parse(header)
		once := Patch(header, names, additions)
		twice := Patch(once, names, additions)
		assert.Equal(t, once, twice, "patch must be idempotent for %q", header)

		after := Parse(once)
		for _, d := range before.Directives {
			patched, ok := after.Lookup(d.Name)
			require.True(t, ok, d.Name)
			assert.Equal(t, d.Sources, patched.Sources[:len(d.Sources)], "sources must keep order for %q", header)
		}
		for name, srcs := range additions {
			patched, ok := after.Lookup(name)
			require.True(t, ok)
			assert.Subset(t, patched.Sources, srcs)
		}
	}
}
