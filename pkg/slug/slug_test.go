// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package slug_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/tosho/pkg/slug"
)

func TestFrom(t *testing.T) {
	cases := map[string]string{
		"Moby Dick":             "moby-dick",
		"Crime & Punishment":    "crime-punishment",
		"Les Misérables":        "les-miserables",
		"  spaced   out  ":      "spaced-out",
		"UPPER_case.title":      "upper-case-title",
		"!!!":                   "",
		"":                      "",
		"already-a-valid-slug":  "already-a-valid-slug",
		"1984 — George Orwell":  "1984-george-orwell",
	}

	for input, want := range cases {
		got := slug.From(input)
		assert.Equal(t, want, got, "input %q", input)

		// Slugging a slug changes nothing.
		assert.Equal(t, got, slug.From(got), "input %q", input)
	}
}
