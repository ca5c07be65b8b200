package sqlparser

import (
	"testing"

	"github.com/sergiosegrera/ts-goose/internal/check"
)

func TestScanLine(t *testing.T) {
	t.Parallel()

	t.Run("terminators", func(t *testing.T) {
		res := scanLine("SELECT 1; SELECT ';'; -- ;", quoteContext{})
		check.Equal(t, res.ends, []int{9, 21})
		check.Bool(t, res.lineComment, true)
		check.Bool(t, res.next.active(), false)
	})
	t.Run("carries_single_quote", func(t *testing.T) {
		res := scanLine("INSERT INTO t VALUES ('abc;", quoteContext{})
		check.Number(t, len(res.ends), 0)
		check.Bool(t, res.next.singleQuote, true)

		res = scanLine("def');", res.next)
		check.Equal(t, res.ends, []int{6})
		check.Bool(t, res.next.active(), false)
	})
	t.Run("carries_dollar_tag", func(t *testing.T) {
		res := scanLine("AS $body$ BEGIN;", quoteContext{})
		check.Number(t, len(res.ends), 0)
		check.Bool(t, res.next.inDollar, true)
		check.Equal(t, res.next.dollarTag, "body")

		res = scanLine("$$ still inside; $body$;", res.next)
		check.Equal(t, res.ends, []int{24})
		check.Bool(t, res.next.inDollar, false)
	})
	t.Run("dollar_in_identifier", func(t *testing.T) {
		res := scanLine("CREATE TABLE sys$log$data (id int);", quoteContext{})
		check.Equal(t, res.ends, []int{35})
		check.Bool(t, res.next.inDollar, false)

		res = scanLine("SELECT x$$ FROM t; SELECT $$;$$;", quoteContext{})
		check.Equal(t, res.ends, []int{18, 32})
		check.Bool(t, res.next.inDollar, false)
	})
	t.Run("carries_block_comment", func(t *testing.T) {
		res := scanLine("SELECT 1 /* ;", quoteContext{})
		check.Bool(t, res.next.blockComment, true)
		res = scanLine("-- not a line comment */ ;", res.next)
		check.Bool(t, res.lineComment, false)
		check.Equal(t, res.ends, []int{26})
	})
	t.Run("line_comment_inside_quote", func(t *testing.T) {
		res := scanLine("SELECT '-- x;';", quoteContext{})
		check.Bool(t, res.lineComment, false)
		check.Equal(t, res.ends, []int{15})
	})
}

func TestDollarOpener(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		tag   string
		width int
		ok    bool
	}{
		{input: "$$", tag: "", width: 2, ok: true},
		{input: "$fn$ body", tag: "fn", width: 4, ok: true},
		{input: "$_a1$", tag: "_a1", width: 5, ok: true},
		{input: "$1", ok: false},
		{input: "$1$", ok: false},
		{input: "$abc", ok: false},
		{input: "$", ok: false},
		{input: "$a-b$", ok: false},
	}
	for _, tc := range tests {
		tag, width, ok := dollarOpener(tc.input)
		if ok != tc.ok || tag != tc.tag || width != tc.width {
			t.Errorf("dollarOpener(%q) = (%q, %d, %v), want (%q, %d, %v)", tc.input, tag, width, ok, tc.tag, tc.width, tc.ok)
		}
	}
}

func TestIsCommentOnly(t *testing.T) {
	t.Parallel()

	check.Bool(t, isCommentOnly(""), true)
	check.Bool(t, isCommentOnly(" ;\n"), true)
	check.Bool(t, isCommentOnly("-- a\n/* b\n c */"), true)
	check.Bool(t, isCommentOnly("/* a */ SELECT 1"), false)
	check.Bool(t, isCommentOnly("SELECT '/* not a comment */'"), false)
	check.Bool(t, isCommentOnly("SELECT $$ -- body $$"), false)
}
