// Package format converts Slack-formatted message text into clean plain
// text suitable for a chat completion request.
//
// Slack wraps mentions, channel references, and links in angle-bracket
// tokens and uses single-character emphasis markers. The completion API
// should see none of that, so Normalize applies a fixed, ordered pipeline
// of substitution rules:
//
//  1. user mentions <@U123> / <@U123|bob> are removed entirely
//  2. channel references <#C123> / <#C123|general> are removed entirely
//  3. links <url|label> become label, bare <url> is unwrapped to url
//  4. emphasis markers *bold*, _italic_, `code`, ~strike~ are stripped,
//     keeping the inner text
//  5. runs of whitespace collapse to a single space and the result is
//     trimmed
//
// The order matters: mentions and channel references must be removed
// before the link rules, or the link rules would unwrap them instead.
// Emphasis matching is non-greedy, so several independent emphasized
// spans on one line are each stripped; an unmatched single marker is
// left unchanged. The pipeline repeats until the text is stable, so
// stacked markers and nested angle tokens strip fully in one call and
// Normalize is idempotent.
package format

import (
	"regexp"
	"strings"
)

// rule is a single substitution step in the normalization pipeline.
type rule struct {
	name    string
	pattern *regexp.Regexp
	repl    string
}

// rules is the ordered pipeline applied by Normalize. Each rule is
// independent and testable in isolation via apply.
var rules = []rule{
	{"user_mention", regexp.MustCompile(`<@\w+(?:\|[^>]*)?>`), ""},
	{"channel_ref", regexp.MustCompile(`<#\w+(?:\|[^>]*)?>`), ""},
	{"labeled_link", regexp.MustCompile(`<[^<>|]+\|([^<>]+)>`), "$1"},
	{"bare_link", regexp.MustCompile(`<([^<>|]+)>`), "$1"},
	{"bold", regexp.MustCompile(`\*(.+?)\*`), "$1"},
	{"italic", regexp.MustCompile(`_(.+?)_`), "$1"},
	{"code", regexp.MustCompile("`(.+?)`"), "$1"},
	{"strike", regexp.MustCompile(`~(.+?)~`), "$1"},
}

var whitespace = regexp.MustCompile(`\s+`)

// apply runs a single rule against text.
func (r rule) apply(text string) string {
	return r.pattern.ReplaceAllString(text, r.repl)
}

// Normalize transforms raw Slack message text into plain text. It never
// fails; an empty input yields an empty output.
//
// The rule pipeline runs to a fixed point: a single pass over doubled
// markers like **a** or nested tokens like <<url>> leaves re-matchable
// residue, so passes repeat until the text stops changing. Every rule
// strictly shrinks the text when it matches, so the loop terminates.
func Normalize(raw string) string {
	text := raw
	for {
		next := text
		for _, r := range rules {
			next = r.apply(next)
		}
		if next == text {
			break
		}
		text = next
	}
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}
