// Package feedback turns raw LLM evaluation text into structured
// per-criterion feedback. Parsing is pure and lenient: input that does not
// follow the expected convention yields fewer or zero sections, never an
// error, so the parser tolerates model output drift and old records are
// re-parsed with current logic on every read.
package feedback

import (
	"regexp"
	"strings"
)

// Section is one `# `-delimited block of the evaluation, bucketed into the
// three recognized sub-sections. Any bucket may be empty.
type Section struct {
	Title           string   `json:"title"`
	Positive        []string `json:"positive"`
	Improvement     []string `json:"improvement"`
	Recommendations []string `json:"recommendations"`
}

var (
	headerRe  = regexp.MustCompile(`^#\s+(.+)`)
	bulletRe  = regexp.MustCompile(`^-\s+`)
	dashRe    = regexp.MustCompile(`^-+\s*`)
	positive  = regexp.MustCompile(`(?i)^###\s*Positive Aspects`)
	improve   = regexp.MustCompile(`(?i)^###\s*Areas for Improvement`)
	recommend = regexp.MustCompile(`(?i)^###\s*Actionable Recommendations`)
)

// Parse splits raw evaluation text of the form
//
//	# Title
//	### Positive Aspects
//	- bullet
//	### Areas for Improvement
//	- bullet
//	### Actionable Recommendations
//	- bullet
//
// into ordered sections keyed by title. Bold markup (**) is stripped first.
// Blocks without a leading `# ` header are discarded. Bullets appearing
// before any recognized sub-header are dropped. A duplicate title keeps its
// first position but its content is replaced by the last occurrence.
func Parse(raw string) []Section {
	clean := strings.TrimSpace(strings.ReplaceAll(raw, "**", ""))
	if clean == "" {
		return []Section{}
	}

	out := make([]Section, 0, 4)
	index := map[string]int{}

	for _, block := range splitBlocks(clean) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		m := headerRe.FindStringSubmatch(block)
		if m == nil {
			continue
		}
		sec := Section{
			Title:           strings.TrimSpace(m[1]),
			Positive:        []string{},
			Improvement:     []string{},
			Recommendations: []string{},
		}

		var bucket *[]string
		for _, line := range strings.Split(block, "\n") {
			line = strings.TrimSpace(line)
			switch {
			case positive.MatchString(line):
				bucket = &sec.Positive
			case improve.MatchString(line):
				bucket = &sec.Improvement
			case recommend.MatchString(line):
				bucket = &sec.Recommendations
			case bucket != nil && bulletRe.MatchString(line):
				*bucket = append(*bucket, strings.TrimSpace(dashRe.ReplaceAllString(line, "")))
			}
		}

		if i, ok := index[sec.Title]; ok {
			out[i] = sec
			continue
		}
		index[sec.Title] = len(out)
		out = append(out, sec)
	}
	return out
}

// splitBlocks cuts the text ahead of every line that starts a single-#
// header. Text before the first header forms a headerless block that Parse
// discards.
func splitBlocks(s string) []string {
	lines := strings.Split(s, "\n")
	blocks := make([]string, 0, 4)
	var cur []string
	for _, line := range lines {
		if len(cur) > 0 && headerRe.MatchString(line) {
			blocks = append(blocks, strings.Join(cur, "\n"))
			cur = cur[:0]
		}
		cur = append(cur, line)
	}
	if len(cur) > 0 {
		blocks = append(blocks, strings.Join(cur, "\n"))
	}
	return blocks
}
