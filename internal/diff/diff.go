// Package diff compares two corpora passage by passage, typically two
// editions derived from the same source.
package diff

import (
	"fmt"
	"io"
	"strings"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"

	"github.com/FocuswithJustin/CitableCorpus/core/corpus"
)

// Change is a passage whose text differs between the two sides.
type Change struct {
	// Ref is the passage reference shared by both sides.
	Ref   string
	Left  string
	Right string
	// Unified is a word-level unified diff: one word per line.
	Unified string
}

// Report is the result of Compare.
type Report struct {
	Changed   []Change
	OnlyLeft  []string
	OnlyRight []string
	Same      int
}

// Equal reports whether both corpora hold the same texts under the same
// references.
func (r Report) Equal() bool {
	return len(r.Changed) == 0 && len(r.OnlyLeft) == 0 && len(r.OnlyRight) == 0
}

// Compare aligns left and right by passage reference, ignoring the work
// component of their URNs, so that two editions of one text line up. When a
// reference repeats, its first passage is used. Changes follow left's order.
func Compare(left, right *corpus.Corpus) Report {
	rightByRef := map[string]corpus.Passage{}
	var rightOrder []string
	for _, p := range right.Passages() {
		ref := p.URN().Passage()
		if _, ok := rightByRef[ref]; !ok {
			rightByRef[ref] = p
			rightOrder = append(rightOrder, ref)
		}
	}

	var report Report
	seen := map[string]bool{}
	for _, lp := range left.Passages() {
		ref := lp.URN().Passage()
		if seen[ref] {
			continue
		}
		seen[ref] = true

		rp, ok := rightByRef[ref]
		if !ok {
			report.OnlyLeft = append(report.OnlyLeft, ref)
			continue
		}
		if lp.Text() == rp.Text() {
			report.Same++
			continue
		}
		report.Changed = append(report.Changed, Change{
			Ref:     ref,
			Left:    lp.URN().String(),
			Right:   rp.URN().String(),
			Unified: unified(lp.URN().String(), rp.URN().String(), lp.Text(), rp.Text()),
		})
	}
	for _, ref := range rightOrder {
		if !seen[ref] {
			report.OnlyRight = append(report.OnlyRight, ref)
		}
	}
	return report
}

func unified(from, to, a, b string) string {
	a, b = wordLines(a), wordLines(b)
	edits := myers.ComputeEdits(span.URIFromPath(from), a, b)
	return fmt.Sprint(gotextdiff.ToUnified(from, to, a, edits))
}

// wordLines puts each whitespace-separated word on its own line.
func wordLines(s string) string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}
	return strings.Join(words, "\n") + "\n"
}

// Write prints the report: every changed passage's diff, then the
// references found on only one side, then a summary line.
func (r Report) Write(w io.Writer) error {
	var sb strings.Builder
	for _, c := range r.Changed {
		sb.WriteString(c.Unified)
	}
	for _, ref := range r.OnlyLeft {
		fmt.Fprintf(&sb, "only in left: %s\n", ref)
	}
	for _, ref := range r.OnlyRight {
		fmt.Fprintf(&sb, "only in right: %s\n", ref)
	}
	fmt.Fprintf(&sb, "%d changed, %d identical, %d only left, %d only right\n",
		len(r.Changed), r.Same, len(r.OnlyLeft), len(r.OnlyRight))
	_, err := io.WriteString(w, sb.String())
	return err
}
