package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/sigscan/internal/model"
)

const dateLayout = "2006-01-02 15:04:05 MST"

// MarkdownWriter outputs runs in Markdown format.
type MarkdownWriter struct {
	baseWriter
	title cases.Caser
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		title:      cases.Title(language.English),
	}
}

// Write outputs the report of one run.
func (w *MarkdownWriter) Write(run model.RunRecord, matches []model.MatchedItem) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, run)
	w.writeCounters(md, run.Summary)
	w.writeRules(md, run, matches)
	w.writeMatches(md, matches)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, run model.RunRecord) {
	md.H1("Signature Scan Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run", "`" + run.ID + "`"},
			{"Started", run.StartedAt.Format(dateLayout)},
			{"Finished", run.FinishedAt.Format(dateLayout)},
			{"Duration", run.Duration().Round(time.Millisecond).String()},
			{"Concurrency", strconv.Itoa(run.Concurrency)},
			{"Status", status(run.Summary)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeCounters(md *markdown.Markdown, s model.Summary) {
	md.H2("Counters")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Counter", "Value"},
		Rows: [][]string{
			{"Items", strconv.Itoa(s.Total)},
			{"Exported", strconv.Itoa(s.Exported)},
			{"Scanned", strconv.Itoa(s.Scanned)},
			{"Matched", strconv.Itoa(s.Matched)},
			{"Annotated", strconv.Itoa(s.Annotated)},
			{"Errors", strconv.Itoa(s.Errored)},
		},
	})
	md.PlainText("")

	switch {
	case s.Aborted:
		md.Warningf("The run was aborted after scanning %d of %d items.", s.Scanned, s.Total)
	case s.Errored > 0:
		md.Cautionf("%d item(s) failed. See the error log for details.", s.Errored)
	case s.Matched > 0:
		md.Importantf("%d item(s) matched at least one rule.", s.Matched)
	default:
		md.Tip("No item matched any rule.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeRules(md *markdown.Markdown, run model.RunRecord, matches []model.MatchedItem) {
	md.H2("Rules")
	md.PlainText("")

	if len(run.Rules) == 0 {
		md.PlainText("No rules recorded.")
		md.PlainText("")
		return
	}
	md.BulletList(run.Rules...)
	md.PlainText("")

	counts := ruleCounts(matches)
	if len(counts) == 0 {
		return
	}
	rows := make([][]string, len(counts))
	for i, c := range counts {
		rows[i] = []string{c.Rule, strconv.Itoa(c.Items)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Rule", "Matched Items"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeMatches(md *markdown.Markdown, matches []model.MatchedItem) {
	md.H2("Matches")
	md.PlainText("")

	if len(matches) == 0 {
		md.PlainText("No matches.")
		md.PlainText("")
		return
	}

	groups := groupByKind(matches)
	if len(groups) > 1 {
		w.writeKindChart(md, groups)
	}

	for _, g := range groups {
		md.H3(w.title.String(g.kind))
		md.PlainText("")

		rows := make([][]string, len(g.matches))
		for i, m := range g.matches {
			rows[i] = []string{
				"`" + m.Item.GUID + "`",
				truncateString(m.Item.Path(), 60),
				humanize.Bytes(uint64(max(m.Item.AuditedSize, 0))),
				strings.Join(m.Rules, ", "),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"GUID", "Path", "Size", "Rules"},
			Rows:   rows,
		})
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeKindChart(md *markdown.Markdown, groups []kindGroup) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Matched Items by Kind"),
		piechart.WithShowData(true),
	)
	for _, g := range groups {
		chart.LabelAndIntValue(w.title.String(g.kind), uint64(len(g.matches)))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// WriteHistory outputs a table of runs.
func (w *MarkdownWriter) WriteHistory(runs []model.RunRecord) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Scan History")
	md.PlainText("")

	if len(runs) == 0 {
		md.PlainText("No runs recorded.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(runs))
	for i, run := range runs {
		s := run.Summary
		rows[i] = []string{
			"`" + run.ID + "`",
			run.StartedAt.Format(dateLayout),
			run.Duration().Round(time.Second).String(),
			strconv.Itoa(len(run.Rules)),
			strconv.Itoa(s.Total),
			strconv.Itoa(s.Scanned),
			strconv.Itoa(s.Matched),
			strconv.Itoa(s.Errored),
			status(s),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Run", "Started", "Duration", "Rules", "Items", "Scanned", "Matched", "Errors", "Status"},
		Rows:   rows,
	})

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [sigscan](https://github.com/nao1215/sigscan)*")
}

// truncateString shortens s to maxLen runes, keeping the end, which holds
// the file name.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[len(r)-maxLen:])
	}
	return "..." + string(r[len(r)-maxLen+3:])
}
