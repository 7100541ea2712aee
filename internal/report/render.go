package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mwiater/groundedgeo/internal/dataset"
	"github.com/mwiater/groundedgeo/internal/harness"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	totalStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

// Render writes an accuracy comparison table: one row per known bucket plus
// an overall row, one column per snapshot.
func Render(w io.Writer, snapshots ...*harness.EvalMetrics) error {
	if len(snapshots) == 0 {
		_, err := fmt.Fprintln(w, "No metrics to report.")
		return err
	}

	headers := []string{"bucket"}
	for _, m := range snapshots {
		label := m.SystemName
		if m.Split != "" {
			label += " [" + m.Split + "]"
		}
		headers = append(headers, label)
	}

	buckets := dataset.KnownBuckets()
	rows := make([][]string, 0, len(buckets)+1)
	for _, b := range buckets {
		row := []string{string(b)}
		for _, m := range snapshots {
			acc := m.Bucket(b)
			row = append(row, formatCell(acc.Accuracy(), acc.AnswerCorrect, acc.Total))
		}
		rows = append(rows, row)
	}
	overall := []string{"overall"}
	for _, m := range snapshots {
		overall = append(overall, formatCell(m.OverallAccuracy, m.CorrectTotal(), m.TotalQueries))
	}
	rows = append(rows, overall)
	last := len(rows) - 1

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row == last:
				return totalStyle
			default:
				return cellStyle
			}
		}).
		Headers(headers...).
		Rows(rows...)

	if _, err := fmt.Fprintln(w, titleStyle.Render("Answer accuracy by hard-case bucket")); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, t.String())
	return err
}

// RenderCompliance writes every counter of one snapshot.
func RenderCompliance(w io.Writer, m *harness.EvalMetrics) error {
	headers := []string{"bucket", "total", "correct", "cited", "fresh", "conflict", "clarify", "errors"}
	rows := make([][]string, 0, len(dataset.KnownBuckets()))
	for _, b := range dataset.KnownBuckets() {
		acc := m.Bucket(b)
		rows = append(rows, []string{
			string(b),
			strconv.Itoa(acc.Total),
			strconv.Itoa(acc.AnswerCorrect),
			strconv.Itoa(acc.CitationSupported),
			strconv.Itoa(acc.FreshnessCompliant),
			strconv.Itoa(acc.ConflictHandled),
			strconv.Itoa(acc.ClarificationAsked),
			strconv.Itoa(acc.SystemErrors),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)

	title := fmt.Sprintf("Compliance counters: %s [%s]", m.SystemName, m.Split)
	if _, err := fmt.Fprintln(w, titleStyle.Render(title)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, t.String())
	return err
}

func formatCell(accuracy float64, correct, total int) string {
	return fmt.Sprintf("%5.1f%% (%d/%d)", accuracy*100, correct, total)
}

// RenderCounts writes the number of queries per bucket for every split of d.
func RenderCounts(w io.Writer, d *dataset.Dataset) error {
	splits := d.Splits()
	if len(splits) == 0 {
		_, err := fmt.Fprintln(w, "Dataset has no queries.")
		return err
	}

	counts := d.Counts()
	headers := append([]string{"bucket"}, splits...)
	headers = append(headers, "total")

	rows := make([][]string, 0, len(dataset.KnownBuckets())+1)
	splitTotals := make([]int, len(splits))
	for _, b := range dataset.KnownBuckets() {
		row := []string{string(b)}
		sum := 0
		for i, split := range splits {
			n := counts[split][b]
			splitTotals[i] += n
			sum += n
			row = append(row, strconv.Itoa(n))
		}
		rows = append(rows, append(row, strconv.Itoa(sum)))
	}
	totalRow := []string{"total"}
	for _, n := range splitTotals {
		totalRow = append(totalRow, strconv.Itoa(n))
	}
	rows = append(rows, append(totalRow, strconv.Itoa(len(d.Queries))))
	last := len(rows) - 1

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row == last:
				return totalStyle
			default:
				return cellStyle
			}
		}).
		Headers(headers...).
		Rows(rows...)

	if _, err := fmt.Fprintln(w, titleStyle.Render("Queries per split and bucket")); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, t.String())
	return err
}
