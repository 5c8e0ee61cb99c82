package mcp

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/xtctx/internal/core/domain"
)

func renderSearch(out SearchOutput) string {
	if out.Count == 0 {
		return fmt.Sprintf("No results found for %q.", out.Query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %d results for %q\n\n", out.Count, out.Query)
	for i, hit := range out.Results {
		fmt.Fprintf(&b, "### %d. %s\n", i+1, hitHeading(&hit))
		fmt.Fprintf(&b, "**Source:** %s | **Score:** %.3f", orNone(hit.SourceTool), hit.Score)
		if hit.Timestamp != "" {
			fmt.Fprintf(&b, " | **When:** %s", hit.Timestamp)
		}
		if hit.Session != "" {
			fmt.Fprintf(&b, " | **Session:** %s", hit.Session)
		}
		b.WriteString("\n\n")
		b.WriteString(strings.TrimSpace(hit.Text))
		b.WriteString("\n\n---\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func hitHeading(hit *SearchHit) string {
	switch {
	case hit.Title != "":
		return hit.Title
	case hit.Role != "":
		return hit.Role + " message"
	default:
		return hit.ID
	}
}

func renderKnowledgeList(out KnowledgeListOutput, query string) string {
	label := out.Type
	if label == "all" {
		label = "knowledge"
	}

	if out.Count == 0 {
		msg := "No " + label + " records found"
		if q := strings.TrimSpace(query); q != "" {
			msg += fmt.Sprintf(" matching %q", q)
		}
		return msg + "."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %d %s record(s)\n\n", out.Count, label)
	for i := range out.Records {
		rec := &out.Records[i]
		fmt.Fprintf(&b, "### %d. %s\n", i+1, rec.Title)
		writeRecordFields(&b, rec)
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(rec.Body))
		b.WriteString("\n\n---\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderRecord(rec *domain.KnowledgeRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", rec.Title)
	fmt.Fprintf(&b, "- ID: %s\n", rec.ID)
	writeRecordFields(&b, rec)
	if rec.Supersedes != "" {
		fmt.Fprintf(&b, "- Supersedes: %s\n", rec.Supersedes)
	}
	if rec.SupersededBy != "" {
		fmt.Fprintf(&b, "- Superseded by: %s\n", rec.SupersededBy)
	}
	if len(rec.ReferencedFiles) > 0 {
		fmt.Fprintf(&b, "- Files: %s\n", strings.Join(rec.ReferencedFiles, ", "))
	}
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(rec.Body))
	return b.String()
}

func writeRecordFields(b *strings.Builder, rec *domain.KnowledgeRecord) {
	fmt.Fprintf(b, "- Type: %s\n", rec.Type)
	fmt.Fprintf(b, "- Created: %s\n", domain.FormatTimestamp(rec.CreatedAt))
	fmt.Fprintf(b, "- Source: %s\n", orNone(rec.SourceTool))
	if len(rec.DomainTags) > 0 {
		fmt.Fprintf(b, "- Tags: %s\n", strings.Join(rec.DomainTags, ", "))
	}
}

func renderWriteResult(res domain.WriteResult) string {
	var b strings.Builder
	switch res.Action {
	case domain.WriteCreated:
		fmt.Fprintf(&b, "Saved %s.", res.ID)
	case domain.WriteSuperseded:
		fmt.Fprintf(&b, "Saved %s, superseding %s.", res.ID, res.ReplacedID)
	case domain.WriteDuplicateRejected:
		fmt.Fprintf(&b, "Not saved: %s already records this.", res.ID)
	default:
		fmt.Fprintf(&b, "%s %s.", res.Action, res.ID)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(&b, "\nWarning: %s", w)
	}
	return b.String()
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
