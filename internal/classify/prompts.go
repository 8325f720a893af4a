package classify

import (
	"fmt"
	"strings"
)

func buildColumnMappingPrompt(headers []string, sample [][]string) string {
	var sb strings.Builder

	sb.WriteString("You are a bank CSV export analyst.\n\n")
	sb.WriteString("Task:\n")
	sb.WriteString("- Decide which transaction field each CSV column feeds.\n")
	sb.WriteString("- The transaction fields are: \"date\", \"description\", \"amount\", \"category\".\n")
	sb.WriteString("- Map each field to at most one column. Columns that match no field get an empty string.\n")
	sb.WriteString("- Use the sample rows to disambiguate, e.g. a column of ISO dates is \"date\" even if its header is cryptic.\n\n")

	sb.WriteString("CSV headers:\n")
	for _, h := range headers {
		fmt.Fprintf(&sb, "- %q\n", h)
	}

	if len(sample) > 0 {
		sb.WriteString("\nSample rows:\n")
		for _, row := range sample {
			sb.WriteString(strings.Join(row, " | "))
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\nReturn a JSON array with one object per header, in the same order:\n")
	sb.WriteString("[{\"csv_header\": \"<header>\", \"transaction_field\": \"<field or empty string>\"}]\n")
	sb.WriteString("Return ONLY valid raw JSON. No code fences, no commentary.\n")

	return sb.String()
}

func buildCategoryPrompt(label string, available []string) string {
	var sb strings.Builder

	sb.WriteString("You are a personal finance category matcher.\n\n")
	fmt.Fprintf(&sb, "A bank export labelled some transactions with the category %q.\n", label)
	sb.WriteString("The user's existing categories are:\n")
	for _, c := range available {
		fmt.Fprintf(&sb, "- %q\n", c)
	}

	sb.WriteString("\nTask:\n")
	sb.WriteString("- If the label means the same thing as one of the existing categories, answer with that category's exact name.\n")
	sb.WriteString("- Otherwise answer with a short, clean category name suitable for creating a new category.\n")
	sb.WriteString("- Report your confidence as a number between 0 and 1.\n\n")

	sb.WriteString("Return a single JSON object:\n")
	sb.WriteString("{\"category\": \"<name>\", \"confidence\": <0..1>}\n")
	sb.WriteString("Return ONLY valid raw JSON. No code fences, no commentary.\n")

	return sb.String()
}
