// -----------------------------------------------------------------------
// Model Parser - Valuation workbook (XLSX) to ParsedModel extraction
// -----------------------------------------------------------------------

package modelparse

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/xuri/excelize/v2"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/interfaces"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/models"
)

// MaxModelBytes caps accepted workbook size.
const MaxModelBytes = 50 * 1024 * 1024

// dateLayouts are tried in order when parsing the valuation date cell.
var dateLayouts = []string{
	"2006-01-02",
	"01-02-06",
	"1/2/2006",
	"01/02/2006",
	"2 January 2006",
	"January 2, 2006",
	"Jan-06",
}

// ExcelParser extracts a ParsedModel from a valuation workbook. Extraction
// is best-effort: structural problems with individual sheets or labels are
// collected into the model's Errors/Warnings, and only an unreadable
// workbook fails the call.
type ExcelParser struct {
	logger arbor.ILogger
}

var _ interfaces.ModelParser = (*ExcelParser)(nil)

// NewExcelParser creates a workbook parser.
func NewExcelParser(logger arbor.ILogger) *ExcelParser {
	return &ExcelParser{logger: logger}
}

// Parse reads the workbook and extracts the valuation summary plus every
// sheet as an exhibit.
func (p *ExcelParser) Parse(ctx context.Context, data []byte) (*models.ParsedModel, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("model file is empty")
	}
	if len(data) > MaxModelBytes {
		return nil, fmt.Errorf("model file size %d exceeds limit of %d bytes", len(data), MaxModelBytes)
	}

	workbook, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open model workbook: %w", err)
	}
	defer workbook.Close()

	parsed := &models.ParsedModel{}

	summarySheet := ""
	for _, sheet := range workbook.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, err := workbook.GetRows(sheet)
		if err != nil {
			parsed.Warnings = append(parsed.Warnings, fmt.Sprintf("failed to read sheet %q: %v", sheet, err))
			continue
		}

		parsed.Exhibits = append(parsed.Exhibits, models.Exhibit{
			SheetName: sheet,
			Rows:      rows,
		})

		if summarySheet == "" && isSummarySheet(sheet) {
			summarySheet = sheet
			p.extractSummary(parsed, rows)
		}
	}

	if summarySheet == "" {
		parsed.Errors = append(parsed.Errors, "no summary sheet found (expected a sheet named like \"Summary\" or \"Valuation Conclusion\")")
	}

	p.logger.Debug().
		Str("company", parsed.CompanyName).
		Str("summary_sheet", summarySheet).
		Int("exhibits", len(parsed.Exhibits)).
		Int("warnings", len(parsed.Warnings)).
		Int("errors", len(parsed.Errors)).
		Msg("Model workbook parsed")

	return parsed, nil
}

// isSummarySheet reports whether a sheet name identifies the valuation
// summary.
func isSummarySheet(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "summary") || strings.Contains(lower, "conclusion")
}

// extractSummary pulls labeled fields and the approaches table out of the
// summary sheet.
func (p *ExcelParser) extractSummary(parsed *models.ParsedModel, rows [][]string) {
	summary := &models.ValuationSummary{}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		label := normalizeLabel(row[0])

		switch {
		case labelIsAny(label, "company", "company name", "subject company", "client"):
			parsed.CompanyName = firstValue(row)

		case labelIsAny(label, "valuation date", "date of valuation", "as of", "as of date"):
			if value := firstValue(row); value != "" {
				if date, ok := parseDate(value); ok {
					parsed.ValuationDate = &date
				} else {
					parsed.Warnings = append(parsed.Warnings, fmt.Sprintf("could not parse valuation date %q", value))
				}
			}

		case labelIsAny(label, "industry", "industry sector", "sector"):
			parsed.Industry = firstValue(row)

		case labelIsAny(label, "dlom", "discount for lack of marketability"):
			if value := firstValue(row); value != "" {
				if dlom, ok := parseWeight(value); ok {
					parsed.DLOM = &dlom
				} else {
					parsed.Warnings = append(parsed.Warnings, fmt.Sprintf("could not parse DLOM %q", value))
				}
			}

		case labelIsAny(label, "concluded value", "concluded fair market value", "fair market value", "concluded value of equity"):
			if value := firstValue(row); value != "" {
				if amount, ok := parseAmount(value); ok {
					summary.ConcludedValue = &amount
				} else {
					parsed.Warnings = append(parsed.Warnings, fmt.Sprintf("could not parse concluded value %q", value))
				}
			}

		case isApproachHeader(row):
			summary.Approaches = append(summary.Approaches, p.extractApproaches(parsed, rows[i+1:], row)...)
		}
	}

	if parsed.CompanyName == "" {
		parsed.Warnings = append(parsed.Warnings, "summary sheet has no company name")
	}
	if parsed.ValuationDate == nil {
		parsed.Warnings = append(parsed.Warnings, "summary sheet has no valuation date")
	}
	if len(summary.Approaches) == 0 {
		parsed.Warnings = append(parsed.Warnings, "summary sheet has no valuation approaches table")
	}
	if summary.ConcludedValue == nil {
		parsed.Warnings = append(parsed.Warnings, "summary sheet has no concluded value")
	}

	if len(summary.Approaches) > 0 || summary.ConcludedValue != nil {
		parsed.Summary = summary
	}
}

// isApproachHeader detects the header row of the approaches table.
func isApproachHeader(row []string) bool {
	joined := strings.ToLower(strings.Join(row, " "))
	return strings.Contains(joined, "approach") &&
		(strings.Contains(joined, "indicated") || strings.Contains(joined, "value")) &&
		strings.Contains(joined, "weight")
}

// extractApproaches reads approach rows following the table header until a
// blank or totals row.
func (p *ExcelParser) extractApproaches(parsed *models.ParsedModel, rows [][]string, header []string) []models.Approach {
	valueCol, weightCol := approachColumns(header)

	var approaches []models.Approach
	for _, row := range rows {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			break
		}
		name := strings.TrimSpace(row[0])
		lower := strings.ToLower(name)
		if strings.Contains(lower, "total") || strings.Contains(lower, "concluded") || strings.Contains(lower, "weighted") {
			break
		}

		approach := models.Approach{Name: name}
		if cell := cellAt(row, valueCol); cell != "" {
			if amount, ok := parseAmount(cell); ok {
				approach.IndicatedValue = &amount
			} else {
				parsed.Warnings = append(parsed.Warnings, fmt.Sprintf("could not parse indicated value %q for approach %q", cell, name))
			}
		}
		if cell := cellAt(row, weightCol); cell != "" {
			if weight, ok := parseWeight(cell); ok {
				approach.Weight = &weight
			} else {
				parsed.Warnings = append(parsed.Warnings, fmt.Sprintf("could not parse weight %q for approach %q", cell, name))
			}
		}
		approaches = append(approaches, approach)
	}
	return approaches
}

// approachColumns locates the indicated-value and weight columns from the
// table header. Defaults to columns 1 and 2 when labels are absent.
func approachColumns(header []string) (valueCol, weightCol int) {
	valueCol, weightCol = 1, 2
	for i, cell := range header {
		lower := strings.ToLower(cell)
		if strings.Contains(lower, "indicated") || (strings.Contains(lower, "value") && !strings.Contains(lower, "weight")) {
			valueCol = i
		}
		if strings.Contains(lower, "weight") {
			weightCol = i
		}
	}
	return valueCol, weightCol
}

// normalizeLabel lowercases a label cell and strips trailing colons.
func normalizeLabel(cell string) string {
	return strings.TrimSuffix(strings.TrimSpace(strings.ToLower(cell)), ":")
}

// labelIsAny reports whether label equals any candidate.
func labelIsAny(label string, candidates ...string) bool {
	for _, c := range candidates {
		if label == c {
			return true
		}
	}
	return false
}

// firstValue returns the first non-empty cell after the label column.
func firstValue(row []string) string {
	for _, cell := range row[1:] {
		if value := strings.TrimSpace(cell); value != "" {
			return value
		}
	}
	return ""
}

// cellAt returns the trimmed cell at index, or empty when out of range.
func cellAt(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}

// parseDate tries the known valuation date layouts.
func parseDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if date, err := time.Parse(layout, value); err == nil {
			return date, true
		}
	}
	return time.Time{}, false
}

// parseAmount parses a currency cell: strips $ , and spaces, treats
// parentheses as negative.
func parseAmount(value string) (float64, bool) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(value))
	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = cleaned[1 : len(cleaned)-1]
	}
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		amount = -amount
	}
	return amount, true
}

// parseWeight parses a weight cell as a 0..1 fraction. Percent signs and
// values above 1 are treated as percentages.
func parseWeight(value string) (float64, bool) {
	cleaned := strings.TrimSpace(value)
	percent := strings.HasSuffix(cleaned, "%")
	cleaned = strings.TrimSuffix(cleaned, "%")

	weight, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64)
	if err != nil {
		return 0, false
	}
	if percent || weight > 1 {
		weight /= 100
	}
	return weight, true
}
