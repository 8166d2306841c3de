// -----------------------------------------------------------------------
// PDF Renderer - Converts the assembled markdown artifact into PDF bytes
// via the goldmark AST
// -----------------------------------------------------------------------

package assembly

import (
	"bytes"
	"fmt"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/interfaces"
	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// PDFRenderer renders assembled markdown into a PDF document.
type PDFRenderer struct {
	logger arbor.ILogger
}

var _ interfaces.ReportRenderer = (*PDFRenderer)(nil)

// NewPDFRenderer creates a PDF renderer.
func NewPDFRenderer(logger arbor.ILogger) *PDFRenderer {
	return &PDFRenderer{logger: logger}
}

// Format identifies the output format.
func (r *PDFRenderer) Format() string {
	return "pdf"
}

// Render converts markdown to PDF bytes. The title goes into document
// metadata; headings come from the markdown itself.
func (r *PDFRenderer) Render(markdown string, title string) ([]byte, error) {
	r.logger.Debug().
		Int("markdown_len", len(markdown)).
		Str("title", title).
		Msg("Rendering markdown to PDF")

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	pdf.AddPage()
	pdf.SetFont("Arial", "", 10)

	md := goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)

	source := []byte(markdown)
	doc := md.Parser().Parse(text.NewReader(source))

	walker := &pdfWalker{
		pdf:    pdf,
		source: source,
		font:   "Arial",
		size:   10,
	}

	if err := ast.Walk(doc, walker.walk); err != nil {
		r.logger.Error().Err(err).Msg("Failed to render PDF")
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		r.logger.Error().Err(err).Msg("Failed to write PDF output")
		return nil, fmt.Errorf("failed to write PDF output: %w", err)
	}

	r.logger.Debug().Int("pdf_size", buf.Len()).Msg("PDF rendered")
	return buf.Bytes(), nil
}

// pdfWalker renders goldmark AST nodes onto an fpdf page.
type pdfWalker struct {
	pdf       *fpdf.Fpdf
	source    []byte
	font      string
	size      float64
	bold      bool
	italic    bool
	inList    bool
	listLevel int
}

func (w *pdfWalker) updateFont() {
	style := ""
	if w.bold {
		style += "B"
	}
	if w.italic {
		style += "I"
	}
	w.pdf.SetFont(w.font, style, w.size)
}

func (w *pdfWalker) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n.Kind() {
	case ast.KindHeading:
		return w.handleHeading(n.(*ast.Heading), entering)
	case ast.KindParagraph:
		if !entering {
			w.pdf.Ln(7)
		}
	case ast.KindText:
		if entering {
			w.pdf.Write(5, string(n.(*ast.Text).Text(w.source)))
		}
	case ast.KindEmphasis:
		if n.(*ast.Emphasis).Level == 2 {
			w.bold = entering
		} else {
			w.italic = entering
		}
		w.updateFont()
	case ast.KindCodeSpan:
		return w.handleCodeSpan(n.(*ast.CodeSpan), entering)
	case ast.KindFencedCodeBlock:
		if entering {
			w.renderCodeBlock(n.(*ast.FencedCodeBlock).Lines())
			return ast.WalkSkipChildren, nil
		}
	case ast.KindCodeBlock:
		if entering {
			w.renderCodeBlock(n.(*ast.CodeBlock).Lines())
			return ast.WalkSkipChildren, nil
		}
	case ast.KindList:
		if entering {
			w.inList = true
			w.listLevel++
		} else {
			w.listLevel--
			if w.listLevel == 0 {
				w.inList = false
				w.pdf.Ln(2)
			}
		}
	case ast.KindListItem:
		if entering {
			w.pdf.Ln(5)
			indent := float64(w.listLevel) * 5.0
			w.pdf.SetX(15 + indent)
			w.pdf.Write(5, "- ")
		}
	case ast.KindThematicBreak:
		if entering {
			w.pdf.Ln(2)
			w.pdf.Line(15, w.pdf.GetY(), 195, w.pdf.GetY())
			w.pdf.Ln(2)
		}
	case extast.KindTable:
		return w.handleTable(n.(*extast.Table), entering)
	}
	return ast.WalkContinue, nil
}

func (w *pdfWalker) handleHeading(n *ast.Heading, entering bool) (ast.WalkStatus, error) {
	if entering {
		w.pdf.Ln(6)
		size := 16.0
		switch n.Level {
		case 1:
			size = 16
		case 2:
			size = 13
		case 3:
			size = 11
		default:
			size = 10
		}
		w.pdf.SetFont(w.font, "B", size)
	} else {
		w.pdf.Ln(6)
		w.updateFont()
	}
	return ast.WalkContinue, nil
}

func (w *pdfWalker) handleCodeSpan(n *ast.CodeSpan, entering bool) (ast.WalkStatus, error) {
	if entering {
		w.pdf.SetFont("Courier", "", w.size)
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if textNode, ok := c.(*ast.Text); ok {
				w.pdf.Write(5, string(textNode.Segment.Value(w.source)))
			}
		}
	} else {
		w.updateFont()
	}
	return ast.WalkSkipChildren, nil
}

func (w *pdfWalker) renderCodeBlock(lines *text.Segments) {
	w.pdf.Ln(2)
	w.pdf.SetFont("Courier", "", 9)
	w.pdf.SetFillColor(245, 245, 245)

	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		w.pdf.MultiCell(0, 5, string(line.Value(w.source)), "", "L", true)
	}

	w.pdf.SetFillColor(255, 255, 255)
	w.updateFont()
	w.pdf.Ln(2)
}

func (w *pdfWalker) handleTable(n *extast.Table, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	var rows [][]string

	var findRows func(node ast.Node)
	findRows = func(node ast.Node) {
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			if tr, ok := child.(*extast.TableRow); ok {
				rows = append(rows, w.extractRow(tr))
			} else if _, ok := child.(*extast.TableHeader); ok {
				findRows(child)
			}
		}
	}
	findRows(n)

	w.renderTable(rows)
	return ast.WalkSkipChildren, nil
}

func (w *pdfWalker) extractRow(n *extast.TableRow) []string {
	var row []string
	for cell := n.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if _, ok := cell.(*extast.TableCell); ok {
			row = append(row, string(cell.Text(w.source)))
		}
	}
	return row
}

func (w *pdfWalker) renderTable(rows [][]string) {
	if len(rows) == 0 {
		return
	}

	w.pdf.Ln(2)

	pageWidth := 180.0
	numCols := len(rows[0])
	if numCols == 0 {
		return
	}

	fontSize := 9.0
	lineHeight := 4.5

	colWidths := w.columnWidths(rows, numCols, pageWidth, fontSize)

	for i, row := range rows {
		if i == 0 {
			w.pdf.SetFont(w.font, "B", fontSize)
			w.pdf.SetFillColor(230, 230, 230)
		} else {
			w.pdf.SetFont(w.font, "", fontSize)
			w.pdf.SetFillColor(255, 255, 255)
		}

		maxLines := 1
		for j, cell := range row {
			if j < numCols {
				if lines := w.linesNeeded(cell, colWidths[j]-2); lines > maxLines {
					maxLines = lines
				}
			}
		}
		if maxLines > 8 {
			maxLines = 8
		}

		rowHeight := float64(maxLines)*lineHeight + 2
		startY := w.pdf.GetY()
		startX := w.pdf.GetX()

		pageHeight := 297.0 - 15.0
		if startY+rowHeight > pageHeight {
			w.pdf.AddPage()
			startY = w.pdf.GetY()
		}

		for j, cell := range row {
			if j < numCols {
				x := startX
				for k := 0; k < j; k++ {
					x += colWidths[k]
				}

				if i == 0 {
					w.pdf.Rect(x, startY, colWidths[j], rowHeight, "FD")
				} else {
					w.pdf.Rect(x, startY, colWidths[j], rowHeight, "D")
				}

				w.pdf.SetXY(x+1, startY+1)
				w.renderCellText(cell, colWidths[j]-2, lineHeight, maxLines)
			}
		}

		w.pdf.SetXY(startX, startY+rowHeight)
	}

	w.pdf.Ln(3)
	w.updateFont()
}

// columnWidths sizes columns from measured string widths, then scales the
// set to fit the page.
func (w *pdfWalker) columnWidths(rows [][]string, numCols int, pageWidth, fontSize float64) []float64 {
	colWidths := make([]float64, numCols)

	w.pdf.SetFont(w.font, "", fontSize)
	for _, row := range rows {
		for i, cell := range row {
			if i < numCols {
				if cw := w.pdf.GetStringWidth(cell) + 4; cw > colWidths[i] {
					colWidths[i] = cw
				}
			}
		}
	}

	if len(rows) > 0 {
		w.pdf.SetFont(w.font, "B", fontSize)
		for i, cell := range rows[0] {
			if i < numCols {
				if cw := w.pdf.GetStringWidth(cell) + 4; cw > colWidths[i] {
					colWidths[i] = cw
				}
			}
		}
		w.pdf.SetFont(w.font, "", fontSize)
	}

	minWidth := 12.0
	maxWidth := pageWidth / 3.0
	for i := range colWidths {
		if colWidths[i] < minWidth {
			colWidths[i] = minWidth
		}
		if colWidths[i] > maxWidth {
			colWidths[i] = maxWidth
		}
	}

	totalWidth := 0.0
	for _, cw := range colWidths {
		totalWidth += cw
	}

	if totalWidth > pageWidth {
		scale := pageWidth / totalWidth
		for i := range colWidths {
			colWidths[i] *= scale
			if colWidths[i] < minWidth*0.8 {
				colWidths[i] = minWidth * 0.8
			}
		}
	} else if totalWidth < pageWidth*0.9 {
		scale := (pageWidth * 0.95) / totalWidth
		if scale > 1.5 {
			scale = 1.5
		}
		for i := range colWidths {
			colWidths[i] *= scale
		}
	}

	return colWidths
}

// linesNeeded counts wrapped lines for a cell at the given width.
func (w *pdfWalker) linesNeeded(cell string, width float64) int {
	if cell == "" || width <= 0 {
		return 1
	}

	words := splitIntoWords(cell)
	if len(words) == 0 {
		return 1
	}

	lines := 1
	currentWidth := 0.0
	spaceWidth := w.pdf.GetStringWidth(" ")

	for _, word := range words {
		wordWidth := w.pdf.GetStringWidth(word)
		switch {
		case currentWidth == 0:
			currentWidth = wordWidth
		case currentWidth+spaceWidth+wordWidth <= width:
			currentWidth += spaceWidth + wordWidth
		default:
			lines++
			currentWidth = wordWidth
		}
	}

	return lines
}

// renderCellText word-wraps cell text, truncating with an ellipsis past
// maxLines.
func (w *pdfWalker) renderCellText(cell string, width, lineHeight float64, maxLines int) {
	if cell == "" {
		return
	}

	words := splitIntoWords(cell)
	if len(words) == 0 {
		return
	}

	var lines []string
	currentLine := ""
	currentWidth := 0.0
	spaceWidth := w.pdf.GetStringWidth(" ")

	for _, word := range words {
		wordWidth := w.pdf.GetStringWidth(word)
		switch {
		case currentLine == "":
			currentLine = word
			currentWidth = wordWidth
		case currentWidth+spaceWidth+wordWidth <= width:
			currentLine += " " + word
			currentWidth += spaceWidth + wordWidth
		default:
			lines = append(lines, currentLine)
			currentLine = word
			currentWidth = wordWidth
		}
	}
	if currentLine != "" {
		lines = append(lines, currentLine)
	}

	for i := 0; i < len(lines) && i < maxLines; i++ {
		line := lines[i]
		if i == maxLines-1 && len(lines) > maxLines {
			for w.pdf.GetStringWidth(line+"...") > width && len(line) > 3 {
				line = line[:len(line)-1]
			}
			line += "..."
		}
		w.pdf.CellFormat(width, lineHeight, line, "", 2, "L", false, 0, "")
	}
}

func splitIntoWords(s string) []string {
	var words []string
	current := ""
	for _, c := range s {
		if c == ' ' || c == '\t' || c == '\n' {
			if current != "" {
				words = append(words, current)
				current = ""
			}
		} else {
			current += string(c)
		}
	}
	if current != "" {
		words = append(words, current)
	}
	return words
}
