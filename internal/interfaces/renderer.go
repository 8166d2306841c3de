package interfaces

// ReportRenderer converts an assembled markdown artifact into final
// document bytes.
type ReportRenderer interface {
	// Render produces the document bytes for the assembled markdown.
	Render(markdown string, title string) ([]byte, error)

	// Format identifies the output format ("pdf").
	Format() string
}
