package template

import "github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/models"

// builtinTemplates returns the templates compiled into the binary. The
// standard valuation layout is the default when an engagement names no
// template; definition files may override it by reusing the ID.
func builtinTemplates() []*models.ReportTemplate {
	return []*models.ReportTemplate{standardValuation()}
}

func standardValuation() *models.ReportTemplate {
	return &models.ReportTemplate{
		ID:   "standard-valuation",
		Name: "Standard Valuation Report",
		Sections: []models.TemplateSection{
			{
				Title: "Cover",
				Type:  models.SectionSubstitution,
				Body: "# Valuation Report\n\n" +
					"**Company:** *COMPANY\n\n" +
					"**Valuation Date:** *VALUATION_DATE\n\n" +
					"**Report Date:** *REPORT_DATE\n",
				Placeholders: []models.Placeholder{
					{Token: "*COMPANY", Field: "company_name", Required: true},
					{Token: "*VALUATION_DATE", Field: "valuation_date", Required: true},
					{Token: "*REPORT_DATE", Field: "report_date", Required: false},
				},
			},
			{
				Title: "Introduction",
				Type:  models.SectionBoilerplate,
				Body: "## Introduction\n\n" +
					"This report presents our estimate of value for the subject company as of the " +
					"valuation date. The analysis considers the income, market, and asset approaches " +
					"to value, weighted according to their applicability to the subject company's " +
					"operations and the quality of available data. The conclusions herein are subject " +
					"to the assumptions and limiting conditions stated at the end of this report.\n",
			},
			{
				Title:      "Company Overview",
				Type:       models.SectionGenerated,
				ContentKey: "company_overview",
			},
			{
				Title:      "Economic Outlook",
				Type:       models.SectionGenerated,
				ContentKey: "economic_outlook",
			},
			{
				Title:      "Industry Outlook",
				Type:       models.SectionGenerated,
				ContentKey: "industry_outlook",
			},
			{
				Title:      "Valuation Analysis",
				Type:       models.SectionGenerated,
				ContentKey: "valuation_approaches",
			},
			{
				Title: "Valuation Summary",
				Type:  models.SectionValuationTable,
			},
			{
				Title:      "Conclusion of Value",
				Type:       models.SectionGenerated,
				ContentKey: "conclusion",
			},
			{
				Title: "Concluded Value",
				Type:  models.SectionSubstitution,
				Body: "Based on the analyses described in this report, the concluded value of the " +
					"subject interest as of *VALUATION_DATE is ***CONCLUDED_VALUE**.\n",
				Placeholders: []models.Placeholder{
					{Token: "*VALUATION_DATE", Field: "valuation_date", Required: false},
					{Token: "*CONCLUDED_VALUE", Field: "concluded_value", Required: true},
				},
			},
			{
				Title: "Assumptions and Limiting Conditions",
				Type:  models.SectionBoilerplate,
				Body: "## Assumptions and Limiting Conditions\n\n" +
					"This valuation is valid only for the stated purpose and as of the valuation " +
					"date. We have relied on financial data provided by management without independent " +
					"verification. No responsibility is assumed for matters legal in nature. Possession " +
					"of this report does not carry with it the right of publication.\n",
			},
		},
	}
}
