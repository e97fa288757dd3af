// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tui

import (
	"strings"

	"github.com/AleutianAI/CarSurvey/services/survey/datatypes"
)

// SuccessHeading titles the submitted-answers summary.
const SuccessHeading = "Submission Successful"

// SummaryLines lists the submitted answers, one "Label: values" line per
// answered field. The transmission line is left out when none was chosen.
func SummaryLines(data datatypes.SurveyData) []string {
	lines := []string{
		"Brands: " + strings.Join(data.Brands, ", "),
		"Colors: " + strings.Join(data.Colors, ", "),
	}
	if data.Transmission.IsSet() {
		lines = append(lines, "Transmission: "+data.Transmission.String())
	}
	return lines
}

// RenderResult renders the summary shown after a successful submit.
func RenderResult(result datatypes.SubmissionResult) string {
	var b strings.Builder
	b.WriteString(successStyle.Render(SuccessHeading))
	for _, line := range SummaryLines(result.Data) {
		b.WriteString("\n")
		b.WriteString(line)
	}
	return b.String()
}
