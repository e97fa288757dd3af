// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/CarSurvey/services/survey/constraints"
	"github.com/AleutianAI/CarSurvey/services/survey/datatypes"
	"github.com/AleutianAI/CarSurvey/services/survey/tui"
	"github.com/AleutianAI/CarSurvey/services/survey/validation"
)

// CheckReport is the outcome of checking one survey file.
type CheckReport struct {
	File        string                     `json:"file"`
	Valid       bool                       `json:"valid"`
	Values      datatypes.SurveyData       `json:"values"`
	View        datatypes.DerivedView      `json:"view"`
	Errors      map[datatypes.Field]string `json:"errors,omitempty"`
	Corrections []string                   `json:"corrections,omitempty"`
}

func newCheckCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Reconcile and validate a survey answers file (YAML or JSON, - for stdin)",
		Long: `check applies the survey rules to a file of answers and reports the
corrected values and any validation errors.

Exit codes: 0 valid, 1 invalid, 2 the file could not be read or holds
values outside the catalogs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			out := cmd.OutOrStdout()

			report, err := checkFile(args[0], cmd.InOrStdin())
			if err != nil {
				if jsonOut {
					_ = writeErrorResult(out, "check", err)
					return &ExitError{Code: CLIExitError}
				}
				return &ExitError{Code: CLIExitError, Err: err}
			}

			if jsonOut {
				if err := writeResult(out, "check", start, report, report.Valid); err != nil {
					return &ExitError{Code: CLIExitError, Err: err}
				}
			} else {
				printReport(out, report)
			}

			if !report.Valid {
				return &ExitError{Code: CLIExitFindings}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")
	return cmd
}

// checkFile loads answers from path and evaluates them.
func checkFile(path string, stdin io.Reader) (CheckReport, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return CheckReport{}, fmt.Errorf("read %s: %w", path, err)
	}

	data, err := decodeSurvey(raw, strings.EqualFold(filepath.Ext(path), ".json"))
	if err != nil {
		return CheckReport{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := data.CheckCatalog(); err != nil {
		return CheckReport{}, fmt.Errorf("%s: %w", path, err)
	}

	outcome := constraints.Evaluate(data)
	result := validation.Validate(outcome.Data)

	report := CheckReport{
		File:   path,
		Valid:  result.Valid,
		Values: outcome.Data,
		View:   outcome.View,
		Errors: result.Errors,
	}
	for _, c := range outcome.Corrections {
		report.Corrections = append(report.Corrections, c.String())
	}
	return report, nil
}

// decodeSurvey parses strict JSON or YAML. Unknown keys are rejected.
func decodeSurvey(raw []byte, isJSON bool) (datatypes.SurveyData, error) {
	var data datatypes.SurveyData
	if isJSON {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&data); err != nil {
			return data, err
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&data); err != nil && !errors.Is(err, io.EOF) {
			return data, err
		}
	}
	return data.Normalize(), nil
}

func printReport(w io.Writer, r CheckReport) {
	if r.Valid {
		fmt.Fprintf(w, "%s %s\n", okStyle.Render("valid"), r.File)
	} else {
		fmt.Fprintf(w, "%s %s\n", failStyle.Render("invalid"), r.File)
	}

	if len(r.Corrections) > 0 {
		fmt.Fprintln(w, dimStyle.Render("Corrections:"))
		for _, c := range r.Corrections {
			fmt.Fprintf(w, "  - %s\n", c)
		}
	}

	for _, f := range []datatypes.Field{datatypes.FieldBrands, datatypes.FieldColors, datatypes.FieldTransmission} {
		if msg, ok := r.Errors[f]; ok {
			fmt.Fprintf(w, "  %s: %s\n", f, msg)
		}
	}

	if r.Valid {
		for _, line := range tui.SummaryLines(r.Values) {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
}
