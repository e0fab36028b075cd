// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"path"
	"strings"
)

const (
	MinYear = 1900
	MaxYear = 2099
)

// ValidateDocumentRecord validates a DocumentRecord according to domain rules.
//
// Validation rules:
//   - Path must not be empty and must be corpus-relative
//   - Year, when set, must be within MinYear..MaxYear
//   - Month, when set, must be 1..12 and requires a year
//   - Fact confidences must be within 0..100
//
// NOT validated (populated by extraction):
//   - Excerpt, Facts values, ExtractError
func ValidateDocumentRecord(record *DocumentRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidDocument)
	}

	if record.Path == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyPath)
	}

	if path.IsAbs(record.Path) || strings.HasPrefix(record.Path, "../") {
		return fmt.Errorf("%w: %w: %s", ErrInvalidDocument, ErrAbsolutePath, record.Path)
	}

	if err := ValidateDate(record.Year, record.Month); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	for _, field := range AllFactFields {
		if err := ValidateFact(record.Facts.Get(field)); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidDocument, field, err)
		}
	}

	return nil
}

// ValidateDate checks a year/month pair. Zero means unknown.
func ValidateDate(year, month int) error {
	if year != 0 && (year < MinYear || year > MaxYear) {
		return fmt.Errorf("%w: year %d", ErrInvalidDate, year)
	}
	if month != 0 {
		if month < 1 || month > 12 {
			return fmt.Errorf("%w: month %d", ErrInvalidDate, month)
		}
		if year == 0 {
			return fmt.Errorf("%w: month without year", ErrInvalidDate)
		}
	}
	return nil
}

// ValidateFact validates a fact's confidence.
func ValidateFact(f Fact) error {
	if f.Confidence < 0 || f.Confidence > 100 {
		return fmt.Errorf("%w: value %d", ErrInvalidConfidence, f.Confidence)
	}
	return nil
}
