//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of ReviewSentiment.
//
// ReviewSentiment is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// ReviewSentiment is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with ReviewSentiment. If not, see https://www.gnu.org/licenses/.
//

package transform

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/aaronlmathis/reviewsentiment/core"
)

// Package transform provides the text normalization applied to review text before scoring.

// ErrInvalidText is returned for input that is not valid UTF-8.
var ErrInvalidText = errors.New("text is not valid utf-8")

var (
	// nonWordSpace matches any rune that is neither a word rune (letter, number,
	// underscore) nor whitespace. The information separators \x1c-\x1f and NEL
	// count as whitespace.
	nonWordSpace = regexp.MustCompile(`[^\p{L}\p{N}_\s\v\x1c-\x1f\x85\p{Z}]`)
	// spaceRun matches runs of the same whitespace class nonWordSpace keeps.
	spaceRun = regexp.MustCompile(`[\s\v\x1c-\x1f\x85\p{Z}]+`)
)

// TextOf renders a column value as review text.
// A nil value (SQL NULL or absent column) becomes the empty string.
func TextOf(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case *string:
		if v == nil {
			return ""
		}
		return *v
	default:
		return fmt.Sprint(v)
	}
}

// CleanText lowercases text, turns hyphens into spaces, strips every character that
// is not a word character or whitespace, collapses whitespace and trims the result.
//
// CleanText never fails the caller: on error the Result holds "" and the cause.
func CleanText(text string) (res core.Result[string]) {
	defer func() {
		if r := recover(); r != nil {
			res = core.Fallback("", fmt.Errorf("cleaning text: %v", r))
		}
	}()

	if !utf8.ValidString(text) {
		return core.Fallback("", ErrInvalidText)
	}

	text = strings.ToLower(text)
	text = strings.ReplaceAll(text, "-", " ")
	text = nonWordSpace.ReplaceAllString(text, "")
	text = spaceRun.ReplaceAllString(text, " ")
	return core.Ok(strings.Trim(text, " "))
}

// Clean is CleanText over a raw column value, discarding the failure cause.
func Clean(value interface{}) string {
	return CleanText(TextOf(value)).Value
}
