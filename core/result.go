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

package core

// Result carries a value that is always safe to use, plus the error that caused a
// default to be substituted for it, if any.
//
// Stages that must never abort the run (text cleaning, polarity scoring) return a
// Result instead of (T, error) so the fallback is visible at the call site.
type Result[T any] struct {
	Value T
	Err   error
}

// Ok wraps a successfully computed value.
func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Fallback records err and substitutes def as the value.
func Fallback[T any](def T, err error) Result[T] {
	return Result[T]{Value: def, Err: err}
}

// Failed reports whether the value is a substituted default.
func (r Result[T]) Failed() bool {
	return r.Err != nil
}
