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

package output

import (
	"context"
)

// Config selects the output destination.
type Config struct {
	Path   string    `yaml:"path"`
	Format Format    `yaml:"format"` // xlsx, csv or parquet; inferred from Path when empty
	Sheet  string    `yaml:"sheet"`
	S3     *S3Config `yaml:"s3,omitempty"`
}

// Validate checks that the path and format are usable.
func (c Config) Validate() error {
	_, err := ResolveFormat(c.Path, c.Format)
	return err
}

// Location builds the configured destination. The AWS client is only created when an
// S3 section is present.
func (c Config) Location(ctx context.Context) (Location, error) {
	file := FileLocation{Path: c.Path, Format: c.Format, Sheet: c.Sheet}
	if c.S3 == nil || c.S3.Bucket == "" {
		return file, nil
	}

	uploader, err := NewUploader(ctx, *c.S3)
	if err != nil {
		return nil, err
	}
	return S3Location{
		File:     file,
		Bucket:   c.S3.Bucket,
		Key:      c.S3.Key,
		Uploader: uploader,
	}, nil
}
