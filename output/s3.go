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
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3manager "github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/aaronlmathis/reviewsentiment/core"
)

// Uploader is the subset of the S3 upload manager used here.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

// S3Config describes the bucket the written file is copied to.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Key             string `yaml:"key"`      // Defaults to the base name of the local file
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"` // S3-compatible endpoint, e.g. MinIO
	UsePathStyle    bool   `yaml:"use_path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// UploadError reports a failed upload of the written file.
type UploadError struct {
	Bucket string
	Key    string
	Err    error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("s3 upload s3://%s/%s: %v", e.Bucket, e.Key, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// NewUploader builds an upload manager from cfg. Static credentials are used when
// both keys are set, otherwise the default AWS credential chain applies.
func NewUploader(ctx context.Context, cfg S3Config) (*s3manager.Uploader, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return s3manager.NewUploader(client), nil
}

// S3Location writes the file locally and uploads it to S3 once the sink is closed.
type S3Location struct {
	File     FileLocation
	Bucket   string
	Key      string
	Uploader Uploader
}

// NewSink creates the local sink and wraps it so Close also uploads the result.
func (s S3Location) NewSink(ctx context.Context, headers []string) (core.DataSink, error) {
	if s.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if s.Uploader == nil {
		return nil, fmt.Errorf("s3 uploader is required")
	}
	format, err := ResolveFormat(s.File.Path, s.File.Format)
	if err != nil {
		return nil, err
	}

	inner, err := s.File.NewSink(ctx, headers)
	if err != nil {
		return nil, err
	}

	key := s.Key
	if key == "" {
		key = filepath.Base(s.File.Path)
	}
	return &uploadSink{
		DataSink:    inner,
		ctx:         ctx,
		uploader:    s.Uploader,
		bucket:      s.Bucket,
		key:         key,
		path:        s.File.Path,
		contentType: format.ContentType(),
	}, nil
}

func (s S3Location) String() string {
	key := s.Key
	if key == "" {
		key = filepath.Base(s.File.Path)
	}
	return fmt.Sprintf("%s (s3://%s/%s)", s.File.Path, s.Bucket, key)
}

type uploadSink struct {
	core.DataSink
	ctx         context.Context
	uploader    Uploader
	bucket      string
	key         string
	path        string
	contentType string
}

// Abort discards the local file without uploading it.
func (u *uploadSink) Abort() error {
	return Abort(u.DataSink)
}

// Close saves the local file and then uploads it.
func (u *uploadSink) Close() error {
	if err := u.DataSink.Close(); err != nil {
		return err
	}

	file, err := os.Open(u.path)
	if err != nil {
		return &UploadError{Bucket: u.bucket, Key: u.key, Err: err}
	}
	defer file.Close()

	_, err = u.uploader.Upload(u.ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(u.key),
		Body:        file,
		ContentType: aws.String(u.contentType),
	})
	if err != nil {
		return &UploadError{Bucket: u.bucket, Key: u.key, Err: err}
	}
	return nil
}
