// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// above this size uploads go through the multipart manager
const multipartThreshold = 100 * 1024 * 1024

type S3Client struct {
	s3 manager.UploadAPIClient
}

func NewS3Client(ctx context.Context, cfgCreds S3Config) (*S3Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfgCreds.Region),
	}
	// static keys win; otherwise fall back to the default AWS chain
	if cfgCreds.AccessKey != "" {
		creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			cfgCreds.AccessKey,
			cfgCreds.SecretKey,
			cfgCreds.AccessToken,
		))
		opts = append(opts, config.WithCredentialsProvider(creds))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Options := func(o *s3.Options) {
		if cfgCreds.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfgCreds.EndpointURL)
			o.UsePathStyle = true // necessario per molti S3-compat
		}
	}

	return &S3Client{
		s3: s3.NewFromConfig(cfg, s3Options),
	}, nil
}

// NewS3ClientFromAPI wraps an existing client, e.g. a fake in tests.
func NewS3ClientFromAPI(api manager.UploadAPIClient) *S3Client {
	return &S3Client{s3: api}
}

func (c *S3Client) UploadFile(ctx context.Context, bucket, key string, file *os.File) error {
	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat error: %w", err)
	}
	size := info.Size()

	// Detect MIME TYPE
	buf := make([]byte, 512)
	n, _ := file.Read(buf)
	mime := http.DetectContentType(buf[:n])
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind error: %w", err)
	}

	if size > multipartThreshold {
		_, err = manager.NewUploader(c.s3).Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(bucket),
			Key:         aws.String(key),
			Body:        file,
			ContentType: aws.String(mime),
		})
		return err
	}

	_, err = c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(mime),
	})
	return err
}

// UploadDir walks localDir and uploads every regular file under prefix, keeping
// relative paths. It returns the keys written, in walk order.
func (c *S3Client) UploadDir(ctx context.Context, bucket, prefix, localDir string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(localDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		key := path.Join(strings.Trim(prefix, "/"), filepath.ToSlash(rel))

		f, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("failed to open local file: %w", err)
		}
		defer f.Close()

		if err := c.UploadFile(ctx, bucket, key, f); err != nil {
			return fmt.Errorf("upload of %s failed: %w", rel, err)
		}
		keys = append(keys, key)
		return nil
	})
	return keys, err
}
