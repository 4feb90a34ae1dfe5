// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"
	"errors"
	"path"
	"path/filepath"

	"go.uber.org/zap"
)

// PublishEnabled reports whether an S3 destination is configured.
func (s *TransferService) PublishEnabled() bool {
	return s.s3 != nil && s.s3conf.Bucket != ""
}

// Publish copies the extracted output directory to s3://<bucket>/<prefix>/<dir name>/.
func (s *TransferService) Publish(ctx context.Context, localDir string) ([]string, error) {
	if !s.PublishEnabled() {
		return nil, errors.New("s3 destination not configured")
	}
	prefix := path.Join(s.s3conf.Prefix, filepath.Base(filepath.Clean(localDir)))
	keys, err := s.s3.UploadDir(ctx, s.s3conf.Bucket, prefix, localDir)
	if err != nil {
		return keys, err
	}
	s.logger.Info("output published",
		zap.String("bucket", s.s3conf.Bucket),
		zap.String("prefix", prefix),
		zap.Int("objects", len(keys)))
	return keys, nil
}
