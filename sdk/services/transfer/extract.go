// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// Extract unpacks an in-memory zip archive into dest, creating it if needed and keeping
// the paths stored in the archive. It returns the files written, relative to dest.
// No checksum is verified. Entries that would resolve outside dest abort the extraction
// with ErrUnsafePath.
func (s *TransferService) Extract(data []byte, dest string) ([]string, error) {
	files, err := ExtractZip(data, dest)
	s.metrics.Extracted(len(files))
	return files, err
}

func ExtractZip(data []byte, dest string) ([]string, error) {
	// a reader returned alongside an error only flags entry names; safeJoin vets those
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if zr == nil {
		return nil, fmt.Errorf("invalid zip archive: %w", err)
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, err
	}
	root, err := filepath.Abs(dest)
	if err != nil {
		return nil, err
	}

	var written []string
	for _, file := range zr.File {
		target, err := safeJoin(root, file.Name)
		if err != nil {
			return written, err
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return written, err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return written, err
		}
		if err := writeEntry(file, target); err != nil {
			return written, fmt.Errorf("extracting %s: %w", file.Name, err)
		}
		rel, _ := filepath.Rel(root, target)
		written = append(written, filepath.ToSlash(rel))
	}
	return written, nil
}

func safeJoin(root, name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	target := filepath.Join(root, name)
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}

func writeEntry(file *zip.File, target string) error {
	fr, err := file.Open()
	if err != nil {
		return err
	}
	defer fr.Close()

	mode := file.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	fw, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, fr); err != nil {
		fw.Close()
		return err
	}
	return fw.Close()
}
