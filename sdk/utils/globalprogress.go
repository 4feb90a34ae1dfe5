// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"fmt"
	"io"
	"time"
)

/* ------------ tiny UI helpers for single-line progress ------------ */

// Progress renders a single, throttled progress line for one transfer.
// It is an io.Writer so it can sit behind an io.TeeReader.
type Progress struct {
	out        io.Writer
	label      string
	totalKnown bool
	totalBytes int64
	doneBytes  int64
	spinIdx    int
	lastTick   time.Time
}

var spinner = []rune{'|', '/', '-', '\\'}

// NewProgress starts a progress line; total <= 0 means unknown size.
func NewProgress(out io.Writer, label string, total int64) *Progress {
	return &Progress{
		out:        out,
		label:      label,
		totalKnown: total > 0,
		totalBytes: total,
	}
}

func (gp *Progress) Write(p []byte) (int, error) {
	gp.doneBytes += int64(len(p))
	gp.render(false)
	return len(p), nil
}

func HumanBytes(n int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)
	switch {
	case n >= GB:
		return fmt.Sprintf("%.2f GB", float64(n)/float64(GB))
	case n >= MB:
		return fmt.Sprintf("%.2f MB", float64(n)/float64(MB))
	case n >= KB:
		return fmt.Sprintf("%.2f KB", float64(n)/float64(KB))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func (gp *Progress) render(force bool) {
	// throttling: update ~10 times each seconds to avoid “spamming”
	if !force && time.Since(gp.lastTick) < 100*time.Millisecond {
		return
	}
	gp.lastTick = time.Now()

	if gp.totalKnown && gp.totalBytes > 0 {
		done := min(gp.doneBytes, gp.totalBytes)
		pct := float64(done) / float64(gp.totalBytes) * 100
		fmt.Fprintf(gp.out, "\r%s: %6.2f%% (%s / %s)   ",
			gp.label, pct, HumanBytes(done), HumanBytes(gp.totalBytes))
	} else {
		ch := spinner[gp.spinIdx%len(spinner)]
		gp.spinIdx++
		fmt.Fprintf(gp.out, "\r%s: [%c] %s downloaded   ", gp.label, ch, HumanBytes(gp.doneBytes))
	}
}

func (gp *Progress) Done() {
	gp.render(true)
	fmt.Fprintln(gp.out)
}
