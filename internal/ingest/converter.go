package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"strings"
	"time"

	"commissioning-backend/internal/apperr"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultTimeout     = 60 * time.Second
	DefaultMaxParallel = 4

	// stderr beyond this is cut from error messages
	maxStderr = 2048
)

// Converter runs an external workbook converter. The workbook is written to
// the process's stdin and a JSON document is expected on stdout.
type Converter struct {
	command []string
	timeout time.Duration
	sem     *semaphore.Weighted
	logger  *zap.Logger
}

// NewConverter builds a converter for command (program followed by its
// arguments). maxParallel bounds how many processes run at once.
func NewConverter(command []string, timeout time.Duration, maxParallel int, logger *zap.Logger) (*Converter, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, errors.New("converter command is empty")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxParallel <= 0 {
		maxParallel = DefaultMaxParallel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{
		command: append([]string(nil), command...),
		timeout: timeout,
		sem:     semaphore.NewWeighted(int64(maxParallel)),
		logger:  logger,
	}, nil
}

// Convert feeds data to the converter and returns the JSON it printed.
// Failures are classified as ConversionTimeout, ConversionFailed or
// MalformedConverterOutput. Nothing is retried.
func (c *Converter) Convert(ctx context.Context, data []byte) (json.RawMessage, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, apperr.Wrap(apperr.KindConversionTimeout, err, "conversion was cancelled while waiting for a converter slot")
	}
	defer c.sem.Release(1)

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, c.command[0], c.command[1:]...)
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if runCtx.Err() != nil {
		c.logger.Warn("converter timed out",
			zap.Duration("timeout", c.timeout),
			zap.Duration("elapsed", elapsed),
		)
		return nil, apperr.Wrap(apperr.KindConversionTimeout, runCtx.Err(), "conversion did not finish within %s", c.timeout)
	}
	if err != nil {
		detail := trimStderr(stderr.String())
		c.logger.Warn("converter failed",
			zap.Error(err),
			zap.String("stderr", detail),
			zap.Duration("elapsed", elapsed),
		)
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if detail == "" {
				return nil, apperr.Wrap(apperr.KindConversionFailed, err, "converter exited with status %d", exitErr.ExitCode())
			}
			return nil, apperr.Wrap(apperr.KindConversionFailed, err, "converter exited with status %d: %s", exitErr.ExitCode(), detail)
		}
		return nil, apperr.Wrap(apperr.KindConversionFailed, err, "converter could not be started")
	}

	out := bytes.TrimSpace(stdout.Bytes())
	if len(out) == 0 || !json.Valid(out) {
		c.logger.Warn("converter produced invalid JSON", zap.Int("bytes", stdout.Len()))
		return nil, apperr.New(apperr.KindMalformedConverterOutput, "converter output is not valid JSON")
	}

	c.logger.Debug("converter finished", zap.Duration("elapsed", elapsed), zap.Int("bytes", len(out)))
	return json.RawMessage(out), nil
}

func trimStderr(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderr {
		s = s[:maxStderr] + "..."
	}
	return s
}
