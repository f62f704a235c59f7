// Package fileproc implements spec.md §6's file-processing helpers:
// transcode, trim, concatenate, resample, channel-count-convert,
// extract-audio, and get-audio-info. These sit outside the playback
// core but share its media tool and decode paths.
package fileproc

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"

	streamerrors "github.com/loomaudio/streamcore/internal/errors"
	"github.com/loomaudio/streamcore/internal/logging"
)

// Runner shells out to the external media tool (the same binary
// internal/mediaio.Process drives for streaming decode) to perform
// file-to-file remux/filter operations, per spec §6's "implemented on
// top of the same media I/O library" note.
type Runner struct {
	ToolPath string
}

// NewRunner builds a Runner targeting toolPath (e.g. "ffmpeg").
func NewRunner(toolPath string) *Runner {
	return &Runner{ToolPath: toolPath}
}

// run executes the tool with args to completion, surfacing stderr
// output as a structured error on non-zero exit, grounded on
// internal/mediaio.Process's stderr-scanning convention.
func (r *Runner) run(ctx context.Context, args []string) error {
	log := logging.ForComponent("fileproc.runner")
	log.Debug("running media tool", "tool", r.ToolPath, "arg_count", len(args))

	cmd := exec.CommandContext(ctx, r.ToolPath, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return streamerrors.New(err).Component("fileproc").
			Category(streamerrors.CategoryResourceAlloc).
			Context("operation", "create-stderr-pipe").Build()
	}

	if err := cmd.Start(); err != nil {
		return streamerrors.New(err).Component("fileproc").
			Category(streamerrors.CategoryConnectionFailed).
			Context("tool", r.ToolPath).Build()
	}

	var lines []string
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if err := cmd.Wait(); err != nil {
		return streamerrors.New(err).Component("fileproc").
			Category(streamerrors.CategoryDecodingFailed).
			Context("tool", r.ToolPath).
			Context("stderr", strings.Join(lines, "\n")).Build()
	}
	return nil
}

func fmtFloat(v float64) string {
	return fmt.Sprintf("%f", v)
}
