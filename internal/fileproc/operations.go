package fileproc

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/loomaudio/streamcore/internal/mediaio"
	"github.com/loomaudio/streamcore/internal/models"
)

// TranscodeOptions configures Transcode; zero values mean "leave as
// the source has it" except Format, which is required.
type TranscodeOptions struct {
	Format   string // output container/codec, e.g. "mp3", "flac"
	BitRate  string // e.g. "192k"; empty to omit
	Rate     int    // output sample rate; 0 to omit
	Channels int    // output channel count; 0 to omit
}

// Transcode re-encodes in to out in the requested format, per spec
// §6's transcode(in,out,format,bitrate?,rate?,channels?) helper.
func (r *Runner) Transcode(ctx context.Context, in, out string, opts TranscodeOptions) error {
	args := []string{"-hide_banner", "-loglevel", "error", "-y", "-i", in}
	if opts.BitRate != "" {
		args = append(args, "-b:a", opts.BitRate)
	}
	if opts.Rate > 0 {
		args = append(args, "-ar", strconv.Itoa(opts.Rate))
	}
	if opts.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(opts.Channels))
	}
	if opts.Format != "" {
		args = append(args, "-f", opts.Format)
	}
	args = append(args, out)
	return r.run(ctx, args)
}

// TrimOptions configures Trim. End, FadeInS, and FadeOutS are
// optional (zero value omits them).
type TrimOptions struct {
	StartS  float64
	EndS    float64 // 0 means "to end of file"
	FadeInS float64
	FadeOutS float64
}

// Trim extracts [start, end) from in into out, with optional fade-in/
// fade-out, per spec §6's trim(in,out,start,end?,fade_in?,fade_out?)
// helper. Local WAV input is trimmed sample-accurately without
// invoking the external tool; see TrimWAV.
func (r *Runner) Trim(ctx context.Context, in, out string, opts TrimOptions) error {
	if strings.HasSuffix(strings.ToLower(in), ".wav") && strings.HasSuffix(strings.ToLower(out), ".wav") && opts.FadeInS == 0 && opts.FadeOutS == 0 {
		return TrimWAV(in, out, opts.StartS, opts.EndS)
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-y", "-ss", fmtFloat(opts.StartS), "-i", in}
	if opts.EndS > 0 {
		args = append(args, "-t", fmtFloat(opts.EndS-opts.StartS))
	}

	var filters []string
	if opts.FadeInS > 0 {
		filters = append(filters, fmt.Sprintf("afade=t=in:st=0:d=%f", opts.FadeInS))
	}
	if opts.FadeOutS > 0 {
		filters = append(filters, fmt.Sprintf("afade=t=out:st=%f:d=%f", opts.EndS-opts.StartS-opts.FadeOutS, opts.FadeOutS))
	}
	if len(filters) > 0 {
		args = append(args, "-af", strings.Join(filters, ","))
	}

	args = append(args, out)
	return r.run(ctx, args)
}

// Concatenate joins inputs in order into out, per spec §6's
// concatenate(inputs[], out) helper, using the concat filter in a
// -filter_complex graph over the audio of every input (no list file).
func (r *Runner) Concatenate(ctx context.Context, inputs []string, out string) error {
	args := []string{"-hide_banner", "-loglevel", "error", "-y"}
	for _, in := range inputs {
		args = append(args, "-i", in)
	}

	var filterInputs strings.Builder
	for i := range inputs {
		fmt.Fprintf(&filterInputs, "[%d:a]", i)
	}
	filterComplex := fmt.Sprintf("%sconcat=n=%d:v=0:a=1[out]", filterInputs.String(), len(inputs))

	args = append(args, "-filter_complex", filterComplex, "-map", "[out]", out)
	return r.run(ctx, args)
}

// Resample converts in to out at rate, per spec §6's resample
// helper.
func (r *Runner) Resample(ctx context.Context, in, out string, rate int) error {
	return r.Transcode(ctx, in, out, TranscodeOptions{Format: outputFormatFromExt(out), Rate: rate})
}

// ConvertChannels converts in to out with the given channel count, per
// spec §6's channel-count-convert helper.
func (r *Runner) ConvertChannels(ctx context.Context, in, out string, channels int) error {
	return r.Transcode(ctx, in, out, TranscodeOptions{Format: outputFormatFromExt(out), Channels: channels})
}

// ExtractAudio strips any video stream from in, writing an
// audio-only out, per spec §6's extract-audio helper.
func (r *Runner) ExtractAudio(ctx context.Context, in, out string) error {
	args := []string{"-hide_banner", "-loglevel", "error", "-y", "-i", in, "-vn", "-acodec", "copy", out}
	if err := r.run(ctx, args); err != nil {
		// Fall back to re-encoding when the source codec can't be
		// copied into the target container as-is.
		return r.run(ctx, []string{"-hide_banner", "-loglevel", "error", "-y", "-i", in, "-vn", out})
	}
	return nil
}

// GetAudioInfo probes in and returns its StreamInfo, per spec §6's
// get-audio-info helper. It reuses the same Connection.Open path the
// player itself uses to probe local and remote sources, so the
// reported fields (is_lossless, is_hi_res, quality_label) match
// exactly what playback would see.
func GetAudioInfo(ctx context.Context, conn *mediaio.Connection, url string) (models.StreamInfo, error) {
	dec, info, err := conn.Open(ctx, url)
	if err != nil {
		return models.StreamInfo{}, err
	}
	defer dec.Close()
	return info, nil
}

func outputFormatFromExt(path string) string {
	idx := strings.LastIndex(path, ".")
	if idx < 0 || idx == len(path)-1 {
		return ""
	}
	ext := strings.ToLower(path[idx+1:])
	switch ext {
	case "m4a":
		return "ipod"
	default:
		return ext
	}
}
