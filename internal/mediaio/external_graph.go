package mediaio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os/exec"
	"sync"

	streamerrors "github.com/loomaudio/streamcore/internal/errors"
	"github.com/loomaudio/streamcore/internal/logging"
	"github.com/loomaudio/streamcore/internal/models"
)

// filterChunkBytes is the read buffer size for the filter subprocess's
// stdout reader goroutine, mirroring Process.readAudioOutput's 64KiB
// chunking.
const filterChunkBytes = 65536

// ExternalFilterRunner is the concrete FilterRunner backed by the
// external media tool running in filter-pipe mode: raw Float32LE PCM
// in on stdin, filtered PCM back out on stdout. Grounded on Process's
// background-goroutine-plus-buffered-channel shape (readAudioOutput):
// a writer goroutine drains an input channel to stdin and a reader
// goroutine pushes stdout chunks onto an output channel, so Process
// never itself blocks on subprocess I/O — required by spec §5's
// "hardware render callback must not block on I/O" rule. A filter that
// changes the frame count per call (e.g. tempo) naturally produces
// output chunks that don't line up with input chunk boundaries; Process
// buffers any leftover bytes in pending rather than demanding an exact
// byte count back per call.
type ExternalFilterRunner struct {
	mu         sync.Mutex
	toolPath   string
	sampleRate int
	channels   int

	cmd    *exec.Cmd
	cancel context.CancelFunc
	stdin  io.WriteCloser
	stdout io.ReadCloser

	input  chan []byte
	output chan []byte

	// pending holds filtered bytes already read off output but not yet
	// consumed by a Process call. Touched only from Process, which spec
	// §5 guarantees is called from a single render thread.
	pending []byte
}

// NewExternalFilterRunner constructs a runner that will spawn toolPath
// as needed on Reconfigure.
func NewExternalFilterRunner(toolPath string, sampleRate, channels int) *ExternalFilterRunner {
	return &ExternalFilterRunner{toolPath: toolPath, sampleRate: sampleRate, channels: channels}
}

// Reconfigure stops any running filter process and, if spec is
// non-empty, spawns a fresh one along with its writer/reader pump
// goroutines. An empty spec (bypass) leaves the runner idle.
func (r *ExternalFilterRunner) Reconfigure(spec string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked()
	r.pending = nil
	if spec == "" {
		return nil
	}

	log := logging.ForComponent("mediaio.external_graph")
	ctx, cancel := context.WithCancel(context.Background())

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "f32le", "-ar", fmt.Sprintf("%d", r.sampleRate), "-ac", fmt.Sprintf("%d", r.channels),
		"-i", "pipe:0",
		"-af", spec,
		"-f", "f32le", "pipe:1",
	}
	cmd := exec.CommandContext(ctx, r.toolPath, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return streamerrors.New(err).Component("mediaio").
			Category(streamerrors.CategoryResourceAlloc).Build()
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return streamerrors.New(err).Component("mediaio").
			Category(streamerrors.CategoryResourceAlloc).Build()
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return streamerrors.New(err).Component("mediaio").
			Category(streamerrors.CategoryConnectionFailed).Build()
	}

	log.Debug("filter graph process started", "spec", spec)
	r.cmd, r.cancel, r.stdin, r.stdout = cmd, cancel, stdin, stdout
	r.input = make(chan []byte, 64)
	r.output = make(chan []byte, 64)

	go r.writeLoop(ctx, stdin, r.input)
	go r.readLoop(ctx, stdout, r.output)

	return nil
}

// writeLoop drains in to stdin until ctx is cancelled or in is closed,
// off the render thread.
func (r *ExternalFilterRunner) writeLoop(ctx context.Context, stdin io.WriteCloser, in <-chan []byte) {
	for {
		select {
		case data, ok := <-in:
			if !ok {
				return
			}
			if _, err := stdin.Write(data); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// readLoop copies stdout chunks onto out until ctx is cancelled or
// stdout closes, off the render thread — mirrors Process.readAudioOutput.
func (r *ExternalFilterRunner) readLoop(ctx context.Context, stdout io.ReadCloser, out chan<- []byte) {
	buf := make([]byte, filterChunkBytes)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, err := stdout.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case out <- data:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// Process hands buf's samples to the filter process's input channel
// and fills buf in place with whatever filtered output is already
// available, without blocking: a buffer that hasn't caught up yet is
// zero-filled past the available data, trading a little latency for
// never stalling the render callback. A no-op (pass through unchanged)
// when no process is configured (bypass).
func (r *ExternalFilterRunner) Process(buf *models.AudioBuffer) error {
	r.mu.Lock()
	input, output := r.input, r.output
	r.mu.Unlock()
	if input == nil || output == nil {
		return nil
	}

	out := make([]byte, len(buf.Samples)*4)
	for i, s := range buf.Samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}

	select {
	case input <- out:
	default:
		// Writer is backed up; drop this chunk rather than block the
		// render thread. The filter's output will simply run a little
		// further behind.
	}

	needed := len(buf.Samples) * 4
	collected := r.pending
collectLoop:
	for len(collected) < needed {
		select {
		case chunk := <-output:
			collected = append(collected, chunk...)
		default:
			break collectLoop
		}
	}

	n := len(collected)
	if n > needed {
		n = needed
	}
	for i := 0; i*4+4 <= n; i++ {
		buf.Samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(collected[i*4:]))
	}
	filledFrames := n / 4
	for i := filledFrames; i < len(buf.Samples); i++ {
		buf.Samples[i] = 0
	}

	if n < len(collected) {
		leftover := make([]byte, len(collected)-n)
		copy(leftover, collected[n:])
		r.pending = leftover
	} else {
		r.pending = nil
	}
	return nil
}

// Close tears down any running filter process.
func (r *ExternalFilterRunner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
	return nil
}

func (r *ExternalFilterRunner) stopLocked() {
	if r.cancel == nil {
		return
	}
	_ = r.stdin.Close()
	r.cancel()
	_ = r.cmd.Wait()
	r.cmd, r.cancel, r.stdin, r.stdout = nil, nil, nil, nil
	r.input, r.output = nil, nil
}
