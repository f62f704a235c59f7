// streamcore-demo wires a Player end to end and plays one URL from
// argv. It exists so the module has a go build-able entry point; it is
// not a feature of the player engine itself.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/loomaudio/streamcore/internal/config"
	"github.com/loomaudio/streamcore/internal/mediaio"
	"github.com/loomaudio/streamcore/internal/metrics"
	"github.com/loomaudio/streamcore/internal/models"
	"github.com/loomaudio/streamcore/internal/pipeline"
	"github.com/loomaudio/streamcore/internal/sink"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: %s <url>", os.Args[0])
	}
	url := os.Args[1]

	metrics.Init(prometheus.DefaultRegisterer)

	eng := config.Defaults()
	conn := mediaio.NewConnection("ffmpeg", 48000, 2, 16)
	sinkCfg := sink.Config{SampleRate: 48000, Channels: 2}

	player := pipeline.New(conn, nil, nil, eng, sinkCfg)
	player.Observe(func(from, to models.PlaybackState) {
		fmt.Printf("state: %s -> %s\n", from, to)
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := player.Play(url); err != nil {
		log.Fatalf("play %s: %v", url, err)
	}

	<-ctx.Done()
	if err := player.Stop(); err != nil {
		log.Printf("stop: %v", err)
	}
}
