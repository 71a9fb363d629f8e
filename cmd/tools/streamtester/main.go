// Command streamtester connects the reconnecting stream client to an
// endpoint and prints every event it receives, exercising the backoff and
// playback-arbitration paths against a live server.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/voxdesk/client/internal/service/stream"
)

// printOutput stands in for the UI audio layer: it logs instead of playing.
type printOutput struct{}

type printPlayback struct {
	kind string
}

func (p printPlayback) Stop() {
	log.Printf("[output] stopped %s", p.kind)
}

func (printOutput) PlayAudio(data []byte, format string) (stream.Playback, error) {
	log.Printf("[output] playing %d bytes of %s audio", len(data), format)
	return printPlayback{kind: "audio"}, nil
}

func (printOutput) Speak(text, voice string) (stream.Playback, error) {
	log.Printf("[output] speaking %q with voice %q", text, voice)
	return printPlayback{kind: "speech"}, nil
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] no .env file, using system environment: %v", err)
	}

	endpoint := flag.String("endpoint", strings.TrimSpace(os.Getenv("VOXDESK_STREAM_URL")), "stream endpoint (ws:// or wss://)")
	flag.Parse()

	if *endpoint == "" {
		log.Fatal("no endpoint: pass -endpoint or set VOXDESK_STREAM_URL")
	}

	client := stream.NewClient(printOutput{})
	defer client.Disconnect()

	unsubscribe := client.OnEvent(func(evt stream.Event) {
		switch evt.Type {
		case stream.EventVoice:
			log.Printf("event=%s format=%s bytes=%d", evt.Type, evt.Format, len(evt.Audio))
		case stream.EventSpeak:
			log.Printf("event=%s voice=%s text=%q", evt.Type, evt.Voice, evt.Text)
		default:
			log.Printf("event=%s message=%q", evt.Type, evt.Message)
		}
	})
	defer unsubscribe()

	if err := client.Connect(*endpoint); err != nil {
		log.Printf("[WARN] initial connect failed, client will retry: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Printf("shutting down, state=%s", client.State())
}
