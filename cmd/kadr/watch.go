package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/kadr/internal/events"
	"github.com/alfredjeanlab/kadr/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Stream catalog and personnel events",
	GroupID: "system",
	Long: `Print events as they are published.

Events are read from NATS when KADR_NATS_URL (or the active remote's nats_url)
is set, and from the server's /v1/events/stream endpoint otherwise.`,
	PersistentPreRunE: noClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, _ := cmd.Flags().GetString("topic")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if u := natsURL(); u != "" {
			return watchNATS(ctx, u, topic)
		}
		return watchStream(ctx, httpURL, token, topic)
	},
}

func watchNATS(ctx context.Context, natsAddr, topic string) error {
	sub, err := events.NewNATSSubscriber(natsAddr,
		nats.Name("kadr-watch"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(topic)
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	defer cancel()

	logger.Debug("watching NATS", "url", natsAddr, "topic", topic)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			printEvent(msg.Topic, msg.Data)
		}
	}
}

func watchStream(ctx context.Context, baseURL, tok, topic string) error {
	q := url.Values{}
	if topic != "" && topic != events.TopicAll {
		q.Set("topics", topic)
	}
	u := strings.TrimRight(baseURL, "/") + "/v1/events/stream"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("connecting to %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("event stream: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	logger.Debug("watching event stream", "url", u)
	err = readStream(resp.Body, printEvent)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// readStream parses a text/event-stream body and calls fn once per event.
// Comment lines (keepalives) are skipped.
func readStream(r io.Reader, fn func(topic string, data []byte)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var topic string
	var data []string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if len(data) > 0 {
				fn(topic, []byte(strings.Join(data, "\n")))
			}
			topic, data = "", nil
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			topic = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	return scanner.Err()
}

func printEvent(topic string, data []byte) {
	if jsonOutput {
		out := map[string]any{"data": json.RawMessage(data)}
		if topic != "" {
			out["topic"] = topic
		}
		line, err := json.Marshal(out)
		if err != nil {
			line = data
		}
		fmt.Println(string(line))
		return
	}
	ts := time.Now().Format("15:04:05")
	if topic == "" {
		fmt.Printf("%s %s\n", ui.RenderMuted(ts), data)
		return
	}
	fmt.Printf("%s %s %s\n", ui.RenderMuted(ts), ui.RenderAccent(topic), data)
}

func init() {
	watchCmd.Flags().String("topic", events.TopicAll, "topic pattern to watch")
}
