// Command steadymq-publish reads lines from stdin and publishes each one as a
// message, reporting delivery statistics on exit. Configuration comes from
// the MQ_* environment variables.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	steadymq "github.com/steadymq/steadymq-go"
	"github.com/steadymq/steadymq-go/messaging"
)

func main() {
	var (
		badge        = flag.String("badge", messaging.DefaultBadge, "publisher badge")
		routingKey   = flag.String("key", "steadymq.demo", "routing key for published lines")
		startTimeout = flag.Duration("start-timeout", 30*time.Second, "how long to wait for the publisher to come up")
		drainTimeout = flag.Duration("drain", 5*time.Second, "how long to wait for outstanding confirmations on exit")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(logger, *badge, *routingKey, *startTimeout, *drainTimeout); err != nil {
		logger.Error("steadymq-publish failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, badge, routingKey string, startTimeout, drainTimeout time.Duration) error {
	client, err := steadymq.NewClient(steadymq.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	publisher, err := client.CreatePublisher(badge)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer client.DestroyPublisher(badge)

	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()
	if err := client.StartPublisher(ctx, badge); err != nil {
		return fmt.Errorf("starting publisher: %w", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

loop:
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			if _, err := client.Publish(context.Background(), badge, routingKey, []byte(line)); err != nil {
				logger.Error("publish refused", "error", err)
			}
		case <-stop:
			break loop
		}
	}

	drain(publisher, drainTimeout)

	stats := publisher.Stats()
	fmt.Fprintf(os.Stderr, "published %d, confirmed %d, rejected %d, pending %d\n",
		stats.LastTransmitted, stats.Acked, stats.Nacked, stats.Pending)
	return nil
}

// drain waits for outstanding confirmations, up to the timeout.
func drain(p *messaging.Publisher, timeout time.Duration) {
	deadline := time.After(timeout)
	for p.PendingCount() > 0 || p.Stats().LastTransmitted < p.Stats().LastSubmitted {
		select {
		case <-deadline:
			return
		case <-time.After(50 * time.Millisecond):
		}
	}
}
