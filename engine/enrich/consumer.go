package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/carthesien/enrich/pkg/natsutil"
)

const (
	// ListingSubject carries inbound enrichment requests.
	ListingSubject = "enrich.listing"
	// RecordSubject carries finished enrichment records.
	RecordSubject = "enrich.record"
	// DLQSubject receives requests that kept failing.
	DLQSubject = "enrich.listing.dlq"
	// MaxRetries before a request lands on the DLQ.
	MaxRetries = 3

	retryHeader    = "X-Retry-Count"
	consumeTimeout = 30 * time.Second
)

// dlqMessage is published to the DLQ on repeated failure.
type dlqMessage struct {
	Request Request `json:"request"`
	Error   string  `json:"error"`
	Retries int     `json:"retries"`
}

// publisher is the slice of the NATS connection the consumer needs.
// Satisfied by *nats.Conn; widened to an interface for tests.
type publisher interface {
	Publish(subject string, data []byte) error
	PublishMsg(msg *nats.Msg) error
}

// StartConsumer subscribes the service to the listing subject. Failed
// requests are re-published with an incremented retry header until
// MaxRetries, then dead-lettered.
func StartConsumer(nc *nats.Conn, svc *Service, log *slog.Logger) (*nats.Subscription, error) {
	if log == nil {
		log = slog.Default()
	}
	return nc.Subscribe(ListingSubject, func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(natsutil.Extract(context.Background(), msg), consumeTimeout)
		defer cancel()
		handle(ctx, nc, svc, msg, log)
	})
}

func handle(ctx context.Context, pub publisher, svc *Service, msg *nats.Msg, log *slog.Logger) {
	var req Request
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		// Malformed payloads will never succeed; drop, don't retry.
		log.Error("enrich: unmarshal failed", "error", err)
		return
	}

	retries := 0
	if msg.Header != nil {
		if v := msg.Header.Get(retryHeader); v != "" {
			fmt.Sscanf(v, "%d", &retries)
		}
	}

	rec, err := svc.Enrich(ctx, req)
	if err != nil {
		log.Error("enrich: pipeline failed",
			"error", err,
			"title", req.Listing.Title,
			"retry", retries,
		)
		if retries >= MaxRetries {
			dlq := dlqMessage{Request: req, Error: err.Error(), Retries: retries}
			data, _ := json.Marshal(dlq)
			if err := pub.Publish(DLQSubject, data); err != nil {
				log.Error("enrich: DLQ publish failed", "error", err)
			}
			return
		}
		retryMsg := nats.NewMsg(ListingSubject)
		retryMsg.Data = msg.Data
		retryMsg.Header = nats.Header{}
		retryMsg.Header.Set(retryHeader, fmt.Sprintf("%d", retries+1))
		if err := pub.PublishMsg(retryMsg); err != nil {
			log.Error("enrich: retry publish failed", "error", err)
		}
		return
	}

	data, err := json.Marshal(rec)
	if err != nil {
		log.Error("enrich: marshal record failed", "error", err)
		return
	}
	if err := pub.Publish(RecordSubject, data); err != nil {
		log.Error("enrich: record publish failed", "error", err)
	}
}

// PublishRequest sends one request onto the listing subject with trace
// propagation.
func PublishRequest(ctx context.Context, nc *nats.Conn, req Request) error {
	return natsutil.Publish(ctx, nc, ListingSubject, req)
}
