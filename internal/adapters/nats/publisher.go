package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/nats-io/nats.go"

	"github.com/paddymap/paddymap/internal/core/domain"
)

// Subject roots used by the publisher, the advisor consumer and the WebSocket relay.
const (
	DetectionSubjects      = "detections.>"
	AdviceSubjects         = "advice.>"
	RecommendationSubjects = "recommendations.>"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Ensure streams exist
	streams := []nats.StreamConfig{
		{
			Name:      "DETECTIONS",
			Subjects:  []string{DetectionSubjects},
			Retention: nats.LimitsPolicy,
			MaxAge:    7 * 24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "TREATMENT_ADVICE",
			Subjects:  []string{AdviceSubjects},
			Retention: nats.LimitsPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "RECOMMENDATIONS",
			Subjects:  []string{RecommendationSubjects},
			Retention: nats.LimitsPolicy,
			MaxAge:    30 * 24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishDetection publishes on detections.<disease>.
func (p *Publisher) PublishDetection(ctx context.Context, d *domain.Detection) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(DetectionSubject(d.Disease), data, nats.Context(ctx), nats.MsgId(d.ID))
	return err
}

// PublishAdvice publishes on advice.<farmer>.
func (p *Publisher) PublishAdvice(ctx context.Context, advice *domain.TreatmentAdvice) error {
	data, err := json.Marshal(advice)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(AdviceSubject(advice.FarmerID), data, nats.Context(ctx), nats.MsgId("advice-"+advice.DetectionID))
	return err
}

// PublishRecommendation publishes on recommendations.<farmer>.
func (p *Publisher) PublishRecommendation(ctx context.Context, r *domain.Recommendation) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(RecommendationSubject(r.FarmerID), data, nats.Context(ctx), nats.MsgId(r.ID))
	return err
}

// Conn exposes the underlying connection for readiness checks and relays.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// DetectionSubject returns the subject a detection of disease is published on.
func DetectionSubject(disease string) string {
	return "detections." + subjectToken(disease)
}

// AdviceSubject returns the subject a farmer's advice is published on.
func AdviceSubject(farmerID string) string {
	return "advice." + subjectToken(farmerID)
}

// RecommendationSubject returns the subject a farmer's recommendations are published on.
func RecommendationSubject(farmerID string) string {
	return "recommendations." + subjectToken(farmerID)
}

// subjectToken lowercases s and replaces anything that is not a letter or
// digit with '_', so the result is a single NATS subject token.
func subjectToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			return r
		}
		return '_'
	}, s)
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("paddymap"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
