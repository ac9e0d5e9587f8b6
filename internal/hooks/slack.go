package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const slackTimeout = 10 * time.Second

// SlackWebhook posts event messages to a Slack incoming webhook.
type SlackWebhook struct {
	url    string
	client *http.Client
}

// NewSlackWebhook builds a notifier for the given webhook URL.
func NewSlackWebhook(url string) *SlackWebhook {
	return &SlackWebhook{
		url:    url,
		client: &http.Client{Timeout: slackTimeout},
	}
}

// Notify implements Notifier.
func (s *SlackWebhook) Notify(ctx context.Context, event Event) error {
	payload, err := json.Marshal(map[string]string{"text": event.Message()})
	if err != nil {
		return errors.Wrap(err, "encoding slack payload")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "building slack request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "posting to slack webhook")
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("slack webhook returned %s", resp.Status)
	}
	return nil
}

// LogNotifier writes event messages to the structured log. It is the default
// notifier when no webhook is configured.
type LogNotifier struct{}

// Notify implements Notifier.
func (LogNotifier) Notify(_ context.Context, event Event) error {
	entry := log.WithFields(log.Fields{
		"event":    event.Kind,
		"pipeline": event.Pipeline,
	})
	if event.Step != "" {
		entry = entry.WithField("step", event.Step)
	}
	if event.Model != "" {
		entry = entry.WithField("model", event.Model)
	}
	switch event.Kind {
	case StepFailed, PipelineFailed:
		entry.Warn(event.Message())
	default:
		entry.Info(event.Message())
	}
	return nil
}
