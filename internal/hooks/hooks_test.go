package hooks

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
	err    error
	panics bool
}

func (r *recordingNotifier) Notify(_ context.Context, event Event) error {
	if r.panics {
		panic("notifier exploded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func TestFireDeliversToAllNotifiers(t *testing.T) {
	a, b := &recordingNotifier{}, &recordingNotifier{}
	New(a, b).Fire(context.Background(), Event{Kind: PipelineSucceeded, Pipeline: "training"})

	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
	require.False(t, a.events[0].At.IsZero())
}

func TestFireContainsNotifierError(t *testing.T) {
	broken := &recordingNotifier{err: errors.New("webhook down")}
	healthy := &recordingNotifier{}

	require.NotPanics(t, func() {
		New(broken, healthy).Fire(context.Background(), Event{Kind: StepFailed, Pipeline: "training", Step: "train"})
	})
	require.Len(t, healthy.events, 1)
}

func TestFireContainsNotifierPanic(t *testing.T) {
	exploding := &recordingNotifier{panics: true}
	healthy := &recordingNotifier{}

	require.NotPanics(t, func() {
		New(exploding, healthy).Fire(context.Background(), Event{Kind: PipelineFailed, Pipeline: "training"})
	})
	require.Len(t, healthy.events, 1)
}

func TestFireWithNoNotifiers(t *testing.T) {
	require.NotPanics(t, func() {
		New().Fire(context.Background(), Event{Kind: StepSucceeded, Pipeline: "training", Step: "train"})
	})
}

func TestEventMessages(t *testing.T) {
	cases := []struct {
		event Event
		want  string
	}{
		{
			Event{Kind: StepSucceeded, Pipeline: "training", Step: "train"},
			`Step "train" of pipeline "training" succeeded.`,
		},
		{
			Event{Kind: StepFailed, Pipeline: "training", Step: "train", Err: errors.New("oom")},
			`Step "train" of pipeline "training" failed: oom`,
		},
		{
			Event{Kind: PipelineSucceeded, Pipeline: "training"},
			`Pipeline "training" finished successfully.`,
		},
		{
			Event{Kind: PipelineFailed, Pipeline: "training", Err: errors.New("oom")},
			`Pipeline "training" failed: oom`,
		},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, tc.event.Message())
	}
}

func TestSlackWebhookPostsMessage(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		body = string(buf)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := NewSlackWebhook(srv.URL).Notify(context.Background(),
		Event{Kind: PipelineSucceeded, Pipeline: "training"})
	require.NoError(t, err)
	require.Contains(t, body, `Pipeline \"training\" finished successfully.`)
}

func TestSlackWebhookNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewSlackWebhook(srv.URL).Notify(context.Background(),
		Event{Kind: PipelineSucceeded, Pipeline: "training"})
	require.Error(t, err)
}
