package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
)

type recordingPublisher struct {
	channel string
	message []byte
	err     error
}

func (p *recordingPublisher) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	p.channel = channel
	p.message, _ = message.([]byte)

	cmd := redis.NewIntCmd(ctx)
	if p.err != nil {
		cmd.SetErr(p.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func TestPublish(t *testing.T) {
	pub := &recordingPublisher{}
	s := NewService(nil, pub, nil)

	s.publish(context.Background(), "EVENT_JOB_DELETED", map[string]any{"jobId": 7})

	if pub.channel != "EVENT_JOB_DELETED" {
		t.Errorf("channel = %q, want EVENT_JOB_DELETED", pub.channel)
	}
	var got map[string]any
	if err := json.Unmarshal(pub.message, &got); err != nil {
		t.Fatalf("event is not JSON: %q", pub.message)
	}
	want := map[string]any{"type": "EVENT_JOB_DELETED", "jobId": float64(7)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("event mismatch (-want +got):\n%s", diff)
	}
}

func TestPublish_FailureIsNotFatal(t *testing.T) {
	s := NewService(nil, &recordingPublisher{err: errors.New("redis down")}, nil)
	// must neither panic nor block
	s.publish(context.Background(), "EVENT_JOB_CREATED", map[string]any{"jobId": 1})
}

func TestPublish_NilPublisher(t *testing.T) {
	s := NewService(nil, nil, nil)
	s.publish(context.Background(), "EVENT_JOB_CREATED", map[string]any{"jobId": 1})
}
