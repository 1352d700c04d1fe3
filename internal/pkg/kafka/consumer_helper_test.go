package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/IBM/sarama"
)

type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx    context.Context
	mu     sync.Mutex
	marked []int64
}

func (f *fakeSession) Context() context.Context { return f.ctx }

func (f *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, msg.Offset)
}

func msgs(keys ...string) []*sarama.ConsumerMessage {
	out := make([]*sarama.ConsumerMessage, len(keys))
	for i, k := range keys {
		out[i] = &sarama.ConsumerMessage{Topic: "reaction-events", Key: []byte(k), Offset: int64(i)}
	}
	return out
}

func TestGroupByKey_KeepsOffsetOrder(t *testing.T) {
	groups := groupByKey(msgs("10", "11", "10", "12", "10"))
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	var offsets []int64
	for _, m := range groups[0] {
		offsets = append(offsets, m.Offset)
	}
	if len(offsets) != 3 || offsets[0] != 0 || offsets[1] != 2 || offsets[2] != 4 {
		t.Fatalf("unexpected order for key 10: %v", offsets)
	}
}

func TestProcessBatch_SequentialPerKey(t *testing.T) {
	session := &fakeSession{ctx: context.Background()}
	var mu sync.Mutex
	perKey := map[string][]int64{}

	processBatch(session, msgs("10", "11", "10", "10"), func(_ context.Context, m *sarama.ConsumerMessage) error {
		mu.Lock()
		defer mu.Unlock()
		perKey[string(m.Key)] = append(perKey[string(m.Key)], m.Offset)
		return nil
	})

	if got := perKey["10"]; len(got) != 3 || got[0] != 0 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("key 10 applied out of order: %v", got)
	}
	if len(session.marked) != 1 || session.marked[0] != 3 {
		t.Fatalf("expected last offset marked, got %v", session.marked)
	}
}

func TestProcessBatch_RetriesThenSucceeds(t *testing.T) {
	session := &fakeSession{ctx: context.Background()}
	calls := 0
	processBatch(session, msgs("10"), func(context.Context, *sarama.ConsumerMessage) error {
		calls++
		if calls < 3 {
			return errors.New("redis down")
		}
		return nil
	})
	if calls != 3 || len(session.marked) != 1 {
		t.Fatalf("calls=%d marked=%v", calls, session.marked)
	}
}

func TestProcessBatch_CancelledSessionDoesNotCommit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	session := &fakeSession{ctx: ctx}
	calls := 0
	processBatch(session, msgs("10", "10"), func(context.Context, *sarama.ConsumerMessage) error {
		calls++
		return errors.New("still failing")
	})
	if calls != 1 || len(session.marked) != 0 {
		t.Fatalf("calls=%d marked=%v", calls, session.marked)
	}
}
