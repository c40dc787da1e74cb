//go:build integration

package containers

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

const redpandaImage = "redpandadata/redpanda:v24.2.7"

// KafkaContainer is a single-node Redpanda broker.
type KafkaContainer struct {
	Brokers string
	admin   *kadm.Client
	seq     atomic.Int64
}

func NewKafkaContainer(t *testing.T) *KafkaContainer {
	t.Helper()
	ctx := context.Background()

	container, err := kafka.Run(ctx, redpandaImage, kafka.WithClusterID("ponto-test"))
	if err != nil {
		t.Fatalf("start kafka container: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = container.Terminate(ctx)
	})

	brokers, err := container.Brokers(ctx)
	if err != nil {
		t.Fatalf("kafka brokers: %v", err)
	}
	client, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		t.Fatalf("kafka admin client: %v", err)
	}
	t.Cleanup(client.Close)

	return &KafkaContainer{Brokers: strings.Join(brokers, ","), admin: kadm.NewClient(client)}
}

// Topic creates a single-partition topic with a unique name derived from
// prefix, so suites sharing the broker never read each other's records.
func (k *KafkaContainer) Topic(t *testing.T, prefix string) *TopicReader {
	t.Helper()
	name := fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano(), k.seq.Add(1))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	resp, err := k.admin.CreateTopic(ctx, 1, 1, nil, name)
	if err != nil {
		t.Fatalf("create topic %s: %v", name, err)
	}
	if resp.Err != nil {
		t.Fatalf("create topic %s: %v", name, resp.Err)
	}
	return &TopicReader{brokers: k.Brokers, Name: name}
}

// TopicReader reads a topic from the start without a consumer group.
type TopicReader struct {
	brokers string
	Name    string
}

// Read polls until n records arrived or the timeout passes, returning what it
// has at that point.
func (r *TopicReader) Read(t *testing.T, n int, timeout time.Duration) []*kgo.Record {
	t.Helper()
	client, err := kgo.NewClient(
		kgo.SeedBrokers(strings.Split(r.brokers, ",")...),
		kgo.ConsumeTopics(r.Name),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		t.Fatalf("topic reader: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	var out []*kgo.Record
	for len(out) < n {
		fetches := client.PollFetches(ctx)
		if ctx.Err() != nil || fetches.IsClientClosed() {
			break
		}
		fetches.EachRecord(func(rec *kgo.Record) {
			out = append(out, rec)
		})
	}
	return out
}

// Headers flattens record headers; later duplicates win.
func Headers(rec *kgo.Record) map[string]string {
	out := make(map[string]string, len(rec.Headers))
	for _, h := range rec.Headers {
		out[h.Key] = string(h.Value)
	}
	return out
}
