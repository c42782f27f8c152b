package broker

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/segmentio/kafka-go"

	"gateway/internal/logger"
)

const (
	defaultTopicReplication = 1
	defaultEventRetentionMs = "604800000"  // 7d
	defaultDLQRetentionMs   = "1209600000" // 14d
)

type TopicSpec struct {
	Name        string
	Partitions  int
	RetentionMs string
}

// GatewayTopics lists every topic the gateway reads or writes.
func GatewayTopics(consumed, published []string, dlqTopic string, partitions int) []TopicSpec {
	seen := make(map[string]bool)
	var specs []TopicSpec
	add := func(name, retention string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		specs = append(specs, TopicSpec{Name: name, Partitions: partitions, RetentionMs: retention})
	}
	for _, t := range consumed {
		add(t, defaultEventRetentionMs)
	}
	for _, t := range published {
		add(t, defaultEventRetentionMs)
	}
	add(dlqTopic, defaultDLQRetentionMs)
	return specs
}

// EnsureTopics creates missing topics through the cluster controller. Topics
// that already exist are left untouched.
func EnsureTopics(ctx context.Context, brokers []string, specs []TopicSpec, log logger.Logger) error {
	if len(brokers) == 0 {
		return fmt.Errorf("no brokers configured")
	}

	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("controller: %w", err)
	}

	ctrlAddr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	ctrlConn, err := kafka.DialContext(ctx, "tcp", ctrlAddr)
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer ctrlConn.Close()

	for _, spec := range specs {
		tc := kafka.TopicConfig{
			Topic:             spec.Name,
			NumPartitions:     max(spec.Partitions, 1),
			ReplicationFactor: defaultTopicReplication,
			ConfigEntries: []kafka.ConfigEntry{
				{ConfigName: "cleanup.policy", ConfigValue: "delete"},
				{ConfigName: "retention.ms", ConfigValue: spec.RetentionMs},
			},
		}
		if err := ctrlConn.CreateTopics(tc); err != nil {
			if !strings.Contains(strings.ToLower(err.Error()), "exists") {
				return fmt.Errorf("create topic %s: %w", spec.Name, err)
			}
		}
		log.Infow("Ensured Kafka topic",
			"topic", spec.Name,
			"partitions", tc.NumPartitions,
			"retention_ms", spec.RetentionMs,
		)
	}
	return nil
}
