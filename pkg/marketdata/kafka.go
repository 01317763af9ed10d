package marketdata

import (
	"context"

	"github.com/joripage/tokenex/pkg/engine/model"
	"github.com/joripage/tokenex/pkg/kafkawrapper"
)

// KafkaFanout publishes every engine event to one topic, partitioned by pair
// so per-pair ordering survives the fanout.
type KafkaFanout struct {
	producer *kafkawrapper.Producer
	topic    string
}

func NewKafkaFanout(producer *kafkawrapper.Producer, topic string) *KafkaFanout {
	return &KafkaFanout{producer: producer, topic: topic}
}

func (f *KafkaFanout) Publish(ctx context.Context, ev *model.Event) error {
	return f.producer.PublishJSON(ctx, f.topic, ev.Pair, ev, map[string]string{
		"event_type": string(ev.Type),
	})
}

func (f *KafkaFanout) Close(ctx context.Context) error {
	return f.producer.Close(ctx)
}
