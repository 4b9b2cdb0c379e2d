/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package processor

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
)

// KafkaSink is a ResultCallback that publishes every Result as JSON to a
// Kafka topic, a concrete outbound integration alongside the in-process
// callbacks.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Callback is registered via Processor.RegisterCallback.
func (k *KafkaSink) Callback(r Result) {
	body, err := json.Marshal(resultEnvelope(r))
	if err != nil {
		return
	}
	_ = k.writer.WriteMessages(context.Background(), kafka.Message{Value: body})
}

func (k *KafkaSink) Close() error { return k.writer.Close() }

type fieldEnvelope struct {
	Value interface{} `json:"value,omitempty"`
	Error string      `json:"error,omitempty"`
}

func resultEnvelope(r Result) map[string]interface{} {
	fields := make(map[string]fieldEnvelope, len(r.Fields))
	for path, o := range r.Fields {
		fe := fieldEnvelope{}
		if o.TransformErr != nil {
			fe.Error = o.TransformErr.Error()
		} else if o.ExtractErr != nil {
			fe.Error = o.ExtractErr.Error()
		} else {
			fe.Value = o.Transformed.String()
		}
		fields[path] = fe
	}
	return map[string]interface{}{
		"packet_id":   r.PacketID,
		"duration_ns": r.DurationNs,
		"from_cache":  r.FromCache,
		"fields":      fields,
	}
}
