package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"log"
	"time"

	"oap/internal/model"
	"oap/internal/normalize"

	ck "github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Consumes raw order messages, normalizes and validates them, and produces
// canonical records to a curated topic, exactly-once: offsets are bound to
// the producer transaction. Rejected records are counted and skipped inside
// the same transaction so redelivery cannot double-load them.

func main() {
	var (
		bootstrap string
		groupID   string
		topicIn   string
		topicOut  string
		txID      string
	)
	flag.StringVar(&bootstrap, "bootstrap", "localhost:9092", "kafka bootstrap servers")
	flag.StringVar(&groupID, "group-id", "streamload", "consumer group id")
	flag.StringVar(&topicIn, "topic-in", "orders.raw", "raw orders topic")
	flag.StringVar(&topicOut, "topic-out", "orders.canonical", "canonical orders topic")
	flag.StringVar(&txID, "tx-id", "streamload-1", "transactional id")
	flag.Parse()

	runStreamload(bootstrap, groupID, topicIn, topicOut, txID)
}

func runStreamload(bootstrap, groupID, topicIn, topicOut, txID string) {
	p, err := ck.NewProducer(&ck.ConfigMap{
		"bootstrap.servers":  bootstrap,
		"enable.idempotence": true,
		"acks":               "all",
		"transactional.id":   txID,
	})
	if err != nil {
		log.Fatalf("producer: %v", err)
	}
	defer p.Close()

	c, err := ck.NewConsumer(&ck.ConfigMap{
		"bootstrap.servers":  bootstrap,
		"group.id":           groupID,
		"enable.auto.commit": false,
		"isolation.level":    "read_committed",
		"auto.offset.reset":  "earliest",
	})
	if err != nil {
		log.Fatalf("consumer: %v", err)
	}
	defer c.Close()

	if err := c.SubscribeTopics([]string{topicIn}, nil); err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	if err := p.InitTransactions(context.TODO()); err != nil {
		log.Fatalf("init tx: %v", err)
	}
	log.Printf("streamload started bootstrap=%s in=%s out=%s", bootstrap, topicIn, topicOut)

	rejected := 0
	for {
		if err := p.BeginTransaction(); err != nil {
			log.Fatalf("begin tx: %v", err)
		}

		msg, err := c.ReadMessage(10 * time.Second)
		if err != nil {
			_ = p.AbortTransaction(context.TODO())
			continue
		}

		order, rejectReason := normalizeMessage(msg.Value)
		if rejectReason != "" {
			rejected++
			log.Printf("rejected (%s) offset=%v total=%d", rejectReason, msg.TopicPartition.Offset, rejected)
		} else {
			val, _ := json.Marshal(order)
			out := &ck.Message{
				TopicPartition: ck.TopicPartition{Topic: &topicOut, Partition: ck.PartitionAny},
				Key:            []byte(order.OrderID),
				Value:          val,
			}
			if err := p.Produce(out, nil); err != nil {
				_ = p.AbortTransaction(context.TODO())
				continue
			}
		}

		// SendOffsetsToTransaction binds consumer offsets atomically.
		offsets, _ := c.Commit()
		meta, _ := c.GetConsumerGroupMetadata()
		if err := p.SendOffsetsToTransaction(context.Background(), offsets, meta); err != nil {
			_ = p.AbortTransaction(context.TODO())
			continue
		}

		_ = p.Flush(5000)
		if err := p.CommitTransaction(context.TODO()); err != nil {
			_ = p.AbortTransaction(context.TODO())
			continue
		}
	}
}

// normalizeMessage runs the normalizer and validator over one raw payload.
// A non-empty reject reason means the record must not reach the canonical
// topic.
func normalizeMessage(payload []byte) (model.Order, string) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var raw model.RawOrder
	if err := dec.Decode(&raw); err != nil {
		return model.Order{}, "decode"
	}
	order, err := normalize.Normalize(raw)
	if err != nil {
		return model.Order{}, "type_coercion"
	}
	if rej := normalize.Validate(order); rej != nil {
		return model.Order{}, string(rej.Reason)
	}
	return order, ""
}
