package services

import (
	"context"
	"hash/crc32"
	"log"

	"resell/internal/models"
	"resell/pkg/rabbitmq"

	"github.com/goccy/go-json"
	"github.com/sourcegraph/conc"
	"github.com/streadway/amqp"
)

// partitionBuffer is how many deliveries may wait on a busy partition before the
// dispatcher blocks. It matches the default consumer prefetch.
const partitionBuffer = 32

type job struct {
	delivery amqp.Delivery
	event    *models.PaymentEvent
	handle   EventHandler
}

// PaymentWorker fans deliveries out to partitions keyed by order id. Each partition is a
// single goroutine, so events of one order are handled one at a time and in order.
type PaymentWorker struct {
	partitions []chan job
	handle     EventHandler
	retry      EventHandler
}

// NewPaymentWorker creates a worker with n partitions. handle serves the processing
// stream and retry the retry stream.
func NewPaymentWorker(n int, handle, retry EventHandler) *PaymentWorker {
	if n < 1 {
		n = 1
	}
	w := &PaymentWorker{
		partitions: make([]chan job, n),
		handle:     handle,
		retry:      retry,
	}
	for i := range w.partitions {
		w.partitions[i] = make(chan job, partitionBuffer)
	}
	return w
}

// Partition returns the partition index of orderID.
func (w *PaymentWorker) Partition(orderID string) int {
	return int(crc32.ChecksumIEEE([]byte(orderID)) % uint32(len(w.partitions)))
}

// Run consumes both streams until ctx is cancelled or both streams close.
func (w *PaymentWorker) Run(ctx context.Context, processing, retry <-chan amqp.Delivery) {
	var dispatchers conc.WaitGroup
	dispatchers.Go(func() { w.dispatch(ctx, processing, w.handle) })
	dispatchers.Go(func() { w.dispatch(ctx, retry, w.retry) })

	var workers conc.WaitGroup
	for i := range w.partitions {
		ch := w.partitions[i]
		workers.Go(func() { w.work(ctx, ch) })
	}

	dispatchers.Wait()
	for _, ch := range w.partitions {
		close(ch)
	}
	workers.Wait()
}

func (w *PaymentWorker) dispatch(ctx context.Context, deliveries <-chan amqp.Delivery, handle EventHandler) {
	if deliveries == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			var evt models.PaymentEvent
			if err := json.Unmarshal(d.Body, &evt); err != nil || evt.OrderID == "" {
				log.Printf("payment: rejecting undecodable message %s: %v", d.MessageId, err)
				reject(d)
				continue
			}
			if key := rabbitmq.OrderID(d); key != "" && key != evt.OrderID {
				log.Printf("payment: rejecting message %s: header order %s, body order %s", d.MessageId, key, evt.OrderID)
				reject(d)
				continue
			}
			select {
			case w.partitions[w.Partition(evt.OrderID)] <- job{delivery: d, event: &evt, handle: handle}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func reject(d amqp.Delivery) {
	if err := d.Nack(false, false); err != nil {
		log.Printf("payment: failed to nack message %s: %v", d.MessageId, err)
	}
}

func (w *PaymentWorker) work(ctx context.Context, jobs <-chan job) {
	for j := range jobs {
		if err := j.handle(ctx, j.event); err != nil {
			log.Printf("payment: requeueing event %s for order %s: %v", j.event.EventID, j.event.OrderID, err)
			if nerr := j.delivery.Nack(false, true); nerr != nil {
				log.Printf("payment: failed to nack event %s: %v", j.event.EventID, nerr)
			}
			continue
		}
		if err := j.delivery.Ack(false); err != nil {
			log.Printf("payment: failed to ack event %s: %v", j.event.EventID, err)
		}
	}
}
