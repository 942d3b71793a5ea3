package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Имена очередей по умолчанию.
const (
	DefaultTaskQueue   = "task_queue"
	DefaultResultQueue = "task_result_queue"
)

// Topology — очереди системы.
//
// Обе очереди durable и используют обменник по умолчанию:
// routing key совпадает с именем очереди.
//
//	task_queue         API, worker (компоненты) → worker
//	task_result_queue  worker → сборщик результатов (API)
type Topology struct {
	TaskQueue   string
	ResultQueue string
}

// withDefaults подставляет имена по умолчанию вместо пустых.
func (t Topology) withDefaults() Topology {
	if t.TaskQueue == "" {
		t.TaskQueue = DefaultTaskQueue
	}
	if t.ResultQueue == "" {
		t.ResultQueue = DefaultResultQueue
	}
	return t
}

// Queues возвращает имена всех очередей.
func (t Topology) Queues() []string {
	t = t.withDefaults()
	return []string{t.TaskQueue, t.ResultQueue}
}

// SetupTopology объявляет durable очереди.
func SetupTopology(ctx context.Context, conn *Connection, topo Topology) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, name := range topo.Queues() {
			_, err := ch.QueueDeclare(
				name,  // name
				true,  // durable
				false, // delete when unused
				false, // exclusive
				false, // no-wait
				nil,   // arguments
			)
			if err != nil {
				return fmt.Errorf("declare queue %s: %w", name, err)
			}
		}
		return nil
	})
}
