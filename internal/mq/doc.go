// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — соединение с переподключением (1s, удваивается до 30s)
//   - topology.go   — объявление durable очередей
//   - publisher.go  — persistent публикация tasks и результатов
//   - consumer.go   — потребление с prefetch и ручным ack/nack
//
// Очереди (обменник по умолчанию, routing key = имя очереди):
//   - task_queue        — tasks для worker'а
//   - task_result_queue — результаты tasks
package mq
