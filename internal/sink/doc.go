// Package sink delivers what logicflow produces to the outside world.
//
// Bucket writes emitted source units and run outputs to any gocloud.dev
// blob URL (file://, mem://). AMQPPublisher delivers Binding step content
// to a RabbitMQ exchange while interpreting.
package sink
