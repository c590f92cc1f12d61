// Package audit records admin session activity off the request path.
//
// A [Dispatcher] queues [Event] values in a bounded buffer and hands them to a
// single [Sink] from one goroutine. When the buffer is full the event is either
// dropped and counted or the caller blocks, depending on Config.DropIfFull.
// Close drains whatever is queued.
//
// Sinks: [ChannelSink] for tests, [JSONWriterSink] for line-delimited files,
// [LogrusSink] for the process log and [MultiSink] to fan out. Which events are
// emitted is decided by the engine, not here.
package audit
