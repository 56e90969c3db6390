// Package audit carries portal audit events from the request path to a
// [Sink] on a background goroutine.
//
// [Dispatcher] buffers events and either drops or blocks when full. Sinks
// are plain consumers: [SlogSink] and [JSONLinesSink] write them out,
// [ChannelSink] hands them to tests, and [Tee] fans one event out to
// several sinks. Which events exist is decided by the Portal and the flow
// runners, not here.
package audit
