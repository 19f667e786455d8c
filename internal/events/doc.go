// Package events fans job progress out to connected clients.
//
// A Hub owns one Channel per subscriber. Subscribe allocates the channel id;
// producers address channels only by ids the hub handed out, and a push to an
// id that no longer exists is silently dropped so jobs never block on absent
// listeners. Each channel is an ordered queue with a bounded backlog.
//
// Consumers either stream a channel as Server-Sent Events (ServeSSE, used by
// the HTTP API) or long-poll it in batches (Drain, used by the IPC client).
// Channels nobody has polled for a while are removed by ReapIdle.
package events
