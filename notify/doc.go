// Package notify delivers the emails raised by the login, invite and reset
// flows.
//
// A [Sender] receives a [Message] naming its [Kind] and carrying the
// template data (code, link, names). [Dispatcher] queues messages and hands
// them to a Sender on a background goroutine so flows never wait on mail
// delivery; failures are reported through a callback and counted.
//
// # Senders
//
//   - [JSONWriter] writes one JSON object per line (development, tests).
//   - [SMTP] renders text templates and sends through net/smtp.
//   - [Recorder] keeps messages in memory for tests.
package notify
