// Package client provides the `queues-demo` command-line client.
//
// The CLI talks to the queue HTTP API to enqueue tasks, poll for work, and
// report completions from a terminal. It is primarily intended for
// developers and operators.
//
// # Address configuration
//
// The HTTP base URL is discovered by the application that embeds the
// commands via a BaseURLFunc. When using the standalone binary, it reads
// QD_HTTP and defaults to http://127.0.0.1:3000.
//
// Usage
//
//	queues-demo task add --submission-id team42
//
//	queues-demo task get --timeout-ms 10000
//
//	queues-demo task complete --id 0000019904ce... --info 'flag{...}'
//
//	queues-demo task stats
package client
