// Package common provides core data structures and utilities shared by the
// skunkr server, client and command line. It defines the wire message,
// the configuration structures and the logger setup.
//
// The package focuses on:
//   - Message protocol definition for communication between client and server
//   - Configuration structures for client and server components
//   - Custom logging implementation integrated with the Dragonboat logger facade
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication. One struct is used for
//     requests and responses; which fields are set depends on the MessageType.
//     Includes factory methods for creating the request and response messages.
//
//   - MessageType: Enumeration of all supported operations: set, get, scan (answered by a
//     stream of scanItem messages and one scanEnd trailer), info and the control
//     messages success and error.
//
//   - ServerConfig: Configuration of a server: engine selection, data path, table limit,
//     scan pipeline tunables, transport and logging.
//
//   - ClientConfig: Configuration for client components, controlling connection
//     parameters, timeouts, and retry behavior.
//
//   - Logger: Custom logging implementation with timestamped "LEVEL | name | message"
//     lines and optional colors, installed as the Dragonboat logger factory so every
//     package level logger.GetLogger(...) uses it.
package common
