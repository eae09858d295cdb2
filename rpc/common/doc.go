// Package common provides the data structures shared by the rpc client and
// server: the wire Message, the configuration structs and the logger factory.
//
// Key Components:
//
//   - Message: a single structure for all requests and responses. Which fields
//     are used depends on the MessageType. Store errors travel with their return
//     code, so a remote client hands the same *store.Error to its caller as a
//     local store would.
//
//   - ServerConfig / ClientConfig: settings collected by the cli.
//
//   - Logger: a zerolog backed factory for dragonboat's logger facade. Every
//     package keeps its own named logger; InitLoggers sets their level.
package common
