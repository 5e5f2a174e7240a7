// Package live serves interactive planning sessions over WebSocket.
//
// Each connection owns a planner.Session. Clients send JSON messages:
//
//	{"type":"objective","item":"gear","count":10}
//	{"type":"tier","machine":"assembler","tier":1}
//	{"type":"reset"}
//	{"type":"snapshot"}
//
// The server pushes a snapshot event on connect and after every accepted
// mutation:
//
//	{"type":"snapshot","objective":{...},"settings":{...},"records":[...],"totals":{...}}
//
// Rejected messages get {"type":"error","code":"...","message":"..."} and
// leave the session unchanged. A snapshot whose expansion failed, such as
// one for an unknown item, carries the failure in code and message.
package live
