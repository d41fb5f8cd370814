// Package bitrix is a thin client for a Bitrix24 inbound-webhook REST
// endpoint.
//
// # Calls
//
// Every operation is a named method call ("user.get", "tasks.task.list", ...)
// against a single base URL with the webhook code as a path segment.
// Parameters use the portal's PHP-style bracket encoding
// (FILTER[ACTIVE]=true). Responses arrive wrapped in an envelope whose
// "error" fields mark a failure even on a 2xx transport status; both payload
// and transport failures normalize to *CallError.
//
// # Rate and time bounds
//
// A shared token-bucket limiter caps the call rate (the portal throttles
// webhook clients), and every call is bounded by a fixed timeout. The client
// itself is stateless and safe for concurrent use across pipelines.
//
// # Secrets
//
// The webhook code authenticates every request and lives inside request
// URLs. Diagnostic logging and error text mask it; the raw code is never
// written to any sink.
package bitrix
