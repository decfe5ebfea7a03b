// Package kitbag is a grab-bag of small utility packages shared across
// services: a couple of pieces of real logic (decimal formatting, config
// aggregation) and a set of thin adapters over the third-party libraries we
// use everywhere, so each service wires them up the same way.
//
// This module contains the following packages:
//
// CORE:
//
//   - numfmt: Fixed-point decimal rendering of float64 values, expanding the
//     exponent notation strconv produces for very large and very small
//     numbers into plain digit strings
//   - config: Directory-based configuration aggregation with JSON/YAML
//     decoding, package metadata and environment snapshots, per-directory
//     memoization, and deep merging of layered results
//
// ADAPTERS:
//
//   - logger: zerolog construction with service/component fields, console
//     and JSON output, and a configure-once package default
//   - httpclient: REST client on resty with sane defaults, bearer auth,
//     JSON helpers, status-to-error mapping, and an optional circuit
//     breaker
//   - jwtauth: JWT issuing and parsing on golang-jwt with request header
//     extraction, including the WebSocket subprotocol fallback
//   - xmlmap: XML documents as generic maps via mxj, with JSON bridges
//   - schema: JSON Schema compilation and document validation
//   - render: text/template rendering with custom functions and delimiters
//   - env: Environment variable access with file and Docker secret
//     fallbacks, typed getters, snapshots, and struct parsing
//
// CACHING & STORAGE:
//
//   - cache: Generic in-memory caching with TTL, MessagePack file
//     persistence, NATS JetStream KeyValue mirroring, and cleanup routines
//
// HTTP SERVER:
//
//   - server: HTTP service scaffold on chi with CORS, Brotli/Gzip
//     compression, health checks with memory stats, Prometheus metrics,
//     pprof endpoints, zerolog request logging, and graceful shutdown
//   - limiter: Fixed-window rate limiting per caller with an HTTP
//     middleware
//
// HELPERS:
//
//   - safemap: Thread-safe generic map for concurrent access
//   - jsonutil: Generic JSON decoding, pretty encoding, and deep copies
//   - taskrunner: Bounded-concurrency execution of named task groups
//     with panic recovery
//   - utils: Timestamps, random strings and UUIDs, context-aware sleep,
//     emptiness/numeric predicates, and JSON durations with day suffixes
//
// Packages can be used independently; none of them require the others,
// though they compose (the server logs through logger, the config loader
// feeds schema validation, and so on).
package kitbag
