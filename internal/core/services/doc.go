// Package services contains the core business logic for document
// question answering. Services implement the driving ports and depend
// only on driven ports, never on concrete adapters.
//
// The pipeline service orchestrates the full run: fetch, normalise,
// chunk, embed, store, then answer each question through tiered
// retrieval and synthesis. The remaining services are its stages.
//
// # Import Rules
//
// Services may import:
//   - domain (core types)
//   - ports (interfaces)
//   - logger
//   - standard library plus golang.org/x/time/rate and google/uuid
//
// Services must NOT import:
//   - adapters (would violate dependency inversion)
//   - connectors or normalisers (accessed through driven ports)
package services
