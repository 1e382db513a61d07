/*
Rfq implements the replicated RFQ negotiation state machine.

# Module
  - book: validates and applies ordered commands, owns every RFQ aggregate
  - aggregate: RFQ lifecycle state machine with append-only quote list
  - contracts: reference data, timer and responder capabilities injected
    into the book so the negotiation logic is testable in isolation

# Source
 1. client commands delivered in global log order
 2. expiry commands synthesized from due timer registrations

# Produce
  - exactly one primary response per command, plus broadcasts
  - timer registrations and cancellations
  - terminal aggregates to the archive observer

# Sharded
  - none; a single apply path owns all state
*/
package rfq
