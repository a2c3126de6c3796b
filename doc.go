// Package bookkeeper turns brokerage statement exports into double-entry
// bookkeeping directives. It is designed to be local-first and auditable:
// the ledger is a plain JSONL file, every imported transaction carries the
// statement row it came from, and re-importing a statement never duplicates
// an entry.
//
// The core functionalities include:
//   - Statement Adapters: Parsing broker-specific export formats (Interactive
//     Brokers activity CSV, Mintos account statements, OFX/QFX bank files)
//     into a common stream of categorized events.
//   - Transaction Assembly: Turning events into balanced transactions against
//     a configurable account map: deposits, dividends, interest, fees,
//     currency exchanges, trades and balance assertions.
//   - FIFO Lot Accounting: Reconstructing the open cost lots of each security
//     from ledger history and realizing profit and loss on disposals,
//     first-in first-out.
//   - Withholding-Tax Reconciliation: Folding withholding-tax rows into their
//     dividends, including cross-year refund and replacement corrections.
//   - Data Persistence: Encoding and decoding the ledger to and from a
//     human-readable, version-controllable JSONL format.
//
// This package serves as the foundational logic for the `bkr` command-line
// tool, ensuring that all operations are consistent and based on a single
// source of truth.
package bookkeeper
