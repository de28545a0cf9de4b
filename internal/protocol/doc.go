// Package protocol owns the readout wire contract and its parsing primitives.
//
// Ownership boundary:
// - frame: file record framing
// - cell: datagram and contribution cells
// - event header, context and component payload layouts
package protocol
