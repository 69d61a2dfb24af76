// Package conversation drives the per-user dialogue.
//
// Every inbound message is one turn. The Orchestrator serializes turns from
// the same sender, classifies the message against the sender's phase with a
// fixed precedence (voice query, language selection, new prescription,
// ignore), calls the collaborators the turn needs and commits the new state
// with a compare-and-swap. A failed turn leaves state untouched so the user
// can simply retry.
package conversation
