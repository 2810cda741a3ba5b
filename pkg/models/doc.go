// Package models defines the tenant-authored automation configuration (rules, steps,
// conditions, actions, templates), the outbound message log and the read views over the
// commerce entities rules are evaluated against.
package models
