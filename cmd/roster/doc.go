// Package roster implements the USAFFE roster foundation: member identity,
// training attendance, medal awards, and aggregate stats.
//
// The external Roblox user id is the natural key for a member; the internal
// ULID is generated once on creation and never changes. Members are created
// by upsert only (first successful verification or explicit sync) and are
// never deleted in normal operation.
package roster
