package verify

import "errors"

var (
	// ErrNoChallenge indicates no verification challenge exists for the
	// Roblox account being checked.
	ErrNoChallenge = errors.New("verify: no active challenge")

	// ErrChallengeExpired indicates the challenge exists but its
	// verification window has closed.
	ErrChallengeExpired = errors.New("verify: challenge expired")

	// ErrCodeMismatch indicates the profile description does not contain
	// the issued code. The challenge stays active until it expires.
	ErrCodeMismatch = errors.New("verify: code not found in profile")

	// ErrUpstream indicates the Roblox API could not be consulted, so
	// verification could not be decided either way.
	ErrUpstream = errors.New("verify: upstream lookup failed")

	// ErrUnknownUser indicates the username does not resolve to a Roblox
	// account.
	ErrUnknownUser = errors.New("verify: unknown roblox user")

	// ErrUnauthorized indicates a member session token that is missing,
	// unknown, or expired.
	ErrUnauthorized = errors.New("verify: unauthorized")
)
