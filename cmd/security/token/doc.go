// Package token provides credential hashing primitives for the USAFFE server.
//
// It is the single source of truth for how opaque credentials (admin keys,
// member session tokens) are hashed before server-side storage.
//
// Design goals:
// - Default dev/back-compat mode: SHA-256(credential) when no HMAC key is configured.
// - Production-enforced mode: HMAC-SHA256(credential, key) when policy requires it.
// - Stable 64-char hex output for storage and constant-time comparison.
//
// Environment:
// - USAFFE_TOKEN_HMAC_KEY: when set, enables HMAC mode.
// Policy:
//   - If RequireTokenHMAC=true, callers MUST enforce a minimum key size (>= 32 bytes)
//     and MUST use HMAC (no SHA fallback).
package token
