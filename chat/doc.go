// Package chat mirrors the feeding commands into Twitch chat.
//
// It provides two entrypoints:
//   - Start: connects to Twitch IRC with the configured bot account, joins
//     every channel in TWITCH_CHANNELS, and answers !eat, !feed, and !stats
//     with the same semantics as the Discord commands. Chat users are keyed
//     by lowercase login name in the shared ledger.
//   - StartSupervised: wraps Start with reconnect-and-backoff so a dropped
//     IRC connection heals without restarting the process.
//
// Credentials: the IRC client requires a bot username and an OAuth token with
// chat:read/chat:edit scopes. If TWITCH_OAUTH_TOKEN is not provided, the
// package will try to reuse a stored token from the oauth_tokens table for
// provider "twitch".
package chat
