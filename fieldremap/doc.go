// Package fieldremap rewrites arbitrary attribute keys (e.g.
// "log.body.HostName", "http.request.method") into systemd-compatible FIELD
// names: leading A-Z or underscore, then A-Z, 0-9 or underscore, length
// 1-64. The encoding is invertible: a per-file Registry tracks
// {original -> encoded} and the caller is responsible for persisting that
// mapping in-band (see Registry.Pending and the ND_REMAPPING sentinel).
package fieldremap

// SentinelField is the marker field written into a remapping entry so a
// reader can recognise and reconstruct the registry by scanning entries.
const SentinelField = "ND_REMAPPING"

// RemappedPrefix marks a name produced by the MD5 fallback path.
const RemappedPrefix = "ND_"
