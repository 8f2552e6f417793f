// Package jlog manages a directory of rotating journal files: an active
// file that entries are appended to, a rotation policy that decides when
// to archive it and start a successor, a retention policy that prunes old
// archives, and a per-file fieldremap.Registry so arbitrary attribute keys
// can be written as systemd-compatible FIELD names.
package jlog
