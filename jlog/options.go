package jlog

import (
	"log/slog"

	"github.com/rpcpool/logjournal/journal"
)

// Options configures Open.
type Options struct {
	BaseDir   string
	MachineID [16]byte

	Rotation  RotationPolicy
	Retention RetentionPolicy

	Compact       bool
	KeyedHash     bool
	DataHashSlots uint64
	FieldHashSlots uint64

	// Watch enables an fsnotify watch on the machine directory that logs
	// files created or renamed there by another process, at debug level.
	// It does not trigger a retention sweep; sweeps run only in Open and
	// after each rotation.
	Watch bool

	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.DataHashSlots == 0 {
		o.DataHashSlots = journal.DefaultDataHashSlots
	}
	if o.FieldHashSlots == 0 {
		o.FieldHashSlots = journal.DefaultFieldHashSlots
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
