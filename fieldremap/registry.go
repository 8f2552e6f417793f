package fieldremap

import "sync"

// Registry tracks the {original -> encoded} field name mappings in effect
// for one journal file. The writer consults it before appending an entry;
// the reader rebuilds an equivalent Registry by scanning for
// SentinelField entries.
type Registry struct {
	mu         sync.Mutex
	toEncoded  map[string]string
	toOriginal map[string]string
}

// NewRegistry returns an empty registry, the starting state of a freshly
// created journal file.
func NewRegistry() *Registry {
	return &Registry{
		toEncoded:  make(map[string]string),
		toOriginal: make(map[string]string),
	}
}

// Resolve returns the systemd-compatible FIELD name to write for original,
// and whether this is the first time the registry has seen it. The caller
// must write a remapping entry (SentinelField + "<encoded>=<original>")
// before the entry that uses a new mapping, then call Learn (or rely on
// the mapping already being recorded by this call) so later Resolve calls
// for the same key don't report isNew again.
func (r *Registry) Resolve(original []byte) (name string, isNew bool) {
	if IsValidFieldName(original) {
		return string(original), false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := string(original)
	if enc, ok := r.toEncoded[key]; ok {
		return enc, false
	}
	enc := Encode(original)
	r.toEncoded[key] = enc
	r.toOriginal[enc] = key
	return enc, true
}

// Learn registers a mapping discovered while scanning a remapping entry on
// read, without going through Encode.
func (r *Registry) Learn(encoded, original string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toEncoded[original] = encoded
	r.toOriginal[encoded] = original
}

// Original returns the attribute key that was remapped to encoded FIELD
// name, if any.
func (r *Registry) Original(encoded string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.toOriginal[encoded]
	return o, ok
}

// Encoded returns the FIELD name original was remapped to, if the registry
// holds a mapping for it. It never encodes or registers an unseen name.
func (r *Registry) Encoded(original string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.toEncoded[original]
	return e, ok
}

// IsSentinel reports whether field is the ND_REMAPPING marker.
func IsSentinel(field []byte) bool {
	return string(field) == SentinelField
}
