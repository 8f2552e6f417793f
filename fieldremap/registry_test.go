package fieldremap

import "testing"

func TestRegistryResolveValidNamePassesThrough(t *testing.T) {
	r := NewRegistry()
	name, isNew := r.Resolve([]byte("MESSAGE"))
	if name != "MESSAGE" || isNew {
		t.Fatalf("Resolve(MESSAGE) = (%q, %v), want (MESSAGE, false)", name, isNew)
	}
}

func TestRegistryResolveNewMappingThenStable(t *testing.T) {
	r := NewRegistry()
	name1, isNew1 := r.Resolve([]byte("http.request.method"))
	if !isNew1 {
		t.Fatalf("first Resolve should report isNew=true")
	}
	name2, isNew2 := r.Resolve([]byte("http.request.method"))
	if isNew2 {
		t.Fatalf("second Resolve should report isNew=false")
	}
	if name1 != name2 {
		t.Fatalf("Resolve not stable: %q vs %q", name1, name2)
	}
}

func TestRegistryOriginalRoundTrip(t *testing.T) {
	r := NewRegistry()
	name, _ := r.Resolve([]byte("log.body.HostName"))
	orig, ok := r.Original(name)
	if !ok || orig != "log.body.HostName" {
		t.Fatalf("Original(%q) = (%q, %v), want (log.body.HostName, true)", name, orig, ok)
	}
}

func TestRegistryLearnFromScan(t *testing.T) {
	r := NewRegistry()
	r.Learn("NDE_FOO", "foo")
	orig, ok := r.Original("NDE_FOO")
	if !ok || orig != "foo" {
		t.Fatalf("Original after Learn = (%q, %v)", orig, ok)
	}
	enc, ok := r.Encoded("foo")
	if !ok || enc != "NDE_FOO" {
		t.Fatalf("Encoded after Learn = (%q, %v)", enc, ok)
	}
}

func TestIsSentinel(t *testing.T) {
	if !IsSentinel([]byte("ND_REMAPPING")) {
		t.Fatalf("IsSentinel(ND_REMAPPING) = false")
	}
	if IsSentinel([]byte("MESSAGE")) {
		t.Fatalf("IsSentinel(MESSAGE) = true")
	}
}
