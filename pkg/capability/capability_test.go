// SPDX-License-Identifier: MPL-2.0

package capability

import (
	"errors"
	"slices"
	"testing"

	"github.com/invowk/repoindex/pkg/header"
	"github.com/invowk/repoindex/pkg/version"
)

func TestBuilder_NamespaceNotSet(t *testing.T) {
	t.Parallel()

	b := NewBuilder().AddAttribute("a", "b").AddDirective("d", "x")
	if _, err := b.BuildCapability(); !errors.Is(err, ErrNamespaceNotSet) {
		t.Errorf("BuildCapability() error = %v, want ErrNamespaceNotSet", err)
	}
	if _, err := b.BuildRequirement(); !errors.Is(err, ErrNamespaceNotSet) {
		t.Errorf("BuildRequirement() error = %v, want ErrNamespaceNotSet", err)
	}

	b.SetNamespace(NamespacePackage)
	if _, err := b.BuildCapability(); err != nil {
		t.Errorf("BuildCapability() unexpected error: %v", err)
	}
	if _, err := b.BuildRequirement(); err != nil {
		t.Errorf("BuildRequirement() unexpected error: %v", err)
	}
}

func TestBuilder_SnapshotIndependence(t *testing.T) {
	t.Parallel()

	b := NewBuilder().
		SetNamespace(NamespaceService).
		AddAttribute(AttrObjectClass, []string{"a", "b"}).
		AddDirective(DirectiveEffective, EffectiveActive)

	c, err := b.BuildCapability()
	if err != nil {
		t.Fatalf("BuildCapability() unexpected error: %v", err)
	}
	before := c.String()

	b.SetNamespace(NamespaceIdentity).
		AddAttribute(AttrObjectClass, "changed").
		AddAttribute("extra", "x").
		AddDirective(DirectiveEffective, "resolve")

	if c.String() != before {
		t.Errorf("mutating builder changed built capability: %s -> %s", before, c.String())
	}
	if c.Namespace() != NamespaceService {
		t.Errorf("Namespace() = %q, want %q", c.Namespace(), NamespaceService)
	}

	attrs := c.Attributes()
	attrs["extra"] = "y"
	if list, ok := attrs[AttrObjectClass].([]string); ok {
		list[0] = "mutated"
	}
	c.Directives()[DirectiveEffective] = "mutated"
	if c.String() != before {
		t.Errorf("mutating accessor results changed capability: %s", c.String())
	}
}

func TestBuilder_LastWriteWins(t *testing.T) {
	t.Parallel()

	r, err := NewBuilder().
		SetNamespace(NamespacePackage).
		AddDirective(DirectiveFilter, "(a=1)").
		AddDirective(DirectiveFilter, "(a=2)").
		AddAttribute("k", 1).
		AddAttribute("k", 2).
		BuildRequirement()
	if err != nil {
		t.Fatalf("BuildRequirement() unexpected error: %v", err)
	}
	if d, _ := r.Directive(DirectiveFilter); d != "(a=2)" {
		t.Errorf("filter = %q, want %q", d, "(a=2)")
	}
	if v, _ := r.Attribute("k"); v != int64(2) {
		t.Errorf("k = %#v, want int64(2)", v)
	}
}

func TestBuilder_ListDedupe(t *testing.T) {
	t.Parallel()

	c, err := NewBuilder().SetNamespace("x").AddAttribute("l", []string{"b", "a", "b", "c", "a"}).BuildCapability()
	if err != nil {
		t.Fatalf("BuildCapability() unexpected error: %v", err)
	}
	v, _ := c.Attribute("l")
	if got := v.([]string); !slices.Equal(got, []string{"b", "a", "c"}) {
		t.Errorf("list = %v, want [b a c]", got)
	}
}

func TestCapability_EqualCompare(t *testing.T) {
	t.Parallel()

	mk := func(ns string, kv ...string) Capability {
		b := NewBuilder().SetNamespace(ns)
		for i := 0; i+1 < len(kv); i += 2 {
			b.AddAttribute(kv[i], kv[i+1])
		}
		c, err := b.BuildCapability()
		if err != nil {
			t.Fatalf("BuildCapability() unexpected error: %v", err)
		}
		return c
	}

	a := mk("ns", "x", "1", "y", "2")
	b := mk("ns", "y", "2", "x", "1")
	if !a.Equal(b) || a.Compare(b) != 0 {
		t.Errorf("capabilities with the same content should be equal")
	}
	if a.Equal(mk("ns", "x", "1")) {
		t.Errorf("capabilities with different attributes should differ")
	}
	if mk("a.ns", "x", "1").Compare(mk("b.ns", "x", "0")) >= 0 {
		t.Errorf("namespace should order first")
	}
}

func TestCapability_StringParsesBack(t *testing.T) {
	t.Parallel()

	c, err := NewBuilder().
		SetNamespace("osgi.extender").
		AddAttribute("osgi.extender", "foo").
		AddAttribute(AttrVersion, version.MustParse("1.2.3")).
		AddAttribute("n", int64(7)).
		AddAttribute("tags", []string{"a,b", "c"}).
		AddDirective("uses", "p1,p2").
		BuildCapability()
	if err != nil {
		t.Fatalf("BuildCapability() unexpected error: %v", err)
	}

	clauses, err := header.ParseHeader(c.String())
	if err != nil {
		t.Fatalf("ParseHeader(%q) unexpected error: %v", c.String(), err)
	}
	if len(clauses) != 1 {
		t.Fatalf("ParseHeader(%q) returned %d clauses, want 1", c.String(), len(clauses))
	}

	b := NewBuilder().SetNamespace(clauses[0].Name)
	for k, v := range clauses[0].Attributes {
		if err := b.AddTypedAttribute(k, v); err != nil {
			t.Fatalf("AddTypedAttribute(%q, %q) unexpected error: %v", k, v, err)
		}
	}
	for k, v := range clauses[0].Directives {
		b.AddDirective(k, v)
	}
	again, err := b.BuildCapability()
	if err != nil {
		t.Fatalf("BuildCapability() unexpected error: %v", err)
	}
	if !again.Equal(c) {
		t.Errorf("round trip mismatch:\n got %s\nwant %s", again, c)
	}
}

func TestRequirement_Matches(t *testing.T) {
	t.Parallel()

	req, err := NewBuilder().
		SetNamespace(NamespacePackage).
		AddDirective(DirectiveFilter, "(&(osgi.wiring.package=com.example.api)(version>=1.0.0)(!(version>=2.0.0)))").
		BuildRequirement()
	if err != nil {
		t.Fatalf("BuildRequirement() unexpected error: %v", err)
	}

	export := func(ns, v string) Capability {
		c, err := NewBuilder().
			SetNamespace(ns).
			AddAttribute(NamespacePackage, "com.example.api").
			AddAttribute(AttrVersion, version.MustParse(v)).
			BuildCapability()
		if err != nil {
			t.Fatalf("BuildCapability() unexpected error: %v", err)
		}
		return c
	}

	tests := []struct {
		name string
		cap  Capability
		want bool
	}{
		{"in_range", export(NamespacePackage, "1.5.0"), true},
		{"at_ceiling", export(NamespacePackage, "2.0.0"), false},
		{"below_floor", export(NamespacePackage, "0.9.9"), false},
		{"other_namespace", export(NamespaceBundle, "1.5.0"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := req.Matches(tt.cap)
			if err != nil {
				t.Fatalf("Matches() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}

	bad, err := NewBuilder().SetNamespace("x").AddDirective(DirectiveFilter, "(broken").BuildRequirement()
	if err != nil {
		t.Fatalf("BuildRequirement() unexpected error: %v", err)
	}
	if _, err := bad.Filter(); err == nil {
		t.Errorf("Filter() on malformed directive should fail")
	}

	open, err := NewBuilder().SetNamespace("x").BuildRequirement()
	if err != nil {
		t.Fatalf("BuildRequirement() unexpected error: %v", err)
	}
	anyCap, _ := NewBuilder().SetNamespace("x").BuildCapability()
	if ok, err := open.Matches(anyCap); err != nil || !ok {
		t.Errorf("requirement without filter should match any capability in its namespace")
	}
}
