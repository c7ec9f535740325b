package loadgen

import "testing"

func TestCatalogResolveUnknownGenerator(t *testing.T) {
	c := NewCatalog()
	if _, err := c.Resolve("nope"); err == nil {
		t.Error("Resolve() for unregistered name = nil error, want error")
	}
}

func TestCatalogRegisterAndResolve(t *testing.T) {
	c := NewCatalog()
	c.Register("noop", func() RequestGenerator { return NoopGenerator{} })

	gen, err := c.Resolve("noop")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if _, ok := gen.(NoopGenerator); !ok {
		t.Errorf("Resolve() = %T, want NoopGenerator", gen)
	}
}

func TestDefaultCatalogHasReferenceGenerators(t *testing.T) {
	c := NewDefaultCatalog()
	for _, name := range []string{"noop", "fixed-10ms"} {
		if _, err := c.Resolve(name); err != nil {
			t.Errorf("Resolve(%q) error = %v", name, err)
		}
	}
}
