package calendly

import (
	"testing"

	"agenda-bot/types"
)

func TestTypeCache_WriteOnce(t *testing.T) {
	t.Parallel()

	tc := NewTypeCache()
	if _, ok := tc.Get(); ok {
		t.Fatal("empty cache reported populated")
	}

	tc.Set([]types.EventType{{URI: "ET1", Name: "Consulta"}})
	tc.Set([]types.EventType{{URI: "ET2", Name: "Outro"}}) // ignored

	items, ok := tc.Get()
	if !ok || len(items) != 1 || items[0].URI != "ET1" {
		t.Fatalf("expected first write to stick, got %+v (ok=%v)", items, ok)
	}
}

func TestTypeCache_Invalidate(t *testing.T) {
	t.Parallel()

	tc := NewTypeCache()
	tc.Set([]types.EventType{{URI: "ET1"}})
	tc.Invalidate()

	if _, ok := tc.Get(); ok {
		t.Fatal("cache still populated after invalidate")
	}

	tc.Set([]types.EventType{{URI: "ET2"}})
	items, ok := tc.Get()
	if !ok || len(items) != 1 || items[0].URI != "ET2" {
		t.Fatalf("expected repopulation after invalidate, got %+v (ok=%v)", items, ok)
	}
}

func TestTypeCache_GetReturnsCopy(t *testing.T) {
	t.Parallel()

	tc := NewTypeCache()
	tc.Set([]types.EventType{{URI: "ET1", Name: "Consulta"}})

	items, _ := tc.Get()
	items[0].Name = "mutated"

	again, _ := tc.Get()
	if again[0].Name != "Consulta" {
		t.Fatal("cache contents leaked through Get")
	}
}
