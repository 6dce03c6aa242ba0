package pricing

import "testing"

func TestTableLookup(t *testing.T) {
	table := NewTable(
		map[string]EndpointCost{
			"/v1/ml/rag/query": {BaseCost: 3, IsPremium: true},
		},
		map[string]EndpointCost{
			"/v1/ml/":     {BaseCost: 2},
			"/v1/ml/rag/": {BaseCost: 5},
			"/copilot":    {BaseCost: 7},
		},
	)

	t.Run("exact match beats prefix rules", func(t *testing.T) {
		c := table.Lookup("/v1/ml/rag/query")
		if c.BaseCost != 3 || !c.IsPremium {
			t.Errorf("got %+v", c)
		}
	})

	t.Run("longest prefix wins", func(t *testing.T) {
		c := table.Lookup("/v1/ml/rag/ingest")
		if c.BaseCost != 5 {
			t.Errorf("BaseCost = %v, want 5 (longest prefix rule)", c.BaseCost)
		}
	})

	t.Run("shorter prefix catches the rest", func(t *testing.T) {
		c := table.Lookup("/v1/ml/classify")
		if c.BaseCost != 2 {
			t.Errorf("BaseCost = %v, want 2", c.BaseCost)
		}
	})

	t.Run("no substring matching", func(t *testing.T) {
		// "/copilot" appears inside the path but not as a prefix.
		c := table.Lookup("/v1/copilot/chat")
		if c != DefaultEndpointCost {
			t.Errorf("got %+v, want default", c)
		}
	})

	t.Run("unknown falls back to default", func(t *testing.T) {
		c := table.Lookup("/nowhere")
		if c != DefaultEndpointCost {
			t.Errorf("got %+v, want default", c)
		}
	})
}

func TestComponentTableSurcharge(t *testing.T) {
	ct := DefaultComponents()

	if got := ct.Surcharge("ai_agent"); got != 3 {
		t.Errorf("ai_agent = %v, want 3", got)
	}
	if got := ct.Surcharge("data"); got != 0 {
		t.Errorf("data = %v, want 0", got)
	}
	if got := ct.Surcharge("webhook_thing"); got != 1 {
		t.Errorf("unknown kind = %v, want 1", got)
	}
}
