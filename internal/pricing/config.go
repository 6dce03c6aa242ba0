package pricing

import (
	"sort"
	"strings"
)

// EndpointCost is the static cost configuration for one operation identifier
// (an ML endpoint path or a workflow node type).
type EndpointCost struct {
	BaseCost    float64 `json:"base_cost"`
	IsPremium   bool    `json:"is_premium"`
	PerItemCost float64 `json:"per_item_cost,omitempty"`
	PerTokenCost float64 `json:"per_token_cost,omitempty"`
}

// DefaultEndpointCost is what unknown operation identifiers resolve to. A
// misconfigured or newly added endpoint charges something small instead of
// failing the request.
var DefaultEndpointCost = EndpointCost{BaseCost: 1, IsPremium: false}

// Table resolves operation identifiers to cost configs. Lookup is two-phase:
// exact match in a map, then longest-prefix match over an ordered rule list.
// Substring scans are deliberately avoided so a rule for "/copilot/chat"
// cannot capture "/v1/copilot/chat-summary".
type Table struct {
	exact    map[string]EndpointCost
	prefixes []prefixRule // sorted longest prefix first
}

type prefixRule struct {
	prefix string
	cost   EndpointCost
}

// NewTable builds a lookup table. Both arguments are copied; the table is
// read-only after construction and safe for concurrent use.
func NewTable(exact map[string]EndpointCost, prefixes map[string]EndpointCost) *Table {
	t := &Table{exact: make(map[string]EndpointCost, len(exact))}
	for id, c := range exact {
		t.exact[id] = c
	}
	for p, c := range prefixes {
		t.prefixes = append(t.prefixes, prefixRule{prefix: p, cost: c})
	}
	sort.Slice(t.prefixes, func(i, j int) bool {
		if len(t.prefixes[i].prefix) != len(t.prefixes[j].prefix) {
			return len(t.prefixes[i].prefix) > len(t.prefixes[j].prefix)
		}
		return t.prefixes[i].prefix < t.prefixes[j].prefix
	})
	return t
}

// Lookup resolves an operation identifier. It never fails: unknown
// identifiers get DefaultEndpointCost.
func (t *Table) Lookup(operationID string) EndpointCost {
	if c, ok := t.exact[operationID]; ok {
		return c
	}
	for _, r := range t.prefixes {
		if strings.HasPrefix(operationID, r.prefix) {
			return r.cost
		}
	}
	return DefaultEndpointCost
}

// DefaultTable covers the gateway's built-in metered surface: the ML
// microservice endpoints and the workflow node types.
func DefaultTable() *Table {
	return NewTable(
		map[string]EndpointCost{
			// ML microservice endpoints
			"/v1/ml/embeddings":     {BaseCost: 1, PerItemCost: 0.1},
			"/v1/ml/rag/query":      {BaseCost: 3, IsPremium: true},
			"/v1/ml/rag/ingest":     {BaseCost: 2, PerItemCost: 0.5},
			"/v1/ml/completion":     {BaseCost: 3, IsPremium: true, PerTokenCost: 0.001},
			"/v1/ml/classify":       {BaseCost: 1, PerItemCost: 0.1},
			"/v1/workflows/execute": {BaseCost: 2},

			// Workflow node types
			"node.http_request": {BaseCost: 1},
			"node.ai_agent":     {BaseCost: 3, IsPremium: true},
			"node.llm_chain":    {BaseCost: 3, IsPremium: true, PerTokenCost: 0.001},
			"node.database":     {BaseCost: 0},
			"node.transform":    {BaseCost: 0},
			"node.email":        {BaseCost: 1},
		},
		map[string]EndpointCost{
			"/v1/ml/":       {BaseCost: 1},
			"/v1/workflows": {BaseCost: 2},
			"node.":         {BaseCost: 1},
		},
	)
}

// ComponentTable maps workflow sub-component kinds to flat premium
// surcharges. This is distinct from the per-endpoint table: it prices the
// sub-steps inside a workflow run, not the run itself.
type ComponentTable map[string]float64

// DefaultComponents: AI-agent steps are the expensive ones, generic
// third-party integrations cost a flat credit, data-layer steps are free.
func DefaultComponents() ComponentTable {
	return ComponentTable{
		"ai_agent":    3,
		"integration": 1,
		"data":        0,
	}
}

// Surcharge returns the flat surcharge for a component kind. Unknown kinds
// price like a generic integration.
func (ct ComponentTable) Surcharge(kind string) float64 {
	if s, ok := ct[kind]; ok {
		return s
	}
	return 1
}
