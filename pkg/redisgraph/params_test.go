package redisgraph

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type label string

func (l label) String() string { return "label:" + string(l) }

func TestPrepareQuery(t *testing.T) {
	name := "bob"
	tests := []struct {
		name   string
		params map[string]any
		want   string
	}{
		{"no params", nil, "RETURN $x"},
		{"string", map[string]any{"x": "roi"}, `CYPHER x="roi" RETURN $x`},
		{"escaped string", map[string]any{"x": `say "hi" \o/`}, `CYPHER x="say \"hi\" \\o/" RETURN $x`},
		{"nil", map[string]any{"x": nil}, "CYPHER x=null RETURN $x"},
		{"bool", map[string]any{"x": true}, "CYPHER x=true RETURN $x"},
		{"int", map[string]any{"x": 42}, "CYPHER x=42 RETURN $x"},
		{"int64", map[string]any{"x": int64(-7)}, "CYPHER x=-7 RETURN $x"},
		{"uint", map[string]any{"x": uint8(9)}, "CYPHER x=9 RETURN $x"},
		{"float", map[string]any{"x": 3.25}, "CYPHER x=3.25 RETURN $x"},
		{"whole float", map[string]any{"x": 1.0}, "CYPHER x=1.0 RETURN $x"},
		{"whole float32", map[string]any{"x": float32(3)}, "CYPHER x=3.0 RETURN $x"},
		{"float32", map[string]any{"x": float32(0.1)}, "CYPHER x=0.1 RETURN $x"},
		{"negative float", map[string]any{"x": -2.0}, "CYPHER x=-2.0 RETURN $x"},
		{"large float", map[string]any{"x": 1e21}, "CYPHER x=1e21 RETURN $x"},
		{"small float", map[string]any{"x": 1.5e-7}, "CYPHER x=1.5e-07 RETURN $x"},
		{"float list", map[string]any{"x": []float64{1, 2.5}}, "CYPHER x=[1.0, 2.5] RETURN $x"},
		{"list", map[string]any{"x": []any{1, "a", nil}}, `CYPHER x=[1, "a", null] RETURN $x`},
		{"typed list", map[string]any{"x": []string{"a", "b"}}, `CYPHER x=["a", "b"] RETURN $x`},
		{"map", map[string]any{"x": map[string]any{"b": 2, "a": "z"}}, `CYPHER x={a: "z", b: 2} RETURN $x`},
		{"pointer", map[string]any{"x": &name}, `CYPHER x="bob" RETURN $x`},
		{"stringer", map[string]any{"x": label("p")}, `CYPHER x="label:p" RETURN $x`},
		{"keys sorted", map[string]any{"b": 1, "a": 2}, "CYPHER a=2 b=1 RETURN $x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PrepareQuery("RETURN $x", tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrepareQuery_RejectsNonFiniteFloats(t *testing.T) {
	for _, v := range []any{math.NaN(), math.Inf(1), float32(math.Inf(-1)), []any{1.0, math.NaN()}} {
		_, err := PrepareQuery("RETURN $x", map[string]any{"x": v})
		assert.ErrorIs(t, err, ErrInvalidParameter, "%v", v)
	}

	_, err := procedureQuery("algo.scale", []any{math.Inf(1)}, nil)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestProcedureQuery(t *testing.T) {
	tests := []struct {
		procedure string
		args      []any
		yield     []string
		want      string
	}{
		{"db.labels", nil, nil, "CALL db.labels()"},
		{"db.idx.fulltext.createNodeIndex", []any{"Person", "name"}, nil, `CALL db.idx.fulltext.createNodeIndex("Person","name")`},
		{"algo.pageRank", []any{"Page", "LINKS"}, []string{"node", "score"}, `CALL algo.pageRank("Page","LINKS") YIELD node,score`},
		{"algo.scale", []any{2.0}, nil, "CALL algo.scale(2.0)"},
	}
	for _, tt := range tests {
		got, err := procedureQuery(tt.procedure, tt.args, tt.yield)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestQuery_Args(t *testing.T) {
	q := Query{GraphID: "g", Text: "RETURN 1"}
	assert.Equal(t, []string{"g", "RETURN 1", "--compact"}, q.args())
	assert.Equal(t, "GRAPH.QUERY", q.command().String())

	q.ReadOnly = true
	q.Timeout = 250 * time.Millisecond
	assert.Equal(t, []string{"g", "RETURN 1", "--compact", "timeout", "250"}, q.args())
	assert.Equal(t, "GRAPH.RO_QUERY", q.command().String())

	q.Timeout = time.Microsecond
	assert.Equal(t, "1", q.args()[4])
}
