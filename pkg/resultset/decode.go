package resultset

import (
	"context"
	"strconv"
)

// Decode turns a compact GRAPH.QUERY / GRAPH.RO_QUERY reply into a ResultSet.
//
// resolver may be nil when the reply is known to hold only scalars (for
// example the schema procedures themselves); a node or edge then yields a
// *ProtocolError. Errors returned by resolver propagate unchanged. A server
// error embedded in the reply is returned as-is.
func Decode(ctx context.Context, reply any, resolver SchemaResolver) (*ResultSet, error) {
	raw, ok := reply.([]any)
	if !ok {
		return nil, NewProtocolError(nil, "expected array reply, got %T", reply)
	}
	for _, part := range raw {
		if err, ok := part.(error); ok {
			return nil, err
		}
	}

	d := decoder{resolver: resolver}
	rs := &ResultSet{}

	switch len(raw) {
	case 1:
		stats, err := parseStatistics(raw[0])
		if err != nil {
			return nil, err
		}
		rs.Statistics = stats
	case 3:
		header, err := parseHeader(raw[0])
		if err != nil {
			return nil, err
		}
		rs.Header = header
		if rs.Records, err = d.records(ctx, header, raw[1]); err != nil {
			return nil, err
		}
		if rs.Statistics, err = parseStatistics(raw[2]); err != nil {
			return nil, err
		}
	default:
		return nil, NewProtocolError(nil, "expected 1 or 3 reply sections, got %d", len(raw))
	}
	return rs, nil
}

func parseHeader(raw any) (Header, error) {
	cols, ok := raw.([]any)
	if !ok {
		return Header{}, NewProtocolError(nil, "header: expected array, got %T", raw)
	}
	h := Header{
		Types: make([]ColumnType, 0, len(cols)),
		Names: make([]string, 0, len(cols)),
	}
	for _, c := range cols {
		pair, ok := c.([]any)
		if !ok || len(pair) != 2 {
			return Header{}, NewProtocolError(nil, "header: column must be [type, name], got %v", c)
		}
		t, ok := asInt(pair[0])
		if !ok {
			return Header{}, NewProtocolError(nil, "header: column type %v", pair[0])
		}
		name, ok := asString(pair[1])
		if !ok {
			return Header{}, NewProtocolError(nil, "header: column name %v", pair[1])
		}
		h.Types = append(h.Types, ColumnType(t))
		h.Names = append(h.Names, name)
	}
	return h, nil
}

type decoder struct {
	resolver SchemaResolver
}

func (d decoder) records(ctx context.Context, h Header, raw any) ([]*Record, error) {
	rows, ok := raw.([]any)
	if !ok {
		return nil, NewProtocolError(nil, "records: expected array, got %T", raw)
	}
	out := make([]*Record, 0, len(rows))
	for _, r := range rows {
		cells, ok := r.([]any)
		if !ok || len(cells) != len(h.Names) {
			return nil, NewProtocolError(nil, "record: expected %d columns, got %v", len(h.Names), r)
		}
		values := make([]any, len(cells))
		for i, cell := range cells {
			var err error
			switch h.Types[i] {
			case ColumnNode:
				values[i], err = d.node(ctx, cell)
			case ColumnRelation:
				values[i], err = d.edge(ctx, cell)
			default:
				values[i], err = d.scalar(ctx, cell)
			}
			if err != nil {
				return nil, err
			}
		}
		out = append(out, NewRecord(h.Names, values))
	}
	return out, nil
}

// scalar decodes a [valueType, value] pair.
func (d decoder) scalar(ctx context.Context, raw any) (any, error) {
	pair, ok := raw.([]any)
	if !ok || len(pair) != 2 {
		return nil, NewProtocolError(nil, "scalar: expected [type, value], got %v", raw)
	}
	t, ok := asInt(pair[0])
	if !ok {
		return nil, NewProtocolError(nil, "scalar: type %v", pair[0])
	}
	return d.typed(ctx, ValueType(t), pair[1])
}

func (d decoder) typed(ctx context.Context, t ValueType, v any) (any, error) {
	switch t {
	case ValueNull:
		return nil, nil
	case ValueString:
		s, ok := asString(v)
		if !ok {
			return nil, NewProtocolError(nil, "string value %T", v)
		}
		return s, nil
	case ValueInteger:
		n, ok := asInt(v)
		if !ok {
			return nil, NewProtocolError(nil, "integer value %v", v)
		}
		return n, nil
	case ValueBoolean:
		b, ok := asBool(v)
		if !ok {
			return nil, NewProtocolError(nil, "boolean value %v", v)
		}
		return b, nil
	case ValueDouble:
		f, ok := asFloat(v)
		if !ok {
			return nil, NewProtocolError(nil, "double value %v", v)
		}
		return f, nil
	case ValueArray:
		items, ok := v.([]any)
		if !ok {
			return nil, NewProtocolError(nil, "array value %T", v)
		}
		out := make([]any, len(items))
		for i, item := range items {
			var err error
			if out[i], err = d.scalar(ctx, item); err != nil {
				return nil, err
			}
		}
		return out, nil
	case ValueNode:
		return d.node(ctx, v)
	case ValueEdge:
		return d.edge(ctx, v)
	case ValuePath:
		return d.path(ctx, v)
	case ValueMap:
		return d.mapValue(ctx, v)
	case ValuePoint:
		return point(v)
	default:
		return nil, NewProtocolError(nil, "unknown value type %d", t)
	}
}

// node decodes [id, [labelIds...], [properties...]].
func (d decoder) node(ctx context.Context, raw any) (*Node, error) {
	parts, ok := raw.([]any)
	if !ok || len(parts) != 3 {
		return nil, NewProtocolError(nil, "node: expected [id, labels, properties], got %v", raw)
	}
	if d.resolver == nil {
		return nil, NewProtocolError(nil, "node value without a schema resolver")
	}
	id, ok := asInt(parts[0])
	if !ok {
		return nil, NewProtocolError(nil, "node id %v", parts[0])
	}
	labelIDs, ok := parts[1].([]any)
	if !ok {
		return nil, NewProtocolError(nil, "node labels %T", parts[1])
	}
	n := &Node{ID: id, Labels: make([]string, 0, len(labelIDs))}
	for _, raw := range labelIDs {
		lid, ok := asInt(raw)
		if !ok {
			return nil, NewProtocolError(nil, "label id %v", raw)
		}
		name, err := d.resolver.Label(ctx, lid)
		if err != nil {
			return nil, err
		}
		n.Labels = append(n.Labels, name)
	}
	props, err := d.properties(ctx, parts[2])
	if err != nil {
		return nil, err
	}
	n.Properties = props
	return n, nil
}

// edge decodes [id, relationTypeId, srcId, dstId, [properties...]].
func (d decoder) edge(ctx context.Context, raw any) (*Edge, error) {
	parts, ok := raw.([]any)
	if !ok || len(parts) != 5 {
		return nil, NewProtocolError(nil, "edge: expected [id, type, src, dst, properties], got %v", raw)
	}
	if d.resolver == nil {
		return nil, NewProtocolError(nil, "edge value without a schema resolver")
	}
	var ids [4]int64
	for i := range ids {
		n, ok := asInt(parts[i])
		if !ok {
			return nil, NewProtocolError(nil, "edge field %d: %v", i, parts[i])
		}
		ids[i] = n
	}
	relation, err := d.resolver.RelationshipType(ctx, ids[1])
	if err != nil {
		return nil, err
	}
	props, err := d.properties(ctx, parts[4])
	if err != nil {
		return nil, err
	}
	return &Edge{
		ID:          ids[0],
		Relation:    relation,
		Source:      ids[2],
		Destination: ids[3],
		Properties:  props,
	}, nil
}

// properties decodes [[keyId, valueType, value], ...].
func (d decoder) properties(ctx context.Context, raw any) (map[string]any, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, NewProtocolError(nil, "properties: expected array, got %T", raw)
	}
	props := make(map[string]any, len(items))
	for _, item := range items {
		triple, ok := item.([]any)
		if !ok || len(triple) != 3 {
			return nil, NewProtocolError(nil, "property: expected [key, type, value], got %v", item)
		}
		kid, ok := asInt(triple[0])
		if !ok {
			return nil, NewProtocolError(nil, "property key id %v", triple[0])
		}
		key, err := d.resolver.PropertyKey(ctx, kid)
		if err != nil {
			return nil, err
		}
		t, ok := asInt(triple[1])
		if !ok {
			return nil, NewProtocolError(nil, "property type %v", triple[1])
		}
		if props[key], err = d.typed(ctx, ValueType(t), triple[2]); err != nil {
			return nil, err
		}
	}
	return props, nil
}

// path decodes [[ARRAY, [nodes]], [ARRAY, [edges]]].
func (d decoder) path(ctx context.Context, raw any) (*Path, error) {
	parts, ok := raw.([]any)
	if !ok || len(parts) != 2 {
		return nil, NewProtocolError(nil, "path: expected [nodes, edges], got %v", raw)
	}
	rawNodes, err := d.scalar(ctx, parts[0])
	if err != nil {
		return nil, err
	}
	rawEdges, err := d.scalar(ctx, parts[1])
	if err != nil {
		return nil, err
	}
	nodes, _ := rawNodes.([]any)
	edges, _ := rawEdges.([]any)
	p := &Path{Nodes: make([]*Node, 0, len(nodes)), Edges: make([]*Edge, 0, len(edges))}
	for _, n := range nodes {
		node, ok := n.(*Node)
		if !ok {
			return nil, NewProtocolError(nil, "path node %T", n)
		}
		p.Nodes = append(p.Nodes, node)
	}
	for _, e := range edges {
		edge, ok := e.(*Edge)
		if !ok {
			return nil, NewProtocolError(nil, "path edge %T", e)
		}
		p.Edges = append(p.Edges, edge)
	}
	return p, nil
}

// mapValue decodes [key, [type, value], key, [type, value], ...].
func (d decoder) mapValue(ctx context.Context, raw any) (map[string]any, error) {
	items, ok := raw.([]any)
	if !ok || len(items)%2 != 0 {
		return nil, NewProtocolError(nil, "map: expected even-length array, got %v", raw)
	}
	out := make(map[string]any, len(items)/2)
	for i := 0; i < len(items); i += 2 {
		key, ok := asString(items[i])
		if !ok {
			return nil, NewProtocolError(nil, "map key %v", items[i])
		}
		v, err := d.scalar(ctx, items[i+1])
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

func point(raw any) (Point, error) {
	parts, ok := raw.([]any)
	if !ok || len(parts) != 2 {
		return Point{}, NewProtocolError(nil, "point: expected [lat, lon], got %v", raw)
	}
	lat, ok1 := asFloat(parts[0])
	lon, ok2 := asFloat(parts[1])
	if !ok1 || !ok2 {
		return Point{}, NewProtocolError(nil, "point coordinates %v", raw)
	}
	return Point{Latitude: lat, Longitude: lon}, nil
}

func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	}
	return "", false
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch f := v.(type) {
	case float64:
		return f, true
	case int64:
		return float64(f), true
	case string:
		x, err := strconv.ParseFloat(f, 64)
		return x, err == nil
	case []byte:
		x, err := strconv.ParseFloat(string(f), 64)
		return x, err == nil
	}
	return 0, false
}

func asBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case int64:
		return b != 0, true
	case string:
		x, err := strconv.ParseBool(b)
		return x, err == nil
	}
	return false, false
}
