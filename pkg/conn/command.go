package conn

// Command is a protocol command token. The connection layer routes commands
// opaquely and never inspects their arguments beyond the routing key.
type Command string

// Graph commands.
const (
	GraphQuery         Command = "GRAPH.QUERY"
	GraphReadOnlyQuery Command = "GRAPH.RO_QUERY"
	GraphDelete        Command = "GRAPH.DELETE"
	GraphExplain       Command = "GRAPH.EXPLAIN"
	GraphList          Command = "GRAPH.LIST"
)

func (c Command) String() string { return string(c) }

// args builds the wire argument list: command name followed by args.
func (c Command) args(args []string) []any {
	out := make([]any, 0, len(args)+1)
	out = append(out, string(c))
	for _, a := range args {
		out = append(out, a)
	}
	return out
}
