package querysql

import "strings"

// scanState is the raw-SQL scanner state.
type scanState int

const (
	stateNormal scanState = iota
	stateInStringLiteral
)

// SubstituteBindingsIntoRawSQL inlines escaped bindings into sql for display
// or for transports that only accept literal statements.
//
// The scanner walks sql byte by byte in one of two states. An unescaped
// single quote toggles between Normal and InStringLiteral. In Normal state a
// bare `?` consumes the next binding; when none is left the `?` is kept.
// The pairs \' '' and ?? are copied through verbatim without consuming a
// binding or toggling state.
func (g *Grammar) SubstituteBindingsIntoRawSQL(sql string, bindings []any) string {
	pending := make([]string, len(bindings))
	for i, b := range bindings {
		pending[i] = g.Escape(b, false)
	}

	var sb strings.Builder
	sb.Grow(len(sql))
	state := stateNormal

	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		if i+1 < len(sql) {
			pair := sql[i : i+2]
			if pair == `\'` || pair == `''` || pair == `??` {
				sb.WriteString(pair)
				i++
				continue
			}
		}

		switch {
		case ch == '\'':
			sb.WriteByte(ch)
			if state == stateNormal {
				state = stateInStringLiteral
			} else {
				state = stateNormal
			}
		case ch == '?' && state == stateNormal:
			if len(pending) == 0 {
				sb.WriteByte('?')
				continue
			}
			sb.WriteString(pending[0])
			pending = pending[1:]
		default:
			sb.WriteByte(ch)
		}
	}

	return sb.String()
}
