package vt

// State identifies the parser's position in the ANSI/VT control-sequence
// grammar. The values follow the DEC ANSI parser model from
// https://vt100.net/emu/dec_ansi_parser.
type State uint8

const (
	StateGround State = iota
	StateEscape
	StateEscapeIntermediate
	StateCsiEntry
	StateCsiParam
	StateCsiIntermediate
	StateCsiIgnore
	StateOscString
	StateDcsEntry
	StateDcsParam
	StateDcsIntermediate
	StateDcsPassthrough
	StateDcsIgnore
	StateSosPmApcString

	stateCount = int(StateSosPmApcString) + 1
)

func (s State) String() string {
	switch s {
	case StateGround:
		return "ground"
	case StateEscape:
		return "escape"
	case StateEscapeIntermediate:
		return "escape-intermediate"
	case StateCsiEntry:
		return "csi-entry"
	case StateCsiParam:
		return "csi-param"
	case StateCsiIntermediate:
		return "csi-intermediate"
	case StateCsiIgnore:
		return "csi-ignore"
	case StateOscString:
		return "osc-string"
	case StateDcsEntry:
		return "dcs-entry"
	case StateDcsParam:
		return "dcs-param"
	case StateDcsIntermediate:
		return "dcs-intermediate"
	case StateDcsPassthrough:
		return "dcs-passthrough"
	case StateDcsIgnore:
		return "dcs-ignore"
	case StateSosPmApcString:
		return "sos-pm-apc-string"
	default:
		return "invalid"
	}
}

// Valid reports whether s is a member of the state enumeration.
func (s State) Valid() bool {
	return int(s) < stateCount
}
