package vt

// The transition table maps (state, byte) to (next state, action). It is
// built once at init from the DEC ANSI parser description, with two
// deviations carried over from modern emulators: ':' is a parameter
// separator (SGR subparameters) rather than a trip into csi-ignore, and
// BEL terminates an OSC string.

type action uint8

const (
	actNone action = iota
	actIgnore
	actPrint
	actExecute
	actClear
	actCollect
	actParam
	actEscDispatch
	actCsiDispatch
	actDcsHook
	actDcsPut
	actOscStart
	actOscPut
	actOscEnd
	actApcStart
	actApcPut
	actApcEnd
)

type transition struct {
	next State
	act  action
}

var table [stateCount][256]transition

func fill(s State, lo, hi int, next State, act action) {
	for b := lo; b <= hi; b++ {
		table[s][b] = transition{next, act}
	}
}

func set(s State, b int, next State, act action) {
	table[s][b] = transition{next, act}
}

// fillExecute marks the C0 controls that execute (or, in string states,
// perform act) without leaving the sequence: 0x00-0x17, 0x19, 0x1C-0x1F.
// CAN, SUB and ESC are handled by the anywhere rules.
func fillExecute(s State, next State, act action) {
	fill(s, 0x00, 0x17, next, act)
	set(s, 0x19, next, act)
	fill(s, 0x1C, 0x1F, next, act)
}

func init() {
	// Ground
	fillExecute(StateGround, StateGround, actExecute)
	fill(StateGround, 0x20, 0x7E, StateGround, actPrint)
	set(StateGround, 0x7F, StateGround, actIgnore)
	fill(StateGround, 0xA0, 0xFF, StateGround, actPrint)

	// Escape
	fillExecute(StateEscape, StateEscape, actExecute)
	fill(StateEscape, 0x20, 0x2F, StateEscapeIntermediate, actCollect)
	fill(StateEscape, 0x30, 0x7E, StateGround, actEscDispatch)
	set(StateEscape, 0x50, StateDcsEntry, actClear)
	set(StateEscape, 0x58, StateSosPmApcString, actNone)
	set(StateEscape, 0x5B, StateCsiEntry, actClear)
	set(StateEscape, 0x5D, StateOscString, actOscStart)
	set(StateEscape, 0x5E, StateSosPmApcString, actNone)
	set(StateEscape, 0x5F, StateSosPmApcString, actApcStart)
	set(StateEscape, 0x7F, StateEscape, actIgnore)
	fill(StateEscape, 0xA0, 0xFF, StateEscape, actIgnore)

	// EscapeIntermediate
	fillExecute(StateEscapeIntermediate, StateEscapeIntermediate, actExecute)
	fill(StateEscapeIntermediate, 0x20, 0x2F, StateEscapeIntermediate, actCollect)
	fill(StateEscapeIntermediate, 0x30, 0x7E, StateGround, actEscDispatch)
	set(StateEscapeIntermediate, 0x7F, StateEscapeIntermediate, actIgnore)
	fill(StateEscapeIntermediate, 0xA0, 0xFF, StateEscapeIntermediate, actIgnore)

	// CsiEntry
	fillExecute(StateCsiEntry, StateCsiEntry, actExecute)
	fill(StateCsiEntry, 0x20, 0x2F, StateCsiIntermediate, actCollect)
	fill(StateCsiEntry, 0x30, 0x3B, StateCsiParam, actParam)
	fill(StateCsiEntry, 0x3C, 0x3F, StateCsiParam, actCollect)
	fill(StateCsiEntry, 0x40, 0x7E, StateGround, actCsiDispatch)
	set(StateCsiEntry, 0x7F, StateCsiEntry, actIgnore)
	fill(StateCsiEntry, 0xA0, 0xFF, StateCsiEntry, actIgnore)

	// CsiParam
	fillExecute(StateCsiParam, StateCsiParam, actExecute)
	fill(StateCsiParam, 0x20, 0x2F, StateCsiIntermediate, actCollect)
	fill(StateCsiParam, 0x30, 0x3B, StateCsiParam, actParam)
	fill(StateCsiParam, 0x3C, 0x3F, StateCsiIgnore, actNone)
	fill(StateCsiParam, 0x40, 0x7E, StateGround, actCsiDispatch)
	set(StateCsiParam, 0x7F, StateCsiParam, actIgnore)
	fill(StateCsiParam, 0xA0, 0xFF, StateCsiParam, actIgnore)

	// CsiIntermediate
	fillExecute(StateCsiIntermediate, StateCsiIntermediate, actExecute)
	fill(StateCsiIntermediate, 0x20, 0x2F, StateCsiIntermediate, actCollect)
	fill(StateCsiIntermediate, 0x30, 0x3F, StateCsiIgnore, actNone)
	fill(StateCsiIntermediate, 0x40, 0x7E, StateGround, actCsiDispatch)
	set(StateCsiIntermediate, 0x7F, StateCsiIntermediate, actIgnore)
	fill(StateCsiIntermediate, 0xA0, 0xFF, StateCsiIntermediate, actIgnore)

	// CsiIgnore
	fillExecute(StateCsiIgnore, StateCsiIgnore, actExecute)
	fill(StateCsiIgnore, 0x20, 0x3F, StateCsiIgnore, actIgnore)
	fill(StateCsiIgnore, 0x40, 0x7E, StateGround, actNone)
	set(StateCsiIgnore, 0x7F, StateCsiIgnore, actIgnore)
	fill(StateCsiIgnore, 0xA0, 0xFF, StateCsiIgnore, actIgnore)

	// OscString: BEL terminates (xterm extension), controls are swallowed,
	// everything printable accumulates.
	fillExecute(StateOscString, StateOscString, actIgnore)
	set(StateOscString, 0x07, StateGround, actOscEnd)
	fill(StateOscString, 0x20, 0x7F, StateOscString, actOscPut)
	fill(StateOscString, 0xA0, 0xFF, StateOscString, actOscPut)

	// DcsEntry
	fillExecute(StateDcsEntry, StateDcsEntry, actIgnore)
	fill(StateDcsEntry, 0x20, 0x2F, StateDcsIntermediate, actCollect)
	fill(StateDcsEntry, 0x30, 0x39, StateDcsParam, actParam)
	set(StateDcsEntry, 0x3A, StateDcsIgnore, actNone)
	set(StateDcsEntry, 0x3B, StateDcsParam, actParam)
	fill(StateDcsEntry, 0x3C, 0x3F, StateDcsParam, actCollect)
	fill(StateDcsEntry, 0x40, 0x7E, StateDcsPassthrough, actDcsHook)
	set(StateDcsEntry, 0x7F, StateDcsEntry, actIgnore)
	fill(StateDcsEntry, 0xA0, 0xFF, StateDcsEntry, actIgnore)

	// DcsParam
	fillExecute(StateDcsParam, StateDcsParam, actIgnore)
	fill(StateDcsParam, 0x20, 0x2F, StateDcsIntermediate, actCollect)
	fill(StateDcsParam, 0x30, 0x39, StateDcsParam, actParam)
	set(StateDcsParam, 0x3A, StateDcsIgnore, actNone)
	set(StateDcsParam, 0x3B, StateDcsParam, actParam)
	fill(StateDcsParam, 0x3C, 0x3F, StateDcsIgnore, actNone)
	fill(StateDcsParam, 0x40, 0x7E, StateDcsPassthrough, actDcsHook)
	set(StateDcsParam, 0x7F, StateDcsParam, actIgnore)
	fill(StateDcsParam, 0xA0, 0xFF, StateDcsParam, actIgnore)

	// DcsIntermediate
	fillExecute(StateDcsIntermediate, StateDcsIntermediate, actIgnore)
	fill(StateDcsIntermediate, 0x20, 0x2F, StateDcsIntermediate, actCollect)
	fill(StateDcsIntermediate, 0x30, 0x3F, StateDcsIgnore, actNone)
	fill(StateDcsIntermediate, 0x40, 0x7E, StateDcsPassthrough, actDcsHook)
	set(StateDcsIntermediate, 0x7F, StateDcsIntermediate, actIgnore)
	fill(StateDcsIntermediate, 0xA0, 0xFF, StateDcsIntermediate, actIgnore)

	// DcsPassthrough
	fillExecute(StateDcsPassthrough, StateDcsPassthrough, actDcsPut)
	fill(StateDcsPassthrough, 0x20, 0x7E, StateDcsPassthrough, actDcsPut)
	set(StateDcsPassthrough, 0x7F, StateDcsPassthrough, actIgnore)
	fill(StateDcsPassthrough, 0xA0, 0xFF, StateDcsPassthrough, actDcsPut)

	// DcsIgnore
	fillExecute(StateDcsIgnore, StateDcsIgnore, actIgnore)
	fill(StateDcsIgnore, 0x20, 0x7F, StateDcsIgnore, actIgnore)
	fill(StateDcsIgnore, 0xA0, 0xFF, StateDcsIgnore, actIgnore)

	// SosPmApcString
	fillExecute(StateSosPmApcString, StateSosPmApcString, actIgnore)
	fill(StateSosPmApcString, 0x20, 0x7F, StateSosPmApcString, actApcPut)
	fill(StateSosPmApcString, 0xA0, 0xFF, StateSosPmApcString, actApcPut)

	// Anywhere rules override every state: CAN/SUB abort, ESC restarts,
	// and the 8-bit C1 set maps onto its ESC-pair equivalents.
	for s := 0; s < stateCount; s++ {
		st := State(s)
		set(st, 0x18, StateGround, actExecute)
		set(st, 0x1A, StateGround, actExecute)
		set(st, 0x1B, StateEscape, actClear)
		fill(st, 0x80, 0x8F, StateGround, actExecute)
		set(st, 0x90, StateDcsEntry, actClear)
		fill(st, 0x91, 0x97, StateGround, actExecute)
		set(st, 0x98, StateSosPmApcString, actNone)
		set(st, 0x99, StateGround, actExecute)
		set(st, 0x9A, StateGround, actExecute)
		set(st, 0x9B, StateCsiEntry, actClear)
		set(st, 0x9C, StateGround, actNone)
		set(st, 0x9D, StateOscString, actOscStart)
		set(st, 0x9E, StateSosPmApcString, actNone)
		set(st, 0x9F, StateSosPmApcString, actApcStart)
	}
}
