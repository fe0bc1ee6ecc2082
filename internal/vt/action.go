package vt

// ActionSink receives the terminal actions recognized by the parser. It is
// the capability boundary between the byte-stream grammar and whatever
// consumes it (a cell grid, a recorder, a filter).
//
// Slice arguments are only valid for the duration of the call; implementations
// that need to keep them must copy.
type ActionSink interface {
	// Print delivers one decoded printable rune.
	Print(r rune)
	// Execute delivers a C0/C1 control byte (BEL, LF, CR, TAB, ...).
	Execute(b byte)
	// CsiDispatch delivers a complete CSI sequence.
	CsiDispatch(params []uint16, intermediates []byte, final byte)
	// EscDispatch delivers a complete non-CSI escape sequence.
	EscDispatch(intermediates []byte, final byte)
	// OscDispatch delivers an OSC string split on its ';' separators.
	OscDispatch(params [][]byte)
	// DcsHook opens a device control string.
	DcsHook(params []uint16, intermediates []byte, final byte)
	// DcsPut delivers one DCS passthrough byte.
	DcsPut(b byte)
	// DcsUnhook closes the device control string.
	DcsUnhook()
	// ApcStart, ApcPut and ApcEnd bracket an APC string.
	ApcStart()
	ApcPut(b byte)
	ApcEnd()
}

// NullSink discards every action. Useful for draining input and for tests
// that only care about parser state.
type NullSink struct{}

func (NullSink) Print(rune)                         {}
func (NullSink) Execute(byte)                       {}
func (NullSink) CsiDispatch([]uint16, []byte, byte) {}
func (NullSink) EscDispatch([]byte, byte)           {}
func (NullSink) OscDispatch([][]byte)               {}
func (NullSink) DcsHook([]uint16, []byte, byte)     {}
func (NullSink) DcsPut(byte)                        {}
func (NullSink) DcsUnhook()                         {}
func (NullSink) ApcStart()                          {}
func (NullSink) ApcPut(byte)                        {}
func (NullSink) ApcEnd()                            {}
