package vt

import "unicode/utf8"

const (
	// MaxParams bounds the number of CSI/DCS parameters; extras are dropped.
	MaxParams = 16
	// MaxIntermediates bounds collected intermediate bytes; extras are dropped.
	MaxIntermediates = 4
	// MaxOscData caps OSC string accumulation. Input past the cap is
	// truncated so hostile output cannot grow the buffer without bound.
	MaxOscData = 65536
	// MaxOscParams bounds the ';'-separated segments handed to OscDispatch.
	MaxOscParams = 8
)

// Parser is an ANSI/VT byte-stream state machine. Feed it raw PTY output
// with Advance and it calls back into an ActionSink for every recognized
// action. It never fails: malformed sequences are absorbed by the grammar's
// ignore states and parsing resumes at the next terminator.
//
// A Parser is not safe for concurrent use; drive it from the session's
// read loop.
type Parser struct {
	state State

	params  [MaxParams]uint16
	nparams int

	intermediates  [MaxIntermediates]byte
	nintermediates int

	oscData      []byte
	oscParams    [MaxOscParams][]byte
	currentParam uint32
	paramStarted bool

	// subparamMask bit i is set when params[i] was introduced by ':'
	// rather than ';' (SGR 4:x underline styles).
	subparamMask uint16
	lastWasColon bool

	dcsActive bool
	apcActive bool

	utf8Buf      [4]byte
	utf8Len      int
	utf8Expected int
}

// New returns a parser in the ground state.
func New() *Parser {
	return &Parser{oscData: make([]byte, 0, 128)}
}

// State returns the current grammar state.
func (p *Parser) State() State {
	return p.state
}

// SubparamMask reports which parameters of the most recent CSI dispatch were
// colon-introduced subparameters. Bit i corresponds to params[i].
func (p *Parser) SubparamMask() uint16 {
	return p.subparamMask
}

// Reset returns the parser to the ground state and drops buffered data.
func (p *Parser) Reset() {
	p.state = StateGround
	p.clear()
	p.oscData = p.oscData[:0]
	p.dcsActive = false
	p.apcActive = false
	p.utf8Len = 0
	p.utf8Expected = 0
}

// Advance processes input left to right, invoking sink for each action.
// It never panics and consumes every byte; partial escape or UTF-8
// sequences are carried over to the next call.
func (p *Parser) Advance(input []byte, sink ActionSink) {
	for len(input) > 0 {
		if p.state == StateGround {
			if p.utf8Len > 0 {
				p.utf8Byte(input[0], sink)
				input = input[1:]
				continue
			}

			// Fast path: emit the run of plain printable ASCII in bulk.
			n := printableRun(input)
			for _, b := range input[:n] {
				sink.Print(rune(b))
			}
			input = input[n:]
			if len(input) == 0 {
				return
			}

			b := input[0]
			input = input[1:]
			switch {
			case b <= 0x9F:
				p.processByte(b, sink)
			case b >= 0xC0 && b <= 0xF7:
				p.startUTF8(b)
			default:
				// Orphan continuation byte or invalid lead.
				sink.Print(utf8.RuneError)
			}
			continue
		}

		p.processByte(input[0], sink)
		input = input[1:]
	}
}

// printableRun returns the length of the leading run of bytes in the
// printable ASCII range 0x20-0x7E.
func printableRun(input []byte) int {
	for i, b := range input {
		if b < 0x20 || b > 0x7E {
			return i
		}
	}
	return len(input)
}

func (p *Parser) startUTF8(lead byte) {
	p.utf8Buf[0] = lead
	p.utf8Len = 1
	switch {
	case lead >= 0xF0:
		p.utf8Expected = 4
	case lead >= 0xE0:
		p.utf8Expected = 3
	default:
		p.utf8Expected = 2
	}
}

func (p *Parser) utf8Byte(b byte, sink ActionSink) {
	if b >= 0x80 && b <= 0xBF {
		p.utf8Buf[p.utf8Len] = b
		p.utf8Len++
		if p.utf8Len == p.utf8Expected {
			r, _ := utf8.DecodeRune(p.utf8Buf[:p.utf8Len])
			sink.Print(r)
			p.utf8Len = 0
			p.utf8Expected = 0
		}
		return
	}

	// Broken sequence: flag it, then reinterpret the byte.
	sink.Print(utf8.RuneError)
	p.utf8Len = 0
	p.utf8Expected = 0
	switch {
	case b >= 0xC0 && b <= 0xF7:
		p.startUTF8(b)
	case b >= 0x80:
		sink.Print(utf8.RuneError)
	default:
		p.processByte(b, sink)
	}
}

func (p *Parser) processByte(b byte, sink ActionSink) {
	tr := table[p.state][b]
	prev := p.state

	// Exit edges: a string state left by any route delivers its terminal
	// action exactly once.
	if prev == StateDcsPassthrough && tr.next != StateDcsPassthrough && p.dcsActive {
		sink.DcsUnhook()
		p.dcsActive = false
	}
	if prev == StateOscString && tr.next != StateOscString && tr.act != actOscEnd {
		p.dispatchOsc(sink)
	}
	if prev == StateSosPmApcString && tr.next != StateSosPmApcString && tr.act != actApcEnd && p.apcActive {
		sink.ApcEnd()
		p.apcActive = false
	}

	switch tr.act {
	case actNone, actIgnore:
	case actPrint:
		sink.Print(rune(b))
	case actExecute:
		sink.Execute(b)
	case actClear:
		p.clear()
		p.oscData = p.oscData[:0]
	case actCollect:
		if p.nintermediates < MaxIntermediates {
			p.intermediates[p.nintermediates] = b
			p.nintermediates++
		}
	case actParam:
		p.paramByte(b)
	case actEscDispatch:
		sink.EscDispatch(p.intermediates[:p.nintermediates], b)
	case actCsiDispatch:
		if p.paramStarted {
			p.finalizeParam()
		}
		sink.CsiDispatch(p.params[:p.nparams], p.intermediates[:p.nintermediates], b)
	case actDcsHook:
		if p.paramStarted {
			p.finalizeParam()
		}
		sink.DcsHook(p.params[:p.nparams], p.intermediates[:p.nintermediates], b)
		p.dcsActive = true
	case actDcsPut:
		sink.DcsPut(b)
	case actOscStart:
		p.oscData = p.oscData[:0]
	case actOscPut:
		if len(p.oscData) < MaxOscData {
			p.oscData = append(p.oscData, b)
		}
	case actOscEnd:
		p.dispatchOsc(sink)
	case actApcStart:
		sink.ApcStart()
		p.apcActive = true
	case actApcPut:
		if p.apcActive {
			sink.ApcPut(b)
		}
	case actApcEnd:
		if p.apcActive {
			sink.ApcEnd()
			p.apcActive = false
		}
	}

	p.state = tr.next
}

func (p *Parser) clear() {
	p.nparams = 0
	p.nintermediates = 0
	p.currentParam = 0
	p.paramStarted = false
	p.subparamMask = 0
	p.lastWasColon = false
}

func (p *Parser) paramByte(b byte) {
	switch {
	case b >= '0' && b <= '9':
		// Saturating accumulation: once past the u16 range further digits
		// cannot change the clamped result.
		if p.currentParam <= 0xFFFF {
			p.currentParam = p.currentParam*10 + uint32(b-'0')
		}
		p.paramStarted = true
	case b == ';':
		p.finalizeParam()
		p.lastWasColon = false
	case b == ':':
		p.finalizeParam()
		p.lastWasColon = true
	}
}

func (p *Parser) finalizeParam() {
	if p.nparams < MaxParams {
		v := p.currentParam
		if v > 0xFFFF {
			v = 0xFFFF
		}
		if p.lastWasColon {
			p.subparamMask |= 1 << uint(p.nparams)
		}
		p.params[p.nparams] = uint16(v)
		p.nparams++
	}
	p.currentParam = 0
	p.paramStarted = false
}

func (p *Parser) dispatchOsc(sink ActionSink) {
	n := 0
	start := 0
	for i, b := range p.oscData {
		if b == ';' && n < MaxOscParams {
			p.oscParams[n] = p.oscData[start:i]
			n++
			start = i + 1
		}
	}
	if n < MaxOscParams {
		p.oscParams[n] = p.oscData[start:]
		n++
	}
	sink.OscDispatch(p.oscParams[:n])
	p.oscData = p.oscData[:0]
}

// consistent reports whether the parser's internal bounds hold. It backs the
// fuzz oracle; a false return is a parser bug, not an input error.
func (p *Parser) consistent() bool {
	return p.state.Valid() &&
		p.nparams <= MaxParams &&
		p.nintermediates <= MaxIntermediates &&
		len(p.oscData) <= MaxOscData &&
		p.utf8Len <= 4 &&
		p.utf8Expected <= 4 &&
		p.utf8Len <= p.utf8Expected &&
		!(p.dcsActive && p.apcActive)
}
