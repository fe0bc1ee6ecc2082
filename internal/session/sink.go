package session

import (
	"time"

	"termcore/internal/event"
	"termcore/internal/vt"
)

// dispatchSink forwards every action to the caller's sink, counts it, and
// peels off the few the session itself cares about: OSC 0/2 title changes
// and BEL.
type dispatchSink struct {
	inner   vt.ActionSink
	session *Session
}

func (d *dispatchSink) Print(r rune) {
	d.session.registry.IncParserActions()
	d.inner.Print(r)
}

func (d *dispatchSink) Execute(b byte) {
	d.session.registry.IncParserActions()
	if b == 0x07 {
		d.session.publish(event.BellEvent{
			SessionID: d.session.id,
			Timestamp: time.Now().UTC(),
		})
	}
	d.inner.Execute(b)
}

func (d *dispatchSink) CsiDispatch(params []uint16, intermediates []byte, final byte) {
	d.session.registry.IncParserActions()
	d.inner.CsiDispatch(params, intermediates, final)
}

func (d *dispatchSink) EscDispatch(intermediates []byte, final byte) {
	d.session.registry.IncParserActions()
	d.inner.EscDispatch(intermediates, final)
}

func (d *dispatchSink) OscDispatch(params [][]byte) {
	d.session.registry.IncParserActions()
	if len(params) >= 2 && len(params[0]) == 1 && (params[0][0] == '0' || params[0][0] == '2') {
		d.session.publish(event.TitleEvent{
			SessionID: d.session.id,
			Title:     string(params[1]),
			Timestamp: time.Now().UTC(),
		})
	}
	d.inner.OscDispatch(params)
}

func (d *dispatchSink) DcsHook(params []uint16, intermediates []byte, final byte) {
	d.session.registry.IncParserActions()
	d.inner.DcsHook(params, intermediates, final)
}

func (d *dispatchSink) DcsPut(b byte) {
	d.session.registry.IncParserActions()
	d.inner.DcsPut(b)
}

func (d *dispatchSink) DcsUnhook() {
	d.session.registry.IncParserActions()
	d.inner.DcsUnhook()
}

func (d *dispatchSink) ApcStart() {
	d.session.registry.IncParserActions()
	d.inner.ApcStart()
}

func (d *dispatchSink) ApcPut(b byte) {
	d.session.registry.IncParserActions()
	d.inner.ApcPut(b)
}

func (d *dispatchSink) ApcEnd() {
	d.session.registry.IncParserActions()
	d.inner.ApcEnd()
}
