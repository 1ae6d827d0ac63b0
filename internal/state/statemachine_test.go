package state

import "testing"

func TestNextStateLegalPath(t *testing.T) {
	steps := []struct {
		cur, evt, want string
	}{
		{StateActive, EvtGameEnd, StateDrawing},
		{StateDrawing, EvtDrawSealed, StateSealed},
		{StateSealed, EvtSealReveal, StateFinished},
	}
	for _, s := range steps {
		got, err := NextState(s.cur, s.evt)
		if err != nil {
			t.Fatalf("%s --%s-->: %v", s.cur, s.evt, err)
		}
		if got != s.want {
			t.Fatalf("%s --%s--> %s, want %s", s.cur, s.evt, got, s.want)
		}
	}
}

func TestNextStateDirectSettle(t *testing.T) {
	got, err := NextState(StateDrawing, EvtDrawSettled)
	if err != nil || got != StateFinished {
		t.Fatalf("drawing --draw_settled--> %s (%v), want finished", got, err)
	}
}

func TestNextStatePauseResume(t *testing.T) {
	got, err := NextState(StateActive, EvtPause)
	if err != nil || got != StateWaiting {
		t.Fatalf("active --pause--> %s (%v), want waiting", got, err)
	}
	got, err = NextState(StateWaiting, EvtResume)
	if err != nil || got != StateActive {
		t.Fatalf("waiting --resume--> %s (%v), want active", got, err)
	}
}

// 已结束/已封存的局不允许任何回退或重复推进
func TestNextStateIllegal(t *testing.T) {
	cases := []struct{ cur, evt string }{
		{StateFinished, EvtGameEnd},
		{StateFinished, EvtSealReveal},
		{StateSealed, EvtDrawSealed},
		{StateSealed, EvtPause},
		{StateDrawing, EvtGameEnd},
		{StateDrawing, EvtPause},
		{StateWaiting, EvtGameEnd},
		{StateActive, EvtSealReveal},
	}
	for _, c := range cases {
		if _, err := NextState(c.cur, c.evt); err == nil {
			t.Fatalf("expected error for %s --%s-->", c.cur, c.evt)
		}
	}
}
