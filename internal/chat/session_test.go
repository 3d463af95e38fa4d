package chat

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
)

type fakeAgent struct {
	reply string
	err   error
	panic bool
	sent  []string
}

func (a *fakeAgent) Send(_ context.Context, message string) (string, error) {
	a.sent = append(a.sent, message)
	if a.panic {
		panic("boom")
	}
	return a.reply, a.err
}

type recordingReporter struct {
	mu       sync.Mutex
	failures []Failure
}

func (r *recordingReporter) ReportFailure(_ context.Context, f Failure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, f)
}

func TestSubmitBlankDraftIsNoop(t *testing.T) {
	for _, draft := range []string{"", " ", "\t\n  "} {
		agent := &fakeAgent{reply: "unused"}
		c := NewController(NewSession(), agent, nil)
		c.UpdateDraft(draft)

		if _, ok := c.Submit(context.Background()); ok {
			t.Fatalf("draft=%q: expected submit to be skipped", draft)
		}
		if c.Session().Len() != 0 {
			t.Fatalf("draft=%q: history mutated: %v", draft, c.Session().History())
		}
		if len(agent.sent) != 0 {
			t.Fatalf("draft=%q: expected no request, got %v", draft, agent.sent)
		}
		if c.Session().Pending() {
			t.Fatalf("draft=%q: pending should stay false", draft)
		}
		if c.Session().Draft() != draft {
			t.Fatalf("draft=%q: draft should be untouched, got %q", draft, c.Session().Draft())
		}
	}
}

func TestSubmitSuccessAppendsUserThenAssistant(t *testing.T) {
	agent := &fakeAgent{reply: "AA100 is over Denver."}
	rep := &recordingReporter{}
	c := NewController(NewSession(), agent, rep)
	c.UpdateDraft("Where is flight AA100?")

	req, ok := c.Begin()
	if !ok {
		t.Fatalf("expected submission to start")
	}
	if !c.Session().Pending() {
		t.Fatalf("expected pending after begin")
	}
	if c.Session().Draft() != "" {
		t.Fatalf("expected draft cleared after begin, got %q", c.Session().Draft())
	}
	want := []Message{{Role: RoleUser, Content: "Where is flight AA100?"}}
	if got := c.Session().History(); !reflect.DeepEqual(got, want) {
		t.Fatalf("history after begin: got=%v want=%v", got, want)
	}

	reply := c.Exchange(context.Background(), req)
	if !c.Session().Pending() {
		t.Fatalf("exchange must not resolve the session")
	}
	if !c.Complete(reply) {
		t.Fatalf("expected reply to resolve the request")
	}

	want = append(want, Message{Role: RoleAssistant, Content: "AA100 is over Denver."})
	if got := c.Session().History(); !reflect.DeepEqual(got, want) {
		t.Fatalf("history after reply: got=%v want=%v", got, want)
	}
	if c.Session().Pending() {
		t.Fatalf("expected pending false after reply")
	}
	if !reflect.DeepEqual(agent.sent, []string{"Where is flight AA100?"}) {
		t.Fatalf("unexpected outbound messages: %v", agent.sent)
	}
	if len(rep.failures) != 0 {
		t.Fatalf("did not expect failures: %v", rep.failures)
	}
}

func TestSubmitSendsOnlyLatestContent(t *testing.T) {
	agent := &fakeAgent{reply: "ok"}
	c := NewController(NewSession(), agent, nil)
	for _, text := range []string{"first", "second"} {
		c.UpdateDraft(text)
		if _, ok := c.Submit(context.Background()); !ok {
			t.Fatalf("expected %q to be sent", text)
		}
	}
	if !reflect.DeepEqual(agent.sent, []string{"first", "second"}) {
		t.Fatalf("each request should carry one message: %v", agent.sent)
	}
	if c.Session().Len() != 4 {
		t.Fatalf("expected 4 history entries, got %d", c.Session().Len())
	}
}

func TestSubmitFailureKeepsOnlyUserEntry(t *testing.T) {
	agent := &fakeAgent{err: errors.New("status 500")}
	rep := &recordingReporter{}
	s := NewSession()
	c := NewController(s, agent, rep)
	c.UpdateDraft("Where is flight AA100?")

	reply, ok := c.Submit(context.Background())
	if !ok {
		t.Fatalf("expected submission to start")
	}
	if reply.Err == nil {
		t.Fatalf("expected reply error")
	}
	want := []Message{{Role: RoleUser, Content: "Where is flight AA100?"}}
	if got := s.History(); !reflect.DeepEqual(got, want) {
		t.Fatalf("history after failure: got=%v want=%v", got, want)
	}
	if s.Pending() {
		t.Fatalf("expected pending false after failure")
	}
	if len(rep.failures) != 1 {
		t.Fatalf("expected one reported failure, got %d", len(rep.failures))
	}
	f := rep.failures[0]
	if f.SessionID != s.ID() || f.Seq != 1 || f.Chars != len("Where is flight AA100?") {
		t.Fatalf("unexpected failure record: %+v", f)
	}

	// The session stays usable.
	agent.err = nil
	agent.reply = "retry ok"
	c.UpdateDraft("again")
	if _, ok := c.Submit(context.Background()); !ok {
		t.Fatalf("expected retry to be accepted")
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 entries after retry, got %d", s.Len())
	}
}

func TestExchangeRecoversAgentPanic(t *testing.T) {
	rep := &recordingReporter{}
	c := NewController(NewSession(), &fakeAgent{panic: true}, rep)
	c.UpdateDraft("hello")

	reply, ok := c.Submit(context.Background())
	if !ok {
		t.Fatalf("expected submission to start")
	}
	if reply.Err == nil {
		t.Fatalf("expected panic to surface as an error")
	}
	if c.Session().Pending() {
		t.Fatalf("pending must be cleared after a panic")
	}
	if c.Session().Len() != 1 {
		t.Fatalf("expected only the user entry, got %d", c.Session().Len())
	}
	if len(rep.failures) != 1 {
		t.Fatalf("expected panic to be reported once, got %d", len(rep.failures))
	}
}

func TestSubmitWhilePendingIsIgnored(t *testing.T) {
	s := NewSession()
	s.UpdateDraft("first")
	req, ok := s.Submit()
	if !ok {
		t.Fatalf("expected first submit to start")
	}

	s.UpdateDraft("second")
	if _, ok := s.Submit(); ok {
		t.Fatalf("expected submit while pending to be ignored")
	}
	if s.Draft() != "second" {
		t.Fatalf("ignored submit must keep the draft, got %q", s.Draft())
	}
	if s.Len() != 1 {
		t.Fatalf("ignored submit must not append, got %d entries", s.Len())
	}

	if !s.Resolve(Reply{Seq: req.Seq, Content: "done"}) {
		t.Fatalf("expected resolve to apply")
	}
	if s.Draft() != "second" {
		t.Fatalf("resolution must not touch the draft, got %q", s.Draft())
	}
}

func TestResolveAppliesExactlyOnce(t *testing.T) {
	s := NewSession()
	s.UpdateDraft("q")
	req, _ := s.Submit()

	if s.Resolve(Reply{Seq: req.Seq + 1, Content: "stale"}) {
		t.Fatalf("reply for another request must be ignored")
	}
	if !s.Pending() {
		t.Fatalf("ignored reply must keep the session pending")
	}
	if !s.Resolve(Reply{Seq: req.Seq, Content: "a"}) {
		t.Fatalf("expected matching reply to apply")
	}
	if s.Resolve(Reply{Seq: req.Seq, Content: "a"}) {
		t.Fatalf("second resolution must be ignored")
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", s.Len())
	}
}

func TestSubmitKeepsUntrimmedContent(t *testing.T) {
	s := NewSession()
	s.UpdateDraft("  padded  ")
	req, ok := s.Submit()
	if !ok {
		t.Fatalf("expected submit")
	}
	if req.Content != "  padded  " {
		t.Fatalf("request content changed: %q", req.Content)
	}
	if got := s.History()[0].Content; got != "  padded  " {
		t.Fatalf("history content changed: %q", got)
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	s := NewSession()
	s.UpdateDraft("x")
	s.Submit()
	h := s.History()
	h[0].Content = "mutated"
	if s.History()[0].Content != "x" {
		t.Fatalf("history must not be mutable through the returned slice")
	}
}

func TestReportersFanOut(t *testing.T) {
	a, b := &recordingReporter{}, &recordingReporter{}
	Reporters{a, nil, b}.ReportFailure(context.Background(), Failure{Seq: 7})
	if len(a.failures) != 1 || len(b.failures) != 1 {
		t.Fatalf("expected both reporters to be called: a=%d b=%d", len(a.failures), len(b.failures))
	}
}
