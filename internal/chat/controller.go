package chat

import (
	"context"
	"fmt"
	"time"
)

// Agent sends one user message to the remote endpoint and returns its reply.
type Agent interface {
	Send(ctx context.Context, message string) (string, error)
}

type Failure struct {
	SessionID string
	Seq       int
	Chars     int
	At        time.Time
	Err       error
}

// FailureReporter is the observability sink for failed sends. Reporters are
// called from the goroutine running the exchange.
type FailureReporter interface {
	ReportFailure(ctx context.Context, f Failure)
}

type Reporters []FailureReporter

func (rs Reporters) ReportFailure(ctx context.Context, f Failure) {
	for _, r := range rs {
		if r != nil {
			r.ReportFailure(ctx, f)
		}
	}
}

type Controller struct {
	session  *Session
	agent    Agent
	reporter FailureReporter
	now      func() time.Time
}

func NewController(session *Session, agent Agent, reporter FailureReporter) *Controller {
	if reporter == nil {
		reporter = Reporters(nil)
	}
	return &Controller{
		session:  session,
		agent:    agent,
		reporter: reporter,
		now:      time.Now,
	}
}

func (c *Controller) Session() *Session { return c.session }

func (c *Controller) UpdateDraft(text string) { c.session.UpdateDraft(text) }

// Begin runs the synchronous half of a submission.
func (c *Controller) Begin() (Request, bool) { return c.session.Submit() }

// Exchange performs the network call for req. It does not touch session
// state, so it may run off the event loop. Failures are reported here.
func (c *Controller) Exchange(ctx context.Context, req Request) (reply Reply) {
	reply.Seq = req.Seq
	defer func() {
		if p := recover(); p != nil {
			reply.Content = ""
			reply.Err = fmt.Errorf("agent panicked: %v", p)
		}
		if reply.Err != nil {
			c.reporter.ReportFailure(ctx, Failure{
				SessionID: c.session.ID(),
				Seq:       req.Seq,
				Chars:     len([]rune(req.Content)),
				At:        c.now(),
				Err:       reply.Err,
			})
		}
	}()

	content, err := c.agent.Send(ctx, req.Content)
	if err != nil {
		reply.Err = err
		return reply
	}
	reply.Content = content
	return reply
}

// Complete applies a reply produced by Exchange.
func (c *Controller) Complete(r Reply) bool { return c.session.Resolve(r) }

// Submit runs a whole submission inline. The bool is false when nothing was
// sent (blank draft or a request already pending).
func (c *Controller) Submit(ctx context.Context) (Reply, bool) {
	req, ok := c.Begin()
	if !ok {
		return Reply{}, false
	}
	reply := c.Exchange(ctx, req)
	c.Complete(reply)
	return reply, true
}
