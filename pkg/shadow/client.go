package shadow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/nrf91.go/pkg/mqtt"
)

// DefaultTimeout is the time to wait for accepted/rejected.
const DefaultTimeout = 10 * time.Second

// ErrClosed indicates the client is closed while waiting for a reply.
var ErrClosed = errors.New("shadow client closed")

// DeltaHandler receives desired state changes.
type DeltaHandler func(*Delta)

type reply struct {
	doc *Document
	err error
}

// Client synchronizes a thing's shadow document over a Queue.
type Client struct {
	Queue   *mqtt.Queue
	Topics  Topics
	Timeout time.Duration

	lock          sync.Mutex
	seq           uint64
	pending       map[string]chan reply
	deltaHandlers []DeltaHandler
	last          *Document
	subs          []*mqtt.Subscription
}

// NewClient creates a Client and subscribes the response topics.
// Subscriptions take effect when the queue connects.
func NewClient(q *mqtt.Queue, thing string) *Client {
	c := &Client{
		Queue:   q,
		Topics:  Topics{Thing: thing},
		Timeout: DefaultTimeout,
		pending: make(map[string]chan reply),
	}
	c.subs = []*mqtt.Subscription{
		q.Sub(c.Topics.GetAccepted(), c.handleAccepted),
		q.Sub(c.Topics.GetRejected(), c.handleRejected),
		q.Sub(c.Topics.UpdateAccepted(), c.handleAccepted),
		q.Sub(c.Topics.UpdateRejected(), c.handleRejected),
		q.Sub(c.Topics.UpdateDelta(), c.handleDelta),
	}
	return c
}

// OnDelta adds a delta handler.
func (c *Client) OnDelta(h DeltaHandler) {
	c.lock.Lock()
	c.deltaHandlers = append(c.deltaHandlers, h)
	c.lock.Unlock()
}

// Last returns the last accepted document, nil if none.
func (c *Client) Last() *Document {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.last
}

// Get requests the full document.
func (c *Client) Get(ctx context.Context) (*Document, error) {
	token := c.nextToken()
	payload, err := json.Marshal(&Request{ClientToken: token})
	if err != nil {
		return nil, err
	}
	return c.request(ctx, c.Topics.Get(), token, payload)
}

// Report publishes the reported state and waits for the update result.
func (c *Client) Report(ctx context.Context, reported interface{}) (*Document, error) {
	token := c.nextToken()
	payload, err := ReportRequest(reported, token)
	if err != nil {
		return nil, err
	}
	return c.request(ctx, c.Topics.Update(), token, payload)
}

// Run implements Runnable.
func (c *Client) Run(ctx context.Context) error {
	defer c.Close()
	return c.Queue.Run(ctx)
}

// Close unsubscribes and fails pending requests.
func (c *Client) Close() error {
	c.lock.Lock()
	subs, pending := c.subs, c.pending
	c.subs, c.pending = nil, make(map[string]chan reply)
	c.lock.Unlock()
	for _, ch := range pending {
		ch <- reply{err: ErrClosed}
	}
	var errs []error
	for _, sub := range subs {
		if err := sub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Client) nextToken() string {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.seq++
	return fmt.Sprintf("%s-%d", c.Topics.Thing, c.seq)
}

func (c *Client) request(ctx context.Context, topic, token string, payload []byte) (*Document, error) {
	ch := make(chan reply, 1)
	c.lock.Lock()
	c.pending[token] = ch
	c.lock.Unlock()
	defer func() {
		c.lock.Lock()
		delete(c.pending, token)
		c.lock.Unlock()
	}()

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	if err := c.Queue.PubAndWait(ctx, topic, payload); err != nil {
		return nil, err
	}
	select {
	case r := <-ch:
		return r.doc, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) complete(token string, r reply) bool {
	c.lock.Lock()
	ch := c.pending[token]
	delete(c.pending, token)
	if r.doc != nil && r.err == nil {
		c.last = r.doc
	}
	c.lock.Unlock()
	if ch == nil {
		return false
	}
	ch <- r
	return true
}

func (c *Client) handleAccepted(topic string, payload []byte) {
	var doc Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		glog.Warningf("%s: invalid document: %v", topic, err)
		return
	}
	if !c.complete(doc.ClientToken, reply{doc: &doc}) {
		glog.V(2).Infof("%s: version %d", topic, doc.Version)
	}
}

func (c *Client) handleRejected(topic string, payload []byte) {
	rerr := &RejectedError{}
	if err := json.Unmarshal(payload, rerr); err != nil {
		glog.Warningf("%s: invalid error: %v", topic, err)
		return
	}
	if !c.complete(rerr.ClientToken, reply{err: rerr}) {
		glog.Warningf("%s: %v", topic, rerr)
	}
}

func (c *Client) handleDelta(topic string, payload []byte) {
	delta := &Delta{}
	if err := json.Unmarshal(payload, delta); err != nil {
		glog.Warningf("%s: invalid delta: %v", topic, err)
		return
	}
	glog.V(2).Infof("delta version %d: %s", delta.Version, delta.State)
	c.lock.Lock()
	handlers := append([]DeltaHandler(nil), c.deltaHandlers...)
	c.lock.Unlock()
	for _, h := range handlers {
		h(delta)
	}
}
