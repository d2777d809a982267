package broadcast

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/campusxchange/swapkr/internal/domain"
	"github.com/campusxchange/swapkr/internal/infrastructure/smtp"
	"github.com/campusxchange/swapkr/internal/pkg/background"
	"github.com/campusxchange/swapkr/internal/pkg/id"
	"github.com/campusxchange/swapkr/internal/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Inbox stores in-app copies of a broadcast.
type Inbox interface {
	Put(ctx context.Context, n *domain.Notification) error
}

// Details is the content of an urgent request broadcast.
type Details struct {
	RequestID   string
	Title       string
	Description string
}

// Delivery is the outcome of one email send.
type Delivery struct {
	Email string
	Err   error
}

// Report summarises one Notify call.
type Report struct {
	Skipped    bool // mail transport unavailable, nothing sent
	Deliveries []Delivery
}

func (r Report) Sent() int {
	n := 0
	for _, d := range r.Deliveries {
		if d.Err == nil {
			n++
		}
	}
	return n
}

func (r Report) Failed() int { return len(r.Deliveries) - r.Sent() }

type Deps struct {
	Mailer      smtp.Mailer
	Inbox       Inbox // optional
	FrontendURL string
	SendTimeout time.Duration
	Concurrency int
	Logger      *zap.Logger
}

type Notifier struct {
	mailer      smtp.Mailer
	inbox       Inbox
	frontendURL string
	sendTimeout time.Duration
	concurrency int
	log         *zap.Logger
	now         func() time.Time
	jobs        background.Group
}

func NewNotifier(d Deps) *Notifier {
	n := &Notifier{
		mailer:      d.Mailer,
		inbox:       d.Inbox,
		frontendURL: strings.TrimRight(d.FrontendURL, "/"),
		sendTimeout: d.SendTimeout,
		concurrency: d.Concurrency,
		log:         logger.OrNop(d.Logger),
		now:         time.Now,
	}
	if n.sendTimeout <= 0 {
		n.sendTimeout = 10 * time.Second
	}
	if n.concurrency <= 0 {
		n.concurrency = 16
	}
	return n
}

// Dispatch starts Notify in the background and returns at once. The batch
// is detached from ctx's cancellation; Wait drains it on shutdown.
func (n *Notifier) Dispatch(ctx context.Context, recipients []domain.Identity, d Details) {
	if len(recipients) == 0 {
		return
	}
	n.jobs.Go(ctx, func(ctx context.Context) {
		n.Notify(ctx, recipients, d)
	})
}

// Wait blocks until every dispatched batch has finished or ctx is done.
func (n *Notifier) Wait(ctx context.Context) error {
	return n.jobs.Wait(ctx)
}

// Notify tells every recipient about an urgent request and returns when all
// of them have been tried. Each recipient gets an inbox entry and, when the
// mail transport is configured, an email; both run under sendTimeout.
// Individual failures are logged and reported, never returned, and never
// stop the other sends. The batch outlives the caller's cancellation.
func (n *Notifier) Notify(ctx context.Context, recipients []domain.Identity, d Details) Report {
	if len(recipients) == 0 {
		return Report{}
	}
	ctx = context.WithoutCancel(ctx)

	mail := n.mailer != nil && n.mailer.Configured()
	if !mail {
		n.log.Warn("mail transport unavailable, broadcast not emailed",
			zap.String("request_id", d.RequestID),
			zap.String("title", d.Title),
			zap.Int("recipients", len(recipients)))
	}

	subject := "Urgent request: " + d.Title
	body := n.body(d)
	createdAt := n.now().UTC()
	deliveries := make([]Delivery, len(recipients))

	var g errgroup.Group
	g.SetLimit(n.concurrency)
	for i, r := range recipients {
		g.Go(func() error {
			n.putInbox(ctx, r, d, createdAt)
			if !mail {
				return nil
			}
			sendCtx, cancel := context.WithTimeout(ctx, n.sendTimeout)
			defer cancel()
			err := n.mailer.SendEmail(sendCtx, r.Email, subject, body)
			if err != nil {
				n.log.Error("broadcast email failed", zap.String("email", r.Email), zap.Error(err))
			}
			deliveries[i] = Delivery{Email: r.Email, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	if !mail {
		return Report{Skipped: true}
	}
	rep := Report{Deliveries: deliveries}
	n.log.Info("broadcast finished",
		zap.String("request_id", d.RequestID),
		zap.String("title", d.Title),
		zap.Int("recipients", len(recipients)),
		zap.Int("sent", rep.Sent()),
		zap.Int("failed", rep.Failed()))
	return rep
}

func (n *Notifier) putInbox(ctx context.Context, r domain.Identity, d Details, createdAt time.Time) {
	if n.inbox == nil || r.ID == "" {
		return
	}
	putCtx, cancel := context.WithTimeout(ctx, n.sendTimeout)
	defer cancel()
	err := n.inbox.Put(putCtx, &domain.Notification{
		NotificationID: id.New(),
		UserID:         r.ID,
		RequestID:      d.RequestID,
		Title:          d.Title,
		Message:        d.Description,
		CreatedAt:      createdAt,
	})
	if err != nil {
		n.log.Warn("inbox write failed", zap.String("user_id", r.ID), zap.Error(err))
	}
}

func (n *Notifier) body(d Details) string {
	var b strings.Builder
	b.WriteString("Someone on campus urgently needs:\n\n")
	b.WriteString(d.Title)
	b.WriteString("\n\n")
	if d.Description != "" {
		b.WriteString(d.Description)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Can you help? Open Swapkr to respond: %s/requests\n", n.frontendURL)
	return b.String()
}
