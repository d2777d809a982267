package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/campusxchange/swapkr/internal/domain"
	"github.com/campusxchange/swapkr/internal/infrastructure/smtp"
	"github.com/campusxchange/swapkr/internal/infrastructure/sns"
	"github.com/campusxchange/swapkr/internal/pkg/background"
	"github.com/campusxchange/swapkr/internal/pkg/logger"
	"go.uber.org/zap"
)

const (
	codeMin = 100000
	codeMax = 999999
)

// CodeStore persists one code per email. Put overwrites; Consume succeeds at
// most once per issued code.
type CodeStore interface {
	Put(ctx context.Context, c *domain.OneTimeCode) error
	Consume(ctx context.Context, email, code string, now time.Time) error
}

type Deps struct {
	Store       CodeStore
	Mailer      smtp.Mailer
	SMS         sns.SMSSender // nil disables the SMS channel
	TTL         time.Duration
	SendTimeout time.Duration
	Logger      *zap.Logger
}

// Issuer creates, delivers and verifies registration codes.
type Issuer struct {
	store       CodeStore
	mailer      smtp.Mailer
	sms         sns.SMSSender
	ttl         time.Duration
	sendTimeout time.Duration
	log         *zap.Logger
	now         func() time.Time
	jobs        background.Group
}

func NewIssuer(d Deps) *Issuer {
	ttl := d.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	timeout := d.SendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Issuer{
		store:       d.Store,
		mailer:      d.Mailer,
		sms:         d.SMS,
		ttl:         ttl,
		sendTimeout: timeout,
		log:         logger.OrNop(d.Logger),
		now:         time.Now,
	}
}

// Issue stores a fresh code for email, replacing any earlier one, and starts
// delivering it in the background. Only a store failure is returned;
// delivery problems are logged so registration keeps working without a mail
// transport.
func (i *Issuer) Issue(ctx context.Context, email string, phone *string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	code, err := generateCode()
	if err != nil {
		return "", err
	}
	now := i.now()
	c := &domain.OneTimeCode{
		Email:     email,
		Code:      code,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(i.ttl).Unix(),
	}
	if err := i.store.Put(ctx, c); err != nil {
		return "", fmt.Errorf("store code: %w", err)
	}

	// Operators can hand the code over manually when delivery is down.
	i.log.Info("one-time code issued", zap.String("email", email), zap.String("code", code))

	var to string
	if phone != nil {
		to = *phone
	}
	i.jobs.Go(ctx, func(ctx context.Context) {
		i.deliverMail(ctx, email, code)
		if to != "" {
			i.deliverSMS(ctx, to, code)
		}
	})
	return code, nil
}

// Wait blocks until every pending delivery has finished or ctx is done.
func (i *Issuer) Wait(ctx context.Context) error {
	return i.jobs.Wait(ctx)
}

// Verify consumes the code issued to email if submitted matches it and it
// has neither expired nor been used.
func (i *Issuer) Verify(ctx context.Context, email, submitted string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	submitted = strings.TrimSpace(submitted)
	if email == "" || submitted == "" {
		return fmt.Errorf("invalid or expired code: %w", domain.ErrUnauthorized)
	}
	return i.store.Consume(ctx, email, submitted, i.now())
}

func (i *Issuer) deliverMail(ctx context.Context, email, code string) {
	if i.mailer == nil || !i.mailer.Configured() {
		i.log.Warn("mail transport unavailable, code not emailed", zap.String("email", email))
		return
	}
	sendCtx, cancel := context.WithTimeout(ctx, i.sendTimeout)
	defer cancel()
	if err := i.mailer.SendEmail(sendCtx, email, "Your Swapkr verification code", codeBody(code, i.ttl)); err != nil {
		i.log.Error("code email failed", zap.String("email", email), zap.Error(err))
	}
}

func (i *Issuer) deliverSMS(ctx context.Context, phone, code string) {
	if i.sms == nil {
		return
	}
	sendCtx, cancel := context.WithTimeout(ctx, i.sendTimeout)
	defer cancel()
	if err := i.sms.SendSMS(sendCtx, phone, "Your Swapkr code: "+code); err != nil {
		i.log.Error("code sms failed", zap.String("phone", phone), zap.Error(err))
	}
}

func codeBody(code string, ttl time.Duration) string {
	return fmt.Sprintf("Your verification code is %s.\n\nIt expires in %d minutes. If you did not sign up for Swapkr, ignore this email.\n",
		code, int(ttl.Minutes()))
}

// generateCode returns a uniformly random six digit code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+codeMin), nil
}
