// Package pipeline reconciles inbound vendor emails into scored proposals.
//
// Every candidate message ends in exactly one logged outcome: either a stored
// proposal with processed=true, or processed=false with a reason. The log is
// written once per message id and never updated.
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"rfp-relay-go/internal/ai"
	"rfp-relay-go/internal/dedup"
	"rfp-relay-go/internal/mailbox"
	"rfp-relay-go/internal/metrics"
	"rfp-relay-go/internal/models"
	"rfp-relay-go/internal/notify"
)

const notifyTimeout = 10 * time.Second

// Store is the persistence the pipeline needs
type Store interface {
	IsEmailProcessed(ctx context.Context, emailID string) (bool, error)
	FindVendorByEmail(ctx context.Context, email string) (*models.Vendor, error)
	LatestSentRFP(ctx context.Context, vendorID uuid.UUID) (*models.RFP, error)
	UpsertProposal(ctx context.Context, proposal *models.Proposal) error
	LogEmail(ctx context.Context, entry *models.EmailProcessingLog) (bool, error)
}

// Extractor reads proposals with a language model
type Extractor interface {
	ExtractProposal(ctx context.Context, subject, body string, rfp ai.RFPContext) (*ai.StructuredProposal, error)
	ScoreProposal(ctx context.Context, proposal *ai.StructuredProposal, rfp ai.RFPContext) float64
}

// Options tunes a pipeline
type Options struct {
	SubjectMarker string
	Lookback      time.Duration
	Workers       int
	Now           func() time.Time
}

// Pipeline runs inbox reconciliation
type Pipeline struct {
	fetcher   mailbox.Fetcher
	store     Store
	extractor Extractor
	claimer   dedup.Claimer
	notifiers []notify.Notifier
	metrics   *metrics.Metrics
	opts      Options
}

// New creates a pipeline. claimer defaults to an in-process one; m may be nil.
func New(fetcher mailbox.Fetcher, store Store, extractor Extractor, claimer dedup.Claimer, m *metrics.Metrics, opts Options, notifiers ...notify.Notifier) *Pipeline {
	if claimer == nil {
		claimer = dedup.NewMemoryClaimer(dedup.DefaultTTL)
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Lookback <= 0 {
		opts.Lookback = 7 * 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		fetcher:   fetcher,
		store:     store,
		extractor: extractor,
		claimer:   claimer,
		notifiers: notifiers,
		metrics:   m,
		opts:      opts,
	}
}

// Run performs one reconciliation pass. It fails only when candidates cannot
// be acquired; per-message failures are recorded in the report.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{StartedAt: p.opts.Now()}

	raws, err := p.fetcher.FetchCandidates(ctx, mailbox.Criteria{
		Since:         report.StartedAt.Add(-p.opts.Lookback),
		SubjectMarker: p.opts.SubjectMarker,
	})
	if err != nil {
		p.metrics.ObserveRun(0, time.Since(report.StartedAt), err)
		return nil, fmt.Errorf("failed to fetch candidate emails: %w", err)
	}
	report.Fetched = len(raws)
	logrus.Infof("Fetched %d candidate emails", len(raws))

	results := make([]Result, len(raws))
	var g errgroup.Group
	g.SetLimit(p.opts.Workers)
	for i, raw := range raws {
		if ctx.Err() != nil {
			results[i] = Result{Ref: raw.Ref, Outcome: OutcomeCancelled, Reason: ctx.Err().Error()}
			continue
		}
		i, raw := i, raw
		g.Go(func() error {
			results[i] = p.handle(ctx, raw)
			return nil
		})
	}
	g.Wait()

	report.Results = results
	report.FinishedAt = p.opts.Now()
	report.tally()
	for _, res := range results {
		p.metrics.ObserveOutcome(string(res.Outcome))
	}
	p.metrics.ObserveRun(len(raws), time.Since(report.StartedAt), nil)

	logrus.WithFields(logrus.Fields{
		"fetched":    report.Fetched,
		"processed":  report.Processed,
		"failed":     report.Failed,
		"duplicates": report.Duplicates,
		"dropped":    report.Dropped,
		"cancelled":  report.Cancelled,
		"errors":     report.Errors,
	}).Info("Inbox reconciliation completed")

	return report, nil
}

func (p *Pipeline) handle(ctx context.Context, raw mailbox.RawMessage) (res Result) {
	res.Ref = raw.Ref

	msg, err := mailbox.Parse(raw)
	if msg == nil {
		logrus.WithField("ref", raw.Ref).Warnf("Dropping unparseable message: %v", err)
		res.Outcome = OutcomeDropped
		res.Reason = "unparseable message"
		return res
	}
	if err != nil {
		logrus.WithField("ref", raw.Ref).Warnf("Message body partially read: %v", err)
	}
	res.EmailID, res.From, res.Subject = msg.ID, msg.From, msg.Subject

	if msg.ID == "" || msg.From == "" {
		logrus.WithField("ref", raw.Ref).Info("Dropping message without id or sender")
		res.Outcome = OutcomeDropped
		res.Reason = "missing message id or sender"
		return res
	}

	claimed, err := p.claimer.Claim(ctx, msg.ID)
	if err != nil {
		return p.errored(res, err)
	}
	if !claimed {
		res.Outcome = OutcomeDuplicate
		return res
	}
	defer func() {
		if err := p.claimer.Release(context.WithoutCancel(ctx), msg.ID); err != nil {
			logrus.WithField("email_id", msg.ID).Warnf("Failed to release claim: %v", err)
		}
	}()

	processed, err := p.store.IsEmailProcessed(ctx, msg.ID)
	if err != nil {
		return p.errored(res, err)
	}
	if processed {
		logrus.WithField("email_id", msg.ID).Debug("Email already processed, skipping")
		res.Outcome = OutcomeDuplicate
		return res
	}

	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("email_id", msg.ID).Errorf("Panic while processing email: %v\n%s", r, debug.Stack())
			res = p.finish(context.WithoutCancel(ctx), res, msg, false, fmt.Sprintf("panic: %v", r))
		}
	}()

	return p.reconcile(ctx, res, msg)
}

func (p *Pipeline) reconcile(ctx context.Context, res Result, msg *mailbox.Message) Result {
	vendor, err := p.store.FindVendorByEmail(ctx, msg.From)
	if err != nil {
		return p.fail(ctx, res, msg, err)
	}
	if vendor == nil {
		logrus.WithField("from", msg.From).Info("No vendor found for sender")
		return p.finish(ctx, res, msg, false, ReasonVendorNotFound)
	}

	rfp, err := p.store.LatestSentRFP(ctx, vendor.ID)
	if err != nil {
		return p.fail(ctx, res, msg, err)
	}
	if rfp == nil {
		logrus.WithField("vendor", vendor.Name).Info("No RFP sent to vendor")
		return p.finish(ctx, res, msg, false, ReasonNoRFPSent)
	}

	body := msg.Body()
	extracted, err := p.extractor.ExtractProposal(ctx, msg.Subject, body, ai.ExtractionContext(rfp))
	if err != nil {
		return p.fail(ctx, res, msg, err)
	}
	score := p.extractor.ScoreProposal(ctx, extracted, ai.FullContext(rfp))

	receivedAt := msg.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = p.opts.Now()
	}
	proposal := &models.Proposal{
		RFPID:        rfp.ID,
		VendorID:     vendor.ID,
		EmailSubject: msg.Subject,
		EmailBody:    body,
		TotalPrice:   extracted.TotalPrice,
		DeliveryTime: extracted.DeliveryTime,
		PaymentTerms: extracted.PaymentTerms,
		Warranty:     extracted.Warranty,
		ParsedData:   datatypes.NewJSONType(extracted.ParsedData),
		RawEmailData: datatypes.NewJSONType(models.RawEmail{From: msg.From, Subject: msg.Subject, Body: body}),
		AIScore:      score,
		AISummary:    extracted.Summary,
		ReceivedAt:   receivedAt,
	}
	if err := p.store.UpsertProposal(ctx, proposal); err != nil {
		return p.fail(ctx, res, msg, err)
	}

	// the proposal is stored; record it even if the run is being cancelled
	res = p.finish(context.WithoutCancel(ctx), res, msg, true, "")
	if res.Outcome == OutcomeProcessed {
		id := proposal.ID
		res.ProposalID = &id
		logrus.WithFields(logrus.Fields{"vendor": vendor.Name, "rfp": rfp.Title, "score": score}).Info("Processed proposal")
		p.notify(ctx, notify.ProposalEvent{
			EmailID:     msg.ID,
			ProposalID:  proposal.ID,
			RFPID:       rfp.ID,
			RFPTitle:    rfp.Title,
			VendorID:    vendor.ID,
			VendorName:  vendor.Name,
			VendorEmail: vendor.Email,
			TotalPrice:  proposal.TotalPrice,
			Score:       score,
			Summary:     proposal.AISummary,
			ReceivedAt:  receivedAt,
		})
	}
	return res
}

// fail logs a processing error, unless the run was cancelled
func (p *Pipeline) fail(ctx context.Context, res Result, msg *mailbox.Message, err error) Result {
	if ctx.Err() != nil {
		res.Outcome = OutcomeCancelled
		res.Reason = err.Error()
		return res
	}
	logrus.WithField("email_id", msg.ID).Errorf("Error processing email: %v", err)
	return p.finish(ctx, res, msg, false, err.Error())
}

// finish writes the single log row for msg
func (p *Pipeline) finish(ctx context.Context, res Result, msg *mailbox.Message, processed bool, reason string) Result {
	inserted, err := p.store.LogEmail(ctx, &models.EmailProcessingLog{
		EmailID:   msg.ID,
		Subject:   msg.Subject,
		FromEmail: msg.From,
		Processed: processed,
		Error:     reason,
	})
	if err != nil {
		return p.errored(res, err)
	}
	if !inserted {
		res.Outcome = OutcomeDuplicate
		return res
	}

	res.Reason = reason
	if processed {
		res.Outcome = OutcomeProcessed
	} else {
		res.Outcome = OutcomeFailed
	}
	logrus.WithFields(logrus.Fields{
		"email_id": msg.ID,
		"from":     msg.From,
		"outcome":  res.Outcome,
		"reason":   reason,
	}).Info("Inbound message handled")
	return res
}

func (p *Pipeline) errored(res Result, err error) Result {
	logrus.WithField("email_id", res.EmailID).Errorf("Failed to record email outcome: %v", err)
	res.Outcome = OutcomeError
	res.Reason = err.Error()
	return res
}

func (p *Pipeline) notify(ctx context.Context, event notify.ProposalEvent) {
	for _, n := range p.notifiers {
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		err := n.ProposalReceived(nctx, event)
		cancel()
		p.metrics.ObserveNotification(n.Name(), err)
		if err != nil {
			logrus.WithField("channel", n.Name()).Warnf("Failed to send proposal notification: %v", err)
		}
	}
}
