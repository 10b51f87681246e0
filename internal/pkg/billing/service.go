package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/fxpiphub/signalhub/app/models"
	"github.com/fxpiphub/signalhub/internal/pkg/env"
	"github.com/fxpiphub/signalhub/internal/pkg/mail"
	"github.com/fxpiphub/signalhub/internal/pkg/promostack"
)

// AccessProvisioner grants and revokes Telegram channel access. Both calls
// absorb provider-side failures: billing state must be recorded even when the
// access system is unreachable, so failures never enter the pipeline's
// control flow.
type AccessProvisioner interface {
	GrantAccess(ctx context.Context, email, planType string, amountPaid float64, metadata map[string]string) string
	RevokeAccess(ctx context.Context, email, reason string) bool
}

// Mailer sends the onboarding and cancellation emails. Unlike provisioning,
// send failures propagate so the event is retried by the provider.
type Mailer interface {
	SendWelcome(ctx context.Context, email, inviteLink string) error
	SendCancellation(ctx context.Context, email string) error
}

// Service is the webhook reconciliation pipeline: it durably records each
// verified event, dispatches it to exactly one handler, and drives the
// subscriber/subscription tables plus the provisioning and email side
// effects to eventually consistent state.
type Service struct {
	repo           Repository
	provider       ProviderAPI
	access         AccessProvisioner
	mailer         Mailer
	fallbackInvite string
}

func NewService(repo Repository, provider ProviderAPI, access AccessProvisioner, mailer Mailer, fallbackInvite string) *Service {
	return &Service{
		repo:           repo,
		provider:       provider,
		access:         access,
		mailer:         mailer,
		fallbackInvite: fallbackInvite,
	}
}

// NewServiceFromDB wires the production collaborators from the environment.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(
		NewRepository(db),
		NewStripeAdapterFromEnv(),
		promostack.NewClientFromEnv(),
		mail.NewBrevoMailerFromEnv(),
		env.GetEnv("TELEGRAM_FALLBACK_INVITE_URL", ""),
	)
}

// ProcessEvent runs one verified event through the pipeline. The event is
// logged before dispatch regardless of the outcome; a returned error means
// the event row holds the failure message and the HTTP layer must answer
// non-2xx so Stripe redelivers.
func (s *Service) ProcessEvent(ctx context.Context, ev *Event) error {
	eventID := ev.ID
	if eventID == "" {
		sum := sha256.Sum256(ev.RawPayload)
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	created, stored, err := s.repo.CreateWebhookEventIfNotExists(&models.WebhookEvent{
		EventType:       string(ev.Kind),
		ProviderEventID: eventID,
		PayloadJSON:     string(ev.RawPayload),
	})
	if err != nil {
		return fmt.Errorf("record webhook event: %w", err)
	}
	if !created && stored.Processed {
		// Redelivery of a fully processed event is acknowledged without
		// re-dispatch. A previously failed id falls through and is retried.
		log.Printf("[billing] duplicate webhook event %s (%s), skipping", eventID, ev.Kind)
		return nil
	}

	dispatchErr := s.dispatch(ctx, ev)
	errMsg := ""
	if dispatchErr != nil {
		errMsg = dispatchErr.Error()
	}
	if markErr := s.repo.MarkWebhookProcessed(stored.ID, errMsg); markErr != nil {
		log.Printf("[billing] failed to mark webhook event %d: %v", stored.ID, markErr)
	}
	return dispatchErr
}

func (s *Service) dispatch(ctx context.Context, ev *Event) error {
	switch ev.Kind {
	case EventCheckoutCompleted:
		return s.handleCheckoutCompleted(ctx, ev.Checkout)
	case EventSubscriptionCreated:
		return s.handleSubscriptionCreated(ctx, ev.Subscription)
	case EventSubscriptionUpdated:
		return s.handleSubscriptionUpdated(ctx, ev.Subscription)
	case EventSubscriptionDeleted:
		return s.handleSubscriptionDeleted(ctx, ev.Subscription)
	case EventPaymentFailed:
		return s.handlePaymentFailed(ctx, ev.Invoice)
	case EventPaymentSucceeded:
		return s.handlePaymentSucceeded(ctx, ev.Invoice)
	default:
		// Forward compatibility with provider-added event types.
		log.Printf("[billing] ignoring unhandled webhook event type %q", ev.Kind)
		return nil
	}
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, session *CheckoutSession) error {
	if session == nil {
		return errors.New("checkout event carries no session payload")
	}
	email := session.Email()
	if err := validator.New().Var(email, "required,email"); err != nil {
		// Nothing to correlate on; retrying cannot change that.
		log.Printf("[billing] checkout session %s has no usable customer email, skipping", session.ID)
		return nil
	}

	subscriber, err := s.repo.GetSubscriberByEmail(email)
	switch {
	case err == nil:
		if session.Subscription != "" && subscriber.StripeSubscriptionID != session.Subscription {
			// A different subscription id means a new subscription lifetime:
			// re-open the welcome gate so the returning customer gets a fresh
			// invite and welcome email.
			subscriber.WelcomeEmailSent = false
		}
		if session.Customer != "" {
			subscriber.StripeCustomerID = session.Customer
		}
		if session.Subscription != "" {
			subscriber.StripeSubscriptionID = session.Subscription
		}
		if err := s.repo.SaveSubscriber(subscriber); err != nil {
			return fmt.Errorf("update subscriber %s: %w", email, err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		subscriber = &models.Subscriber{
			Email:                email,
			StripeCustomerID:     session.Customer,
			StripeSubscriptionID: session.Subscription,
		}
		if err := s.repo.CreateSubscriber(subscriber); err != nil {
			return fmt.Errorf("create subscriber %s: %w", email, err)
		}
	default:
		return fmt.Errorf("look up subscriber %s: %w", email, err)
	}

	planType, amount := s.resolvePlan(ctx, session.Subscription, session.AmountTotal)
	if amount == 0 {
		log.Printf("[billing] checkout %s resolved to a zero amount, check the price configuration", session.ID)
	}

	if session.Subscription != "" {
		record, err := s.repo.GetSubscriptionBySubscriptionID(session.Subscription)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("look up subscription %s: %w", session.Subscription, err)
			}
			record = &models.SignalSubscription{StripeSubscriptionID: session.Subscription}
		}
		// The created event may land before or after this one; keep whatever
		// period bounds it already wrote.
		record.SubscriberID = subscriber.ID
		record.Status = models.SubscriptionStatusActive
		record.PlanType = planType
		record.AmountPaid = amount
		if err := s.repo.UpsertSubscription(record); err != nil {
			return fmt.Errorf("upsert subscription %s: %w", session.Subscription, err)
		}
	}

	if subscriber.WelcomeEmailSent {
		// Redelivery guard: onboarding already ran for this lifetime.
		return nil
	}

	// Checkout metadata (campaign, affiliate tags set by the storefront) rides
	// along so PromoStack can attribute the membership.
	if link := s.access.GrantAccess(ctx, email, planType, amount, session.Metadata); link != "" {
		subscriber.InviteLink = link
	}
	if subscriber.InviteLink == "" {
		subscriber.InviteLink = s.fallbackInvite
	}
	if err := s.repo.SaveSubscriber(subscriber); err != nil {
		return fmt.Errorf("persist invite link for %s: %w", email, err)
	}

	if err := s.mailer.SendWelcome(ctx, email, subscriber.InviteLink); err != nil {
		// Gate stays open so the provider's redelivery retries the email.
		return fmt.Errorf("send welcome email to %s: %w", email, err)
	}

	subscriber.WelcomeEmailSent = true
	if err := s.repo.SaveSubscriber(subscriber); err != nil {
		return fmt.Errorf("close welcome gate for %s: %w", email, err)
	}
	return nil
}

func (s *Service) handleSubscriptionCreated(ctx context.Context, sub *SubscriptionState) error {
	if sub == nil {
		return errors.New("subscription event carries no payload")
	}

	subscriber, err := s.repo.GetSubscriberByCustomerID(sub.Customer)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// This event can race ahead of checkout.session.completed; the
			// checkout handler owns subscriber creation, so drop it here.
			log.Printf("[billing] subscription %s created for unknown customer %s, dropping", sub.ID, sub.Customer)
			return nil
		}
		return fmt.Errorf("look up customer %s: %w", sub.Customer, err)
	}

	record := &models.SignalSubscription{
		SubscriberID:         subscriber.ID,
		StripeSubscriptionID: sub.ID,
		Status:               normalizeStatus(sub.Status),
		CurrentPeriodStart:   unixToTime(sub.CurrentPeriodStart),
		CurrentPeriodEnd:     unixToTime(sub.CurrentPeriodEnd),
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
	}
	if len(sub.Items.Data) > 0 {
		price := sub.Items.Data[0].Price
		record.PlanType = PlanLabel(price.Recurring.Interval, price.Recurring.IntervalCount)
		record.AmountPaid = AmountFromCents(price.UnitAmount)
	}
	if err := s.repo.UpsertSubscription(record); err != nil {
		return fmt.Errorf("upsert subscription %s: %w", sub.ID, err)
	}
	return nil
}

func (s *Service) handleSubscriptionUpdated(ctx context.Context, sub *SubscriptionState) error {
	if sub == nil {
		return errors.New("subscription event carries no payload")
	}
	status := normalizeStatus(sub.Status)

	record, err := s.repo.GetSubscriptionBySubscriptionID(sub.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("look up subscription %s: %w", sub.ID, err)
		}
		// Update arrived before the created event; fall back to the customer
		// linkage so the upsert still lands.
		subscriber, lookupErr := s.repo.GetSubscriberByCustomerID(sub.Customer)
		if lookupErr != nil {
			log.Printf("[billing] subscription %s updated but no record or customer linkage, dropping", sub.ID)
			return nil
		}
		record = &models.SignalSubscription{
			SubscriberID:         subscriber.ID,
			StripeSubscriptionID: sub.ID,
		}
	}

	record.Status = status
	record.CurrentPeriodStart = unixToTime(sub.CurrentPeriodStart)
	record.CurrentPeriodEnd = unixToTime(sub.CurrentPeriodEnd)
	record.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
	if err := s.repo.UpsertSubscription(record); err != nil {
		return fmt.Errorf("upsert subscription %s: %w", sub.ID, err)
	}

	if status == models.SubscriptionStatusCanceled || status == models.SubscriptionStatusPastDue {
		s.revokeForSubscription(ctx, sub.ID, sub.Customer, "subscription "+status)
	}
	return nil
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, sub *SubscriptionState) error {
	if sub == nil {
		return errors.New("subscription event carries no payload")
	}

	// Row is retained; deletion is a status change only.
	if err := s.repo.UpdateSubscriptionStatus(sub.ID, models.SubscriptionStatusCanceled); err != nil {
		return fmt.Errorf("cancel subscription %s: %w", sub.ID, err)
	}

	subscriber := s.findSubscriber(sub.ID, sub.Customer)
	if subscriber == nil {
		// A billing record with no owning subscriber; there is nothing a
		// provider retry could fix, so log loudly and acknowledge.
		log.Printf("[billing] CRITICAL: subscription %s deleted but no subscriber on record", sub.ID)
		return nil
	}

	s.access.RevokeAccess(ctx, subscriber.Email, "subscription deleted")

	if err := s.mailer.SendCancellation(ctx, subscriber.Email); err != nil {
		return fmt.Errorf("send cancellation email to %s: %w", subscriber.Email, err)
	}
	return nil
}

func (s *Service) handlePaymentFailed(ctx context.Context, invoice *Invoice) error {
	if invoice == nil {
		return errors.New("invoice event carries no payload")
	}
	if invoice.Subscription == "" {
		log.Printf("[billing] payment failed on invoice %s without subscription, skipping", invoice.ID)
		return nil
	}

	if err := s.repo.UpdateSubscriptionStatus(invoice.Subscription, models.SubscriptionStatusPastDue); err != nil {
		return fmt.Errorf("mark subscription %s past_due: %w", invoice.Subscription, err)
	}

	s.revokeForSubscription(ctx, invoice.Subscription, invoice.Customer, "payment failed")
	return nil
}

func (s *Service) handlePaymentSucceeded(ctx context.Context, invoice *Invoice) error {
	if invoice == nil {
		return errors.New("invoice event carries no payload")
	}
	if invoice.Subscription == "" {
		// One-time payment invoice artifacts carry no subscription.
		return nil
	}

	// Recovery path from past_due.
	if err := s.repo.UpdateSubscriptionStatus(invoice.Subscription, models.SubscriptionStatusActive); err != nil {
		return fmt.Errorf("reactivate subscription %s: %w", invoice.Subscription, err)
	}

	planType, amount := s.resolvePlan(ctx, invoice.Subscription, invoice.AmountPaid)
	if record, err := s.repo.GetSubscriptionBySubscriptionID(invoice.Subscription); err == nil {
		record.Status = models.SubscriptionStatusActive
		record.PlanType = planType
		record.AmountPaid = amount
		if err := s.repo.UpsertSubscription(record); err != nil {
			log.Printf("[billing] failed to refresh plan on subscription %s: %v", invoice.Subscription, err)
		}
	}

	subscriber := s.findSubscriber(invoice.Subscription, invoice.Customer)
	if subscriber == nil {
		log.Printf("[billing] payment succeeded for %s but no subscriber on record", invoice.Subscription)
		return nil
	}

	// Re-granting is idempotent on the PromoStack side; this is how a lapsed
	// payer gets the Telegram invite back.
	if link := s.access.GrantAccess(ctx, subscriber.Email, planType, amount, nil); link != "" && link != subscriber.InviteLink {
		subscriber.InviteLink = link
		if err := s.repo.SaveSubscriber(subscriber); err != nil {
			log.Printf("[billing] failed to persist refreshed invite link for %s: %v", subscriber.Email, err)
		}
	}
	return nil
}

// resolvePlan prefers the subscription's canonical unit price over the
// session/invoice total, falling back to the total when the unit amount is
// unavailable (metered pricing) or the lookup fails.
func (s *Service) resolvePlan(ctx context.Context, subscriptionID string, totalCents int64) (string, float64) {
	if subscriptionID != "" {
		info, err := s.provider.GetSubscriptionPlan(ctx, subscriptionID)
		if err != nil {
			log.Printf("[billing] plan lookup for %s failed, falling back to paid total: %v", subscriptionID, err)
		} else if info.UnitAmount > 0 {
			return PlanLabel(info.Interval, info.IntervalCount), AmountFromCents(info.UnitAmount)
		} else {
			return PlanLabel(info.Interval, info.IntervalCount), AmountFromCents(totalCents)
		}
	}
	return PlanLabel("month", 1), AmountFromCents(totalCents)
}

func (s *Service) revokeForSubscription(ctx context.Context, subscriptionID, customerID, reason string) {
	subscriber := s.findSubscriber(subscriptionID, customerID)
	if subscriber == nil {
		log.Printf("[billing] cannot revoke access for subscription %s: no subscriber on record", subscriptionID)
		return
	}
	s.access.RevokeAccess(ctx, subscriber.Email, reason)
}

func (s *Service) findSubscriber(subscriptionID, customerID string) *models.Subscriber {
	if subscriptionID != "" {
		if sub, err := s.repo.GetSubscriberBySubscriptionID(subscriptionID); err == nil {
			return sub
		}
	}
	if customerID != "" {
		if sub, err := s.repo.GetSubscriberByCustomerID(customerID); err == nil {
			return sub
		}
	}
	return nil
}

func unixToTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
