package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"sommelier-backend/models"
	"sommelier-backend/repository"

	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"
)

// BillingStore is the slice of the user repository the billing service needs
type BillingStore interface {
	UpdateMembershipByCustomer(ctx context.Context, customerID string, membership models.Membership) error
	LinkStripeCustomer(ctx context.Context, email, customerID string) error
}

var ErrWebhookSignature = errors.New("webhook signature verification failed")

// BillingService drives the subscription flow: checkout sessions out,
// webhook events in. Membership flips on invoice events, not on checkout
// completion, so the tier only changes once payment has settled.
type BillingService struct {
	store         BillingStore
	webhookSecret string
	priceID       string
	appURL        string
}

// BillingServiceOption is a functional option for BillingService
type BillingServiceOption func(*BillingService)

// BillingWithStore sets the user store
func BillingWithStore(store BillingStore) BillingServiceOption {
	return func(s *BillingService) {
		s.store = store
	}
}

// BillingWithStripeKey sets the Stripe API key
func BillingWithStripeKey(key string) BillingServiceOption {
	return func(s *BillingService) {
		stripe.Key = key
	}
}

// BillingWithWebhookSecret sets the webhook signing secret
func BillingWithWebhookSecret(secret string) BillingServiceOption {
	return func(s *BillingService) {
		s.webhookSecret = secret
	}
}

// BillingWithPriceID sets the subscription price
func BillingWithPriceID(priceID string) BillingServiceOption {
	return func(s *BillingService) {
		s.priceID = priceID
	}
}

// BillingWithAppURL sets the base URL for checkout redirects
func BillingWithAppURL(appURL string) BillingServiceOption {
	return func(s *BillingService) {
		s.appURL = appURL
	}
}

// NewBillingService creates a new billing service
func NewBillingService(opts ...BillingServiceOption) *BillingService {
	s := &BillingService{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateCheckoutSession starts a subscription checkout for the given user
// and returns the hosted payment page URL
func (s *BillingService) CreateCheckoutSession(ctx context.Context, email string) (string, error) {
	if s.priceID == "" {
		return "", errors.New("subscription price not configured")
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		CustomerEmail:      stripe.String(email),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(s.priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.appURL + "/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(s.appURL + "/plan"),
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	return sess.URL, nil
}

// HandleWebhook verifies and processes a billing event delivered to the
// webhook endpoint. Unrecognized event types are acknowledged and ignored.
func (s *BillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	// Stripe sends events at the account's API version, which can trail the
	// SDK's pinned version
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWebhookSignature, err)
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		// Link the customer to the account; membership waits for invoice.paid
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return fmt.Errorf("failed to decode checkout session: %w", err)
		}

		email := sess.CustomerEmail
		if email == "" && sess.CustomerDetails != nil {
			email = sess.CustomerDetails.Email
		}
		if email == "" || sess.Customer == nil {
			log.Printf("Warning: checkout.session.completed without customer linkage (event %s)", event.ID)
			return nil
		}

		if err := s.store.LinkStripeCustomer(ctx, email, sess.Customer.ID); err != nil {
			return fmt.Errorf("failed to link customer %s: %w", sess.Customer.ID, err)
		}

	case stripe.EventTypeInvoicePaid:
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return fmt.Errorf("failed to decode invoice: %w", err)
		}
		if invoice.Customer == nil {
			return nil
		}

		err := s.store.UpdateMembershipByCustomer(ctx, invoice.Customer.ID, models.MembershipPremium)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				log.Printf("Warning: invoice.paid for unknown customer %s", invoice.Customer.ID)
				return nil
			}
			return fmt.Errorf("failed to upgrade customer %s: %w", invoice.Customer.ID, err)
		}
		log.Printf("Customer %s is now premium", invoice.Customer.ID)

	case stripe.EventTypeInvoicePaymentFailed:
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return fmt.Errorf("failed to decode invoice: %w", err)
		}
		if invoice.Customer == nil {
			return nil
		}

		err := s.store.UpdateMembershipByCustomer(ctx, invoice.Customer.ID, models.MembershipBasic)
		if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
			return fmt.Errorf("failed to downgrade customer %s: %w", invoice.Customer.ID, err)
		}

	default:
		log.Printf("Unhandled event type: %s", event.Type)
	}

	return nil
}
