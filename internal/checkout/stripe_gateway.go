package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	pkgstripe "github.com/angelmondragon/eventhub-backend/pkg/stripe"
	"github.com/stripe/stripe-go/v84"
)

type stripeGateway struct {
	api *stripe.Client
}

// NewStripeGateway adapts Stripe hosted checkout to the Gateway interface.
func NewStripeGateway(client *pkgstripe.Client) (Gateway, error) {
	if client.API() == nil {
		return nil, errors.New("stripe client is required")
	}
	return &stripeGateway{api: client.API()}, nil
}

func (g *stripeGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params := &stripe.CheckoutSessionCreateParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		ClientReferenceID:  stripe.String(req.CartID.String()),
	}
	if !req.ExpiresAt.IsZero() {
		params.ExpiresAt = stripe.Int64(req.ExpiresAt.Unix())
	}
	for _, line := range req.Lines {
		product := &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
			Name: stripe.String(line.Name),
		}
		if desc := strings.TrimSpace(line.Description); desc != "" {
			product.Description = stripe.String(desc)
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionCreateLineItemParams{
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency:    stripe.String(req.Currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(line.UnitAmount),
			},
			Quantity: stripe.Int64(line.Quantity),
		})
	}
	params.AddMetadata(metadataCartID, req.CartID.String())
	params.AddMetadata(metadataUserID, req.UserID.String())

	sess, err := g.api.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	return &Session{ID: sess.ID, URL: sess.URL}, nil
}

func (g *stripeGateway) GetSession(ctx context.Context, id string) (*SessionState, error) {
	sess, err := g.api.V1CheckoutSessions.Retrieve(ctx, id, &stripe.CheckoutSessionRetrieveParams{})
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, err
	}
	state := &SessionState{
		ID:            sess.ID,
		Status:        string(sess.Status),
		PaymentStatus: string(sess.PaymentStatus),
		AmountTotal:   sess.AmountTotal,
		Currency:      string(sess.Currency),
		Metadata:      sess.Metadata,
	}
	if sess.PaymentIntent != nil {
		state.PaymentIntentID = sess.PaymentIntent.ID
	}
	return state, nil
}

func (g *stripeGateway) Refund(ctx context.Context, paymentIntentID string) (*Refund, error) {
	r, err := g.api.V1Refunds.Create(ctx, &stripe.RefundCreateParams{
		PaymentIntent: stripe.String(paymentIntentID),
	})
	if err != nil {
		return nil, err
	}
	return &Refund{ID: r.ID, Status: string(r.Status), Amount: r.Amount}, nil
}

func (g *stripeGateway) ExpireSession(ctx context.Context, id string) error {
	_, err := g.api.V1CheckoutSessions.Expire(ctx, id, &stripe.CheckoutSessionExpireParams{})
	return err
}
