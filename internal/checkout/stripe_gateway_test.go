package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/eventhub-backend/pkg/config"
	pkgstripe "github.com/angelmondragon/eventhub-backend/pkg/stripe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStripeGatewayUsesClientAPI(t *testing.T) {
	_, err := NewStripeGateway(nil)
	require.Error(t, err)

	client, err := pkgstripe.NewClient(context.Background(), config.StripeConfig{
		APIKey:     "sk_test_1",
		Secret:     "whsec_1",
		Currency:   "USD",
		SessionTTL: time.Hour,
	}, nil)
	require.NoError(t, err)

	gw, err := NewStripeGateway(client)
	require.NoError(t, err)
	sg, ok := gw.(*stripeGateway)
	require.True(t, ok)
	assert.Same(t, client.API(), sg.api)
}
