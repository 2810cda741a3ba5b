package sms

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/automation/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tenantWith(smsru, smsc bool) *models.Tenant {
	tenant := &models.Tenant{ID: "t1"}
	if smsru {
		tenant.SMS.SMSRu = &models.SMSRuConfig{APIKey: "ru-key"}
	}

	if smsc {
		tenant.SMS.SMSC = &models.SMSCConfig{Login: "login", Password: "pass"}
	}

	return tenant
}

func TestSender_Select(t *testing.T) {
	sender := NewSender(slog.Default())

	tests := []struct {
		name     string
		tenant   *models.Tenant
		explicit string
		want     string
		err      error
	}{
		{"smsru before smsc", tenantWith(true, true), "", ProviderSMSRu, nil},
		{"smsc only", tenantWith(false, true), "", ProviderSMSC, nil},
		{"explicit smsc", tenantWith(true, true), ProviderSMSC, ProviderSMSC, nil},
		{"explicit but not configured", tenantWith(true, false), ProviderSMSC, "", ErrNoProvider},
		{"unknown explicit", tenantWith(true, true), "twilio", "", ErrUnknownProvider},
		{"nothing configured", tenantWith(false, false), "", "", ErrNoProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := sender.Select(tt.tenant, tt.explicit)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				assert.False(t, sender.Available(tt.tenant, tt.explicit))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, provider.Name())
		})
	}
}

func TestSender_NoCrossProviderRetry(t *testing.T) {
	var smsruCalls, smscCalls int

	mux := http.NewServeMux()
	mux.HandleFunc("/sms/send", func(w http.ResponseWriter, _ *http.Request) {
		smsruCalls++
		_, _ = w.Write([]byte(`{"status":"ERROR","status_code":200,"status_text":"invalid api_id"}`))
	})
	mux.HandleFunc("/sys/send.php", func(w http.ResponseWriter, _ *http.Request) {
		smscCalls++
		_, _ = w.Write([]byte(`{"id":1,"cnt":1}`))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	sender := NewSender(slog.Default(), WithEndpoints(server.URL, server.URL), WithHTTPClient(server.Client()))

	result, err := sender.Send(context.Background(), tenantWith(true, true), "", "+79120001122", "hi")
	require.Error(t, err)

	var providerErr *ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, ProviderSMSRu, providerErr.Provider)
	assert.Equal(t, "invalid api_id", providerErr.Message)
	assert.Equal(t, ProviderSMSRu, result.Provider)
	assert.Equal(t, 1, smsruCalls)
	assert.Equal(t, 0, smscCalls)
}

func TestProviders_Success(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/sms/send", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ru-key", r.URL.Query().Get("api_id"))
		assert.Equal(t, "+79120001122", r.URL.Query().Get("to"))
		_, _ = w.Write([]byte(`{"status":"OK","sms":{"79120001122":{"status":"OK","sms_id":"000-1"}}}`))
	})
	mux.HandleFunc("/sys/send.php", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "login", r.URL.Query().Get("login"))
		_, _ = w.Write([]byte(`{"id":77,"cnt":1}`))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	sender := NewSender(slog.Default(), WithEndpoints(server.URL, server.URL), WithHTTPClient(server.Client()))
	ctx := context.Background()

	result, err := sender.Send(ctx, tenantWith(true, false), "", "+79120001122", "hi")
	require.NoError(t, err)
	assert.Equal(t, Result{Provider: ProviderSMSRu, MessageID: "000-1"}, result)

	result, err = sender.Send(ctx, tenantWith(false, true), "", "+79120001122", "hi")
	require.NoError(t, err)
	assert.Equal(t, Result{Provider: ProviderSMSC, MessageID: "77"}, result)
}

func TestProviders_HTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	sender := NewSender(slog.Default(), WithEndpoints(server.URL, server.URL), WithHTTPClient(server.Client()))

	_, err := sender.Send(context.Background(), tenantWith(false, true), "", "+7912", "hi")

	var providerErr *ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, http.StatusForbidden, providerErr.HTTPStatus)
}
