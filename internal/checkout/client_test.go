package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Start(t *testing.T) {
	var got startReq
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/checkouts", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"chk_1","checkout_url":"https://shop.example/checkout/chk_1"}`))
	}))
	t.Cleanup(ts.Close)

	c := NewClient(ts.URL + "/")
	s, err := c.Start(context.Background(), []Line{{VariantID: "gid-variant-1001", Quantity: 2}})
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example/checkout/chk_1", s.CheckoutURL)
	assert.Equal(t, []Line{{VariantID: "gid-variant-1001", Quantity: 2}}, got.Lines)
}

func TestClient_Start_Errors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"rejected", http.StatusUnprocessableEntity, `{}`, ErrBackendRejected},
		{"upstream", http.StatusBadGateway, ``, ErrBackendBadStatus},
		{"no url", http.StatusOK, `{"id":"x"}`, ErrBackendBadStatus},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			t.Cleanup(ts.Close)

			_, err := NewClient(ts.URL).Start(context.Background(), []Line{{VariantID: "v", Quantity: 1}})
			assert.True(t, errors.Is(err, tc.want), "err=%v", err)
		})
	}
}

func TestClient_Start_EmptyAndDown(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")

	_, err := c.Start(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = c.Start(context.Background(), []Line{{VariantID: "v", Quantity: 1}})
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}
