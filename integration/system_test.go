//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"testing"
	"time"
)

var baseURL = getenv("E2E_BASE_URL", "http://localhost:8080")

type cartState struct {
	Items []struct {
		ID       string `json:"id"`
		Quantity int    `json:"quantity"`
	} `json:"items"`
	ItemCount     int   `json:"item_count"`
	SubtotalCents int64 `json:"subtotal_cents"`
	ShippingCents int64 `json:"shipping_cents"`
	TotalCents    int64 `json:"total_cents"`
	IsHydrated    bool  `json:"is_hydrated"`
	Dirty         bool  `json:"dirty"`
}

type tokenResp struct {
	AccessToken string `json:"access_token"`
}

func TestSystem_E2E_CartSurvivesRestart(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	waitReady(t, ctx, baseURL+"/readyz")

	email := fmt.Sprintf("user_%d_%d@example.com", time.Now().Unix(), rand.Intn(100000))
	pass := "password123!"

	var reg tokenResp
	doJSON(t, http.MethodPost, baseURL+"/auth/register", map[string]any{
		"email":    email,
		"password": pass,
	}, &reg, 201)
	if reg.AccessToken == "" {
		t.Fatalf("empty access_token")
	}

	var products []map[string]any
	doJSON(t, http.MethodGet, baseURL+"/products?sort=price_asc", nil, &products, 200)
	if len(products) == 0 {
		t.Fatalf("expected non-empty products")
	}

	pid, _ := products[0]["id"].(string)
	if pid == "" {
		t.Fatalf("product id missing in response: %#v", products[0])
	}

	var added cartState
	doJSONAuth(t, http.MethodPost, baseURL+"/cart/items", reg.AccessToken, map[string]any{
		"product_id": pid,
		"quantity":   2,
	}, &added, 200)
	if added.ItemCount != 2 || added.Dirty {
		t.Fatalf("unexpected cart after add: %+v", added)
	}
	if added.TotalCents != added.SubtotalCents+added.ShippingCents {
		t.Fatalf("totals mismatch: %+v", added)
	}

	doJSONAuth(t, http.MethodPost, baseURL+"/wishlist/toggle", reg.AccessToken, map[string]any{
		"product_id": pid,
	}, nil, 200)

	if os.Getenv("E2E_RESTART_STOREFRONT") == "1" {
		restartStorefrontContainer(t, ctx)
		waitReady(t, ctx, baseURL+"/readyz")
	}

	// A fresh login resolves to the same customer session.
	var login tokenResp
	doJSON(t, http.MethodPost, baseURL+"/auth/login", map[string]any{
		"email":    email,
		"password": pass,
	}, &login, 200)

	var got cartState
	doJSONAuth(t, http.MethodGet, baseURL+"/cart", login.AccessToken, nil, &got, 200)
	if !got.IsHydrated || got.ItemCount != added.ItemCount || got.TotalCents != added.TotalCents {
		t.Fatalf("cart not restored: got %+v want %+v", got, added)
	}

	var member struct {
		InWishlist bool `json:"in_wishlist"`
	}
	doJSONAuth(t, http.MethodGet, baseURL+"/wishlist/items/"+pid, login.AccessToken, nil, &member, 200)
	if !member.InWishlist {
		t.Fatalf("wishlist not restored")
	}
}

func waitReady(t *testing.T, ctx context.Context, url string) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := client.Do(req)
		if err == nil && resp != nil && resp.StatusCode == 200 {
			_ = resp.Body.Close()
			return
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("service not ready: %s", url)
}

func doJSON(t *testing.T, method, url string, body any, out any, want int) {
	t.Helper()
	doJSONAuth(t, method, url, "", body, out, want)
}

func doJSONAuth(t *testing.T, method, url, token string, body any, out any, want int) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		t.Fatalf("%s %s: status=%d want=%d", method, url, resp.StatusCode, want)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
