package promostack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewClient(server.URL, "token-123")
	return client, server
}

func TestGrantAccess(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody grantRequest

	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("unexpected body decode error: %v", err)
		}
		json.NewEncoder(w).Encode(apiResponse{Success: true, InviteLink: " https://t.me/+abc123 "})
	})
	defer server.Close()

	link := client.GrantAccess(context.Background(), "a@b.com", "monthly", 29.99, map[string]string{"campaign": "spring-promo"})
	if link != "https://t.me/+abc123" {
		t.Fatalf("GrantAccess = %q, want trimmed invite link", link)
	}
	if gotPath != "/grant-access" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer token-123" {
		t.Fatalf("unexpected authorization header %q", gotAuth)
	}
	if gotBody.Email != "a@b.com" || gotBody.PlanType != "monthly" || gotBody.AmountPaid != 29.99 {
		t.Fatalf("unexpected request body: %+v", gotBody)
	}
	if gotBody.Metadata["campaign"] != "spring-promo" {
		t.Fatalf("expected metadata in request body, got %v", gotBody.Metadata)
	}
}

func TestGrantAccess_RejectedReturnsEmpty(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(apiResponse{Success: false, Message: "channel full"})
	})
	defer server.Close()

	if link := client.GrantAccess(context.Background(), "a@b.com", "monthly", 29.99, nil); link != "" {
		t.Fatalf("expected empty link on rejection, got %q", link)
	}
}

func TestGrantAccess_ServerErrorReturnsEmpty(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	defer server.Close()

	if link := client.GrantAccess(context.Background(), "a@b.com", "monthly", 29.99, nil); link != "" {
		t.Fatalf("expected empty link on server error, got %q", link)
	}
}

func TestGrantAccess_UnreachableReturnsEmpty(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {})
	server.Close()

	if link := client.GrantAccess(context.Background(), "a@b.com", "monthly", 29.99, nil); link != "" {
		t.Fatalf("expected empty link when the API is unreachable, got %q", link)
	}
}

func TestRevokeAccess(t *testing.T) {
	var gotPath string
	var gotBody revokeRequest

	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("unexpected body decode error: %v", err)
		}
		json.NewEncoder(w).Encode(apiResponse{Success: true})
	})
	defer server.Close()

	if ok := client.RevokeAccess(context.Background(), "a@b.com", "payment failed"); !ok {
		t.Fatalf("expected revoke to succeed")
	}
	if gotPath != "/revoke-access" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotBody.Email != "a@b.com" || gotBody.Reason != "payment failed" {
		t.Fatalf("unexpected request body: %+v", gotBody)
	}
}

func TestRevokeAccess_FailureReturnsFalse(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	defer server.Close()

	if ok := client.RevokeAccess(context.Background(), "a@b.com", "subscription deleted"); ok {
		t.Fatalf("expected revoke to report failure")
	}
}
