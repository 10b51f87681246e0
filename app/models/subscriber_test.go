package models

import "testing"

func TestSubscriberValidate(t *testing.T) {
	sub := &Subscriber{Email: "trader@example.com", StripeCustomerID: "cus_1"}
	if err := sub.Validate(); err != nil {
		t.Fatalf("expected valid subscriber, got %v", err)
	}

	for _, email := range []string{"", "not-an-email", "missing@tld@twice"} {
		sub := &Subscriber{Email: email}
		if err := sub.Validate(); err == nil {
			t.Fatalf("expected email %q to fail validation", email)
		}
	}
}
