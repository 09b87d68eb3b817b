package push

import (
	"context"
	"errors"
	"testing"

	"github.com/aquamarinepk/aqm"
)

type mockRegistrar struct {
	RegisterFunc func(ctx context.Context, locationID string, sub Subscription, deviceLabel string) error
	calls        []Subscription
}

func (m *mockRegistrar) RegisterPushSubscription(ctx context.Context, locationID string, sub Subscription, deviceLabel string) error {
	m.calls = append(m.calls, sub)
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, locationID, sub, deviceLabel)
	}
	return nil
}

func validSubscription(endpoint string) Subscription {
	return Subscription{
		Endpoint: endpoint,
		Keys:     Keys{P256dh: "BOr6...", Auth: "k8Jf..."},
	}
}

func TestSubscriptionValidate(t *testing.T) {
	tests := []struct {
		name    string
		sub     Subscription
		wantErr bool
	}{
		{name: "valid", sub: validSubscription("https://push.example.com/abc")},
		{name: "httpEndpoint", sub: validSubscription("http://push.example.com/abc"), wantErr: true},
		{name: "emptyEndpoint", sub: validSubscription(""), wantErr: true},
		{name: "missingAuth", sub: Subscription{Endpoint: "https://push.example.com/abc", Keys: Keys{P256dh: "x"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sub.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidSubscription) {
				t.Errorf("error = %v, want ErrInvalidSubscription", err)
			}
		})
	}
}

func TestManagerSubscribeRequiresGrant(t *testing.T) {
	reg := &mockRegistrar{}
	m := NewManager("loc-1", "bar", reg, nil, aqm.NewNoopLogger())

	err := m.Subscribe(context.Background(), validSubscription("https://push.example.com/a"), "Bar")
	if !errors.Is(err, ErrNotGranted) {
		t.Fatalf("Subscribe() error = %v, want ErrNotGranted", err)
	}
	if len(reg.calls) != 0 {
		t.Error("subscription forwarded without permission")
	}
	if m.CanNotify() {
		t.Error("CanNotify() = true with default permission")
	}
}

func TestManagerSubscribeReusesEndpoint(t *testing.T) {
	reg := &mockRegistrar{}
	m := NewManager("loc-1", "bar", reg, nil, aqm.NewNoopLogger())
	m.SetPermission(PermissionGranted)

	first := validSubscription("https://push.example.com/a")
	if err := m.Subscribe(context.Background(), first, "Bar"); err != nil {
		t.Fatal(err)
	}

	again := validSubscription("https://push.example.com/a")
	again.Keys.Auth = "rotated"
	if err := m.Subscribe(context.Background(), again, "Bar"); err != nil {
		t.Fatal(err)
	}

	got, _ := m.Subscription()
	if got.Keys.Auth != first.Keys.Auth {
		t.Error("same endpoint did not reuse the existing subscription")
	}
	if len(reg.calls) != 2 {
		t.Errorf("forwards = %d, want 2", len(reg.calls))
	}
}

func TestManagerForwardFailureIsReported(t *testing.T) {
	reg := &mockRegistrar{
		RegisterFunc: func(context.Context, string, Subscription, string) error {
			return errors.New("backend down")
		},
	}
	m := NewManager("loc-1", "bar", reg, nil, aqm.NewNoopLogger())
	m.SetPermission(PermissionGranted)

	if err := m.Subscribe(context.Background(), validSubscription("https://push.example.com/a"), "Bar"); err == nil {
		t.Fatal("Subscribe() error = nil, want forward failure")
	}
	if _, ok := m.Subscription(); !ok {
		t.Error("local subscription dropped on forward failure")
	}
}

func TestManagerResubscribeOncePerMount(t *testing.T) {
	dir := NewDirectory()
	reg := &mockRegistrar{}

	earlier := NewManager("loc-1", "bar", reg, dir, aqm.NewNoopLogger())
	earlier.SetPermission(PermissionGranted)
	if err := earlier.Subscribe(context.Background(), validSubscription("https://push.example.com/a"), "Bar"); err != nil {
		t.Fatal(err)
	}

	m := NewManager("loc-1", "bar", reg, dir, aqm.NewNoopLogger())
	m.SetPermission(PermissionGranted)
	m.Resubscribe(context.Background())
	m.Resubscribe(context.Background())

	if len(reg.calls) != 2 {
		t.Fatalf("forwards = %d, want 2 (subscribe + one resubscribe)", len(reg.calls))
	}
	if _, ok := m.Subscription(); !ok {
		t.Error("resubscribe did not restore the subscription")
	}
}

func TestManagerResubscribeSkippedWithoutGrant(t *testing.T) {
	dir := NewDirectory()
	dir.remember("loc-1/bar", validSubscription("https://push.example.com/a"), "Bar")
	reg := &mockRegistrar{}

	m := NewManager("loc-1", "bar", reg, dir, aqm.NewNoopLogger())
	m.Resubscribe(context.Background())

	if len(reg.calls) != 0 {
		t.Error("resubscribed without permission")
	}
}

func TestParsePermission(t *testing.T) {
	for _, s := range []string{"default", "granted", "denied"} {
		if _, err := ParsePermission(s); err != nil {
			t.Errorf("ParsePermission(%q) error = %v", s, err)
		}
	}
	if _, err := ParsePermission("maybe"); err == nil {
		t.Error("ParsePermission(maybe) should fail")
	}
}
