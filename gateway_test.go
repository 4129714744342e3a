package chatstream

import (
	"errors"
	"testing"
)

func TestVendorFor(t *testing.T) {
	cases := []struct {
		id   string
		want Vendor
	}{
		{"gemini-2.0-flash", VendorGemini},
		{"claude-sonnet-4-20250514", VendorAnthropic},
		{"gpt-4o", VendorOpenAI},
		{"llama-3.1-70b", VendorOpenAI},
	}
	for _, tc := range cases {
		if got := vendorFor(tc.id); got != tc.want {
			t.Errorf("vendorFor(%q) = %s, want %s", tc.id, got, tc.want)
		}
	}
}

func TestVendorString(t *testing.T) {
	if VendorGemini.String() != "gemini" || VendorAnthropic.String() != "anthropic" || VendorOpenAI.String() != "openai-compatible" {
		t.Error("Unexpected vendor names")
	}
}

func TestGateway_ResolveUnknownModel(t *testing.T) {
	gateway := NewGateway(DefaultCatalog(), DefaultModelID)

	_, err := gateway.Resolve("nonexistent-model")
	if !errors.Is(err, ErrUnknownModel) {
		t.Errorf("Expected ErrUnknownModel, got %v", err)
	}
}

func TestGateway_ResolveWrapsHandle(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test-key-for-resolution")
	gateway := NewGateway(DefaultCatalog(), DefaultModelID)

	handle, err := gateway.Resolve("gpt-4o")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if _, ok := handle.(*loggingModel); !ok {
		t.Errorf("Expected a logging-wrapped handle, got %T", handle)
	}
}

func TestGateway_ResolveFailsFastWithoutCredential(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	gateway := NewGateway(DefaultCatalog(), DefaultModelID)

	if _, err := gateway.Resolve("claude-sonnet"); err == nil {
		t.Error("Expected construction to fail without a credential")
	}
}

func TestDescriptor(t *testing.T) {
	gateway := NewGateway(DefaultCatalog(), DefaultModelID)

	desc, ok := gateway.Descriptor("claude-sonnet")
	if !ok || desc.APIIdentifier != "claude-sonnet-4-20250514" {
		t.Errorf("Unexpected descriptor: %+v (ok=%v)", desc, ok)
	}
	if _, ok := gateway.Descriptor("missing"); ok {
		t.Error("Expected lookup miss for unknown id")
	}
}

func TestMaskSecret(t *testing.T) {
	cases := []struct {
		secret string
		want   string
	}{
		{"", "(not set)"},
		{"short", "****"},
		{"12345678", "****"},
		{"sk-abcdefghijklmnop", "sk-a…mnop"},
	}
	for _, tc := range cases {
		if got := maskSecret(tc.secret); got != tc.want {
			t.Errorf("maskSecret(%q) = %q, want %q", tc.secret, got, tc.want)
		}
	}
}
