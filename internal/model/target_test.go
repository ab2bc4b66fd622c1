package model

import (
	"errors"
	"testing"
)

func TestNewTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raw      string
		wantSeed string
		wantHost string
		wantErr  error
	}{
		{
			name:     "full https URL",
			raw:      "https://shop.example.com",
			wantSeed: "https://shop.example.com",
			wantHost: "shop.example.com",
			wantErr:  nil,
		},
		{
			name:     "full http URL",
			raw:      "http://shop.example.com/catalog",
			wantSeed: "http://shop.example.com/catalog",
			wantHost: "shop.example.com",
			wantErr:  nil,
		},
		{
			name:     "bare domain gets https",
			raw:      "shop.example.com",
			wantSeed: "https://shop.example.com",
			wantHost: "shop.example.com",
			wantErr:  nil,
		},
		{
			name:     "surrounding whitespace is trimmed",
			raw:      "  shop.example.com\n",
			wantSeed: "https://shop.example.com",
			wantHost: "shop.example.com",
			wantErr:  nil,
		},
		{
			name:     "host with port keeps port in seed but not host",
			raw:      "http://localhost:8080/shop",
			wantSeed: "http://localhost:8080/shop",
			wantHost: "localhost",
			wantErr:  nil,
		},
		{
			name:     "uppercase host is lowered in Host",
			raw:      "https://SHOP.Example.COM/Sale",
			wantHost: "shop.example.com",
			wantErr:  nil,
		},
		{
			name:    "empty target",
			raw:     "",
			wantErr: ErrEmptyTarget,
		},
		{
			name:    "whitespace-only target",
			raw:     "   ",
			wantErr: ErrEmptyTarget,
		},
		{
			name:    "unsupported scheme",
			raw:     "ftp://shop.example.com",
			wantErr: ErrInvalidTarget,
		},
		{
			name:    "scheme without host",
			raw:     "https://",
			wantErr: ErrInvalidTarget,
		},
		{
			name:    "unparsable URL",
			raw:     "https://shop example.com/",
			wantErr: ErrInvalidTarget,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			target, err := NewTarget(tt.raw)

			if tt.wantErr != nil {
				if err == nil {
					t.Errorf("expected error %v, got nil", tt.wantErr)
				} else if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				if !target.IsZero() {
					t.Errorf("expected zero target on error, got %v", target)
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if tt.wantSeed != "" && target.String() != tt.wantSeed {
				t.Errorf("expected seed %q, got %q", tt.wantSeed, target.String())
			}
			if target.Host() != tt.wantHost {
				t.Errorf("expected host %q, got %q", tt.wantHost, target.Host())
			}
		})
	}
}

func TestTarget_Methods(t *testing.T) {
	t.Parallel()

	a := MustNewTarget("https://shop.example.com")
	b := MustNewTarget("https://other.example.com")

	t.Run("Equals compares seed URLs", func(t *testing.T) {
		t.Parallel()
		aCopy := MustNewTarget("https://shop.example.com")
		if !a.Equals(aCopy) {
			t.Error("expected targets to be equal")
		}
		if a.Equals(b) {
			t.Error("expected targets to be different")
		}
	})

	t.Run("IsZero returns true for zero value", func(t *testing.T) {
		t.Parallel()
		var zero Target
		if !zero.IsZero() {
			t.Error("expected zero value to be zero")
		}
		if a.IsZero() {
			t.Error("expected non-zero value to not be zero")
		}
	})
}

func TestMustNewTarget(t *testing.T) {
	t.Parallel()

	t.Run("valid target does not panic", func(t *testing.T) {
		t.Parallel()
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("unexpected panic: %v", r)
			}
		}()
		_ = MustNewTarget("shop.example.com")
	})

	t.Run("invalid target panics", func(t *testing.T) {
		t.Parallel()
		defer func() {
			if r := recover(); r == nil {
				t.Error("expected panic for invalid target")
			}
		}()
		_ = MustNewTarget("")
	})
}
