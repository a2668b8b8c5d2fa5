package parser

import (
	"math"
	"strings"
	"testing"

	"github.com/aluiziolira/go-scrape-catalog/models"
)

func TestValidateProduct(t *testing.T) {
	tests := []struct {
		name    string
		product models.Product
		wantErr bool
	}{
		{
			name:    "valid product",
			product: models.Product{Name: "Linen dress", Price: 34.99},
			wantErr: false,
		},
		{
			name:    "missing name",
			product: models.Product{Name: "  ", Price: 34.99},
			wantErr: true,
		},
		{
			name:    "missing price",
			product: models.Product{Name: "Linen dress"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProduct(tt.product)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateProduct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
	}{
		{
			name:     "pound with thousands separator",
			input:    "£1,234.56",
			expected: 1234.56,
		},
		{
			name:     "second period keeps its digits",
			input:    "12.34.56",
			expected: 12.3456,
		},
		{
			name:     "empty string",
			input:    "",
			expected: 0,
		},
		{
			name:     "no digits",
			input:    "free",
			expected: 0,
		},
		{
			name:     "lone period",
			input:    "£.",
			expected: 0,
		},
		{
			name:     "whitespace and currency code",
			input:    "  GBP 19.99 ",
			expected: 19.99,
		},
		{
			name:     "leading period",
			input:    ".5",
			expected: 0.5,
		},
		{
			name:     "trailing period",
			input:    "40.",
			expected: 40,
		},
		{
			name:     "sale and original price run together",
			input:    "£14.99 £29.99",
			expected: 14.992999,
		},
		{
			name:     "minus sign is stripped",
			input:    "-5.00",
			expected: 5,
		},
		{
			name:     "non ascii digits are stripped",
			input:    "١٢3",
			expected: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizePrice(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizePrice(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizePriceOverflowIsZero(t *testing.T) {
	huge := "1" + strings.Repeat("0", 400)
	got := NormalizePrice(huge)
	if got != 0 || math.IsInf(got, 0) {
		t.Fatalf("NormalizePrice(huge) = %v, want 0", got)
	}
}

func TestPriceCache(t *testing.T) {
	cache, err := NewPriceCache(2)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	if got := cache.Normalize("£10.00"); got != 10 {
		t.Fatalf("Normalize = %v, want 10", got)
	}
	if got := cache.Normalize("£10.00"); got != 10 {
		t.Fatalf("cached Normalize = %v, want 10", got)
	}
	cache.Normalize("£20.00")
	cache.Normalize("£30.00")
	if got := cache.Len(); got != 2 {
		t.Fatalf("cache len = %d, want 2", got)
	}
}

func TestPriceCacheNil(t *testing.T) {
	var cache *PriceCache
	if got := cache.Normalize("£1,5.0"); got != 15 {
		t.Fatalf("nil cache Normalize = %v, want 15", got)
	}
}

func TestNewPriceCacheRejectsZeroSize(t *testing.T) {
	if _, err := NewPriceCache(0); err == nil {
		t.Fatalf("expected error for zero size")
	}
}
