package validate_test

import (
	"testing"

	"github.com/kmorrow/shopstore/validate"
)

func TestProductSchema(t *testing.T) {
	tests := []struct {
		name    string
		doc     map[string]any
		wantErr bool
	}{
		{"valid", map[string]any{"title": "book", "price": 12.5}, false},
		{"valid with extras", map[string]any{"id": "p1", "title": "book", "price": 0.0, "description": "a book"}, false},
		{"missing title", map[string]any{"price": 1.0}, true},
		{"missing price", map[string]any{"title": "book"}, true},
		{"empty title", map[string]any{"title": "", "price": 1.0}, true},
		{"negative price", map[string]any{"title": "book", "price": -0.01}, true},
		{"price wrong type", map[string]any{"title": "book", "price": "free"}, true},
		{"title wrong type", map[string]any{"title": float64(7), "price": 1.0}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validate.Against(validate.Product, tc.doc)
			if tc.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCartItemSchema(t *testing.T) {
	if err := validate.Against(validate.CartItem, map[string]any{"productId": "p1"}); err != nil {
		t.Fatalf("string productId: %v", err)
	}
	if err := validate.Against(validate.CartItem, map[string]any{"productId": float64(101)}); err != nil {
		t.Fatalf("numeric productId: %v", err)
	}
	if err := validate.Against(validate.CartItem, map[string]any{}); err == nil {
		t.Fatal("expected error for missing productId")
	}
}

func TestAgainstKeywords(t *testing.T) {
	tests := []struct {
		name    string
		schema  map[string]any
		doc     map[string]any
		wantErr bool
	}{
		{
			"nil schema passes",
			nil,
			map[string]any{"anything": true},
			false,
		},
		{
			"enum accepts member",
			map[string]any{"properties": map[string]any{"size": map[string]any{"enum": []any{"s", "m", "l"}}}},
			map[string]any{"size": "m"},
			false,
		},
		{
			"enum rejects outsider",
			map[string]any{"properties": map[string]any{"size": map[string]any{"enum": []any{"s", "m", "l"}}}},
			map[string]any{"size": "xl"},
			true,
		},
		{
			"maximum enforced",
			map[string]any{"properties": map[string]any{"qty": map[string]any{"type": "number", "maximum": 10}}},
			map[string]any{"qty": float64(11)},
			true,
		},
		{
			"integer accepts whole float",
			map[string]any{"properties": map[string]any{"n": map[string]any{"type": "integer"}}},
			map[string]any{"n": float64(3)},
			false,
		},
		{
			"integer rejects fraction",
			map[string]any{"properties": map[string]any{"n": map[string]any{"type": "integer"}}},
			map[string]any{"n": float64(3.5)},
			true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validate.Against(tc.schema, tc.doc)
			if tc.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
