package core

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name:    "valid document",
			doc:     &Document{Identity: "a", Content: "x"},
			wantErr: nil,
		},
		{
			name: "valid document with metadata",
			doc: &Document{
				Identity: "doc-1",
				Content:  "hello",
				Metadata: map[string]any{"source": "test", "n": 1},
			},
			wantErr: nil,
		},
		{
			name:    "valid document with empty metadata",
			doc:     &Document{Identity: "a", Content: "x", Metadata: map[string]any{}},
			wantErr: nil,
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "empty identity",
			doc:     &Document{Content: "x"},
			wantErr: ErrEmptyIdentity,
		},
		{
			name:    "empty content",
			doc:     &Document{Identity: "a"},
			wantErr: ErrEmptyContent,
		},
		{
			name:    "identity too long",
			doc:     &Document{Identity: strings.Repeat("i", MaxIdentityLength+1), Content: "x"},
			wantErr: ErrIdentityTooLong,
		},
		{
			name:    "identity at limit",
			doc:     &Document{Identity: strings.Repeat("i", MaxIdentityLength), Content: "x"},
			wantErr: nil,
		},
		{
			name:    "metadata not serializable",
			doc:     &Document{Identity: "a", Content: "x", Metadata: map[string]any{"v": math.NaN()}},
			wantErr: ErrInvalidMetadata,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() unexpected error = %v", err)
				}
				return
			}

			if err == nil {
				t.Errorf("ValidateDocument() expected error %v, got nil", tt.wantErr)
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidDocument) {
				t.Errorf("ValidateDocument() error should wrap ErrInvalidDocument, got %v", err)
			}
		})
	}
}

func TestValidateEmbeddedDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *EmbeddedDocument
		dim     int
		wantErr error
	}{
		{"valid", &EmbeddedDocument{Identity: "a", Vector: []float32{1, 0}}, 2, nil},
		{"nil", nil, 2, ErrInvalidDocument},
		{"empty identity", &EmbeddedDocument{Vector: []float32{1}}, 1, ErrEmptyIdentity},
		{"empty vector", &EmbeddedDocument{Identity: "a"}, 2, ErrEmptyVector},
		{"wrong dimension", &EmbeddedDocument{Identity: "a", Vector: []float32{1, 0, 0}}, 2, ErrInvalidDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmbeddedDocument(tt.doc, tt.dim)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
