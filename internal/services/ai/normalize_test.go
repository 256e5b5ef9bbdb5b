package ai

import (
	"errors"
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr bool
	}{
		{
			name: "bare json array",
			raw:  `["Buy flour", "Preheat oven", "Bake"]`,
			want: []string{"Buy flour", "Preheat oven", "Bake"},
		},
		{
			name: "fenced code block with language tag",
			raw:  "```json\n[\"Buy flour\", \"Preheat oven\", \"Bake\"]\n```",
			want: []string{"Buy flour", "Preheat oven", "Bake"},
		},
		{
			name: "fenced code block without language tag",
			raw:  "```\n[\"Pack bags\", \"Book flights\"]\n```",
			want: []string{"Pack bags", "Book flights"},
		},
		{
			name: "object with subtasks key",
			raw:  `{"subtasks": ["Draft outline", "Write intro"]}`,
			want: []string{"Draft outline", "Write intro"},
		},
		{
			name: "object with tasks key",
			raw:  `{"tasks": ["Call plumber", "Get quote"]}`,
			want: []string{"Call plumber", "Get quote"},
		},
		{
			name: "object with arbitrary key",
			raw:  `{"steps": ["Mix", "Knead", "Rest"]}`,
			want: []string{"Mix", "Knead", "Rest"},
		},
		{
			name: "object prefers subtasks over other keys",
			raw:  `{"notes": ["ignore me"], "subtasks": ["Keep me"]}`,
			want: []string{"Keep me"},
		},
		{
			name: "first array of strings wins for unknown keys",
			raw:  `{"meta": {"n": 3}, "items": ["One", "Two"], "other": ["Three"]}`,
			want: []string{"One", "Two"},
		},
		{
			name: "entries trimmed and empties dropped",
			raw:  `["  Buy flour  ", "", "   ", "Bake"]`,
			want: []string{"Buy flour", "Bake"},
		},
		{
			name: "surrounding whitespace",
			raw:  "  \n [\"Solo\"] \n ",
			want: []string{"Solo"},
		},
		{
			name:    "plain refusal text",
			raw:     "Sorry, I can't help with that.",
			wantErr: true,
		},
		{
			name:    "empty string",
			raw:     "",
			wantErr: true,
		},
		{
			name:    "array of non-strings",
			raw:     `[1, 2, 3]`,
			wantErr: true,
		},
		{
			name:    "object with no string arrays",
			raw:     `{"count": 3, "done": false}`,
			wantErr: true,
		},
		{
			name:    "array of only empty strings",
			raw:     `["", "  "]`,
			wantErr: true,
		},
		{
			name: "duplicates kept",
			raw:  `["Check email", "Check email"]`,
			want: []string{"Check email", "Check email"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Normalize(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Normalize(%q) expected error, got %v", tt.raw, got)
				}
				var malformed *MalformedResponseError
				if !errors.As(err, &malformed) {
					t.Fatalf("expected MalformedResponseError, got %T", err)
				}
				if malformed.Raw != tt.raw {
					t.Errorf("Raw = %q, want original input %q", malformed.Raw, tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize(%q) unexpected error: %v", tt.raw, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Normalize(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestMalformedResponseErrorMessageOmitsRaw(t *testing.T) {
	t.Parallel()

	err := &MalformedResponseError{Raw: "secret model output"}
	if got := err.Error(); got == "" || got != "malformed model response: no subtask list found" {
		t.Errorf("Error() = %q, should be a fixed message without the raw payload", got)
	}
}

func TestStripCodeFence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `["a"]`, `["a"]`},
		{"json tag", "```json\n[\"a\"]\n```", `["a"]`},
		{"no tag", "```\n[\"a\"]\n```", `["a"]`},
		{"single line", "```json[\"a\"]```", `["a"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := stripCodeFence(tt.in); got != tt.want {
				t.Errorf("stripCodeFence(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
