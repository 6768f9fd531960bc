package file

import (
	"errors"
	"testing"
)

func TestNewOptionsValidation(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]any
		wantErr bool
	}{
		{"minimal", map[string]any{OptionPath: "/x"}, false},
		{"all keys", map[string]any{
			OptionPath:             "/x",
			OptionGlob:             "*.csv",
			OptionSharedFileSystem: "true",
			OptionOptions:          map[string]string{"k": "v"},
			OptionFormat:           "csv",
			"unknown":              42,
		}, false},
		{"missing path", map[string]any{OptionGlob: "*"}, true},
		{"empty path", map[string]any{OptionPath: ""}, true},
		{"path not a string", map[string]any{OptionPath: 1}, true},
		{"glob not a string", map[string]any{OptionPath: "/x", OptionGlob: true}, true},
		{"shared not a string", map[string]any{OptionPath: "/x", OptionSharedFileSystem: 1}, true},
		{"options not a map", map[string]any{OptionPath: "/x", OptionOptions: "k=v"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOptions(tt.values)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidOption) {
					t.Errorf("expected ErrInvalidOption, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error %v", err)
			}
		})
	}
}

func TestOptionsSharedFileSystem(t *testing.T) {
	tests := []struct {
		value any
		want  bool
	}{
		{nil, false},
		{"true", true},
		{"TRUE", true},
		{"True", true},
		{"yes", false},
		{"1", false},
		{"", false},
		{true, true},
		{false, false},
	}

	for _, tt := range tests {
		opts := Options{OptionPath: "/x", OptionSharedFileSystem: tt.value}
		if got := opts.SharedFileSystem(); got != tt.want {
			t.Errorf("SharedFileSystem(%#v) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestNewOptionsCopiesInput(t *testing.T) {
	nested := map[string]string{"k": "v"}
	values := map[string]any{OptionPath: "/x", OptionOptions: nested}

	opts, err := NewOptions(values)
	if err != nil {
		t.Fatal(err)
	}
	values[OptionPath] = "/changed"
	nested["k"] = "changed"

	src, err := opts.Source("csv")
	if err != nil {
		t.Fatal(err)
	}
	if src.Path != "/x" || src.FileOptions["k"] != "v" {
		t.Errorf("options share storage with their input: %+v", src)
	}
}

func TestOptionsSourceRejectsUnknownFormat(t *testing.T) {
	opts := Options{OptionPath: "/x"}
	if _, err := opts.Source("orc"); !errors.Is(err, ErrInvalidOption) {
		t.Errorf("expected ErrInvalidOption, got %v", err)
	}
}

func TestToTableFieldsDefaultsExternalName(t *testing.T) {
	fields := ToTableFields([]MappingField{{Name: "a"}, {Name: "b", ExternalName: "B"}})
	if fields[0].ExternalName != "a" || fields[1].ExternalName != "B" {
		t.Errorf("unexpected external names %+v", fields)
	}
}
