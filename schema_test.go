package filebox

import (
	"testing"
)

func TestDescribe(t *testing.T) {
	schema, err := Describe[record]()
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}

	var keys []string
	for p := schema.Properties.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	if len(keys) != 2 || keys[0] != "x" || keys[1] != "y" {
		t.Errorf("expected properties [x y], got %v", keys)
	}

	required := make(map[string]bool)
	for _, name := range schema.Required {
		required[name] = true
	}
	if !required["x"] || !required["y"] {
		t.Errorf("expected x and y required, got %v", schema.Required)
	}
}

func TestDescribe_Pointer(t *testing.T) {
	if _, err := Describe[*record](); err != nil {
		t.Errorf("Describe on pointer to struct failed: %v", err)
	}
}

func TestDescribe_Validation(t *testing.T) {
	tests := []struct {
		name    string
		run     func() error
		wantErr bool
	}{
		{
			name:    "struct",
			run:     func() error { _, err := Describe[record](); return err },
			wantErr: false,
		},
		{
			name:    "int",
			run:     func() error { _, err := Describe[int](); return err },
			wantErr: true,
		},
		{
			name:    "pointer to int",
			run:     func() error { _, err := Describe[*int](); return err },
			wantErr: true,
		},
		{
			name:    "slice",
			run:     func() error { _, err := Describe[[]record](); return err },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if (err != nil) != tt.wantErr {
				t.Errorf("Describe() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
