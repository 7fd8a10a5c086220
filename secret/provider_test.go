package secret

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestEnvProvider(t *testing.T) {
	t.Setenv("TC_SECRET", "s3cret")
	p := NewEnvProvider()

	got, err := p.Resolve(context.Background(), "TC_SECRET")
	if err != nil || got != "s3cret" {
		t.Errorf("Resolve() = %q, %v; want s3cret, nil", got, err)
	}
	if _, err := p.Resolve(context.Background(), "TC_SECRET_UNSET"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve(unset) error = %v, want ErrNotFound", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Resolve(ctx, "TC_SECRET"); !errors.Is(err, context.Canceled) {
		t.Errorf("Resolve(cancelled) error = %v, want context.Canceled", err)
	}
}

func TestFileProvider(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "redis"), []byte("pa55\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		dir     string
		ref     string
		want    string
		wantErr error
	}{
		{name: "relative", dir: dir, ref: "redis", want: "pa55"},
		{name: "absolute", ref: filepath.Join(dir, "redis"), want: "pa55"},
		{name: "missing", dir: dir, ref: "nope", wantErr: ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewFileProvider(tt.dir).Resolve(context.Background(), tt.ref)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("Resolve(%q) = %q, %v; want %q", tt.ref, got, err, tt.want)
			}
		})
	}
}
