package engine

import (
	"slices"
	"testing"
)

func TestInvocation(t *testing.T) {
	drv := &Driver{Command: "docker"}
	inv := drv.Invocation("/ws/docker/Dockerfile.3ds", "/out", "/ws")

	want := []string{"build", "-f", "/ws/docker/Dockerfile.3ds", "--target", "exporter", "-o", "/out", "/ws"}
	if !slices.Equal(inv.Args, want) {
		t.Fatalf("args = %q, want %q", inv.Args, want)
	}
	if inv.Command != "docker" {
		t.Fatalf("command = %q", inv.Command)
	}
}

func TestInvocationString(t *testing.T) {
	tests := []struct {
		name string
		inv  Invocation
		want string
	}{
		{
			name: "plain",
			inv:  Invocation{Command: "docker", Args: []string{"build", "-o", "/out"}},
			want: "docker build -o /out",
		},
		{
			name: "spaces",
			inv:  Invocation{Command: "docker", Args: []string{"-o", "/my out", ""}},
			want: "docker -o '/my out' ''",
		},
		{
			name: "single quote",
			inv:  Invocation{Command: "/opt/my engine/docker", Args: []string{"it's"}},
			want: `'/opt/my engine/docker' 'it'\''s'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.inv.String(); got != tt.want {
				t.Fatalf("String() = %s, want %s", got, tt.want)
			}
		})
	}
}
