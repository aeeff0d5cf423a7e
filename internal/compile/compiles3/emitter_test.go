package compiles3

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/k11v/emload/internal/apps3"
)

func TestEmitter(t *testing.T) {
	t.Run("uploads files under the prefix", func(t *testing.T) {
		if testing.Short() {
			t.Skip("skipping in short mode")
		}

		ctx := context.Background()
		client := NewTestClient(t, ctx)
		emitter := NewEmitter(client, apps3.DefaultBucket, "/builds/1/")

		if err := emitter.EmitFile(ctx, "example.wasm", []byte("\x00asm")); err != nil {
			t.Fatalf("didn't want %q", err)
		}
		if err := emitter.EmitFile(ctx, "example.data", []byte{}); err != nil {
			t.Fatalf("didn't want %q", err)
		}

		for name, want := range map[string]string{
			"builds/1/example.wasm": "\x00asm",
			"builds/1/example.data": "",
		} {
			bucket := apps3.DefaultBucket
			key := name
			out, err := client.GetObject(ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
			if err != nil {
				t.Fatalf("didn't want %q", err)
			}
			got, err := io.ReadAll(out.Body)
			_ = out.Body.Close()
			if err != nil {
				t.Fatalf("didn't want %q", err)
			}
			if string(got) != want {
				t.Errorf("got %q for %s, want %q", got, name, want)
			}
		}
	})
}

func TestEmitterKey(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"", "example.wasm"},
		{"builds", "builds/example.wasm"},
		{"/builds/1/", "builds/1/example.wasm"},
	}
	for _, tt := range tests {
		if got := NewEmitter(nil, "bucket", tt.prefix).Key("example.wasm"); got != tt.want {
			t.Errorf("got %s for prefix %q, want %s", got, tt.prefix, tt.want)
		}
	}
}

func NewTestClient(tb testing.TB, ctx context.Context) *s3.Client {
	tb.Helper()

	username := "minioadmin"
	password := "minioadmin"

	req := testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "quay.io/minio/minio:latest",
			ExposedPorts: []string{"9000/tcp"},
			WaitingFor:   wait.ForHTTP("/minio/health/live").WithPort("9000"),
			Env: map[string]string{
				"MINIO_ROOT_USER":     username,
				"MINIO_ROOT_PASSWORD": password,
			},
			Cmd: []string{"server", "/data"},
		},
		Started: true,
	}

	c, err := testcontainers.GenericContainer(ctx, req)
	tb.Cleanup(func() {
		if c == nil {
			return
		}
		if err := c.Terminate(context.Background()); err != nil {
			tb.Errorf("didn't want %q", err)
		}
	})
	if err != nil {
		tb.Fatalf("didn't want %q", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		tb.Fatalf("didn't want %q", err)
	}
	port, err := c.MappedPort(ctx, "9000/tcp")
	if err != nil {
		tb.Fatalf("didn't want %q", err)
	}
	connectionString := fmt.Sprintf("http://%s:%s@%s:%s", username, password, host, port.Port())

	client, err := apps3.NewClient(connectionString)
	if err != nil {
		tb.Fatalf("didn't want %q", err)
	}
	if err = apps3.Setup(ctx, client, apps3.DefaultBucket); err != nil {
		tb.Fatalf("didn't want %q", err)
	}

	return client
}
