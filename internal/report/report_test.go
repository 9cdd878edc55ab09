package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	vberrors "github.com/vango-dev/bindery/internal/errors"
	"github.com/vango-dev/bindery/internal/telemetry"
	"github.com/vango-dev/bindery/pkg/binding"
)

func frame(n uint64, visited, rendered, failed int, d time.Duration) binding.FrameStats {
	return binding.FrameStats{
		ExecuteStats: binding.ExecuteStats{Visited: visited, Rendered: rendered, Failed: failed},
		Frame:        n,
		Duration:     d,
	}
}

func TestRecorderBuild(t *testing.T) {
	r := NewRecorder()
	r.Observe(frame(1, 5, 5, 0, 4*time.Millisecond))
	r.Observe(frame(2, 0, 0, 0, time.Millisecond))
	r.Observe(frame(3, 3, 2, 1, 2*time.Millisecond))

	rep := r.Build(13, 8, telemetry.Totals{Renders: 7})

	if rep.Frames != 3 || rep.IdleFrames != 1 {
		t.Errorf("frames = %d idle = %d, want 3 and 1", rep.Frames, rep.IdleFrames)
	}
	if rep.Rendered != 7 || rep.Failed != 1 || rep.MaxRendered != 5 {
		t.Errorf("unexpected render counts %+v", rep)
	}
	if rep.Nodes != 13 || rep.Fields != 8 || rep.Totals.Renders != 7 {
		t.Errorf("unexpected workload fields %+v", rep)
	}
	want := Durations{
		Min:    time.Millisecond,
		Avg:    7 * time.Millisecond / 3,
		P95:    4 * time.Millisecond,
		Max:    4 * time.Millisecond,
		Window: 3,
	}
	if rep.FrameDuration != want {
		t.Errorf("FrameDuration = %+v, want %+v", rep.FrameDuration, want)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	var s durationStats
	if got := s.summary(); got != (Durations{}) {
		t.Errorf("expected zero durations, got %+v", got)
	}
}

func TestRecorderWindowIsBounded(t *testing.T) {
	r := NewRecorder(WithWindow(10))
	// 100 slow frames followed by 10 fast ones.
	for i := range 100 {
		r.Observe(frame(uint64(i), 1, 1, 0, time.Second))
	}
	for i := range 10 {
		r.Observe(frame(uint64(100+i), 1, 1, 0, time.Millisecond))
	}

	if got := cap(r.durations.window); got != 10 {
		t.Fatalf("window capacity = %d, want 10", got)
	}
	d := r.Build(1, 1, telemetry.Totals{}).FrameDuration
	if d.Window != 10 {
		t.Errorf("Window = %d, want 10", d.Window)
	}
	if d.P95 != time.Millisecond {
		t.Errorf("P95 = %v, want the recent 1ms frames", d.P95)
	}
	if d.Min != time.Millisecond || d.Max != time.Second {
		t.Errorf("Min/Max = %v/%v, want 1ms/1s over every frame", d.Min, d.Max)
	}
	want := (100*time.Second + 10*time.Millisecond) / 110
	if d.Avg != want {
		t.Errorf("Avg = %v, want %v", d.Avg, want)
	}
}

func TestReportWriteFile(t *testing.T) {
	rep := NewRecorder().Build(1, 1, telemetry.Totals{})
	path := filepath.Join(t.TempDir(), "report.json")

	if err := rep.WriteFile(path); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := decoded["totals"]; !ok {
		t.Error("expected totals in report")
	}
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3StoreUpload(t *testing.T) {
	client := &fakeS3{}
	store := NewS3Store(client, "bucket", "runs/")
	rep := &Report{Frames: 42, Finished: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}

	key, err := store.Upload(context.Background(), rep)
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}
	if key != "runs/run-20260102T030405.000Z.json" {
		t.Errorf("key = %q", key)
	}
	if *client.input.Bucket != "bucket" || *client.input.Key != key {
		t.Errorf("unexpected input %+v", client.input)
	}
	if *client.input.ContentType != "application/json" {
		t.Errorf("ContentType = %q", *client.input.ContentType)
	}
	if client.input.Metadata["frames"] != "42" {
		t.Errorf("frames metadata = %q", client.input.Metadata["frames"])
	}
	if !bytes.Contains(client.body, []byte(`"frames": 42`)) {
		t.Errorf("unexpected body %s", client.body)
	}
}

func TestS3StoreUploadError(t *testing.T) {
	cause := errors.New("access denied")
	store := NewS3Store(&fakeS3{err: cause}, "bucket", "")

	_, err := store.Upload(context.Background(), &Report{})
	var ve *vberrors.Error
	if !errors.As(err, &ve) || ve.Code != "X001" {
		t.Fatalf("expected X001, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("expected upload error to wrap the cause")
	}
	if !strings.Contains(ve.Detail, "bucket") {
		t.Errorf("expected detail to name the bucket, got %q", ve.Detail)
	}
}

// awsFiles points the AWS SDK at shared config and credentials files in a
// temp dir and clears the environment credentials.
func awsFiles(t *testing.T, config, credentials string) {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config")
	credsPath := filepath.Join(dir, "credentials")
	if err := os.WriteFile(configPath, []byte(config), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(credsPath, []byte(credentials), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AWS_CONFIG_FILE", configPath)
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", credsPath)
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_DEFAULT_REGION", "")
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	t.Setenv("AWS_SESSION_TOKEN", "")
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
}

func TestNewS3ClientSharedCredentials(t *testing.T) {
	awsFiles(t,
		"[default]\nregion = eu-west-1\n",
		"[default]\naws_access_key_id = AKIDFILE\naws_secret_access_key = filesecret\n")

	client, err := NewS3Client(t.Context(), S3Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	opts := client.Options()
	if opts.Region != "eu-west-1" {
		t.Errorf("Region = %q, want eu-west-1", opts.Region)
	}
	creds, err := opts.Credentials.Retrieve(t.Context())
	if err != nil {
		t.Fatalf("expected credentials from the shared file, got %v", err)
	}
	if creds.AccessKeyID != "AKIDFILE" || creds.SecretAccessKey != "filesecret" {
		t.Errorf("unexpected credentials %+v", creds)
	}
}

func TestNewS3ClientEnvCredentials(t *testing.T) {
	awsFiles(t, "", "")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKID")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("AWS_SESSION_TOKEN", "token")

	client, err := NewS3Client(t.Context(), S3Options{Region: "us-east-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	creds, err := client.Options().Credentials.Retrieve(t.Context())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if creds.AccessKeyID != "AKID" || creds.SessionToken != "token" {
		t.Errorf("unexpected credentials %+v", creds)
	}
}

func TestNewS3Client(t *testing.T) {
	awsFiles(t, "[default]\nregion = eu-west-1\n", "")
	client, err := NewS3Client(t.Context(), S3Options{
		Region:   "us-east-1",
		Endpoint: "http://localhost:9000",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	opts := client.Options()
	if opts.Region != "us-east-1" {
		t.Errorf("Region = %q, want us-east-1", opts.Region)
	}
	if !opts.UsePathStyle || opts.BaseEndpoint == nil || *opts.BaseEndpoint != "http://localhost:9000" {
		t.Error("expected custom endpoint with path-style addressing")
	}
}
