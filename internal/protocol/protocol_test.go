package protocol

import (
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/scratcheverywhere/sebuild/internal/progress"
)

func TestEncodeDecode(t *testing.T) {
	data, err := Encode(CmdBuild, &BuildRequest{Project: "/p/game.sebx", Output: "/p/out"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	env, payload, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.Command != CmdBuild {
		t.Fatalf("command = %q", env.Command)
	}

	req, err := DecodePayload[BuildRequest](payload)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if req.Project != "/p/game.sebx" || req.Output != "/p/out" {
		t.Fatalf("request = %+v", req)
	}
}

func TestEncodeNilPayload(t *testing.T) {
	data, err := Encode(CmdStatus, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(data) != `{"version":1,"command":"status"}` {
		t.Fatalf("data = %s", data)
	}

	_, payload, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	req, err := DecodePayload[VersionsRequest](payload)
	if err != nil || req.Remote {
		t.Fatalf("empty payload decoded to %+v, %v", req, err)
	}
}

func TestProgressPayload(t *testing.T) {
	data, err := Encode(CmdProgress, &ProgressResult{Phase: progress.PhaseStaged, Percent: 25})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, payload, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	u, err := DecodePayload[ProgressResult](payload)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if u.Phase != progress.PhaseStaged || u.Percent != 25 {
		t.Fatalf("update = %+v", u)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{name: "not json", data: "build", want: ErrDecode},
		{name: "old version", data: `{"version":0,"command":"build"}`, want: ErrVersionMismatch},
		{name: "no command", data: `{"version":1}`, want: ErrDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode([]byte(tt.data))
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodePayloadMismatch(t *testing.T) {
	_, err := DecodePayload[InstallRequest]([]byte(`{"version":12}`))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("error = %v, want ErrDecode", err)
	}
}
