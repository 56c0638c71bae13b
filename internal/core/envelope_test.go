package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestDecodeRequiresType(t *testing.T) {
	cases := map[string]struct {
		in   string
		want error
	}{
		"missing type": {`{"sender":"a","data":null}`, ErrSyncApply},
		"empty type":   {`{"type":"","sender":"a"}`, ErrSyncApply},
		"not json":     {`{type`, nil},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(tc.in))
			if err == nil {
				t.Fatal("decode accepted a bad envelope")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
	env, err := Decode([]byte(`{"type":"JOIN","sender":"a","data":null}`))
	if err != nil || env.Type != TypeJoin || env.Sender != "a" {
		t.Fatalf("env = %+v, err = %v", env, err)
	}
}

func TestSessionDescriptionChecksSDPType(t *testing.T) {
	answer := json.RawMessage(`{"type":"answer","sdp":"v=0\r\n"}`)
	offer := json.RawMessage(`{"type":"offer","sdp":"v=0\r\n"}`)

	if _, err := (Envelope{Type: TypeOffer, Data: answer}).SessionDescription(); !errors.Is(err, ErrGuardViolation) {
		t.Fatalf("offer carrying an answer: err = %v", err)
	}
	if _, err := (Envelope{Type: TypeAnswer, Data: offer}).SessionDescription(); !errors.Is(err, ErrGuardViolation) {
		t.Fatalf("answer carrying an offer: err = %v", err)
	}
	sd, err := (Envelope{Type: TypeOffer, Data: offer}).SessionDescription()
	if err != nil || sd.SDP != "v=0\r\n" {
		t.Fatalf("sd = %+v, err = %v", sd, err)
	}
}

func TestNullDataRejectedByEveryAccessor(t *testing.T) {
	for _, data := range []json.RawMessage{nil, json.RawMessage("null"), json.RawMessage(" null ")} {
		if _, err := (Envelope{Type: TypeOffer, Data: data}).SessionDescription(); !errors.Is(err, ErrGuardViolation) {
			t.Errorf("description %q: err = %v", data, err)
		}
		if _, err := (Envelope{Type: TypeCandidate, Data: data}).Candidate(); !errors.Is(err, ErrCandidateRejected) {
			t.Errorf("candidate %q: err = %v", data, err)
		}
		if _, err := (Envelope{Type: TypeCodeUpdate, Data: data}).CodeUpdate(); !errors.Is(err, ErrSyncApply) {
			t.Errorf("code update %q: err = %v", data, err)
		}
		if _, err := (Envelope{Type: TypeTerminalUpdate, Data: data}).TerminalUpdate(); !errors.Is(err, ErrSyncApply) {
			t.Errorf("terminal update %q: err = %v", data, err)
		}
	}
}

func TestCodeUpdateAllowsEmptyText(t *testing.T) {
	text, err := (Envelope{Type: TypeCodeUpdate, Data: json.RawMessage(`{"sourceCode":""}`)}).CodeUpdate()
	if err != nil || text != "" {
		t.Fatalf("text = %q, err = %v", text, err)
	}
}

func TestEncodeJoinWithoutData(t *testing.T) {
	b, err := Encode(Envelope{Type: TypeJoin, Sender: "a"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"data":null`) {
		t.Fatalf("encoded = %s", b)
	}
	env, err := Decode(b)
	if err != nil || env.Type != TypeJoin {
		t.Fatalf("env = %+v, err = %v", env, err)
	}
}

func TestErrorFrameOp(t *testing.T) {
	var f HubFrame
	if err := json.Unmarshal(ErrorFrame("interview/r1", "bad_topic"), &f); err != nil {
		t.Fatal(err)
	}
	if f.Op != OpErrorFrame || OpErrorFrame != "error" || f.Error != "bad_topic" || f.Topic != "interview/r1" {
		t.Fatalf("frame = %+v", f)
	}
	var opErr *OpError
	if !errors.As(WrapError("publish", ErrClosed, "x"), &opErr) || opErr.Op != "publish" {
		t.Fatal("OpError lost its op")
	}
}
