package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dkeye/Interview/internal/domain"
)

func TestICEDiscoveryMixedURLs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"urls":"stun:stun.example.org:3478"},{"urls":["turn:turn.example.org:443"],"username":"u","credential":"p"}]`))
	}))
	defer srv.Close()

	d := &ICEDiscovery{Client: NewClient(0), URL: srv.URL}
	servers, ok := d.Servers(context.Background())
	if !ok || len(servers) != 2 {
		t.Fatalf("servers = %+v, ok = %v", servers, ok)
	}
	if servers[0].URLs[0] != "stun:stun.example.org:3478" || servers[1].Username != "u" {
		t.Fatalf("servers = %+v", servers)
	}
}

func TestICEDiscoveryFallsBack(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
		"json":   func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{oops`)) },
		"empty":  func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`[]`)) },
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()
			d := &ICEDiscovery{Client: NewClient(0), URL: srv.URL}
			servers, ok := d.Servers(context.Background())
			if ok || len(servers) != 2 || servers[0].URLs[0] != "stun:stun.l.google.com:19302" {
				t.Fatalf("servers = %+v, ok = %v", servers, ok)
			}
		})
	}
}

func TestCatalogAndJudge(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/problems", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"title":"Two Sum","templateCode":"class Solution {}"}]`))
	})
	mux.HandleFunc("/submissions", func(w http.ResponseWriter, r *http.Request) {
		var sub domain.Submission
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(domain.EvaluationResult{Status: domain.StatusAccepted, PassCount: 2, TotalTestCases: 2})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(0)
	problems, err := (&Catalog{Client: client, URL: srv.URL + "/problems"}).Problems(context.Background())
	if err != nil || len(problems) != 1 || problems[0].StarterCode() != "class Solution {}" {
		t.Fatalf("problems = %+v, %v", problems, err)
	}

	raw, err := (&Judge{Client: client, URL: srv.URL + "/submissions"}).Evaluate(context.Background(),
		domain.Submission{UserID: 1, ProblemID: 1, SourceCode: "x", Language: "JAVA"})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	var verdict domain.EvaluationResult
	if err := json.Unmarshal(raw, &verdict); err != nil || !verdict.Accepted() {
		t.Fatalf("verdict = %+v, %v", verdict, err)
	}

	if _, err := (&Judge{Client: client}).Evaluate(context.Background(), domain.Submission{}); err != ErrNoJudge {
		t.Fatalf("err = %v, want ErrNoJudge", err)
	}
}

func TestRoomsList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"r1","participants":2,"capacity":2}]`))
	}))
	defer srv.Close()

	rooms, err := (&Rooms{Client: NewClient(0), URL: srv.URL}).List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rooms) != 1 || rooms[0].ID != "r1" || rooms[0].Participants != 2 {
		t.Fatalf("rooms = %+v", rooms)
	}
}
