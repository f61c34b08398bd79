package geocoder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNominatim_Lookup(t *testing.T) {
	var gotQuery, gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("Expected /search, got %s", r.URL.Path)
		}
		q := r.URL.Query()
		gotQuery = q.Get("q")
		gotAgent = r.Header.Get("User-Agent")
		if q.Get("format") != "json" || q.Get("limit") != "1" {
			t.Errorf("Unexpected params: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"lat":"41.8169","lon":"-87.6128","display_name":"East 41st Street, Chicago"}]`))
	}))
	defer server.Close()

	n := NewNominatim(server.Client(), server.URL+"/", "Test-Agent/1.0")
	loc, err := n.Lookup(context.Background(), "41st and Pine, Chicago, IL")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if loc == nil {
		t.Fatal("Expected a location")
	}
	if loc.Latitude != 41.8169 || loc.Longitude != -87.6128 {
		t.Errorf("Unexpected coordinates: %+v", loc)
	}
	if loc.Address != "East 41st Street, Chicago" {
		t.Errorf("Unexpected address: %q", loc.Address)
	}
	if gotQuery != "41st and Pine, Chicago, IL" {
		t.Errorf("Expected query forwarded, got %q", gotQuery)
	}
	if gotAgent != "Test-Agent/1.0" {
		t.Errorf("Expected user agent, got %q", gotAgent)
	}
}

func TestNominatim_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantNil bool
		wantErr bool
	}{
		{"no results", http.StatusOK, `[]`, true, false},
		{"bad latitude", http.StatusOK, `[{"lat":"north","lon":"1","display_name":"x"}]`, true, true},
		{"bad longitude", http.StatusOK, `[{"lat":"1","lon":"","display_name":"x"}]`, true, true},
		{"malformed body", http.StatusOK, `{"error":`, true, true},
		{"server error", http.StatusServiceUnavailable, `busy`, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			loc, err := NewNominatim(server.Client(), server.URL, "ua").Lookup(context.Background(), "q")
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error=%v, got %v", tt.wantErr, err)
			}
			if (loc == nil) != tt.wantNil {
				t.Errorf("Expected nil=%v, got %+v", tt.wantNil, loc)
			}
		})
	}
}

func TestNominatim_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := &http.Client{Timeout: 50 * time.Millisecond}
	if _, err := NewNominatim(client, server.URL, "ua").Lookup(context.Background(), "q"); err == nil {
		t.Error("Expected timeout error")
	}
}
