package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newWattTimeServer(t *testing.T, logins *int, signalBody string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "scl-dash" || pass != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":"invalid credentials"}`)
			return
		}
		*logins++
		fmt.Fprintf(w, `{"token":"tok-%d"}`, *logins)
	})
	mux.HandleFunc("/v3/signal-index", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("signal_type"); got != "co2_moer" {
			t.Errorf("signal_type = %q, want co2_moer", got)
		}
		if got := r.URL.Query().Get("region"); got != "SCL" {
			t.Errorf("region = %q, want SCL", got)
		}
		fmt.Fprint(w, signalBody)
	})
	return httptest.NewServer(mux)
}

func TestSignalIndexCachesToken(t *testing.T) {
	var logins int
	srv := newWattTimeServer(t, &logins, `{"data":[{"point_time":"2026-08-26T10:00:00Z","value":41.6}]}`)
	defer srv.Close()

	client := NewWattTimeClient(srv.URL, "scl-dash", "hunter2")

	for i := 0; i < 3; i++ {
		points, err := client.SignalIndex(context.Background(), "SCL")
		if err != nil {
			t.Fatalf("SignalIndex: %v", err)
		}
		if len(points) != 1 {
			t.Fatalf("got %d points, want 1", len(points))
		}
		if points[0].Value != 42 {
			t.Errorf("value = %d, want 42 (41.6 rounded)", points[0].Value)
		}
	}

	if logins != 1 {
		t.Errorf("logins = %d, want 1 (token should be cached)", logins)
	}
}

func TestSignalIndexRenewsTokenBeforeExpiry(t *testing.T) {
	var logins int
	srv := newWattTimeServer(t, &logins, `{"data":[{"point_time":"2026-08-26T10:00:00Z","value":50}]}`)
	defer srv.Close()

	client := NewWattTimeClient(srv.URL, "scl-dash", "hunter2")
	current := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return current }

	if _, err := client.SignalIndex(context.Background(), "SCL"); err != nil {
		t.Fatalf("SignalIndex: %v", err)
	}
	if logins != 1 {
		t.Fatalf("logins after first call = %d, want 1", logins)
	}

	// 19 minutes in: still inside the 25m validity minus the 5m margin.
	current = current.Add(19 * time.Minute)
	if _, err := client.SignalIndex(context.Background(), "SCL"); err != nil {
		t.Fatalf("SignalIndex: %v", err)
	}
	if logins != 1 {
		t.Errorf("logins at +19m = %d, want 1", logins)
	}

	// 21 minutes in: past the margin, the client must log in again.
	current = current.Add(2 * time.Minute)
	if _, err := client.SignalIndex(context.Background(), "SCL"); err != nil {
		t.Fatalf("SignalIndex: %v", err)
	}
	if logins != 2 {
		t.Errorf("logins at +21m = %d, want 2", logins)
	}
}

func TestSignalIndexRejectedLogin(t *testing.T) {
	var logins int
	srv := newWattTimeServer(t, &logins, `{}`)
	defer srv.Close()

	client := NewWattTimeClient(srv.URL, "scl-dash", "wrong-password")
	_, err := client.SignalIndex(context.Background(), "SCL")

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want *AuthError", err)
	}
	if authErr.Status != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", authErr.Status, http.StatusUnauthorized)
	}
}

func TestSignalIndexUpstreamFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"token":"tok-1"}`)
	})
	mux.HandleFunc("/v3/signal-index", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewWattTimeClient(srv.URL, "scl-dash", "hunter2")
	_, err := client.SignalIndex(context.Background(), "SCL")

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("error = %v, want *FetchError", err)
	}
	if fetchErr.Status != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", fetchErr.Status, http.StatusBadGateway)
	}
	if fetchErr.Provider != "watttime" {
		t.Errorf("provider = %q, want watttime", fetchErr.Provider)
	}
}

func TestSignalIndexNormalizesRows(t *testing.T) {
	body := `{"data":[
		{"point_time":"2026-08-26T10:10:00Z","value":120.3},
		{"point_time":"2026-08-26T10:00:00Z","value":-4},
		{"point_time":"not a time","value":55},
		{"point_time":"2026-08-26T10:05:00Z","value":61.2}
	]}`
	var logins int
	srv := newWattTimeServer(t, &logins, body)
	defer srv.Close()

	client := NewWattTimeClient(srv.URL, "scl-dash", "hunter2")
	points, err := client.SignalIndex(context.Background(), "SCL")
	if err != nil {
		t.Fatalf("SignalIndex: %v", err)
	}

	if len(points) != 3 {
		t.Fatalf("got %d points, want 3 (malformed timestamp dropped)", len(points))
	}
	for i := 1; i < len(points); i++ {
		if !points[i-1].Timestamp.Before(points[i].Timestamp) {
			t.Fatalf("points not in ascending order: %+v", points)
		}
	}
	if points[0].Value != 0 {
		t.Errorf("negative value clamped to %d, want 0", points[0].Value)
	}
	if points[2].Value != 100 {
		t.Errorf("oversized value clamped to %d, want 100", points[2].Value)
	}
}
