package main

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ukydev/store-locator/internal/geo"
	"github.com/ukydev/store-locator/internal/models"
)

// fakeAPI records the calls the seeder makes.
type fakeAPI struct {
	mu       sync.Mutex
	logins   int
	created  []models.CreateStoreRequest
	checks   int
	tokens   []string
	failPost bool
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode login: %v", err)
		}
		f.mu.Lock()
		f.logins++
		f.mu.Unlock()
		if req.Password != "password123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(models.LoginResponse{Token: "issued-token"})
	})
	mux.HandleFunc("POST /api/store", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", r.Header.Get("Content-Type"))
		}
		var req models.CreateStoreRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode store: %v", err)
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.tokens = append(f.tokens, r.Header.Get("Authorization"))
		if f.failPost {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		f.created = append(f.created, req)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.APIResponse{
			Success: true,
			Data:    models.Store{ID: "store-1", Name: req.Name, Location: *req.Location},
		})
	})
	mux.HandleFunc("GET /api/check", func(w http.ResponseWriter, r *http.Request) {
		loc, err := geo.ParseCoordinate(r.URL.Query().Get("lat"), r.URL.Query().Get("lon"))
		if err != nil {
			t.Errorf("seeder sent invalid coordinates: %v", err)
		}
		f.mu.Lock()
		f.checks++
		f.mu.Unlock()
		json.NewEncoder(w).Encode(models.ServiceabilityResponse{
			DeliveryLocation:  loc,
			ServiceableStores: []models.ServiceabilityResult{{Store: models.Store{ID: "store-1"}, Distance: 1200}},
			TotalStores:       1,
		})
	})
	return mux
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	api := &fakeAPI{}
	server := httptest.NewServer(api.handler(t))
	t.Cleanup(server.Close)
	return api, server
}

func TestJitterLocation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, c := range cities {
		for i := 0; i < 50; i++ {
			loc := jitterLocation(rng, c.Location, 5000)
			if err := loc.Validate(); err != nil {
				t.Fatalf("jittered location invalid: %v", err)
			}
			// each axis moves at most 5 km, so the diagonal is under 7.1 km
			if d := geo.Haversine(c.Location, loc); d > 7100 {
				t.Errorf("%s: jittered %f m away", c.Name, d)
			}
		}
	}
}

func TestJitterLocation_Zero(t *testing.T) {
	base := geo.Coordinate{Lat: 40.7128, Lon: -74.0060}
	if got := jitterLocation(rand.New(rand.NewSource(1)), base, 0); got != base {
		t.Errorf("expected %v, got %v", base, got)
	}
}

func TestJitterLocation_ClampsNearPole(t *testing.T) {
	base := geo.Coordinate{Lat: 89.99, Lon: 179.99}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		if err := jitterLocation(rng, base, 50000).Validate(); err != nil {
			t.Fatalf("expected clamped location, got %v", err)
		}
	}
}

func TestLoadSeedConfig(t *testing.T) {
	testCases := []struct {
		name       string
		count      string
		jitter     string
		wantCount  int
		wantJitter float64
	}{
		{"defaults", "", "", 10, 5000},
		{"valid values", "5", "250", 5, 250},
		{"invalid values", "many", "far", 10, 5000},
		{"negative values", "-1", "-5", 10, 5000},
		{"zero count", "0", "0", 0, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("API_BASE_URL", "")
			t.Setenv("SEED_COUNT", tc.count)
			t.Setenv("SEED_JITTER_METERS", tc.jitter)

			cfg := loadSeedConfig()
			if cfg.Count != tc.wantCount {
				t.Errorf("expected count %d, got %d", tc.wantCount, cfg.Count)
			}
			if cfg.JitterMeters != tc.wantJitter {
				t.Errorf("expected jitter %f, got %f", tc.wantJitter, cfg.JitterMeters)
			}
			if cfg.APIBaseURL != "http://localhost:8080/api" {
				t.Errorf("unexpected default API URL %s", cfg.APIBaseURL)
			}
		})
	}
}

func TestSeed_LogsInAndCreates(t *testing.T) {
	api, server := newFakeAPI(t)

	created, err := seed(seedConfig{
		APIBaseURL:    server.URL + "/api",
		Count:         3,
		JitterMeters:  1000,
		AdminUsername: "root",
		AdminPassword: "password123",
	}, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if created != 3 {
		t.Errorf("expected 3 stores, got %d", created)
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if api.logins != 1 {
		t.Errorf("expected one login, got %d", api.logins)
	}
	for _, h := range api.tokens {
		if h != "Bearer issued-token" {
			t.Errorf("unexpected Authorization header %q", h)
		}
	}
	for _, req := range api.created {
		if req.Location == nil || !strings.Contains(req.Name, "#") {
			t.Errorf("unexpected create request %+v", req)
		}
	}
	if api.checks == 0 || api.checks > 3 {
		t.Errorf("expected one check per seeded city, got %d", api.checks)
	}
}

func TestSeed_UsesProvidedToken(t *testing.T) {
	api, server := newFakeAPI(t)

	created, err := seed(seedConfig{APIBaseURL: server.URL + "/api", Count: 2, AuthToken: "preset"}, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if created != 2 {
		t.Errorf("expected 2 stores, got %d", created)
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if api.logins != 0 {
		t.Errorf("expected no login, got %d", api.logins)
	}
	if len(api.tokens) == 0 || api.tokens[0] != "Bearer preset" {
		t.Errorf("expected preset token, got %v", api.tokens)
	}
}

func TestSeed_Errors(t *testing.T) {
	_, server := newFakeAPI(t)
	rng := rand.New(rand.NewSource(1))

	if _, err := seed(seedConfig{APIBaseURL: server.URL + "/api", Count: 1}, rng); err == nil {
		t.Error("expected error without credentials")
	}

	_, err := seed(seedConfig{APIBaseURL: server.URL + "/api", Count: 1, AdminUsername: "root", AdminPassword: "wrong"}, rng)
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("expected login failure, got %v", err)
	}
}

func TestSeed_CreateFailuresAreSkipped(t *testing.T) {
	api, server := newFakeAPI(t)
	api.mu.Lock()
	api.failPost = true
	api.mu.Unlock()

	created, err := seed(seedConfig{APIBaseURL: server.URL + "/api", Count: 2, AuthToken: "preset"}, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if created != 0 {
		t.Errorf("expected 0 stores, got %d", created)
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if api.checks != 0 {
		t.Errorf("expected no checks, got %d", api.checks)
	}
}

func TestAPIClient_Check(t *testing.T) {
	_, server := newFakeAPI(t)
	client := newAPIClient(server.URL+"/api", "")

	result, err := client.check(geo.Coordinate{Lat: 40.7128, Lon: -74.0060})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if result.TotalStores != 1 || result.ServiceableStores[0].Distance != 1200 {
		t.Errorf("unexpected result %+v", result)
	}
	if result.DeliveryLocation.Lat != 40.7128 {
		t.Errorf("expected echoed latitude, got %f", result.DeliveryLocation.Lat)
	}
}

func TestAPIClient_CheckServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	if _, err := newAPIClient(server.URL, "").check(geo.Coordinate{}); err == nil {
		t.Error("expected error for 400 response")
	}
}
