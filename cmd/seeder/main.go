package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/store-locator/internal/geo"
	"github.com/ukydev/store-locator/internal/models"
)

type city struct {
	Name     string
	Location geo.Coordinate
}

// Cities stores are scattered around
var cities = []city{
	{"London", geo.Coordinate{Lat: 51.5074, Lon: -0.1278}},
	{"New York", geo.Coordinate{Lat: 40.7128, Lon: -74.0060}},
	{"Madrid", geo.Coordinate{Lat: 40.4168, Lon: -3.7038}},
	{"Nicosia", geo.Coordinate{Lat: 35.1856, Lon: 33.3823}},
	{"Bogotá", geo.Coordinate{Lat: 4.7110, Lon: -74.0721}},
	{"Paris", geo.Coordinate{Lat: 48.8566, Lon: 2.3522}},
	{"Istanbul", geo.Coordinate{Lat: 41.0082, Lon: 28.9784}},
	{"Cardiff", geo.Coordinate{Lat: 51.4816, Lon: -3.1791}},
	{"Los Angeles", geo.Coordinate{Lat: 34.0522, Lon: -118.2437}},
	{"San Francisco", geo.Coordinate{Lat: 37.7749, Lon: -122.4194}},
	{"Berlin", geo.Coordinate{Lat: 52.5200, Lon: 13.4050}},
	{"Tokyo", geo.Coordinate{Lat: 35.6762, Lon: 139.6503}},
	{"Sydney", geo.Coordinate{Lat: -33.8688, Lon: 151.2093}},
	{"Singapore", geo.Coordinate{Lat: 1.3521, Lon: 103.8198}},
	{"São Paulo", geo.Coordinate{Lat: -23.5505, Lon: -46.6333}},
	{"Toronto", geo.Coordinate{Lat: 43.6532, Lon: -79.3832}},
}

// jitterLocation moves base by up to meters along each axis.
func jitterLocation(rng *rand.Rand, base geo.Coordinate, meters float64) geo.Coordinate {
	latMetersPerDeg := 111320.0
	lonMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	dLat := (rng.Float64()*2 - 1) * (meters / latMetersPerDeg)
	dLon := (rng.Float64()*2 - 1) * (meters / lonMetersPerDeg)

	loc := geo.Coordinate{Lat: base.Lat + dLat, Lon: base.Lon + dLon}
	loc.Lat = math.Max(-90, math.Min(90, loc.Lat))
	loc.Lon = math.Max(-180, math.Min(180, loc.Lon))
	return loc
}

type seedConfig struct {
	APIBaseURL    string
	Count         int
	JitterMeters  float64
	AuthToken     string
	AdminUsername string
	AdminPassword string
}

func loadSeedConfig() seedConfig {
	cfg := seedConfig{
		APIBaseURL:    os.Getenv("API_BASE_URL"),
		Count:         10,
		JitterMeters:  5000,
		AuthToken:     os.Getenv("SEED_AUTH_TOKEN"),
		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "http://localhost:8080/api"
	}
	if v := os.Getenv("SEED_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Count = n
		}
	}
	if v := os.Getenv("SEED_JITTER_METERS"); v != "" {
		if m, err := strconv.ParseFloat(v, 64); err == nil && m >= 0 {
			cfg.JitterMeters = m
		}
	}
	return cfg
}

// apiClient talks to the store locator HTTP API.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL, token string) *apiClient {
	return &apiClient{baseURL: baseURL, token: token, http: &http.Client{Timeout: 10 * time.Second}}
}

func (c *apiClient) do(method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.http.Do(req)
}

func (c *apiClient) login(username, password string) error {
	resp, err := c.do(http.MethodPost, "/auth/login", models.LoginRequest{Username: username, Password: password})
	if err != nil {
		return fmt.Errorf("failed to log in: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed with status: %d", resp.StatusCode)
	}

	var result models.LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode login response: %w", err)
	}
	if result.Token == "" {
		return errors.New("login response carried no token")
	}
	c.token = result.Token
	return nil
}

func (c *apiClient) createStore(name string, location geo.Coordinate) (*models.Store, error) {
	resp, err := c.do(http.MethodPost, "/store", models.CreateStoreRequest{Name: name, Location: &location})
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("store creation failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Data models.Store `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Data.ID == "" {
		return nil, errors.New("invalid store ID in response")
	}
	return &result.Data, nil
}

func (c *apiClient) check(location geo.Coordinate) (*models.ServiceabilityResponse, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(location.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(location.Lon, 'f', -1, 64))

	resp, err := c.do(http.MethodGet, "/check?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check location: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("check failed with status: %d", resp.StatusCode)
	}

	var result models.ServiceabilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode check response: %w", err)
	}
	return &result, nil
}

// seed creates cfg.Count stores around the known cities and checks each
// city center afterwards. It returns the number of stores created.
func seed(cfg seedConfig, rng *rand.Rand) (int, error) {
	client := newAPIClient(cfg.APIBaseURL, cfg.AuthToken)
	if client.token == "" {
		if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
			return 0, errors.New("set SEED_AUTH_TOKEN or ADMIN_USERNAME and ADMIN_PASSWORD")
		}
		if err := client.login(cfg.AdminUsername, cfg.AdminPassword); err != nil {
			return 0, err
		}
	}

	created := 0
	seeded := make(map[string]geo.Coordinate)
	for i := 0; i < cfg.Count; i++ {
		c := cities[rng.Intn(len(cities))]
		name := fmt.Sprintf("%s #%d", c.Name, i+1)
		store, err := client.createStore(name, jitterLocation(rng, c.Location, cfg.JitterMeters))
		if err != nil {
			log.WithField("name", name).WithError(err).Error("Failed to create store")
			continue
		}
		created++
		seeded[c.Name] = c.Location
		log.WithFields(log.Fields{
			"store_id": store.ID,
			"name":     store.Name,
			"location": store.Location.String(),
		}).Info("Created store")
	}

	for name, center := range seeded {
		result, err := client.check(center)
		if err != nil {
			log.WithField("city", name).WithError(err).Warn("Serviceability check failed")
			continue
		}
		nearest := -1
		if len(result.ServiceableStores) > 0 {
			nearest = result.ServiceableStores[0].Distance
			for _, s := range result.ServiceableStores[1:] {
				if s.Distance < nearest {
					nearest = s.Distance
				}
			}
		}
		log.WithFields(log.Fields{
			"city":             name,
			"total_stores":     result.TotalStores,
			"nearest_distance": nearest,
		}).Info("Serviceability check")
	}

	return created, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found (using environment variables)")
	}
	cfg := loadSeedConfig()

	log.WithFields(log.Fields{
		"count":         cfg.Count,
		"api_url":       cfg.APIBaseURL,
		"jitter_meters": cfg.JitterMeters,
	}).Info("Seeding stores")

	created, err := seed(cfg, rand.New(rand.NewSource(time.Now().UnixNano())))
	if err != nil {
		log.WithError(err).Fatal("Seeding failed")
	}
	log.WithField("created_stores", created).Info("Seeding completed")
	if created == 0 && cfg.Count > 0 {
		log.Error("No stores created. Ensure credentials are valid and the API is reachable.")
		os.Exit(1)
	}
}
