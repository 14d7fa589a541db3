// Package seeder generates realistic device-management callback bodies
// for load and smoke testing the bridge.
package seeder

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/brianvoe/gofakeit/v6"
)

// Kinds lists the callback kinds the generator can produce.
var Kinds = []string{"notifications", "registrations", "reg-updates", "registrations-expired"}

var deviceTypes = []string{
	"thermostat",
	"power-meter",
	"asset-tracker",
	"smart-valve",
	"gateway",
	"air-quality-sensor",
}

// IPSO-style observable resource paths (temperature, humidity, power,
// pressure, digital input).
var resourcePaths = []string{
	"/3303/0/5700",
	"/3304/0/5700",
	"/3305/0/5800",
	"/3323/0/5700",
	"/3342/0/5500",
}

type notification struct {
	Endpoint string `json:"ep"`
	Path     string `json:"path"`
	Payload  string `json:"payload"`
}

type registration struct {
	Endpoint         string                   `json:"ep"`
	OriginalEndpoint string                   `json:"original-ep"`
	EndpointType     string                   `json:"ept"`
	Resources        []map[string]interface{} `json:"resources"`
}

// Generator produces callback bodies over a stable pool of device
// endpoints, so registrations, notifications and expirations reference
// the same fleet the way a real device-management server would.
type Generator struct {
	endpoints []string
}

func New(poolSize int) *Generator {
	if poolSize <= 0 {
		poolSize = 25
	}

	endpoints := make([]string, poolSize)
	for i := range endpoints {
		endpoints[i] = "urn:imei:" + gofakeit.Numerify("###############")
	}

	return &Generator{endpoints: endpoints}
}

// Endpoints returns the generator's device pool.
func (g *Generator) Endpoints() []string {
	return g.endpoints
}

func (g *Generator) endpoint() string {
	return g.endpoints[rand.Intn(len(g.endpoints))]
}

// Callback builds a callback body of the given kind with n items.
func (g *Generator) Callback(kind string, n int) ([]byte, error) {
	switch kind {
	case "notifications":
		return g.Notifications(n)
	case "registrations":
		return g.Registrations(n)
	case "reg-updates":
		return g.RegistrationUpdates(n)
	case "registrations-expired":
		return g.Expirations(n)
	default:
		return nil, fmt.Errorf("unknown callback kind: %s", kind)
	}
}

// Notifications builds a callback with n observation reports. Payloads
// are base64-encoded sensor readings, matching the wire format.
func (g *Generator) Notifications(n int) ([]byte, error) {
	items := make([]notification, n)
	for i := range items {
		reading := fmt.Sprintf("%.1f", gofakeit.Float64Range(-10, 40))
		items[i] = notification{
			Endpoint: g.endpoint(),
			Path:     resourcePaths[rand.Intn(len(resourcePaths))],
			Payload:  base64.StdEncoding.EncodeToString([]byte(reading)),
		}
	}

	return json.Marshal(map[string]interface{}{"notifications": items})
}

func (g *Generator) Registrations(n int) ([]byte, error) {
	return g.registrations("registrations", n)
}

func (g *Generator) RegistrationUpdates(n int) ([]byte, error) {
	return g.registrations("reg-updates", n)
}

func (g *Generator) registrations(key string, n int) ([]byte, error) {
	items := make([]registration, n)
	for i := range items {
		ep := g.endpoint()

		resources := []map[string]interface{}{{"n": "/3/0"}}
		for _, path := range resourcePaths {
			if rand.Float32() < 0.6 {
				resources = append(resources, map[string]interface{}{"n": path})
			}
		}

		items[i] = registration{
			Endpoint:         ep,
			OriginalEndpoint: ep,
			EndpointType:     deviceTypes[rand.Intn(len(deviceTypes))],
			Resources:        resources,
		}
	}

	return json.Marshal(map[string]interface{}{key: items})
}

// Expirations builds a callback naming n endpoints whose registrations
// lapsed.
func (g *Generator) Expirations(n int) ([]byte, error) {
	items := make([]string, n)
	for i := range items {
		items[i] = g.endpoint()
	}

	return json.Marshal(map[string]interface{}{"registrations-expired": items})
}
