package chatstream

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/Desarso/chatstream/models"
	"github.com/Desarso/chatstream/models/anthropic"
	"github.com/Desarso/chatstream/models/gemini"
	"github.com/Desarso/chatstream/models/openrouter"
)

// Vendor identifies a provider family. The set is closed: a backend
// identifier resolves to exactly one vendor, once, by prefix convention.
type Vendor int

const (
	VendorOpenAI Vendor = iota // OpenAI-compatible endpoints, the default family
	VendorGemini
	VendorAnthropic
)

func (v Vendor) String() string {
	switch v {
	case VendorGemini:
		return "gemini"
	case VendorAnthropic:
		return "anthropic"
	default:
		return "openai-compatible"
	}
}

// vendorFor maps a backend API identifier to its vendor family.
func vendorFor(apiIdentifier string) Vendor {
	switch {
	case strings.HasPrefix(apiIdentifier, "gemini-"):
		return VendorGemini
	case strings.HasPrefix(apiIdentifier, "claude-"):
		return VendorAnthropic
	default:
		return VendorOpenAI
	}
}

// vendorConstructors is the constructor table for the closed vendor set.
var vendorConstructors = map[Vendor]func(apiIdentifier string) (models.Model, error){
	VendorGemini: func(id string) (models.Model, error) {
		return gemini.New(id)
	},
	VendorAnthropic: func(id string) (models.Model, error) {
		return anthropic.New(id)
	},
	VendorOpenAI: func(id string) (models.Model, error) {
		return openrouter.New(id)
	},
}

// vendorKeyEnvs names the credential env var per vendor, for masked logging.
var vendorKeyEnvs = map[Vendor]string{
	VendorGemini:    "GEMINI_API_KEY",
	VendorAnthropic: "ANTHROPIC_API_KEY",
	VendorOpenAI:    "OPENAI_API_KEY",
}

// ErrUnknownModel is returned when a model id is not in the catalog.
var ErrUnknownModel = errors.New("unknown model")

// Middleware is the customization point applied to every outgoing request.
// The default is a pass-through.
type Middleware func(request *models.Model_Request)

// Gateway resolves model identifiers to callable handles. Every handle is
// wrapped with a logging decorator.
type Gateway struct {
	Catalog      []models.Model_Descriptor
	DefaultModel string
	Middleware   Middleware
	Logger       *log.Logger
}

// NewGateway creates a gateway over a static catalog.
func NewGateway(catalog []models.Model_Descriptor, defaultModel string) *Gateway {
	return &Gateway{
		Catalog:      catalog,
		DefaultModel: defaultModel,
		Logger:       log.Default(),
	}
}

// Descriptor looks up a catalog entry by model id.
func (g *Gateway) Descriptor(modelID string) (models.Model_Descriptor, bool) {
	for _, desc := range g.Catalog {
		if desc.ID == modelID {
			return desc, true
		}
	}
	return models.Model_Descriptor{}, false
}

// Resolve maps a model id to a wrapped vendor handle. Construction failures
// fail fast with the vendor named; there is no silent fallback to another
// vendor.
func (g *Gateway) Resolve(modelID string) (models.Model, error) {
	desc, ok := g.Descriptor(modelID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
	}

	vendor := vendorFor(desc.APIIdentifier)
	construct := vendorConstructors[vendor]

	handle, err := construct(desc.APIIdentifier)
	if err != nil {
		return nil, fmt.Errorf("failed to construct %s handle for model %s: %w", vendor, modelID, err)
	}

	logger := g.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("Resolved model %s via %s (credential %s)", modelID, vendor, maskSecret(os.Getenv(vendorKeyEnvs[vendor])))

	return &loggingModel{
		inner:      handle,
		vendor:     vendor,
		modelID:    modelID,
		middleware: g.Middleware,
		logger:     logger,
	}, nil
}

// loggingModel decorates a vendor handle with request logging and the
// middleware transform.
type loggingModel struct {
	inner      models.Model
	vendor     Vendor
	modelID    string
	middleware Middleware
	logger     *log.Logger
}

func (m *loggingModel) Model_Request(ctx context.Context, request models.Model_Request, tools []models.FunctionDeclaration, history []models.TurnMessage) (models.Model_Response, error) {
	if m.middleware != nil {
		m.middleware(&request)
	}

	start := time.Now()
	response, err := m.inner.Model_Request(ctx, request, tools, history)
	if err != nil {
		m.logger.Printf("%s request for model %s failed after %v: %v", m.vendor, m.modelID, time.Since(start), err)
		return response, fmt.Errorf("%s: %w", m.vendor, err)
	}
	m.logger.Printf("%s request for model %s completed in %v (%d parts)", m.vendor, m.modelID, time.Since(start), len(response.Parts))
	return response, nil
}

func (m *loggingModel) Stream_Model_Request(ctx context.Context, request models.Model_Request, tools []models.FunctionDeclaration, history []models.TurnMessage) (<-chan models.Model_Response, <-chan error) {
	if m.middleware != nil {
		m.middleware(&request)
	}

	m.logger.Printf("%s stream started for model %s", m.vendor, m.modelID)
	return m.inner.Stream_Model_Request(ctx, request, tools, history)
}

// maskSecret shows only the first and last few characters of a credential.
func maskSecret(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "…" + secret[len(secret)-4:]
}
