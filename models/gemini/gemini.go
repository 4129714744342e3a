package gemini

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"google.golang.org/genai"

	"github.com/Desarso/chatstream/models"
)

func init() {
	// Load .env file if it exists (not present in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
}

// Gemini_Model calls the Gemini API through the official Go SDK.
type Gemini_Model struct {
	Model  string `json:"model"`
	client *genai.Client
}

// New constructs a handle for the given backend model identifier. The client
// is created eagerly so a missing or rejected credential fails here, not on
// the first request.
func New(model string) (*Gemini_Model, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Gemini_Model{Model: model, client: client}, nil
}

func (g *Gemini_Model) Model_Request(ctx context.Context, request models.Model_Request, tools []models.FunctionDeclaration, history []models.TurnMessage) (models.Model_Response, error) {
	if request.User_Message == nil && request.Tool_Results == nil {
		return models.Model_Response{}, fmt.Errorf("request must contain either user message or tool results")
	}

	contents, err := buildContents(request, history)
	if err != nil {
		return models.Model_Response{}, err
	}

	response, err := g.client.Models.GenerateContent(ctx, g.Model, contents, buildConfig(request, tools))
	if err != nil {
		return models.Model_Response{}, fmt.Errorf("gemini request failed: %w", err)
	}
	return toModelResponse(response), nil
}

func (g *Gemini_Model) Stream_Model_Request(ctx context.Context, request models.Model_Request, tools []models.FunctionDeclaration, history []models.TurnMessage) (<-chan models.Model_Response, <-chan error) {
	respChan := make(chan models.Model_Response)
	errChan := make(chan error, 1)

	if request.User_Message == nil && request.Tool_Results == nil {
		errChan <- fmt.Errorf("request must contain either user message or tool results")
		close(errChan)
		close(respChan)
		return respChan, errChan
	}

	contents, err := buildContents(request, history)
	if err != nil {
		errChan <- err
		close(errChan)
		close(respChan)
		return respChan, errChan
	}

	go func() {
		defer close(respChan)
		defer close(errChan)

		for response, streamErr := range g.client.Models.GenerateContentStream(ctx, g.Model, contents, buildConfig(request, tools)) {
			if streamErr != nil {
				errChan <- fmt.Errorf("gemini stream failed: %w", streamErr)
				return
			}

			select {
			case respChan <- toModelResponse(response):
			case <-ctx.Done():
				return
			}
		}
	}()

	return respChan, errChan
}
