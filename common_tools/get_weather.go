package common_tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Desarso/chatstream/models"
)

const forecastBaseURL = "https://api.open-meteo.com/v1/forecast"

var weatherClient = &http.Client{Timeout: 15 * time.Second}

// GetWeatherTool returns the declaration for the weather lookup tool.
func GetWeatherTool() models.FunctionDeclaration {
	return models.FunctionDeclaration{
		Name:        "getWeather",
		Description: "Get the current weather at a location",
		Parameters: models.Parameters{
			Type: "object",
			Properties: map[string]interface{}{
				"latitude": map[string]interface{}{
					"type":        "number",
					"description": "Latitude of the location",
				},
				"longitude": map[string]interface{}{
					"type":        "number",
					"description": "Longitude of the location",
				},
			},
			Required: []string{"latitude", "longitude"},
		},
		Callable: HandlerFunc(GetWeather),
	}
}

// GetWeather fetches current, hourly and daily forecast data from the
// Open-Meteo API and returns the raw JSON payload. Nothing is persisted.
func GetWeather(ctx context.Context, tc *ToolRunContext, args map[string]interface{}) (string, error) {
	latitude := numberArg(args, "latitude")
	longitude := numberArg(args, "longitude")

	query := url.Values{}
	query.Set("latitude", fmt.Sprintf("%g", latitude))
	query.Set("longitude", fmt.Sprintf("%g", longitude))
	query.Set("current", "temperature_2m")
	query.Set("hourly", "temperature_2m")
	query.Set("daily", "sunrise,sunset")
	query.Set("timezone", "auto")

	return fetchForecast(ctx, forecastBaseURL+"?"+query.Encode())
}

func fetchForecast(ctx context.Context, requestURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create forecast request: %w", err)
	}

	resp, err := weatherClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("forecast request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read forecast response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("forecast API returned status %d: %s", resp.StatusCode, string(body))
	}

	return string(body), nil
}
