package chatstream

import "github.com/Desarso/chatstream/models"

// DefaultModelID is the model served when a request names none.
const DefaultModelID = "gpt-4o"

// DefaultCatalog returns the built-in model catalog. Each entry spans one of
// the three supported vendor families.
func DefaultCatalog() []models.Model_Descriptor {
	return []models.Model_Descriptor{
		{
			ID:            "gpt-4o",
			Label:         "GPT 4o",
			APIIdentifier: "gpt-4o",
			Description:   "General purpose chat model",
		},
		{
			ID:            "gpt-4o-mini",
			Label:         "GPT 4o mini",
			APIIdentifier: "gpt-4o-mini",
			Description:   "Small, fast model for everyday chat",
		},
		{
			ID:            "gemini-2.0-flash",
			Label:         "Gemini 2.0 Flash",
			APIIdentifier: "gemini-2.0-flash",
			Description:   "Fast multimodal model",
		},
		{
			ID:            "claude-sonnet",
			Label:         "Claude Sonnet",
			APIIdentifier: "claude-sonnet-4-20250514",
			Description:   "Strong reasoning and writing model",
		},
	}
}
