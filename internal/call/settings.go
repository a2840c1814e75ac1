package call

import "time"

type InformationItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Settings is the runtime-editable agent configuration. The orchestrator
// reads it as an immutable snapshot at the start of each turn.
type Settings struct {
	ModelName           string            `json:"model_name"`
	Temperature         float64           `json:"temperature"`
	Pricing             Pricing           `json:"pricing"`
	InformationToGather []InformationItem `json:"information_to_gather"`
}

func DefaultSettings(modelName string) Settings {
	now := time.Now()
	return Settings{
		ModelName:   modelName,
		Temperature: 0.7,
		Pricing:     DefaultPricing(),
		InformationToGather: []InformationItem{
			{
				ID:          "customer-identification",
				Title:       "Customer Identification",
				Description: "Verify the customer's full name and contact information for security purposes",
				CreatedAt:   now,
			},
			{
				ID:          "order-number",
				Title:       "Order Number",
				Description: "Ask for the order number or reference ID related to their inquiry",
				CreatedAt:   now,
			},
			{
				ID:          "purchase-date",
				Title:       "Purchase Date",
				Description: "Determine when the customer made their purchase or when the issue occurred",
				CreatedAt:   now,
			},
		},
	}
}
