package survey

import "fleet-assistant/internal/models"

type Submission struct {
	Company struct {
		Name string `json:"name"`
	} `json:"company"`
	Fleet struct {
		Size       string            `json:"size"`
		Experience models.Experience `json:"experience,omitempty"`
	} `json:"fleet"`
	Challenges struct {
		Selected  []string `json:"selected"`
		Interests []string `json:"interests,omitempty"`
	} `json:"challenges"`
	Contact struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone,omitempty"`
	} `json:"contact"`
}
