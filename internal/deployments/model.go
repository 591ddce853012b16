package deployments

import (
	"errors"
	"time"
)

const (
	StatusPending = "pending"
	StatusReady   = "ready"
	StatusFailed  = "failed"
)

var (
	ErrNotFound     = errors.New("deployment not found")
	ErrInvalidInput = errors.New("invalid input")
)

type Deployment struct {
	ID                   string    `json:"id"`
	PortfolioID          string    `json:"portfolio_id"`
	ProviderDeploymentID string    `json:"provider_deployment_id,omitempty"`
	ProviderProjectID    string    `json:"provider_project_id,omitempty"`
	DeploymentURL        string    `json:"deployment_url,omitempty"`
	Status               string    `json:"status"`
	ErrorMessage         string    `json:"error_message,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// StatusView is what pollers see.
type StatusView struct {
	Status       string  `json:"status"`
	URL          *string `json:"url"`
	DeploymentID string  `json:"deployment_id"`
}

func (d Deployment) View() StatusView {
	v := StatusView{Status: d.Status, DeploymentID: d.ID}
	if d.Status == StatusReady && d.DeploymentURL != "" {
		url := d.DeploymentURL
		v.URL = &url
	}
	return v
}
