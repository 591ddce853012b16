package deployments

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"portfolio-backend/internal/portfolios"
	"portfolio-backend/internal/shared/storage/object"
)

// Publisher makes a portfolio reachable and returns its public URL.
type Publisher interface {
	Publish(ctx context.Context, d portfolios.Detail) (Published, error)
}

type Published struct {
	ProviderDeploymentID string
	URL                  string
}

// SitePublisher renders the portfolio page and writes it to the object
// store under sites/<subdomain>/index.html, where the edge serves it.
type SitePublisher struct {
	Store      object.ObjectStore
	RootDomain string
}

func SiteKey(subdomain string) string {
	return "sites/" + subdomain + "/index.html"
}

func (p *SitePublisher) Publish(ctx context.Context, d portfolios.Detail) (Published, error) {
	var buf bytes.Buffer
	if err := portfolios.RenderHTML(&buf, d); err != nil {
		return Published{}, fmt.Errorf("render site: %w", err)
	}
	key := SiteKey(d.Subdomain)
	if _, err := p.Store.SaveWithKey(ctx, key, "text/html; charset=utf-8", &buf); err != nil {
		return Published{}, fmt.Errorf("upload site: %w", err)
	}
	return Published{ProviderDeploymentID: key, URL: PortfolioURL(d.Subdomain, p.RootDomain)}, nil
}

// PortfolioURL is the public address of a subdomain.
func PortfolioURL(subdomain, rootDomain string) string {
	return "https://" + subdomain + "." + strings.TrimPrefix(rootDomain, ".")
}
